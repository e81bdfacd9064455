package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/metrics"
)

// Producer buffers messages in memory and writes them from one goroutine, so Publish never
// blocks the caller. When the buffer is full the message is dropped and counted.
type Producer struct {
	w     *kafka.Writer
	log   logrus.FieldLogger
	inbox chan kafka.Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, log logrus.FieldLogger) *Producer {
	log = log.WithField("topic", topic)
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					log.WithError(err).WithField("messages", len(msgs)).Error("kafka write failed")
				}
			},
		},
		log:   log,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

// Start runs the writer loop. Cancelling ctx has the same effect as Close.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		p.Close()
	}()
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.WithError(err).WithField("key", string(m.Key)).Error("kafka enqueue failed")
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.WithError(err).Warn("kafka writer close")
		}
	}()
}

// Publish reports whether the message was buffered.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(key, "producer closed")
		return false
	}
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return true
	default:
		p.drop(key, "buffer full")
		return false
	}
}

func (p *Producer) drop(key []byte, reason string) {
	metrics.EventDropped()
	p.log.WithFields(logrus.Fields{"key": string(key), "reason": reason}).Warn("event dropped")
}

// Close stops accepting messages. The loop flushes what is buffered and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

// WaitClosed blocks until the buffered messages are handed to the writer and it is closed.
func (p *Producer) WaitClosed() { <-p.done }
