package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler returns nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// reader is the part of *kafka.Reader the consumer uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       reader
	workers int
	log     logrus.FieldLogger

	retryMin time.Duration
	retryMax time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log logrus.FieldLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:        r,
		workers:  workers,
		log:      log.WithFields(logrus.Fields{"topic": topic, "group": group}),
		retryMin: 200 * time.Millisecond,
		retryMax: 30 * time.Second,
	}
}

// Start fetches until ctx is cancelled. Each partition is owned by one worker, which handles
// its messages in offset order. A failing message is retried with backoff until it succeeds,
// and nothing after it in that partition is handled or committed meanwhile.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if !c.process(ctx, h, m, id) {
					return
				}
			}
		}(i, queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
		if err := c.r.Close(); err != nil {
			c.log.WithError(err).Warn("kafka reader close")
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case queues[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// process handles then commits m, retrying each step until it succeeds. It returns false
// only when ctx is cancelled first.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message, worker int) bool {
	log := c.log.WithFields(logrus.Fields{"worker": worker, "partition": m.Partition, "offset": m.Offset})
	return c.retry(ctx, log.WithField("step", "handle"), func() error { return h(ctx, m) }) &&
		c.retry(ctx, log.WithField("step", "commit"), func() error { return c.r.CommitMessages(ctx, m) })
}

func (c *Consumer) retry(ctx context.Context, log logrus.FieldLogger, fn func() error) bool {
	wait := c.retryMin
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "retry_in": wait.String()}).
			Error("message not committed")

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return false
		}
		wait = min(wait*2, c.retryMax)
	}
}
