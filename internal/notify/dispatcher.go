// Package notify turns recorded orders into chat messages, out of band from order capture.
package notify

import (
	"context"
	"encoding/json"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/kafka"
	"github.com/ariefcatur/go-weekly-orders/internal/metrics"
)

type Sender interface {
	Send(ctx context.Context, text string) error
}

// Deduper remembers processed event ids. *redisx.Store implements it.
type Deduper interface {
	FirstSeen(ctx context.Context, service, eventID string) (bool, error)
	Forget(ctx context.Context, service, eventID string) error
}

type Dispatcher struct {
	Sender  Sender
	Dedup   Deduper
	Service string
	Log     logrus.FieldLogger
}

// HandleOrderPlaced is the consumer handler. Malformed and foreign messages are committed and
// skipped; a failed send returns an error so the offset stays uncommitted.
func (d *Dispatcher) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	log := d.Log.WithFields(logrus.Fields{"partition": m.Partition, "offset": m.Offset})

	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.WithError(err).Warn("skipping undecodable event")
		metrics.Notification("malformed")
		return nil
	}
	if env.EventType != EventOrderPlaced {
		return nil
	}
	log = log.WithFields(logrus.Fields{"event_id": env.EventID, "order_id": env.CorrelationID, "trace_id": env.TraceID})

	p, err := kafka.UnwrapPayload[OrderPlacedPayload](env.Payload)
	if err != nil {
		log.WithError(err).Warn("skipping event with bad payload")
		metrics.Notification("malformed")
		return nil
	}

	first, err := d.Dedup.FirstSeen(ctx, d.Service, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		metrics.Notification("duplicate")
		return nil
	}

	if err := d.Sender.Send(ctx, FormatOrder(p)); err != nil {
		if errors.Is(err, ErrChatDisabled) {
			log.Info("chat channel not configured; order not forwarded")
			metrics.Notification("skipped")
			return nil
		}
		if ferr := d.Dedup.Forget(ctx, d.Service, env.EventID); ferr != nil {
			log.WithError(ferr).Warn("could not clear dedup mark")
		}
		metrics.Notification("failed")
		return err
	}

	metrics.Notification("sent")
	log.Info("order forwarded to chat")
	return nil
}
