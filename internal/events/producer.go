// Package events is the fire-and-forget analytics pipeline. Producers push
// JSON payloads into an in-memory buffer; a background goroutine drains the
// buffer into a Writer. Write failures are logged and dropped so analytics can
// never block or fail the submission and polling path.
package events

import (
	"context"
	"encoding/json"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e cloudevents.Event) error
	Close(ctx context.Context) error
}

// EventProducer is a wrapper around a Writer with a buffer, so the caller is
// never blocked while the writer sends an event.
type EventProducer struct {
	buffer           *buffer
	startConsumingCh chan any
	doneCh           chan any
	writer           Writer
	topic            string
}

func NewEventProducer(w Writer, opts ...ProducerOptions) *EventProducer {
	ep := &EventProducer{
		buffer:           newBuffer(),
		startConsumingCh: make(chan any, 1),
		doneCh:           make(chan any),
		writer:           w,
		topic:            defaultTopic,
	}

	for _, o := range opts {
		o(ep)
	}

	go ep.run()
	return ep
}

// Emit queues an analytics event. The payload is marshalled immediately; a
// marshalling error is logged and the event dropped, matching the
// best-effort contract.
func (ep *EventProducer) Emit(kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.S().Named("events").Errorf("failed to marshal %s event: %s", kind, err)
		return
	}

	if err := ep.buffer.PushBack(&message{Kind: kind, Data: data}); err != nil {
		zap.S().Named("events").Errorf("failed to queue %s event: %s", kind, err)
		return
	}

	// wake the consumer; one pending wake-up is enough, a stale one only
	// costs the consumer an empty pop
	select {
	case ep.startConsumingCh <- struct{}{}:
	default:
	}
}

func (ep *EventProducer) Close() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(closeCtx)
	g.Go(func() error {
		ep.doneCh <- struct{}{}
		return ep.writer.Close(ctx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Named("events").Errorf("event producer closed with error: %s", err)
		return err
	}

	return nil
}

func (ep *EventProducer) run() {
	for {
		select {
		case <-ep.doneCh:
			return
		default:
		}

		if ep.buffer.Size() == 0 {
			select {
			case <-ep.startConsumingCh:
			case <-ep.doneCh:
			}
		}

		msg := ep.buffer.Pop()
		if msg == nil {
			continue
		}

		e := cloudevents.NewEvent()
		e.SetID(uuid.NewString())
		e.SetSource("citecheck.client")
		e.SetType(msg.Kind)
		_ = e.SetData(*cloudevents.StringOfApplicationJSON(), msg.Data)

		if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
			zap.S().Named("events").Errorw("failed to send event", "error", err, "kind", msg.Kind)
		}
	}
}
