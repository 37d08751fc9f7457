package notify

import (
	"context"
	"log/slog"
)

// ChannelDispatcher queues events onto a buffered inbox so a slow delivery
// backend never blocks a state transition. Events are dropped with a warning
// if the inbox is full; transitions are authoritative in the store, so a lost
// notification is a delivery gap, not a state gap.
type ChannelDispatcher struct {
	inbox chan Event
}

// NewChannelDispatcher creates a dispatcher with the given inbox capacity.
func NewChannelDispatcher(capacity int) *ChannelDispatcher {
	return &ChannelDispatcher{inbox: make(chan Event, capacity)}
}

func (d *ChannelDispatcher) Dispatch(_ context.Context, event Event) {
	select {
	case d.inbox <- event:
	default:
		slog.Warn("notification inbox full, dropping event",
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
			"to", event.ToStatus,
		)
	}
}

// Inbox exposes the event stream for a Worker.
func (d *ChannelDispatcher) Inbox() <-chan Event { return d.inbox }

// Sink delivers a single event to its recipients.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Worker consumes events from an inbox and hands them to a Sink. It keeps
// background delivery testable without wiring a queue implementation.
type Worker struct {
	sink  Sink
	inbox <-chan Event
}

func NewWorker(sink Sink, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

// Run blocks until ctx is done. Delivery failures are logged and skipped;
// the store remains the source of truth for entity state.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Deliver(ctx, event); err != nil {
				slog.Error("notification delivery failed",
					"entity_type", event.EntityType,
					"entity_id", event.EntityID,
					"error", err,
				)
			}
		}
	}
}

// SlogSink is a Sink that records deliveries in the structured log.
type SlogSink struct{}

func (SlogSink) Deliver(_ context.Context, event Event) error {
	slog.Info("notification delivered",
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"from", event.FromStatus,
		"to", event.ToStatus,
		"recipients", len(event.Recipients),
	)
	return nil
}
