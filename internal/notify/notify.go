// Package notify carries status-transition events out of the lifecycle
// engine. Delivery and formatting belong to downstream consumers; the engine
// only guarantees that every transition produces exactly one event.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// EntityType identifies which aggregate an event is about.
type EntityType string

const (
	EntityComplaint  EntityType = "complaint"
	EntityMembership EntityType = "membership"
)

// Event describes a single status transition.
type Event struct {
	EntityType EntityType
	EntityID   string

	// FromStatus and ToStatus are the raw status values. Creation events use
	// an empty FromStatus.
	FromStatus string
	ToStatus   string

	// ActorID is the user who triggered the transition, or "system" for
	// escalator-driven transitions so consumers cannot distinguish the
	// trigger source by shape.
	ActorID string

	// Recipients are the user IDs to inform.
	Recipients []string

	Timestamp time.Time
}

// Dispatcher receives every transition event. Implementations must be safe
// for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// LogDispatcher writes events to the structured log. It is the default
// dispatcher for development and tests.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, event Event) {
	slog.Info("notification event",
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"from", event.FromStatus,
		"to", event.ToStatus,
		"actor_id", event.ActorID,
		"recipients", len(event.Recipients),
	)
}
