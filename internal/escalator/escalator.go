// Package escalator runs the recurring deadline scan that moves overdue
// complaints into intervention.
package escalator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/subpool/subpool/internal/clock"
	"github.com/subpool/subpool/internal/lifecycle"
	"github.com/subpool/subpool/internal/metrics"
	"github.com/subpool/subpool/internal/models"
	"github.com/subpool/subpool/internal/storage"
)

// DueLister is the slice of the store the escalator reads.
type DueLister interface {
	ListComplaintsDueForIntervention(ctx context.Context, now time.Time) ([]*models.Complaint, error)
}

// Escalator periodically scans for complaints past their intervention
// deadline and escalates them. It emits the same transition events as
// user-driven calls, so downstream consumers cannot tell the trigger source
// apart.
//
// Escalation is idempotent and each complaint's transition is atomic, so an
// at-least-once scan (duplicate ticks, retried ticks) is safe.
type Escalator struct {
	store     DueLister
	lifecycle *lifecycle.ComplaintLifecycle
	clock     clock.Clock
	interval  time.Duration
	metrics   *metrics.Metrics
}

// New creates an escalator scanning at the given interval.
func New(store DueLister, lc *lifecycle.ComplaintLifecycle, clk clock.Clock, interval time.Duration, m *metrics.Metrics) *Escalator {
	return &Escalator{store: store, lifecycle: lc, clock: clk, interval: interval, metrics: m}
}

// Run scans once immediately, then on every interval tick until ctx is
// done. A failed scan is logged and retried on the next tick; no partial
// state is left behind because each escalation is a single atomic
// transition.
func (e *Escalator) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.scan(ctx)
		}
	}
}

// ScanOnce runs a single scan tick. Exposed so tests and operational tools
// can drive the escalator without the timer loop.
func (e *Escalator) ScanOnce(ctx context.Context) {
	e.scan(ctx)
}

func (e *Escalator) scan(ctx context.Context) {
	e.metrics.EscalationScans.Inc()

	now := e.clock.Now()
	due, err := e.store.ListComplaintsDueForIntervention(ctx, now)
	if err != nil {
		e.metrics.EscalationScanErrors.Inc()
		slog.Error("escalation scan failed, will retry next tick", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	escalated := 0
	for _, complaint := range due {
		err := e.lifecycle.EscalateToIntervention(ctx, complaint.ID)
		switch {
		case err == nil:
			escalated++
			e.metrics.Escalations.Inc()
		case errors.Is(err, lifecycle.ErrInvalidTransition),
			errors.Is(err, lifecycle.ErrComplaintNotFound),
			errors.Is(err, storage.ErrStaleStatus):
			// The complaint moved on between the list and the transition.
			slog.Debug("skipping escalation, complaint state changed",
				"complaint_id", complaint.ID, "error", err)
		default:
			e.metrics.EscalationScanErrors.Inc()
			slog.Error("failed to escalate complaint, will retry next tick",
				"complaint_id", complaint.ID, "error", err)
		}
	}

	slog.Info("escalation scan completed",
		"due", len(due),
		"escalated", escalated,
	)
}
