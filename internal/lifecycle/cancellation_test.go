package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/subpool/subpool/internal/models"
)

func (e *env) createMembership(t *testing.T, userID, groupID string, joinedAt time.Time, fidelityMonths int) *models.Membership {
	t.Helper()
	m := &models.Membership{
		UserID:         userID,
		GroupID:        groupID,
		JoinedAt:       joinedAt,
		Status:         models.MembershipActive,
		FidelityMonths: fidelityMonths,
	}
	if err := e.store.CreateMembership(context.Background(), m); err != nil {
		t.Fatalf("CreateMembership failed: %v", err)
	}
	return m
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	// Scenario: joined at T0, cancellation requested at T0+3d.
	t.Run("early cancellation flags restriction and penalty", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 0)
		e.clock.Set(t0.Add(3 * 24 * time.Hour))

		req, err := e.cancellations.Evaluate(ctx, m.ID)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if !req.Eligible {
			t.Error("Eligible = false, want true")
		}
		if req.Class != models.CancellationEarly {
			t.Errorf("Class = %s, want early", req.Class)
		}
		if req.RestrictionDays != 30 {
			t.Errorf("RestrictionDays = %d, want 30", req.RestrictionDays)
		}
		if !req.EarlyCancellationPenalty {
			t.Error("EarlyCancellationPenalty = false, want true")
		}
	})

	// Scenario: fidelity_months=6, joined at T0, requested at T0+60d.
	t.Run("fidelity lock blocks voluntary cancellation", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 6)
		e.clock.Set(t0.Add(60 * 24 * time.Hour))

		req, err := e.cancellations.Evaluate(ctx, m.ID)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if req.Eligible {
			t.Error("Eligible = true, want false")
		}
		if req.Reason != models.BlockFidelityLocked {
			t.Errorf("Reason = %s, want fidelity_locked", req.Reason)
		}
	})

	t.Run("cancellation grant unlocks a fidelity lock", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 6)
		c := e.createComplaint(t, "user-1", "group-1")
		if _, err := e.complaints.Resolve(ctx, c.ID, "mediator-1", "cancellation_granted", ""); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		e.clock.Set(t0.Add(60 * 24 * time.Hour))

		req, err := e.cancellations.Evaluate(ctx, m.ID)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if !req.Eligible {
			t.Error("Eligible = false, want true after grant")
		}
		if req.Class != models.CancellationGranted {
			t.Errorf("Class = %s, want granted", req.Class)
		}
	})

	t.Run("fully eligible past fidelity window", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 6)
		e.clock.Set(t0.Add(200 * 24 * time.Hour))

		req, err := e.cancellations.Evaluate(ctx, m.ID)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if !req.Eligible || req.Class != models.CancellationRegular {
			t.Errorf("got eligible=%v class=%s, want regular eligibility", req.Eligible, req.Class)
		}
		if req.EarlyCancellationPenalty || req.RestrictionDays != 0 {
			t.Errorf("regular cancellation carries penalty=%v restriction=%d",
				req.EarlyCancellationPenalty, req.RestrictionDays)
		}
	})

	t.Run("open complaint blocks regardless of age", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 0)
		e.createComplaint(t, "user-1", "group-1")
		e.clock.Set(t0.Add(40 * 24 * time.Hour))

		req, err := e.cancellations.Evaluate(ctx, m.ID)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if req.Eligible {
			t.Error("Eligible = true, want false")
		}
		if req.Reason != models.BlockOpenComplaint {
			t.Errorf("Reason = %s, want open_complaint_exists", req.Reason)
		}
	})

	t.Run("pure: repeated calls agree", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 6)
		e.clock.Set(t0.Add(10 * 24 * time.Hour))

		first, err := e.cancellations.Evaluate(ctx, m.ID)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		second, err := e.cancellations.Evaluate(ctx, m.ID)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Evaluate not stable: %+v vs %+v", first, second)
		}
	})

	t.Run("unknown membership", func(t *testing.T) {
		e := newEnv(t)
		if _, err := e.cancellations.Evaluate(ctx, "missing-id"); !errors.Is(err, ErrMembershipNotFound) {
			t.Errorf("error = %v, want ErrMembershipNotFound", err)
		}
	})
}

func TestRefundEligibleDays(t *testing.T) {
	joined := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"start of first period", joined.Add(time.Hour), 30},
		{"mid period", time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC), 10},
		{"day before renewal", time.Date(2025, 2, 9, 9, 0, 0, 0, time.UTC), 1},
		{"second period", time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC), 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := refundEligibleDays(joined, tt.now); got != tt.want {
				t.Errorf("refundEligibleDays = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequestCancellation(t *testing.T) {
	ctx := context.Background()

	// Scenario: member of 40 days with an open complaint for the same
	// group: request fails and the membership is untouched.
	t.Run("blocked by open complaint without mutation", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 0)
		e.createComplaint(t, "user-1", "group-1")
		e.clock.Set(t0.Add(40 * 24 * time.Hour))

		_, err := e.cancellations.RequestCancellation(ctx, m.ID, "too_expensive", "")
		if !errors.Is(err, ErrOpenComplaintExists) {
			t.Errorf("error = %v, want ErrOpenComplaintExists", err)
		}

		got, err := e.store.GetMembership(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if got.Status != models.MembershipActive {
			t.Errorf("status = %s, want active (unchanged)", got.Status)
		}
	})

	t.Run("blocked by fidelity lock", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 6)
		e.clock.Set(t0.Add(60 * 24 * time.Hour))

		if _, err := e.cancellations.RequestCancellation(ctx, m.ID, "too_expensive", ""); !errors.Is(err, ErrFidelityLocked) {
			t.Errorf("error = %v, want ErrFidelityLocked", err)
		}
	})

	t.Run("eligible request moves to cancellation_pending", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 0)
		e.clock.Set(t0.Add(40 * 24 * time.Hour))

		updated, err := e.cancellations.RequestCancellation(ctx, m.ID, "no_longer_needed", "moving abroad")
		if err != nil {
			t.Fatalf("RequestCancellation failed: %v", err)
		}
		if updated.Status != models.MembershipCancellationPending {
			t.Errorf("status = %s, want cancellation_pending", updated.Status)
		}
		if updated.CancellationDescription != "moving abroad" {
			t.Errorf("description = %q", updated.CancellationDescription)
		}

		// A second request finds the membership no longer active.
		if _, err := e.cancellations.RequestCancellation(ctx, m.ID, "other", ""); !errors.Is(err, ErrAlreadyCancelled) {
			t.Errorf("error = %v, want ErrAlreadyCancelled", err)
		}
	})

	t.Run("invalid reason is rejected before evaluation", func(t *testing.T) {
		e := newEnv(t)
		m := e.createMembership(t, "user-1", "group-1", t0, 0)

		if _, err := e.cancellations.RequestCancellation(ctx, m.ID, "bored", ""); !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}

func TestCompleteCancellation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMembership(t, "user-1", "group-1", t0, 0)
	e.clock.Set(t0.Add(40 * 24 * time.Hour))

	t.Run("requires a pending cancellation", func(t *testing.T) {
		if _, err := e.cancellations.CompleteCancellation(ctx, m.ID); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("settles a pending cancellation", func(t *testing.T) {
		if _, err := e.cancellations.RequestCancellation(ctx, m.ID, "too_expensive", ""); err != nil {
			t.Fatalf("RequestCancellation failed: %v", err)
		}

		done, err := e.cancellations.CompleteCancellation(ctx, m.ID)
		if err != nil {
			t.Fatalf("CompleteCancellation failed: %v", err)
		}
		if done.Status != models.MembershipCancelled {
			t.Errorf("status = %s, want cancelled", done.Status)
		}
		if done.CancelledAt.IsZero() {
			t.Error("CancelledAt not set")
		}
	})

	t.Run("unknown membership", func(t *testing.T) {
		if _, err := e.cancellations.CompleteCancellation(ctx, "missing-id"); !errors.Is(err, ErrMembershipNotFound) {
			t.Errorf("error = %v, want ErrMembershipNotFound", err)
		}
	})
}
