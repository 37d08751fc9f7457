package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/subpool/subpool/internal/clock"
	"github.com/subpool/subpool/internal/metrics"
	"github.com/subpool/subpool/internal/models"
	"github.com/subpool/subpool/internal/notify"
	"github.com/subpool/subpool/internal/storage"
)

// ComplaintReader is the narrow view of complaint state the cancellation
// evaluator needs. Defined here rather than importing the whole complaint
// service so the gating rule stays unit-testable in isolation.
type ComplaintReader interface {
	// HasOpenComplaint reports whether the pair has a live dispute.
	HasOpenComplaint(ctx context.Context, userID, groupID string) (bool, error)

	// HasCancellationGrant reports whether a resolved complaint granted
	// cancellation for the pair.
	HasCancellationGrant(ctx context.Context, userID, groupID string) (bool, error)
}

// CancellationPolicyEvaluator computes whether and how a membership may be
// cancelled. Evaluate never mutates state; RequestCancellation applies the
// single membership transition the engine owns.
type CancellationPolicyEvaluator struct {
	store      storage.Store
	complaints ComplaintReader
	clock      clock.Clock
	policy     Policy
	notifier   notify.Dispatcher
	metrics    *metrics.Metrics
}

// NewCancellationPolicyEvaluator creates the evaluator.
func NewCancellationPolicyEvaluator(store storage.Store, complaints ComplaintReader, clk clock.Clock, policy Policy, notifier notify.Dispatcher, m *metrics.Metrics) *CancellationPolicyEvaluator {
	return &CancellationPolicyEvaluator{
		store:      store,
		complaints: complaints,
		clock:      clk,
		policy:     policy,
		notifier:   notifier,
		metrics:    m,
	}
}

// Evaluate computes cancellation eligibility for a membership without
// mutating anything. It is a pure function of persisted state and the
// current time.
//
// The checks apply in order: a live dispute blocks outright, then membership
// age classifies an early cancellation, then an unexpired fidelity
// commitment blocks the voluntary path unless a complaint resolution granted
// cancellation.
func (e *CancellationPolicyEvaluator) Evaluate(ctx context.Context, membershipID string) (*models.CancellationRequest, error) {
	if membershipID == "" {
		return nil, fmt.Errorf("%w: membership ID is required", ErrValidation)
	}

	m, err := e.getMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MembershipActive {
		return nil, ErrAlreadyCancelled
	}

	req := &models.CancellationRequest{MembershipID: membershipID}

	open, err := e.complaints.HasOpenComplaint(ctx, m.UserID, m.GroupID)
	if err != nil {
		return nil, err
	}
	if open {
		req.Reason = models.BlockOpenComplaint
		return req, nil
	}

	now := e.clock.Now()
	daysMember := m.DaysMember(now)

	if daysMember < e.policy.EarlyCancellationThresholdDays {
		req.Eligible = true
		req.Class = models.CancellationEarly
		req.RestrictionDays = e.policy.EarlyCancellationRestrictionDays
		req.EarlyCancellationPenalty = true
		req.RefundEligibleDays = refundEligibleDays(m.JoinedAt, now)
		return req, nil
	}

	if m.FidelityMonths > 0 && daysMember < m.FidelityMonths*30 {
		granted, err := e.complaints.HasCancellationGrant(ctx, m.UserID, m.GroupID)
		if err != nil {
			return nil, err
		}
		if !granted {
			req.Reason = models.BlockFidelityLocked
			req.FidelityPenaltyCents = e.policy.FidelityPenaltyCents
			return req, nil
		}
		req.Eligible = true
		req.Class = models.CancellationGranted
		req.RefundEligibleDays = refundEligibleDays(m.JoinedAt, now)
		return req, nil
	}

	req.Eligible = true
	req.Class = models.CancellationRegular
	req.RefundEligibleDays = refundEligibleDays(m.JoinedAt, now)
	return req, nil
}

// RequestCancellation evaluates the membership and, if eligible, moves it
// from active to cancellation_pending. A blocked request fails with the
// specific blocking reason and performs no mutation. The later settlement
// step calls CompleteCancellation once penalty and refund are settled.
func (e *CancellationPolicyEvaluator) RequestCancellation(ctx context.Context, membershipID, reason, description string) (*models.Membership, error) {
	cancellationReason, err := models.ParseCancellationReason(reason)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	req, err := e.Evaluate(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if !req.Eligible {
		switch req.Reason {
		case models.BlockOpenComplaint:
			e.metrics.CancellationsBlocked.WithLabelValues(string(models.BlockOpenComplaint)).Inc()
			return nil, ErrOpenComplaintExists
		case models.BlockFidelityLocked:
			e.metrics.CancellationsBlocked.WithLabelValues(string(models.BlockFidelityLocked)).Inc()
			return nil, ErrFidelityLocked
		default:
			return nil, fmt.Errorf("cancellation blocked: %s", req.Reason)
		}
	}

	err = e.store.TransitionMembership(ctx, membershipID, storage.MembershipTransition{
		From:                    models.MembershipActive,
		To:                      models.MembershipCancellationPending,
		CancellationReason:      string(cancellationReason),
		CancellationDescription: description,
	})
	if errors.Is(err, storage.ErrStaleStatus) {
		// A concurrent request won; the membership is no longer active.
		return nil, ErrAlreadyCancelled
	}
	if err != nil {
		return nil, fmt.Errorf("failed to request cancellation: %w", err)
	}

	m, err := e.getMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}

	slog.Info("cancellation requested",
		"membership_id", membershipID,
		"user_id", m.UserID,
		"group_id", m.GroupID,
		"class", req.Class,
	)
	e.metrics.MembershipTransitions.WithLabelValues(string(models.MembershipCancellationPending)).Inc()
	e.emit(ctx, m, models.MembershipActive, models.MembershipCancellationPending, m.UserID)
	return m, nil
}

// CompleteCancellation is the settlement hook: it moves a membership from
// cancellation_pending to cancelled once any penalty or refund is settled,
// soft-deleting the slot.
func (e *CancellationPolicyEvaluator) CompleteCancellation(ctx context.Context, membershipID string) (*models.Membership, error) {
	if membershipID == "" {
		return nil, fmt.Errorf("%w: membership ID is required", ErrValidation)
	}

	err := e.store.TransitionMembership(ctx, membershipID, storage.MembershipTransition{
		From:        models.MembershipCancellationPending,
		To:          models.MembershipCancelled,
		CancelledAt: e.clock.Now(),
	})
	if errors.Is(err, storage.ErrStaleStatus) {
		return nil, fmt.Errorf("%w: membership %s has no pending cancellation", ErrInvalidTransition, membershipID)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete cancellation: %w", err)
	}

	m, err := e.getMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}

	slog.Info("cancellation completed", "membership_id", membershipID, "user_id", m.UserID)
	e.metrics.MembershipTransitions.WithLabelValues(string(models.MembershipCancelled)).Inc()
	e.emit(ctx, m, models.MembershipCancellationPending, models.MembershipCancelled, systemActor)
	return m, nil
}

// refundEligibleDays returns the number of whole days remaining in the
// current monthly billing period, anchored at the join date. A plain
// calendar computation; penalty amounts are policy configuration and never
// derived here.
func refundEligibleDays(joinedAt, now time.Time) int {
	periodEnd := joinedAt
	for !periodEnd.After(now) {
		periodEnd = periodEnd.AddDate(0, 1, 0)
	}
	return int(periodEnd.Sub(now) / (24 * time.Hour))
}

func (e *CancellationPolicyEvaluator) getMembership(ctx context.Context, membershipID string) (*models.Membership, error) {
	m, err := e.store.GetMembership(ctx, membershipID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

func (e *CancellationPolicyEvaluator) emit(ctx context.Context, m *models.Membership, from, to models.MembershipStatus, actorID string) {
	recipients := []string{m.UserID}
	if group, err := e.store.GetGroup(ctx, m.GroupID); err == nil {
		recipients = append(recipients, group.AdminID)
	}
	e.notifier.Dispatch(ctx, notify.Event{
		EntityType: notify.EntityMembership,
		EntityID:   m.ID,
		FromStatus: string(from),
		ToStatus:   string(to),
		ActorID:    actorID,
		Recipients: recipients,
		Timestamp:  e.clock.Now(),
	})
}
