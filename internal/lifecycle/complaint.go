// Package lifecycle implements the membership dispute and cancellation
// engine: the complaint state machine, the deadline-driven escalation entry
// point, and the cancellation eligibility evaluator.
//
// The package performs no I/O of its own. It reads and writes through
// storage.Store, takes the current time from an injected clock, and emits a
// notify.Event for every status transition regardless of whether a user
// action or the escalator triggered it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/subpool/subpool/internal/clock"
	"github.com/subpool/subpool/internal/metrics"
	"github.com/subpool/subpool/internal/models"
	"github.com/subpool/subpool/internal/notify"
	"github.com/subpool/subpool/internal/storage"
)

// systemActor marks escalator-driven transitions in events. Consumers see
// the same event shape for user-driven and scheduled transitions.
const systemActor = "system"

// ComplaintLifecycle owns the complaint state machine.
type ComplaintLifecycle struct {
	store    storage.Store
	clock    clock.Clock
	policy   Policy
	notifier notify.Dispatcher
	metrics  *metrics.Metrics
}

// NewComplaintLifecycle creates the complaint service.
func NewComplaintLifecycle(store storage.Store, clk clock.Clock, policy Policy, notifier notify.Dispatcher, m *metrics.Metrics) *ComplaintLifecycle {
	return &ComplaintLifecycle{store: store, clock: clk, policy: policy, notifier: notifier, metrics: m}
}

// CreateParams carries the member's input for a new complaint.
type CreateParams struct {
	UserID          string
	GroupID         string
	AdminID         string
	ProblemType     string
	DesiredSolution string
	Description     string
}

// Create opens a new complaint in pending status with deadlines computed
// from the creation time. Fails with ErrDuplicateOpenComplaint when the
// (user, group) pair already has an open complaint; the store makes that
// check atomic with respect to concurrent creates.
func (l *ComplaintLifecycle) Create(ctx context.Context, p CreateParams) (*models.Complaint, error) {
	if p.UserID == "" || p.GroupID == "" || p.AdminID == "" {
		return nil, fmt.Errorf("%w: user, group and admin IDs are required", ErrValidation)
	}
	problemType, err := models.ParseProblemType(p.ProblemType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	solution, err := models.ParseDesiredSolution(p.DesiredSolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := l.clock.Now()
	complaint := &models.Complaint{
		UserID:                p.UserID,
		GroupID:               p.GroupID,
		AdminID:               p.AdminID,
		ProblemType:           problemType,
		DesiredSolution:       solution,
		Description:           p.Description,
		Status:                models.ComplaintPending,
		CreatedAt:             now,
		AdminResponseDeadline: now.Add(l.policy.AdminResponseWindow),
		InterventionDeadline:  now.Add(l.policy.InterventionWindow),
	}

	if err := l.store.CreateComplaint(ctx, complaint); err != nil {
		if errors.Is(err, storage.ErrDuplicateOpenComplaint) {
			return nil, ErrDuplicateOpenComplaint
		}
		return nil, fmt.Errorf("failed to create complaint: %w", err)
	}

	slog.Info("complaint created",
		"complaint_id", complaint.ID,
		"user_id", p.UserID,
		"group_id", p.GroupID,
		"problem_type", problemType,
	)
	l.metrics.ComplaintTransitions.WithLabelValues(string(models.ComplaintPending)).Inc()
	l.emit(ctx, complaint, "", models.ComplaintPending, p.UserID)

	return complaint, nil
}

// MessageParams carries the input for a complaint thread entry.
type MessageParams struct {
	ComplaintID string
	AuthorID    string
	Role        string
	Body        string
	Attachments []string
	Visibility  string
}

// AddMessage appends a message to the complaint thread and applies the
// role-driven status side effect: an admin reply moves pending or
// user_responded to admin_responded, a user reply moves admin_responded to
// user_responded. Mediator messages never change status; mediator actions
// are the explicit Resolve and Close transitions.
func (l *ComplaintLifecycle) AddMessage(ctx context.Context, p MessageParams) (*models.ComplaintMessage, error) {
	if p.ComplaintID == "" || p.AuthorID == "" {
		return nil, fmt.Errorf("%w: complaint and author IDs are required", ErrValidation)
	}
	role, err := models.ParseMessageRole(p.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	visibility := models.VisibilityPublic
	if p.Visibility != "" {
		visibility, err = models.ParseMessageVisibility(p.Visibility)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	complaint, err := l.getComplaint(ctx, p.ComplaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status.Terminal() {
		return nil, ErrComplaintClosed
	}

	msg := &models.ComplaintMessage{
		ComplaintID: p.ComplaintID,
		AuthorID:    p.AuthorID,
		Role:        role,
		Body:        p.Body,
		Attachments: p.Attachments,
		Visibility:  visibility,
		CreatedAt:   l.clock.Now(),
	}
	if err := l.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	// The status side effect is computed from arrival order, not message
	// timestamps. A lost compare-and-set means another message or the
	// escalator got there first; re-read and recompute once.
	for attempt := 0; attempt < 2; attempt++ {
		target, ok := messageTransition(complaint.Status, role)
		if !ok {
			break
		}
		err := l.store.TransitionComplaint(ctx, complaint.ID, storage.ComplaintTransition{
			From: complaint.Status,
			To:   target,
		})
		if err == nil {
			l.metrics.ComplaintTransitions.WithLabelValues(string(target)).Inc()
			l.emit(ctx, complaint, complaint.Status, target, p.AuthorID)
			break
		}
		if !errors.Is(err, storage.ErrStaleStatus) {
			return nil, fmt.Errorf("failed to apply message transition: %w", err)
		}
		complaint, err = l.getComplaint(ctx, complaint.ID)
		if err != nil {
			return nil, err
		}
		if complaint.Status.Terminal() {
			break
		}
	}

	slog.Info("complaint message added",
		"complaint_id", p.ComplaintID,
		"author_id", p.AuthorID,
		"role", role,
	)
	return msg, nil
}

// messageTransition returns the status side effect of a message by an author
// with the given role, if any.
func messageTransition(status models.ComplaintStatus, role models.MessageRole) (models.ComplaintStatus, bool) {
	switch role {
	case models.RoleAdmin:
		if status == models.ComplaintPending || status == models.ComplaintUserResponded {
			return models.ComplaintAdminResponded, true
		}
	case models.RoleUser:
		if status == models.ComplaintAdminResponded {
			return models.ComplaintUserResponded, true
		}
	}
	return "", false
}

// AddEvidence appends a supporting artifact to an open complaint.
func (l *ComplaintLifecycle) AddEvidence(ctx context.Context, complaintID, uploaderID, description, fileRef string) (*models.ComplaintEvidence, error) {
	if complaintID == "" || uploaderID == "" || fileRef == "" {
		return nil, fmt.Errorf("%w: complaint ID, uploader ID and file ref are required", ErrValidation)
	}

	complaint, err := l.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status.Terminal() {
		return nil, ErrComplaintClosed
	}

	ev := &models.ComplaintEvidence{
		ComplaintID: complaintID,
		UploaderID:  uploaderID,
		Description: description,
		FileRef:     fileRef,
		CreatedAt:   l.clock.Now(),
	}
	if err := l.store.AppendEvidence(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to append evidence: %w", err)
	}

	slog.Info("complaint evidence added", "complaint_id", complaintID, "uploader_id", uploaderID)
	return ev, nil
}

// EscalateToIntervention moves an unresolved complaint to intervention once
// its deadline has lapsed. Idempotent: escalating a complaint already in
// intervention is a no-op, so an at-least-once scan is safe. Fails with
// ErrInvalidTransition from a terminal status or before the deadline.
func (l *ComplaintLifecycle) EscalateToIntervention(ctx context.Context, complaintID string) error {
	if complaintID == "" {
		return fmt.Errorf("%w: complaint ID is required", ErrValidation)
	}

	complaint, err := l.getComplaint(ctx, complaintID)
	if err != nil {
		return err
	}
	if complaint.Status == models.ComplaintIntervention {
		return nil
	}
	if complaint.Status.Terminal() {
		return fmt.Errorf("%w: complaint %s is %s", ErrInvalidTransition, complaintID, complaint.Status)
	}
	if l.clock.Now().Before(complaint.InterventionDeadline) {
		return fmt.Errorf("%w: intervention deadline not reached", ErrInvalidTransition)
	}

	err = l.store.TransitionComplaint(ctx, complaintID, storage.ComplaintTransition{
		From: complaint.Status,
		To:   models.ComplaintIntervention,
	})
	if errors.Is(err, storage.ErrStaleStatus) {
		// Lost a race with a message or resolution; settle against the
		// current state.
		current, gerr := l.getComplaint(ctx, complaintID)
		if gerr != nil {
			return gerr
		}
		if current.Status == models.ComplaintIntervention {
			return nil
		}
		if current.Status.Terminal() {
			return fmt.Errorf("%w: complaint %s is %s", ErrInvalidTransition, complaintID, current.Status)
		}
		err = l.store.TransitionComplaint(ctx, complaintID, storage.ComplaintTransition{
			From: current.Status,
			To:   models.ComplaintIntervention,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to escalate complaint: %w", err)
	}

	slog.Info("complaint escalated to intervention", "complaint_id", complaintID)
	l.metrics.ComplaintTransitions.WithLabelValues(string(models.ComplaintIntervention)).Inc()
	l.emit(ctx, complaint, complaint.Status, models.ComplaintIntervention, systemActor)
	return nil
}

// Resolve settles a complaint from any non-terminal status. The resolution
// type is carried for downstream settlement, not interpreted here, except
// that cancellation_granted later unlocks a fidelity-locked cancellation.
func (l *ComplaintLifecycle) Resolve(ctx context.Context, complaintID, actorID, resolutionType, details string) (*models.Complaint, error) {
	if complaintID == "" || actorID == "" {
		return nil, fmt.Errorf("%w: complaint and actor IDs are required", ErrValidation)
	}
	resolution, err := models.ParseResolutionType(resolutionType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	complaint, err := l.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	// Non-terminal statuses can shift under us (messages, escalation), so
	// retry the compare-and-set against the refreshed status. A terminal
	// status ends the attempt.
	for {
		if complaint.Status.Terminal() {
			return nil, fmt.Errorf("%w: complaint %s is %s", ErrInvalidTransition, complaintID, complaint.Status)
		}
		err := l.store.TransitionComplaint(ctx, complaintID, storage.ComplaintTransition{
			From:              complaint.Status,
			To:                models.ComplaintResolved,
			ResolvedAt:        l.clock.Now(),
			ResolutionType:    resolution,
			ResolutionDetails: details,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrStaleStatus) {
			return nil, fmt.Errorf("failed to resolve complaint: %w", err)
		}
		complaint, err = l.getComplaint(ctx, complaintID)
		if err != nil {
			return nil, err
		}
	}

	resolved, err := l.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	slog.Info("complaint resolved",
		"complaint_id", complaintID,
		"resolution_type", resolution,
		"actor_id", actorID,
	)
	l.metrics.ComplaintTransitions.WithLabelValues(string(models.ComplaintResolved)).Inc()
	l.emit(ctx, resolved, complaint.Status, models.ComplaintResolved, actorID)
	return resolved, nil
}

// Close archives a resolved complaint. Fails with ErrInvalidTransition from
// any other status.
func (l *ComplaintLifecycle) Close(ctx context.Context, complaintID, actorID string) error {
	if complaintID == "" || actorID == "" {
		return fmt.Errorf("%w: complaint and actor IDs are required", ErrValidation)
	}

	complaint, err := l.getComplaint(ctx, complaintID)
	if err != nil {
		return err
	}
	if complaint.Status != models.ComplaintResolved {
		return fmt.Errorf("%w: complaint %s is %s, not resolved", ErrInvalidTransition, complaintID, complaint.Status)
	}

	err = l.store.TransitionComplaint(ctx, complaintID, storage.ComplaintTransition{
		From:     models.ComplaintResolved,
		To:       models.ComplaintClosed,
		ClosedAt: l.clock.Now(),
	})
	if errors.Is(err, storage.ErrStaleStatus) {
		return fmt.Errorf("%w: complaint %s is no longer resolved", ErrInvalidTransition, complaintID)
	}
	if err != nil {
		return fmt.Errorf("failed to close complaint: %w", err)
	}

	slog.Info("complaint closed", "complaint_id", complaintID, "actor_id", actorID)
	l.metrics.ComplaintTransitions.WithLabelValues(string(models.ComplaintClosed)).Inc()
	l.emit(ctx, complaint, models.ComplaintResolved, models.ComplaintClosed, actorID)
	return nil
}

// CanOpenComplaint reports whether the (user, group) pair is free of open
// complaints. Pure query, no side effects.
func (l *ComplaintLifecycle) CanOpenComplaint(ctx context.Context, userID, groupID string) (bool, error) {
	open, err := l.HasOpenComplaint(ctx, userID, groupID)
	return !open, err
}

// HasOpenComplaint reports whether the (user, group) pair has a complaint in
// a non-terminal status.
func (l *ComplaintLifecycle) HasOpenComplaint(ctx context.Context, userID, groupID string) (bool, error) {
	complaint, err := l.store.GetOpenComplaint(ctx, userID, groupID)
	if err != nil {
		return false, fmt.Errorf("failed to check open complaint: %w", err)
	}
	return complaint != nil, nil
}

// HasCancellationGrant reports whether a complaint for the pair was resolved
// with cancellation granted.
func (l *ComplaintLifecycle) HasCancellationGrant(ctx context.Context, userID, groupID string) (bool, error) {
	return l.store.HasCancellationGrant(ctx, userID, groupID)
}

// Get retrieves a complaint by ID.
func (l *ComplaintLifecycle) Get(ctx context.Context, complaintID string) (*models.Complaint, error) {
	return l.getComplaint(ctx, complaintID)
}

// Messages returns the complaint thread in arrival order.
func (l *ComplaintLifecycle) Messages(ctx context.Context, complaintID string) ([]*models.ComplaintMessage, error) {
	return l.store.ListMessages(ctx, complaintID)
}

// Evidence returns the complaint's evidence records.
func (l *ComplaintLifecycle) Evidence(ctx context.Context, complaintID string) ([]*models.ComplaintEvidence, error) {
	return l.store.ListEvidence(ctx, complaintID)
}

func (l *ComplaintLifecycle) getComplaint(ctx context.Context, complaintID string) (*models.Complaint, error) {
	complaint, err := l.store.GetComplaint(ctx, complaintID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrComplaintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}
	return complaint, nil
}

func (l *ComplaintLifecycle) emit(ctx context.Context, c *models.Complaint, from, to models.ComplaintStatus, actorID string) {
	l.notifier.Dispatch(ctx, notify.Event{
		EntityType: notify.EntityComplaint,
		EntityID:   c.ID,
		FromStatus: string(from),
		ToStatus:   string(to),
		ActorID:    actorID,
		Recipients: []string{c.UserID, c.AdminID},
		Timestamp:  l.clock.Now(),
	})
}
