package models

import (
	"fmt"
	"time"
)

// MembershipStatus is the lifecycle state of a membership.
// Transitions only move forward: active → cancellation_pending → cancelled,
// or active → cancelled directly when no settlement step applies.
type MembershipStatus string

const (
	MembershipActive              MembershipStatus = "active"
	MembershipCancellationPending MembershipStatus = "cancellation_pending"
	MembershipCancelled           MembershipStatus = "cancelled"
)

// ParseMembershipStatus validates a raw status string read from storage or input.
func ParseMembershipStatus(s string) (MembershipStatus, error) {
	switch MembershipStatus(s) {
	case MembershipActive, MembershipCancellationPending, MembershipCancelled:
		return MembershipStatus(s), nil
	}
	return "", fmt.Errorf("invalid membership status: %q", s)
}

// CanTransitionTo reports whether moving to the target status is a legal
// forward move. Statuses never regress.
func (s MembershipStatus) CanTransitionTo(target MembershipStatus) bool {
	switch s {
	case MembershipActive:
		return target == MembershipCancellationPending || target == MembershipCancelled
	case MembershipCancellationPending:
		return target == MembershipCancelled
	}
	return false
}

// Terminal reports whether the membership has reached its final state.
func (s MembershipStatus) Terminal() bool {
	return s == MembershipCancelled
}

// Membership represents a user's participation slot in a group.
type Membership struct {
	// ID is the unique identifier for the membership (UUID format).
	ID string

	// UserID is the member holding this slot.
	UserID string

	// GroupID is the group the slot belongs to.
	GroupID string

	// JoinedAt is set once when the user is accepted into the group.
	JoinedAt time.Time

	// Status is the membership lifecycle state.
	Status MembershipStatus

	// FidelityMonths is the commitment length copied from the group at join
	// time. 0 means no commitment.
	FidelityMonths int

	// CancellationReason and CancellationDescription are recorded when a
	// cancellation request is accepted. Empty until then.
	CancellationReason      string
	CancellationDescription string

	// CancelledAt is set when the membership reaches cancelled.
	CancelledAt time.Time
}

// DaysMember returns the number of whole days between JoinedAt and now.
func (m *Membership) DaysMember(now time.Time) int {
	return int(now.Sub(m.JoinedAt) / (24 * time.Hour))
}
