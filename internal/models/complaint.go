package models

import (
	"fmt"
	"time"
)

// ComplaintStatus is the state of a complaint in its dispute lifecycle.
//
// The machine is:
//
//	pending → {admin_responded, user_responded} → intervention → {resolved, closed}
//
// where resolved and closed are terminal, admin_responded and user_responded
// may alternate as the parties exchange messages, and resolve is reachable
// from any non-terminal state.
type ComplaintStatus string

const (
	ComplaintPending        ComplaintStatus = "pending"
	ComplaintAdminResponded ComplaintStatus = "admin_responded"
	ComplaintUserResponded  ComplaintStatus = "user_responded"
	ComplaintIntervention   ComplaintStatus = "intervention"
	ComplaintResolved       ComplaintStatus = "resolved"
	ComplaintClosed         ComplaintStatus = "closed"
)

// ParseComplaintStatus validates a raw status string read from storage.
func ParseComplaintStatus(s string) (ComplaintStatus, error) {
	switch ComplaintStatus(s) {
	case ComplaintPending, ComplaintAdminResponded, ComplaintUserResponded,
		ComplaintIntervention, ComplaintResolved, ComplaintClosed:
		return ComplaintStatus(s), nil
	}
	return "", fmt.Errorf("invalid complaint status: %q", s)
}

// Terminal reports whether the complaint has reached a final state.
func (s ComplaintStatus) Terminal() bool {
	return s == ComplaintResolved || s == ComplaintClosed
}

// Open reports whether the complaint still blocks a new complaint for the
// same (user, group) pair and gates cancellation.
func (s ComplaintStatus) Open() bool {
	return !s.Terminal()
}

// CanTransitionTo reports whether moving to the target status is legal.
func (s ComplaintStatus) CanTransitionTo(target ComplaintStatus) bool {
	if s.Terminal() && s != ComplaintResolved {
		return false
	}
	switch target {
	case ComplaintAdminResponded:
		return s == ComplaintPending || s == ComplaintUserResponded
	case ComplaintUserResponded:
		return s == ComplaintAdminResponded
	case ComplaintIntervention:
		return s == ComplaintPending || s == ComplaintAdminResponded || s == ComplaintUserResponded
	case ComplaintResolved:
		return !s.Terminal()
	case ComplaintClosed:
		return s == ComplaintResolved
	}
	return false
}

// ProblemType categorizes what the member is complaining about.
// Chosen at creation, immutable afterwards.
type ProblemType string

const (
	ProblemNoAccess       ProblemType = "no_access"
	ProblemWrongCharge    ProblemType = "wrong_charge"
	ProblemAdminUnreach   ProblemType = "admin_unreachable"
	ProblemServiceChanged ProblemType = "service_changed"
	ProblemOther          ProblemType = "other"
)

// ParseProblemType validates a problem type supplied by a member.
func ParseProblemType(s string) (ProblemType, error) {
	switch ProblemType(s) {
	case ProblemNoAccess, ProblemWrongCharge, ProblemAdminUnreach, ProblemServiceChanged, ProblemOther:
		return ProblemType(s), nil
	}
	return "", fmt.Errorf("invalid problem type: %q", s)
}

// DesiredSolution is what the member wants out of the dispute.
type DesiredSolution string

const (
	SolutionFixProblem   DesiredSolution = "fix_problem"
	SolutionRefund       DesiredSolution = "refund"
	SolutionCancellation DesiredSolution = "cancellation"
)

// ParseDesiredSolution validates a desired solution supplied by a member.
func ParseDesiredSolution(s string) (DesiredSolution, error) {
	switch DesiredSolution(s) {
	case SolutionFixProblem, SolutionRefund, SolutionCancellation:
		return DesiredSolution(s), nil
	}
	return "", fmt.Errorf("invalid desired solution: %q", s)
}

// ResolutionType records how a complaint was settled. It is carried for
// downstream settlement and not interpreted by the lifecycle engine, except
// that cancellation_granted unlocks a fidelity-locked cancellation.
type ResolutionType string

const (
	ResolutionProblemFixed        ResolutionType = "problem_fixed"
	ResolutionRefundIssued        ResolutionType = "refund_issued"
	ResolutionCancellationGranted ResolutionType = "cancellation_granted"
)

// ParseResolutionType validates a resolution type.
func ParseResolutionType(s string) (ResolutionType, error) {
	switch ResolutionType(s) {
	case ResolutionProblemFixed, ResolutionRefundIssued, ResolutionCancellationGranted:
		return ResolutionType(s), nil
	}
	return "", fmt.Errorf("invalid resolution type: %q", s)
}

// Complaint represents a dispute raised by a member against a group's
// administrator.
type Complaint struct {
	// ID is the unique identifier for the complaint (UUID format).
	ID string

	// UserID is the member who opened the complaint.
	UserID string

	// GroupID is the group the dispute concerns.
	GroupID string

	// AdminID is the group administrator the complaint is against.
	AdminID string

	// ProblemType and DesiredSolution are chosen at creation, immutable.
	ProblemType     ProblemType
	DesiredSolution DesiredSolution

	// Description is the member's free-text account of the problem.
	Description string

	// Status is the dispute lifecycle state.
	Status ComplaintStatus

	// CreatedAt is set once at creation.
	CreatedAt time.Time

	// AdminResponseDeadline is when the administrator is expected to have
	// replied. Informational only: it drives reminders, not transitions.
	AdminResponseDeadline time.Time

	// InterventionDeadline is when the complaint escalates to mediation if
	// still unresolved. Enforced mechanically by the escalator.
	InterventionDeadline time.Time

	// ResolvedAt and ClosedAt are set once, always after CreatedAt.
	ResolvedAt time.Time
	ClosedAt   time.Time

	// ResolutionType and ResolutionDetails are set by Resolve.
	ResolutionType    ResolutionType
	ResolutionDetails string
}
