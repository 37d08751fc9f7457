package models

import "fmt"

// BlockReason explains why a cancellation request cannot proceed.
type BlockReason string

const (
	// BlockOpenComplaint: the member has a live dispute for this group;
	// cancellation must not short-circuit a pending refund decision.
	BlockOpenComplaint BlockReason = "open_complaint_exists"

	// BlockFidelityLocked: the membership's fidelity commitment has not
	// elapsed and no complaint resolution has granted cancellation.
	BlockFidelityLocked BlockReason = "fidelity_locked"
)

// CancellationClass classifies an eligible cancellation for downstream
// settlement.
type CancellationClass string

const (
	// CancellationRegular: past the early window, no fidelity lock.
	CancellationRegular CancellationClass = "regular"

	// CancellationEarly: requested within the first days of membership;
	// carries a restriction period and a penalty flag.
	CancellationEarly CancellationClass = "early"

	// CancellationGranted: unlocked by a complaint resolved with
	// cancellation_granted, bypassing the fidelity lock without penalty.
	CancellationGranted CancellationClass = "granted"
)

// CancellationReason categorizes why the member wants out. Recorded on the
// membership when a request is accepted.
type CancellationReason string

const (
	ReasonNoLongerNeeded CancellationReason = "no_longer_needed"
	ReasonTooExpensive   CancellationReason = "too_expensive"
	ReasonBadExperience  CancellationReason = "bad_experience"
	ReasonOtherService   CancellationReason = "switching_service"
	ReasonOther          CancellationReason = "other"
)

// ParseCancellationReason validates a reason supplied by a member.
func ParseCancellationReason(s string) (CancellationReason, error) {
	switch CancellationReason(s) {
	case ReasonNoLongerNeeded, ReasonTooExpensive, ReasonBadExperience, ReasonOtherService, ReasonOther:
		return CancellationReason(s), nil
	}
	return "", fmt.Errorf("invalid cancellation reason: %q", s)
}

// CancellationRequest is the computed outcome of a cancellation eligibility
// check. It is consumed immediately by the caller and never persisted.
type CancellationRequest struct {
	MembershipID string

	// Eligible reports whether the cancellation may proceed now.
	Eligible bool

	// Reason is set when Eligible is false.
	Reason BlockReason

	// Class is set when Eligible is true.
	Class CancellationClass

	// RestrictionDays bars the member from joining new groups for this many
	// days after an early cancellation. 0 otherwise.
	RestrictionDays int

	// EarlyCancellationPenalty flags that the policy-configured early
	// cancellation penalty applies.
	EarlyCancellationPenalty bool

	// FidelityPenaltyCents is the policy-configured penalty carried for a
	// fidelity-locked membership. The engine never computes this amount.
	FidelityPenaltyCents int64

	// RefundEligibleDays is the number of whole days remaining in the
	// current billed period at evaluation time.
	RefundEligibleDays int
}
