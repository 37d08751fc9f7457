package lifecycle

import "errors"

var (
	// ErrValidation wraps malformed or missing identifiers and enum values,
	// rejected before any state is read.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicateOpenComplaint is returned by Create when the (user, group)
	// pair already has an open complaint.
	ErrDuplicateOpenComplaint = errors.New("an open complaint already exists for this group")

	// ErrComplaintClosed is returned when appending to a resolved or closed
	// complaint.
	ErrComplaintClosed = errors.New("complaint is resolved or closed")

	// ErrInvalidTransition is returned when a transition is attempted from a
	// terminal or incompatible status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrComplaintNotFound is returned for an unknown complaint ID.
	ErrComplaintNotFound = errors.New("complaint not found")

	// ErrMembershipNotFound is returned for an unknown membership ID.
	ErrMembershipNotFound = errors.New("membership not found")

	// ErrAlreadyCancelled is returned when the membership is already
	// cancelled or has a cancellation pending.
	ErrAlreadyCancelled = errors.New("membership already cancelled or cancellation pending")

	// ErrOpenComplaintExists blocks cancellation while a dispute is live, so
	// a member cannot exit before a refund decision lands.
	ErrOpenComplaintExists = errors.New("cancellation blocked by an open complaint")

	// ErrFidelityLocked blocks voluntary cancellation before the fidelity
	// commitment elapses, unless a complaint resolution granted it.
	ErrFidelityLocked = errors.New("cancellation blocked by fidelity commitment")
)
