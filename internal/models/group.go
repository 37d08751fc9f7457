package models

import "time"

// Group represents a subscription-sharing group run by an administrator.
// Members hold Membership slots; the group's fidelity commitment is copied
// onto each membership at join time so later group edits do not change the
// terms a member agreed to.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// AdminID is the user who created and administers the group.
	AdminID string

	// Name is the display name (e.g., "Streaming Family Plan").
	Name string

	// ServiceName is the shared third-party subscription.
	ServiceName string

	// PriceCents is the per-slot monthly price.
	PriceCents int64

	// FidelityMonths is the commitment length required of joining members.
	// 0 means members may cancel freely.
	FidelityMonths int

	// MaxMembers caps the number of slots.
	MaxMembers int

	// CreatedAt is when the group was created.
	CreatedAt time.Time
}
