// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/subpool/subpool/internal/models"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOpenComplaint is returned by CreateComplaint when the
	// (user, group) pair already has a complaint in a non-terminal status.
	// The store enforces this atomically with respect to concurrent creates.
	ErrDuplicateOpenComplaint = errors.New("open complaint already exists for user and group")

	// ErrStaleStatus is returned by the conditional transition operations
	// when the entity's current status no longer matches the expected one,
	// meaning a concurrent transition won.
	ErrStaleStatus = errors.New("entity status changed concurrently")
)

// ComplaintTransition is a conditional status update applied only when the
// complaint's current status equals From. Optional fields are written only
// when non-zero.
type ComplaintTransition struct {
	From models.ComplaintStatus
	To   models.ComplaintStatus

	ResolvedAt        time.Time
	ClosedAt          time.Time
	ResolutionType    models.ResolutionType
	ResolutionDetails string
}

// MembershipTransition is a conditional status update applied only when the
// membership's current status equals From.
type MembershipTransition struct {
	From models.MembershipStatus
	To   models.MembershipStatus

	CancellationReason      string
	CancellationDescription string
	CancelledAt             time.Time
}

// Store defines the interface for subpool's persistence operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// The two Transition methods and CreateComplaint carry the concurrency
// contract the lifecycle engine relies on: at most one in-flight transition
// per entity (compare-and-set on status) and an atomic duplicate-open check
// at complaint creation.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns nil, nil when no
	// such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns nil, nil when no such
	// user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateGroup persists a new group. The group.ID and CreatedAt fields
	// are populated by the store when unset.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID. Returns ErrNotFound if missing.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// CreateMembership persists a new membership. ID and JoinedAt are
	// populated when unset.
	CreateMembership(ctx context.Context, m *models.Membership) error

	// GetMembership retrieves a membership by ID, including soft-deleted
	// (cancelled) ones. Returns ErrNotFound if missing.
	GetMembership(ctx context.Context, membershipID string) (*models.Membership, error)

	// TransitionMembership applies a conditional status update. Returns
	// ErrNotFound for an unknown ID, ErrStaleStatus when the current status
	// does not match t.From.
	TransitionMembership(ctx context.Context, membershipID string, t MembershipTransition) error

	// CreateComplaint persists a new complaint. ID is populated when unset.
	// Returns ErrDuplicateOpenComplaint when the (user, group) pair already
	// has an open complaint; the check and insert are atomic.
	CreateComplaint(ctx context.Context, c *models.Complaint) error

	// GetComplaint retrieves a complaint by ID. Returns ErrNotFound if
	// missing.
	GetComplaint(ctx context.Context, complaintID string) (*models.Complaint, error)

	// GetOpenComplaint retrieves the open (non-terminal) complaint for a
	// (user, group) pair. Returns nil, nil when there is none.
	GetOpenComplaint(ctx context.Context, userID, groupID string) (*models.Complaint, error)

	// HasCancellationGrant reports whether a complaint for the pair was
	// resolved with resolution type cancellation_granted.
	HasCancellationGrant(ctx context.Context, userID, groupID string) (bool, error)

	// ListComplaintsDueForIntervention returns complaints in a non-terminal
	// pre-intervention status whose intervention deadline is at or before
	// now. Used by the escalator scan.
	ListComplaintsDueForIntervention(ctx context.Context, now time.Time) ([]*models.Complaint, error)

	// TransitionComplaint applies a conditional status update. Returns
	// ErrNotFound for an unknown ID, ErrStaleStatus when the current status
	// does not match t.From.
	TransitionComplaint(ctx context.Context, complaintID string, t ComplaintTransition) error

	// AppendMessage appends a message to a complaint thread. ID and Seq are
	// populated by the store.
	AppendMessage(ctx context.Context, msg *models.ComplaintMessage) error

	// ListMessages returns a complaint's messages ordered by creation time,
	// ties broken by insertion sequence.
	ListMessages(ctx context.Context, complaintID string) ([]*models.ComplaintMessage, error)

	// AppendEvidence appends an evidence record to a complaint.
	AppendEvidence(ctx context.Context, ev *models.ComplaintEvidence) error

	// ListEvidence returns a complaint's evidence ordered by creation time.
	ListEvidence(ctx context.Context, complaintID string) ([]*models.ComplaintEvidence, error)

	// Close releases any resources held by the store.
	Close() error
}
