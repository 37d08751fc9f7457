package models

import (
	"fmt"
	"time"
)

// MessageRole identifies which party authored a complaint message.
type MessageRole string

const (
	RoleUser     MessageRole = "user"
	RoleAdmin    MessageRole = "admin"
	RoleMediator MessageRole = "mediator"
)

// ParseMessageRole validates an author role.
func ParseMessageRole(s string) (MessageRole, error) {
	switch MessageRole(s) {
	case RoleUser, RoleAdmin, RoleMediator:
		return MessageRole(s), nil
	}
	return "", fmt.Errorf("invalid message role: %q", s)
}

// MessageVisibility controls who can see a complaint message.
type MessageVisibility string

const (
	VisibilityPublic   MessageVisibility = "public"
	VisibilityInternal MessageVisibility = "internal"
)

// ParseMessageVisibility validates a visibility flag.
func ParseMessageVisibility(s string) (MessageVisibility, error) {
	switch MessageVisibility(s) {
	case VisibilityPublic, VisibilityInternal:
		return MessageVisibility(s), nil
	}
	return "", fmt.Errorf("invalid message visibility: %q", s)
}

// ComplaintMessage is one entry in the back-and-forth between member,
// administrator and mediator within a complaint. Append-only.
//
// Ordering is by CreatedAt with ties broken by Seq, the store's insertion
// sequence. Callers must not assume CreatedAt is a total order.
type ComplaintMessage struct {
	ID          string
	ComplaintID string
	AuthorID    string
	Role        MessageRole
	Body        string

	// Attachments are opaque references resolved by the file service.
	Attachments []string

	Visibility MessageVisibility
	CreatedAt  time.Time

	// Seq is assigned by the store on insert.
	Seq int64
}
