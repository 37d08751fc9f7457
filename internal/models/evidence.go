package models

import "time"

// ComplaintEvidence is a supporting artifact attached to a complaint by
// either party. Append-only: never mutated after creation.
type ComplaintEvidence struct {
	ID          string
	ComplaintID string
	UploaderID  string
	Description string

	// FileRef is an opaque reference to the stored artifact.
	FileRef string

	CreatedAt time.Time
}
