package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/subpool/subpool/internal/models"
	"github.com/subpool/subpool/internal/storage"
)

// CreateMembership persists a new membership to the database.
func (s *SQLiteStore) CreateMembership(ctx context.Context, m *models.Membership) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	if m.Status == "" {
		m.Status = models.MembershipActive
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memberships (id, user_id, group_id, joined_at, status, fidelity_months,
		                          cancellation_reason, cancellation_description, cancelled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.GroupID, m.JoinedAt.Unix(), string(m.Status), m.FidelityMonths,
		m.CancellationReason, m.CancellationDescription, unixOrNull(m.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// GetMembership retrieves a membership by ID.
func (s *SQLiteStore) GetMembership(ctx context.Context, membershipID string) (*models.Membership, error) {
	m := &models.Membership{}
	var joinedAt int64
	var status string
	var cancelledAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, group_id, joined_at, status, fidelity_months,
		        cancellation_reason, cancellation_description, cancelled_at
		 FROM memberships WHERE id = ?`,
		membershipID,
	).Scan(&m.ID, &m.UserID, &m.GroupID, &joinedAt, &status, &m.FidelityMonths,
		&m.CancellationReason, &m.CancellationDescription, &cancelledAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("membership %s: %w", membershipID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	m.JoinedAt = time.Unix(joinedAt, 0).UTC()
	m.CancelledAt = timeOrZero(cancelledAt)
	m.Status, err = models.ParseMembershipStatus(status)
	if err != nil {
		return nil, fmt.Errorf("corrupt membership row %s: %w", membershipID, err)
	}
	return m, nil
}

// TransitionMembership applies a compare-and-set status update. The WHERE
// clause on the current status makes concurrent transitions lose cleanly
// instead of overwriting each other.
func (s *SQLiteStore) TransitionMembership(ctx context.Context, membershipID string, t storage.MembershipTransition) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memberships
		 SET status = ?,
		     cancellation_reason = CASE WHEN ? != '' THEN ? ELSE cancellation_reason END,
		     cancellation_description = CASE WHEN ? != '' THEN ? ELSE cancellation_description END,
		     cancelled_at = COALESCE(?, cancelled_at)
		 WHERE id = ? AND status = ?`,
		string(t.To),
		t.CancellationReason, t.CancellationReason,
		t.CancellationDescription, t.CancellationDescription,
		unixOrNull(t.CancelledAt),
		membershipID, string(t.From),
	)
	if err != nil {
		return fmt.Errorf("failed to transition membership: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish a missing row from a lost race.
		if _, err := s.GetMembership(ctx, membershipID); err != nil {
			return err
		}
		return fmt.Errorf("membership %s not in status %s: %w", membershipID, t.From, storage.ErrStaleStatus)
	}
	return nil
}
