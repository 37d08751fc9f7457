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

const complaintColumns = `id, user_id, group_id, admin_id, problem_type, desired_solution,
	description, status, created_at, admin_response_deadline, intervention_deadline,
	resolved_at, closed_at, resolution_type, resolution_details`

// CreateComplaint persists a new complaint. The partial unique index on open
// complaints turns a concurrent duplicate create into a constraint failure,
// which is mapped to ErrDuplicateOpenComplaint.
func (s *SQLiteStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO complaints (`+complaintColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.GroupID, c.AdminID, string(c.ProblemType), string(c.DesiredSolution),
		c.Description, string(c.Status), c.CreatedAt.Unix(),
		c.AdminResponseDeadline.Unix(), c.InterventionDeadline.Unix(),
		unixOrNull(c.ResolvedAt), unixOrNull(c.ClosedAt),
		string(c.ResolutionType), c.ResolutionDetails,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s group %s: %w", c.UserID, c.GroupID, storage.ErrDuplicateOpenComplaint)
	}
	if err != nil {
		return fmt.Errorf("failed to create complaint: %w", err)
	}
	return nil
}

func scanComplaint(row interface{ Scan(...any) error }) (*models.Complaint, error) {
	c := &models.Complaint{}
	var status, resolutionType string
	var createdAt, adminDeadline, interventionDeadline int64
	var resolvedAt, closedAt sql.NullInt64
	err := row.Scan(&c.ID, &c.UserID, &c.GroupID, &c.AdminID,
		(*string)(&c.ProblemType), (*string)(&c.DesiredSolution),
		&c.Description, &status, &createdAt, &adminDeadline, &interventionDeadline,
		&resolvedAt, &closedAt, &resolutionType, &c.ResolutionDetails)
	if err != nil {
		return nil, err
	}

	c.Status, err = models.ParseComplaintStatus(status)
	if err != nil {
		return nil, fmt.Errorf("corrupt complaint row %s: %w", c.ID, err)
	}
	c.ResolutionType = models.ResolutionType(resolutionType)
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.AdminResponseDeadline = time.Unix(adminDeadline, 0).UTC()
	c.InterventionDeadline = time.Unix(interventionDeadline, 0).UTC()
	c.ResolvedAt = timeOrZero(resolvedAt)
	c.ClosedAt = timeOrZero(closedAt)
	return c, nil
}

// GetComplaint retrieves a complaint by ID.
func (s *SQLiteStore) GetComplaint(ctx context.Context, complaintID string) (*models.Complaint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, complaintID)
	c, err := scanComplaint(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("complaint %s: %w", complaintID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}
	return c, nil
}

// GetOpenComplaint retrieves the open complaint for a (user, group) pair.
// The partial unique index guarantees at most one row matches.
func (s *SQLiteStore) GetOpenComplaint(ctx context.Context, userID, groupID string) (*models.Complaint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints
		 WHERE user_id = ? AND group_id = ?
		   AND status IN ('pending', 'admin_responded', 'user_responded', 'intervention')`,
		userID, groupID)
	c, err := scanComplaint(row)
	if err == sql.ErrNoRows {
		return nil, nil // No open complaint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open complaint: %w", err)
	}
	return c, nil
}

// HasCancellationGrant reports whether any complaint for the pair resolved
// with cancellation_granted.
func (s *SQLiteStore) HasCancellationGrant(ctx context.Context, userID, groupID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM complaints
		 WHERE user_id = ? AND group_id = ?
		   AND status IN ('resolved', 'closed')
		   AND resolution_type = 'cancellation_granted'`,
		userID, groupID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check cancellation grant: %w", err)
	}
	return n > 0, nil
}

// ListComplaintsDueForIntervention returns complaints still awaiting a party
// response whose intervention deadline has lapsed.
func (s *SQLiteStore) ListComplaintsDueForIntervention(ctx context.Context, now time.Time) ([]*models.Complaint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints
		 WHERE status IN ('pending', 'admin_responded', 'user_responded')
		   AND intervention_deadline <= ?
		 ORDER BY intervention_deadline`,
		now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list due complaints: %w", err)
	}
	defer rows.Close()

	var due []*models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due complaint: %w", err)
		}
		due = append(due, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due complaints: %w", err)
	}
	return due, nil
}

// TransitionComplaint applies a compare-and-set status update.
func (s *SQLiteStore) TransitionComplaint(ctx context.Context, complaintID string, t storage.ComplaintTransition) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE complaints
		 SET status = ?,
		     resolved_at = COALESCE(?, resolved_at),
		     closed_at = COALESCE(?, closed_at),
		     resolution_type = CASE WHEN ? != '' THEN ? ELSE resolution_type END,
		     resolution_details = CASE WHEN ? != '' THEN ? ELSE resolution_details END
		 WHERE id = ? AND status = ?`,
		string(t.To),
		unixOrNull(t.ResolvedAt), unixOrNull(t.ClosedAt),
		string(t.ResolutionType), string(t.ResolutionType),
		t.ResolutionDetails, t.ResolutionDetails,
		complaintID, string(t.From),
	)
	if err != nil {
		return fmt.Errorf("failed to transition complaint: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetComplaint(ctx, complaintID); err != nil {
			return err
		}
		return fmt.Errorf("complaint %s not in status %s: %w", complaintID, t.From, storage.ErrStaleStatus)
	}
	return nil
}

// AppendMessage appends a message to a complaint thread.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.ComplaintMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO complaint_messages (id, complaint_id, author_id, role, body, visibility, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ComplaintID, msg.AuthorID, string(msg.Role), msg.Body,
		string(msg.Visibility), msg.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	msg.Seq, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message seq: %w", err)
	}

	for _, ref := range msg.Attachments {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO message_attachments (message_id, file_ref) VALUES (?, ?)",
			msg.ID, ref,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListMessages returns a complaint's messages in thread order: creation time
// first, insertion sequence as the tie break.
func (s *SQLiteStore) ListMessages(ctx context.Context, complaintID string) ([]*models.ComplaintMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, complaint_id, author_id, role, body, visibility, created_at
		 FROM complaint_messages WHERE complaint_id = ?
		 ORDER BY created_at, seq`,
		complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.ComplaintMessage
	for rows.Next() {
		msg := &models.ComplaintMessage{}
		var role, visibility string
		var createdAt int64
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.ComplaintID, &msg.AuthorID,
			&role, &msg.Body, &visibility, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = models.MessageRole(role)
		msg.Visibility = models.MessageVisibility(visibility)
		msg.CreatedAt = time.Unix(createdAt, 0).UTC()
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	rows.Close()

	// Attachments are fetched after the message rows are drained; the pool
	// holds a single connection.
	for _, msg := range msgs {
		if err := s.loadAttachments(ctx, msg); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

func (s *SQLiteStore) loadAttachments(ctx context.Context, msg *models.ComplaintMessage) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT file_ref FROM message_attachments WHERE message_id = ? ORDER BY file_ref",
		msg.ID)
	if err != nil {
		return fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return fmt.Errorf("failed to scan attachment: %w", err)
		}
		msg.Attachments = append(msg.Attachments, ref)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate attachments: %w", err)
	}
	return nil
}

// AppendEvidence appends an evidence record to a complaint.
func (s *SQLiteStore) AppendEvidence(ctx context.Context, ev *models.ComplaintEvidence) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO complaint_evidence (id, complaint_id, uploader_id, description, file_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.ComplaintID, ev.UploaderID, ev.Description, ev.FileRef, ev.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert evidence: %w", err)
	}
	return nil
}

// ListEvidence returns a complaint's evidence ordered by creation time.
func (s *SQLiteStore) ListEvidence(ctx context.Context, complaintID string) ([]*models.ComplaintEvidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, complaint_id, uploader_id, description, file_ref, created_at
		 FROM complaint_evidence WHERE complaint_id = ?
		 ORDER BY created_at, id`,
		complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var evs []*models.ComplaintEvidence
	for rows.Next() {
		ev := &models.ComplaintEvidence{}
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.ComplaintID, &ev.UploaderID,
			&ev.Description, &ev.FileRef, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		ev.CreatedAt = time.Unix(createdAt, 0).UTC()
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate evidence: %w", err)
	}
	return evs, nil
}
