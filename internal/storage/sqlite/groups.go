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

// CreateGroup persists a new group to the database.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (id, admin_id, name, service_name, price_cents, fidelity_months, max_members, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.AdminID, group.Name, group.ServiceName,
		group.PriceCents, group.FidelityMonths, group.MaxMembers, group.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, admin_id, name, service_name, price_cents, fidelity_months, max_members, created_at
		 FROM groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.AdminID, &group.Name, &group.ServiceName,
		&group.PriceCents, &group.FidelityMonths, &group.MaxMembers, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.CreatedAt = time.Unix(createdAt, 0).UTC()
	return group, nil
}
