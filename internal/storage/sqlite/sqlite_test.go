package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/subpool/subpool/internal/models"
	"github.com/subpool/subpool/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "subpool-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testComplaint(userID, groupID string, createdAt time.Time) *models.Complaint {
	return &models.Complaint{
		UserID:                userID,
		GroupID:               groupID,
		AdminID:               "admin-1",
		ProblemType:           models.ProblemNoAccess,
		DesiredSolution:       models.SolutionFixProblem,
		Description:           "no access since Tuesday",
		Status:                models.ComplaintPending,
		CreatedAt:             createdAt,
		AdminResponseDeadline: createdAt.Add(7 * 24 * time.Hour),
		InterventionDeadline:  createdAt.Add(14 * 24 * time.Hour),
	}
}

func TestComplaintStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateComplaint generates ID and round-trips", func(t *testing.T) {
		c := testComplaint("user-1", "group-1", now)
		if err := store.CreateComplaint(ctx, c); err != nil {
			t.Fatalf("CreateComplaint failed: %v", err)
		}
		if c.ID == "" {
			t.Error("Expected complaint ID to be generated")
		}

		got, err := store.GetComplaint(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetComplaint failed: %v", err)
		}
		if got.Status != models.ComplaintPending {
			t.Errorf("Status = %s, want pending", got.Status)
		}
		if !got.InterventionDeadline.Equal(c.InterventionDeadline) {
			t.Errorf("InterventionDeadline = %v, want %v", got.InterventionDeadline, c.InterventionDeadline)
		}
		if !got.ResolvedAt.IsZero() {
			t.Errorf("ResolvedAt = %v, want zero", got.ResolvedAt)
		}
	})

	t.Run("duplicate open complaint is rejected", func(t *testing.T) {
		first := testComplaint("user-2", "group-1", now)
		if err := store.CreateComplaint(ctx, first); err != nil {
			t.Fatalf("CreateComplaint failed: %v", err)
		}

		dup := testComplaint("user-2", "group-1", now.Add(time.Hour))
		err := store.CreateComplaint(ctx, dup)
		if !errors.Is(err, storage.ErrDuplicateOpenComplaint) {
			t.Errorf("CreateComplaint error = %v, want ErrDuplicateOpenComplaint", err)
		}

		// A terminal complaint frees the slot.
		err = store.TransitionComplaint(ctx, first.ID, storage.ComplaintTransition{
			From:           models.ComplaintPending,
			To:             models.ComplaintResolved,
			ResolvedAt:     now.Add(2 * time.Hour),
			ResolutionType: models.ResolutionProblemFixed,
		})
		if err != nil {
			t.Fatalf("TransitionComplaint failed: %v", err)
		}
		if err := store.CreateComplaint(ctx, testComplaint("user-2", "group-1", now.Add(3*time.Hour))); err != nil {
			t.Errorf("CreateComplaint after resolve failed: %v", err)
		}
	})

	t.Run("concurrent creates admit exactly one", func(t *testing.T) {
		const attempts = 8
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.CreateComplaint(ctx, testComplaint("user-3", "group-1", now))
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else if !errors.Is(err, storage.ErrDuplicateOpenComplaint) {
				t.Errorf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Errorf("succeeded = %d, want exactly 1", succeeded)
		}
	})

	t.Run("GetOpenComplaint", func(t *testing.T) {
		c := testComplaint("user-4", "group-1", now)
		if err := store.CreateComplaint(ctx, c); err != nil {
			t.Fatalf("CreateComplaint failed: %v", err)
		}

		open, err := store.GetOpenComplaint(ctx, "user-4", "group-1")
		if err != nil {
			t.Fatalf("GetOpenComplaint failed: %v", err)
		}
		if open == nil || open.ID != c.ID {
			t.Errorf("GetOpenComplaint = %v, want complaint %s", open, c.ID)
		}

		none, err := store.GetOpenComplaint(ctx, "user-4", "group-9")
		if err != nil {
			t.Fatalf("GetOpenComplaint failed: %v", err)
		}
		if none != nil {
			t.Errorf("Expected no open complaint, got %s", none.ID)
		}
	})

	t.Run("TransitionComplaint rejects stale status", func(t *testing.T) {
		c := testComplaint("user-5", "group-1", now)
		if err := store.CreateComplaint(ctx, c); err != nil {
			t.Fatalf("CreateComplaint failed: %v", err)
		}

		err := store.TransitionComplaint(ctx, c.ID, storage.ComplaintTransition{
			From: models.ComplaintAdminResponded,
			To:   models.ComplaintUserResponded,
		})
		if !errors.Is(err, storage.ErrStaleStatus) {
			t.Errorf("error = %v, want ErrStaleStatus", err)
		}

		err = store.TransitionComplaint(ctx, "missing-id", storage.ComplaintTransition{
			From: models.ComplaintPending,
			To:   models.ComplaintAdminResponded,
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListComplaintsDueForIntervention", func(t *testing.T) {
		fresh := newTestStore(t)

		overdue := testComplaint("user-a", "group-2", now.Add(-15*24*time.Hour))
		recent := testComplaint("user-b", "group-2", now.Add(-time.Hour))
		if err := fresh.CreateComplaint(ctx, overdue); err != nil {
			t.Fatalf("CreateComplaint failed: %v", err)
		}
		if err := fresh.CreateComplaint(ctx, recent); err != nil {
			t.Fatalf("CreateComplaint failed: %v", err)
		}

		due, err := fresh.ListComplaintsDueForIntervention(ctx, now)
		if err != nil {
			t.Fatalf("ListComplaintsDueForIntervention failed: %v", err)
		}
		if len(due) != 1 || due[0].ID != overdue.ID {
			t.Errorf("due = %d complaints, want just %s", len(due), overdue.ID)
		}
	})

	t.Run("HasCancellationGrant", func(t *testing.T) {
		c := testComplaint("user-6", "group-1", now)
		if err := store.CreateComplaint(ctx, c); err != nil {
			t.Fatalf("CreateComplaint failed: %v", err)
		}

		granted, err := store.HasCancellationGrant(ctx, "user-6", "group-1")
		if err != nil {
			t.Fatalf("HasCancellationGrant failed: %v", err)
		}
		if granted {
			t.Error("Expected no grant before resolution")
		}

		err = store.TransitionComplaint(ctx, c.ID, storage.ComplaintTransition{
			From:           models.ComplaintPending,
			To:             models.ComplaintResolved,
			ResolvedAt:     now,
			ResolutionType: models.ResolutionCancellationGranted,
		})
		if err != nil {
			t.Fatalf("TransitionComplaint failed: %v", err)
		}

		granted, err = store.HasCancellationGrant(ctx, "user-6", "group-1")
		if err != nil {
			t.Fatalf("HasCancellationGrant failed: %v", err)
		}
		if !granted {
			t.Error("Expected grant after cancellation_granted resolution")
		}
	})
}

func TestMessageOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := testComplaint("user-1", "group-1", now)
	if err := store.CreateComplaint(ctx, c); err != nil {
		t.Fatalf("CreateComplaint failed: %v", err)
	}

	// Identical timestamps: insertion sequence must break the tie.
	bodies := []string{"first", "second", "third"}
	for _, body := range bodies {
		msg := &models.ComplaintMessage{
			ComplaintID: c.ID,
			AuthorID:    "user-1",
			Role:        models.RoleUser,
			Body:        body,
			Visibility:  models.VisibilityPublic,
			CreatedAt:   now,
			Attachments: []string{"ref-" + body},
		}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	msgs, err := store.ListMessages(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != len(bodies) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(bodies))
	}
	for i, body := range bodies {
		if msgs[i].Body != body {
			t.Errorf("msgs[%d].Body = %q, want %q", i, msgs[i].Body, body)
		}
	}
	if len(msgs[0].Attachments) != 1 || msgs[0].Attachments[0] != "ref-first" {
		t.Errorf("Attachments = %v, want [ref-first]", msgs[0].Attachments)
	}
}

func TestMembershipStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	joined := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		m := &models.Membership{
			UserID:         "user-1",
			GroupID:        "group-1",
			JoinedAt:       joined,
			Status:         models.MembershipActive,
			FidelityMonths: 6,
		}
		if err := store.CreateMembership(ctx, m); err != nil {
			t.Fatalf("CreateMembership failed: %v", err)
		}
		if m.ID == "" {
			t.Error("Expected membership ID to be generated")
		}

		got, err := store.GetMembership(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if got.Status != models.MembershipActive || got.FidelityMonths != 6 {
			t.Errorf("got status=%s fidelity=%d", got.Status, got.FidelityMonths)
		}
		if !got.JoinedAt.Equal(joined) {
			t.Errorf("JoinedAt = %v, want %v", got.JoinedAt, joined)
		}
	})

	t.Run("transition records cancellation fields", func(t *testing.T) {
		m := &models.Membership{UserID: "user-2", GroupID: "group-1", JoinedAt: joined}
		if err := store.CreateMembership(ctx, m); err != nil {
			t.Fatalf("CreateMembership failed: %v", err)
		}

		err := store.TransitionMembership(ctx, m.ID, storage.MembershipTransition{
			From:                    models.MembershipActive,
			To:                      models.MembershipCancellationPending,
			CancellationReason:      string(models.ReasonTooExpensive),
			CancellationDescription: "found a cheaper plan",
		})
		if err != nil {
			t.Fatalf("TransitionMembership failed: %v", err)
		}

		got, err := store.GetMembership(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if got.Status != models.MembershipCancellationPending {
			t.Errorf("Status = %s, want cancellation_pending", got.Status)
		}
		if got.CancellationReason != string(models.ReasonTooExpensive) {
			t.Errorf("CancellationReason = %q", got.CancellationReason)
		}

		// Replaying the same transition must fail: status already moved.
		err = store.TransitionMembership(ctx, m.ID, storage.MembershipTransition{
			From: models.MembershipActive,
			To:   models.MembershipCancellationPending,
		})
		if !errors.Is(err, storage.ErrStaleStatus) {
			t.Errorf("error = %v, want ErrStaleStatus", err)
		}

		cancelledAt := joined.Add(40 * 24 * time.Hour)
		err = store.TransitionMembership(ctx, m.ID, storage.MembershipTransition{
			From:        models.MembershipCancellationPending,
			To:          models.MembershipCancelled,
			CancelledAt: cancelledAt,
		})
		if err != nil {
			t.Fatalf("TransitionMembership failed: %v", err)
		}
		got, err = store.GetMembership(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if !got.CancelledAt.Equal(cancelledAt) {
			t.Errorf("CancelledAt = %v, want %v", got.CancelledAt, cancelledAt)
		}
	})

	t.Run("missing membership", func(t *testing.T) {
		_, err := store.GetMembership(ctx, "missing-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestGroupStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{
		AdminID:        "admin-1",
		Name:           "Streaming Family Plan",
		ServiceName:    "streamco",
		PriceCents:     499,
		FidelityMonths: 6,
		MaxMembers:     5,
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.FidelityMonths != 6 || got.PriceCents != 499 {
		t.Errorf("got fidelity=%d price=%d", got.FidelityMonths, got.PriceCents)
	}

	if _, err := store.GetGroup(ctx, "missing-id"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
