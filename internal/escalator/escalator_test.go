package escalator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/subpool/subpool/internal/lifecycle"
	"github.com/subpool/subpool/internal/metrics"
	"github.com/subpool/subpool/internal/models"
	"github.com/subpool/subpool/internal/notify"
	"github.com/subpool/subpool/internal/storage/sqlite"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type captureDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *captureDispatcher) Dispatch(_ context.Context, e notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *captureDispatcher) all() []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Event(nil), d.events...)
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Escalator, *lifecycle.ComplaintLifecycle, *fakeClock, *captureDispatcher) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "subpool-escalator-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clk := &fakeClock{now: t0}
	events := &captureDispatcher{}
	m := metrics.NewWith(prometheus.NewRegistry())
	complaints := lifecycle.NewComplaintLifecycle(store, clk, lifecycle.DefaultPolicy(), events, m)
	esc := New(store, complaints, clk, time.Minute, m)

	return esc, complaints, clk, events
}

func createComplaint(t *testing.T, complaints *lifecycle.ComplaintLifecycle, userID string) *models.Complaint {
	t.Helper()
	c, err := complaints.Create(context.Background(), lifecycle.CreateParams{
		UserID:          userID,
		GroupID:         "group-1",
		AdminID:         "admin-1",
		ProblemType:     "no_access",
		DesiredSolution: "fix_problem",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return c
}

func TestScanEscalatesOverdueComplaints(t *testing.T) {
	esc, complaints, clk, events := setup(t)
	ctx := context.Background()

	overdue := createComplaint(t, complaints, "user-1")

	// A complaint created later is not yet due.
	clk.Set(t0.Add(10 * 24 * time.Hour))
	fresh := createComplaint(t, complaints, "user-2")

	clk.Set(t0.Add(14*24*time.Hour + time.Minute))
	esc.ScanOnce(ctx)

	got, err := complaints.Get(ctx, overdue.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.ComplaintIntervention {
		t.Errorf("overdue status = %s, want intervention", got.Status)
	}

	got, err = complaints.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.ComplaintPending {
		t.Errorf("fresh status = %s, want pending", got.Status)
	}

	// The escalation event looks like any user-driven transition, with the
	// system actor.
	var escalation *notify.Event
	for _, e := range events.all() {
		if e.ToStatus == string(models.ComplaintIntervention) {
			escalation = &e
			break
		}
	}
	if escalation == nil {
		t.Fatal("no intervention event emitted")
	}
	if escalation.ActorID != "system" {
		t.Errorf("actor = %s, want system", escalation.ActorID)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	esc, complaints, clk, events := setup(t)
	ctx := context.Background()

	c := createComplaint(t, complaints, "user-1")
	clk.Set(t0.Add(15 * 24 * time.Hour))

	esc.ScanOnce(ctx)
	countAfterFirst := len(events.all())
	esc.ScanOnce(ctx)

	got, err := complaints.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.ComplaintIntervention {
		t.Errorf("status = %s, want intervention", got.Status)
	}
	if n := len(events.all()); n != countAfterFirst {
		t.Errorf("second scan emitted %d extra events", n-countAfterFirst)
	}
}

func TestScanSkipsResolvedComplaints(t *testing.T) {
	esc, complaints, clk, _ := setup(t)
	ctx := context.Background()

	c := createComplaint(t, complaints, "user-1")
	if _, err := complaints.Resolve(ctx, c.ID, "mediator-1", "problem_fixed", ""); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	clk.Set(t0.Add(15 * 24 * time.Hour))
	esc.ScanOnce(ctx)

	got, err := complaints.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.ComplaintResolved {
		t.Errorf("status = %s, want resolved (untouched)", got.Status)
	}
}

type failingLister struct {
	calls int
}

func (f *failingLister) ListComplaintsDueForIntervention(context.Context, time.Time) ([]*models.Complaint, error) {
	f.calls++
	return nil, errors.New("store unavailable")
}

func TestScanRetriesOnNextTick(t *testing.T) {
	lister := &failingLister{}
	m := metrics.NewWith(prometheus.NewRegistry())
	esc := New(lister, nil, &fakeClock{now: t0}, time.Minute, m)

	// A failing tick must not panic or wedge; the next tick simply scans
	// again.
	esc.ScanOnce(context.Background())
	esc.ScanOnce(context.Background())
	if lister.calls != 2 {
		t.Errorf("calls = %d, want 2", lister.calls)
	}
}
