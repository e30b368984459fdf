package runlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relicmirror/relicmirror/internal/prune"
	"github.com/relicmirror/relicmirror/internal/testutil"
)

func sampleReport(startedAt time.Time, dryRun bool) *prune.Report {
	return &prune.Report{
		RunID:         uuid.NewString(),
		StartedAt:     startedAt,
		FinishedAt:    startedAt.Add(2 * time.Second),
		DryRun:        dryRun,
		Total:         10,
		Kept:          8,
		Removed:       2,
		RemovedBuilds: []string{"2023-01-01", "2023-01-03"},
	}
}

func TestService_RecordAndList(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	base := time.Date(2024, 6, 15, 3, 45, 0, 0, time.UTC)
	first := sampleReport(base, true)
	second := sampleReport(base.Add(24*time.Hour), false)

	if err := svc.RecordRun(ctx, first); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := svc.RecordRun(ctx, second); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	entries, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].RunID != second.RunID {
		t.Errorf("entries[0].RunID = %s, want the later run", entries[0].RunID)
	}
	if entries[0].DryRun {
		t.Error("entries[0].DryRun = true, want false")
	}
	if entries[0].Kept != 8 || entries[0].Removed != 2 {
		t.Errorf("kept/removed = %d/%d, want 8/2", entries[0].Kept, entries[0].Removed)
	}
	if entries[0].Report == nil || len(entries[0].Report.RemovedBuilds) != 2 {
		t.Error("full report JSON was not round-tripped")
	}
}

func TestService_Latest(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	_, err := svc.Latest(ctx)
	if !errors.Is(err, ErrNoRuns) {
		t.Errorf("Latest() on empty table = %v, want ErrNoRuns", err)
	}

	report := sampleReport(time.Date(2024, 6, 15, 3, 45, 0, 0, time.UTC), false)
	if err := svc.RecordRun(ctx, report); err != nil {
		t.Fatal(err)
	}

	entry, err := svc.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if entry.RunID != report.RunID {
		t.Errorf("Latest().RunID = %s, want %s", entry.RunID, report.RunID)
	}
}

func TestService_ListDefaultLimit(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Conn, tdb.Logger)
	if _, err := svc.List(context.Background(), 0); err != nil {
		t.Errorf("List(0) error = %v, want default limit applied", err)
	}
}
