// Package runlog records prune run reports in SQLite so operators can audit
// what each pass decided, dry runs included.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/relicmirror/relicmirror/internal/prune"
)

// ErrNoRuns means no prune pass has been recorded yet.
var ErrNoRuns = errors.New("no prune runs recorded")

// Entry is one persisted run report.
type Entry struct {
	RunID         string        `json:"runId"`
	StartedAt     time.Time     `json:"startedAt"`
	FinishedAt    time.Time     `json:"finishedAt"`
	DryRun        bool          `json:"dryRun"`
	Total         int           `json:"total"`
	Kept          int           `json:"kept"`
	Removed       int           `json:"removed"`
	FailedDeletes int           `json:"failedDeletes"`
	Report        *prune.Report `json:"report"`
}

// Service reads and writes the prune_runs table.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a run log service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "runlog").Logger(),
	}
}

// RecordRun persists one report.
func (s *Service) RecordRun(ctx context.Context, report *prune.Report) error {
	blob, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO prune_runs (id, started_at, finished_at, dry_run, total, kept, removed, failed_deletes, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(report.DryRun),
		report.Total,
		report.Kept,
		report.Removed,
		len(report.FailedDeletes),
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert run report: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, dry_run, total, kept, removed, failed_deletes, report
		FROM prune_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query run reports: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Latest returns the most recent run, or ErrNoRuns.
func (s *Service) Latest(ctx context.Context) (*Entry, error) {
	entries, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoRuns
	}
	return &entries[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry             Entry
		started, finished string
		dryRun            int
		reportJSON        string
	)
	if err := row.Scan(&entry.RunID, &started, &finished, &dryRun,
		&entry.Total, &entry.Kept, &entry.Removed, &entry.FailedDeletes, &reportJSON); err != nil {
		return Entry{}, fmt.Errorf("scan run report: %w", err)
	}

	var err error
	if entry.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Entry{}, fmt.Errorf("parse started_at: %w", err)
	}
	if entry.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Entry{}, fmt.Errorf("parse finished_at: %w", err)
	}
	entry.DryRun = dryRun != 0

	var report prune.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return Entry{}, fmt.Errorf("decode run report: %w", err)
	}
	entry.Report = &report
	return entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
