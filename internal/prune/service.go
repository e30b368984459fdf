// Package prune runs the retention policy over the canonical build list and
// carries out the resulting deletions.
package prune

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relicmirror/relicmirror/internal/buildlist"
	"github.com/relicmirror/relicmirror/internal/metrics"
	"github.com/relicmirror/relicmirror/internal/retention"
	"github.com/relicmirror/relicmirror/internal/retry"
)

// ArtifactDeleter removes the hosted artifacts of one build. It is the
// destructive external collaborator; the policy decision is complete before
// it is ever called.
type ArtifactDeleter interface {
	DeleteBuild(ctx context.Context, buildNumber string) error
}

// DeleterFunc adapts a function to ArtifactDeleter.
type DeleterFunc func(ctx context.Context, buildNumber string) error

func (f DeleterFunc) DeleteBuild(ctx context.Context, buildNumber string) error {
	return f(ctx, buildNumber)
}

// Recorder persists run reports. Optional; recording failures never fail a
// run.
type Recorder interface {
	RecordRun(ctx context.Context, report *Report) error
}

// Report is the outcome of one prune pass.
type Report struct {
	RunID         string          `json:"runId"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
	DryRun        bool            `json:"dryRun"`
	Total         int             `json:"total"`
	Kept          int             `json:"kept"`
	Removed       int             `json:"removed"`
	Stats         retention.Stats `json:"stats"`
	RemovedBuilds []string        `json:"removedBuilds"`
	FailedDeletes []string        `json:"failedDeletes,omitempty"`
}

// Service orchestrates one prune pass: load list, classify, persist the kept
// list, delete the rest.
type Service struct {
	store   buildlist.Store
	deleter ArtifactDeleter
	policy  retention.Policy
	runs    Recorder
	metrics *metrics.Metrics
	logger  zerolog.Logger

	now   func() time.Time
	retry retry.Config
}

// NewService creates a prune service. The clock defaults to time.Now and is
// injectable for deterministic tests.
func NewService(store buildlist.Store, deleter ArtifactDeleter, policy retention.Policy, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		deleter: deleter,
		policy:  policy,
		logger:  logger.With().Str("component", "prune").Logger(),
		now:     time.Now,
		retry:   retry.DefaultConfig(),
	}
}

// SetRecorder attaches a run report store.
func (s *Service) SetRecorder(r Recorder) {
	s.runs = r
}

// SetMetrics attaches prometheus instrumentation.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetRetryConfig overrides the deletion retry schedule.
func (s *Service) SetRetryConfig(cfg retry.Config) {
	s.retry = cfg
}

// Run executes one prune pass. In dry-run mode the full classification is
// computed and reported but nothing is persisted or deleted. In live mode the
// kept list is persisted first (a persist failure aborts before any deletion),
// then artifacts are deleted per removed build, with per-item failures logged
// and reported but never fatal.
func (s *Service) Run(ctx context.Context, dryRun bool) (*Report, error) {
	started := s.now()

	builds, err := s.store.Load(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PruneRunFinished(dryRun, false)
		}
		return nil, fmt.Errorf("load build list: %w", err)
	}

	result := s.policy.Apply(builds, started)

	report := &Report{
		RunID:         uuid.NewString(),
		StartedAt:     started,
		DryRun:        dryRun,
		Total:         len(builds),
		Kept:          len(result.Kept),
		Removed:       len(result.Removed),
		Stats:         result.Stats,
		RemovedBuilds: buildNumbers(result.Removed),
	}

	s.logger.Info().
		Str("runId", report.RunID).
		Bool("dryRun", dryRun).
		Int("total", report.Total).
		Int("kept", report.Kept).
		Int("removed", report.Removed).
		Int("stable", result.Stats.Stable).
		Int("undated", result.Stats.Undated).
		Int("recent", result.Stats.Recent).
		Int("extras", result.Stats.ExtrasRemoved).
		Int("thinned", result.Stats.Thinned).
		Int("cutoff", result.Stats.Cutoff).
		Msg("retention classification computed")

	if dryRun {
		for _, bn := range report.RemovedBuilds {
			s.logger.Info().Str("build", bn).Msg("would remove")
		}
		s.finish(ctx, report, true)
		return report, nil
	}

	// Persist the new canonical list before anything irreversible happens.
	if err := s.store.Save(ctx, result.Kept); err != nil {
		if s.metrics != nil {
			s.metrics.PruneRunFinished(dryRun, false)
		}
		return nil, fmt.Errorf("persist kept list: %w", err)
	}

	for _, bn := range report.RemovedBuilds {
		if err := ctx.Err(); err != nil {
			report.FailedDeletes = append(report.FailedDeletes, bn)
			continue
		}
		err := retry.Do(ctx, "delete "+bn, s.retry, s.logger, func() error {
			return s.deleter.DeleteBuild(ctx, bn)
		})
		if err != nil {
			// Non-fatal: the list no longer references the build, the
			// orphaned artifacts will be retried by the next pass of the
			// hosting side.
			s.logger.Error().Err(err).Str("build", bn).Msg("artifact deletion failed")
			report.FailedDeletes = append(report.FailedDeletes, bn)
			if s.metrics != nil {
				s.metrics.DeleteFailures.Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.BuildsRemoved.Inc()
		}
	}

	s.finish(ctx, report, true)
	return report, nil
}

func (s *Service) finish(ctx context.Context, report *Report, ok bool) {
	report.FinishedAt = s.now()

	if s.metrics != nil {
		s.metrics.PruneRunFinished(report.DryRun, ok)
		s.metrics.BuildsKept.Set(float64(report.Kept))
	}

	if s.runs != nil {
		if err := s.runs.RecordRun(ctx, report); err != nil {
			s.logger.Warn().Err(err).Str("runId", report.RunID).Msg("failed to record run report")
		}
	}
}

func buildNumbers(records []buildlist.Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.BuildNumber)
	}
	return out
}
