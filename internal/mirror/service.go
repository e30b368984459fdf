// Package mirror pulls newly published builds into the canonical list.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/relicmirror/relicmirror/internal/buildlist"
	"github.com/relicmirror/relicmirror/internal/hosting"
	"github.com/relicmirror/relicmirror/internal/metrics"
	"github.com/relicmirror/relicmirror/internal/retry"
)

// Materializer performs the heavy lifting of mirroring one release: fetching
// and extracting the archive, transcoding images, compressing files. It is an
// external collaborator; the mirror only sequences it.
type Materializer interface {
	Materialize(ctx context.Context, release hosting.Release) error
}

// MaterializerFunc adapts a function to Materializer.
type MaterializerFunc func(ctx context.Context, release hosting.Release) error

func (f MaterializerFunc) Materialize(ctx context.Context, release hosting.Release) error {
	return f(ctx, release)
}

// NopMaterializer records nothing and fetches nothing; used when the mirror
// only tracks the list.
func NopMaterializer() Materializer {
	return MaterializerFunc(func(context.Context, hosting.Release) error { return nil })
}

// Service syncs the canonical list against the hosted release catalog.
type Service struct {
	store        buildlist.Store
	client       hosting.Client
	materializer Materializer
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	retry        retry.Config
}

// NewService creates a mirror sync service.
func NewService(store buildlist.Store, client hosting.Client, materializer Materializer, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		client:       client,
		materializer: materializer,
		logger:       logger.With().Str("component", "mirror").Logger(),
		retry:        retry.DefaultConfig(),
	}
}

// SetMetrics attaches prometheus instrumentation.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Sync fetches the hosted catalog and appends every release the canonical
// list does not know yet. Each new release is materialized before its record
// is added; a release that fails to materialize is skipped this pass and
// picked up again on the next one. A missing list file means first run and
// starts from empty.
func (s *Service) Sync(ctx context.Context) error {
	releases, err := s.client.ListReleases(ctx)
	if err != nil {
		return fmt.Errorf("list hosted releases: %w", err)
	}

	records, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load build list: %w", err)
		}
		s.logger.Info().Msg("no canonical list yet, starting empty")
		records = nil
	}

	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		known[rec.BuildNumber] = struct{}{}
	}

	added := 0
	failed := 0
	for _, rel := range releases {
		if _, ok := known[rel.BuildNumber]; ok {
			continue
		}

		err := retry.Do(ctx, "materialize "+rel.BuildNumber, s.retry, s.logger, func() error {
			return s.materializer.Materialize(ctx, rel)
		})
		if err != nil {
			s.logger.Error().Err(err).Str("build", rel.BuildNumber).Msg("failed to materialize release")
			failed++
			if s.metrics != nil {
				s.metrics.SyncFailures.Inc()
			}
			continue
		}

		records = append(records, newRecord(rel))
		known[rel.BuildNumber] = struct{}{}
		added++
		if s.metrics != nil {
			s.metrics.SyncedBuilds.Inc()
		}
		s.logger.Info().Str("build", rel.BuildNumber).Bool("prerelease", rel.Prerelease).Msg("mirrored new build")
	}

	if added > 0 {
		if err := s.store.Save(ctx, records); err != nil {
			return fmt.Errorf("persist build list: %w", err)
		}
	}

	s.logger.Info().
		Int("hosted", len(releases)).
		Int("added", added).
		Int("failed", failed).
		Int("total", len(records)).
		Msg("mirror sync finished")
	return nil
}

func newRecord(rel hosting.Release) buildlist.Record {
	rec := buildlist.Record{
		BuildNumber: rel.BuildNumber,
		Prerelease:  rel.Prerelease,
	}
	if !rel.PublishedAt.IsZero() {
		rec.CreatedAt = rel.PublishedAt.UTC().Format(time.RFC3339)
	}
	return rec
}
