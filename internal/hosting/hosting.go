// Package hosting defines the boundary to the service that publishes build
// releases. The mirror only ever reads the release catalog and deletes
// releases it has decided to drop; everything else about the hosting side is
// someone else's concern.
package hosting

import (
	"context"
	"fmt"
	"time"
)

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name        string
	Size        int64
	DownloadURL string
}

// Release is one published build as the hosting service reports it.
type Release struct {
	BuildNumber string
	Prerelease  bool
	PublishedAt time.Time
	Assets      []Asset
}

// Client reads and prunes the hosted release catalog.
type Client interface {
	// ListReleases returns the full catalog, newest first.
	ListReleases(ctx context.Context) ([]Release, error)
	// DeleteRelease removes the release identified by buildNumber and its
	// artifacts. Deleting an already-gone release is not an error.
	DeleteRelease(ctx context.Context, buildNumber string) error
}

// StatusError is a non-2xx hosting API response.
type StatusError struct {
	Code      int
	Operation string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hosting: %s returned status %d", e.Operation, e.Code)
}

// Transient reports whether the request is worth retrying. Server errors and
// rate limiting are; client errors are not.
func (e *StatusError) Transient() bool {
	return e.Code >= 500 || e.Code == 429
}
