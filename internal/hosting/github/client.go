// Package github implements the hosting boundary against the GitHub
// releases API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/relicmirror/relicmirror/internal/hosting"
)

const defaultBaseURL = "https://api.github.com"

// releasesPerPage is the API maximum; the catalog is typically one page.
const releasesPerPage = 100

// Config holds the repository coordinates and credentials.
type Config struct {
	BaseURL string // override for tests; empty means api.github.com
	Owner   string
	Repo    string
	Token   string
	Timeout time.Duration
}

// Client talks to the GitHub releases API for one repository.
type Client struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	token      string
	logger     zerolog.Logger
}

// NewClient creates a GitHub hosting client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		token:      cfg.Token,
		logger:     logger.With().Str("component", "github").Logger(),
	}
}

type ghRelease struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []ghAsset `json:"assets"`
}

type ghAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// ListReleases pages through the repository's releases. Drafts are skipped;
// they are not published builds.
func (c *Client) ListReleases(ctx context.Context) ([]hosting.Release, error) {
	var out []hosting.Release

	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d&page=%d",
			c.baseURL, c.owner, c.repo, releasesPerPage, page)

		var batch []ghRelease
		if err := c.doJSON(ctx, http.MethodGet, endpoint, "list releases", &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, rel := range batch {
			if rel.Draft {
				continue
			}
			out = append(out, toRelease(rel))
		}
		if len(batch) < releasesPerPage {
			break
		}
	}

	c.logger.Debug().Int("count", len(out)).Msg("listed releases")
	return out, nil
}

// DeleteRelease removes the release tagged buildNumber together with its git
// tag. A release that is already gone is treated as deleted.
func (c *Client) DeleteRelease(ctx context.Context, buildNumber string) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s",
		c.baseURL, c.owner, c.repo, url.PathEscape(buildNumber))

	var rel ghRelease
	err := c.doJSON(ctx, http.MethodGet, endpoint, "find release", &rel)
	if err != nil {
		if isNotFound(err) {
			c.logger.Debug().Str("build", buildNumber).Msg("release already gone")
			return nil
		}
		return err
	}

	delEndpoint := fmt.Sprintf("%s/repos/%s/%s/releases/%d", c.baseURL, c.owner, c.repo, rel.ID)
	if err := c.doJSON(ctx, http.MethodDelete, delEndpoint, "delete release", nil); err != nil && !isNotFound(err) {
		return err
	}

	refEndpoint := fmt.Sprintf("%s/repos/%s/%s/git/refs/tags/%s",
		c.baseURL, c.owner, c.repo, url.PathEscape(buildNumber))
	if err := c.doJSON(ctx, http.MethodDelete, refEndpoint, "delete tag", nil); err != nil && !isNotFound(err) {
		return err
	}

	c.logger.Info().Str("build", buildNumber).Msg("deleted release")
	return nil
}

func toRelease(rel ghRelease) hosting.Release {
	out := hosting.Release{
		BuildNumber: rel.TagName,
		Prerelease:  rel.Prerelease,
		PublishedAt: rel.PublishedAt,
	}
	for _, a := range rel.Assets {
		out.Assets = append(out.Assets, hosting.Asset{
			Name:        a.Name,
			Size:        a.Size,
			DownloadURL: a.BrowserDownloadURL,
		})
	}
	return out
}

func isNotFound(err error) bool {
	se, ok := err.(*hosting.StatusError)
	return ok && se.Code == http.StatusNotFound
}

func (c *Client) doJSON(ctx context.Context, method, endpoint, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &hosting.StatusError{Code: resp.StatusCode, Operation: operation}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}
