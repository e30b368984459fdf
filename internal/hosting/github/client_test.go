package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/relicmirror/relicmirror/internal/hosting"
	"github.com/relicmirror/relicmirror/internal/retry"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(Config{
		BaseURL: server.URL,
		Owner:   "mirrorowner",
		Repo:    "gamedata",
		Token:   "test-token",
	}, zerolog.Nop())
}

func TestClient_ListReleases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/mirrorowner/gamedata/releases" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}

		if r.URL.Query().Get("page") != "1" {
			json.NewEncoder(w).Encode([]ghRelease{})
			return
		}
		json.NewEncoder(w).Encode([]ghRelease{
			{ID: 1, TagName: "2024-06-01", Prerelease: true},
			{ID: 2, TagName: "draft-build", Draft: true},
			{ID: 3, TagName: "v1.2", Prerelease: false, Assets: []ghAsset{
				{Name: "objects.zip", Size: 1024, BrowserDownloadURL: "https://example.test/objects.zip"},
			}},
		})
	}))
	defer server.Close()

	releases, err := newTestClient(server).ListReleases(context.Background())
	if err != nil {
		t.Fatalf("ListReleases() error = %v", err)
	}

	if len(releases) != 2 {
		t.Fatalf("got %d releases, want 2 (draft skipped)", len(releases))
	}
	if releases[0].BuildNumber != "2024-06-01" || !releases[0].Prerelease {
		t.Errorf("releases[0] = %+v", releases[0])
	}
	if len(releases[1].Assets) != 1 || releases[1].Assets[0].Name != "objects.zip" {
		t.Errorf("asset mapping lost: %+v", releases[1].Assets)
	}
}

func TestClient_ListReleases_Paginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			batch := make([]ghRelease, releasesPerPage)
			for i := range batch {
				batch[i] = ghRelease{ID: int64(i), TagName: fmt.Sprintf("build-%d", i), Prerelease: true}
			}
			json.NewEncoder(w).Encode(batch)
		case "2":
			json.NewEncoder(w).Encode([]ghRelease{{ID: 999, TagName: "build-last", Prerelease: true}})
		default:
			t.Errorf("unexpected page %q", page)
			json.NewEncoder(w).Encode([]ghRelease{})
		}
	}))
	defer server.Close()

	releases, err := newTestClient(server).ListReleases(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(releases) != releasesPerPage+1 {
		t.Errorf("got %d releases, want %d", len(releases), releasesPerPage+1)
	}
}

func TestClient_DeleteRelease(t *testing.T) {
	var deletedRelease, deletedTag bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/mirrorowner/gamedata/releases/tags/2024-06-01":
			json.NewEncoder(w).Encode(ghRelease{ID: 42, TagName: "2024-06-01"})
		case r.Method == http.MethodDelete && r.URL.Path == "/repos/mirrorowner/gamedata/releases/42":
			deletedRelease = true
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete && r.URL.Path == "/repos/mirrorowner/gamedata/git/refs/tags/2024-06-01":
			deletedTag = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	if err := newTestClient(server).DeleteRelease(context.Background(), "2024-06-01"); err != nil {
		t.Fatalf("DeleteRelease() error = %v", err)
	}
	if !deletedRelease || !deletedTag {
		t.Errorf("release deleted=%v, tag deleted=%v, want both", deletedRelease, deletedTag)
	}
}

func TestClient_DeleteRelease_AlreadyGone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if err := newTestClient(server).DeleteRelease(context.Background(), "2024-06-01"); err != nil {
		t.Errorf("DeleteRelease() on a missing release = %v, want nil", err)
	}
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server).ListReleases(context.Background())
	if err == nil {
		t.Fatal("ListReleases() succeeded on a 502")
	}
	if !retry.IsTransient(err) {
		t.Errorf("502 error not classified transient: %v", err)
	}

	se, ok := err.(*hosting.StatusError)
	if !ok || se.Code != http.StatusBadGateway {
		t.Errorf("error = %#v, want StatusError 502", err)
	}
}
