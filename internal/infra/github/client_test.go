package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/source"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, handler http.Handler, now time.Time) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Token:   "test-token",
		BaseURL: server.URL,
		Logger:  discardLogger(),
		Now:     func() time.Time { return now },
	})
	require.NoError(t, err)
	return client
}

func TestGetRepositoryMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/web", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"name":             "web",
			"description":      "Online store",
			"stargazers_count": 12,
			"forks_count":      3,
			"default_branch":   "main",
			"created_at":       "2024-01-02T03:04:05Z",
			"updated_at":       "2025-06-07T08:09:10Z",
			"language":         "TypeScript",
			"size":             2048,
			"private":          true,
		})
	})

	meta, err := newTestClient(t, mux, time.Now()).GetRepositoryMetadata(context.Background(), "acme", "web")

	require.NoError(t, err)
	assert.Equal(t, source.Metadata{
		Name:          "web",
		Description:   "Online store",
		Stars:         12,
		Forks:         3,
		DefaultBranch: "main",
		CreatedAt:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:     time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC),
		Language:      "TypeScript",
		SizeKB:        2048,
		IsPrivate:     true,
	}, meta)
}

func TestGetRepositoryMetadataErrors(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)

	t.Run("not found", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/web", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "Not Found"})
		})
		_, err := newTestClient(t, mux, now).GetRepositoryMetadata(context.Background(), "acme", "web")
		assert.ErrorIs(t, err, apperr.ErrNotFoundOrPrivate)
	})

	t.Run("primary rate limit", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/web", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(90*time.Second).Unix(), 10))
			writeJSON(t, w, http.StatusForbidden, map[string]any{"message": "API rate limit exceeded"})
		})
		_, err := newTestClient(t, mux, now).GetRepositoryMetadata(context.Background(), "acme", "web")
		require.ErrorIs(t, err, apperr.ErrRateLimited)

		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, 90*time.Second, appErr.RetryAfter)
	})

	t.Run("too many requests", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/web", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusTooManyRequests, map[string]any{"message": "slow down"})
		})
		_, err := newTestClient(t, mux, now).GetRepositoryMetadata(context.Background(), "acme", "web")
		assert.ErrorIs(t, err, apperr.ErrRateLimited)
	})

	t.Run("server error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/web", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusInternalServerError, map[string]any{"message": "oops"})
		})
		_, err := newTestClient(t, mux, now).GetRepositoryMetadata(context.Background(), "acme", "web")
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperr.ErrNotFoundOrPrivate)
		assert.NotErrorIs(t, err, apperr.ErrRateLimited)
	})
}

func treeHandler(t *testing.T, branch string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"sha":       "root",
			"truncated": false,
			"tree": []map[string]any{
				{"path": "src", "type": "tree", "sha": "t1"},
				{"path": "src/index.ts", "type": "blob", "size": 120, "sha": "b1", "url": "https://api.github.com/b1"},
				{"path": "README-" + branch + ".md", "type": "blob", "size": 40, "sha": "b2"},
			},
		})
	}
}

func TestGetFileTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/web/git/trees/main", treeHandler(t, "main"))

	items, err := newTestClient(t, mux, time.Now()).GetFileTree(context.Background(), "acme", "web", "main")

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, source.TreeItem{Path: "src/index.ts", Type: source.ItemTypeBlob, Size: 120, SHA: "b1", URL: "https://api.github.com/b1"}, items[1])
	assert.False(t, items[0].IsBlob())
}

func TestGetFileTreeFallsBackToConventionalBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/web/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	})
	mux.HandleFunc("/repos/acme/web/git/trees/master", treeHandler(t, "master"))

	items, err := newTestClient(t, mux, time.Now()).GetFileTree(context.Background(), "acme", "web", "main")

	require.NoError(t, err)
	assert.Equal(t, "README-master.md", items[2].Path)
}

func TestGetFileTreeNotFoundOnBothBranches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/web/git/trees/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	})

	_, err := newTestClient(t, mux, time.Now()).GetFileTree(context.Background(), "acme", "web", "main")

	assert.ErrorIs(t, err, apperr.ErrNotFoundOrPrivate)
}

func TestGetFileContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/web/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"type":     "file",
			"path":     "README.md",
			"encoding": "base64",
			"content":  "IyBXZWIK",
		})
	})
	mux.HandleFunc("/repos/acme/web/contents/src", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]any{{"type": "file", "path": "src/index.ts"}})
	})
	client := newTestClient(t, mux, time.Now())

	content, err := client.GetFileContent(context.Background(), "acme", "web", "README.md", "main")
	require.NoError(t, err)
	assert.Equal(t, "# Web\n", content)

	_, err = client.GetFileContent(context.Background(), "acme", "web", "src", "main")
	assert.Error(t, err)
}

func TestClientWithAppTokens(t *testing.T) {
	key := generateTestKey(t)
	var exchanges int
	mux := http.NewServeMux()
	mux.HandleFunc("/app/installations/7/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"token":      fmt.Sprintf("ghs_%d", exchanges),
			"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/repos/acme/web", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghs_1", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]any{"name": "web", "default_branch": "main"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tokens, err := NewTokenManager(1, 7, key, WithTokenBaseURL(server.URL))
	require.NoError(t, err)
	client, err := NewClient(Config{AppTokens: tokens, BaseURL: server.URL, Logger: discardLogger()})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		meta, err := client.GetRepositoryMetadata(context.Background(), "acme", "web")
		require.NoError(t, err)
		assert.Equal(t, "web", meta.Name)
	}
	assert.Equal(t, 1, exchanges)
}
