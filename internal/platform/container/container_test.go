package container

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/repourl"
	"github.com/jinford/dev-onboard/internal/core/source"
	"github.com/jinford/dev-onboard/internal/core/synth"
	"github.com/jinford/dev-onboard/internal/platform/config"
)

type fakeSource struct{}

func (fakeSource) GetRepositoryMetadata(context.Context, string, string) (source.Metadata, error) {
	return source.Metadata{
		Name:          "demo",
		Description:   "Demo service",
		DefaultBranch: "main",
		Language:      "Go",
		SizeKB:        120,
	}, nil
}

func (fakeSource) GetFileTree(context.Context, string, string, string) ([]source.TreeItem, error) {
	return []source.TreeItem{
		{Path: "README.md", Type: source.ItemTypeBlob, Size: 200},
		{Path: "go.mod", Type: source.ItemTypeBlob, Size: 100},
		{Path: "main.go", Type: source.ItemTypeBlob, Size: 300},
		{Path: "vendor/x/y.go", Type: source.ItemTypeBlob, Size: 300},
	}, nil
}

func (fakeSource) GetFileContent(_ context.Context, _, _, path, _ string) (string, error) {
	switch path {
	case "README.md":
		return "# demo\nA small HTTP service.", nil
	case "go.mod":
		return "module example.com/demo\n\ngo 1.22\n\nrequire github.com/go-chi/chi/v5 v5.0.0\n", nil
	}
	return "", apperr.New(apperr.ErrNotFoundOrPrivate, "fake", "missing "+path)
}

type fakeAI struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAI) GenerateCompletion(_ context.Context, req synth.CompletionRequest) (synth.CompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if strings.Contains(req.Prompt, `"sections"`) {
		return synth.CompletionResponse{Content: `{"sections":[{"title":"Setup","tasks":[{"title":"Install Go","estimated_time":"15m"}]}]}`}, nil
	}
	return synth.CompletionResponse{Content: `{"purpose":"A small HTTP service","features":["routing"]}`}, nil
}

func testConfig(driver string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: driver},
		GitHub: config.GitHubConfig{
			Mode: config.SourceModeAPI,
		},
		AI: config.AIConfig{
			Provider:    config.AIProviderOpenAI,
			Temperature: -1,
		},
		Analysis: config.AnalysisConfig{
			Timeout:       time.Minute,
			MaxRepoSizeKB: 1024,
			CacheTTL:      time.Hour,
			Milestones:    []int{50, 100},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWiresAnalysisAndProgress(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{}

	c, err := New(ctx, testConfig(config.StoreDriverMemory),
		WithLogger(discardLogger()),
		WithSource(fakeSource{}),
		WithSynthClient(ai),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	result, err := c.Analyses.Analyze(ctx, analysis.Request{URL: "https://github.com/octo/demo"}, nil)
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, "A small HTTP service", result.Record.Purpose.Purpose)
	assert.Equal(t, 4, result.Record.FileTree.TotalFiles)
	require.Len(t, result.Roadmap.Sections, 1)
	assert.Equal(t, 1, result.Roadmap.TotalTasks)
	assert.Equal(t, 2, ai.calls)

	cached, err := c.Analyses.Analyze(ctx, analysis.Request{URL: "https://github.com/octo/demo"}, nil)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, 2, ai.calls)

	repo, err := repourl.Parse("https://github.com/octo/demo")
	require.NoError(t, err)
	taskID := result.Roadmap.Sections[0].Tasks[0].ID

	update, err := c.Progress.CompleteTask(ctx, "u1", repo, taskID)
	require.NoError(t, err)
	assert.Equal(t, 100, update.Progress.Percentage)
	assert.Equal(t, []int{50, 100}, update.Milestones)
}

func TestNewOpensSQLiteStore(t *testing.T) {
	cfg := testConfig(config.StoreDriverSQLite)
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "onboard.db")

	c, err := New(context.Background(), cfg,
		WithLogger(discardLogger()),
		WithSource(fakeSource{}),
		WithSynthClient(&fakeAI{}),
	)
	require.NoError(t, err)
	require.NotNil(t, c.Store)
	assert.NoError(t, c.Close())
}

func TestNewRejectsUnknownStoreDriver(t *testing.T) {
	_, err := New(context.Background(), testConfig("cassandra"),
		WithLogger(discardLogger()),
		WithSource(fakeSource{}),
		WithSynthClient(&fakeAI{}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestNewRequiresAIKey(t *testing.T) {
	_, err := New(context.Background(), testConfig(config.StoreDriverMemory),
		WithLogger(discardLogger()),
		WithSource(fakeSource{}),
	)
	require.Error(t, err)
}
