package git

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/source"
)

type stubMetadata struct{}

func (stubMetadata) GetRepositoryMetadata(ctx context.Context, owner, repo string) (source.Metadata, error) {
	return source.Metadata{Name: repo, DefaultBranch: "main"}, nil
}

func (stubMetadata) GetFileTree(ctx context.Context, owner, repo, branch string) ([]source.TreeItem, error) {
	return nil, nil
}

func (stubMetadata) GetFileContent(ctx context.Context, owner, repo, path, branch string) (string, error) {
	return "", nil
}

// initRepository はmasterブランチに1コミットを持つリポジトリを作成します
func initRepository(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func newTestProvider(dir string) *Provider {
	return NewProvider(NewClient(0), stubMetadata{},
		WithURLFunc(func(owner, repo string) string { return dir }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestProviderReadsTreeAndContentFromClone(t *testing.T) {
	dir := initRepository(t, map[string]string{
		"README.md":    "# Demo\n",
		"src/index.js": "console.log('hi')\n",
	})
	p := newTestProvider(dir)
	ctx := context.Background()

	items, err := p.GetFileTree(ctx, "acme", "demo", "main")
	require.NoError(t, err)

	byPath := map[string]source.TreeItem{}
	for _, item := range items {
		byPath[item.Path] = item
	}
	require.Contains(t, byPath, "README.md")
	assert.Equal(t, source.ItemTypeBlob, byPath["README.md"].Type)
	assert.Equal(t, int64(len("# Demo\n")), byPath["README.md"].Size)
	assert.Equal(t, source.ItemTypeTree, byPath["src"].Type)
	assert.Contains(t, byPath, "src/index.js")

	content, err := p.GetFileContent(ctx, "acme", "demo", "README.md", "main")
	require.NoError(t, err)
	assert.Equal(t, "# Demo\n", content)

	_, err = p.GetFileContent(ctx, "acme", "demo", "missing.txt", "main")
	assert.Error(t, err)

	meta, err := p.GetRepositoryMetadata(ctx, "acme", "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", meta.Name)
}

func TestProviderCachesSnapshots(t *testing.T) {
	dir := initRepository(t, map[string]string{"README.md": "v1\n"})
	p := newTestProvider(dir)
	p.max = 1
	ctx := context.Background()

	_, err := p.GetFileTree(ctx, "acme", "demo", "master")
	require.NoError(t, err)
	first := p.snapshots["acme/demo@master"]
	require.NotNil(t, first)

	_, err = p.GetFileContent(ctx, "acme", "demo", "README.md", "master")
	require.NoError(t, err)
	assert.Same(t, first, p.snapshots["acme/demo@master"])

	_, err = p.GetFileTree(ctx, "acme", "other", "master")
	require.NoError(t, err)
	assert.Len(t, p.snapshots, 1)
	assert.NotContains(t, p.snapshots, "acme/demo@master")
}

func TestProviderMissingRepository(t *testing.T) {
	p := newTestProvider(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := p.GetFileTree(context.Background(), "acme", "demo", "main")

	assert.Error(t, err)
}

func TestProviderMissingBranches(t *testing.T) {
	dir := initRepository(t, map[string]string{"README.md": "x"})
	p := newTestProvider(dir)

	_, err := p.GetFileTree(context.Background(), "acme", "demo", "develop")

	assert.ErrorIs(t, err, apperr.ErrNotFoundOrPrivate)
}
