package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/repourl"
	"github.com/jinford/dev-onboard/internal/core/source"
)

// DefaultMaxSnapshots は保持するクローンの上限
const DefaultMaxSnapshots = 4

// TokenSource はクローン時の認証トークンを返す
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken は固定のトークンです
type StaticToken string

// Token はトークンを返す
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Provider はメタデータをAPIから、ツリーと内容をクローンから取得する source.Provider 実装
type Provider struct {
	client   *Client
	metadata source.Provider
	tokens   TokenSource
	urlOf    func(owner, repo string) string
	logger   *slog.Logger

	mu        sync.Mutex
	snapshots map[string]*Snapshot
	order     []string
	max       int
}

// ProviderOption はProviderのオプションです
type ProviderOption func(*Provider)

// WithTokenSource は認証トークンの取得元を設定します
func WithTokenSource(tokens TokenSource) ProviderOption {
	return func(p *Provider) {
		p.tokens = tokens
	}
}

// WithURLFunc はクローンURLの組み立て方を上書きします
func WithURLFunc(fn func(owner, repo string) string) ProviderOption {
	return func(p *Provider) {
		p.urlOf = fn
	}
}

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider は新しい Provider を作成する
func NewProvider(client *Client, metadata source.Provider, opts ...ProviderOption) *Provider {
	p := &Provider{
		client:   client,
		metadata: metadata,
		tokens:   StaticToken(""),
		urlOf: func(owner, repo string) string {
			return repourl.Repository{Owner: owner, Name: repo}.CloneURL()
		},
		logger:    slog.Default(),
		snapshots: map[string]*Snapshot{},
		max:       DefaultMaxSnapshots,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetRepositoryMetadata はメタデータ取得を委譲する
func (p *Provider) GetRepositoryMetadata(ctx context.Context, owner, repo string) (source.Metadata, error) {
	return p.metadata.GetRepositoryMetadata(ctx, owner, repo)
}

// GetFileTree はクローンしたツリーを返す
func (p *Provider) GetFileTree(ctx context.Context, owner, repo, branch string) ([]source.TreeItem, error) {
	snap, err := p.snapshot(ctx, owner, repo, branch)
	if err != nil {
		return nil, err
	}
	return snap.Items()
}

// GetFileContent はクローンからファイル内容を読む
func (p *Provider) GetFileContent(ctx context.Context, owner, repo, path, branch string) (string, error) {
	snap, err := p.snapshot(ctx, owner, repo, branch)
	if err != nil {
		return "", err
	}
	return snap.ReadFile(path)
}

func (p *Provider) snapshot(ctx context.Context, owner, repo, branch string) (*Snapshot, error) {
	key := owner + "/" + repo + "@" + branch

	p.mu.Lock()
	defer p.mu.Unlock()

	if snap, ok := p.snapshots[key]; ok {
		return snap, nil
	}

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get clone token: %w", err)
	}

	url := p.urlOf(owner, repo)
	logger := p.logger.With("repository", owner+"/"+repo)
	logger.Info("リポジトリをクローンしています", "branch", branch)

	snap, err := p.client.Clone(ctx, url, branch, token)
	if errors.Is(err, ErrBranchNotFound) {
		fallback := source.FallbackBranch(branch)
		logger.Warn("ブランチが見つからないため別のブランチで再試行します", "branch", branch, "fallback", fallback)
		snap, err = p.client.Clone(ctx, url, fallback, token)
	}
	if err != nil {
		return nil, mapError(err)
	}

	p.remember(key, snap)
	logger.Info("クローンが完了しました", "branch", snap.Branch, "commit", snap.Commit)
	return snap, nil
}

// remember はクローンを保持し、上限を超えたら古いものから捨てる
func (p *Provider) remember(key string, snap *Snapshot) {
	p.snapshots[key] = snap
	p.order = append(p.order, key)
	for len(p.order) > p.max {
		delete(p.snapshots, p.order[0])
		p.order = p.order[1:]
	}
}

func mapError(err error) error {
	const op = "git.Clone"
	if errors.Is(err, ErrBranchNotFound) || isAccessDenied(err) {
		return apperr.Wrap(apperr.ErrNotFoundOrPrivate, op, "repository or branch is not accessible", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ source.Provider = (*Provider)(nil)
