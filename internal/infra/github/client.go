// Package github はGitHub REST APIを使ったソース取得を提供します
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/jinford/dev-onboard/internal/core/source"
)

// Client はGitHub REST APIによる source.Provider 実装です
type Client struct {
	api    *gh.Client
	logger *slog.Logger
	now    func() time.Time
}

// Config はClientの設定です
type Config struct {
	// Token は個人アクセストークン。空の場合は未認証でアクセスする
	Token string
	// AppTokens が設定されている場合はGitHub Appのインストールトークンを使う
	AppTokens *TokenManager
	// BaseURL はGitHub APIのベースURL (GitHub Enterprise やテスト用)
	BaseURL string
	// HTTPClient は使用するHTTPクライアント
	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewClient は新しいClientを作成します
func NewClient(cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.AppTokens != nil {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *httpClient
		wrapped.Transport = &appTransport{tokens: cfg.AppTokens, base: base}
		httpClient = &wrapped
	}

	api, err := newRESTClient(httpClient, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.AppTokens == nil && cfg.Token != "" {
		api = api.WithAuthToken(cfg.Token)
	}

	c := &Client{api: api, logger: cfg.Logger, now: cfg.Now}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

func newRESTClient(httpClient *http.Client, baseURL string) (*gh.Client, error) {
	client := gh.NewClient(httpClient)
	if baseURL == "" {
		return client, nil
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
	}
	client.BaseURL = u
	return client, nil
}

// GetRepositoryMetadata はリポジトリのメタデータを取得します
func (c *Client) GetRepositoryMetadata(ctx context.Context, owner, repo string) (source.Metadata, error) {
	r, _, err := c.api.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return source.Metadata{}, mapError("github.GetRepositoryMetadata", err, c.now())
	}
	return source.Metadata{
		Name:          r.GetName(),
		Description:   r.GetDescription(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		DefaultBranch: r.GetDefaultBranch(),
		CreatedAt:     r.GetCreatedAt().Time,
		UpdatedAt:     r.GetUpdatedAt().Time,
		Language:      r.GetLanguage(),
		SizeKB:        int64(r.GetSize()),
		IsPrivate:     r.GetPrivate(),
	}, nil
}

// GetFileTree はブランチの全ファイルツリーを取得します
// ブランチが見つからない場合は main/master を切り替えて再試行します
func (c *Client) GetFileTree(ctx context.Context, owner, repo, branch string) ([]source.TreeItem, error) {
	const op = "github.GetFileTree"

	tree, _, err := c.api.Git.GetTree(ctx, owner, repo, branch, true)
	if isNotFound(err) {
		fallback := source.FallbackBranch(branch)
		c.logger.Warn("ブランチが見つからないため別のブランチで再試行します", "branch", branch, "fallback", fallback)
		tree, _, err = c.api.Git.GetTree(ctx, owner, repo, fallback, true)
	}
	if err != nil {
		return nil, mapError(op, err, c.now())
	}
	if tree.GetTruncated() {
		c.logger.Warn("ファイルツリーが上限で切り詰められています", "repository", owner+"/"+repo, "entries", len(tree.Entries))
	}

	items := make([]source.TreeItem, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		items = append(items, source.TreeItem{
			Path: e.GetPath(),
			Type: source.ItemType(e.GetType()),
			Size: int64(e.GetSize()),
			SHA:  e.GetSHA(),
			URL:  e.GetURL(),
		})
	}
	return items, nil
}

// GetFileContent はファイル内容を取得します。base64エンコードは透過的にデコードされます
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, branch string) (string, error) {
	const op = "github.GetFileContent"

	file, _, _, err := c.api.Repositories.GetContents(ctx, owner, repo, path, &gh.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return "", mapError(op, err, c.now())
	}
	if file == nil {
		return "", fmt.Errorf("%s: %s is a directory", op, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("%s: failed to decode %s: %w", op, path, err)
	}
	return content, nil
}

var _ source.Provider = (*Client)(nil)
