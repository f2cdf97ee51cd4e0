package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/classifier"
	"github.com/jinford/dev-onboard/internal/core/progress"
	"github.com/jinford/dev-onboard/internal/core/source"
	"github.com/jinford/dev-onboard/internal/core/store"
	"github.com/jinford/dev-onboard/internal/core/synth"
	"github.com/jinford/dev-onboard/internal/infra/gemini"
	"github.com/jinford/dev-onboard/internal/infra/git"
	"github.com/jinford/dev-onboard/internal/infra/github"
	"github.com/jinford/dev-onboard/internal/infra/memory"
	"github.com/jinford/dev-onboard/internal/infra/openai"
	"github.com/jinford/dev-onboard/internal/infra/postgres"
	"github.com/jinford/dev-onboard/internal/infra/sqlite"
	"github.com/jinford/dev-onboard/internal/platform/config"
	"github.com/jinford/dev-onboard/internal/platform/database"
)

// Container はアプリケーションの依存関係を保持する
type Container struct {
	Config       *config.Config
	Store        store.DocumentStore
	Source       source.Provider
	Orchestrator *analysis.Orchestrator
	Analyses     *analysis.Service
	Progress     *progress.Service

	logger  *slog.Logger
	closers []func() error
}

type containerOptions struct {
	logger      *slog.Logger
	store       store.DocumentStore
	source      source.Provider
	synthClient synth.Client
}

// Option は Container 構築時のオプション
type Option func(*containerOptions)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithStore はドキュメントストアを差し替える
func WithStore(s store.DocumentStore) Option {
	return func(opts *containerOptions) {
		opts.store = s
	}
}

// WithSource はソース取得を差し替える
func WithSource(p source.Provider) Option {
	return func(opts *containerOptions) {
		opts.source = p
	}
}

// WithSynthClient は生成AIクライアントを差し替える
func WithSynthClient(c synth.Client) Option {
	return func(opts *containerOptions) {
		opts.synthClient = c
	}
}

// New は設定から Container を構築する
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	c := &Container{Config: cfg, logger: options.logger}

	docs := options.store
	if docs == nil {
		var err error
		docs, err = c.openStore(ctx)
		if err != nil {
			c.Close()
			return nil, err
		}
	}
	c.Store = docs

	src := options.source
	if src == nil {
		var err error
		src, err = c.newSource()
		if err != nil {
			c.Close()
			return nil, err
		}
	}
	c.Source = src

	client := options.synthClient
	if client == nil {
		var err error
		client, err = c.newSynthClient(ctx)
		if err != nil {
			c.Close()
			return nil, err
		}
	}

	c.Orchestrator = analysis.NewOrchestrator(src, c.newSynthService(client),
		analysis.WithLogger(c.logger),
		analysis.WithTimeout(cfg.Analysis.Timeout),
		analysis.WithMaxRepoSizeKB(cfg.Analysis.MaxRepoSizeKB),
		analysis.WithMaxCriticalFetches(cfg.Analysis.MaxCriticalFetches),
		analysis.WithClassifier(classifier.New(
			classifier.WithLogger(c.logger),
			classifier.WithIgnorePatterns(cfg.Analysis.ExtraIgnore...),
		)),
	)

	repo := analysis.NewRepository(docs)
	c.Analyses = analysis.NewService(c.Orchestrator, repo,
		analysis.WithServiceLogger(c.logger),
		analysis.WithCacheTTL(cfg.Analysis.CacheTTL),
	)
	c.Progress = progress.NewService(docs, repo,
		progress.WithLogger(c.logger),
		progress.WithMilestones(cfg.Analysis.Milestones),
	)

	return c, nil
}

// Close は保持しているリソースを解放する
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) openStore(ctx context.Context) (store.DocumentStore, error) {
	cfg := c.Config
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := database.Open(ctx, database.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })

		s := postgres.NewStore(pool)
		if err := s.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("マイグレーションに失敗しました: %w", err)
		}
		return s, nil

	case config.StoreDriverSQLite:
		s, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("SQLite初期化に失敗しました: %w", err)
		}
		c.closers = append(c.closers, s.Close)
		return s, nil

	case config.StoreDriverMemory:
		c.logger.Warn("メモリストアを使用します。プロセス終了時に結果は失われます")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (c *Container) newSource() (source.Provider, error) {
	cfg := c.Config.GitHub

	var tokens *github.TokenManager
	if c.Config.UsesGitHubApp() {
		key, err := os.ReadFile(cfg.AppPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("GitHub Appの秘密鍵を読み込めませんでした: %w", err)
		}
		tokens, err = github.NewTokenManager(cfg.AppID, cfg.AppInstallationID, key, github.WithTokenBaseURL(cfg.APIURL))
		if err != nil {
			return nil, fmt.Errorf("GitHub App認証の初期化に失敗しました: %w", err)
		}
	}

	api, err := github.NewClient(github.Config{
		Token:     cfg.Token,
		AppTokens: tokens,
		BaseURL:   cfg.APIURL,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("GitHubクライアント初期化に失敗しました: %w", err)
	}
	if cfg.Mode != config.SourceModeClone {
		return api, nil
	}

	var cloneTokens git.TokenSource = git.StaticToken(cfg.Token)
	if tokens != nil {
		cloneTokens = tokens
	}
	return git.NewProvider(git.NewClient(cfg.CloneDepth), api,
		git.WithTokenSource(cloneTokens),
		git.WithLogger(c.logger),
	), nil
}

func (c *Container) newSynthClient(ctx context.Context) (synth.Client, error) {
	cfg := c.Config.AI
	switch cfg.Provider {
	case config.AIProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Logger: c.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("Geminiクライアント初期化に失敗しました: %w", err)
		}
		return client, nil
	default:
		client, err := openai.NewClient(openai.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: c.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAIクライアント初期化に失敗しました: %w", err)
		}
		return client, nil
	}
}

func (c *Container) newSynthService(client synth.Client) *synth.Service {
	cfg := c.Config.AI
	opts := []synth.Option{
		synth.WithLogger(c.logger),
		synth.WithMaxTokens(cfg.MaxTokens),
		synth.WithPromptTokenBudget(cfg.PromptTokenBudget),
	}
	if cfg.HasTemperature() {
		opts = append(opts, synth.WithTemperature(cfg.Temperature))
	}

	counter, err := synth.NewTokenCounter()
	if err != nil {
		c.logger.Warn("tiktokenを初期化できないため推定値でトークン数を数えます", "error", err)
	} else {
		opts = append(opts, synth.WithCounter(counter))
	}
	return synth.NewService(client, opts...)
}
