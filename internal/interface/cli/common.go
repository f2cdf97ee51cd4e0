// Package cli はコマンドラインのアクションを提供します
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dev-onboard/internal/core/repourl"
	"github.com/jinford/dev-onboard/internal/platform/config"
	"github.com/jinford/dev-onboard/internal/platform/container"
	"github.com/jinford/dev-onboard/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
	Logger    *slog.Logger
}

// NewAppContext は設定を読み込み、依存関係を組み立てて AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}

	appLogger := logger.New(cfg.Log.Logger())

	cont, err := container.New(ctx, cfg, container.WithLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
		Logger:    appLogger,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container == nil {
		return
	}
	if err := ac.Container.Close(); err != nil {
		ac.Logger.Warn("リソースの解放に失敗しました", "error", err)
	}
}

// EnvFlag は全コマンド共通の環境変数ファイル指定フラグ
func EnvFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

// URLFlag はリポジトリURL指定フラグ
func URLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "url",
		Usage:    "GitHubリポジトリURL (https://github.com/{owner}/{repo})",
		Required: true,
	}
}

// parseRepository はSSH形式なども受け付けてリポジトリを取り出す
func parseRepository(raw string) (repourl.Repository, error) {
	return repourl.Parse(repourl.Canonicalize(raw))
}
