package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	appcli "github.com/jinford/dev-onboard/internal/interface/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "dev-onboard",
		Usage: "GitHubリポジトリを解析してオンボーディングロードマップを生成",
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "リポジトリを解析してロードマップを生成",
				Flags: []cli.Flag{
					appcli.EnvFlag(),
					appcli.URLFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "キャッシュを無視して再解析",
					},
					jsonFlag(),
				},
				Action: appcli.AnalyzeAction,
			},
			{
				Name:  "roadmap",
				Usage: "ロードマップ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "show",
						Usage: "保存済みのロードマップを表示",
						Flags: []cli.Flag{
							appcli.EnvFlag(),
							appcli.URLFlag(),
							&cli.StringFlag{
								Name:  "user",
								Usage: "ユーザーID（指定すると完了済みタスクに印を付ける）",
							},
							jsonFlag(),
						},
						Action: appcli.RoadmapShowAction,
					},
				},
			},
			{
				Name:  "progress",
				Usage: "進捗管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "進捗を表示",
						Flags:  []cli.Flag{appcli.EnvFlag(), appcli.URLFlag(), userFlag()},
						Action: appcli.ProgressShowAction,
					},
					{
						Name:  "complete",
						Usage: "タスクを完了にする",
						Flags: []cli.Flag{
							appcli.EnvFlag(),
							appcli.URLFlag(),
							userFlag(),
							&cli.StringFlag{
								Name:     "task",
								Usage:    "タスクID",
								Required: true,
							},
							&cli.BoolFlag{
								Name:  "undo",
								Usage: "完了を取り消す",
							},
						},
						Action: appcli.ProgressCompleteAction,
					},
					{
						Name:   "reset",
						Usage:  "進捗をリセット",
						Flags:  []cli.Flag{appcli.EnvFlag(), appcli.URLFlag(), userFlag()},
						Action: appcli.ProgressResetAction,
					},
				},
			},
			{
				Name:  "analysis",
				Usage: "解析結果管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "delete",
						Usage:  "保存済みの解析結果を削除",
						Flags:  []cli.Flag{appcli.EnvFlag(), appcli.URLFlag()},
						Action: appcli.AnalysisDeleteAction,
					},
				},
			},
			{
				Name:  "tree",
				Usage: "ファイルツリー関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "classify",
						Usage: "ファイルツリーの選別結果を表示（AIは呼び出さない）",
						Flags: []cli.Flag{
							appcli.EnvFlag(),
							appcli.URLFlag(),
							&cli.BoolFlag{
								Name:  "files",
								Usage: "解析対象ファイルを一覧表示",
							},
							jsonFlag(),
						},
						Action: appcli.TreeClassifyAction,
					},
				},
			},
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							appcli.EnvFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は環境変数HTTP_PORTまたは8080）",
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		p := apperr.Describe(err)
		if p.Code == "internal" {
			fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "エラー [%s]: %s\n", p.Code, p.Message)
		}
		os.Exit(1)
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Usage:    "ユーザーID",
		Required: true,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "JSON形式で出力",
	}
}
