package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/repourl"
)

// AnalyzeAction はリポジトリを解析してロードマップを生成するコマンドのアクション
func AnalyzeAction(ctx context.Context, cmd *cli.Command) error {
	url := repourl.Canonicalize(cmd.String("url"))
	asJSON := cmd.Bool("json")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	appCtx.Logger.Info("解析を開始します", "url", url, "force", cmd.Bool("force"))

	req := analysis.Request{URL: url, Force: cmd.Bool("force")}
	result, err := appCtx.Container.Analyses.Analyze(ctx, req, func(ev analysis.Event) {
		printEvent(os.Stderr, ev)
	})
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(os.Stdout, result)
	}
	renderAnalysis(os.Stdout, result)
	return nil
}

// AnalysisDeleteAction は保存済みの解析結果を削除するコマンドのアクション
func AnalysisDeleteAction(ctx context.Context, cmd *cli.Command) error {
	repo, err := parseRepository(cmd.String("url"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Analyses.Delete(ctx, repo); err != nil {
		return err
	}
	fmt.Printf("✓ %s の解析結果を削除しました\n", repo)
	return nil
}

// TreeClassifyAction はファイルツリーの選別結果だけを表示するコマンドのアクション
func TreeClassifyAction(ctx context.Context, cmd *cli.Command) error {
	url := repourl.Canonicalize(cmd.String("url"))

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	report, err := appCtx.Container.Orchestrator.InspectTree(ctx, url)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return writeJSON(os.Stdout, report)
	}
	renderTree(os.Stdout, report, cmd.Bool("files"))
	return nil
}
