package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dev-onboard/internal/core/roadmap"
)

// RoadmapShowAction は保存済みロードマップを表示するコマンドのアクション
func RoadmapShowAction(ctx context.Context, cmd *cli.Command) error {
	repo, err := parseRepository(cmd.String("url"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	rm, err := appCtx.Container.Analyses.GetRoadmap(ctx, repo)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return writeJSON(os.Stdout, rm)
	}

	var completed roadmap.Progress
	if user := cmd.String("user"); user != "" {
		completed, err = appCtx.Container.Progress.Get(ctx, user, repo)
		if err != nil {
			return err
		}
	}
	renderRoadmap(os.Stdout, rm, completed)
	return nil
}

// ProgressShowAction はユーザーの進捗を表示するコマンドのアクション
func ProgressShowAction(ctx context.Context, cmd *cli.Command) error {
	repo, err := parseRepository(cmd.String("url"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	p, err := appCtx.Container.Progress.Get(ctx, cmd.String("user"), repo)
	if err != nil {
		return err
	}
	renderProgress(os.Stdout, p)
	return nil
}

// ProgressCompleteAction はタスクを完了にするコマンドのアクション
// --undo を指定すると完了を取り消す
func ProgressCompleteAction(ctx context.Context, cmd *cli.Command) error {
	repo, err := parseRepository(cmd.String("url"))
	if err != nil {
		return err
	}
	user := cmd.String("user")
	taskID := cmd.String("task")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if cmd.Bool("undo") {
		p, err := appCtx.Container.Progress.UncompleteTask(ctx, user, repo, taskID)
		if err != nil {
			return err
		}
		fmt.Printf("タスク %s を未完了に戻しました\n", taskID)
		renderProgress(os.Stdout, p)
		return nil
	}

	update, err := appCtx.Container.Progress.CompleteTask(ctx, user, repo, taskID)
	if err != nil {
		return err
	}
	fmt.Printf("✓ タスク %s を完了にしました\n", taskID)
	for _, m := range update.Milestones {
		fmt.Printf("🎉 %d%% 達成！\n", m)
	}
	renderProgress(os.Stdout, update.Progress)
	return nil
}

// ProgressResetAction はユーザーの進捗を削除するコマンドのアクション
func ProgressResetAction(ctx context.Context, cmd *cli.Command) error {
	repo, err := parseRepository(cmd.String("url"))
	if err != nil {
		return err
	}
	user := cmd.String("user")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Progress.Reset(ctx, user, repo); err != nil {
		return err
	}
	fmt.Printf("✓ %s の %s に対する進捗をリセットしました\n", user, repo)
	return nil
}
