package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSONの出力に失敗: %w", err)
	}
	return nil
}

func printEvent(w io.Writer, ev analysis.Event) {
	fmt.Fprintf(w, "[%d/%d] %-20s %-12s %s\n", ev.Step, analysis.TotalSteps, ev.StepName, ev.Status, ev.Message)
}

func orNone(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func renderAnalysis(w io.Writer, result *analysis.Result) {
	rec := result.Record

	fmt.Fprintf(w, "\n=== %s/%s ===\n", rec.Repository.Owner, rec.Repository.Name)
	if result.Cached {
		fmt.Fprintf(w, "(キャッシュ済み: %s)\n", rec.Repository.AnalyzedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "目的: %s\n", rec.Purpose.Purpose)
	for _, f := range rec.Purpose.Features {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	fmt.Fprintln(w)

	stack := tablewriter.NewWriter(w)
	stack.Header("項目", "値")
	stack.Append("言語", rec.TechStack.PrimaryLanguage)
	stack.Append("フレームワーク", rec.TechStack.Framework)
	stack.Append("ランタイム", rec.TechStack.RuntimeVersion)
	stack.Append("パッケージマネージャ", rec.TechStack.PackageManager)
	stack.Append("テスト", orNone(rec.TechStack.TestingFramework))
	stack.Append("データベース", orNone(rec.TechStack.Database))
	stack.Append("UIライブラリ", orNone(rec.TechStack.UILibrary))
	stack.Append("ファイル", fmt.Sprintf("%d / %d (%d%% 削減)",
		rec.FileTree.AnalyzedFiles, rec.FileTree.TotalFiles, rec.FileTree.ReductionPercentage))
	stack.Render()

	if len(rec.Databases) > 0 {
		fmt.Fprintln(w, "\nデータベース要件:")
		dbs := tablewriter.NewWriter(w)
		dbs.Header("種類", "必須", "マイグレーション", "シード")
		for _, d := range rec.Databases {
			dbs.Append(string(d.Type), yesNo(d.Required), migrationOf(d.MigrationRequired, d.MigrationsPath), yesNo(d.SeedDataAvailable))
		}
		dbs.Render()
	}

	if len(rec.EnvVars) > 0 {
		fmt.Fprintln(w, "\n環境変数:")
		env := tablewriter.NewWriter(w)
		env.Header("名前", "カテゴリ", "必須", "例")
		for _, v := range rec.EnvVars {
			env.Append(v.Name, string(v.Category), yesNo(v.Required), v.Example)
		}
		env.Render()
	}

	fmt.Fprintln(w)
	renderRoadmap(w, result.Roadmap, roadmap.Progress{})
}

func renderRoadmap(w io.Writer, rm roadmap.Roadmap, p roadmap.Progress) {
	fmt.Fprintf(w, "ロードマップ: %s (%d タスク, 目安 %s)\n", rm.RepositoryName, rm.TotalTasks, rm.EstimatedCompletionTime)
	if p.UserID != "" {
		fmt.Fprintf(w, "進捗: %d%%\n", p.Percentage)
	}

	table := tablewriter.NewWriter(w)
	table.Header("", "Task ID", "タイトル", "難易度", "時間")
	for _, s := range rm.Sections {
		table.Append("", "", "■ "+s.Title, "", "")
		for _, t := range s.Tasks {
			mark := " "
			if p.IsCompleted(t.ID) {
				mark = "✓"
			}
			table.Append(mark, t.ID, t.Title, string(t.Difficulty), t.EstimatedTime)
		}
	}
	table.Render()
}

func renderProgress(w io.Writer, p roadmap.Progress) {
	table := tablewriter.NewWriter(w)
	table.Header("項目", "値")
	table.Append("ユーザー", p.UserID)
	table.Append("リポジトリ", p.RepositoryID)
	table.Append("完了タスク", fmt.Sprintf("%d", len(p.CompletedTasks)))
	table.Append("進捗", fmt.Sprintf("%d%%", p.Percentage))
	if !p.StartedAt.IsZero() {
		table.Append("開始", p.StartedAt.Format("2006-01-02 15:04"))
	}
	if p.CompletedAt != nil {
		table.Append("完了", p.CompletedAt.Format("2006-01-02 15:04"))
	}
	table.Render()
}

func renderTree(w io.Writer, report *analysis.TreeReport, listFiles bool) {
	s := report.Summary
	fmt.Fprintf(w, "%s/%s (%s)\n", report.Repository.Owner, report.Repository.Name, report.Repository.DefaultBranch)

	table := tablewriter.NewWriter(w)
	table.Header("メトリクス", "値")
	table.Append("総ファイル数", fmt.Sprintf("%d", s.TotalFiles))
	table.Append("解析対象", fmt.Sprintf("%d", s.AnalyzedFiles))
	table.Append("除外", fmt.Sprintf("%d", s.SkippedFiles))
	table.Append("削減率", fmt.Sprintf("%d%%", s.ReductionPercentage))
	table.Append("重要ファイル", strings.Join(s.CriticalFiles, ", "))
	table.Render()

	if len(s.Languages) > 0 {
		langs := make([]string, 0, len(s.Languages))
		for lang := range s.Languages {
			langs = append(langs, lang)
		}
		sort.Slice(langs, func(i, j int) bool {
			if s.Languages[langs[i]] != s.Languages[langs[j]] {
				return s.Languages[langs[i]] > s.Languages[langs[j]]
			}
			return langs[i] < langs[j]
		})

		fmt.Fprintln(w, "\n言語別ファイル数:")
		lt := tablewriter.NewWriter(w)
		lt.Header("言語", "ファイル数")
		for _, lang := range langs {
			lt.Append(lang, fmt.Sprintf("%d", s.Languages[lang]))
		}
		lt.Render()
	}

	if listFiles {
		fmt.Fprintln(w)
		for _, f := range report.Filtered.Files {
			fmt.Fprintln(w, f.Path)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func migrationOf(required bool, path string) string {
	if !required {
		return "no"
	}
	if path == "" {
		return "yes"
	}
	return path
}
