package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/classifier"
	"github.com/jinford/dev-onboard/internal/core/datastore"
	"github.com/jinford/dev-onboard/internal/core/envvar"
	"github.com/jinford/dev-onboard/internal/core/repourl"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
	"github.com/jinford/dev-onboard/internal/core/source"
	"github.com/jinford/dev-onboard/internal/core/techstack"
)

const (
	// DefaultTimeout は解析全体の上限時間です
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxRepoSizeKB は解析可能なリポジトリの最大サイズです
	DefaultMaxRepoSizeKB int64 = 500 * 1024

	// DefaultMaxCriticalFetches は内容を取得する重要ファイルの最大数です
	DefaultMaxCriticalFetches = 10
)

// envExampleFiles は優先順の環境変数サンプルファイル名です
var envExampleFiles = []string{".env.example", ".env.sample", ".env.template", "env.example", ".env.local.example"}

// Orchestrator は8ステップの解析パイプラインを実行します
type Orchestrator struct {
	source     source.Provider
	ai         AIService
	classifier *classifier.Classifier
	detector   *techstack.Detector
	logger     *slog.Logger
	now        func() time.Time

	timeout            time.Duration
	maxRepoSizeKB      int64
	maxCriticalFetches int
}

// OrchestratorOption はOrchestratorのオプションです
type OrchestratorOption func(*Orchestrator)

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithTimeout は解析全体の上限時間を設定します
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxRepoSizeKB は解析可能な最大サイズを設定します
func WithMaxRepoSizeKB(kb int64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxRepoSizeKB = kb
	}
}

// WithMaxCriticalFetches は内容を取得する重要ファイル数の上限を設定します
func WithMaxCriticalFetches(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxCriticalFetches = n
		}
	}
}

// WithClassifier はファイル選別器を設定します
func WithClassifier(c *classifier.Classifier) OrchestratorOption {
	return func(o *Orchestrator) {
		o.classifier = c
	}
}

// WithClock は現在時刻の取得関数を設定します
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator は新しいOrchestratorを作成します
func NewOrchestrator(src source.Provider, ai AIService, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		source:             src,
		ai:                 ai,
		logger:             slog.Default(),
		now:                time.Now,
		timeout:            DefaultTimeout,
		maxRepoSizeKB:      DefaultMaxRepoSizeKB,
		maxCriticalFetches: DefaultMaxCriticalFetches,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.classifier == nil {
		o.classifier = classifier.New(classifier.WithLogger(o.logger))
	}
	o.detector = techstack.NewDetector(techstack.WithLogger(o.logger))
	return o
}

type outcome struct {
	result *Result
	err    error
}

// Analyze はリポジトリを解析してロードマップを生成します
// 全体が上限時間を超えた場合は apperr.ErrAnalysisTimeout を返し、部分的な結果は返しません
func (o *Orchestrator) Analyze(ctx context.Context, rawURL string, progress ProgressFunc) (*Result, error) {
	em := newEmitter(uuid.NewString(), progress, o.now)

	repo, err := repourl.Parse(rawURL)
	if err != nil {
		em.fail(apperr.Describe(err).Message, map[string]any{"code": apperr.Code(err)})
		return nil, err
	}

	ctx, cancel := context.WithTimeoutCause(ctx, o.timeout, apperr.ErrAnalysisTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := o.run(ctx, repo, em)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			err := o.timeoutOr(ctx, out.err)
			em.fail(apperr.Describe(err).Message, map[string]any{"code": apperr.Code(err)})
			o.logger.Error("解析に失敗しました", "repository", repo.String(), "error", err)
			return nil, err
		}
		return out.result, nil
	case <-ctx.Done():
		err := o.timeoutOr(ctx, ctx.Err())
		em.fail(apperr.Describe(err).Message, map[string]any{"code": apperr.Code(err)})
		o.logger.Error("解析を中断しました", "repository", repo.String(), "error", err)
		return nil, err
	}
}

// timeoutOr は上限時間による中断であればタイムアウトエラーに置き換えます
func (o *Orchestrator) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), apperr.ErrAnalysisTimeout) {
		return apperr.Wrap(apperr.ErrAnalysisTimeout, "analysis.Analyze",
			fmt.Sprintf("analysis exceeded the %s time limit", o.timeout), err)
	}
	return err
}

func (o *Orchestrator) run(ctx context.Context, repo repourl.Repository, em *emitter) (*Result, error) {
	start := o.now()
	logger := o.logger.With("repository", repo.String())

	// Step 1: リポジトリ情報の取得
	em.emit(StepRepositoryAccess, StatusInProgress, "Fetching repository metadata", nil)
	logger.Info("リポジトリ情報を取得しています")
	repository, err := o.accessRepository(ctx, repo)
	if err != nil {
		return nil, err
	}
	em.emit(StepRepositoryAccess, StatusCompleted, "Repository metadata fetched", map[string]any{
		"stars":    repository.Stars,
		"language": repository.Language,
		"sizeKB":   repository.SizeKB,
	})

	// Step 2: ファイルツリーの選別
	em.emit(StepFileTreeFiltering, StatusInProgress, "Fetching and filtering the file tree", nil)
	branch := branchOf(repository)
	tree, filtered, err := o.filterTree(ctx, repo, branch)
	if err != nil {
		return nil, err
	}
	summary := summarize(filtered)
	logger.Info("ファイルツリーを選別しました",
		"total", summary.TotalFiles, "analyzed", summary.AnalyzedFiles, "reduction", summary.ReductionPercentage)
	em.emit(StepFileTreeFiltering, StatusCompleted, "File tree filtered", map[string]any{
		"totalFiles":          summary.TotalFiles,
		"analyzedFiles":       summary.AnalyzedFiles,
		"skippedFiles":        summary.SkippedFiles,
		"reductionPercentage": summary.ReductionPercentage,
	})

	// Step 3: 静的解析
	em.emit(StepStaticAnalysis, StatusInProgress, "Analyzing configuration files", nil)
	files, failed, err := o.fetchCriticalFiles(ctx, repo, branch, filtered.PrioritizedCritical(o.maxCriticalFetches), logger)
	if err != nil {
		return nil, err
	}
	language := repository.Language
	if language == "" {
		language = dominantLanguage(filtered.Languages)
	}
	stack := o.detector.Detect(techstack.Input{
		PrimaryLanguage: language,
		Files:           files,
		Paths:           blobPaths(tree),
	})
	databases := datastore.DetectFromDependencies(stack.Dependencies.All(), filtered.Paths())
	for name, content := range files {
		if datastore.IsComposeFile(name) {
			databases = datastore.Merge(databases, datastore.DetectFromCompose(content))
		}
	}
	envVars := []envvar.Variable{}
	for _, name := range envExampleFiles {
		if content, ok := files[name]; ok {
			envVars = envvar.Parse(content)
			break
		}
	}
	em.emit(StepStaticAnalysis, StatusCompleted, "Static analysis completed", map[string]any{
		"framework":    stack.Framework,
		"databases":    len(databases),
		"envVars":      len(envVars),
		"filesFetched": len(files),
		"filesFailed":  failed,
	})

	// Step 4: プロジェクトの目的
	em.emit(StepProjectPurpose, StatusInProgress, "Extracting project purpose", nil)
	packageDescription := techstack.PackageDescription(files)
	var (
		purpose       Purpose
		purposeFromAI bool
	)
	if readme := readmeContent(files); readme != "" {
		purpose, err = o.ai.ExtractProjectPurpose(ctx, PurposeInput{
			Readme:             readme,
			PackageDescription: packageDescription,
			RepoDescription:    repository.Description,
		})
		if err != nil {
			return nil, asUpstreamAI("analysis.ProjectPurpose", "project purpose extraction failed", err)
		}
		purposeFromAI = true
	} else {
		logger.Info("READMEがないため目的をメタデータから構成します")
		purpose = FallbackPurpose(repository, packageDescription, stack)
	}
	em.emit(StepProjectPurpose, StatusCompleted, "Project purpose identified", map[string]any{
		"fromAI":      purposeFromAI,
		"projectType": purpose.ProjectType,
	})

	// Step 5, 6: 拡張用の予約ステップ
	em.emit(StepSecurityScan, StatusInProgress, "Running security scan", nil)
	em.emit(StepSecurityScan, StatusCompleted, "Security scan skipped", map[string]any{"skipped": true})
	em.emit(StepFileUpload, StatusInProgress, "Preparing files for chat context", nil)
	em.emit(StepFileUpload, StatusCompleted, "File upload skipped", map[string]any{"skipped": true})

	// Step 7: ロードマップ生成
	em.emit(StepRoadmapGeneration, StatusInProgress, "Generating onboarding roadmap", nil)
	bundle := Bundle{
		Repository: repository,
		FileTree:   summary,
		TechStack:  stack,
		Databases:  databases,
		EnvVars:    envVars,
		Purpose:    purpose,
	}
	raw, err := o.ai.GenerateRoadmap(ctx, bundle)
	if err != nil {
		return nil, asUpstreamAI("analysis.RoadmapGeneration", "roadmap generation failed", err)
	}
	rm := roadmap.Transform(raw)
	if rm.RepositoryName == "" {
		rm.RepositoryName = repo.String()
	}
	logger.Info("ロードマップを生成しました", "sections", len(rm.Sections), "tasks", rm.TotalTasks)
	em.emit(StepRoadmapGeneration, StatusCompleted, "Roadmap generated", map[string]any{
		"sections":   len(rm.Sections),
		"totalTasks": rm.TotalTasks,
	})

	// Step 8: 完了
	finished := o.now()
	repository.AnalyzedAt = finished
	repository.AnalysisDurationMs = finished.Sub(start).Milliseconds()
	result := &Result{
		Record: Record{
			ID:            repo.ID(),
			Repository:    repository,
			FileTree:      summary,
			TechStack:     stack,
			Databases:     databases,
			EnvVars:       envVars,
			Purpose:       purpose,
			PurposeFromAI: purposeFromAI,
		},
		Roadmap: rm,
	}
	em.emit(StepComplete, StatusCompleted, "Analysis complete", map[string]any{
		"durationMs": repository.AnalysisDurationMs,
	})
	logger.Info("解析が完了しました", "duration_ms", repository.AnalysisDurationMs)

	return result, nil
}

// TreeReport はファイルツリー選別までの結果です
type TreeReport struct {
	Repository RepositoryMetadata
	Summary    FileTreeSummary
	Filtered   classifier.FilteredFileTree
}

// InspectTree はリポジトリ情報の取得とファイルツリーの選別だけを行います
func (o *Orchestrator) InspectTree(ctx context.Context, rawURL string) (*TreeReport, error) {
	repo, err := repourl.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeoutCause(ctx, o.timeout, apperr.ErrAnalysisTimeout)
	defer cancel()

	repository, err := o.accessRepository(ctx, repo)
	if err != nil {
		return nil, o.timeoutOr(ctx, err)
	}
	_, filtered, err := o.filterTree(ctx, repo, branchOf(repository))
	if err != nil {
		return nil, o.timeoutOr(ctx, err)
	}
	return &TreeReport{Repository: repository, Summary: summarize(filtered), Filtered: filtered}, nil
}

// accessRepository はメタデータを取得してサイズ上限を検証します
func (o *Orchestrator) accessRepository(ctx context.Context, repo repourl.Repository) (RepositoryMetadata, error) {
	meta, err := o.source.GetRepositoryMetadata(ctx, repo.Owner, repo.Name)
	if err != nil {
		return RepositoryMetadata{}, fmt.Errorf("リポジトリ情報の取得に失敗しました: %w", err)
	}
	if o.maxRepoSizeKB > 0 && meta.SizeKB > o.maxRepoSizeKB {
		return RepositoryMetadata{}, apperr.New(apperr.ErrSizeLimitExceeded, "analysis.RepositoryAccess",
			fmt.Sprintf("repository is %d KB, which exceeds the %d KB limit", meta.SizeKB, o.maxRepoSizeKB))
	}
	return RepositoryMetadata{
		Owner:         repo.Owner,
		Name:          repo.Name,
		URL:           repo.URL(),
		Description:   meta.Description,
		Stars:         meta.Stars,
		Forks:         meta.Forks,
		DefaultBranch: meta.DefaultBranch,
		Language:      meta.Language,
		SizeKB:        meta.SizeKB,
		IsPrivate:     meta.IsPrivate,
		CreatedAt:     meta.CreatedAt,
		UpdatedAt:     meta.UpdatedAt,
	}, nil
}

// filterTree はファイルツリーを取得して選別します
func (o *Orchestrator) filterTree(ctx context.Context, repo repourl.Repository, branch string) ([]source.TreeItem, classifier.FilteredFileTree, error) {
	tree, err := o.source.GetFileTree(ctx, repo.Owner, repo.Name, branch)
	if err != nil {
		return nil, classifier.FilteredFileTree{}, fmt.Errorf("ファイルツリーの取得に失敗しました: %w", err)
	}
	return tree, o.classifier.Classify(tree), nil
}

func branchOf(repository RepositoryMetadata) string {
	if repository.DefaultBranch == "" {
		return "main"
	}
	return repository.DefaultBranch
}

func summarize(filtered classifier.FilteredFileTree) FileTreeSummary {
	return FileTreeSummary{
		TotalFiles:          filtered.TotalFiles,
		AnalyzedFiles:       filtered.AnalyzedFiles,
		SkippedFiles:        filtered.SkippedFiles,
		ReductionPercentage: filtered.ReductionPercentage(),
		CriticalFiles:       pathsOf(filtered.CriticalFiles),
		Languages:           filtered.Languages,
	}
}

// fetchCriticalFiles は重要ファイルを順番に取得します
// 個別の取得失敗はログに残してスキップし、中断された場合のみエラーを返します
func (o *Orchestrator) fetchCriticalFiles(ctx context.Context, repo repourl.Repository, branch string, items []source.TreeItem, logger *slog.Logger) (map[string]string, int, error) {
	files := make(map[string]string, len(items))
	failed := 0
	for _, item := range items {
		content, err := o.source.GetFileContent(ctx, repo.Owner, repo.Name, item.Path, branch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, failed, ctx.Err()
			}
			failed++
			logger.Warn("ファイルの取得に失敗したためスキップします", "path", item.Path, "error", err)
			continue
		}
		name := strings.ToLower(path.Base(item.Path))
		if _, exists := files[name]; !exists {
			files[name] = content
		}
	}
	return files, failed, nil
}

// FallbackPurpose はREADMEがない場合にメタデータから目的を構成します
func FallbackPurpose(repo RepositoryMetadata, packageDescription string, stack techstack.TechStack) Purpose {
	text := strings.TrimSpace(repo.Description)
	if text == "" {
		text = packageDescription
	}
	if text == "" {
		language := repo.Language
		if language == "" {
			language = "software"
		}
		text = fmt.Sprintf("%s is a %s project.", repo.Name, language)
	}
	return Purpose{
		Purpose:     text,
		Features:    []string{},
		TargetUsers: "Developers",
		ProjectType: projectTypeOf(stack.Framework),
	}
}

func projectTypeOf(framework string) string {
	switch framework {
	case techstack.Unknown, "":
		return "unknown"
	case "Cobra", "urfave/cli":
		return "cli"
	case "Electron":
		return "desktop_application"
	case "React Native":
		return "mobile_application"
	default:
		return "web_application"
	}
}

func asUpstreamAI(op, message string, err error) error {
	if errors.Is(err, apperr.ErrUpstreamAI) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Wrap(apperr.ErrUpstreamAI, op, message, err)
}

func readmeContent(files map[string]string) string {
	for _, name := range []string{"readme.md", "readme", "readme.rst", "readme.txt"} {
		if content := strings.TrimSpace(files[name]); content != "" {
			return content
		}
	}
	return ""
}

func dominantLanguage(languages map[string]int) string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)

	best, count := "", 0
	for _, name := range names {
		if languages[name] > count {
			best, count = name, languages[name]
		}
	}
	return best
}

func pathsOf(items []source.TreeItem) []string {
	paths := make([]string, 0, len(items))
	for _, item := range items {
		paths = append(paths, item.Path)
	}
	return paths
}

func blobPaths(items []source.TreeItem) []string {
	paths := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsBlob() {
			paths = append(paths, item.Path)
		}
	}
	return paths
}
