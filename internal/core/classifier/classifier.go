// Package classifier はファイルツリーから解析対象ファイルを選別します
package classifier

import (
	"log/slog"
	"math"
	"path"
	"strings"

	"github.com/go-enry/go-enry/v2"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jinford/dev-onboard/internal/core/source"
)

// Rule は判定に使われたルールです
type Rule string

const (
	RuleExcludedDirectory Rule = "excluded_directory"
	RuleIgnorePattern     Rule = "ignore_pattern"
	RuleCriticalFile      Rule = "critical_file"
	RuleExcludedExtension Rule = "excluded_extension"
	RuleSizeLimit         Rule = "size_limit"
	RuleCodeExtension     Rule = "code_extension"
	RuleDefault           Rule = "default"
)

// Category は解析対象ファイルの分類です
type Category string

const (
	CategoryNone     Category = ""
	CategoryCritical Category = "critical"
	CategoryCode     Category = "code"
)

// Decision は1ファイルに対する判定結果です
type Decision struct {
	Analyze  bool
	Category Category
	Rule     Rule
}

// FilteredFileTree はファイルツリーの選別結果です
type FilteredFileTree struct {
	TotalFiles    int               `json:"total_files"`
	AnalyzedFiles int               `json:"analyzed_files"`
	SkippedFiles  int               `json:"skipped_files"`
	Files         []source.TreeItem `json:"files"`
	CriticalFiles []source.TreeItem `json:"critical_files"`
	CodeFiles     []source.TreeItem `json:"code_files"`
	// Languages は解析対象コードファイルの言語別件数です
	Languages map[string]int `json:"languages"`
}

// ReductionPercentage は除外されたファイルの割合（0-100の整数）を返します
func (t FilteredFileTree) ReductionPercentage() int {
	if t.TotalFiles == 0 {
		return 0
	}
	return int(math.Round(100 * float64(t.SkippedFiles) / float64(t.TotalFiles)))
}

// Paths は解析対象ファイルのパス一覧を返します
func (t FilteredFileTree) Paths() []string {
	paths := make([]string, 0, len(t.Files))
	for _, f := range t.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// PrioritizedCritical はルート直下を優先した順で最大limit件の重要ファイルを返します
func (t FilteredFileTree) PrioritizedCritical(limit int) []source.TreeItem {
	ordered := make([]source.TreeItem, 0, len(t.CriticalFiles))
	for _, f := range t.CriticalFiles {
		if !strings.Contains(f.Path, "/") {
			ordered = append(ordered, f)
		}
	}
	for _, f := range t.CriticalFiles {
		if strings.Contains(f.Path, "/") {
			ordered = append(ordered, f)
		}
	}
	if limit >= 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}

// Classifier は固定ルール表に基づいてファイルを選別します
type Classifier struct {
	ignore *ignore.GitIgnore
	logger *slog.Logger
}

// Option はClassifierのオプションです
type Option func(*Classifier)

// WithIgnorePatterns はgitignore形式の追加除外パターンを設定します
func WithIgnorePatterns(patterns ...string) Option {
	return func(c *Classifier) {
		if len(patterns) == 0 {
			return
		}
		c.ignore = ignore.CompileIgnoreLines(patterns...)
	}
}

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New は新しいClassifierを作成します
func New(opts ...Option) *Classifier {
	c := &Classifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decide はパスとサイズから解析対象かどうかを判定します
func (c *Classifier) Decide(filePath string, size int64) Decision {
	lower := strings.ToLower(filePath)

	if inExcludedDirectory(lower) {
		return Decision{Rule: RuleExcludedDirectory}
	}

	if c.ignore != nil && c.ignore.MatchesPath(filePath) {
		return Decision{Rule: RuleIgnorePattern}
	}

	if isCritical(lower) {
		return Decision{Analyze: true, Category: CategoryCritical, Rule: RuleCriticalFile}
	}

	if hasSuffix(lower, excludedExtensions) {
		return Decision{Rule: RuleExcludedExtension}
	}

	if size > MaxFileSize {
		return Decision{Rule: RuleSizeLimit}
	}

	if hasSuffix(lower, codeExtensions) {
		return Decision{Analyze: true, Category: CategoryCode, Rule: RuleCodeExtension}
	}

	return Decision{Rule: RuleDefault}
}

// ShouldAnalyze はDecideの真偽値のみを返します
func (c *Classifier) ShouldAnalyze(filePath string, size int64) bool {
	return c.Decide(filePath, size).Analyze
}

// Classify はファイルツリーを選別し、統計付きの結果を返します
func (c *Classifier) Classify(items []source.TreeItem) FilteredFileTree {
	result := FilteredFileTree{
		Files:         []source.TreeItem{},
		CriticalFiles: []source.TreeItem{},
		CodeFiles:     []source.TreeItem{},
		Languages:     map[string]int{},
	}

	for _, item := range items {
		if !item.IsBlob() {
			continue
		}
		result.TotalFiles++

		d := c.Decide(item.Path, item.Size)
		if !d.Analyze {
			result.SkippedFiles++
			continue
		}

		result.AnalyzedFiles++
		result.Files = append(result.Files, item)
		switch d.Category {
		case CategoryCritical:
			result.CriticalFiles = append(result.CriticalFiles, item)
		case CategoryCode:
			result.CodeFiles = append(result.CodeFiles, item)
			if lang := enry.GetLanguage(path.Base(item.Path), nil); lang != "" {
				result.Languages[lang]++
			}
		}
	}

	c.logger.Debug("ファイルツリーを選別しました",
		"total", result.TotalFiles,
		"analyzed", result.AnalyzedFiles,
		"critical", len(result.CriticalFiles),
		"reduction", result.ReductionPercentage())

	return result
}

// Classify はデフォルト設定でファイルツリーを選別します
func Classify(items []source.TreeItem) FilteredFileTree {
	return New().Classify(items)
}

// inExcludedDirectory はディレクトリ部分に除外ディレクトリが含まれるかを判定します
func inExcludedDirectory(lowerPath string) bool {
	dir := path.Dir(lowerPath)
	if dir == "." || dir == "/" {
		return false
	}
	wrapped := "/" + strings.Trim(dir, "/") + "/"
	for _, d := range excludedDirectories {
		if strings.Contains(wrapped, "/"+d+"/") {
			return true
		}
	}
	return false
}

func isCritical(lowerPath string) bool {
	base := path.Base(lowerPath)
	for _, name := range criticalFiles {
		if base == name {
			return true
		}
	}
	for _, suffix := range criticalPathSuffixes {
		if lowerPath == suffix || strings.HasSuffix(lowerPath, "/"+suffix) {
			return true
		}
	}
	return false
}

func hasSuffix(lowerPath string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(lowerPath, s) {
			return true
		}
	}
	return false
}
