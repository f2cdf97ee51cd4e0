package analysis

import (
	"time"

	"github.com/jinford/dev-onboard/internal/core/datastore"
	"github.com/jinford/dev-onboard/internal/core/envvar"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
	"github.com/jinford/dev-onboard/internal/core/techstack"
)

// RepositoryMetadata は解析対象リポジトリの情報です
type RepositoryMetadata struct {
	Owner              string    `json:"owner"`
	Name               string    `json:"name"`
	URL                string    `json:"url"`
	Description        string    `json:"description"`
	Stars              int       `json:"stars"`
	Forks              int       `json:"forks"`
	DefaultBranch      string    `json:"default_branch"`
	Language           string    `json:"language"`
	SizeKB             int64     `json:"size_kb"`
	IsPrivate          bool      `json:"is_private"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
	AnalysisDurationMs int64     `json:"analysis_duration_ms"`
}

// Purpose はプロジェクトの目的です
type Purpose struct {
	Purpose     string   `json:"purpose" validate:"required"`
	Features    []string `json:"features" validate:"dive,required"`
	TargetUsers string   `json:"target_users"`
	ProjectType string   `json:"project_type"`
}

// PurposeInput は目的抽出の入力です
type PurposeInput struct {
	Readme             string
	PackageDescription string
	RepoDescription    string
}

// FileTreeSummary はファイルツリー選別結果の要約です
type FileTreeSummary struct {
	TotalFiles          int            `json:"total_files"`
	AnalyzedFiles       int            `json:"analyzed_files"`
	SkippedFiles        int            `json:"skipped_files"`
	ReductionPercentage int            `json:"reduction_percentage"`
	CriticalFiles       []string       `json:"critical_files"`
	Languages           map[string]int `json:"languages"`
}

// Record は永続化される解析結果です
type Record struct {
	ID            string                  `json:"id"`
	Repository    RepositoryMetadata      `json:"repository"`
	FileTree      FileTreeSummary         `json:"file_tree"`
	TechStack     techstack.TechStack     `json:"tech_stack"`
	Databases     []datastore.Requirement `json:"databases"`
	EnvVars       []envvar.Variable       `json:"env_vars"`
	Purpose       Purpose                 `json:"purpose"`
	PurposeFromAI bool                    `json:"purpose_from_ai"`
}

// Result は解析の最終結果です
type Result struct {
	Record  Record          `json:"analysis"`
	Roadmap roadmap.Roadmap `json:"roadmap"`
	Cached  bool            `json:"cached"`
}

// Bundle はロードマップ生成に渡す集約データです
type Bundle struct {
	Repository RepositoryMetadata      `json:"repository"`
	FileTree   FileTreeSummary         `json:"file_tree"`
	TechStack  techstack.TechStack     `json:"tech_stack"`
	Databases  []datastore.Requirement `json:"databases"`
	EnvVars    []envvar.Variable       `json:"env_vars"`
	Purpose    Purpose                 `json:"purpose"`
}
