// Package techstack はマニフェストファイルから技術スタックを推定します
package techstack

// Unknown は検出できなかった項目のプレースホルダーです
const Unknown = "Unknown"

// Dependencies は本番用と開発用の依存パッケージ名です
type Dependencies struct {
	Production  []string `json:"production"`
	Development []string `json:"development"`
}

// All は本番用と開発用を結合した依存パッケージ名を返します
func (d Dependencies) All() []string {
	all := make([]string, 0, len(d.Production)+len(d.Development))
	all = append(all, d.Production...)
	all = append(all, d.Development...)
	return all
}

// TechStack は検出された技術スタックです
type TechStack struct {
	PrimaryLanguage  string       `json:"primary_language"`
	Framework        string       `json:"framework"`
	RuntimeVersion   string       `json:"runtime_version"`
	PackageManager   string       `json:"package_manager"`
	Dependencies     Dependencies `json:"dependencies"`
	TestingFramework *string      `json:"testing_framework"`
	Database         *string      `json:"database"`
	UILibrary        *string      `json:"ui_library"`
}

// Input は検出器への入力です
type Input struct {
	// PrimaryLanguage はリポジトリの主要言語です
	PrimaryLanguage string
	// Files は重要ファイルのベース名と内容の対応です
	Files map[string]string
	// Paths はファイルツリー上のパス一覧です（ロックファイル判定に使用）
	Paths []string
}

// unknownStack は検出に失敗した場合のスタックを返します
func unknownStack(language string) TechStack {
	if language == "" {
		language = Unknown
	}
	return TechStack{
		PrimaryLanguage: language,
		Framework:       Unknown,
		RuntimeVersion:  Unknown,
		PackageManager:  Unknown,
		Dependencies: Dependencies{
			Production:  []string{},
			Development: []string{},
		},
	}
}
