// Package source はソース管理サービスから取得するリポジトリ情報のモデルとポートを定義します
package source

import (
	"context"
	"time"
)

// ItemType はファイルツリー項目の種別です
type ItemType string

const (
	ItemTypeBlob ItemType = "blob"
	ItemTypeTree ItemType = "tree"
)

// TreeItem はファイルツリーの1項目を表します
type TreeItem struct {
	Path string   `json:"path"`
	Type ItemType `json:"type"`
	Size int64    `json:"size"`
	SHA  string   `json:"sha"`
	URL  string   `json:"url"`
}

// IsBlob はファイル項目かどうかを返します
func (i TreeItem) IsBlob() bool {
	return i.Type == ItemTypeBlob
}

// Metadata はソース管理サービスから取得したリポジトリ情報です
type Metadata struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	DefaultBranch string    `json:"default_branch"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Language      string    `json:"language"`
	SizeKB        int64     `json:"size_kb"`
	IsPrivate     bool      `json:"is_private"`
}

// Provider はソース管理サービスへのアクセスを抽象化します
// 存在しない/非公開のリポジトリは apperr.ErrNotFoundOrPrivate、
// レート制限は apperr.ErrRateLimited として返す必要があります
type Provider interface {
	// GetRepositoryMetadata はリポジトリのメタデータを取得します
	GetRepositoryMetadata(ctx context.Context, owner, repo string) (Metadata, error)

	// GetFileTree はブランチの全ファイルツリーをフラットなリストで取得します
	GetFileTree(ctx context.Context, owner, repo, branch string) ([]TreeItem, error)

	// GetFileContent はファイル内容をUTF-8テキストで取得します
	GetFileContent(ctx context.Context, owner, repo, path, branch string) (string, error)
}

// FallbackBranch はブランチが見つからない場合に試す慣習的なブランチ名を返します
func FallbackBranch(branch string) string {
	if branch == "main" {
		return "master"
	}
	return "main"
}
