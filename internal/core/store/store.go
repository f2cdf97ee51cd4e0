// Package store はコレクション/ドキュメントIDで指定するドキュメントストアを抽象化します
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/mo"
)

// コレクション名
const (
	CollectionAnalyses     = "analyses"
	CollectionRoadmaps     = "roadmaps"
	CollectionStatus       = "analysis_status"
	CollectionUserProgress = "user_progress"
)

// DocumentStore はJSONドキュメントを保存するキーバリューストアです
type DocumentStore interface {
	// Get はドキュメントを取得します。存在しない場合はNoneを返します
	Get(ctx context.Context, collection, id string) (mo.Option[[]byte], error)

	// Set はドキュメントを作成または置換します
	Set(ctx context.Context, collection, id string, data []byte) error

	// Update はトップレベルのフィールドをマージします
	// ドキュメントが存在しない場合は apperr.ErrNotFound を返します
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// BatchDelete は複数のドキュメントを1つの単位で削除します。存在しないものは無視します
	BatchDelete(ctx context.Context, refs []Ref) error
}

// Ref はドキュメントの参照です
type Ref struct {
	Collection string
	ID         string
}

// GetJSON はドキュメントを取得してTにデコードします
func GetJSON[T any](ctx context.Context, s DocumentStore, collection, id string) (mo.Option[T], error) {
	data, err := s.Get(ctx, collection, id)
	if err != nil {
		return mo.None[T](), err
	}
	raw, ok := data.Get()
	if !ok {
		return mo.None[T](), nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return mo.None[T](), fmt.Errorf("ドキュメントのデコードに失敗しました (%s/%s): %w", collection, id, err)
	}
	return mo.Some(v), nil
}

// SetJSON はTをエンコードして保存します
func SetJSON[T any](ctx context.Context, s DocumentStore, collection, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ドキュメントのエンコードに失敗しました (%s/%s): %w", collection, id, err)
	}
	return s.Set(ctx, collection, id, data)
}

// MergeFields はJSONオブジェクトにトップレベルのフィールドを上書きマージします
// Update を素直に実装できないストア向けの共通処理です
func MergeFields(doc []byte, fields map[string]any) ([]byte, error) {
	current := map[string]any{}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &current); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
	}
	for k, v := range fields {
		current[k] = v
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return merged, nil
}
