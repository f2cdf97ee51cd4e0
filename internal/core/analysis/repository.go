package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
	"github.com/jinford/dev-onboard/internal/core/store"
)

// StatusRecord は解析の最新進捗です
type StatusRecord struct {
	ID        string         `json:"id"`
	RunID     string         `json:"runId"`
	Step      int            `json:"step"`
	StepName  string         `json:"stepName"`
	Status    StepStatus     `json:"status"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Repository は解析結果をドキュメントストアに保存します
type Repository struct {
	store store.DocumentStore
}

// NewRepository は新しいRepositoryを作成します
func NewRepository(s store.DocumentStore) *Repository {
	return &Repository{store: s}
}

// FindRecord は解析結果を取得します
func (r *Repository) FindRecord(ctx context.Context, id string) (mo.Option[Record], error) {
	return store.GetJSON[Record](ctx, r.store, store.CollectionAnalyses, id)
}

// FindRoadmap はロードマップを取得します
func (r *Repository) FindRoadmap(ctx context.Context, id string) (mo.Option[roadmap.Roadmap], error) {
	return store.GetJSON[roadmap.Roadmap](ctx, r.store, store.CollectionRoadmaps, id)
}

// FindStatus は最新の進捗を取得します
func (r *Repository) FindStatus(ctx context.Context, id string) (mo.Option[StatusRecord], error) {
	return store.GetJSON[StatusRecord](ctx, r.store, store.CollectionStatus, id)
}

// SaveResult は解析結果とロードマップを保存します
func (r *Repository) SaveResult(ctx context.Context, result *Result) error {
	id := result.Record.ID
	if err := store.SetJSON(ctx, r.store, store.CollectionAnalyses, id, result.Record); err != nil {
		return fmt.Errorf("解析結果の保存に失敗しました: %w", err)
	}
	if err := store.SetJSON(ctx, r.store, store.CollectionRoadmaps, id, result.Roadmap); err != nil {
		return fmt.Errorf("ロードマップの保存に失敗しました: %w", err)
	}
	return nil
}

// SaveStatus は進捗イベントを最新状態として記録します
func (r *Repository) SaveStatus(ctx context.Context, id string, ev Event) error {
	fields := map[string]any{
		"runId":     ev.RunID,
		"step":      ev.Step,
		"stepName":  ev.StepName,
		"status":    ev.Status,
		"message":   ev.Message,
		"details":   ev.Details,
		"updatedAt": ev.Timestamp,
	}
	err := r.store.Update(ctx, store.CollectionStatus, id, fields)
	if errors.Is(err, apperr.ErrNotFound) {
		return store.SetJSON(ctx, r.store, store.CollectionStatus, id, StatusRecord{
			ID:        id,
			RunID:     ev.RunID,
			Step:      ev.Step,
			StepName:  ev.StepName,
			Status:    ev.Status,
			Message:   ev.Message,
			Details:   ev.Details,
			UpdatedAt: ev.Timestamp,
		})
	}
	return err
}

// Delete は解析結果・ロードマップ・進捗をまとめて削除します
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.BatchDelete(ctx, []store.Ref{
		{Collection: store.CollectionAnalyses, ID: id},
		{Collection: store.CollectionRoadmaps, ID: id},
		{Collection: store.CollectionStatus, ID: id},
	})
}
