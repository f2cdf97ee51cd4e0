// Package progress はユーザーごとのロードマップ進捗を管理します
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/repourl"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
	"github.com/jinford/dev-onboard/internal/core/store"
)

// RoadmapFinder は保存済みロードマップの参照です
type RoadmapFinder interface {
	FindRoadmap(ctx context.Context, id string) (mo.Option[roadmap.Roadmap], error)
}

// Update は進捗更新の結果です
type Update struct {
	Progress roadmap.Progress `json:"progress"`
	// Milestones は今回の更新で新たに到達したマイルストーン(%)
	Milestones []int `json:"milestones"`
}

// Service は進捗の取得と更新を行います
type Service struct {
	store      store.DocumentStore
	roadmaps   RoadmapFinder
	milestones []int
	logger     *slog.Logger
	now        func() time.Time
}

// Option はServiceのオプションです
type Option func(*Service)

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMilestones はマイルストーンの閾値を設定します
func WithMilestones(milestones []int) Option {
	return func(s *Service) {
		s.milestones = milestones
	}
}

// WithClock は現在時刻の取得関数を設定します
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService は新しいServiceを作成します
func NewService(docs store.DocumentStore, roadmaps RoadmapFinder, opts ...Option) *Service {
	s := &Service{
		store:      docs,
		roadmaps:   roadmaps,
		milestones: roadmap.DefaultMilestones,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DocumentID は進捗ドキュメントのIDを返します
func DocumentID(userID, repositoryID string) string {
	return userID + "_" + repositoryID
}

// Get はユーザーの進捗を取得します。未着手の場合は空の進捗を返します
func (s *Service) Get(ctx context.Context, userID string, repo repourl.Repository) (roadmap.Progress, error) {
	if err := validateUserID("progress.Get", userID); err != nil {
		return roadmap.Progress{}, err
	}
	p, _, err := s.load(ctx, userID, repo.ID())
	return p, err
}

// CompleteTask はタスクを完了にします
func (s *Service) CompleteTask(ctx context.Context, userID string, repo repourl.Repository, taskID string) (Update, error) {
	const op = "progress.CompleteTask"

	rm, err := s.roadmapFor(ctx, op, userID, repo, taskID)
	if err != nil {
		return Update{}, err
	}
	p, _, err := s.load(ctx, userID, repo.ID())
	if err != nil {
		return Update{}, err
	}

	crossed := p.Complete(taskID, rm.TotalTasks, s.milestones, s.now())
	if err := s.save(ctx, p); err != nil {
		return Update{}, err
	}

	logger := s.logger.With("user", userID, "repository", repo.String(), "task", taskID)
	logger.Info("タスクを完了にしました", "percentage", p.Percentage)
	for _, m := range crossed {
		logger.Info("マイルストーンに到達しました", "milestone", m)
	}
	return Update{Progress: p, Milestones: crossed}, nil
}

// UncompleteTask はタスクの完了を取り消します
func (s *Service) UncompleteTask(ctx context.Context, userID string, repo repourl.Repository, taskID string) (roadmap.Progress, error) {
	const op = "progress.UncompleteTask"

	rm, err := s.roadmapFor(ctx, op, userID, repo, taskID)
	if err != nil {
		return roadmap.Progress{}, err
	}
	p, stored, err := s.load(ctx, userID, repo.ID())
	if err != nil {
		return roadmap.Progress{}, err
	}
	if !stored || !p.IsCompleted(taskID) {
		return p, nil
	}

	p.Uncomplete(taskID, rm.TotalTasks, s.now())
	if err := s.save(ctx, p); err != nil {
		return roadmap.Progress{}, err
	}
	s.logger.Info("タスクの完了を取り消しました", "user", userID, "repository", repo.String(), "task", taskID)
	return p, nil
}

// Reset はユーザーの進捗を削除します
func (s *Service) Reset(ctx context.Context, userID string, repo repourl.Repository) error {
	if err := validateUserID("progress.Reset", userID); err != nil {
		return err
	}
	ref := store.Ref{Collection: store.CollectionUserProgress, ID: DocumentID(userID, repo.ID())}
	if err := s.store.BatchDelete(ctx, []store.Ref{ref}); err != nil {
		return fmt.Errorf("進捗の削除に失敗しました: %w", err)
	}
	s.logger.Info("進捗をリセットしました", "user", userID, "repository", repo.String())
	return nil
}

func (s *Service) roadmapFor(ctx context.Context, op, userID string, repo repourl.Repository, taskID string) (roadmap.Roadmap, error) {
	if err := validateUserID(op, userID); err != nil {
		return roadmap.Roadmap{}, err
	}
	found, err := s.roadmaps.FindRoadmap(ctx, repo.ID())
	if err != nil {
		return roadmap.Roadmap{}, fmt.Errorf("ロードマップの取得に失敗しました: %w", err)
	}
	rm, ok := found.Get()
	if !ok {
		return roadmap.Roadmap{}, apperr.New(apperr.ErrNotFound, op, "no roadmap stored for "+repo.String())
	}
	if !rm.HasTask(taskID) {
		return roadmap.Roadmap{}, apperr.New(apperr.ErrInvalidInput, op, fmt.Sprintf("task %q does not exist in the roadmap", taskID))
	}
	return rm, nil
}

func (s *Service) load(ctx context.Context, userID, repoID string) (roadmap.Progress, bool, error) {
	found, err := store.GetJSON[roadmap.Progress](ctx, s.store, store.CollectionUserProgress, DocumentID(userID, repoID))
	if err != nil {
		return roadmap.Progress{}, false, fmt.Errorf("進捗の取得に失敗しました: %w", err)
	}
	if p, ok := found.Get(); ok {
		if p.CompletedTasks == nil {
			p.CompletedTasks = []string{}
		}
		return p, true, nil
	}
	return roadmap.NewProgress(userID, repoID, s.now()), false, nil
}

func (s *Service) save(ctx context.Context, p roadmap.Progress) error {
	if err := store.SetJSON(ctx, s.store, store.CollectionUserProgress, DocumentID(p.UserID, p.RepositoryID), p); err != nil {
		return fmt.Errorf("進捗の保存に失敗しました: %w", err)
	}
	return nil
}

func validateUserID(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.New(apperr.ErrInvalidInput, op, "user id is required")
	}
	return nil
}
