package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/repourl"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
)

// DefaultCacheTTL は保存済み解析結果を再利用する期間です
const DefaultCacheTTL = 30 * 24 * time.Hour

// Analyzer は解析パイプラインです
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string, progress ProgressFunc) (*Result, error)
}

// Request は解析リクエストです
type Request struct {
	URL   string `json:"url" validate:"required"`
	Force bool   `json:"force"`
}

// Service はキャッシュと永続化を伴う解析サービスです
type Service struct {
	analyzer Analyzer
	repo     *Repository
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption はServiceのオプションです
type ServiceOption func(*Service)

// WithServiceLogger はロガーを設定します
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCacheTTL はキャッシュの有効期間を設定します。0以下でキャッシュを無効にします
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

// WithServiceClock は現在時刻の取得関数を設定します
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService は新しいServiceを作成します
func NewService(analyzer Analyzer, repo *Repository, opts ...ServiceOption) *Service {
	s := &Service{
		analyzer: analyzer,
		repo:     repo,
		cacheTTL: DefaultCacheTTL,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze はキャッシュを確認し、必要なら解析を実行して結果を保存します
// キャッシュの読み取りに失敗した場合は新規解析に切り替えます
func (s *Service) Analyze(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	repo, err := repourl.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	id := repo.ID()
	logger := s.logger.With("repository", repo.String())

	if !req.Force && s.cacheTTL > 0 {
		if cached, ok := s.cached(ctx, id, logger); ok {
			logger.Info("キャッシュ済みの解析結果を返します")
			return cached, nil
		}
	}

	sink := func(ev Event) {
		if err := s.repo.SaveStatus(ctx, id, ev); err != nil {
			logger.Warn("進捗の保存に失敗しました", "step", ev.Step, "error", err)
		}
		if progress != nil {
			progress(ev)
		}
	}

	result, err := s.analyzer.Analyze(ctx, repo.URL(), sink)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveResult(ctx, result); err != nil {
		logger.Error("解析結果を保存できませんでした", "error", err)
	}
	return result, nil
}

func (s *Service) cached(ctx context.Context, id string, logger *slog.Logger) (*Result, bool) {
	record, err := s.repo.FindRecord(ctx, id)
	if err != nil {
		logger.Warn("キャッシュの読み取りに失敗したため新規に解析します", "error", err)
		return nil, false
	}
	rec, ok := record.Get()
	if !ok || s.now().Sub(rec.Repository.AnalyzedAt) >= s.cacheTTL {
		return nil, false
	}

	rm, err := s.repo.FindRoadmap(ctx, id)
	if err != nil {
		logger.Warn("キャッシュの読み取りに失敗したため新規に解析します", "error", err)
		return nil, false
	}
	roadmapValue, ok := rm.Get()
	if !ok {
		return nil, false
	}
	return &Result{Record: rec, Roadmap: roadmapValue, Cached: true}, true
}

// Get は保存済みの解析結果を取得します
func (s *Service) Get(ctx context.Context, repo repourl.Repository) (Record, error) {
	record, err := s.repo.FindRecord(ctx, repo.ID())
	if err != nil {
		return Record{}, fmt.Errorf("解析結果の取得に失敗しました: %w", err)
	}
	rec, ok := record.Get()
	if !ok {
		return Record{}, notFound("analysis.Get", "analysis", repo)
	}
	return rec, nil
}

// GetRoadmap は保存済みのロードマップを取得します
func (s *Service) GetRoadmap(ctx context.Context, repo repourl.Repository) (roadmap.Roadmap, error) {
	rm, err := s.repo.FindRoadmap(ctx, repo.ID())
	if err != nil {
		return roadmap.Roadmap{}, fmt.Errorf("ロードマップの取得に失敗しました: %w", err)
	}
	v, ok := rm.Get()
	if !ok {
		return roadmap.Roadmap{}, notFound("analysis.GetRoadmap", "roadmap", repo)
	}
	return v, nil
}

// GetStatus は最新の進捗を取得します
func (s *Service) GetStatus(ctx context.Context, repo repourl.Repository) (StatusRecord, error) {
	st, err := s.repo.FindStatus(ctx, repo.ID())
	if err != nil {
		return StatusRecord{}, fmt.Errorf("進捗の取得に失敗しました: %w", err)
	}
	v, ok := st.Get()
	if !ok {
		return StatusRecord{}, notFound("analysis.GetStatus", "analysis status", repo)
	}
	return v, nil
}

// Delete は解析結果を削除します
func (s *Service) Delete(ctx context.Context, repo repourl.Repository) error {
	if err := s.repo.Delete(ctx, repo.ID()); err != nil {
		return fmt.Errorf("解析結果の削除に失敗しました: %w", err)
	}
	s.logger.Info("解析結果を削除しました", "repository", repo.String())
	return nil
}

func notFound(op, what string, repo repourl.Repository) error {
	return apperr.New(apperr.ErrNotFound, op, fmt.Sprintf("no %s stored for %s", what, repo.String()))
}
