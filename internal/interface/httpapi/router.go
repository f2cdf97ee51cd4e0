// Package httpapi は解析サービスをHTTPで公開します
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/progress"
	"github.com/jinford/dev-onboard/internal/core/repourl"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
)

// AnalysisService は解析エンドポイントが使う操作です
type AnalysisService interface {
	Analyze(ctx context.Context, req analysis.Request, progress analysis.ProgressFunc) (*analysis.Result, error)
	Get(ctx context.Context, repo repourl.Repository) (analysis.Record, error)
	GetRoadmap(ctx context.Context, repo repourl.Repository) (roadmap.Roadmap, error)
	GetStatus(ctx context.Context, repo repourl.Repository) (analysis.StatusRecord, error)
	Delete(ctx context.Context, repo repourl.Repository) error
}

// ProgressService は進捗エンドポイントが使う操作です
type ProgressService interface {
	Get(ctx context.Context, userID string, repo repourl.Repository) (roadmap.Progress, error)
	CompleteTask(ctx context.Context, userID string, repo repourl.Repository, taskID string) (progress.Update, error)
	UncompleteTask(ctx context.Context, userID string, repo repourl.Repository, taskID string) (roadmap.Progress, error)
	Reset(ctx context.Context, userID string, repo repourl.Repository) error
}

var (
	_ AnalysisService = (*analysis.Service)(nil)
	_ ProgressService = (*progress.Service)(nil)
)

// Dependencies はルーターが必要とする依存関係です
type Dependencies struct {
	Logger   *slog.Logger
	Analyses AnalysisService
	Progress ProgressService
}

// NewRouter はミドルウェアとルートを登録したハンドラを返します
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{
		analyses: deps.Analyses,
		progress: deps.Progress,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Get("/health", h.health)

	router.Route("/api", func(api chi.Router) {
		api.Post("/analyses", h.createAnalysis)
		api.Route("/analyses/{owner}/{repo}", func(r chi.Router) {
			r.Get("/", h.getAnalysis)
			r.Delete("/", h.deleteAnalysis)
			r.Get("/roadmap", h.getRoadmap)
			r.Get("/status", h.getStatus)
		})

		api.Route("/users/{userID}/progress/{owner}/{repo}", func(r chi.Router) {
			r.Get("/", h.getProgress)
			r.Delete("/", h.resetProgress)
			r.Put("/tasks/{taskID}", h.completeTask)
			r.Delete("/tasks/{taskID}", h.uncompleteTask)
		})
	})

	return router
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("HTTPリクエスト",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
