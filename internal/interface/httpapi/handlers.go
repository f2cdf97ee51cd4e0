package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/repourl"
)

// maxRequestBodyBytes はリクエストボディの上限です
const maxRequestBodyBytes = 1 << 20 // 1MB

type handler struct {
	analyses AnalysisService
	progress ProgressService
	validate *validator.Validate
	logger   *slog.Logger
}

type taskParams struct {
	UserID string `validate:"required,max=128"`
	TaskID string `validate:"required,max=128"`
}

// streamLine はストリーミング応答の1行です
type streamLine struct {
	Event  *analysis.Event  `json:"event,omitempty"`
	Result *analysis.Result `json:"result,omitempty"`
	Error  *apperr.Problem  `json:"error,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createAnalysis は POST /api/analyses を処理します
// ?stream=true の場合は進捗イベントを NDJSON で逐次返します
func (h *handler) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.logger, apperr.Wrap(apperr.ErrSizeLimitExceeded, "httpapi.createAnalysis", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), err))
			return
		}
		writeError(w, h.logger, apperr.Wrap(apperr.ErrInvalidInput, "httpapi.createAnalysis", "request body must be a JSON object", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperr.Wrap(apperr.ErrInvalidInput, "httpapi.createAnalysis", "url is required", err))
		return
	}
	req.URL = repourl.Canonicalize(req.URL)

	stream, _ := strconv.ParseBool(r.URL.Query().Get("stream"))
	flusher, canFlush := w.(http.Flusher)
	if !stream || !canFlush {
		result, err := h.analyses.Analyze(r.Context(), req, nil)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	var mu sync.Mutex
	send := func(line streamLine) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(line); err != nil {
			h.logger.Debug("ストリームへの書き込みに失敗しました", "error", err)
			return
		}
		flusher.Flush()
	}

	result, err := h.analyses.Analyze(r.Context(), req, func(ev analysis.Event) {
		send(streamLine{Event: &ev})
	})
	if err != nil {
		p := apperr.Describe(err)
		h.logger.Error("解析に失敗しました", "code", p.Code, "error", err)
		send(streamLine{Error: &p})
		return
	}
	send(streamLine{Result: result})
}

func (h *handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	record, err := h.analyses.Get(r.Context(), repo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *handler) getRoadmap(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	rm, err := h.analyses.GetRoadmap(r.Context(), repo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	status, err := h.analyses.GetStatus(r.Context(), repo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	if err := h.analyses.Delete(r.Context(), repo); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getProgress(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	p, err := h.progress.Get(r.Context(), chi.URLParam(r, "userID"), repo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) resetProgress(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repository(w, r)
	if !ok {
		return
	}
	if err := h.progress.Reset(r.Context(), chi.URLParam(r, "userID"), repo); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) completeTask(w http.ResponseWriter, r *http.Request) {
	repo, params, ok := h.taskRequest(w, r)
	if !ok {
		return
	}
	update, err := h.progress.CompleteTask(r.Context(), params.UserID, repo, params.TaskID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *handler) uncompleteTask(w http.ResponseWriter, r *http.Request) {
	repo, params, ok := h.taskRequest(w, r)
	if !ok {
		return
	}
	p, err := h.progress.UncompleteTask(r.Context(), params.UserID, repo, params.TaskID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// repository はパスの {owner}/{repo} からリポジトリを組み立てます
func (h *handler) repository(w http.ResponseWriter, r *http.Request) (repourl.Repository, bool) {
	raw := fmt.Sprintf("https://github.com/%s/%s", chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	repo, err := repourl.Parse(raw)
	if err != nil {
		writeError(w, h.logger, err)
		return repourl.Repository{}, false
	}
	return repo, true
}

func (h *handler) taskRequest(w http.ResponseWriter, r *http.Request) (repourl.Repository, taskParams, bool) {
	repo, ok := h.repository(w, r)
	if !ok {
		return repourl.Repository{}, taskParams{}, false
	}
	params := taskParams{
		UserID: chi.URLParam(r, "userID"),
		TaskID: chi.URLParam(r, "taskID"),
	}
	if err := h.validate.Struct(params); err != nil {
		writeError(w, h.logger, apperr.Wrap(apperr.ErrInvalidInput, "httpapi.taskRequest", "user id and task id are required", err))
		return repourl.Repository{}, taskParams{}, false
	}
	return repo, params, true
}
