package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jinford/dev-onboard/internal/core/apperr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError はエラーを {message, code, statusCode} で返します
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	p := apperr.Describe(err)
	if p.StatusCode >= http.StatusInternalServerError {
		logger.Error("リクエストの処理に失敗しました", "code", p.Code, "error", err)
	} else {
		logger.Info("リクエストを拒否しました", "code", p.Code, "error", err)
	}
	if p.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(p.RetryAfterSeconds))
	}
	writeJSON(w, p.StatusCode, p)
}
