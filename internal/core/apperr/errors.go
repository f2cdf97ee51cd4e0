package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrInvalidInput は不正なURLや必須項目の欠落を表します
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFoundOrPrivate はリポジトリが存在しないか認証が必要な場合を表します
	ErrNotFoundOrPrivate = errors.New("repository not found or private")

	// ErrRateLimited はソース管理APIのレート制限を表します
	ErrRateLimited = errors.New("rate limited")

	// ErrSizeLimitExceeded はリポジトリが最大サイズを超えている場合を表します
	ErrSizeLimitExceeded = errors.New("size limit exceeded")

	// ErrUpstreamAI は生成AIサービスが利用できない応答を返した場合を表します
	ErrUpstreamAI = errors.New("upstream ai error")

	// ErrAnalysisTimeout は解析全体のタイムアウトを表します
	ErrAnalysisTimeout = errors.New("analysis timeout")

	// ErrNotFound は保存済みレコードが存在しない場合を表します
	ErrNotFound = errors.New("not found")
)

// Error は境界で {message, code, statusCode} に変換されるエラーです
type Error struct {
	Kind       error  // 上記のセンチネルのいずれか
	Op         string // 操作名
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is はKindのセンチネルと比較できるようにします
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// New は新しいErrorを作成します
func New(kind error, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap は原因エラーを保持したErrorを作成します
func Wrap(kind error, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// RateLimited はリセットまでの待機時間付きのレート制限エラーを作成します
func RateLimited(op string, retryAfter time.Duration, err error) *Error {
	return &Error{
		Kind:       ErrRateLimited,
		Op:         op,
		Message:    "source control API rate limit exceeded",
		RetryAfter: retryAfter,
		Err:        err,
	}
}

// Problem はシステム境界で公開されるエラー表現です
type Problem struct {
	Message           string `json:"message"`
	Code              string `json:"code"`
	StatusCode        int    `json:"statusCode"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

type kindInfo struct {
	kind   error
	code   string
	status int
}

var kinds = []kindInfo{
	{ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{ErrNotFoundOrPrivate, "not_found_or_private", http.StatusNotFound},
	{ErrRateLimited, "rate_limited", http.StatusTooManyRequests},
	{ErrSizeLimitExceeded, "size_limit_exceeded", http.StatusRequestEntityTooLarge},
	{ErrUpstreamAI, "upstream_ai_error", http.StatusBadGateway},
	{ErrAnalysisTimeout, "analysis_timeout", http.StatusGatewayTimeout},
	{ErrNotFound, "not_found", http.StatusNotFound},
}

// Code はエラー種別に対応するコード文字列を返します
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.code
		}
	}
	return "internal"
}

// StatusCode はエラー種別に対応するHTTPステータスを返します
func StatusCode(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Describe はエラーを境界向けのProblemに変換します
func Describe(err error) Problem {
	p := Problem{
		Message:    "internal error",
		Code:       Code(err),
		StatusCode: StatusCode(err),
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		p.Message = appErr.Message
		if p.Message == "" {
			p.Message = appErr.Kind.Error()
		}
		if appErr.RetryAfter > 0 {
			p.RetryAfterSeconds = int(appErr.RetryAfter.Round(time.Second) / time.Second)
		}
	} else if p.Code != "internal" {
		p.Message = err.Error()
	}

	return p
}
