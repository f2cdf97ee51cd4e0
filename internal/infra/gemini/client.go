// Package gemini はGemini APIによる synth.Client 実装を提供します
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/jinford/dev-onboard/internal/core/synth"
)

const (
	// DefaultModel はデフォルトで使用するGeminiモデル
	DefaultModel = "gemini-2.0-flash"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 120 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("Gemini API key not set: please set GEMINI_API_KEY environment variable")

	// ErrEmptyResponse は候補が空の場合のエラー
	ErrEmptyResponse = errors.New("gemini returned no text")

	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Config はClientの設定です
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	BaseBackoff time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Client は genai を使った synth.Client 実装
type Client struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	baseBackoff time.Duration
	logger      *slog.Logger
}

// NewClient は新しい Client を作成する
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:      gc,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		baseBackoff: cfg.BaseBackoff,
		logger:      cfg.Logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = BaseBackoff
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// GenerateCompletion は Gemini API を使用してテキストを生成する
func (c *Client) GenerateCompletion(ctx context.Context, req synth.CompletionRequest) (synth.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.ResponseFormat == synth.ResponseFormatJSON {
		config.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseBackoff
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			c.logger.Warn("レート制限のため待機して再試行します", "attempt", attempt, "backoff", backoff)

			select {
			case <-ctx.Done():
				return synth.CompletionResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return synth.CompletionResponse{}, fmt.Errorf("Gemini API call failed: %w", err)
		}

		text := resp.Text()
		if text == "" {
			return synth.CompletionResponse{}, ErrEmptyResponse
		}

		out := synth.CompletionResponse{Content: text, Model: resp.ModelVersion}
		if out.Model == "" {
			out.Model = model
		}
		if resp.UsageMetadata != nil {
			out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
		}
		return out, nil
	}

	return synth.CompletionResponse{}, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}

var _ synth.Client = (*Client)(nil)
