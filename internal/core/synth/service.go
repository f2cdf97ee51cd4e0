package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
)

// Service は生成AIクライアントの上に目的抽出とロードマップ生成を実装します
type Service struct {
	client      Client
	counter     Counter
	validate    *validator.Validate
	logger      *slog.Logger
	model       string
	temperature *float64
	maxTokens   int
	budget      int
}

// Option はServiceのオプションです
type Option func(*Service)

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCounter はトークンカウンターを設定します
func WithCounter(c Counter) Option {
	return func(s *Service) {
		s.counter = c
	}
}

// WithModel はモデル名を上書きします
func WithModel(model string) Option {
	return func(s *Service) {
		s.model = model
	}
}

// WithTemperature は両方の呼び出しの温度設定を上書きします
func WithTemperature(t float64) Option {
	return func(s *Service) {
		s.temperature = &t
	}
}

// WithMaxTokens はロードマップ生成の最大トークン数を上書きします
func WithMaxTokens(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithPromptTokenBudget はプロンプトに含めるREADMEのトークン上限を設定します
func WithPromptTokenBudget(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.budget = n
		}
	}
}

// NewService は新しいServiceを作成します
func NewService(client Client, opts ...Option) *Service {
	s := &Service{
		client:    client,
		counter:   EstimateCounter{},
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    slog.Default(),
		maxTokens: RoadmapMaxTokens,
		budget:    DefaultPromptTokenBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractProjectPurpose はREADMEからプロジェクトの目的を抽出します
func (s *Service) ExtractProjectPurpose(ctx context.Context, in analysis.PurposeInput) (analysis.Purpose, error) {
	const op = "synth.ExtractProjectPurpose"

	if strings.TrimSpace(in.Readme) == "" {
		return analysis.Purpose{}, apperr.New(apperr.ErrInvalidInput, op, "README content is empty")
	}

	readme, truncated := TruncateToBudget(s.counter, in.Readme, s.budget)
	if truncated {
		s.logger.Info("READMEをトークン上限に合わせて切り詰めました", "budget", s.budget)
	}

	resp, err := s.complete(ctx, buildPurposePrompt(readme, in), PurposeTemperature, PurposeMaxTokens)
	if err != nil {
		return analysis.Purpose{}, upstream(op, "purpose extraction failed", err)
	}

	raw, err := ExtractJSON(resp.Content)
	if err != nil {
		s.logger.Warn("目的抽出の応答からJSONを取り出せませんでした", "error", err)
		return analysis.Purpose{}, upstream(op, "purpose response is not JSON", err)
	}

	var purpose analysis.Purpose
	if err := json.Unmarshal(raw, &purpose); err != nil {
		return analysis.Purpose{}, upstream(op, "purpose response has an unexpected shape", err)
	}
	purpose.Purpose = strings.TrimSpace(purpose.Purpose)
	if err := s.validate.Struct(purpose); err != nil {
		return analysis.Purpose{}, upstream(op, "purpose response failed validation", err)
	}
	if purpose.Features == nil {
		purpose.Features = []string{}
	}

	s.logger.Debug("プロジェクトの目的を抽出しました", "tokens", resp.TokensUsed, "model", resp.Model)
	return purpose, nil
}

// GenerateRoadmap は解析結果からロードマップを生成します
// 欠けたフィールドは変換時に補完されるため、JSONオブジェクトであれば受け入れます
func (s *Service) GenerateRoadmap(ctx context.Context, bundle analysis.Bundle) (roadmap.RawRoadmap, error) {
	const op = "synth.GenerateRoadmap"

	prompt, err := buildRoadmapPrompt(bundle)
	if err != nil {
		return roadmap.RawRoadmap{}, err
	}
	s.logger.Debug("ロードマップ生成プロンプトを構築しました", "tokens", s.counter.CountTokens(prompt))

	resp, err := s.complete(ctx, prompt, RoadmapTemperature, s.maxTokens)
	if err != nil {
		return roadmap.RawRoadmap{}, upstream(op, "roadmap generation failed", err)
	}

	data, err := ExtractJSON(resp.Content)
	if err != nil {
		return roadmap.RawRoadmap{}, upstream(op, "roadmap response is not JSON", err)
	}
	raw, err := roadmap.ParseRaw(data)
	if err != nil {
		return roadmap.RawRoadmap{}, upstream(op, "roadmap response is not a JSON object", err)
	}
	if raw.IsEmpty() {
		s.logger.Warn("ロードマップの応答にセクションがありません")
	}

	s.logger.Debug("ロードマップを生成しました", "tokens", resp.TokensUsed, "model", resp.Model)
	return raw, nil
}

func (s *Service) complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (CompletionResponse, error) {
	if s.temperature != nil {
		temperature = *s.temperature
	}
	return s.client.GenerateCompletion(ctx, CompletionRequest{
		Prompt:         prompt,
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: ResponseFormatJSON,
		Model:          s.model,
	})
}

// upstream はクライアントのエラーをErrUpstreamAIに変換します
// コンテキストのエラーはタイムアウト判定のためそのまま返します
func upstream(op, message string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, apperr.ErrUpstreamAI) {
		return err
	}
	return apperr.Wrap(apperr.ErrUpstreamAI, op, fmt.Sprintf("%s: %v", message, err), err)
}

var _ analysis.AIService = (*Service)(nil)
