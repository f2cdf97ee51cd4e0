// Package synth は生成AIによるプロジェクト目的抽出とロードマップ生成を提供します
package synth

import "context"

// Client は生成AIプロバイダとのやり取りを抽象化する共通インターフェース
type Client interface {
	// GenerateCompletion はプロンプトに基づいて応答を生成する
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// CompletionRequest は生成AIへのリクエストパラメータ
type CompletionRequest struct {
	// Prompt は送信するプロンプト
	Prompt string

	// Temperature は生成の多様性を制御する (0.0-2.0)
	Temperature float64

	// MaxTokens は生成する最大トークン数
	MaxTokens int

	// ResponseFormat はレスポンスの形式 ("json" or "text")
	ResponseFormat string

	// Model はモデル名 (省略時はデフォルトモデルを使用)
	Model string
}

// CompletionResponse は生成AIからのレスポンス
type CompletionResponse struct {
	Content    string
	TokensUsed int
	Model      string
}

// ResponseFormatJSON はJSONモードを要求する
const ResponseFormatJSON = "json"
