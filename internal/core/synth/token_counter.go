package synth

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Counter はテキストのトークン数を数える
type Counter interface {
	CountTokens(text string) int
}

// TokenCounter はtiktokenでトークン数をカウントする
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は新しいTokenCounterを作成する
// cl100k_baseエンコーディングを使用する
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &TokenCounter{encoding: encoding}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.encoding == nil {
		return EstimateTokens(text)
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// EstimateTokens は文字数からトークン数を大まかに推定する
// 3文字で1トークンとする
func EstimateTokens(text string) int {
	return len([]rune(text)) / 3
}

// EstimateCounter はEstimateTokensによるCounterです
type EstimateCounter struct{}

// CountTokens はトークン数の推定値を返す
func (EstimateCounter) CountTokens(text string) int {
	return EstimateTokens(text)
}

// TruncateToBudget はテキストをトークン予算に収まるよう末尾を切り詰める
// 予算が0以下の場合は切り詰めない
func TruncateToBudget(c Counter, text string, budget int) (string, bool) {
	if budget <= 0 || c.CountTokens(text) <= budget {
		return text, false
	}
	runes := []rune(text)
	for len(runes) > 0 {
		tokens := c.CountTokens(string(runes))
		if tokens <= budget {
			break
		}
		next := len(runes) * budget / tokens
		if next >= len(runes) {
			next = len(runes) - 1
		}
		runes = runes[:next]
	}
	return string(runes), true
}

var (
	_ Counter = (*TokenCounter)(nil)
	_ Counter = EstimateCounter{}
)
