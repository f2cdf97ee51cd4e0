package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/synth"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

// newTestClient は応答を順番に返すサーバーに接続したClientを作成します
func newTestClient(t *testing.T, statuses []int, contents []string) (*Client, *atomic.Int32, *[]map[string]any) {
	t.Helper()
	var calls atomic.Int32
	var bodies []map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		i := int(calls.Add(1)) - 1
		w.Header().Set("Content-Type", "application/json")
		if i < len(statuses) && statuses[i] != http.StatusOK {
			w.WriteHeader(statuses[i])
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited", "type": "requests"}})
			return
		}
		content := contents[len(contents)-1]
		if i < len(contents) {
			content = contents[i]
		}
		_ = json.NewEncoder(w).Encode(completionBody(content))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     server.URL + "/",
		BaseBackoff: time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return client, &calls, &bodies
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestGenerateCompletion(t *testing.T) {
	client, calls, bodies := newTestClient(t, nil, []string{`{"purpose":"x"}`})

	resp, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{
		Prompt:         "hello",
		Temperature:    0.2,
		MaxTokens:      100,
		ResponseFormat: synth.ResponseFormatJSON,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"purpose":"x"}`, resp.Content)
	assert.Equal(t, 15, resp.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, int32(1), calls.Load())

	body := (*bodies)[0]
	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	assert.EqualValues(t, 100, body["max_tokens"])
}

func TestGenerateCompletionRetriesRateLimits(t *testing.T) {
	client, calls, _ := newTestClient(t, []int{http.StatusTooManyRequests, http.StatusTooManyRequests}, []string{"", "", "plain text"})

	resp, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{Prompt: "hello", Model: "custom"})

	require.NoError(t, err)
	assert.Equal(t, "plain text", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateCompletionGivesUpAfterMaxRetries(t *testing.T) {
	statuses := []int{429, 429, 429, 429, 429}
	client, calls, _ := newTestClient(t, statuses, []string{""})

	_, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{Prompt: "hello"})

	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, int32(MaxRetries+1), calls.Load())
}

func TestGenerateCompletionReasksOnInvalidJSON(t *testing.T) {
	client, calls, _ := newTestClient(t, nil, []string{"not json", `{"ok":true}`})

	resp, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{Prompt: "hello", ResponseFormat: synth.ResponseFormatJSON})

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateCompletionFailsOnRepeatedInvalidJSON(t *testing.T) {
	client, _, _ := newTestClient(t, nil, []string{"not json"})

	_, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{Prompt: "hello", ResponseFormat: synth.ResponseFormatJSON})

	assert.ErrorIs(t, err, ErrInvalidResponseFormat)
}

func TestGenerateCompletionDoesNotRetryOtherErrors(t *testing.T) {
	client, calls, _ := newTestClient(t, []int{http.StatusBadRequest}, []string{""})

	_, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{Prompt: "hello"})

	assert.ErrorContains(t, err, "OpenAI API call failed")
	assert.Equal(t, int32(1), calls.Load())
}
