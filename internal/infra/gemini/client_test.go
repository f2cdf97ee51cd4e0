package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/synth"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		BaseBackoff: time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return client
}

func writeCandidate(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
		}},
		"usageMetadata": map[string]any{"totalTokenCount": 21},
		"modelVersion":  "gemini-test",
	})
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestGenerateCompletion(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeCandidate(w, `{"purpose":"x"}`)
	})

	resp, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{
		Prompt:         "hello",
		Temperature:    0.5,
		MaxTokens:      64,
		ResponseFormat: synth.ResponseFormatJSON,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"purpose":"x"}`, resp.Content)
	assert.Equal(t, 21, resp.TokensUsed)
	assert.Equal(t, "gemini-test", resp.Model)

	generation, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", generation["responseMimeType"])
	assert.EqualValues(t, 64, generation["maxOutputTokens"])
}

func TestGenerateCompletionRetriesRateLimits(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"}})
			return
		}
		writeCandidate(w, "ok")
	})

	resp, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{Prompt: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateCompletionServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 400, "message": "bad", "status": "INVALID_ARGUMENT"}})
	})

	_, err := client.GenerateCompletion(context.Background(), synth.CompletionRequest{Prompt: "hello"})

	assert.ErrorContains(t, err, "Gemini API call failed")
}
