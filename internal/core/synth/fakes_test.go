package synth

import (
	"context"
	"io"
	"log/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubClient は順番に応答を返すClientです
type stubClient struct {
	responses []string
	err       error
	requests  []CompletionRequest
}

func (c *stubClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return CompletionResponse{}, c.err
	}
	i := len(c.requests) - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return CompletionResponse{Content: c.responses[i], TokensUsed: 42, Model: "stub"}, nil
}
