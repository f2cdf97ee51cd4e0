package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
)

func newTestService(client Client, opts ...Option) *Service {
	return NewService(client, append([]Option{WithLogger(discardLogger())}, opts...)...)
}

func TestExtractProjectPurpose(t *testing.T) {
	client := &stubClient{responses: []string{"```json\n" + `{"purpose":"  Online store  ","features":["cart","checkout"],"target_users":"Shoppers","project_type":"web_application"}` + "\n```"}}

	purpose, err := newTestService(client).ExtractProjectPurpose(context.Background(), analysis.PurposeInput{
		Readme:             "# Store\nSells things.",
		PackageDescription: "store package",
		RepoDescription:    "An online store",
	})

	require.NoError(t, err)
	assert.Equal(t, "Online store", purpose.Purpose)
	assert.Equal(t, []string{"cart", "checkout"}, purpose.Features)
	assert.Equal(t, "web_application", purpose.ProjectType)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, ResponseFormatJSON, req.ResponseFormat)
	assert.Equal(t, PurposeTemperature, req.Temperature)
	assert.Contains(t, req.Prompt, "Sells things.")
	assert.Contains(t, req.Prompt, "Package description: store package")
	assert.Contains(t, req.Prompt, "Repository description: An online store")
}

func TestExtractProjectPurposeErrors(t *testing.T) {
	tests := []struct {
		name   string
		client *stubClient
	}{
		{name: "client failure", client: &stubClient{err: errors.New("boom")}},
		{name: "not json", client: &stubClient{responses: []string{"I cannot help with that."}}},
		{name: "missing purpose", client: &stubClient{responses: []string{`{"features":["a"]}`}}},
		{name: "blank feature", client: &stubClient{responses: []string{`{"purpose":"x","features":[""]}`}}},
		{name: "wrong shape", client: &stubClient{responses: []string{`{"purpose":["x"]}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(tt.client).ExtractProjectPurpose(context.Background(), analysis.PurposeInput{Readme: "readme"})
			assert.ErrorIs(t, err, apperr.ErrUpstreamAI)
		})
	}
}

func TestExtractProjectPurposeDefaultsFeatures(t *testing.T) {
	client := &stubClient{responses: []string{`{"purpose":"A tool"}`}}

	purpose, err := newTestService(client).ExtractProjectPurpose(context.Background(), analysis.PurposeInput{Readme: "readme"})

	require.NoError(t, err)
	assert.NotNil(t, purpose.Features)
	assert.Empty(t, purpose.Features)
}

func TestExtractProjectPurposeRejectsEmptyReadme(t *testing.T) {
	client := &stubClient{responses: []string{`{}`}}

	_, err := newTestService(client).ExtractProjectPurpose(context.Background(), analysis.PurposeInput{Readme: "  \n"})

	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, client.requests)
}

func TestExtractProjectPurposeTruncatesReadme(t *testing.T) {
	client := &stubClient{responses: []string{`{"purpose":"x"}`}}
	readme := strings.Repeat("word ", 1000) + "TAIL-MARKER"

	_, err := newTestService(client, WithPromptTokenBudget(50)).ExtractProjectPurpose(context.Background(), analysis.PurposeInput{Readme: readme})

	require.NoError(t, err)
	assert.NotContains(t, client.requests[0].Prompt, "TAIL-MARKER")
}

func TestExtractProjectPurposePassesContextErrors(t *testing.T) {
	client := &stubClient{err: context.DeadlineExceeded}

	_, err := newTestService(client).ExtractProjectPurpose(context.Background(), analysis.PurposeInput{Readme: "readme"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, apperr.ErrUpstreamAI)
}

func TestGenerateRoadmap(t *testing.T) {
	client := &stubClient{responses: []string{`{"repository_name":"acme/web","sections":[{"title":"Setup","tasks":[{"title":"Install","estimated_time":"15 minutes"}]}]}`}}
	bundle := analysis.Bundle{
		Repository: analysis.RepositoryMetadata{Owner: "acme", Name: "web"},
		Purpose:    analysis.Purpose{Purpose: "Online store"},
	}

	raw, err := newTestService(client, WithTemperature(0.9), WithModel("custom"), WithMaxTokens(1234)).GenerateRoadmap(context.Background(), bundle)

	require.NoError(t, err)
	rm := roadmap.Transform(raw)
	assert.Equal(t, "acme/web", rm.RepositoryName)
	assert.Equal(t, 1, rm.TotalTasks)

	req := client.requests[0]
	assert.Equal(t, 0.9, req.Temperature)
	assert.Equal(t, "custom", req.Model)
	assert.Equal(t, 1234, req.MaxTokens)
	assert.Contains(t, req.Prompt, `"owner": "acme"`)
	assert.Contains(t, req.Prompt, "Online store")
}

func TestGenerateRoadmapAcceptsIncompleteObjects(t *testing.T) {
	client := &stubClient{responses: []string{`{"repository_name":"acme/web"}`}}

	raw, err := newTestService(client).GenerateRoadmap(context.Background(), analysis.Bundle{})

	require.NoError(t, err)
	assert.True(t, raw.IsEmpty())
}

func TestGenerateRoadmapErrors(t *testing.T) {
	for name, client := range map[string]*stubClient{
		"client failure": {err: errors.New("boom")},
		"not json":       {responses: []string{"sorry"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newTestService(client).GenerateRoadmap(context.Background(), analysis.Bundle{})
			assert.ErrorIs(t, err, apperr.ErrUpstreamAI)
		})
	}
}
