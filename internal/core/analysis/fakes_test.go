package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
	"github.com/jinford/dev-onboard/internal/core/source"
	"github.com/jinford/dev-onboard/internal/core/techstack"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSource struct {
	mu          sync.Mutex
	metadata    source.Metadata
	metadataErr error
	tree        []source.TreeItem
	treeErr     error
	contents    map[string]string
	contentErrs map[string]error
	delay       time.Duration
	fetched     []string
	treeBranch  string
}

func (s *stubSource) wait(ctx context.Context) error {
	if s.delay == 0 {
		return nil
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubSource) GetRepositoryMetadata(ctx context.Context, owner, repo string) (source.Metadata, error) {
	if err := s.wait(ctx); err != nil {
		return source.Metadata{}, err
	}
	return s.metadata, s.metadataErr
}

func (s *stubSource) GetFileTree(ctx context.Context, owner, repo, branch string) ([]source.TreeItem, error) {
	s.mu.Lock()
	s.treeBranch = branch
	s.mu.Unlock()
	return s.tree, s.treeErr
}

func (s *stubSource) GetFileContent(ctx context.Context, owner, repo, path, branch string) (string, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, path)
	s.mu.Unlock()
	if err, ok := s.contentErrs[path]; ok {
		return "", err
	}
	content, ok := s.contents[path]
	if !ok {
		return "", apperr.New(apperr.ErrNotFoundOrPrivate, "stub", "missing "+path)
	}
	return content, nil
}

type stubAI struct {
	mu           sync.Mutex
	purpose      Purpose
	purposeErr   error
	raw          roadmap.RawRoadmap
	roadmapErr   error
	roadmapDelay time.Duration
	purposeCalls []PurposeInput
	roadmapCalls []Bundle
}

func (a *stubAI) ExtractProjectPurpose(ctx context.Context, in PurposeInput) (Purpose, error) {
	a.mu.Lock()
	a.purposeCalls = append(a.purposeCalls, in)
	a.mu.Unlock()
	return a.purpose, a.purposeErr
}

func (a *stubAI) GenerateRoadmap(ctx context.Context, bundle Bundle) (roadmap.RawRoadmap, error) {
	a.mu.Lock()
	a.roadmapCalls = append(a.roadmapCalls, bundle)
	a.mu.Unlock()
	if a.roadmapDelay > 0 {
		select {
		case <-time.After(a.roadmapDelay):
		case <-ctx.Done():
			return roadmap.RawRoadmap{}, ctx.Err()
		}
	}
	return a.raw, a.roadmapErr
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

var errBoom = errors.New("boom")

func newTestStack(framework string) techstack.TechStack {
	return techstack.TechStack{Framework: framework}
}
