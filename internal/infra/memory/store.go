// Package memory はプロセス内のDocumentStore実装を提供します
package memory

import (
	"context"
	"sync"

	"github.com/samber/mo"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/store"
)

// Store はmapに保持するDocumentStoreです
type Store struct {
	mu   sync.RWMutex
	docs map[store.Ref][]byte
}

// NewStore は空のStoreを作成します
func NewStore() *Store {
	return &Store{docs: make(map[store.Ref][]byte)}
}

// Get はドキュメントを取得します
func (s *Store) Get(_ context.Context, collection, id string) (mo.Option[[]byte], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[store.Ref{Collection: collection, ID: id}]
	if !ok {
		return mo.None[[]byte](), nil
	}
	return mo.Some(append([]byte(nil), data...)), nil
}

// Set はドキュメントを保存します
func (s *Store) Set(_ context.Context, collection, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[store.Ref{Collection: collection, ID: id}] = append([]byte(nil), data...)
	return nil
}

// Update はトップレベルのフィールドをマージします
func (s *Store) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := store.Ref{Collection: collection, ID: id}
	current, ok := s.docs[ref]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "memory.Update", "document "+collection+"/"+id+" not found")
	}

	merged, err := store.MergeFields(current, fields)
	if err != nil {
		return err
	}
	s.docs[ref] = merged
	return nil
}

// BatchDelete は複数のドキュメントを削除します
func (s *Store) BatchDelete(_ context.Context, refs []store.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ref := range refs {
		delete(s.docs, ref)
	}
	return nil
}

var _ store.DocumentStore = (*Store)(nil)
