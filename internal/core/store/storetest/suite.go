// Package storetest は DocumentStore 実装の共通テストを提供します
package storetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/store"
)

// Run は DocumentStore の振る舞いを検証します
// newStore は呼び出しごとに空のストアを返す必要があります
func Run(t *testing.T, newStore func(t *testing.T) store.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing returns none", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Get(ctx, store.CollectionAnalyses, "missing")
		require.NoError(t, err)
		assert.True(t, got.IsAbsent())
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, store.CollectionAnalyses, "acme-api", []byte(`{"a":1}`)))

		got, err := s.Get(ctx, store.CollectionAnalyses, "acme-api")
		require.NoError(t, err)
		raw, ok := got.Get()
		require.True(t, ok)
		assert.JSONEq(t, `{"a":1}`, string(raw))

		other, err := s.Get(ctx, store.CollectionRoadmaps, "acme-api")
		require.NoError(t, err)
		assert.True(t, other.IsAbsent())
	})

	t.Run("set replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, store.CollectionStatus, "x", []byte(`{"a":1,"b":2}`)))
		require.NoError(t, s.Set(ctx, store.CollectionStatus, "x", []byte(`{"c":3}`)))

		got, err := s.Get(ctx, store.CollectionStatus, "x")
		require.NoError(t, err)
		assert.JSONEq(t, `{"c":3}`, string(got.MustGet()))
	})

	t.Run("update merges top level fields", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, store.CollectionStatus, "x", []byte(`{"step":1,"status":"in_progress","nested":{"k":"v"}}`)))
		require.NoError(t, s.Update(ctx, store.CollectionStatus, "x", map[string]any{
			"step":   2,
			"nested": map[string]any{"other": true},
		}))

		got, err := s.Get(ctx, store.CollectionStatus, "x")
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(got.MustGet(), &doc))
		assert.EqualValues(t, 2, doc["step"])
		assert.Equal(t, "in_progress", doc["status"])
		assert.Equal(t, map[string]any{"other": true}, doc["nested"])
	})

	t.Run("update missing returns not found", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, store.CollectionStatus, "missing", map[string]any{"a": 1})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("batch delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, store.CollectionAnalyses, "r", []byte(`{}`)))
		require.NoError(t, s.Set(ctx, store.CollectionRoadmaps, "r", []byte(`{}`)))
		require.NoError(t, s.Set(ctx, store.CollectionRoadmaps, "keep", []byte(`{}`)))

		require.NoError(t, s.BatchDelete(ctx, []store.Ref{
			{Collection: store.CollectionAnalyses, ID: "r"},
			{Collection: store.CollectionRoadmaps, ID: "r"},
			{Collection: store.CollectionStatus, ID: "never-existed"},
		}))

		for _, ref := range []store.Ref{{Collection: store.CollectionAnalyses, ID: "r"}, {Collection: store.CollectionRoadmaps, ID: "r"}} {
			got, err := s.Get(ctx, ref.Collection, ref.ID)
			require.NoError(t, err)
			assert.True(t, got.IsAbsent(), ref)
		}
		kept, err := s.Get(ctx, store.CollectionRoadmaps, "keep")
		require.NoError(t, err)
		assert.True(t, kept.IsPresent())
	})

	t.Run("typed helpers", func(t *testing.T) {
		s := newStore(t)
		type doc struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}
		require.NoError(t, store.SetJSON(ctx, s, store.CollectionUserProgress, "u", doc{Name: "n", Count: 3}))

		got, err := store.GetJSON[doc](ctx, s, store.CollectionUserProgress, "u")
		require.NoError(t, err)
		assert.Equal(t, doc{Name: "n", Count: 3}, got.MustGet())

		none, err := store.GetJSON[doc](ctx, s, store.CollectionUserProgress, "other")
		require.NoError(t, err)
		assert.True(t, none.IsAbsent())
	})
}
