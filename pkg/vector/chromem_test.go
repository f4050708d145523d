package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemUpsertAndSearch(t *testing.T) {
	store, err := NewChromemStore(ChromemConfig{Collection: "test"})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	docs := []Document{
		{ID: "a", Content: "alpha", Metadata: map[string]string{"source": "a.txt"}, Vector: []float32{1, 0, 0}},
		{ID: "b", Content: "beta", Vector: []float32{0, 1, 0}},
		{ID: "c", Content: "gamma", Vector: []float32{-1, 0, 0}},
	}
	require.NoError(t, store.Upsert(ctx, docs))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := store.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// Closest first: identical vector, orthogonal, opposite.
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-5)
	assert.Equal(t, "a.txt", hits[0].Metadata["source"])
	assert.Equal(t, "b", hits[1].ID)
	assert.InDelta(t, 2.0, hits[1].Distance, 1e-5)
	assert.Equal(t, "c", hits[2].ID)
	assert.InDelta(t, 4.0, hits[2].Distance, 1e-5)
}

func TestChromemSearchEmptyCollection(t *testing.T) {
	store, err := NewChromemStore(ChromemConfig{Collection: "empty"})
	require.NoError(t, err)
	defer store.Close()

	hits, err := store.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemTopKCappedToCount(t *testing.T) {
	store, err := NewChromemStore(ChromemConfig{Collection: "small"})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []Document{
		{ID: "only", Content: "solo", Vector: []float32{0, 0, 1}},
	}))

	hits, err := store.Search(ctx, []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestChromemReset(t *testing.T) {
	store, err := NewChromemStore(ChromemConfig{Collection: "reset"})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []Document{
		{ID: "x", Content: "x", Vector: []float32{1, 0}},
	}))
	require.NoError(t, store.Reset(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUpsertRejectsMissingVector(t *testing.T) {
	store, err := NewChromemStore(ChromemConfig{Collection: "strict"})
	require.NoError(t, err)
	defer store.Close()

	err = store.Upsert(context.Background(), []Document{{ID: "novec", Content: "x"}})
	assert.Error(t, err)
}
