package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"cortex/internal/config"
)

func TestNativeEngineDeterministic(t *testing.T) {
	e := newNativeEngine(64)
	a, _ := e.Embed(context.Background(), "retry the request with backoff")
	b, _ := e.Embed(context.Background(), "retry the request with backoff")
	assert.Equal(t, a, b)
}

func TestNativeEngineDistinctTextsDiffer(t *testing.T) {
	e := newNativeEngine(64)
	a, _ := e.Embed(context.Background(), "connect to the database")
	b, _ := e.Embed(context.Background(), "render the user interface")
	sim, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	assert.Less(t, sim, 0.99)
}

func TestTruncatePreservesUnitNorm(t *testing.T) {
	e := newNativeEngine(256)
	full, _ := e.Embed(context.Background(), "some representative content")
	truncated := Truncate(full, 64)
	assert.Len(t, truncated, 64)

	var sumSq float64
	for _, v := range truncated {
		sumSq += float64(v * v)
	}
	assert.InDelta(t, 1.0, sumSq, 0.01)
}

func TestCachedEngineReturnsSameVectorOnHit(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = "native"
	cfg.FullDimension = 32
	cfg.CacheSize = 4

	eng, err := NewEngine(cfg)
	require.NoError(t, err)

	a, err := eng.Embed(context.Background(), "cache me")
	require.NoError(t, err)
	b, err := eng.Embed(context.Background(), "cache me")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	inner := newNativeEngine(16)
	c := newCachedEngine(inner, 2)
	ctx := context.Background()

	_, _ = c.Embed(ctx, "one")
	_, _ = c.Embed(ctx, "two")
	_, _ = c.Embed(ctx, "three") // evicts "one"

	c.mu.Lock()
	_, hasOne := c.entries[blake2b.Sum256([]byte("one"))]
	_, hasThree := c.entries[blake2b.Sum256([]byte("three"))]
	c.mu.Unlock()

	assert.False(t, hasOne)
	assert.True(t, hasThree)
}

func TestUnsupportedProviderErrors(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = "cloud-magic"
	_, err := NewEngine(cfg)
	assert.Error(t, err)
}
