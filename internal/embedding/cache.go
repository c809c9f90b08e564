package embedding

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/crypto/blake2b"

	"cortex/internal/logging"
)

// cachedEngine wraps an Engine with a write-through LRU keyed by
// content hash, so repeated embedding of identical content (common
// across consolidation re-runs) never pays the hashing-trick cost
// twice. Grounded on the general bounded-cache-with-eviction shape
// used elsewhere in this codebase for vector backfill bookkeeping,
// generalized into a proper LRU.
type cachedEngine struct {
	inner Engine
	cap   int

	mu      sync.Mutex
	entries map[[32]byte]*list.Element
	order   *list.List // front = most recently used
}

type cacheEntry struct {
	key [32]byte
	vec []float32
}

func newCachedEngine(inner Engine, capacity int) *cachedEngine {
	return &cachedEngine{
		inner:   inner,
		cap:     capacity,
		entries: make(map[[32]byte]*list.Element, capacity),
		order:   list.New(),
	}
}

func (c *cachedEngine) Name() string    { return c.inner.Name() }
func (c *cachedEngine) Dimensions() int { return c.inner.Dimensions() }

func (c *cachedEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	key := blake2b.Sum256([]byte(text))

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		vec := el.Value.(*cacheEntry).vec
		c.mu.Unlock()
		logging.Get(logging.CategoryEmbedding).Debugf("embedding cache hit")
		return vec, nil
	}
	c.mu.Unlock()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.insertLocked(key, vec)
	c.mu.Unlock()
	return vec, nil
}

func (c *cachedEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var misses []string
	var missIdx []int

	for i, t := range texts {
		key := blake2b.Sum256([]byte(t))
		c.mu.Lock()
		if el, ok := c.entries[key]; ok {
			c.order.MoveToFront(el)
			out[i] = el.Value.(*cacheEntry).vec
			c.mu.Unlock()
			continue
		}
		c.mu.Unlock()
		misses = append(misses, t)
		missIdx = append(missIdx, i)
	}

	if len(misses) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	for i, v := range vecs {
		out[missIdx[i]] = v
		c.insertLocked(blake2b.Sum256([]byte(misses[i])), v)
	}
	c.mu.Unlock()
	return out, nil
}

// insertLocked adds (or refreshes) an entry, evicting the least
// recently used one if the cache is at capacity. Caller holds c.mu.
func (c *cachedEngine) insertLocked(key [32]byte, vec []float32) {
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).vec = vec
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, vec: vec})
	c.entries[key] = el

	if c.cap > 0 && c.order.Len() > c.cap {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}
