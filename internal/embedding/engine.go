// Package embedding generates vector embeddings for memory content.
// Interface shape mirrors a conventional embedding.EmbeddingEngine.
// Two providers are fully local and deterministic (native, tfidf);
// a third, genai, calls out to Google's hosted Gemini embedding API
// and is opt-in via EmbeddingConfig.Provider so the deterministic
// providers stay the default for tests and offline use.
package embedding

import (
	"context"
	"fmt"
	"math"

	"cortex/internal/config"
	"cortex/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// HealthChecker is an optional capability: engines that can verify
// their own availability before a batch operation implement it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewEngine builds the configured provider, wrapped in an LRU content
// cache.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	var inner Engine
	switch cfg.Provider {
	case "native", "":
		inner = newNativeEngine(cfg.FullDimension)
	case "tfidf":
		inner = newTFIDFEngine(cfg.FullDimension)
	case "genai":
		g, err := newGenAIEngine(context.Background(), cfg.GenAIAPIKey, cfg.GenAIModel, cfg.GenAITaskType)
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("embedding: unsupported provider %q (use \"native\", \"tfidf\", or \"genai\")", cfg.Provider)
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	logging.Get(logging.CategoryEmbedding).Infof("embedding engine ready: provider=%s dims=%d cache=%d",
		inner.Name(), inner.Dimensions(), cacheSize)
	return newCachedEngine(inner, cacheSize), nil
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors. Returns 0 for a zero-magnitude vector rather than erroring,
// a defensive choice for a ranking function.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding: dimension mismatch %d != %d", len(a), len(b))
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		magA += float64(a[i] * a[i])
		magB += float64(b[i] * b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}

// SimilarityResult is one scored entry from FindTopK.
type SimilarityResult struct {
	Index      int
	Similarity float64
}

// FindTopK returns the k most similar vectors to query by cosine
// similarity, descending.
func FindTopK(query []float32, corpus [][]float32, k int) ([]SimilarityResult, error) {
	if k <= 0 {
		k = 10
	}
	results := make([]SimilarityResult, 0, len(corpus))
	for i, v := range corpus {
		sim, err := CosineSimilarity(query, v)
		if err != nil {
			continue
		}
		results = append(results, SimilarityResult{Index: i, Similarity: sim})
	}
	for i := 0; i < len(results) && i < k; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Similarity > results[i].Similarity {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Truncate implements Matryoshka-style dimensionality reduction: take
// the first searchDim components of a full embedding and renormalize,
// used to produce the cheap "search vector" stored alongside the full
// vector.
func Truncate(full []float32, searchDim int) []float32 {
	if searchDim <= 0 || searchDim >= len(full) {
		return full
	}
	out := make([]float32, searchDim)
	copy(out, full[:searchDim])
	var norm float64
	for _, v := range out {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}
