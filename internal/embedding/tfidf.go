package embedding

import (
	"context"
	"math"
	"strings"
	"sync"
)

// tfidfEngine is a hashing-trick TF-IDF bag-of-words provider, with
// document frequencies accumulated across calls so the IDF term
// sharpens as more content is seen. Deterministic, no external
// dependency. NewEngine builds it only when EmbeddingConfig.Provider is
// "tfidf"; it does not stand behind another provider as a fallback.
type tfidfEngine struct {
	dims int

	mu       sync.Mutex
	docCount int
	docFreq  map[string]int
}

func newTFIDFEngine(dims int) *tfidfEngine {
	if dims <= 0 {
		dims = 768
	}
	return &tfidfEngine{dims: dims, docFreq: make(map[string]int)}
}

func (e *tfidfEngine) Name() string    { return "tfidf" }
func (e *tfidfEngine) Dimensions() int { return e.dims }

func (e *tfidfEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (e *tfidfEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *tfidfEngine) embed(text string) []float32 {
	terms := strings.Fields(strings.ToLower(text))
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}

	e.mu.Lock()
	e.docCount++
	for term := range tf {
		e.docFreq[term]++
	}
	docCount := e.docCount
	snapshot := make(map[string]int, len(tf))
	for term := range tf {
		snapshot[term] = e.docFreq[term]
	}
	e.mu.Unlock()

	vec := make([]float64, e.dims)
	for term, count := range tf {
		idf := math.Log(float64(docCount+1) / float64(snapshot[term]+1))
		weight := float64(count) * idf
		idx, sign := hashFeature(term, e.dims)
		vec[idx] += weight * sign
	}

	out := make([]float32, e.dims)
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	n := math.Sqrt(sumSq)
	if n == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / n)
	}
	return out
}
