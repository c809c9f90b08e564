package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// nativeEngine is a deterministic, on-device feature-hashing provider:
// it tokenizes into overlapping character trigrams, hashes each into a
// fixed-width vector with a signed contribution (the hashing-trick /
// random-projection approach), and L2-normalizes the result. No model
// weights, no network call; this models "the local embedding model"
// the rest of the system is written against.
type nativeEngine struct {
	dims int
}

func newNativeEngine(dims int) *nativeEngine {
	if dims <= 0 {
		dims = 768
	}
	return &nativeEngine{dims: dims}
}

func (e *nativeEngine) Name() string    { return "native" }
func (e *nativeEngine) Dimensions() int { return e.dims }

func (e *nativeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(text), nil
}

func (e *nativeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *nativeEngine) embedOne(text string) []float32 {
	vec := make([]float64, e.dims)
	norm := strings.ToLower(strings.TrimSpace(text))
	grams := trigrams(norm)
	for _, g := range grams {
		idx, sign := hashFeature(g, e.dims)
		vec[idx] += sign
	}
	// also fold in whole-word hashes so short content (below 3 runes)
	// still produces a non-zero vector.
	for _, w := range strings.Fields(norm) {
		idx, sign := hashFeature("w:"+w, e.dims)
		vec[idx] += sign * 0.5
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

func trigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 3 {
		if len(runes) == 0 {
			return nil
		}
		return []string{string(runes)}
	}
	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+3]))
	}
	return grams
}

// hashFeature maps a token to a bucket index and a +1/-1 sign, the
// standard feature-hashing trick that keeps the projection unbiased.
func hashFeature(token string, dims int) (int, float64) {
	h := fnv.New64a()
	h.Write([]byte(token))
	sum := h.Sum64()
	idx := int(sum % uint64(dims))
	sign := 1.0
	if (sum>>63)&1 == 1 {
		sign = -1.0
	}
	return idx, sign
}
