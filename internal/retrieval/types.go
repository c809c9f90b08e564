// Package retrieval implements the Retrieval Engine:
// parallel sparse (FTS5 keyword) and dense (embedding) search fused
// with Reciprocal Rank Fusion, scored with a ten-weight linear blend,
// deduplicated, and packed into a token budget. The sparse/dense
// fan-out is grounded on an errgroup-based parallel search idiom
// (internal/perception/semantic_classifier.go), generalized from
// file-level search (internal/retrieval/sparse.go) to memory records.
package retrieval

import (
	"cortex/internal/memory"
)

// Query describes a single retrieval request.
type Query struct {
	Text      string
	Namespace string
	Budget    int // token budget for the packed result set
	TopK      int // candidates considered before packing
	IntentType string // e.g. "debugging", "implementing"; drives IntentTypeBoost
}

// Result is one scored, ranked memory returned from a retrieval pass.
type Result struct {
	Record     *memory.Record
	Score      float64
	Factors    ScoreFactors
	FusedRank  int
	Tokens     int
}

// ScoreFactors is the ten-dimension breakdown the linear scorer
// produces per candidate.
type ScoreFactors struct {
	SemanticSimilarity float64
	KeywordMatch       float64
	FileProximity      float64
	PatternAlignment   float64
	Recency            float64
	Confidence         float64
	Importance         float64
	IntentTypeBoost    float64
	EvidenceFreshness  float64
	EpistemicStatus    float64
}
