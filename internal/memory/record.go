// Package memory implements the MemoryRecord type and its
// content-addressed CRUD surface. It sits directly on top of
// internal/storage.
package memory

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"cortex/internal/types"
)

// Record is a single typed memory unit. The three stored summary
// levels (L1-L3) are optional and populated lazily by
// internal/compression; L0 is rendered from Content on demand.
type Record struct {
	ID              string
	Namespace       types.Namespace
	Type            types.MemoryType
	Importance      types.Importance
	EpistemicStatus types.EpistemicStatus

	Content    string // raw content (authoritative)
	ContentHash string

	SummaryL1 string // ~75 tokens, headline
	SummaryL2 string // ~300 tokens, summary
	SummaryL3 string // ~1000 tokens, lossless at the metadata level

	SourceFile string
	SourceLine int
	Tags       []string

	// Confidence is the memory's own epistemic confidence in [0,1],
	// independent of DecayScore (which measures relevance decay, not
	// belief). Seeded from EpistemicStatus.Weight() at creation and
	// adjusted thereafter by the Validation Engine.
	Confidence float64

	// LinkedFiles, Functions, Patterns, and Constraints are the link
	// collections an L3 compression must carry in full: additional
	// source files beyond SourceFile, qualified function names,
	// pattern ids, and constraint references this memory concerns.
	LinkedFiles []string
	Functions   []string
	Patterns    []string
	Constraints []string

	CitationCount  int
	AccessCount    int
	LastAccessedAt *time.Time
	LastCitedAt    *time.Time

	DecayScore float64

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ArchivedAt  *time.Time

	VectorClock map[string]uint64 // agent_id -> logical clock, for CRDT sync
	OriginAgent string
}

// ContentHash computes the content-addressing digest for dedup: a
// BLAKE2b-256 hash of namespace + type + content. There is no widely
// available BLAKE3 binding in the ecosystem yet, so BLAKE2b (already
// pulled in transitively via golang.org/x/crypto) stands in as the
// collision-resistant, fast, content-addressing primitive.
func ContentHash(namespace string, memType types.MemoryType, content string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(memType))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// New constructs a Record with a derived content hash and default
// decay score of 1.0 (full strength at creation).
func New(ns types.Namespace, memType types.MemoryType, importance types.Importance, content string) *Record {
	now := time.Now()
	return &Record{
		ID:              types.NewMemoryID(),
		Namespace:       ns,
		Type:            memType,
		Importance:      importance,
		EpistemicStatus: types.EpistemicConjecture,
		Content:         content,
		ContentHash:     ContentHash(ns.String(), memType, content),
		Confidence:      types.EpistemicConjecture.Weight(),
		DecayScore:      1.0,
		CreatedAt:       now,
		UpdatedAt:       now,
		VectorClock:     map[string]uint64{},
	}
}

// Touch records an access: bumps AccessCount and LastAccessedAt. This
// feeds the Decay Engine's usage factor.
func (r *Record) Touch() {
	now := time.Now()
	r.AccessCount++
	r.LastAccessedAt = &now
}

// Cite records a citation: bumps CitationCount and LastCitedAt. This
// feeds the Decay Engine's citation factor and the Validation
// Engine's citation-staleness dimension.
func (r *Record) Cite() {
	now := time.Now()
	r.CitationCount++
	r.LastCitedAt = &now
}
