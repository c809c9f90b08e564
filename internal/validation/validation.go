// Package validation implements the Validation Engine:
// four-dimension scoring (citation freshness, temporal consistency,
// contradiction-freeness, pattern alignment) blended into a single
// pass/fail verdict, and the epistemic-status promotion ladder for
// memories that pass repeatedly. Grounded on a confidence-scoring
// idiom and, for the Bayesian flavor of pattern alignment,
// enriched from other_examples' confidence_engine.go.
package validation

import (
	"time"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/types"
)

// Dimensions is the four-part score breakdown for one memory.
type Dimensions struct {
	CitationFreshness   float64
	TemporalConsistency float64
	ContradictionFree   float64
	PatternAlignment    float64
	Overall             float64
	Passed              bool
}

// Engine scores memories along the four validation dimensions.
type Engine struct {
	cfg config.ValidationConfig
}

// New builds a validation Engine.
func New(cfg config.ValidationConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Validate scores r and returns its dimension breakdown.
// contradictingIDs is the set of memory IDs an upstream contradiction
// scan (internal/crdt cascade, or a same-namespace citation conflict)
// has flagged against r; patternTierConfidence is the caller's
// current confidence in the pattern r cites, if any (0 when none).
func (e *Engine) Validate(r *memory.Record, now time.Time, contradictingIDs []string, patternTierConfidence float64) Dimensions {
	d := Dimensions{
		CitationFreshness:   e.citationFreshness(r, now),
		TemporalConsistency: e.temporalConsistency(r, now),
		ContradictionFree:   contradictionFree(contradictingIDs),
		PatternAlignment:    patternTierConfidence,
	}
	d.Overall = (d.CitationFreshness + d.TemporalConsistency + d.ContradictionFree + d.PatternAlignment) / 4.0
	d.Passed = d.Overall >= e.cfg.PassThreshold && d.ContradictionFree > 0
	return d
}

func (e *Engine) citationFreshness(r *memory.Record, now time.Time) float64 {
	if r.LastCitedAt == nil {
		if r.CitationCount == 0 {
			return 0.5 // never cited: neutral, not yet evidenced either way
		}
		return 0.5
	}
	staleDays := float64(e.cfg.CitationStaleDays)
	if staleDays <= 0 {
		staleDays = 90
	}
	ageDays := now.Sub(*r.LastCitedAt).Hours() / 24
	if ageDays <= staleDays {
		return 1.0
	}
	return 0.0
}

// temporalConsistency checks the record was not created after its
// last-cited timestamp (an impossible ordering that signals corrupted
// or backfilled data) and that UpdatedAt never precedes CreatedAt.
func (e *Engine) temporalConsistency(r *memory.Record, now time.Time) float64 {
	if r.UpdatedAt.Before(r.CreatedAt) {
		return 0.0
	}
	if r.LastCitedAt != nil && r.LastCitedAt.Before(r.CreatedAt) {
		return 0.0
	}
	if r.CreatedAt.After(now) {
		return 0.0
	}
	return 1.0
}

func contradictionFree(contradictingIDs []string) float64 {
	if len(contradictingIDs) > 0 {
		return 0.0
	}
	return 1.0
}

// Promote advances a memory's epistemic status on the ladder
// (Conjecture -> Provisional -> Verified) when it passes validation,
// optionally with an external confirmation (e.g. a second agent
// independently citing it, or a human review approval).
func Promote(r *memory.Record, dims Dimensions, externalConfirmation bool) {
	if !dims.Passed {
		return
	}
	r.EpistemicStatus = r.EpistemicStatus.Promote(externalConfirmation)
}

// MarkStale demotes a Verified memory whose citation freshness has
// collapsed to the terminal Stale status (memories at any other status
// are left unchanged), independent of the promotion ladder
// (Stale is reached only by staleness detection, never by failing to
// promote).
func MarkStale(r *memory.Record, dims Dimensions) {
	if dims.CitationFreshness == 0.0 && r.EpistemicStatus == types.EpistemicVerified {
		r.EpistemicStatus = types.EpistemicStale
	}
}
