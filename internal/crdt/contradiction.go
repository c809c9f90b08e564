package crdt

import (
	"time"

	"cortex/internal/config"
)

// Resolution is the outcome of the contradiction cascade.
type Resolution string

const (
	// TrustWins: one agent is decisively more trusted than the other
	// (trust gap exceeds tau), its memory wins outright.
	TrustWins Resolution = "trust_wins"
	// ContextDependent: trust is roughly equal but the two memories'
	// tag sets don't overlap, so both can be true in their own contexts.
	ContextDependent Resolution = "context_dependent"
	// TemporalSupersession: trust is roughly equal, contexts overlap,
	// but one memory is clearly newer, it supersedes the other.
	TemporalSupersession Resolution = "temporal_supersession"
	// NeedsHumanReview: none of the above resolved it; trust is close,
	// contexts overlap, and neither memory is clearly newer.
	NeedsHumanReview Resolution = "needs_human_review"
)

// Candidate is one side of a contradiction: the memory's owning
// agent's trust score (as seen by the resolving agent), its tags, and
// the time window it claims to be valid for.
type Candidate struct {
	AgentID     string
	Trust       float64
	Tags        []string
	ValidFrom   time.Time
	ValidUntil  *time.Time // nil means still open-ended
	LastUpdated time.Time
}

// Decide runs the deterministic 4-branch contradiction cascade
// over two contradicting memories from different agents
// and returns which one wins and how.
//
// Branch order (first match wins):
//  1. TrustWins            : |trustA - trustB| > tau
//  2. ContextDependent     : tag sets disjoint (no shared tag)
//  3. TemporalSupersession: one candidate's LastUpdated is newer than
//     the other's by at least cfg.TemporalSupersede
//  4. NeedsHumanReview     : none of the above
func Decide(cfg config.CRDTConfig, a, b Candidate) (Resolution, *Candidate) {
	store := NewTrustStore(cfg)

	if store.Diverges(a.Trust, b.Trust) {
		if a.Trust > b.Trust {
			return TrustWins, &a
		}
		return TrustWins, &b
	}

	if !tagsOverlap(a.Tags, b.Tags) {
		return ContextDependent, nil
	}

	supersedeWindow := cfg.TemporalSupersede
	if supersedeWindow <= 0 {
		supersedeWindow = time.Hour
	}
	if a.LastUpdated.Sub(b.LastUpdated) >= supersedeWindow {
		return TemporalSupersession, &a
	}
	if b.LastUpdated.Sub(a.LastUpdated) >= supersedeWindow {
		return TemporalSupersession, &b
	}

	return NeedsHumanReview, nil
}

func tagsOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
