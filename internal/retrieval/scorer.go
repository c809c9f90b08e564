package retrieval

import (
	"math"
	"strings"
	"time"

	"cortex/internal/config"
	"cortex/internal/memory"
)

// Scorer applies a ten-weight linear blend. Weights
// must sum to 1.0 (config.ScorerWeights.Validate, checked at startup).
type Scorer struct {
	weights config.ScorerWeights
}

// NewScorer builds a Scorer from configured weights.
func NewScorer(weights config.ScorerWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the final blended score and its factor breakdown for
// one candidate. semanticSim and keywordHit come from the fused search
// passes; everything else is derived from the record itself.
func (s *Scorer) Score(r *memory.Record, semanticSim, keywordHit float64, queryFile, intentType string, now time.Time) (float64, ScoreFactors) {
	f := ScoreFactors{
		SemanticSimilarity: clamp01(semanticSim),
		KeywordMatch:       clamp01(keywordHit),
		FileProximity:      fileProximity(r.SourceFile, queryFile),
		PatternAlignment:   patternAlignment(r),
		Recency:            recency(r, now),
		Confidence:         r.Confidence,
		Importance:         normalizeImportance(r.Importance.Weight()),
		IntentTypeBoost:    intentBoost(r, intentType),
		EvidenceFreshness:  evidenceFreshness(r, now),
		EpistemicStatus:    r.EpistemicStatus.Weight(),
	}

	w := s.weights
	total := f.SemanticSimilarity*w.SemanticSimilarity +
		f.KeywordMatch*w.KeywordMatch +
		f.FileProximity*w.FileProximity +
		f.PatternAlignment*w.PatternAlignment +
		f.Recency*w.Recency +
		f.Confidence*w.Confidence +
		f.Importance*w.Importance +
		f.IntentTypeBoost*w.IntentTypeBoost +
		f.EvidenceFreshness*w.EvidenceFreshness +
		f.EpistemicStatus*w.EpistemicStatus

	return clamp01(total), f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func fileProximity(recordFile, queryFile string) float64 {
	if recordFile == "" || queryFile == "" {
		return 0
	}
	if recordFile == queryFile {
		return 1.0
	}
	rDir, qDir := dirOf(recordFile), dirOf(queryFile)
	if rDir == qDir {
		return 0.5
	}
	return 0
}

func dirOf(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return ""
}

func patternAlignment(r *memory.Record) float64 {
	for _, tag := range r.Tags {
		if strings.HasPrefix(tag, "pattern:") {
			return 1.0
		}
	}
	return 0
}

// recency is a simple 30-day half-life decay on the time since
// creation or last access, whichever is later, independent of the Decay Engine's type-specific half-life: this
// factor rewards anything touched lately regardless of type.
func recency(r *memory.Record, now time.Time) float64 {
	last := r.CreatedAt
	if r.LastAccessedAt != nil && r.LastAccessedAt.After(last) {
		last = *r.LastAccessedAt
	}
	ageDays := now.Sub(last).Hours() / 24
	if ageDays <= 0 {
		return 1.0
	}
	const halfLifeDays = 30.0
	return math.Pow(0.5, ageDays/halfLifeDays)
}

func normalizeImportance(weight float64) float64 {
	// weight in {0.8, 1.0, 1.5, 2.0} -> normalize to [0,1]
	const maxWeight = 2.0
	v := weight / maxWeight
	return clamp01(v)
}

func intentBoost(r *memory.Record, intentType string) float64 {
	if intentType == "" {
		return 0
	}
	switch intentType {
	case "debugging":
		if r.Type == "bug_report" || r.Type == "fix_record" || r.Type == "security_finding" {
			return 1.0
		}
	case "implementing":
		if r.Type == "procedural" || r.Type == "pattern" || r.Type == "api_contract" {
			return 1.0
		}
	case "reviewing":
		if r.Type == "review_finding" || r.Type == "constraint" || r.Type == "decision" {
			return 1.0
		}
	}
	return 0
}

func evidenceFreshness(r *memory.Record, now time.Time) float64 {
	if r.LastCitedAt == nil {
		return 0.5
	}
	ageDays := now.Sub(*r.LastCitedAt).Hours() / 24
	if ageDays <= 7 {
		return 1.0
	}
	if ageDays <= 30 {
		return 0.7
	}
	return 0.3
}
