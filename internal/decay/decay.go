// Package decay implements the Decay Engine: a
// multiplicative blend of five factors (temporal, citation, usage,
// importance, and pattern-freshness) producing a single decay score
// in [0, 1] per memory. The half-life math follows an
// applyRecencyWeight idiom (internal/store/reflection_worker.go):
// score * 0.5^(age_days / half_life_days).
package decay

import (
	"math"
	"time"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/types"
)

// Engine recomputes decay scores for memory records.
type Engine struct {
	cfg config.DecayConfig
}

// New builds a decay Engine from configuration.
func New(cfg config.DecayConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Factors is the per-memory breakdown the Decay Engine produces,
// exposed for diagnostics and the CLI `cortex memory inspect` surface.
type Factors struct {
	Temporal   float64
	Citation   float64
	Usage      float64
	Importance float64
	Pattern    float64
	Score      float64 // product of the five factors, clamped to [0, 1]
}

// Score computes the decay score for a memory record at `now`. The
// five factors are multiplicative: any factor reaching 0
// drives the whole score to 0, and the result is monotonically
// non-increasing between consecutive calls absent an access, citation,
// or importance change (verified by TestScoreMonotonicWithoutActivity).
func (e *Engine) Score(r *memory.Record, now time.Time) Factors {
	f := Factors{
		Temporal:   e.temporalFactor(r, now),
		Citation:   e.citationFactor(r, now),
		Usage:      e.usageFactor(r),
		Importance: r.Importance.Weight(),
		Pattern:    e.patternFactor(r, now),
	}
	f.Score = clamp01(f.Temporal * f.Citation * f.Usage * f.Importance * f.Pattern)
	return f
}

// temporalFactor applies the type's half-life to the memory's age.
// Infinite-half-life types (core/constraint) never decay.
func (e *Engine) temporalFactor(r *memory.Record, now time.Time) float64 {
	if r.Type.IsInfinite() {
		return 1.0
	}
	halfLife := r.Type.HalfLife()
	ageDays := now.Sub(r.CreatedAt).Hours() / 24
	if ageDays <= 0 {
		return 1.0
	}
	halfLifeDays := halfLife.Hours() / 24
	if halfLifeDays <= 0 {
		return 1.0
	}
	return math.Pow(0.5, ageDays/halfLifeDays)
}

// citationFactor penalizes memories whose last citation is older than
// CitationStaleDays; a memory cited within that window, or never
// cited, keeps a neutral 1.0. The citation count itself is not weighed.
func (e *Engine) citationFactor(r *memory.Record, now time.Time) float64 {
	if r.CitationCount == 0 {
		return 1.0 // never cited: citation factor is neutral, temporal factor already penalizes age
	}
	if r.LastCitedAt == nil {
		return 1.0
	}
	staleDays := float64(e.cfg.CitationStaleDays)
	if staleDays <= 0 {
		staleDays = 90
	}
	ageSinceCite := now.Sub(*r.LastCitedAt).Hours() / 24
	if ageSinceCite <= staleDays {
		return 1.0
	}
	overBy := ageSinceCite - staleDays
	return clamp01(math.Pow(0.5, overBy/staleDays))
}

// usageFactor boosts (never penalizes) memories accessed frequently,
// capped at UsageBoostCap.
func (e *Engine) usageFactor(r *memory.Record) float64 {
	cap := e.cfg.UsageBoostCap
	if cap <= 0 {
		cap = 1.5
	}
	boost := 1.0 + math.Log1p(float64(r.AccessCount))*0.1
	if boost > cap {
		return cap
	}
	return boost
}

// patternFactor boosts memories of type MemoryPattern that were
// reinforced recently (fresh pattern instances), decaying back to 1.0
// with PatternFreshnessHalfLi (days).
func (e *Engine) patternFactor(r *memory.Record, now time.Time) float64 {
	if r.Type != types.MemoryPattern {
		return 1.0
	}
	cap := e.cfg.PatternBoostCap
	if cap <= 0 {
		cap = 1.3
	}
	if r.LastCitedAt == nil {
		return 1.0
	}
	halfLife := e.cfg.PatternFreshnessHalfLi
	if halfLife <= 0 {
		halfLife = 30
	}
	ageDays := now.Sub(*r.LastCitedAt).Hours() / 24
	boost := 1.0 + (cap-1.0)*math.Pow(0.5, ageDays/halfLife)
	return boost
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
