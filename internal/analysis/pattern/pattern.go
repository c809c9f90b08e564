// Package pattern implements pattern detection and confidence
// scoring: AST-first structural matching with regex reserved for
// string literals only, and a Beta(α, β) posterior confidence per
// pattern ID tiered Emerging < Growing < Established < Canonical. The
// Beta-update/tiering math is enriched from a Bayesian confidence
// scoring idiom borrowed from outside the call-graph/taint lineage.
package pattern

import (
	"math"
	"regexp"

	"cortex/internal/config"
)

// Tier is the pattern maturity ladder.
type Tier string

const (
	TierEmerging    Tier = "emerging"
	TierGrowing     Tier = "growing"
	TierEstablished Tier = "established"
	TierCanonical   Tier = "canonical"
)

// Observation is one instance of a pattern found in code, positive or
// negative (negative observations, an expected pattern absent where
// it should appear, decrement the posterior via Beta).
type Observation struct {
	PatternID string
	File      string
	Line      int
	Positive  bool
}

// Posterior is a pattern's current Beta(α, β) belief state.
type Posterior struct {
	Alpha float64
	Beta  float64
}

// Mean is the Beta posterior mean, α/(α+β).
func (p Posterior) Mean() float64 {
	if p.Alpha+p.Beta == 0 {
		return 0
	}
	return p.Alpha / (p.Alpha + p.Beta)
}

// CIWidth approximates the 95% credible interval width using the
// normal approximation to the Beta distribution; exact Beta quantiles
// have no closed form, and this approximation is standard practice
// for large-enough (α+β).
func (p Posterior) CIWidth() float64 {
	n := p.Alpha + p.Beta
	if n == 0 {
		return 1
	}
	mean := p.Mean()
	variance := mean * (1 - mean) / (n + 1)
	return 2 * 1.96 * math.Sqrt(variance)
}

// Tier derives the maturity tier from the posterior, per the
// threshold table in cfg, exposed as configuration rather than
// hardcoded.
func (p Posterior) Tier(cfg config.PatternConfig) Tier {
	mean := p.Mean()
	switch {
	case mean >= cfg.CanonicalMean && p.CIWidth() <= cfg.CanonicalCIWidth:
		return TierCanonical
	case mean >= cfg.EstablishedMean:
		return TierEstablished
	case mean >= cfg.GrowingMean:
		return TierGrowing
	default:
		return TierEmerging
	}
}

// Engine tracks per-pattern Beta posteriors and applies AST-first,
// regex-on-literals-only detection rules.
type Engine struct {
	cfg        config.PatternConfig
	posteriors map[string]Posterior
}

// New builds a pattern Engine with uniform Beta(1,1) priors.
func New(cfg config.PatternConfig) *Engine {
	return &Engine{cfg: cfg, posteriors: map[string]Posterior{}}
}

// Update folds one observation into its pattern's posterior: a
// positive observation increments α, a negative one increments β.
// Beta updates are commutative: replaying the same multiset of
// observations in any order converges on the same (α, β), regardless
// of arrival order.
func (e *Engine) Update(obs Observation) Posterior {
	p := e.posteriors[obs.PatternID]
	if p.Alpha == 0 && p.Beta == 0 {
		p = Posterior{Alpha: 1, Beta: 1} // uniform prior
	}
	if obs.Positive {
		p.Alpha++
	} else {
		p.Beta++
	}
	e.posteriors[obs.PatternID] = p
	return p
}

// Posterior returns the current belief for a pattern, or the uniform
// prior if it's never been observed.
func (e *Engine) Posterior(patternID string) Posterior {
	if p, ok := e.posteriors[patternID]; ok {
		return p
	}
	return Posterior{Alpha: 1, Beta: 1}
}

// LiteralMatcher runs a regex against string-literal content only
// (never raw source text), the "regex fallback on extracted string
// literals" half of the AST-first detection strategy.
type LiteralMatcher struct {
	PatternID string
	Regex     *regexp.Regexp
}

// MatchLiterals checks each extracted string literal against the
// matcher's regex, emitting one Observation per literal, positive on
// match.
func (m LiteralMatcher) MatchLiterals(file string, literals []LiteralOccurrence) []Observation {
	var obs []Observation
	for _, lit := range literals {
		obs = append(obs, Observation{
			PatternID: m.PatternID,
			File:      file,
			Line:      lit.Line,
			Positive:  m.Regex.MatchString(lit.Value),
		})
	}
	return obs
}

// LiteralOccurrence is one string literal extracted from an AST walk,
// the sole input surface regex detection is allowed to touch.
type LiteralOccurrence struct {
	Value string
	Line  int
}
