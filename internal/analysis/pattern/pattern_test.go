package pattern

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"cortex/internal/config"
)

func TestUpdateIncrementsAlphaOnPositive(t *testing.T) {
	e := New(config.Default().Analysis.PatternConfidence)
	p := e.Update(Observation{PatternID: "p1", Positive: true})
	assert.Equal(t, 2.0, p.Alpha)
	assert.Equal(t, 1.0, p.Beta)
}

func TestUpdateIncrementsBetaOnNegative(t *testing.T) {
	e := New(config.Default().Analysis.PatternConfidence)
	p := e.Update(Observation{PatternID: "p1", Positive: false})
	assert.Equal(t, 1.0, p.Alpha)
	assert.Equal(t, 2.0, p.Beta)
}

func TestBetaUpdateIsOrderIndependent(t *testing.T) {
	e1 := New(config.Default().Analysis.PatternConfidence)
	for _, positive := range []bool{true, true, false, true, false} {
		e1.Update(Observation{PatternID: "p1", Positive: positive})
	}

	e2 := New(config.Default().Analysis.PatternConfidence)
	for _, positive := range []bool{false, true, true, false, true} {
		e2.Update(Observation{PatternID: "p1", Positive: positive})
	}

	assert.Equal(t, e1.Posterior("p1"), e2.Posterior("p1"))
}

func TestTierThresholds(t *testing.T) {
	cfg := config.Default().Analysis.PatternConfidence

	canonical := Posterior{Alpha: 950, Beta: 50}
	assert.Equal(t, TierCanonical, canonical.Tier(cfg))

	emerging := Posterior{Alpha: 1, Beta: 1}
	assert.Equal(t, TierEmerging, emerging.Tier(cfg))
}

func TestPosteriorDefaultsToUniformPrior(t *testing.T) {
	e := New(config.Default().Analysis.PatternConfidence)
	p := e.Posterior("never-seen")
	assert.Equal(t, 0.5, p.Mean())
}

func TestLiteralMatcherEmitsPositiveOnMatch(t *testing.T) {
	m := LiteralMatcher{PatternID: "sql-select-star", Regex: regexp.MustCompile(`(?i)select \*`)}
	obs := m.MatchLiterals("query.go", []LiteralOccurrence{
		{Value: "SELECT * FROM users", Line: 10},
		{Value: "SELECT id FROM users", Line: 11},
	})
	assert.True(t, obs[0].Positive)
	assert.False(t, obs[1].Positive)
}
