package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/types"
)

func TestValidateFailsOnContradiction(t *testing.T) {
	e := New(config.Default().Validation)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryDecision, types.ImportanceNormal, "use postgres")

	dims := e.Validate(r, time.Now(), []string{"mem_other"}, 0.8)
	assert.False(t, dims.Passed)
	assert.Equal(t, 0.0, dims.ContradictionFree)
}

func TestValidatePassesCleanRecentMemory(t *testing.T) {
	e := New(config.Default().Validation)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryDecision, types.ImportanceNormal, "use postgres")
	r.Cite()

	dims := e.Validate(r, time.Now(), nil, 0.9)
	assert.True(t, dims.Passed)
}

func TestTemporalConsistencyRejectsImpossibleOrdering(t *testing.T) {
	e := New(config.Default().Validation)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryDecision, types.ImportanceNormal, "x")
	past := r.CreatedAt.Add(-time.Hour)
	r.LastCitedAt = &past

	score := e.temporalConsistency(r, time.Now())
	assert.Equal(t, 0.0, score)
}

func TestPromoteAdvancesLadderOnPass(t *testing.T) {
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryDecision, types.ImportanceNormal, "x")
	assert.Equal(t, types.EpistemicConjecture, r.EpistemicStatus)

	Promote(r, Dimensions{Passed: true}, false)
	assert.Equal(t, types.EpistemicProvisional, r.EpistemicStatus)

	Promote(r, Dimensions{Passed: true}, true)
	assert.Equal(t, types.EpistemicVerified, r.EpistemicStatus)
}

func TestPromoteNoopWhenFailed(t *testing.T) {
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryDecision, types.ImportanceNormal, "x")

	Promote(r, Dimensions{Passed: false}, true)
	assert.Equal(t, types.EpistemicConjecture, r.EpistemicStatus)
}
