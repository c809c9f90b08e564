package decay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/types"
)

func newTestRecord(memType types.MemoryType, createdAgo time.Duration) *memory.Record {
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, memType, types.ImportanceNormal, "test content")
	r.CreatedAt = time.Now().Add(-createdAgo)
	return r
}

func TestScoreNeverDecaysInfiniteHalfLife(t *testing.T) {
	e := New(config.Default().Decay)
	r := newTestRecord(types.MemoryCore, 10*365*24*time.Hour)

	f := e.Score(r, time.Now())
	assert.Equal(t, 1.0, f.Temporal)
}

func TestScoreMonotonicWithoutActivity(t *testing.T) {
	e := New(config.Default().Decay)
	r := newTestRecord(types.MemoryEpisodic, 0)

	now := time.Now()
	first := e.Score(r, now)
	later := e.Score(r, now.Add(30*24*time.Hour))

	require.LessOrEqual(t, later.Score, first.Score)
}

func TestCitationFactorStaysNeutralWhenNeverCited(t *testing.T) {
	e := New(config.Default().Decay)
	r := newTestRecord(types.MemorySemantic, time.Hour)

	f := e.Score(r, time.Now())
	assert.Equal(t, 1.0, f.Citation)
}

func TestUsageFactorCapsAtConfiguredBound(t *testing.T) {
	e := New(config.Default().Decay)
	r := newTestRecord(types.MemorySemantic, time.Hour)
	r.AccessCount = 100000

	f := e.Score(r, time.Now())
	assert.LessOrEqual(t, f.Usage, e.cfg.UsageBoostCap)
}

func TestScoreClampedToUnitInterval(t *testing.T) {
	e := New(config.Default().Decay)
	r := newTestRecord(types.MemoryEpisodic, 365*24*time.Hour)
	r.CitationCount = 1
	last := time.Now().Add(-400 * 24 * time.Hour)
	r.LastCitedAt = &last

	f := e.Score(r, time.Now())
	assert.GreaterOrEqual(t, f.Score, 0.0)
	assert.LessOrEqual(t, f.Score, 1.0)
}
