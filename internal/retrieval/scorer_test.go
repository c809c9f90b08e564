package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/types"
)

func TestScoreStaysWithinUnitInterval(t *testing.T) {
	weights := config.Default().Retrieval.Weights
	require.NoError(t, weights.Validate())
	scorer := NewScorer(weights)

	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceHigh, "some content")
	r.DecayScore = 0.9

	score, factors := scorer.Score(r, 1.0, 1.0, "", "debugging", time.Now())

	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, factors.EpistemicStatus, 0.0)
}

func TestIntentBoostMatchesDebuggingTypes(t *testing.T) {
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	bug := memory.New(ns, types.MemoryBugReport, types.ImportanceNormal, "npe on nil pointer")

	assert.Equal(t, 1.0, intentBoost(bug, "debugging"))
	assert.Equal(t, 0.0, intentBoost(bug, "implementing"))
}

func TestFileProximityExactMatchBeatsSameDir(t *testing.T) {
	exact := fileProximity("internal/memory/store.go", "internal/memory/store.go")
	sameDir := fileProximity("internal/memory/record.go", "internal/memory/store.go")
	none := fileProximity("internal/decay/decay.go", "internal/memory/store.go")

	assert.Equal(t, 1.0, exact)
	assert.Equal(t, 0.5, sameDir)
	assert.Equal(t, 0.0, none)
}

func TestRecencyDecaysTowardZeroOverTime(t *testing.T) {
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "x")
	r.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)

	v := recency(r, time.Now())
	assert.Less(t, v, 0.5)
}
