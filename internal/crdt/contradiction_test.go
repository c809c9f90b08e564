package crdt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cortex/internal/config"
)

// TestContradictionCascadeHighTrustGapWins covers a wide trust gap:
// trust 0.9 vs 0.4, identical tags and valid_time. The trust gap alone
// (0.5) exceeds tau and should decide it outright.
func TestContradictionCascadeHighTrustGapWins(t *testing.T) {
	cfg := config.Default().CRDT // TrustDivergence = 0.2
	now := time.Now()

	a := Candidate{AgentID: "agent-a", Trust: 0.9, Tags: []string{"db", "postgres"}, LastUpdated: now}
	b := Candidate{AgentID: "agent-b", Trust: 0.4, Tags: []string{"db", "postgres"}, LastUpdated: now}

	res, winner := Decide(cfg, a, b)
	assert.Equal(t, TrustWins, res)
	if assert.NotNil(t, winner) {
		assert.Equal(t, "agent-a", winner.AgentID)
	}
}

// TestContradictionCascadeCloseTrustDisjointTagsIsContextDependent
// covers a narrow trust gap: trust 0.55 vs 0.50 (gap 0.05, under tau)
// with disjoint tags, where both memories can be true in their own
// context.
func TestContradictionCascadeCloseTrustDisjointTagsIsContextDependent(t *testing.T) {
	cfg := config.Default().CRDT
	now := time.Now()

	a := Candidate{AgentID: "agent-a", Trust: 0.55, Tags: []string{"frontend"}, LastUpdated: now}
	b := Candidate{AgentID: "agent-b", Trust: 0.50, Tags: []string{"backend"}, LastUpdated: now}

	res, winner := Decide(cfg, a, b)
	assert.Equal(t, ContextDependent, res)
	assert.Nil(t, winner)
}

func TestContradictionCascadeFallsBackToTemporalSupersession(t *testing.T) {
	cfg := config.Default().CRDT
	now := time.Now()

	a := Candidate{AgentID: "agent-a", Trust: 0.55, Tags: []string{"db"}, LastUpdated: now.Add(-2 * time.Hour)}
	b := Candidate{AgentID: "agent-b", Trust: 0.50, Tags: []string{"db"}, LastUpdated: now}

	res, winner := Decide(cfg, a, b)
	assert.Equal(t, TemporalSupersession, res)
	if assert.NotNil(t, winner) {
		assert.Equal(t, "agent-b", winner.AgentID)
	}
}

func TestContradictionCascadeNeedsHumanReviewWhenNothingDecides(t *testing.T) {
	cfg := config.Default().CRDT
	now := time.Now()

	a := Candidate{AgentID: "agent-a", Trust: 0.55, Tags: []string{"db"}, LastUpdated: now}
	b := Candidate{AgentID: "agent-b", Trust: 0.50, Tags: []string{"db"}, LastUpdated: now}

	res, winner := Decide(cfg, a, b)
	assert.Equal(t, NeedsHumanReview, res)
	assert.Nil(t, winner)
}
