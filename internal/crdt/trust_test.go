package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
)

func TestEvidenceScoreFormula(t *testing.T) {
	e := Evidence{Validated: 3, Useful: 2, Contradicted: 1, Total: 10}
	// (3+2)/(10+1) * (1 - 1/(10+1)) = (5/11) * (10/11)
	want := (5.0 / 11.0) * (10.0 / 11.0)
	assert.InDelta(t, want, e.Score(), 1e-9)
}

func TestEvidenceScoreClampedToUnitInterval(t *testing.T) {
	perfect := Evidence{Validated: 100, Useful: 100, Contradicted: 0, Total: 100}
	assert.LessOrEqual(t, perfect.Score(), 1.0)

	allContradicted := Evidence{Validated: 0, Useful: 0, Contradicted: 50, Total: 50}
	assert.GreaterOrEqual(t, allContradicted.Score(), 0.0)
	assert.Equal(t, 0.0, allContradicted.Score())
}

func TestEvidenceScoreZeroForUnknownRelationship(t *testing.T) {
	assert.Equal(t, 0.0, Evidence{}.Score())
}

func TestTrustStoreBootstrapForUnknownRelationship(t *testing.T) {
	cfg := config.Default().CRDT
	s := NewTrustStore(cfg)
	assert.Equal(t, cfg.TrustBootstrap, s.Trust("agent-a", "agent-b"))
}

func TestTrustStoreRejectsSelfEvidence(t *testing.T) {
	cfg := config.Default().CRDT
	cfg.SelfEvidenceRejected = true
	s := NewTrustStore(cfg)

	err := s.RecordValidated("agent-a", "agent-a")
	require.Error(t, err)

	_, ok := s.Snapshot("agent-a", "agent-a")
	assert.False(t, ok)
}

func TestTrustStoreAccumulatesEvidence(t *testing.T) {
	cfg := config.Default().CRDT
	s := NewTrustStore(cfg)

	require.NoError(t, s.RecordValidated("agent-a", "agent-b"))
	require.NoError(t, s.RecordUseful("agent-a", "agent-b"))
	require.NoError(t, s.RecordContradicted("agent-a", "agent-b"))

	e, ok := s.Snapshot("agent-a", "agent-b")
	require.True(t, ok)
	assert.Equal(t, 3, e.Total)
	assert.Equal(t, 1, e.Validated)
	assert.Equal(t, 1, e.Useful)
	assert.Equal(t, 1, e.Contradicted)
}
