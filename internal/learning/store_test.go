package learning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
	"cortex/internal/embedding"
	"cortex/internal/memory"
	"cortex/internal/storage"
	"cortex/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = t.TempDir() + "/cortex.db"

	engine, err := storage.Open(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	memStore := memory.NewStore(engine)
	embEngine, err := embedding.NewEngine(cfg.Embedding)
	require.NoError(t, err)

	return New(cfg.Learning, memStore, embEngine)
}

func TestRecordCorrectionAddsNewMemory(t *testing.T) {
	s := newTestStore(t)
	rec, outcome, err := s.RecordCorrection(context.Background(), types.DefaultNamespace, "this query is vulnerable to sql injection")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, outcome)
	assert.Equal(t, types.MemorySecurityFinding, rec.Type)
}

func TestRecordCorrectionIsNoopOnExactDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, first, err := s.RecordCorrection(ctx, types.DefaultNamespace, "the helper function is misnamed")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, first)

	_, second, err := s.RecordCorrection(ctx, types.DefaultNamespace, "the helper function is misnamed")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, second)
}
