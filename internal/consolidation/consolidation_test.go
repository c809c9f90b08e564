package consolidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
	"cortex/internal/decay"
	"cortex/internal/embedding"
	"cortex/internal/memory"
	"cortex/internal/storage"
	"cortex/internal/types"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = t.TempDir() + "/cortex.db"

	store, err := storage.Open(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	memStore := memory.NewStore(store)
	embEngine, err := embedding.NewEngine(cfg.Embedding)
	require.NoError(t, err)
	decayEngine := decay.New(cfg.Decay)

	return New(store, memStore, embEngine, decayEngine, cfg.Consolidation), memStore
}

func TestClusterRequiresMinimumSize(t *testing.T) {
	e, _ := newTestEngine(t)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	only := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "a single lonely memory")

	clusters := e.cluster([]*memory.Record{only})
	assert.Empty(t, clusters)
}

func TestAbstractDedupsIdenticalContent(t *testing.T) {
	e, _ := newTestEngine(t)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	a := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "retry with backoff")
	b := memory.New(ns, types.MemoryInsight, types.ImportanceHigh, "retry with backoff")

	abs := e.abstract(types.DefaultNamespace, []*memory.Record{a, b})
	require.NotNil(t, abs)
	assert.Equal(t, types.ImportanceHigh, abs.Importance)
	assert.Equal(t, "retry with backoff", abs.Content, "identical content should be deduped to one line")
}

func TestAcquireLockPreventsConcurrentRuns(t *testing.T) {
	e, _ := newTestEngine(t)

	first, err := e.acquireLock(types.DefaultNamespace, "run-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := e.acquireLock(types.DefaultNamespace, "run-2")
	require.NoError(t, err)
	assert.False(t, second, "a second run must not acquire the lock while the first is running")

	e.releaseLock("run-1")

	third, err := e.acquireLock(types.DefaultNamespace, "run-3")
	require.NoError(t, err)
	assert.True(t, third, "lock must be acquirable again after release")
}
