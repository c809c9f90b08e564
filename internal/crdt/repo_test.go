package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/storage"
	"cortex/internal/types"
)

func newTestRepo(t *testing.T) (*storage.Engine, *Repo) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = t.TempDir() + "/cortex.db"

	store, err := storage.Open(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, NewRepo(store)
}

func TestRepoTrustRoundTrip(t *testing.T) {
	_, repo := newTestRepo(t)

	e := Evidence{Validated: 4, Useful: 1, Contradicted: 0, Total: 5}
	require.NoError(t, repo.SaveTrust("agent-a", "agent-b", e))

	loaded, ok, err := repo.LoadTrust("agent-a", "agent-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e, loaded)
}

func TestRepoTrustMissingRelationship(t *testing.T) {
	_, repo := newTestRepo(t)

	_, ok, err := repo.LoadTrust("agent-a", "agent-never-seen")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepoReplicaRoundTripMergesAcrossAgents(t *testing.T) {
	_, repo := newTestRepo(t)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "retry with backoff")
	r.Tags = []string{"resilience"}

	repA := NewReplica(r, "agent-a")
	repB := NewReplica(r, "agent-b")
	repB.Tags.Add("networking", "agent-b:0:1")

	require.NoError(t, repo.SaveReplica("agent-a", repA))
	require.NoError(t, repo.SaveReplica("agent-b", repB))

	loaded, err := repo.LoadReplicas(r.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	merged := MergeReplica(loaded[0], loaded[1])
	assert.ElementsMatch(t, []string{"resilience", "networking"}, merged.Tags.Members())
}

func TestRepoProvenanceAppendOnly(t *testing.T) {
	_, repo := newTestRepo(t)
	require.NoError(t, repo.RecordProvenance("mem_1", "agent-a", "cited", "by agent-b"))
	require.NoError(t, repo.RecordProvenance("mem_1", "agent-a", "contradicted", "by agent-c"))
	// no read API beyond direct query is exposed; this just exercises
	// that appending twice never errors (append-only, no upsert conflict).
}

func TestSyncEngineBuffersOutOfOrderDelta(t *testing.T) {
	_, repo := newTestRepo(t)
	sync := NewSyncEngine(config.Default().CRDT, repo)

	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "x")
	local := NewReplica(r, "agent-b")
	require.NoError(t, repo.SaveReplica("agent-b", local))

	// agent-a's delta claims tick 3, but agent-b has observed nothing
	// from agent-a yet (expects tick 1 next) -- must buffer.
	farFuture := NewReplica(r, "agent-a")
	farFuture.Clock["agent-a"] = 3

	_, applied, err := sync.Receive("agent-a", "agent-b", farFuture, local)
	require.NoError(t, err)
	assert.False(t, applied)

	pending, err := repo.PendingDeltas("agent-a", "agent-b")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSyncEngineAppliesNextExpectedDelta(t *testing.T) {
	_, repo := newTestRepo(t)
	sync := NewSyncEngine(config.Default().CRDT, repo)

	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "x")
	local := NewReplica(r, "agent-b")
	require.NoError(t, repo.SaveReplica("agent-b", local))

	incoming := NewReplica(r, "agent-a")
	incoming.Clock["agent-a"] = 1

	merged, applied, err := sync.Receive("agent-a", "agent-b", incoming, local)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NotNil(t, merged)
}
