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

func newTestRegistry(t *testing.T) (*memory.Store, *AgentRegistry) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = t.TempDir() + "/cortex.db"

	store, err := storage.Open(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	memos := memory.NewStore(store)
	return memos, NewAgentRegistry(store, memos)
}

func TestAgentRegisterAndGet(t *testing.T) {
	_, reg := newTestRegistry(t)

	a := Agent{
		AgentID:      "agent-a",
		Name:         "Agent A",
		Namespace:    "agent://agent-a/",
		Capabilities: []string{"code-review", "retrieval"},
	}
	require.NoError(t, reg.Register(a))

	loaded, err := reg.Get("agent-a")
	require.NoError(t, err)
	assert.Equal(t, types.AgentActive, loaded.Status)
	assert.Equal(t, []string{"code-review", "retrieval"}, loaded.Capabilities)
	assert.False(t, loaded.RegisteredAt.IsZero())
	assert.Nil(t, loaded.DeregisteredAt)
}

func TestAgentRegisterDuplicateIsAlreadyExists(t *testing.T) {
	_, reg := newTestRegistry(t)

	a := Agent{AgentID: "agent-a", Name: "Agent A", Namespace: "agent://agent-a/"}
	require.NoError(t, reg.Register(a))

	err := reg.Register(a)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindAlreadyExists))
}

func TestAgentGetMissingIsNotFound(t *testing.T) {
	_, reg := newTestRegistry(t)

	_, err := reg.Get("ghost")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestAgentSetStatus(t *testing.T) {
	_, reg := newTestRegistry(t)
	require.NoError(t, reg.Register(Agent{AgentID: "agent-a", Name: "A", Namespace: "agent://agent-a/"}))

	require.NoError(t, reg.SetStatus("agent-a", types.AgentIdle))

	loaded, err := reg.Get("agent-a")
	require.NoError(t, err)
	assert.Equal(t, types.AgentIdle, loaded.Status)
}

func TestAgentDeregisterPreservesRowAndPromotesOrphans(t *testing.T) {
	memos, reg := newTestRegistry(t)

	parentNS, _ := types.ParseNamespace("team://core/")
	childNS, _ := types.ParseNamespace("agent://agent-child/")

	require.NoError(t, reg.Register(Agent{AgentID: "parent", Name: "Parent", Namespace: parentNS.String()}))
	require.NoError(t, reg.Register(Agent{
		AgentID:     "agent-child",
		Name:        "Child",
		Namespace:   childNS.String(),
		ParentAgent: "parent",
	}))

	r := memory.New(childNS, types.MemoryInsight, types.ImportanceNormal, "scoped to the child's own namespace")
	require.NoError(t, memos.Put(r))

	moved, err := reg.Deregister("agent-child", true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, moved)

	loaded, err := reg.Get("agent-child")
	require.NoError(t, err)
	assert.Equal(t, types.AgentDeregistered, loaded.Status)
	assert.NotNil(t, loaded.DeregisteredAt)

	reloaded, err := memos.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, parentNS.String(), reloaded.Namespace.String())
}

func TestAgentListByParent(t *testing.T) {
	_, reg := newTestRegistry(t)
	require.NoError(t, reg.Register(Agent{AgentID: "parent", Name: "Parent", Namespace: "team://core/"}))
	require.NoError(t, reg.Register(Agent{AgentID: "child-1", Name: "C1", Namespace: "agent://child-1/", ParentAgent: "parent"}))
	require.NoError(t, reg.Register(Agent{AgentID: "child-2", Name: "C2", Namespace: "agent://child-2/", ParentAgent: "parent"}))

	children, err := reg.ListByParent("parent")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}
