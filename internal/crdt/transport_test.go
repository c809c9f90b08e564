package crdt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/types"
)

// unreachableTransport simulates a cloud sync endpoint that is down:
// every Send fails with KindCloudSyncNetwork.
type unreachableTransport struct{ calls int }

func (u *unreachableTransport) Send(ctx context.Context, targetAgent string, payload []byte) error {
	u.calls++
	return types.NewError(types.KindCloudSyncNetwork, "connection refused")
}

type recordingTransport struct{ sent [][]byte }

func (r *recordingTransport) Send(ctx context.Context, targetAgent string, payload []byte) error {
	r.sent = append(r.sent, payload)
	return nil
}

func TestPushBuffersOnNetworkFailure(t *testing.T) {
	_, repo := newTestRepo(t)
	sync := NewSyncEngine(config.Default().CRDT, repo)

	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "queued while offline")
	rep := NewReplica(r, "agent-a")

	transport := &unreachableTransport{}
	err := sync.Push(context.Background(), transport, "agent-a", "agent-b", rep)
	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls)

	pending, err := repo.PendingDeltas("agent-a", "agent-b")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, r.ID, pending[0].MemoryID)
}

func TestPushPendingDrainsOnceTransportRecovers(t *testing.T) {
	_, repo := newTestRepo(t)
	sync := NewSyncEngine(config.Default().CRDT, repo)

	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "queued while offline")
	rep := NewReplica(r, "agent-a")

	down := &unreachableTransport{}
	require.NoError(t, sync.Push(context.Background(), down, "agent-a", "agent-b", rep))

	up := &recordingTransport{}
	require.NoError(t, sync.PushPending(context.Background(), up, "agent-a", "agent-b"))
	assert.Len(t, up.sent, 1)

	pending, err := repo.PendingDeltas("agent-a", "agent-b")
	require.NoError(t, err)
	assert.Empty(t, pending)
}
