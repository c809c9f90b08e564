package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLWWPicksHigherTimestamp(t *testing.T) {
	a := LWWRegister{Value: "old", Timestamp: 1, AgentID: "agent-a"}
	b := LWWRegister{Value: "new", Timestamp: 2, AgentID: "agent-b"}
	assert.Equal(t, b, MergeLWW(a, b))
	assert.Equal(t, b, MergeLWW(b, a))
}

func TestMergeLWWTieBreaksOnAgentID(t *testing.T) {
	a := LWWRegister{Value: "from-a", Timestamp: 5, AgentID: "agent-a"}
	b := LWWRegister{Value: "from-b", Timestamp: 5, AgentID: "agent-b"}
	assert.Equal(t, b, MergeLWW(a, b))
	assert.Equal(t, b, MergeLWW(b, a))
}

func TestMergeLWWIsIdempotent(t *testing.T) {
	a := LWWRegister{Value: "x", Timestamp: 3, AgentID: "agent-a"}
	assert.Equal(t, a, MergeLWW(a, a))
}

func TestORSetAddThenRemoveDropsMembership(t *testing.T) {
	s := NewORSet()
	s.Add("urgent", "agent-a:1:0")
	assert.Equal(t, []string{"urgent"}, s.Members())

	s.Remove("urgent")
	assert.Empty(t, s.Members())
}

func TestORSetConcurrentAddsBothSurvive(t *testing.T) {
	a := NewORSet()
	a.Add("bug", "agent-a:1:0")
	b := NewORSet()
	b.Add("feature", "agent-b:1:0")

	merged := MergeORSet(a, b)
	assert.ElementsMatch(t, []string{"bug", "feature"}, merged.Members())
}

func TestORSetRemoveDoesNotResurrectViaMerge(t *testing.T) {
	a := NewORSet()
	a.Add("urgent", "agent-a:1:0")
	a.Remove("urgent")

	b := NewORSet()
	b.Add("urgent", "agent-b:1:0") // different add-token: survives a's removal

	merged := MergeORSet(a, b)
	assert.Equal(t, []string{"urgent"}, merged.Members())
}

func TestGCounterMergeTakesPerAgentMax(t *testing.T) {
	a := GCounter{"agent-a": 3, "agent-b": 1}
	b := GCounter{"agent-a": 2, "agent-b": 5}
	merged := MergeGCounter(a, b)
	assert.Equal(t, uint64(8), merged.Value())
}

func TestGCounterMergeIsIdempotent(t *testing.T) {
	a := GCounter{"agent-a": 4}
	merged := MergeGCounter(a, a)
	assert.Equal(t, a.Value(), merged.Value())
}

func TestMaxRegisterMergeKeepsHigherValue(t *testing.T) {
	a := MaxRegister{Value: 1.5}
	b := MaxRegister{Value: 2.0}
	assert.Equal(t, b, MergeMaxRegister(a, b))
	assert.Equal(t, b, MergeMaxRegister(b, a))
}
