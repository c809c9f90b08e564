package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorClockDominates(t *testing.T) {
	a := VectorClock{"agent-a": 2, "agent-b": 1}
	b := VectorClock{"agent-a": 1, "agent-b": 1}
	assert.True(t, a.Dominates(b))
	assert.False(t, b.Dominates(a))
}

func TestVectorClockConcurrentNeitherDominates(t *testing.T) {
	a := VectorClock{"agent-a": 2, "agent-b": 0}
	b := VectorClock{"agent-a": 0, "agent-b": 2}
	assert.True(t, a.Concurrent(b))
	assert.True(t, b.Concurrent(a))
}

func TestVectorClockEqualIsNotConcurrent(t *testing.T) {
	a := VectorClock{"agent-a": 1}
	b := VectorClock{"agent-a": 1}
	assert.False(t, a.Concurrent(b))
	assert.True(t, a.Equal(b))
}

func TestVectorClockMergeTakesComponentMax(t *testing.T) {
	a := VectorClock{"agent-a": 3, "agent-b": 1}
	b := VectorClock{"agent-a": 1, "agent-b": 5}
	merged := Merge(a, b)
	assert.Equal(t, VectorClock{"agent-a": 3, "agent-b": 5}, merged)
}

func TestVectorClockIncrement(t *testing.T) {
	vc := VectorClock{}
	vc.Increment("agent-a")
	vc.Increment("agent-a")
	assert.Equal(t, uint64(2), vc["agent-a"])
}
