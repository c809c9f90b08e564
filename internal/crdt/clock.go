// Package crdt implements the CRDT & Multi-agent Core:
// per-memory conflict-free replicated state (LWW-registers, OR-set,
// G-counter, max-register, vector clock), trust scoring between
// agents, a deterministic contradiction-resolution cascade, and
// causally-ordered delta sync. Grounded on a general
// merge-then-reconcile idiom plus, for the trust-tuple shape, the
// evidence-counter pattern in other_examples' evidence-vault.go.
package crdt

// VectorClock tracks one logical counter per agent. Comparisons
// follow the standard partial order: Dominates(other) is true iff
// every component of vc is >= the corresponding component of other
// and at least one is strictly greater.
type VectorClock map[string]uint64

// Clone returns an independent copy.
func (vc VectorClock) Clone() VectorClock {
	out := make(VectorClock, len(vc))
	for k, v := range vc {
		out[k] = v
	}
	return out
}

// Increment bumps the counter for agentID and returns the clock
// (mutates in place; callers that need the old value should Clone first).
func (vc VectorClock) Increment(agentID string) VectorClock {
	vc[agentID]++
	return vc
}

// Dominates reports whether vc causally dominates other: every
// component of vc is >= other's, and at least one is strictly
// greater (or vc has a key other lacks with a positive value).
func (vc VectorClock) Dominates(other VectorClock) bool {
	strictlyGreater := false
	for agent, v := range vc {
		if v < other[agent] {
			return false
		}
		if v > other[agent] {
			strictlyGreater = true
		}
	}
	for agent, ov := range other {
		if _, ok := vc[agent]; !ok && ov > 0 {
			return false
		}
	}
	return strictlyGreater
}

// Concurrent reports whether neither clock dominates the other:
// the two edits happened without either observing the other.
func (vc VectorClock) Concurrent(other VectorClock) bool {
	return !vc.Dominates(other) && !other.Dominates(vc) && !vc.Equal(other)
}

// Equal reports whether two clocks have identical components
// (missing entries treated as 0).
func (vc VectorClock) Equal(other VectorClock) bool {
	for agent, v := range vc {
		if other[agent] != v {
			return false
		}
	}
	for agent, v := range other {
		if vc[agent] != v {
			return false
		}
	}
	return true
}

// Merge returns the component-wise maximum of two clocks, the
// standard vector-clock join.
func Merge(a, b VectorClock) VectorClock {
	out := make(VectorClock, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}
