package crdt

import (
	"cortex/internal/memory"
)

// Replica is one agent's CRDT-tracked view of a single memory: the
// per-field state needed to merge concurrent edits from multiple
// agents without coordination, a per-memory CRDT product type.
// Content and the three summary levels are LWW (an edit
// replaces the prior text outright); Tags is an OR-Set (concurrent
// tag adds/removes from different agents both survive); AccessCount
// is a G-Counter (every agent's own touches always accumulate);
// Importance is a MaxRegister (the highest importance any agent ever
// assigned wins, since downgrading shared knowledge silently is
// riskier than over-keeping it); Clock is the owning replica's vector
// clock for causal comparison during sync.
type Replica struct {
	MemoryID string
	Clock    VectorClock

	ContentLWW   LWWRegister
	SummaryL1LWW LWWRegister
	SummaryL2LWW LWWRegister
	SummaryL3LWW LWWRegister

	Tags   *ORSet
	Access GCounter

	MaxImportance MaxRegister
}

// NewReplica snapshots a memory.Record into a fresh single-agent
// Replica, stamping every LWW field with agentID's current clock tick.
func NewReplica(r *memory.Record, agentID string) *Replica {
	clock := VectorClock(r.VectorClock).Clone()
	if clock == nil {
		clock = VectorClock{}
	}
	tick := clock[agentID]

	tags := NewORSet()
	for i, tag := range r.Tags {
		tags.Add(tag, tokenFor(agentID, tick, i))
	}

	access := GCounter{}
	access.Increment(agentID, uint64(r.AccessCount))

	return &Replica{
		MemoryID:      r.ID,
		Clock:         clock,
		ContentLWW:    LWWRegister{Value: r.Content, Timestamp: tick, AgentID: agentID},
		SummaryL1LWW:  LWWRegister{Value: r.SummaryL1, Timestamp: tick, AgentID: agentID},
		SummaryL2LWW:  LWWRegister{Value: r.SummaryL2, Timestamp: tick, AgentID: agentID},
		SummaryL3LWW:  LWWRegister{Value: r.SummaryL3, Timestamp: tick, AgentID: agentID},
		Tags:          tags,
		Access:        access,
		MaxImportance: MaxRegister{Value: r.Importance.Weight()},
	}
}

func tokenFor(agentID string, tick uint64, seq int) string {
	return agentID + ":" + itoa(tick) + ":" + itoa(uint64(seq))
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// MergeReplica combines two replicas of the same memory into one by
// merging each field independently with its own CRDT rule, then
// joining the vector clocks. Whole-record merge is field-wise merge:
// since every field's merge is commutative/associative/idempotent,
// the combined merge inherits all three properties, so agents can
// sync pairwise in any order and converge on the same state.
func MergeReplica(a, b *Replica) *Replica {
	return &Replica{
		MemoryID:      a.MemoryID,
		Clock:         Merge(a.Clock, b.Clock),
		ContentLWW:    MergeLWW(a.ContentLWW, b.ContentLWW),
		SummaryL1LWW:  MergeLWW(a.SummaryL1LWW, b.SummaryL1LWW),
		SummaryL2LWW:  MergeLWW(a.SummaryL2LWW, b.SummaryL2LWW),
		SummaryL3LWW:  MergeLWW(a.SummaryL3LWW, b.SummaryL3LWW),
		Tags:          MergeORSet(a.Tags, b.Tags),
		Access:        MergeGCounter(a.Access, b.Access),
		MaxImportance: MergeMaxRegister(a.MaxImportance, b.MaxImportance),
	}
}

// ApplyTo writes the replica's merged state back onto a memory.Record
// for the read path (the Record remains the canonical row; Replica is
// the merge-time working set).
func (rep *Replica) ApplyTo(r *memory.Record) {
	r.Content = rep.ContentLWW.Value
	r.SummaryL1 = rep.SummaryL1LWW.Value
	r.SummaryL2 = rep.SummaryL2LWW.Value
	r.SummaryL3 = rep.SummaryL3LWW.Value
	r.Tags = rep.Tags.Members()
	r.AccessCount = int(rep.Access.Value())
	r.VectorClock = rep.Clock
}
