package crdt

import (
	"cortex/internal/config"
	"cortex/internal/types"
)

// Delta is one causally-ordered unit of cross-agent sync: a single
// memory's replica state as observed at sourceAgent's vector clock,
// addressed to targetAgent.
type Delta struct {
	ID       int64
	MemoryID string
	Clock    VectorClock
	Payload  string // JSON-encoded Replica
}

// SyncEngine applies incoming deltas in causal order, buffering any
// whose predecessor hasn't arrived yet rather than dropping or
// applying them early.
type SyncEngine struct {
	cfg  config.CRDTConfig
	repo *Repo
}

// NewSyncEngine builds a SyncEngine over the CRDT repo.
func NewSyncEngine(cfg config.CRDTConfig, repo *Repo) *SyncEngine {
	return &SyncEngine{cfg: cfg, repo: repo}
}

// Receive handles one incoming delta. If its vector clock is
// causally ready against local's current clock for that memory (i.e.
// local already has everything the delta's sender had observed,
// short of the sender's own new tick), it merges immediately;
// otherwise it's buffered in delta_queue for a later retry once its
// predecessor has been applied.
func (s *SyncEngine) Receive(sourceAgent, targetAgent string, incoming *Replica, local *Replica) (*Replica, bool, error) {
	if local == nil {
		if err := s.repo.SaveReplica(targetAgent, incoming); err != nil {
			return nil, false, err
		}
		return incoming, true, nil
	}

	if !s.causallyReady(sourceAgent, incoming.Clock, local.Clock) {
		payload, err := encodeReplica(incoming)
		if err != nil {
			return nil, false, err
		}
		if err := s.repo.EnqueueDelta(sourceAgent, targetAgent, incoming.MemoryID, incoming.Clock, payload); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	merged := MergeReplica(local, incoming)
	if err := s.repo.SaveReplica(targetAgent, merged); err != nil {
		return nil, false, err
	}
	return merged, true, nil
}

// causallyReady reports whether incoming's tick for sourceAgent is at
// most the next one local expects from that agent (local's recorded
// tick for sourceAgent, plus one) and, for every other agent, no
// greater than local's own tick. A tick further ahead means an earlier
// delta hasn't arrived yet, so this delta must wait in delta_queue
// rather than apply out of order.
func (s *SyncEngine) causallyReady(sourceAgent string, incoming, local VectorClock) bool {
	if incoming[sourceAgent] > local[sourceAgent]+1 {
		return false
	}
	for agent, tick := range incoming {
		if agent != sourceAgent && tick > local[agent] {
			return false
		}
	}
	return true
}

// DrainPending retries every buffered delta on one sync edge against
// the current local replica, applying whichever are now causally
// ready and leaving the rest queued.
func (s *SyncEngine) DrainPending(sourceAgent, targetAgent string, loadLocal func(memoryID string) (*Replica, error)) error {
	pending, err := s.repo.PendingDeltas(sourceAgent, targetAgent)
	if err != nil {
		return err
	}
	for _, d := range pending {
		local, err := loadLocal(d.MemoryID)
		if err != nil {
			return err
		}
		incoming, err := decodeReplica(d.Payload)
		if err != nil {
			return err
		}
		if local != nil && !s.causallyReady(sourceAgent, incoming.Clock, local.Clock) {
			continue // still waiting; its existing queue row stays as it is
		}
		_, applied, err := s.Receive(sourceAgent, targetAgent, incoming, local)
		if err != nil {
			return err
		}
		if applied {
			if err := s.repo.MarkDeltaApplied(d.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeReplica(rep *Replica) (string, error) {
	b, err := marshalReplica(rep)
	if err != nil {
		return "", types.Wrap(types.KindValidation, err, "encode replica")
	}
	return string(b), nil
}

func decodeReplica(payload string) (*Replica, error) {
	rep, err := unmarshalReplica([]byte(payload))
	if err != nil {
		return nil, types.Wrap(types.KindValidation, err, "decode replica")
	}
	return rep, nil
}
