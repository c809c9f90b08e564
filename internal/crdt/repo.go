package crdt

import (
	"database/sql"
	"encoding/json"
	"time"

	"cortex/internal/storage"
	"cortex/internal/types"
)

// Repo persists trust relationships, replicas, provenance events, and
// buffered sync deltas, following the thin-wrapper-over-Engine
// pattern used throughout this codebase (see internal/memory.Store).
type Repo struct {
	engine *storage.Engine
}

// NewRepo wraps a storage.Engine with the CRDT persistence surface.
func NewRepo(engine *storage.Engine) *Repo {
	return &Repo{engine: engine}
}

// SaveTrust upserts one directed agent-trust relationship.
func (r *Repo) SaveTrust(agentID, targetAgent string, e Evidence) error {
	return r.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO agent_trust (agent_id, target_agent, overall_trust, evidence, last_updated)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(agent_id, target_agent) DO UPDATE SET
				overall_trust = excluded.overall_trust,
				evidence = excluded.evidence,
				last_updated = excluded.last_updated
		`, agentID, targetAgent, e.Score(), e.Marshal(), time.Now())
		if err != nil {
			return types.Wrap(types.KindStorage, err, "save trust %s->%s", agentID, targetAgent)
		}
		return nil
	})
}

// LoadTrust fetches one directed relationship's evidence, if recorded.
func (r *Repo) LoadTrust(agentID, targetAgent string) (Evidence, bool, error) {
	row := r.engine.Reader().QueryRow(
		`SELECT evidence FROM agent_trust WHERE agent_id = ? AND target_agent = ?`, agentID, targetAgent)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return Evidence{}, false, nil
		}
		return Evidence{}, false, types.Wrap(types.KindStorage, err, "load trust %s->%s", agentID, targetAgent)
	}
	return UnmarshalEvidence(raw), true, nil
}

// RecordProvenance appends one trust-affecting event to the
// append-only provenance_log.
func (r *Repo) RecordProvenance(memoryID, agentID, event, detail string) error {
	return r.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO provenance_log (memory_id, agent_id, event, detail, recorded_at) VALUES (?,?,?,?,?)`,
			memoryID, agentID, event, detail, time.Now())
		if err != nil {
			return types.Wrap(types.KindStorage, err, "record provenance for %s", memoryID)
		}
		return nil
	})
}

// SaveReplica persists a replica's merged field state for a memory
// under one agent's view, keeping crdt_replicas as the durable CRDT
// side-table alongside the memories row it shadows.
func (r *Repo) SaveReplica(agentID string, rep *Replica) error {
	clockJSON, err := json.Marshal(rep.Clock)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal vector clock")
	}
	lww := map[string]LWWRegister{
		"content":    rep.ContentLWW,
		"summary_l1": rep.SummaryL1LWW,
		"summary_l2": rep.SummaryL2LWW,
		"summary_l3": rep.SummaryL3LWW,
	}
	lwwJSON, err := json.Marshal(lww)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal lww fields")
	}
	tagsJSON, err := json.Marshal(rep.Tags)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal or-set tags")
	}

	return r.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO crdt_replicas (
				memory_id, agent_id, vector_clock, lww_fields, or_set_tags,
				g_counter_access, max_importance, updated_at
			) VALUES (?,?,?,?,?,?,?,?)
			ON CONFLICT(memory_id, agent_id) DO UPDATE SET
				vector_clock = excluded.vector_clock,
				lww_fields = excluded.lww_fields,
				or_set_tags = excluded.or_set_tags,
				g_counter_access = excluded.g_counter_access,
				max_importance = excluded.max_importance,
				updated_at = excluded.updated_at
		`, rep.MemoryID, agentID, string(clockJSON), string(lwwJSON), string(tagsJSON),
			rep.Access.Value(), rep.MaxImportance.Value, time.Now())
		if err != nil {
			return types.Wrap(types.KindStorage, err, "save replica %s/%s", rep.MemoryID, agentID)
		}
		return nil
	})
}

// LoadReplicas returns every agent's replica row for a memory, the
// input set for a full merge before presenting the memory to a reader.
func (r *Repo) LoadReplicas(memoryID string) ([]*Replica, error) {
	rows, err := r.engine.Reader().Query(`
		SELECT agent_id, vector_clock, lww_fields, or_set_tags, g_counter_access, max_importance
		FROM crdt_replicas WHERE memory_id = ?`, memoryID)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "load replicas for %s", memoryID)
	}
	defer rows.Close()

	var out []*Replica
	for rows.Next() {
		var agentID, clockJSON, lwwJSON, tagsJSON string
		var accessTotal uint64
		var maxImportance float64
		if err := rows.Scan(&agentID, &clockJSON, &lwwJSON, &tagsJSON, &accessTotal, &maxImportance); err != nil {
			return nil, types.Wrap(types.KindStorage, err, "scan replica row")
		}

		var clock VectorClock
		_ = json.Unmarshal([]byte(clockJSON), &clock)
		var lww map[string]LWWRegister
		_ = json.Unmarshal([]byte(lwwJSON), &lww)
		tags := NewORSet()
		_ = json.Unmarshal([]byte(tagsJSON), tags)

		access := GCounter{agentID: accessTotal}
		out = append(out, &Replica{
			MemoryID:      memoryID,
			Clock:         clock,
			ContentLWW:    lww["content"],
			SummaryL1LWW:  lww["summary_l1"],
			SummaryL2LWW:  lww["summary_l2"],
			SummaryL3LWW:  lww["summary_l3"],
			Tags:          tags,
			Access:        access,
			MaxImportance: MaxRegister{Value: maxImportance},
		})
	}
	return out, rows.Err()
}

// EnqueueDelta buffers an incoming delta from sourceAgent to
// targetAgent whose causal predecessor hasn't been observed yet.
func (r *Repo) EnqueueDelta(sourceAgent, targetAgent, memoryID string, clock VectorClock, payload string) error {
	clockJSON, err := json.Marshal(clock)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal delta clock")
	}
	return r.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO delta_queue (source_agent, target_agent, memory_id, vector_clock, payload, buffered_at, applied)
			VALUES (?,?,?,?,?,?,0)
		`, sourceAgent, targetAgent, memoryID, string(clockJSON), payload, time.Now())
		if err != nil {
			return types.Wrap(types.KindStorage, err, "enqueue delta %s->%s", sourceAgent, targetAgent)
		}
		return nil
	})
}

// PendingDeltas returns every unapplied buffered delta for one sync
// edge, oldest first, for the sync loop to re-attempt in order.
func (r *Repo) PendingDeltas(sourceAgent, targetAgent string) ([]Delta, error) {
	rows, err := r.engine.Reader().Query(`
		SELECT id, memory_id, vector_clock, payload
		FROM delta_queue WHERE source_agent = ? AND target_agent = ? AND applied = 0
		ORDER BY id ASC`, sourceAgent, targetAgent)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "list pending deltas %s->%s", sourceAgent, targetAgent)
	}
	defer rows.Close()

	var out []Delta
	for rows.Next() {
		var d Delta
		var clockJSON string
		if err := rows.Scan(&d.ID, &d.MemoryID, &clockJSON, &d.Payload); err != nil {
			return nil, types.Wrap(types.KindStorage, err, "scan pending delta")
		}
		var clock VectorClock
		_ = json.Unmarshal([]byte(clockJSON), &clock)
		d.Clock = clock
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkDeltaApplied flags a buffered delta as applied so it's excluded
// from future PendingDeltas scans.
func (r *Repo) MarkDeltaApplied(id int64) error {
	return r.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE delta_queue SET applied = 1 WHERE id = ?`, id)
		return err
	})
}
