package crdt

import (
	"database/sql"
	"encoding/json"
	"time"

	"cortex/internal/memory"
	"cortex/internal/storage"
	"cortex/internal/types"
)

// Agent is a registered participant in multi-agent mode (§3 Agent
// Registration): an id, a display name, the namespace it writes to,
// its declared capabilities, an optional parent (for orphan
// promotion on deregistration), and a lifecycle status.
type Agent struct {
	AgentID        string
	Name           string
	Namespace      string
	Capabilities   []string
	ParentAgent    string
	Status         types.AgentStatus
	RegisteredAt   time.Time
	DeregisteredAt *time.Time
}

// AgentRegistry is the storage-backed roster of registered agents,
// following the thin-wrapper-over-Engine pattern used by Repo and ACL.
type AgentRegistry struct {
	engine *storage.Engine
	memos  *memory.Store
}

// NewAgentRegistry wraps a storage.Engine (and the memory.Store it
// backs, for deregistration's orphan-promotion step) with the agent
// registration surface.
func NewAgentRegistry(engine *storage.Engine, memos *memory.Store) *AgentRegistry {
	return &AgentRegistry{engine: engine, memos: memos}
}

// Register inserts a new agent in Active status. Re-registering an
// existing agent id returns KindAlreadyExists: identity is immutable
// once assigned, matching the memory record identity convention.
func (r *AgentRegistry) Register(a Agent) error {
	caps, err := json.Marshal(a.Capabilities)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal capabilities for %s", a.AgentID)
	}
	if a.Status == "" {
		a.Status = types.AgentActive
	}
	return r.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO agents (agent_id, name, namespace, capabilities, parent_agent, status, registered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, a.AgentID, a.Name, a.Namespace, string(caps), nullString(a.ParentAgent), string(a.Status), time.Now())
		if err != nil {
			if storage.IsUniqueViolation(err) {
				return types.NewError(types.KindAlreadyExists, "agent %s already registered", a.AgentID)
			}
			return types.Wrap(types.KindStorage, err, "register agent %s", a.AgentID)
		}
		return nil
	})
}

// Get loads one agent by id.
func (r *AgentRegistry) Get(agentID string) (Agent, error) {
	row := r.engine.Reader().QueryRow(`
		SELECT agent_id, name, namespace, capabilities, parent_agent, status, registered_at, deregistered_at
		FROM agents WHERE agent_id = ?`, agentID)
	return scanAgent(row)
}

// ListByParent returns every agent registered with parentAgent as its
// parent, the set of children eligible for orphan promotion when
// parentAgent itself deregisters.
func (r *AgentRegistry) ListByParent(parentAgent string) ([]Agent, error) {
	rows, err := r.engine.Reader().Query(`
		SELECT agent_id, name, namespace, capabilities, parent_agent, status, registered_at, deregistered_at
		FROM agents WHERE parent_agent = ?`, parentAgent)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "list children of %s", parentAgent)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, types.Wrap(types.KindStorage, err, "scan agent row")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetStatus transitions an agent between Active and Idle without
// touching registration/deregistration bookkeeping.
func (r *AgentRegistry) SetStatus(agentID string, status types.AgentStatus) error {
	return r.engine.Writer(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE agents SET status = ? WHERE agent_id = ?`, string(status), agentID)
		if err != nil {
			return types.Wrap(types.KindStorage, err, "set status for %s", agentID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return types.NewError(types.KindNotFound, "agent %s not registered", agentID)
		}
		return nil
	})
}

// Deregister marks an agent Deregistered, preserving the row (and
// every provenance/trust record that names it) rather than deleting
// it. When promoteOrphans is true and the agent has a ParentAgent, any
// non-archived memories still owned by the agent's own namespace are
// moved (ReassignNamespace) into the parent's namespace so they are
// not stranded in a namespace nobody can write to anymore.
func (r *AgentRegistry) Deregister(agentID string, promoteOrphans bool) (movedMemories int64, err error) {
	a, err := r.Get(agentID)
	if err != nil {
		return 0, err
	}

	err = r.engine.Writer(func(tx *sql.Tx) error {
		now := time.Now()
		_, err := tx.Exec(`UPDATE agents SET status = ?, deregistered_at = ? WHERE agent_id = ?`,
			string(types.AgentDeregistered), now, agentID)
		if err != nil {
			return types.Wrap(types.KindStorage, err, "deregister agent %s", agentID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if !promoteOrphans || a.ParentAgent == "" {
		return 0, nil
	}

	parent, err := r.Get(a.ParentAgent)
	if err != nil {
		// Parent not a registered agent (e.g. a team/project namespace
		// owner rather than an agent id): fall back to the parent id
		// itself as a namespace-scoped fallback is out of scope here,
		// the caller already knows the target namespace in that case.
		return 0, nil
	}
	moved, err := r.memos.ReassignNamespace(a.Namespace, parent.Namespace)
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func scanAgent(row scanner) (Agent, error) {
	var a Agent
	var caps, status string
	var parent sql.NullString
	var deregisteredAt sql.NullTime

	err := row.Scan(&a.AgentID, &a.Name, &a.Namespace, &caps, &parent, &status, &a.RegisteredAt, &deregisteredAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Agent{}, types.NewError(types.KindNotFound, "agent not found")
		}
		return Agent{}, err
	}
	a.Status = types.AgentStatus(status)
	if parent.Valid {
		a.ParentAgent = parent.String
	}
	if deregisteredAt.Valid {
		a.DeregisteredAt = &deregisteredAt.Time
	}
	_ = json.Unmarshal([]byte(caps), &a.Capabilities)
	return a, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
