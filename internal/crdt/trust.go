package crdt

import (
	"encoding/json"

	"cortex/internal/config"
	"cortex/internal/types"
)

// Evidence is the raw counter tuple backing one agent's trust score
// for another, persisted as agent_trust.evidence.
type Evidence struct {
	Validated    int `json:"validated"`
	Useful       int `json:"useful"`
	Contradicted int `json:"contradicted"`
	Total        int `json:"total"`
}

// Marshal/Unmarshal round-trip Evidence through the TEXT column.
func (e Evidence) Marshal() string {
	b, _ := json.Marshal(e)
	return string(b)
}

func UnmarshalEvidence(raw string) Evidence {
	var e Evidence
	if raw == "" {
		return e
	}
	_ = json.Unmarshal([]byte(raw), &e)
	return e
}

// Score computes the trust formula:
//
//	(validated + useful) / (total + 1) * (1 - contradicted / (total + 1))
//
// clamped to [0, 1]. The +1 denominators are Laplace smoothing: a
// brand-new relationship with zero evidence scores 0, not undefined,
// and a single contradiction against a thin evidence base costs more
// than the same contradiction against a long track record.
func (e Evidence) Score() float64 {
	denom := float64(e.Total + 1)
	positive := float64(e.Validated+e.Useful) / denom
	penalty := 1.0 - float64(e.Contradicted)/denom
	score := positive * penalty
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// TrustStore tracks directed agent-trust relationships in memory,
// keyed (agentID, targetAgent). Persistence (agent_trust table) is
// the caller's concern via Snapshot/Load; TrustStore itself holds the
// authoritative formula and the self-evidence-rejection invariant.
type TrustStore struct {
	cfg   config.CRDTConfig
	table map[trustKey]Evidence
}

type trustKey struct {
	agent  string
	target string
}

// NewTrustStore builds an empty trust store.
func NewTrustStore(cfg config.CRDTConfig) *TrustStore {
	return &TrustStore{cfg: cfg, table: map[trustKey]Evidence{}}
}

// Bootstrap returns the configured prior trust score for a
// never-before-seen relationship.
func (s *TrustStore) Bootstrap() float64 {
	return s.cfg.TrustBootstrap
}

// Trust returns agent's current trust in target, or Bootstrap() if
// there is no evidence yet.
func (s *TrustStore) Trust(agent, target string) float64 {
	e, ok := s.table[trustKey{agent, target}]
	if !ok {
		return s.Bootstrap()
	}
	return e.Score()
}

// RecordValidated, RecordUseful, RecordContradicted each add one
// count of that kind of evidence from agent about target, rejecting
// self-evidence: an agent's own validation of its own memories can
// never move its own trust score, since that would let an agent
// inflate its trust unilaterally.
func (s *TrustStore) RecordValidated(agent, target string) error {
	return s.record(agent, target, func(e *Evidence) { e.Validated++ })
}

func (s *TrustStore) RecordUseful(agent, target string) error {
	return s.record(agent, target, func(e *Evidence) { e.Useful++ })
}

func (s *TrustStore) RecordContradicted(agent, target string) error {
	return s.record(agent, target, func(e *Evidence) { e.Contradicted++ })
}

func (s *TrustStore) record(agent, target string, mutate func(*Evidence)) error {
	if s.cfg.SelfEvidenceRejected && agent == target {
		return types.NewError(types.KindValidation, "trust: agent %q cannot supply evidence about itself", agent)
	}
	key := trustKey{agent, target}
	e := s.table[key]
	e.Total++
	mutate(&e)
	s.table[key] = e
	return nil
}

// Load seeds the store from a persisted (agent, target, evidence) row.
func (s *TrustStore) Load(agent, target string, e Evidence) {
	s.table[trustKey{agent, target}] = e
}

// Snapshot returns (evidence, ok) for the given pair, for persistence.
func (s *TrustStore) Snapshot(agent, target string) (Evidence, bool) {
	e, ok := s.table[trustKey{agent, target}]
	return e, ok
}

// Diverges reports whether two trust scores differ by more than tau
// the threshold the contradiction cascade (TrustWins vs.
// ContextDependent) keys on.
func (s *TrustStore) Diverges(trustA, trustB float64) bool {
	diff := trustA - trustB
	if diff < 0 {
		diff = -diff
	}
	return diff > s.cfg.TrustDivergence
}
