// Package gate implements the quality-gate orchestrator:
// a DAG of named gates, each depending on zero or more other gates,
// executed in dependency order with per-gate timeouts, baseline
// suppression, and progressive severity downgrades. Dependency-cycle
// validation is delegated to the embedded Datalog engine in
// cortex/internal/mangle rather than a hand-rolled graph check, the
// same way Mangle is used elsewhere for program-structure queries.
package gate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cortex/internal/config"
	"cortex/internal/mangle"
	"cortex/internal/types"
)

// Severity is a finding's reported severity.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Status is the terminal state of one gate's execution.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusErrored Status = "errored"
)

// Finding is one issue a gate reports.
type Finding struct {
	ContentKey string // stable identity for baseline matching
	Message    string
	Severity   Severity
}

// Input is the material a gate evaluates; Gates only read from it.
type Input struct {
	Files map[string][]byte
}

// Result is the outcome of running one gate.
type Result struct {
	GateID   string
	Status   Status
	Findings []Finding
	Err      error
}

// EvaluateFunc runs a gate's check against the shared Input.
type EvaluateFunc func(ctx context.Context, input Input) ([]Finding, error)

// Gate is one named check in the DAG, with its upstream dependencies.
type Gate struct {
	ID         string
	DependsOn  []string
	Evaluate   EvaluateFunc
}

// Baseline is the set of previously-accepted finding content keys,
// used to mark new findings vs ones already known (progressive
// severity policy downgrades the latter).
type Baseline map[string]bool

// IsNew reports whether a finding's content key was absent from the
// baseline.
func (b Baseline) IsNew(f Finding) bool {
	return !b[f.ContentKey]
}

// Orchestrator runs a set of Gates in dependency order.
type Orchestrator struct {
	cfg   config.AnalysisConfig
	gates map[string]Gate
	order []string
}

// New validates gates' depends_on graph for cycles (via the embedded
// Mangle engine) and computes a topological execution order. A cycle
// in depends_on is a configuration error, not a runtime failure.
func New(cfg config.AnalysisConfig, gates []Gate) (*Orchestrator, error) {
	byID := make(map[string]Gate, len(gates))
	for _, g := range gates {
		if _, dup := byID[g.ID]; dup {
			return nil, types.NewError(types.KindValidation, "duplicate gate id %q", g.ID)
		}
		byID[g.ID] = g
	}
	for _, g := range gates {
		for _, dep := range g.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, types.NewError(types.KindValidation, "gate %q depends on unknown gate %q", g.ID, dep)
			}
		}
	}

	if err := checkAcyclic(gates); err != nil {
		return nil, err
	}

	order, err := topoSort(gates)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{cfg: cfg, gates: byID, order: order}, nil
}

const gateSchema = `
Decl depends_on(Gate, Dep)
  bound [/name, /name].
Decl transitive(Gate, Dep)
  bound [/name, /name].
Decl cyclic(Gate)
  bound [/name].

transitive(X, Y) :- depends_on(X, Y).
transitive(X, Z) :- depends_on(X, Y), transitive(Y, Z).
cyclic(X) :- transitive(X, X).
`

// checkAcyclic loads every depends_on edge into a fresh Mangle engine
// and queries cyclic(X); a non-empty result means the configured DAG
// has a cycle through X.
func checkAcyclic(gates []Gate) error {
	eng := mangle.NewEngine()
	if err := eng.LoadSchema(gateSchema); err != nil {
		return fmt.Errorf("load gate schema: %w", err)
	}
	for _, g := range gates {
		for _, dep := range g.DependsOn {
			if err := eng.AddFact("depends_on", sanitizeName(g.ID), sanitizeName(dep)); err != nil {
				return fmt.Errorf("add depends_on fact: %w", err)
			}
		}
	}
	if err := eng.Recompute(); err != nil {
		return fmt.Errorf("recompute gate graph: %w", err)
	}

	cyclic, err := eng.Query(context.Background(), "cyclic(X)")
	if err != nil {
		return fmt.Errorf("query cyclic gates: %w", err)
	}
	if len(cyclic) > 0 {
		return types.NewError(types.KindPatternCycle, "gate dependency cycle through: %v", cyclic)
	}
	return nil
}

// sanitizeName maps a gate id to a valid Mangle /name identifier.
func sanitizeName(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 || !(out[0] >= 'a' && out[0] <= 'z') {
		out = append([]byte{'g', '_'}, out...)
	}
	return string(out)
}

// topoSort computes a dependency-respecting execution order via
// Kahn's algorithm, assuming the graph is already known acyclic.
func topoSort(gates []Gate) ([]string, error) {
	indegree := map[string]int{}
	dependents := map[string][]string{}
	for _, g := range gates {
		if _, ok := indegree[g.ID]; !ok {
			indegree[g.ID] = 0
		}
		for _, dep := range g.DependsOn {
			indegree[g.ID]++
			dependents[dep] = append(dependents[dep], g.ID)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, child := range dependents[next] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(order) != len(gates) {
		return nil, types.NewError(types.KindPatternCycle, "gate dependency cycle detected during ordering")
	}
	return order, nil
}

// Run executes every gate in dependency order. A gate whose any
// dependency did not pass is skipped, not failed, so a single broken
// upstream gate doesn't mask the remaining independent gates. Each
// gate gets its own timeout (cfg.GateTimeoutSeconds); a timeout
// produces Errored rather than Failed and never affects sibling
// gates. Baseline suppression and progressive severity downgrades are
// applied to each gate's findings before it's recorded.
func (o *Orchestrator) Run(ctx context.Context, input Input, baseline Baseline) []Result {
	status := map[string]Status{}
	var results []Result

	timeout := time.Duration(o.cfg.GateTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	for _, id := range o.order {
		g := o.gates[id]

		if skipped := dependencyFailed(g, status); skipped {
			status[id] = StatusSkipped
			results = append(results, Result{GateID: id, Status: StatusSkipped})
			continue
		}

		gctx, cancel := context.WithTimeout(ctx, timeout)
		findings, err := g.Evaluate(gctx, input)
		cancel()

		if gctx.Err() != nil {
			status[id] = StatusErrored
			timeoutErr := types.Wrap(types.KindTimeoutExceeded, gctx.Err(), "gate %q exceeded %s timeout", id, timeout)
			results = append(results, Result{GateID: id, Status: StatusErrored, Err: timeoutErr})
			continue
		}
		if err != nil {
			status[id] = StatusErrored
			results = append(results, Result{GateID: id, Status: StatusErrored, Err: err})
			continue
		}

		findings = applyBaselinePolicy(findings, baseline, o.cfg.ProgressivePolicy)

		st := StatusPassed
		for _, f := range findings {
			if f.Severity == SeverityError || f.Severity == SeverityCritical {
				st = StatusFailed
				break
			}
		}
		status[id] = st
		results = append(results, Result{GateID: id, Status: st, Findings: findings})
	}
	return results
}

func dependencyFailed(g Gate, status map[string]Status) bool {
	for _, dep := range g.DependsOn {
		switch status[dep] {
		case StatusPassed:
			continue
		default:
			return true
		}
	}
	return false
}

// applyBaselinePolicy downgrades findings already present in the
// baseline by one severity step when the progressive policy is
// enabled and configured to downgrade baseline findings, so that new
// regressions surface at full severity while already-known issues
// keep being reported without re-blocking a build on old debt.
func applyBaselinePolicy(findings []Finding, baseline Baseline, policy config.ProgressivePolicy) []Finding {
	if !policy.Enabled || !policy.DowngradeBaseline || baseline == nil {
		return findings
	}
	out := make([]Finding, len(findings))
	for i, f := range findings {
		if !baseline.IsNew(f) {
			f.Severity = downgrade(f.Severity)
		}
		out[i] = f
	}
	return out
}

func downgrade(s Severity) Severity {
	switch s {
	case SeverityCritical:
		return SeverityError
	case SeverityError:
		return SeverityWarning
	case SeverityWarning:
		return SeverityInfo
	default:
		return SeverityInfo
	}
}
