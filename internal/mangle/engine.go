// Package mangle wraps the Google Mangle Datalog engine for the one
// thing cortex needs a logic engine for: validating and resolving the
// quality-gate dependency DAG. Adapted and heavily trimmed from a
// fuller internal/mangle engine wrapper, which embeds the same
// analysis/ast/engine/factstore/parse stack for a much larger
// fact-graph surface; this package keeps only schema loading, fact
// insertion, and querying.
package mangle

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"
)

// Engine is a minimal Datalog fact store plus rule evaluator.
type Engine struct {
	mu             sync.RWMutex
	store          factstore.ConcurrentFactStore
	baseStore      factstore.FactStoreWithRemove
	programInfo    *analysis.ProgramInfo
	queryContext   *mengine.QueryContext
	predicateIndex map[string]ast.PredicateSym
}

// NewEngine builds an empty engine. Call LoadSchema before adding facts.
func NewEngine() *Engine {
	base := factstore.NewSimpleInMemoryStore()
	return &Engine{
		baseStore:      base,
		store:          factstore.NewConcurrentFactStore(base),
		predicateIndex: make(map[string]ast.PredicateSym),
	}
}

// LoadSchema compiles a Mangle schema/rule source (decls + clauses).
func (e *Engine) LoadSchema(schema string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("analyze schema: %w", err)
	}
	e.programInfo = programInfo

	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	e.predicateIndex = make(map[string]ast.PredicateSym, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		e.predicateIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}

	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	e.queryContext = &mengine.QueryContext{
		PredToRules: predToRules,
		PredToDecl:  predToDecl,
		Store:       e.store,
	}
	return nil
}

// AddFact inserts a ground fact for predicate with name-typed args
// (every arg is rendered as a Mangle /name constant).
func (e *Engine) AddFact(predicate string, args ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return fmt.Errorf("predicate %s is not declared", predicate)
	}
	if len(args) != sym.Arity {
		return fmt.Errorf("predicate %s expects %d args, got %d", predicate, sym.Arity, len(args))
	}

	terms := make([]ast.BaseTerm, len(args))
	for i, a := range args {
		name, err := ast.Name("/" + a)
		if err != nil {
			return fmt.Errorf("predicate %s arg %d: %w", predicate, i, err)
		}
		terms[i] = name
	}
	e.store.Add(ast.Atom{Predicate: sym, Args: terms})
	return nil
}

// Recompute re-evaluates every loaded rule against the current facts.
func (e *Engine) Recompute() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.programInfo == nil {
		return fmt.Errorf("no schema loaded")
	}
	_, err := mengine.EvalProgramWithStats(e.programInfo, e.store)
	return err
}

// Query evaluates a query atom (e.g. "cyclic(X)") and returns the
// bound values of its first variable argument across all matches.
func (e *Engine) Query(ctx context.Context, query string) ([]string, error) {
	atom, err := parse.Atom(query)
	if err != nil {
		return nil, fmt.Errorf("parse query %q: %w", query, err)
	}

	e.mu.RLock()
	qc := e.queryContext
	e.mu.RUnlock()
	if qc == nil {
		return nil, fmt.Errorf("no schema loaded")
	}

	decl, ok := qc.PredToDecl[atom.Predicate]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", atom.Predicate.Symbol)
	}
	modes := decl.Modes()
	if len(modes) == 0 {
		return nil, fmt.Errorf("predicate %s has no modes declared", atom.Predicate.Symbol)
	}

	var out []string
	err = qc.EvalQuery(atom, modes[0], unionfind.New(), func(fact ast.Atom) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if len(fact.Args) == 0 {
			return nil
		}
		if c, ok := fact.Args[0].(ast.Constant); ok {
			out = append(out, c.Symbol)
		}
		return nil
	})
	return out, err
}
