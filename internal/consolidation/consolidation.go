// Package consolidation implements the Consolidation Engine: a
// 6-phase pipeline (selection, clustering, abstraction, deduplication,
// creation/archival, quality assessment) that periodically compresses
// a namespace's memory set by replacing clusters of related memories
// with synthesized abstractions. Staged result-per-phase shape
// grounded on a 5-stage ConsolidationService pattern (episodic/
// semantic/procedural/schema stages), generalized here to the
// selection->clustering->abstraction->dedup->archival->quality chain.
package consolidation

import (
	"database/sql"
	"time"

	"cortex/internal/compression"
	"cortex/internal/config"
	"cortex/internal/decay"
	"cortex/internal/embedding"
	"cortex/internal/logging"
	"cortex/internal/memory"
	"cortex/internal/storage"
	"cortex/internal/types"
)

// Result summarizes one consolidation run across all six phases.
type Result struct {
	RunID            string
	Namespace        string
	Selected         int
	ClustersFormed   int
	AbstractionsMade int
	Deduplicated     int
	Archived         int
	QualityRejected  int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Engine orchestrates the consolidation pipeline.
type Engine struct {
	storage    *storage.Engine
	memStore   *memory.Store
	embedding  embedding.Engine
	decay      *decay.Engine
	compressor *compression.Compressor
	cfg        config.ConsolidationConfig
}

// New builds a consolidation Engine.
func New(storageEngine *storage.Engine, memStore *memory.Store, embeddingEngine embedding.Engine, decayEngine *decay.Engine, cfg config.ConsolidationConfig) *Engine {
	return &Engine{
		storage:    storageEngine,
		memStore:   memStore,
		embedding:  embeddingEngine,
		decay:      decayEngine,
		compressor: compression.New(config.Default().Compression),
		cfg:        cfg,
	}
}

// Run executes a single consolidation pass for a namespace, guarded
// by a compare-and-swap lock row so two runs can never execute
// concurrently against the same namespace.
func (e *Engine) Run(namespace string) (*Result, error) {
	log := logging.Get(logging.CategoryConsolidation)
	timer := logging.StartTimer(logging.CategoryConsolidation, "Run")
	defer timer.Stop()

	runID := types.NewRunID()
	acquired, err := e.acquireLock(namespace, runID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, types.NewError(types.KindConsolidationRunning, "consolidation already running for namespace %s", namespace)
	}
	defer e.releaseLock(runID)

	result := &Result{RunID: runID, Namespace: namespace, StartedAt: time.Now()}

	// Phase 1: selection. Eligible memories are old enough and not archived.
	candidates, err := e.selectEligible(namespace)
	if err != nil {
		return nil, err
	}
	result.Selected = len(candidates)
	log.Infof("consolidation %s: %d eligible memories selected", runID, len(candidates))

	// Phase 2: clustering.
	clusters := e.cluster(candidates)
	result.ClustersFormed = len(clusters)

	// Phase 3: abstraction. Synthesize one memory per cluster.
	var abstractions []*memory.Record
	for _, cl := range clusters {
		abs := e.abstract(namespace, cl)
		if abs != nil {
			abstractions = append(abstractions, abs)
		}
	}
	result.AbstractionsMade = len(abstractions)

	// Phase 4: deduplication against existing memories by content hash.
	// An abstraction whose hash differs from every existing memory is
	// kept, however similar its content; no embedding comparison is made.
	deduped, dupCount := e.deduplicate(namespace, abstractions)
	result.Deduplicated = dupCount

	// Phase 5: creation/archival. Persist new abstractions, archive
	// their source members.
	for _, abs := range deduped {
		if err := e.memStore.Put(abs); err != nil {
			return nil, err
		}
	}
	archived := 0
	for _, cl := range clusters {
		for _, m := range cl {
			if err := e.memStore.Archive(m.ID); err != nil {
				return nil, err
			}
			archived++
		}
	}
	result.Archived = archived

	// Phase 6: quality assessment. No abstraction is scored or rejected
	// here, so QualityRejected is always 0; the cluster-size and
	// similarity filters in clustering are the only quality bar applied.
	result.QualityRejected = 0

	result.FinishedAt = time.Now()
	if err := e.recordRun(result); err != nil {
		log.Warnf("failed to record consolidation run: %v", err)
	}
	return result, nil
}

// selectEligible returns memories old enough for consolidation
// (older than cfg.EligibilityAge) and not already archived.
func (e *Engine) selectEligible(namespace string) ([]*memory.Record, error) {
	all, err := e.memStore.ListByNamespace(namespace)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-e.cfg.EligibilityAge)
	var eligible []*memory.Record
	for _, r := range all {
		if r.CreatedAt.Before(cutoff) {
			eligible = append(eligible, r)
		}
	}
	return eligible, nil
}

// acquireLock takes the namespace's consolidation lock: a running-row
// insert guarded by first checking no other row for this namespace is
// still 'running'. The check-then-insert is safe here because every
// write already passes through the storage Engine's single serialized
// writer connection (internal/storage.Engine.Writer); no two
// consolidation runs can interleave between the check and the insert.
func (e *Engine) acquireLock(namespace, runID string) (bool, error) {
	acquired := false
	err := e.storage.Writer(func(tx *sql.Tx) error {
		var running int
		row := tx.QueryRow(`SELECT COUNT(*) FROM consolidation_runs WHERE namespace = ? AND status = 'running'`, namespace)
		if err := row.Scan(&running); err != nil {
			return types.Wrap(types.KindStorage, err, "check running consolidation")
		}
		if running > 0 {
			return nil
		}
		if _, err := tx.Exec(
			`INSERT INTO consolidation_runs (id, namespace, started_at, status) VALUES (?, ?, ?, 'running')`,
			runID, namespace, time.Now()); err != nil {
			return types.Wrap(types.KindStorage, err, "acquire consolidation lock")
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

func (e *Engine) releaseLock(runID string) {
	_ = e.storage.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE consolidation_runs SET status = 'done', finished_at = ? WHERE id = ?`, time.Now(), runID)
		return err
	})
}

func (e *Engine) recordRun(r *Result) error {
	return e.storage.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE consolidation_runs SET clusters_formed = ?, memories_archived = ? WHERE id = ?`,
			r.ClustersFormed, r.Archived, r.RunID)
		return err
	})
}
