// Package storage implements the Storage Engine: a
// single-writer, multi-reader SQLite layer backing every other
// component of the Cortex Memory Core and Drift Analysis Core. It
// follows a LocalStore shape: one serialized write connection
// guarded by a mutex, WAL journaling, and an optional
// sqlite-vec ANN index detected at startup.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cortex/internal/config"
	"cortex/internal/logging"
	"cortex/internal/types"
)

// Engine owns the SQLite connection(s) backing every persisted
// component: memory records, vector index, consolidation state,
// CRDT replicas, world-model (call graph / pattern) caches, and
// quality-gate history.
type Engine struct {
	writer *sql.DB
	reader *sql.DB
	mu     sync.Mutex // serializes all writes under a single-writer model

	path       string
	vectorExt  bool
	requireVec bool
	maxRetries int
}

// Open creates (or reopens) the database at cfg.DatabasePath, applies
// pragmas, runs schema migrations, and probes for the sqlite-vec
// extension.
func Open(cfg config.StorageConfig) (*Engine, error) {
	log := logging.Get(logging.CategoryStorage)
	timer := logging.StartTimer(logging.CategoryStorage, "Open")
	defer timer.Stop()

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, types.Wrap(types.KindStorage, err, "create database directory %s", dir)
		}
	}

	writer, err := sql.Open(driverName, cfg.DatabasePath)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "open database %s", cfg.DatabasePath)
	}
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)

	reader, err := sql.Open(driverName, cfg.DatabasePath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		writer.Close()
		return nil, types.Wrap(types.KindStorage, err, "open read pool for %s", cfg.DatabasePath)
	}
	readers := cfg.ReadPoolSize
	if readers <= 0 {
		readers = 4
	}
	reader.SetMaxOpenConns(readers)

	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMS),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := writer.Exec(pragma); err != nil {
			log.Warnf("pragma failed %q: %v", pragma, err)
		}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	e := &Engine{writer: writer, reader: reader, path: cfg.DatabasePath, requireVec: cfg.RequireVecIndex, maxRetries: maxRetries}

	if err := e.migrate(); err != nil {
		writer.Close()
		reader.Close()
		return nil, err
	}

	e.detectVecExtension()
	if e.requireVec && !e.vectorExt {
		writer.Close()
		reader.Close()
		return nil, types.NewError(types.KindStorage,
			"sqlite-vec extension required but unavailable; build with -tags sqlite_vec,cgo")
	}
	if e.vectorExt {
		log.Info("sqlite-vec extension detected")
	} else {
		log.Warn("sqlite-vec extension unavailable, falling back to brute-force cosine search")
	}

	return e, nil
}

// Close releases both the writer and the read pool.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.writer.Close(); err != nil {
		firstErr = err
	}
	if err := e.reader.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// HasVectorIndex reports whether the sqlite-vec extension was detected
// at startup. Retrieval's dense search does not consult it and
// brute-forces cosine similarity either way.
func (e *Engine) HasVectorIndex() bool { return e.vectorExt }

// Writer runs fn against the single write connection under the
// engine's mutex, keeping to the single-writer discipline above. A
// transaction that fails to begin or commit because the database is
// locked (WAL readers holding it past busy_timeout, or a concurrent
// process) is tried again with linear backoff, up to maxRetries
// attempts in all, before giving up with KindTransient, per the retry-budget-exhausted
// contract: callers may retry such errors themselves, at a higher
// level, with their own policy.
func (e *Engine) Writer(fn func(*sql.Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
		}

		tx, err := e.writer.Begin()
		if err != nil {
			if isLockedErr(err) {
				lastErr = err
				continue
			}
			return types.Wrap(types.KindStorage, err, "begin transaction")
		}

		if err := fn(tx); err != nil {
			tx.Rollback()
			if isLockedErr(err) {
				lastErr = err
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if isLockedErr(err) {
				lastErr = err
				continue
			}
			return types.Wrap(types.KindStorage, err, "commit transaction")
		}
		return nil
	}
	return types.Wrap(types.KindTransient, lastErr, "database locked after %d attempts", e.maxRetries)
}

// isLockedErr reports whether err is a SQLite "database is locked" or
// "database table is locked" condition, the two busy-related messages
// both the cgo (mattn/go-sqlite3) and pure-Go (modernc.org/sqlite)
// drivers surface once busy_timeout is exhausted.
func isLockedErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "table is locked")
}

// Reader returns a read-pool connection for concurrent queries.
func (e *Engine) Reader() *sql.DB { return e.reader }

// IsUniqueViolation reports whether err came from a UNIQUE/PRIMARY KEY
// constraint failure. Both the cgo (mattn/go-sqlite3) and pure-Go
// (modernc.org/sqlite) drivers surface this as an error whose message
// names the constraint, so a substring check covers both builds
// without a per-driver type assertion.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed: UNIQUE")
}

// detectVecExtension probes for the extension: attempt to create a
// throwaway vec0 virtual table and see if it succeeds.
func (e *Engine) detectVecExtension() {
	if _, err := e.writer.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err == nil {
		e.vectorExt = true
		_, _ = e.writer.Exec("DROP TABLE IF EXISTS vec_probe")
		return
	}
	e.vectorExt = false
}

// Stats returns row counts for a fixed list of the main tables (not
// every table in the schema), for diagnostics and the CLI
// `cortex status` surface.
func (e *Engine) Stats() (map[string]int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tables := []string{
		"memories", "memory_embeddings", "memory_tags", "memory_links",
		"clusters", "abstractions", "crdt_replicas", "namespaces",
		"call_graph_edges", "pattern_instances", "taint_findings",
		"gate_runs", "learning_corrections",
	}
	stats := make(map[string]int64, len(tables))
	for _, table := range tables {
		var count int64
		if err := e.writer.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			continue
		}
		stats[table] = count
	}
	return stats, nil
}
