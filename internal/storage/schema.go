package storage

import (
	"database/sql"
	"fmt"

	"cortex/internal/types"
)

// schemaVersion tracks the highest migration applied, following a
// versioned-migration pattern (store/migrations.go).
const schemaVersion = 1

var baseTables = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,

	// memories is the single source of truth for every MemoryRecord
	//. content_hash is the blake2b digest used for
	// content-addressed dedup.
	`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		memory_type TEXT NOT NULL,
		importance TEXT NOT NULL DEFAULT 'normal',
		epistemic_status TEXT NOT NULL DEFAULT 'conjecture',
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		summary_l1 TEXT,
		summary_l2 TEXT,
		summary_l3 TEXT,
		source_file TEXT,
		source_line INTEGER,
		confidence REAL NOT NULL DEFAULT 0.4,
		linked_files TEXT,
		functions TEXT,
		patterns TEXT,
		constraints TEXT,
		citation_count INTEGER NOT NULL DEFAULT 0,
		access_count INTEGER NOT NULL DEFAULT 0,
		last_accessed_at DATETIME,
		last_cited_at DATETIME,
		decay_score REAL NOT NULL DEFAULT 1.0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		archived_at DATETIME,
		vector_clock TEXT,
		origin_agent TEXT,
		UNIQUE(namespace, content_hash)
	);
	CREATE INDEX IF NOT EXISTS idx_memories_namespace ON memories(namespace);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
	CREATE INDEX IF NOT EXISTS idx_memories_hash ON memories(content_hash);
	CREATE INDEX IF NOT EXISTS idx_memories_decay ON memories(decay_score);
	CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		content, summary_l1, summary_l2, content='memories', content_rowid='rowid'
	);
	CREATE TRIGGER IF NOT EXISTS memories_fts_ai AFTER INSERT ON memories BEGIN
		INSERT INTO memories_fts(rowid, content, summary_l1, summary_l2) VALUES (new.rowid, new.content, new.summary_l1, new.summary_l2);
	END;
	CREATE TRIGGER IF NOT EXISTS memories_fts_ad AFTER DELETE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content, summary_l1, summary_l2) VALUES ('delete', old.rowid, old.content, old.summary_l1, old.summary_l2);
	END;
	CREATE TRIGGER IF NOT EXISTS memories_fts_au AFTER UPDATE OF content, summary_l1, summary_l2 ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content, summary_l1, summary_l2) VALUES ('delete', old.rowid, old.content, old.summary_l1, old.summary_l2);
		INSERT INTO memories_fts(rowid, content, summary_l1, summary_l2) VALUES (new.rowid, new.content, new.summary_l1, new.summary_l2);
	END;`,

	`CREATE TABLE IF NOT EXISTS memory_embeddings (
		memory_id TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
		provider TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		vector BLOB NOT NULL,
		search_vector BLOB
	);`,

	`CREATE TABLE IF NOT EXISTS memory_tags (
		memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		PRIMARY KEY (memory_id, tag)
	);
	CREATE INDEX IF NOT EXISTS idx_memory_tags_tag ON memory_tags(tag);`,

	// memory_links is the memory-to-memory relationship edge table
	// (§6 External Interfaces): source, target, a relationship_type
	// label, a strength in [0,1], and a JSON evidence array of memory
	// ids or citations supporting the edge.
	`CREATE TABLE IF NOT EXISTS memory_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		target_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		relationship_type TEXT NOT NULL,
		strength REAL NOT NULL DEFAULT 1.0,
		evidence TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_id, target_id, relationship_type)
	);
	CREATE INDEX IF NOT EXISTS idx_links_source ON memory_links(source_id);
	CREATE INDEX IF NOT EXISTS idx_links_target ON memory_links(target_id);`,

	// consolidation: clusters and their derived abstraction memories.
	`CREATE TABLE IF NOT EXISTS clusters (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		member_ids TEXT NOT NULL,
		centroid BLOB,
		coherence REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS abstractions (
		id TEXT PRIMARY KEY,
		cluster_id TEXT NOT NULL REFERENCES clusters(id) ON DELETE CASCADE,
		abstraction_memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS consolidation_runs (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		clusters_formed INTEGER DEFAULT 0,
		memories_archived INTEGER DEFAULT 0,
		lock_token TEXT
	);`,

	// multi-agent CRDT state.
	`CREATE TABLE IF NOT EXISTS namespaces (
		uri TEXT PRIMARY KEY,
		scope TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS namespace_acl (
		namespace_uri TEXT NOT NULL REFERENCES namespaces(uri) ON DELETE CASCADE,
		agent_id TEXT NOT NULL,
		permission TEXT NOT NULL,
		PRIMARY KEY (namespace_uri, agent_id, permission)
	);`,
	// agents is the registration roster for multi-agent mode (§3 Agent
	// Registration): deregistration never deletes the row, it only
	// flips status, so provenance and trust history referencing the
	// agent id stay resolvable.
	`CREATE TABLE IF NOT EXISTS agents (
		agent_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		namespace TEXT NOT NULL,
		capabilities TEXT NOT NULL DEFAULT '[]',
		parent_agent TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		registered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deregistered_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_agents_parent ON agents(parent_agent);`,
	// agent_trust is keyed per directed pair: how much agent_id trusts
	// target_agent, per the evidence-tuple trust formula. evidence
	// carries the raw (validated, useful, contradicted, total) counters
	// as JSON so the formula can be recomputed instead of only cached.
	`CREATE TABLE IF NOT EXISTS agent_trust (
		agent_id TEXT NOT NULL,
		target_agent TEXT NOT NULL,
		overall_trust REAL NOT NULL DEFAULT 0.5,
		domain_trust TEXT,
		evidence TEXT NOT NULL DEFAULT '{}',
		last_updated DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (agent_id, target_agent)
	);`,
	// provenance_log is append-only: every trust-affecting event
	// (citation, contradiction, confirmation) a cross-agent memory
	// accumulates, kept even after agent_trust's running tallies move on.
	`CREATE TABLE IF NOT EXISTS provenance_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		memory_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		event TEXT NOT NULL,
		detail TEXT,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_provenance_memory ON provenance_log(memory_id);`,
	`CREATE TABLE IF NOT EXISTS crdt_replicas (
		memory_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		vector_clock TEXT NOT NULL,
		lww_fields TEXT,
		or_set_tags TEXT,
		g_counter_access INTEGER NOT NULL DEFAULT 0,
		max_importance TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (memory_id, agent_id)
	);`,
	// delta_queue buffers incoming deltas whose causal predecessors
	// haven't arrived yet, keyed by the sync edge and ordered by the
	// sender's vector clock at emission time.
	`CREATE TABLE IF NOT EXISTS delta_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_agent TEXT NOT NULL,
		target_agent TEXT NOT NULL,
		memory_id TEXT NOT NULL,
		vector_clock TEXT NOT NULL,
		payload TEXT NOT NULL,
		buffered_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		applied BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_delta_queue_edge ON delta_queue(source_agent, target_agent);`,

	// drift analysis core.
	`CREATE TABLE IF NOT EXISTS world_files (
		path TEXT PRIMARY KEY,
		lang TEXT,
		size INTEGER,
		modtime INTEGER,
		content_hash TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS call_graph_edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		caller TEXT NOT NULL,
		callee TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER,
		confidence REAL NOT NULL,
		UNIQUE(caller, callee, file, line)
	);
	CREATE INDEX IF NOT EXISTS idx_cge_caller ON call_graph_edges(caller);
	CREATE INDEX IF NOT EXISTS idx_cge_callee ON call_graph_edges(callee);`,
	`CREATE TABLE IF NOT EXISTS pattern_instances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pattern_id TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER,
		alpha REAL NOT NULL DEFAULT 1,
		beta REAL NOT NULL DEFAULT 1,
		tier TEXT NOT NULL DEFAULT 'emerging',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_pattern_instances_pattern ON pattern_instances(pattern_id);`,
	`CREATE TABLE IF NOT EXISTS taint_findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_file TEXT NOT NULL,
		source_line INTEGER,
		sink_file TEXT NOT NULL,
		sink_line INTEGER,
		path_json TEXT NOT NULL,
		sanitized BOOLEAN NOT NULL DEFAULT 0,
		severity TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS gate_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		gates_json TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS gate_baselines (
		gate_id TEXT NOT NULL,
		finding_hash TEXT NOT NULL,
		suppressed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (gate_id, finding_hash)
	);`,
	`CREATE TABLE IF NOT EXISTS learning_corrections (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		finding_hash TEXT NOT NULL,
		similarity_key TEXT,
		accepted BOOLEAN NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_corrections_category ON learning_corrections(category);`,
}

// migrate creates every base table if missing and records the schema
// version, following a RunMigrations split between initial CREATE
// TABLE and versioned ALTER TABLE steps.
func (e *Engine) migrate() error {
	for _, stmt := range baseTables {
		if _, err := e.writer.Exec(stmt); err != nil {
			return types.Wrap(types.KindStorage, err, "apply schema statement")
		}
	}

	var current int
	row := e.writer.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&current); err != nil {
		return types.Wrap(types.KindStorage, err, "read schema_migrations")
	}
	for v := current + 1; v <= schemaVersion; v++ {
		if err := applyMigration(e.writer, v); err != nil {
			return err
		}
		if _, err := e.writer.Exec("INSERT INTO schema_migrations (version) VALUES (?)", v); err != nil {
			return types.Wrap(types.KindStorage, err, "record migration %d", v)
		}
	}
	return nil
}

// applyMigration runs the versioned step for v. Version 1 is the
// baseline (base tables already cover it); future ALTER TABLE-style
// migrations are appended here as new case arms, never by rewriting
// baseTables retroactively.
func applyMigration(db *sql.DB, v int) error {
	switch v {
	case 1:
		return nil
	default:
		return fmt.Errorf("storage: unknown migration version %d", v)
	}
}
