package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cortex/internal/logging"
	"cortex/internal/storage"
	"cortex/internal/types"
)

// Store is the memory-facing CRUD surface over internal/storage,
// following a LocalStore pattern of a thin struct wrapping the shared
// Engine with category-scoped logging.
type Store struct {
	engine *storage.Engine
}

// NewStore wraps a storage.Engine with the memory-record CRUD surface.
func NewStore(engine *storage.Engine) *Store {
	return &Store{engine: engine}
}

const selectColumns = `id, namespace, memory_type, importance, epistemic_status,
		content, content_hash, summary_l1, summary_l2, summary_l3,
		source_file, source_line, confidence, linked_files, functions, patterns, constraints,
		citation_count, access_count,
		last_accessed_at, last_cited_at, decay_score,
		created_at, updated_at, archived_at, vector_clock, origin_agent`

// Put inserts a memory record. When a record with the same content
// hash already exists in its namespace, no second row is created: only
// the stored row's UpdatedAt and DecayScore are overwritten with r's.
func (s *Store) Put(r *Record) error {
	timer := logging.StartTimer(logging.CategoryMemory, "Put")
	defer timer.Stop()

	return s.engine.Writer(func(tx *sql.Tx) error {
		return putTx(tx, r)
	})
}

// CreateBulk inserts many records in a single transaction, the
// batched counterpart to Put used when ingesting a whole analysis run
// or import at once.
func (s *Store) CreateBulk(records []*Record) error {
	timer := logging.StartTimer(logging.CategoryMemory, "CreateBulk")
	defer timer.Stop()

	if len(records) == 0 {
		return nil
	}
	return s.engine.Writer(func(tx *sql.Tx) error {
		for _, r := range records {
			if err := putTx(tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func putTx(tx *sql.Tx, r *Record) error {
	clockJSON, err := json.Marshal(r.VectorClock)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal vector clock")
	}
	linkedFiles, err := json.Marshal(r.LinkedFiles)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal linked files")
	}
	functions, err := json.Marshal(r.Functions)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal functions")
	}
	patterns, err := json.Marshal(r.Patterns)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal patterns")
	}
	constraints, err := json.Marshal(r.Constraints)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal constraints")
	}

	_, err = tx.Exec(`
		INSERT INTO memories (
			id, namespace, memory_type, importance, epistemic_status,
			content, content_hash, summary_l1, summary_l2, summary_l3,
			source_file, source_line, confidence, linked_files, functions, patterns, constraints,
			citation_count, access_count,
			last_accessed_at, last_cited_at, decay_score,
			created_at, updated_at, archived_at, vector_clock, origin_agent
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(namespace, content_hash) DO UPDATE SET
			updated_at = excluded.updated_at,
			access_count = memories.access_count,
			decay_score = excluded.decay_score
	`,
		r.ID, r.Namespace.String(), string(r.Type), string(r.Importance), string(r.EpistemicStatus),
		r.Content, r.ContentHash, r.SummaryL1, r.SummaryL2, r.SummaryL3,
		r.SourceFile, r.SourceLine, r.Confidence, string(linkedFiles), string(functions), string(patterns), string(constraints),
		r.CitationCount, r.AccessCount,
		nullTime(r.LastAccessedAt), nullTime(r.LastCitedAt), r.DecayScore,
		r.CreatedAt, r.UpdatedAt, nullTime(r.ArchivedAt), string(clockJSON), r.OriginAgent,
	)
	if err != nil {
		return types.Wrap(types.KindStorage, err, "insert memory %s", r.ID)
	}
	for _, tag := range r.Tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO memory_tags (memory_id, tag) VALUES (?, ?)`, r.ID, tag); err != nil {
			return types.Wrap(types.KindStorage, err, "insert tag %s for memory %s", tag, r.ID)
		}
	}
	return nil
}

// Get fetches a memory record by ID and records an access (Touch),
// an access-tracking cold-storage pattern.
func (s *Store) Get(id string) (*Record, error) {
	row := s.engine.Reader().QueryRow(`SELECT `+selectColumns+` FROM memories WHERE id = ?`, id)

	r, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewError(types.KindNotFound, "memory %s not found", id)
		}
		return nil, types.Wrap(types.KindStorage, err, "get memory %s", id)
	}
	s.loadTags(r)

	r.Touch()
	_ = s.touchAsync(id)
	return r, nil
}

// touchAsync persists the access Get records in memory, bumping the
// stored row's access_count and last_accessed_at on a background
// goroutine. It always returns nil; the write's own error is dropped.
func (s *Store) touchAsync(id string) error {
	now := time.Now()
	go func() {
		_ = s.engine.Writer(func(tx *sql.Tx) error {
			_, err := tx.Exec(`UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`, now, id)
			return err
		})
	}()
	return nil
}

// GetBulk fetches every memory whose id is in ids, silently omitting
// ids with no matching row rather than failing the whole batch.
func (s *Store) GetBulk(ids []string) ([]*Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.engine.Reader().Query(`SELECT `+selectColumns+` FROM memories WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "get bulk memories")
	}
	defer rows.Close()

	out, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	for _, r := range out {
		s.loadTags(r)
	}
	return out, nil
}

// Delete hard-deletes a memory and its tags/links/embeddings via
// ON DELETE CASCADE. Archive (soft delete) is preferred everywhere
// decay and consolidation apply; Delete exists for the Memory Core's
// explicit delete operation (§4.3) where a caller wants the row gone,
// not merely archived.
func (s *Store) Delete(id string) error {
	return s.engine.Writer(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM memories WHERE id = ?`, id)
		if err != nil {
			return types.Wrap(types.KindStorage, err, "delete memory %s", id)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return types.NewError(types.KindNotFound, "memory %s not found", id)
		}
		return nil
	})
}

// ByContentHash looks up an existing memory in a namespace by content
// hash, the content-addressing dedup lookup used by consolidation and
// correction recording (Put itself relies on the UNIQUE(namespace,
// content_hash) conflict clause instead).
func (s *Store) ByContentHash(namespace, hash string) (*Record, error) {
	row := s.engine.Reader().QueryRow(`SELECT `+selectColumns+` FROM memories WHERE namespace = ? AND content_hash = ?`, namespace, hash)

	r, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewError(types.KindNotFound, "no memory with hash %s in %s", hash, namespace)
		}
		return nil, types.Wrap(types.KindStorage, err, "lookup by content hash")
	}
	s.loadTags(r)
	return r, nil
}

// Archive soft-deletes a memory by stamping ArchivedAt, used by
// consolidation (§4.7) rather than a hard DELETE, so archived
// memories remain available for citation-audit and restore.
func (s *Store) Archive(id string) error {
	return s.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE memories SET archived_at = ? WHERE id = ?`, time.Now(), id)
		return err
	})
}

// UpdateDecayScore persists a recomputed decay score (called by
// internal/decay after each scoring pass).
func (s *Store) UpdateDecayScore(id string, score float64) error {
	return s.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE memories SET decay_score = ? WHERE id = ?`, score, id)
		return err
	})
}

// ListByNamespace returns all non-archived memories in a namespace,
// the input set for decay recomputation and consolidation selection.
func (s *Store) ListByNamespace(namespace string) ([]*Record, error) {
	rows, err := s.engine.Reader().Query(`SELECT `+selectColumns+` FROM memories WHERE namespace = ? AND archived_at IS NULL`, namespace)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "list memories in %s", namespace)
	}
	defer rows.Close()
	out, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	for _, r := range out {
		s.loadTags(r)
	}
	return out, nil
}

// queryWhere narrows every QueryBy* method to a single optional
// namespace, matching the Memory Core's "all operations accept an
// optional namespace filter" contract (§4.3).
func (s *Store) queryWhere(namespace, clause string, args ...interface{}) ([]*Record, error) {
	q := `SELECT ` + selectColumns + ` FROM memories WHERE archived_at IS NULL AND ` + clause
	full := args
	if namespace != "" {
		q += ` AND namespace = ?`
		full = append(append([]interface{}{}, args...), namespace)
	}
	rows, err := s.engine.Reader().Query(q, full...)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "query memories")
	}
	defer rows.Close()
	out, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	for _, r := range out {
		s.loadTags(r)
	}
	return out, nil
}

// QueryByType returns every non-archived memory of the given type,
// optionally scoped to namespace.
func (s *Store) QueryByType(namespace string, memType types.MemoryType) ([]*Record, error) {
	return s.queryWhere(namespace, `memory_type = ?`, string(memType))
}

// QueryByImportance returns every non-archived memory at exactly the
// given importance level, optionally scoped to namespace.
func (s *Store) QueryByImportance(namespace string, importance types.Importance) ([]*Record, error) {
	return s.queryWhere(namespace, `importance = ?`, string(importance))
}

// QueryByConfidenceRange returns every non-archived memory whose
// Confidence falls in [min, max], optionally scoped to namespace.
func (s *Store) QueryByConfidenceRange(namespace string, min, max float64) ([]*Record, error) {
	return s.queryWhere(namespace, `confidence BETWEEN ? AND ?`, min, max)
}

// QueryByDateRange returns every non-archived memory created in
// [from, to], optionally scoped to namespace.
func (s *Store) QueryByDateRange(namespace string, from, to time.Time) ([]*Record, error) {
	return s.queryWhere(namespace, `created_at BETWEEN ? AND ?`, from, to)
}

// QueryByTags returns every non-archived memory carrying at least one
// of the given tags, optionally scoped to namespace.
func (s *Store) QueryByTags(namespace string, tags []string) ([]*Record, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	args := make([]interface{}, len(tags))
	for i, t := range tags {
		args[i] = t
	}
	clause := fmt.Sprintf(`id IN (SELECT memory_id FROM memory_tags WHERE tag IN (%s))`, placeholders)
	return s.queryWhere(namespace, clause, args...)
}

// ReassignNamespace moves every non-archived memory owned by
// fromNamespace into toNamespace, the orphan-promotion step agent
// deregistration may trigger (§3 Agent Registration) when an agent's
// own namespace has no other writer left. Returns the count moved.
func (s *Store) ReassignNamespace(fromNamespace, toNamespace string) (int64, error) {
	var moved int64
	err := s.engine.Writer(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE memories SET namespace = ?, updated_at = ? WHERE namespace = ? AND archived_at IS NULL`,
			toNamespace, time.Now(), fromNamespace)
		if err != nil {
			return types.Wrap(types.KindStorage, err, "reassign namespace %s -> %s", fromNamespace, toNamespace)
		}
		moved, err = res.RowsAffected()
		return err
	})
	return moved, err
}

// Relationship is a directed memory-to-memory edge (§6 External
// Interfaces): source, target, a relationship_type label (e.g.
// "supersedes", "contradicts", "derived_from"), a strength in [0,1],
// and the evidence (memory ids or free-text citations) backing it.
type Relationship struct {
	SourceID         string
	TargetID         string
	RelationshipType string
	Strength         float64
	Evidence         []string
	CreatedAt        time.Time
}

// AddRelationship inserts or replaces the edge identified by
// (source, target, relationship_type).
func (s *Store) AddRelationship(rel Relationship) error {
	evidence, err := json.Marshal(rel.Evidence)
	if err != nil {
		return types.Wrap(types.KindValidation, err, "marshal relationship evidence")
	}
	strength := rel.Strength
	if strength == 0 {
		strength = 1.0
	}
	return s.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO memory_links (source_id, target_id, relationship_type, strength, evidence)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(source_id, target_id, relationship_type) DO UPDATE SET
				strength = excluded.strength,
				evidence = excluded.evidence
		`, rel.SourceID, rel.TargetID, rel.RelationshipType, strength, string(evidence))
		if err != nil {
			return types.Wrap(types.KindStorage, err, "add relationship %s -> %s", rel.SourceID, rel.TargetID)
		}
		return nil
	})
}

// GetRelationships returns every relationship edge with memoryID as
// source, i.e. its forward adjacency list.
func (s *Store) GetRelationships(memoryID string) ([]Relationship, error) {
	rows, err := s.engine.Reader().Query(`
		SELECT source_id, target_id, relationship_type, strength, evidence, created_at
		FROM memory_links WHERE source_id = ?`, memoryID)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "get relationships for %s", memoryID)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var rel Relationship
		var evidence string
		if err := rows.Scan(&rel.SourceID, &rel.TargetID, &rel.RelationshipType, &rel.Strength, &evidence, &rel.CreatedAt); err != nil {
			return nil, types.Wrap(types.KindStorage, err, "scan relationship row")
		}
		_ = json.Unmarshal([]byte(evidence), &rel.Evidence)
		out = append(out, rel)
	}
	return out, rows.Err()
}

// RemoveRelationship deletes one edge by its full key.
func (s *Store) RemoveRelationship(sourceID, targetID, relationshipType string) error {
	return s.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM memory_links WHERE source_id = ? AND target_id = ? AND relationship_type = ?`,
			sourceID, targetID, relationshipType)
		if err != nil {
			return types.Wrap(types.KindStorage, err, "remove relationship %s -> %s", sourceID, targetID)
		}
		return nil
	})
}

func (s *Store) loadTags(r *Record) {
	rows, err := s.engine.Reader().Query(`SELECT tag FROM memory_tags WHERE memory_id = ?`, r.ID)
	if err != nil {
		return
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var tag string
		if rows.Scan(&tag) == nil {
			tags = append(tags, tag)
		}
	}
	r.Tags = tags
}

type scanner interface {
	Scan(dest ...interface{}) error
}

type rowsScanner interface {
	scanner
	Next() bool
	Err() error
}

func scanAll(rows rowsScanner) ([]*Record, error) {
	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, types.Wrap(types.KindStorage, err, "scan memory row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(row scanner) (*Record, error) {
	var r Record
	var nsStr, typ, importance, epistemic string
	var lastAccessed, lastCited, archivedAt sql.NullTime
	var clockJSON string
	var linkedFiles, functions, patterns, constraints string

	err := row.Scan(
		&r.ID, &nsStr, &typ, &importance, &epistemic,
		&r.Content, &r.ContentHash, &r.SummaryL1, &r.SummaryL2, &r.SummaryL3,
		&r.SourceFile, &r.SourceLine, &r.Confidence, &linkedFiles, &functions, &patterns, &constraints,
		&r.CitationCount, &r.AccessCount,
		&lastAccessed, &lastCited, &r.DecayScore,
		&r.CreatedAt, &r.UpdatedAt, &archivedAt, &clockJSON, &r.OriginAgent,
	)
	if err != nil {
		return nil, err
	}

	ns, parseErr := types.ParseNamespace(nsStr)
	if parseErr != nil {
		return nil, parseErr
	}
	r.Namespace = ns
	r.Type = types.MemoryType(typ)
	r.Importance = types.Importance(importance)
	r.EpistemicStatus = types.EpistemicStatus(epistemic)
	if lastAccessed.Valid {
		r.LastAccessedAt = &lastAccessed.Time
	}
	if lastCited.Valid {
		r.LastCitedAt = &lastCited.Time
	}
	if archivedAt.Valid {
		r.ArchivedAt = &archivedAt.Time
	}
	r.VectorClock = map[string]uint64{}
	_ = json.Unmarshal([]byte(clockJSON), &r.VectorClock)
	_ = json.Unmarshal([]byte(linkedFiles), &r.LinkedFiles)
	_ = json.Unmarshal([]byte(functions), &r.Functions)
	_ = json.Unmarshal([]byte(patterns), &r.Patterns)
	_ = json.Unmarshal([]byte(constraints), &r.Constraints)

	return &r, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
