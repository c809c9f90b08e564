package retrieval

import (
	"strings"

	"cortex/internal/logging"
	"cortex/internal/memory"
	"cortex/internal/storage"
	"cortex/internal/types"
)

// sparseCandidate is a keyword-matched memory with its FTS5 bm25 rank
// (lower is better, mirroring SQLite's bm25() convention).
type sparseCandidate struct {
	id   string
	rank float64
}

// sparseSearch runs the keyword half of parallel search via the
// memories_fts virtual table, the FTS5 generalization of a
// ripgrep-backed SparseRetriever (internal/retrieval/sparse.go): same
// "fast keyword discovery first" idea, applied to memory content
// instead of repository files.
func sparseSearch(engine *storage.Engine, namespace, queryText string, limit int) ([]sparseCandidate, error) {
	terms := ftsQuery(queryText)
	if terms == "" {
		return nil, nil
	}

	rows, err := engine.Reader().Query(`
		SELECT m.id, bm25(memories_fts) AS rank
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ? AND m.namespace = ? AND m.archived_at IS NULL
		ORDER BY rank LIMIT ?`, terms, namespace, limit)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "fts search")
	}
	defer rows.Close()

	var out []sparseCandidate
	for rows.Next() {
		var c sparseCandidate
		if err := rows.Scan(&c.id, &c.rank); err != nil {
			return nil, types.Wrap(types.KindStorage, err, "scan fts row")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ftsQuery sanitizes free text into an FTS5 MATCH expression: strip
// characters FTS5 treats as operators and OR the remaining terms so a
// query matches any constituent word.
func ftsQuery(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '"', '*', '^', ':', '(', ')':
			return true
		}
		return r == ' ' || r == '\n' || r == '\t'
	})
	if len(fields) == 0 {
		return ""
	}
	for i, f := range fields {
		fields[i] = `"` + f + `"`
	}
	return strings.Join(fields, " OR ")
}

// loadRecords fetches full Record bodies for a set of IDs, preserving
// input order.
func loadRecords(store *memory.Store, ids []string) ([]*memory.Record, error) {
	out := make([]*memory.Record, 0, len(ids))
	for _, id := range ids {
		r, err := store.Get(id)
		if err != nil {
			if types.IsKind(err, types.KindNotFound) {
				logging.Get(logging.CategoryRetrieval).Warnf("retrieval: dropped vanished memory %s", id)
				continue
			}
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
