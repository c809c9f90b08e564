package retrieval

import (
	"context"
	"encoding/json"

	"cortex/internal/embedding"
	"cortex/internal/storage"
	"cortex/internal/types"
)

type denseCandidate struct {
	id   string
	rank int // 0-based, best first
}

// denseSearch embeds the query and ranks stored search vectors by
// cosine similarity, brute-forcing over memory_embeddings in O(n). The
// sqlite-vec index is not queried here, even when the extension is
// detected.
func denseSearch(ctx context.Context, engine *storage.Engine, eng embedding.Engine, namespace, queryText string, limit int) ([]denseCandidate, error) {
	queryVec, err := eng.Embed(ctx, queryText)
	if err != nil {
		return nil, types.Wrap(types.KindEmbeddingUnavailable, err, "embed query")
	}
	searchVec := embedding.Truncate(queryVec, len(queryVec))

	rows, err := engine.Reader().Query(`
		SELECT e.memory_id, e.search_vector
		FROM memory_embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE m.namespace = ? AND m.archived_at IS NULL`, namespace)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "load embeddings")
	}
	defer rows.Close()

	var ids []string
	var corpus [][]float32
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, types.Wrap(types.KindStorage, err, "scan embedding row")
		}
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err != nil {
			continue
		}
		ids = append(ids, id)
		corpus = append(corpus, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	top, err := embedding.FindTopK(searchVec, corpus, limit)
	if err != nil {
		return nil, err
	}

	out := make([]denseCandidate, len(top))
	for rank, result := range top {
		out[rank] = denseCandidate{id: ids[result.Index], rank: rank}
	}
	return out, nil
}
