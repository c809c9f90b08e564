package retrieval

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"cortex/internal/compression"
	"cortex/internal/config"
	"cortex/internal/embedding"
	"cortex/internal/logging"
	"cortex/internal/memory"
	"cortex/internal/storage"
	"cortex/internal/types"
)

// Engine is the Retrieval Engine: fans sparse and dense search out in
// parallel (errgroup, matching the parallel-search idiom in
// internal/perception/semantic_classifier.go), fuses with RRF, scores
// with the ten-weight blend, and packs into a token budget.
type Engine struct {
	storage    *storage.Engine
	memStore   *memory.Store
	embedding  embedding.Engine
	scorer     *Scorer
	compressor *compression.Compressor
	cfg        config.RetrievalConfig
}

// New builds a Retrieval Engine. embeddingEngine may be nil, in which
// case the engine degrades to FTS-only search.
func New(storageEngine *storage.Engine, memStore *memory.Store, embeddingEngine embedding.Engine, cfg config.RetrievalConfig) *Engine {
	return &Engine{
		storage:    storageEngine,
		memStore:   memStore,
		embedding:  embeddingEngine,
		scorer:     NewScorer(cfg.Weights),
		compressor: compression.New(config.Default().Compression),
		cfg:        cfg,
	}
}

// Retrieve runs the full pipeline and returns memories packed into
// q.Budget tokens (or cfg.DefaultBudget if unset), highest score
// first.
func (e *Engine) Retrieve(ctx context.Context, q Query) ([]Result, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Retrieve")
	defer timer.Stop()
	log := logging.Get(logging.CategoryRetrieval)

	topK := q.TopK
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	budget := q.Budget
	if budget <= 0 {
		budget = e.cfg.DefaultBudget
	}

	var sparse []sparseCandidate
	var dense []denseCandidate
	degraded := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sparse, err = sparseSearch(e.storage, q.Namespace, q.Text, topK)
		return err
	})
	g.Go(func() error {
		if e.embedding == nil {
			degraded = true
			return nil
		}
		var err error
		dense, err = denseSearch(gctx, e.storage, e.embedding, q.Namespace, q.Text, topK)
		if err != nil {
			if types.IsKind(err, types.KindEmbeddingUnavailable) {
				log.Warnf("embedding unavailable, degrading to FTS-only: %v", err)
				degraded = true
				return nil
			}
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if degraded {
		log.Info("retrieval degraded to FTS-only (no embedding engine)")
	}

	fusedIDs := rrfFuse(e.cfg.RRFK, sparse, dense)
	if len(fusedIDs) > topK {
		fusedIDs = fusedIDs[:topK]
	}

	records, err := loadRecords(e.memStore, fusedIDs)
	if err != nil {
		return nil, err
	}

	sparseRank := rankIndex(sparse)
	denseRank := denseRankIndex(dense)

	now := time.Now()
	results := make([]Result, 0, len(records))
	for _, r := range records {
		keywordHit := 0.0
		if rank, ok := sparseRank[r.ID]; ok {
			keywordHit = 1.0 / float64(1+rank)
		}
		semanticSim := 0.0
		if rank, ok := denseRank[r.ID]; ok {
			semanticSim = 1.0 / float64(1+rank)
		}
		score, factors := e.scorer.Score(r, semanticSim, keywordHit, "", q.IntentType, now)
		results = append(results, Result{Record: r, Score: score, Factors: factors})
	}

	results = dedupe(results)
	sortByScoreDesc(results)
	return packToBudget(e.compressor, results, budget, q.IntentType), nil
}

func rankIndex(candidates []sparseCandidate) map[string]int {
	idx := make(map[string]int, len(candidates))
	for i, c := range candidates {
		idx[c.id] = i
	}
	return idx
}

func denseRankIndex(candidates []denseCandidate) map[string]int {
	idx := make(map[string]int, len(candidates))
	for _, c := range candidates {
		idx[c.id] = c.rank
	}
	return idx
}

// dedupe drops duplicate memory IDs (can occur if callers pass
// overlapping namespaces) and identical content hashes, keeping
// the higher-scored occurrence.
func dedupe(results []Result) []Result {
	bestByID := make(map[string]int, len(results))
	bestByHash := make(map[string]int, len(results))
	var out []Result
	for _, r := range results {
		if idx, ok := bestByID[r.Record.ID]; ok {
			if r.Score > out[idx].Score {
				out[idx] = r
			}
			continue
		}
		if idx, ok := bestByHash[r.Record.ContentHash]; ok {
			if r.Score > out[idx].Score {
				out[idx] = r
			}
			continue
		}
		bestByID[r.Record.ID] = len(out)
		bestByHash[r.Record.ContentHash] = len(out)
		out = append(out, r)
	}
	return out
}

func sortByScoreDesc(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	for i := range results {
		results[i].FusedRank = i
	}
}

// packToBudget delegates the actual packing decision to
// compression.CompressBatchToFit (priority-sorted, Critical-gets-L1
// guaranteed, greedy one-level upgrade) and then re-sorts the outcome
// back into the caller-facing score-descending order: the compressor
// only knows priority, not relevance score, so ordering for display
// is restored here.
func packToBudget(c *compression.Compressor, results []Result, budget int, intentType string) []Result {
	records := make([]*memory.Record, len(results))
	byID := make(map[string]Result, len(results))
	for i, r := range results {
		records[i] = r.Record
		byID[r.Record.ID] = r
	}

	assignments := c.CompressBatchToFit(records, budget, intentType)

	out := make([]Result, 0, len(assignments))
	for _, a := range assignments {
		r := byID[a.Record.ID]
		r.Tokens = a.Tokens
		out = append(out, r)
	}
	sortByScoreDesc(out)
	return out
}
