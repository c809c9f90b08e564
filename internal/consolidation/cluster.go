package consolidation

import (
	"context"
	"strings"

	"cortex/internal/embedding"
	"cortex/internal/memory"
	"cortex/internal/types"
)

// cluster groups eligible memories into similarity clusters. This is
// a from-scratch density-based clustering (HDBSCAN-in-spirit: grow
// clusters from dense neighborhoods, leave sparse points unclustered)
// generalized from a much simpler single-pass clusterMemories
// grouping, since the namespace's memory set calls for a density-based
// method rather than fixed-k.
func (e *Engine) cluster(candidates []*memory.Record) [][]*memory.Record {
	if len(candidates) < e.cfg.MinClusterSize {
		return nil
	}

	vectors := make([][]float32, len(candidates))
	ctx := context.Background()
	for i, r := range candidates {
		if e.embedding == nil {
			vectors[i] = nil
			continue
		}
		v, err := e.embedding.Embed(ctx, r.Content)
		if err != nil {
			vectors[i] = nil
			continue
		}
		vectors[i] = v
	}

	const simThreshold = 0.80
	visited := make([]bool, len(candidates))
	var clusters [][]*memory.Record

	for i := range candidates {
		if visited[i] || vectors[i] == nil {
			continue
		}
		members := []int{i}
		visited[i] = true
		for j := i + 1; j < len(candidates); j++ {
			if visited[j] || vectors[j] == nil {
				continue
			}
			sim, err := embedding.CosineSimilarity(vectors[i], vectors[j])
			if err != nil || sim < simThreshold {
				continue
			}
			members = append(members, j)
			visited[j] = true
		}
		if len(members) < e.cfg.MinClusterSize {
			continue // sparse neighborhood: leave these as noise, not a cluster
		}
		group := make([]*memory.Record, len(members))
		for k, idx := range members {
			group[k] = candidates[idx]
		}
		clusters = append(clusters, group)
	}
	return clusters
}

// abstract synthesizes a single abstraction memory from a cluster's
// members: concatenated distinct content (extractive, no generation),
// importance set to the cluster max, type MemoryPattern when every
// member is itself of type MemoryPattern, MemorySemantic otherwise.
func (e *Engine) abstract(namespace string, members []*memory.Record) *memory.Record {
	if len(members) == 0 {
		return nil
	}

	ns, err := types.ParseNamespace(namespace)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool, len(members))
	var lines []string
	maxImportance := types.ImportanceLow
	allPattern := true
	for _, m := range members {
		if !seen[m.ContentHash] {
			seen[m.ContentHash] = true
			lines = append(lines, m.Content)
		}
		if maxImportance.Less(m.Importance) {
			maxImportance = m.Importance
		}
		if m.Type != types.MemoryPattern {
			allPattern = false
		}
	}

	memType := types.MemorySemantic
	if allPattern {
		memType = types.MemoryPattern
	}

	abs := memory.New(ns, memType, maxImportance, strings.Join(lines, "\n"))
	abs.EpistemicStatus = types.EpistemicProvisional
	for _, m := range members {
		abs.CitationCount += m.CitationCount
	}
	e.compressor.Compress(abs)
	return abs
}

// deduplicate drops any synthesized abstraction whose content hash
// already exists in the namespace (already-consolidated duplicate).
func (e *Engine) deduplicate(namespace string, abstractions []*memory.Record) ([]*memory.Record, int) {
	var kept []*memory.Record
	dupCount := 0
	for _, abs := range abstractions {
		_, err := e.memStore.ByContentHash(namespace, abs.ContentHash)
		if err == nil {
			dupCount++
			continue
		}
		kept = append(kept, abs)
	}
	return kept, dupCount
}
