// Package learning implements Learning & Feedback:
// correction categorization into typed memories, hash-then-similarity
// deduplication before a new memory is stored, and a per-detector
// feedback tracker that adjusts pattern confidence and can auto-disable
// a chronically noisy detector. Grounded on a staged learning-candidate
// store (internal/store/learning_candidates.go,
// count-then-promote pattern) and its content-hash dedup idiom in
// internal/consolidation/cluster.go, generalized to typed corrections.
package learning

import (
	"context"
	"strings"

	"cortex/internal/config"
	"cortex/internal/embedding"
	"cortex/internal/memory"
	"cortex/internal/types"
)

// Category classifies the kind of correction an agent reported.
type Category string

const (
	CategoryPatternViolation Category = "pattern_violation"
	CategorySecurity         Category = "security"
	CategoryPerformance      Category = "performance"
	CategoryNaming           Category = "naming"
	CategoryConstraint       Category = "constraint"
	CategoryOther            Category = "other"
)

// categoryDefaults maps a correction category to the memory type and
// importance it's stored as absent any more specific signal.
var categoryDefaults = map[Category]struct {
	Type       types.MemoryType
	Importance types.Importance
}{
	CategoryPatternViolation: {types.MemoryReviewFinding, types.ImportanceNormal},
	CategorySecurity:         {types.MemorySecurityFinding, types.ImportanceCritical},
	CategoryPerformance:      {types.MemoryPerformanceNote, types.ImportanceHigh},
	CategoryNaming:           {types.MemoryPreference, types.ImportanceLow},
	CategoryConstraint:       {types.MemoryConstraint, types.ImportanceHigh},
	CategoryOther:            {types.MemoryCorrection, types.ImportanceNormal},
}

// Defaults returns the (memory_type, default_importance) pair a
// category resolves to.
func (c Category) Defaults() (types.MemoryType, types.Importance) {
	d, ok := categoryDefaults[c]
	if !ok {
		d = categoryDefaults[CategoryOther]
	}
	return d.Type, d.Importance
}

// categoryKeywords drives a lightweight keyword categorizer; a real
// deployment would route this through the same pattern-matching
// surface as internal/analysis/pattern, but only coarse categorization
// is required here, not a specific classifier.
var categoryKeywords = map[Category][]string{
	CategorySecurity:         {"sql injection", "xss", "csrf", "secret", "credential", "vulnerab"},
	CategoryPerformance:      {"slow", "n+1", "latency", "timeout", "memory leak", "allocation"},
	CategoryNaming:           {"naming", "rename", "misnamed", "should be called"},
	CategoryConstraint:       {"must never", "always required", "invariant", "forbidden"},
	CategoryPatternViolation: {"anti-pattern", "violates", "doesn't follow", "inconsistent with"},
}

// Categorize assigns a Category to free-text correction feedback by
// keyword match, falling back to CategoryOther.
func Categorize(description string) Category {
	lower := strings.ToLower(description)
	for _, cat := range []Category{CategorySecurity, CategoryConstraint, CategoryPerformance, CategoryNaming, CategoryPatternViolation} {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return CategoryOther
}

// Store persists categorized corrections with dedup: an exact
// content-hash match is a no-op, a near-duplicate (cosine similarity
// of the full content embeddings at or above cfg.DedupSimilarity;
// stored summaries are not compared) updates the existing memory in
// place and returns it, and anything else is added as new.
type Store struct {
	cfg       config.LearningConfig
	memStore  *memory.Store
	embedding embedding.Engine
}

// New builds a correction Store.
func New(cfg config.LearningConfig, memStore *memory.Store, embeddingEngine embedding.Engine) *Store {
	return &Store{cfg: cfg, memStore: memStore, embedding: embeddingEngine}
}

// Outcome reports what RecordCorrection actually did.
type Outcome string

const (
	OutcomeAdded       Outcome = "added"
	OutcomeNoop        Outcome = "noop_exact_duplicate"
	OutcomeUpdated     Outcome = "updated_near_duplicate"
)

// RecordCorrection categorizes and stores one piece of correction
// feedback, deduplicating against existing memories in the namespace.
func (s *Store) RecordCorrection(ctx context.Context, namespace, description string) (*memory.Record, Outcome, error) {
	cat := Categorize(description)
	memType, importance := cat.Defaults()

	ns, err := types.ParseNamespace(namespace)
	if err != nil {
		return nil, "", err
	}

	hash := memory.ContentHash(namespace, memType, description)
	if existing, err := s.memStore.ByContentHash(namespace, hash); err == nil {
		return existing, OutcomeNoop, nil
	}

	if s.embedding != nil {
		if dup, err := s.findNearDuplicate(ctx, namespace, memType, description); err == nil && dup != nil {
			dup.Content = description
			dup.ContentHash = hash
			if err := s.memStore.Put(dup); err != nil {
				return nil, "", err
			}
			return dup, OutcomeUpdated, nil
		}
	}

	rec := memory.New(ns, memType, importance, description)
	rec.EpistemicStatus = types.EpistemicProvisional
	if err := s.memStore.Put(rec); err != nil {
		return nil, "", err
	}
	return rec, OutcomeAdded, nil
}

// findNearDuplicate scans existing memories of the same type in the
// namespace for one whose content is cosine-similar enough to count
// as the same correction restated.
func (s *Store) findNearDuplicate(ctx context.Context, namespace string, memType types.MemoryType, description string) (*memory.Record, error) {
	candidates, err := s.memStore.ListByNamespace(namespace)
	if err != nil {
		return nil, err
	}

	target, err := s.embedding.Embed(ctx, description)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if c.Type != memType || c.ArchivedAt != nil {
			continue
		}
		vec, err := s.embedding.Embed(ctx, c.Content)
		if err != nil {
			continue
		}
		sim, err := embedding.CosineSimilarity(target, vec)
		if err != nil {
			continue
		}
		if sim >= s.cfg.DedupSimilarity {
			return c, nil
		}
	}
	return nil, nil
}
