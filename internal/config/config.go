// Package config loads and exposes every configuration surface named in
// retrieval budget, vector dims, scorer weights,
// consolidation thresholds, decay thresholds, validation thresholds,
// taint max depth, pattern confidence thresholds, quality-gate
// progressive policy, trust bootstrap/weights, delta sync max depth,
// and gate timeout. YAML on disk, environment overrides on load,
// in a single flat package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object for the cortex platform.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Logging       LoggingConfig       `yaml:"logging"`
	Storage       StorageConfig       `yaml:"storage"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Decay         DecayConfig         `yaml:"decay"`
	Compression   CompressionConfig   `yaml:"compression"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	Validation    ValidationConfig    `yaml:"validation"`
	Privacy       PrivacyConfig       `yaml:"privacy"`
	CRDT          CRDTConfig          `yaml:"crdt"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Learning      LearningConfig      `yaml:"learning"`
}

// LoggingConfig mirrors logging.Settings for YAML round-tripping.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
}

// StorageConfig configures the Storage Engine (§4.1).
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	ReadPoolSize    int    `yaml:"read_pool_size"`
	BusyTimeoutMS   int    `yaml:"busy_timeout_ms"`
	RequireVecIndex bool   `yaml:"require_vec_index"`
	MaxRetries      int    `yaml:"max_retries"`
}

// EmbeddingConfig configures the Embedding Engine (§4.2).
type EmbeddingConfig struct {
	Provider      string `yaml:"provider"` // "native" | "tfidf" | "genai"
	FullDimension int    `yaml:"full_dimension"`
	SearchDim     int    `yaml:"search_dimension"` // Matryoshka truncation target
	CacheSize     int    `yaml:"cache_size"`

	// GenAIAPIKey, GenAIModel, and GenAITaskType configure the
	// "genai" provider, a thin client for Google's hosted embedding
	// API. Left unset unless Provider == "genai": no network call is
	// made for the local providers.
	GenAIAPIKey   string `yaml:"genai_api_key"`
	GenAIModel    string `yaml:"genai_model"`
	GenAITaskType string `yaml:"genai_task_type"`
}

// DecayConfig configures the Decay Engine (§4.4).
type DecayConfig struct {
	CitationStaleDays      int     `yaml:"citation_stale_days"`
	UsageBoostCap          float64 `yaml:"usage_boost_cap"`
	PatternBoostCap        float64 `yaml:"pattern_boost_cap"`
	PatternFreshnessHalfLi float64 `yaml:"pattern_freshness_half_life_days"`
}

// CompressionConfig configures the Compression Engine (§4.5).
type CompressionConfig struct {
	L0Tokens int `yaml:"l0_tokens"`
	L1Tokens int `yaml:"l1_tokens"`
	L2Tokens int `yaml:"l2_tokens"`
	L3Tokens int `yaml:"l3_tokens"`
}

// RetrievalConfig configures the Retrieval Engine (§4.6).
type RetrievalConfig struct {
	DefaultBudget int           `yaml:"default_budget"`
	TopK          int           `yaml:"top_k"`
	RRFK          int           `yaml:"rrf_k"`
	Weights       ScorerWeights `yaml:"weights"`
}

// ScorerWeights is the 10-field linear blend from §4.6; fields MUST sum
// to 1.0 within floating tolerance (enforced by Validate()).
type ScorerWeights struct {
	SemanticSimilarity float64 `yaml:"semantic_similarity"`
	KeywordMatch       float64 `yaml:"keyword_match"`
	FileProximity      float64 `yaml:"file_proximity"`
	PatternAlignment   float64 `yaml:"pattern_alignment"`
	Recency            float64 `yaml:"recency"`
	Confidence         float64 `yaml:"confidence"`
	Importance         float64 `yaml:"importance"`
	IntentTypeBoost    float64 `yaml:"intent_type_boost"`
	EvidenceFreshness  float64 `yaml:"evidence_freshness"`
	EpistemicStatus    float64 `yaml:"epistemic_status"`
}

// Sum returns the sum of all ten weights.
func (w ScorerWeights) Sum() float64 {
	return w.SemanticSimilarity + w.KeywordMatch + w.FileProximity + w.PatternAlignment +
		w.Recency + w.Confidence + w.Importance + w.IntentTypeBoost +
		w.EvidenceFreshness + w.EpistemicStatus
}

// Validate checks that the weights sum to 1.0 within floating tolerance.
func (w ScorerWeights) Validate() error {
	const tolerance = 1e-6
	sum := w.Sum()
	if sum < 1.0-tolerance || sum > 1.0+tolerance {
		return fmt.Errorf("scorer weights must sum to 1.0, got %.9f", sum)
	}
	return nil
}

// ConsolidationConfig configures the Consolidation Engine (§4.7).
type ConsolidationConfig struct {
	MinClusterSize      int           `yaml:"min_cluster_size"`
	EligibilityAge      time.Duration `yaml:"-"`
	EligibilityAgeRaw   string        `yaml:"eligibility_age"`
	EmbeddingWeight     float64       `yaml:"embedding_weight"`
	FileWeight          float64       `yaml:"file_weight"`
	PatternWeight       float64       `yaml:"pattern_weight"`
	FunctionWeight      float64       `yaml:"function_weight"`
	TagWeight           float64       `yaml:"tag_weight"`
}

// ValidationConfig configures the Validation Engine (§4.8).
type ValidationConfig struct {
	PassThreshold      float64 `yaml:"pass_threshold"`
	CitationStaleDays  int     `yaml:"citation_stale_days"`
}

// PrivacyConfig configures the Privacy Engine (§4.9).
type PrivacyConfig struct {
	TestContextDiscount float64 `yaml:"test_context_discount"`
}

// CRDTConfig configures CRDT/Multi-agent core (§4.10).
type CRDTConfig struct {
	TrustBootstrap       float64       `yaml:"trust_bootstrap"`
	TrustDivergence       float64       `yaml:"trust_divergence_threshold"` // tau
	DeltaSyncMaxDepth    int           `yaml:"delta_sync_max_depth"`
	TemporalSupersedeMin string        `yaml:"temporal_supersede_min"` // duration string, default "1h"
	TemporalSupersede    time.Duration `yaml:"-"`
	SelfEvidenceRejected bool          `yaml:"self_evidence_rejected"` // an agent's own citations never feed its own trust score
}

// AnalysisConfig configures the Drift Analysis Core (§4.11-4.14).
type AnalysisConfig struct {
	TaintMaxDepth         int             `yaml:"taint_max_depth"`
	PatternConfidence     PatternConfig   `yaml:"pattern_confidence"`
	GateTimeoutSeconds    int             `yaml:"gate_timeout_seconds"`
	ProgressivePolicy     ProgressivePolicy `yaml:"progressive_policy"`
}

// PatternConfig configures pattern-tier thresholds (§4.12).
type PatternConfig struct {
	CanonicalMean      float64 `yaml:"canonical_mean"`
	CanonicalCIWidth   float64 `yaml:"canonical_ci_width"`
	EstablishedMean    float64 `yaml:"established_mean"`
	GrowingMean        float64 `yaml:"growing_mean"`
	ContestedThreshold float64 `yaml:"contested_threshold"` // default 0.15
}

// ProgressivePolicy configures the quality-gate baseline/progressive
// severity downgrade policy (§4.14).
type ProgressivePolicy struct {
	Enabled           bool `yaml:"enabled"`
	DowngradeBaseline bool `yaml:"downgrade_baseline"`
}

// LearningConfig configures Learning & Feedback (§4.15).
type LearningConfig struct {
	FPRateThreshold     float64 `yaml:"fp_rate_threshold"`
	FPRateSustainedDays int     `yaml:"fp_rate_sustained_days"`
	DedupSimilarity     float64 `yaml:"dedup_similarity"`
}

// Default returns a fully populated configuration matching the defaults
// called out across and §6.
func Default() *Config {
	return &Config{
		Name:    "cortex",
		Version: "1.0.0",
		Logging: LoggingConfig{
			DebugMode:  false,
			Level:      "info",
			JSONFormat: true,
			Dir:        ".cortex/logs",
		},
		Storage: StorageConfig{
			DatabasePath:    "data/cortex.db",
			ReadPoolSize:    4,
			BusyTimeoutMS:   5000,
			RequireVecIndex: false,
			MaxRetries:      5,
		},
		Embedding: EmbeddingConfig{
			Provider:      "native",
			FullDimension: 768,
			SearchDim:     256,
			CacheSize:     10000,
		},
		Decay: DecayConfig{
			CitationStaleDays:      90,
			UsageBoostCap:          1.5,
			PatternBoostCap:        1.3,
			PatternFreshnessHalfLi: 30,
		},
		Compression: CompressionConfig{
			L0Tokens: 10,
			L1Tokens: 75,
			L2Tokens: 300,
			L3Tokens: 1000,
		},
		Retrieval: RetrievalConfig{
			DefaultBudget: 8000,
			TopK:          20,
			RRFK:          60,
			Weights: ScorerWeights{
				SemanticSimilarity: 0.22,
				KeywordMatch:       0.14,
				FileProximity:      0.10,
				PatternAlignment:   0.08,
				Recency:            0.10,
				Confidence:         0.12,
				Importance:         0.08,
				IntentTypeBoost:    0.08,
				EvidenceFreshness:  0.04,
				EpistemicStatus:    0.04,
			},
		},
		Consolidation: ConsolidationConfig{
			MinClusterSize:    2,
			EligibilityAgeRaw: "48h",
			EmbeddingWeight:   0.50,
			FileWeight:        0.20,
			PatternWeight:     0.15,
			FunctionWeight:    0.10,
			TagWeight:         0.05,
		},
		Validation: ValidationConfig{
			PassThreshold:     0.5,
			CitationStaleDays: 90,
		},
		Privacy: PrivacyConfig{
			TestContextDiscount: 0.5,
		},
		CRDT: CRDTConfig{
			TrustBootstrap:       0.5,
			TrustDivergence:      0.2,
			DeltaSyncMaxDepth:    1000,
			TemporalSupersedeMin: "1h",
			SelfEvidenceRejected: true,
		},
		Analysis: AnalysisConfig{
			TaintMaxDepth: 50,
			PatternConfidence: PatternConfig{
				CanonicalMean:      0.9,
				CanonicalCIWidth:   0.1,
				EstablishedMean:    0.75,
				GrowingMean:        0.55,
				ContestedThreshold: 0.15,
			},
			GateTimeoutSeconds: 30,
			ProgressivePolicy: ProgressivePolicy{
				Enabled:           true,
				DowngradeBaseline: true,
			},
		},
		Learning: LearningConfig{
			FPRateThreshold:     0.4,
			FPRateSustainedDays: 7,
			DedupSimilarity:     0.9,
		},
	}
}

// Load reads YAML configuration from path, falling back to Default() if
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			cfg.resolveDurations()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	cfg.resolveDurations()
	if err := cfg.Retrieval.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: create dir: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) resolveDurations() {
	if d, err := time.ParseDuration(c.Consolidation.EligibilityAgeRaw); err == nil {
		c.Consolidation.EligibilityAge = d
	} else {
		c.Consolidation.EligibilityAge = 48 * time.Hour
	}
	if d, err := time.ParseDuration(c.CRDT.TemporalSupersedeMin); err == nil {
		c.CRDT.TemporalSupersede = d
	} else {
		c.CRDT.TemporalSupersede = time.Hour
	}
}

// applyEnvOverrides lets operators override the database path and
// debug mode without editing YAML.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CORTEX_DB"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("CORTEX_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
	if v := os.Getenv("CORTEX_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("CORTEX_GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
	}
}
