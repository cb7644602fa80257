// Package config defines the core's typed configuration. The core never
// calls os.Getenv or reads files on its own (spec §4.8, §6): a caller
// (the cmd/ wiring binary) builds a Config from environment, flags, or a
// YAML document and hands it to the core as a value. FromYAML is offered
// as a pure-parsing convenience for that caller, not an entry point the
// core uses itself.
package config

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Config aggregates every setting the core needs to construct a Store
// Gateway, a Model Gateway, and the memory managers.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Model   ModelConfig   `yaml:"model"`
	Memory  MemoryConfig  `yaml:"memory"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// StoreConfig selects and parameterizes one of the two store backends.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // "postgres" | "sqlite"
	DSN         string `yaml:"dsn"`
	Dimension   int    `yaml:"dimension"`
	MaxOpenConn int    `yaml:"max_open_conn"`
	MaxIdleConn int    `yaml:"max_idle_conn"`
}

// ModelConfig selects and parameterizes one of the three model-service
// clients.
type ModelConfig struct {
	Provider       string `yaml:"provider"` // "openai" | "anthropic" | "ollama"
	Host           string `yaml:"host"`
	APIKey         string `yaml:"api_key"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`

	// RateLimitPerSecond bounds outbound Model Gateway calls before they
	// reach the circuit breaker (spec §5).
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

// MemoryConfig carries the working-memory and long-term-memory tunables
// named in spec §4.1–§4.7.
type MemoryConfig struct {
	WorkingMemoryDefaultCapacity int `yaml:"working_memory_default_capacity"`

	// SessionTTLSeconds is the sliding-window idle timeout after which a
	// session transitions from active back to absent (spec §3, §9's
	// session state machine). Zero disables expiry: sessions then live
	// until explicitly cleared.
	SessionTTLSeconds int `yaml:"session_ttl_seconds"`

	SigmaMinRecall         float64 `yaml:"sigma_min_recall"`
	SigmaMinDedup          float64 `yaml:"sigma_min_dedup"`
	SigmaMinContradictions float64 `yaml:"sigma_min_contradictions"`

	RecencyHalfLifeDays float64 `yaml:"recency_half_life_days"`
	AccessCap           int     `yaml:"access_cap"`

	WeightSemantic  float64 `yaml:"weight_semantic"`
	WeightRecency   float64 `yaml:"weight_recency"`
	WeightFrequency float64 `yaml:"weight_frequency"`
	WeightImportance float64 `yaml:"weight_importance"`

	EvictionPromotionThreshold float64 `yaml:"eviction_promotion_threshold"`
	ClearCheckpointThreshold   float64 `yaml:"clear_checkpoint_threshold"`

	DecayRate            float64 `yaml:"decay_rate"`
	DecayInactiveDays     int     `yaml:"decay_inactive_days"`
	DecayFloor           float64 `yaml:"decay_floor"`
}

// LimitsConfig carries connection-pool bounds shared by both gateways.
type LimitsConfig struct {
	MinPoolSize int `yaml:"min_pool_size"`
	MaxPoolSize int `yaml:"max_pool_size"`
}

// Default returns a Config populated with every default named in
// spec §4.1–§4.7: 768-dimension embeddings, recall σ_min=0.7, dedup
// σ_min=0.95, contradiction σ_min=0.75, H_recency=30d, access_cap=100,
// relevance weights (0.5, 0.2, 0.1, 0.2), eviction promotion threshold
// 0.6, clear-checkpoint threshold 0.5, decay rate 0.98 over 7 inactive
// days floored at 0.1, an 8,000-token working-memory default capacity,
// and a 4–32 connection pool.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     "sqlite",
			Dimension:   768,
			MaxOpenConn: 32,
			MaxIdleConn: 4,
		},
		Model: ModelConfig{
			Provider:           "ollama",
			ChatModel:          "qwen2.5:7b",
			EmbeddingModel:     "nomic-embed-text",
			RateLimitPerSecond: 5,
			RateLimitBurst:     10,
		},
		Memory: MemoryConfig{
			WorkingMemoryDefaultCapacity: 8000,
			SessionTTLSeconds:            24 * 60 * 60,
			SigmaMinRecall:               0.7,
			SigmaMinDedup:                0.95,
			SigmaMinContradictions:       0.75,
			RecencyHalfLifeDays:          30,
			AccessCap:                    100,
			WeightSemantic:               0.5,
			WeightRecency:                0.2,
			WeightFrequency:              0.1,
			WeightImportance:             0.2,
			EvictionPromotionThreshold:   0.6,
			ClearCheckpointThreshold:     0.5,
			DecayRate:                   0.98,
			DecayInactiveDays:           7,
			DecayFloor:                  0.1,
		},
		Limits: LimitsConfig{
			MinPoolSize: 4,
			MaxPoolSize: 32,
		},
	}
}

// FromYAML parses doc over Default() so a caller may override only the
// keys it cares about. It performs no file I/O or environment access.
func FromYAML(doc []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(doc, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

// Validate rejects structurally invalid configuration: zero embedding
// dimension, negative budgets, relevance weights that don't sum near
// 1.0, or an unrecognized backend/provider selector.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Dimension <= 0 {
		return fmt.Errorf("config: embedding dimension must be positive, got %d", c.Store.Dimension)
	}

	switch c.Model.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("config: unknown model provider %q", c.Model.Provider)
	}
	if c.Model.RateLimitPerSecond <= 0 {
		return fmt.Errorf("config: rate_limit_per_second must be positive, got %v", c.Model.RateLimitPerSecond)
	}

	if c.Memory.WorkingMemoryDefaultCapacity <= 0 {
		return fmt.Errorf("config: working_memory_default_capacity must be positive, got %d", c.Memory.WorkingMemoryDefaultCapacity)
	}
	if c.Memory.SessionTTLSeconds < 0 {
		return fmt.Errorf("config: session_ttl_seconds must be non-negative, got %d", c.Memory.SessionTTLSeconds)
	}
	for _, sigma := range []float64{c.Memory.SigmaMinRecall, c.Memory.SigmaMinDedup, c.Memory.SigmaMinContradictions} {
		if sigma < -1 || sigma > 1 {
			return fmt.Errorf("config: sigma_min values must be in [-1, 1], got %v", sigma)
		}
	}
	if c.Memory.RecencyHalfLifeDays <= 0 {
		return fmt.Errorf("config: recency_half_life_days must be positive, got %v", c.Memory.RecencyHalfLifeDays)
	}
	if c.Memory.AccessCap <= 0 {
		return fmt.Errorf("config: access_cap must be positive, got %d", c.Memory.AccessCap)
	}
	weightSum := c.Memory.WeightSemantic + c.Memory.WeightRecency + c.Memory.WeightFrequency + c.Memory.WeightImportance
	if math.Abs(weightSum-1.0) > 0.05 {
		return fmt.Errorf("config: relevance weights must sum to approximately 1.0, got %v", weightSum)
	}
	if c.Memory.DecayRate <= 0 || c.Memory.DecayRate > 1 {
		return fmt.Errorf("config: decay_rate must be in (0, 1], got %v", c.Memory.DecayRate)
	}
	if c.Memory.DecayFloor < 0 || c.Memory.DecayFloor > 1 {
		return fmt.Errorf("config: decay_floor must be in [0, 1], got %v", c.Memory.DecayFloor)
	}

	if c.Limits.MinPoolSize <= 0 || c.Limits.MaxPoolSize < c.Limits.MinPoolSize {
		return fmt.Errorf("config: invalid pool bounds min=%d max=%d", c.Limits.MinPoolSize, c.Limits.MaxPoolSize)
	}

	return nil
}
