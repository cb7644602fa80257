package config_test

import (
	"testing"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() failed Validate(): %v", err)
	}
}

func TestFromYAMLOverridesOverDefault(t *testing.T) {
	doc := []byte(`
store:
  backend: postgres
  dimension: 1536
model:
  provider: anthropic
`)
	cfg, err := config.FromYAML(doc)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("Store.Backend = %q, want postgres", cfg.Store.Backend)
	}
	if cfg.Store.Dimension != 1536 {
		t.Errorf("Store.Dimension = %d, want 1536", cfg.Store.Dimension)
	}
	if cfg.Model.Provider != "anthropic" {
		t.Errorf("Model.Provider = %q, want anthropic", cfg.Model.Provider)
	}
	// Untouched keys keep their default.
	if cfg.Memory.SigmaMinRecall != 0.7 {
		t.Errorf("Memory.SigmaMinRecall = %v, want 0.7 (default preserved)", cfg.Memory.SigmaMinRecall)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "dynamodb"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted an unknown store backend")
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Provider = "cohere"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted an unknown model provider")
	}
}

func TestValidateRejectsZeroDimension(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Dimension = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted a zero embedding dimension")
	}
}

func TestValidateRejectsSkewedWeights(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.WeightSemantic = 0.9
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted relevance weights that do not sum near 1.0")
	}
}

func TestValidateRejectsInvalidPoolBounds(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MinPoolSize = 10
	cfg.Limits.MaxPoolSize = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted max pool size below min pool size")
	}
}
