package llm

import (
	"testing"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/config"
)

func TestNewTextGeneratorSelectsByProvider(t *testing.T) {
	cases := []struct {
		provider string
		wantErr  bool
	}{
		{"openai", false},
		{"anthropic", false},
		{"ollama", false},
		{"", false},
		{"unsupported", true},
	}
	for _, c := range cases {
		_, err := NewTextGenerator(config.ModelConfig{Provider: c.provider})
		if (err != nil) != c.wantErr {
			t.Errorf("NewTextGenerator(provider=%q) error = %v, wantErr %v", c.provider, err, c.wantErr)
		}
	}
}

func TestNewTextGeneratorOllamaDefaultsHostAndModel(t *testing.T) {
	gen, err := NewTextGenerator(config.ModelConfig{Provider: "ollama"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.GetModel() == "" {
		t.Error("expected a non-empty default chat model")
	}
}

func TestNewEmbeddingGeneratorSelectsByProvider(t *testing.T) {
	cases := []struct {
		provider string
		wantErr  bool
	}{
		{"openai", false},
		{"anthropic", false}, // paired with the OpenAI-compatible embeddings endpoint
		{"ollama", false},
		{"", false},
		{"unsupported", true},
	}
	for _, c := range cases {
		_, err := NewEmbeddingGenerator(config.ModelConfig{Provider: c.provider})
		if (err != nil) != c.wantErr {
			t.Errorf("NewEmbeddingGenerator(provider=%q) error = %v, wantErr %v", c.provider, err, c.wantErr)
		}
	}
}

func TestNewEmbeddingGeneratorOllamaDefaultsModel(t *testing.T) {
	gen, err := NewEmbeddingGenerator(config.ModelConfig{Provider: "ollama"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.GetModel() == "" {
		t.Error("expected a non-empty default embedding model")
	}
}
