package llm

import (
	"fmt"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/config"
)

// NewTextGenerator constructs the chat-capable TextGenerator named by
// cfg.Provider.
func NewTextGenerator(cfg config.ModelConfig) (TextGenerator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.ChatModel, BaseURL: cfg.Host}), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{APIKey: cfg.APIKey, Model: cfg.ChatModel}), nil
	case "ollama", "":
		baseURL := cfg.Host
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.ChatModel
		if model == "" {
			model = "qwen2.5:7b"
		}
		return NewOllamaClient(OllamaConfig{BaseURL: baseURL, Model: model}), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %q", cfg.Provider)
	}
}

// NewEmbeddingGenerator constructs the EmbeddingGenerator named by
// cfg.Provider. Anthropic's API does not serve embeddings, so the
// "anthropic" provider is paired with the OpenAI-compatible embeddings
// endpoint instead, selected via cfg.Host/cfg.APIKey exactly as the
// "openai" provider would be.
func NewEmbeddingGenerator(cfg config.ModelConfig) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "openai", "anthropic":
		model := cfg.EmbeddingModel
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: cfg.APIKey, Model: model, BaseURL: cfg.Host}), nil
	case "ollama", "":
		baseURL := cfg.Host
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.EmbeddingModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaClient(OllamaConfig{BaseURL: baseURL, Model: model}), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %q", cfg.Provider)
	}
}
