package llm

import "testing"

func TestAnthropicClientDefaultsModelAndTimeout(t *testing.T) {
	client := NewAnthropicClient(AnthropicConfig{APIKey: "test-key"})
	if client.GetModel() != "claude-haiku-4-5-20251001" {
		t.Errorf("got model %q, want claude-haiku-4-5-20251001", client.GetModel())
	}
	if client.cfg.Timeout == 0 {
		t.Error("expected a non-zero default timeout")
	}
}

func TestAnthropicClientHonorsExplicitModel(t *testing.T) {
	client := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", Model: "claude-opus-4-1-20250805"})
	if client.GetModel() != "claude-opus-4-1-20250805" {
		t.Errorf("got model %q, want claude-opus-4-1-20250805", client.GetModel())
	}
}
