package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClientCompleteParsesFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("got path %q, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("got Authorization %q, want Bearer test-key", got)
		}
		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Messages[0].Content != "summarize this" {
			t.Errorf("got prompt %q, want summarize this", req.Messages[0].Content)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAIChatResponse{
			Choices: []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			}{
				{Message: struct {
					Content string `json:"content"`
				}{Content: "a summary"}},
			},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	got, err := client.Complete(context.Background(), "summarize this")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "a summary" {
		t.Errorf("got %q, want %q", got, "a summary")
	}
}

func TestOpenAIClientCompleteErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := client.Complete(context.Background(), "anything"); err == nil {
		t.Error("expected an error on a non-200 upstream response")
	}
}

func TestOpenAIClientCompleteErrorsOnNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAIChatResponse{})
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := client.Complete(context.Background(), "anything"); err == nil {
		t.Error("expected an error when the upstream returns no choices")
	}
}

func TestOpenAIClientDefaultsModelAndBaseURL(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key"})
	if client.GetModel() != "gpt-4o-mini" {
		t.Errorf("got model %q, want gpt-4o-mini", client.GetModel())
	}
	if client.cfg.BaseURL != "https://api.openai.com" {
		t.Errorf("got base URL %q, want https://api.openai.com", client.cfg.BaseURL)
	}
}

func TestOpenAIEmbeddingClientEmbedConvertsFloat64ToFloat32(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("got path %q, want /v1/embeddings", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAIEmbeddingResponse{
			Data: []struct {
				Embedding []float64 `json:"embedding"`
			}{
				{Embedding: []float64{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer srv.Close()

	client := NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: "test-key", BaseURL: srv.URL})
	vec, err := client.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("got %d dims, want 3", len(vec))
	}
	if vec[0] < 0.099 || vec[0] > 0.101 {
		t.Errorf("got vec[0] = %v, want approximately 0.1", vec[0])
	}
}

func TestOpenAIEmbeddingClientErrorsOnEmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAIEmbeddingResponse{})
	}))
	defer srv.Close()

	client := NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := client.Embed(context.Background(), "some text"); err == nil {
		t.Error("expected an error when the upstream returns no embedding data")
	}
}

func TestOpenAIEmbeddingClientDefaultsModelAndBaseURL(t *testing.T) {
	client := NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: "test-key"})
	if client.GetModel() != "text-embedding-3-small" {
		t.Errorf("got model %q, want text-embedding-3-small", client.GetModel())
	}
	if client.cfg.BaseURL != "https://api.openai.com" {
		t.Errorf("got base URL %q, want https://api.openai.com", client.cfg.BaseURL)
	}
}
