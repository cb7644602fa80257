package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/config"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/metrics"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/taxonomy"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// Gateway is the core's sole outbound model-service collaborator: it
// exposes Embed, Classify, ExtractEntities, and DetectIntent (spec §4.2),
// wrapping whichever concrete TextGenerator/EmbeddingGenerator pair the
// configured provider selected in a shared rate limiter and the cache
// named in spec §9. Each concrete client already wraps its own network
// call in a circuit breaker.
type Gateway struct {
	text     TextGenerator
	embedder EmbeddingGenerator
	limiter  *rate.Limiter
	cache    *embeddingCache
	metrics  *metrics.RingBuffer
}

// SetMetrics points Gateway at the shared metrics ring buffer. Calls made
// before SetMetrics (or when it is never called) are simply not recorded;
// this mirrors storage.Gateway's nil-ring tolerance so tests can construct
// a Gateway without a ring at all.
func (g *Gateway) SetMetrics(ring *metrics.RingBuffer) {
	g.metrics = ring
}

// record times a model call and appends it to the shared metrics ring
// buffer, component "model".
func (g *Gateway) record(operation string, start time.Time, success bool) {
	if g.metrics == nil {
		return
	}
	g.metrics.Record(metrics.Call{
		Component: "model",
		Operation: operation,
		Latency:   time.Since(start),
		Success:   success,
		At:        time.Now(),
	})
}

// NewGateway constructs a Gateway from cfg, selecting concrete clients via
// NewTextGenerator/NewEmbeddingGenerator and sizing the rate limiter and
// embedding cache from cfg.
func NewGateway(cfg config.ModelConfig) (*Gateway, error) {
	text, err := NewTextGenerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: gateway: %w", err)
	}
	embedder, err := NewEmbeddingGenerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: gateway: %w", err)
	}

	limit := cfg.RateLimitPerSecond
	if limit <= 0 {
		limit = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}

	return &Gateway{
		text:     text,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(limit), burst),
		cache:    newEmbeddingCache(1000),
	}, nil
}

// NewGatewayWithClients builds a Gateway around an already-constructed
// TextGenerator/EmbeddingGenerator pair instead of selecting one from
// cfg.Provider. Used by callers (and tests) that need to substitute a
// fake client while keeping the rate limiter and cache sizing cfg
// controls.
func NewGatewayWithClients(text TextGenerator, embedder EmbeddingGenerator, cfg config.ModelConfig) *Gateway {
	limit := cfg.RateLimitPerSecond
	if limit <= 0 {
		limit = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}
	return &Gateway{
		text:     text,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(limit), burst),
		cache:    newEmbeddingCache(1000),
	}
}

// wait blocks until the rate limiter admits one call, or returns ctx's
// error if it is cancelled first.
func (g *Gateway) wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return types.NewErrorf(types.ErrTimeout, "llm: rate limiter wait: %v", err)
	}
	return nil
}

// Embed returns text's embedding vector, consulting the shared cache
// before calling the configured EmbeddingGenerator.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := g.cache.get(text); ok {
		return v, nil
	}
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := g.embedder.Embed(ctx, text)
	g.record("embed", start, err == nil)
	if err != nil {
		return nil, types.NewErrorf(types.ErrUpstreamModel, "llm: embed: %v", err)
	}
	g.cache.put(text, v)
	return v, nil
}

// EmbedBatch embeds each text in order, preserving order and populating
// the cache for every entry, per spec §4.2's "batched variant" note.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := g.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Classify routes content (plus optional context) to the chat endpoint
// and parses its strict-JSON response. Parse failures and illegal
// category/subtype pairs are recovered: Classify logs a warning and
// returns DefaultClassification rather than propagating the error, per
// spec §7's recovery policy for this operation.
func (g *Gateway) Classify(ctx context.Context, content, contextText string) ClassificationResult {
	start := time.Now()
	if err := g.wait(ctx); err != nil {
		log.Printf("llm: classify: rate limiter wait failed, using default classification: %v", err)
		g.record("classify", start, false)
		return DefaultClassification()
	}

	raw, err := g.text.Complete(ctx, ClassificationPrompt(content, contextText))
	if err != nil {
		log.Printf("llm: classify: model call failed, using default classification: %v", err)
		g.record("classify", start, false)
		return DefaultClassification()
	}

	result, err := ParseClassificationResponse(raw)
	if err != nil {
		log.Printf("llm: classify: response parse failed, using default classification: %v", err)
		g.record("classify", start, false)
		return DefaultClassification()
	}
	g.record("classify", start, true)
	return result
}

// ExtractEntities routes content to the chat endpoint and parses its
// strict-JSON response into a list of "type:name" strings. Model-call and
// parse failures are recovered as an empty list, per spec §4.2/§7.
func (g *Gateway) ExtractEntities(ctx context.Context, content string) []string {
	start := time.Now()
	if err := g.wait(ctx); err != nil {
		log.Printf("llm: extract_entities: rate limiter wait failed, returning empty list: %v", err)
		g.record("extract_entities", start, false)
		return []string{}
	}

	raw, err := g.text.Complete(ctx, EntityExtractionPrompt(content))
	if err != nil {
		log.Printf("llm: extract_entities: model call failed, returning empty list: %v", err)
		g.record("extract_entities", start, false)
		return []string{}
	}
	g.record("extract_entities", start, true)
	return ParseEntityExtractionResponse(raw)
}

// DetectIntent routes query to the chat endpoint and parses the single
// word it returns into one of the five fixed intents. DetectIntent has no
// retryable failure class (spec §9): any failure, including a rate
// limiter or circuit breaker rejection, falls back to IntentGeneral.
func (g *Gateway) DetectIntent(ctx context.Context, query string) taxonomy.Intent {
	start := time.Now()
	if err := g.wait(ctx); err != nil {
		g.record("detect_intent", start, false)
		return taxonomy.IntentGeneral
	}

	raw, err := g.text.Complete(ctx, IntentDetectionPrompt(query))
	if err != nil {
		g.record("detect_intent", start, false)
		return taxonomy.IntentGeneral
	}
	g.record("detect_intent", start, true)
	return ParseIntentResponse(raw)
}
