package engine

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/config"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/llm"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage/sqlite"
)

// testDimension is the fixed embedding dimension used by every test in
// this package; it must match fakeEmbedder's output length.
const testDimension = 16

// newTestStore opens an in-memory SQLite store with the schema applied.
func newTestStore(t *testing.T) storage.MemoryStore {
	t.Helper()
	store, err := sqlite.New(":memory:", testDimension)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	if err := store.ApplySchema(context.Background()); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestGateway(t *testing.T) *storage.Gateway {
	t.Helper()
	return storage.New(newTestStore(t), nil)
}

// fakeTextGenerator lets each test script the exact chat response (or
// error) Classify/ExtractEntities/DetectIntent see, without a live model
// service.
type fakeTextGenerator struct {
	response string
	err      error
}

func (f *fakeTextGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeTextGenerator) GetModel() string { return "fake" }

// fakeEmbedder produces a deterministic bag-of-words embedding so that
// content sharing words embeds with high cosine similarity and
// byte-identical content embeds identically, without any live model
// service. Dimension matches testDimension.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return fakeEmbed(text), nil
}

func (fakeEmbedder) GetModel() string { return "fake-embed" }

func fakeEmbed(text string) []float32 {
	vec := make([]float32, testDimension)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(testDimension)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / sqrtFloat64(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func sqrtFloat64(v float64) float64 {
	// Avoid importing math solely for one call site at package scope.
	x := v
	for i := 0; i < 40; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

func testModelConfig() config.ModelConfig {
	return config.ModelConfig{RateLimitPerSecond: 1000, RateLimitBurst: 1000}
}

func newTestModelGateway(text llm.TextGenerator) *llm.Gateway {
	return llm.NewGatewayWithClients(text, fakeEmbedder{}, testModelConfig())
}

func defaultWeights() RelevanceWeights {
	return RelevanceWeights{
		Semantic:            0.5,
		Recency:             0.2,
		Frequency:           0.1,
		Importance:          0.2,
		RecencyHalfLifeDays: 30,
		AccessCap:           100,
	}
}
