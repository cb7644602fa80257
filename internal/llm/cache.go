package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// embeddingCache is the Model Gateway's shared, process-wide embedding
// cache (spec §4.2/§9): capacity 1,000 entries keyed by a hash of the
// text, FIFO eviction. Like the metrics ring buffer, this is one of the
// two legitimately process-wide pieces of state; everything else in the
// core is a constructed component passed by reference.
type embeddingCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string][]float32
}

func newEmbeddingCache(capacity int) *embeddingCache {
	if capacity < 1 {
		capacity = 1000
	}
	return &embeddingCache{
		capacity: capacity,
		entries:  make(map[string][]float32, capacity),
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *embeddingCache) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[cacheKey(text)]
	return v, ok
}

// put inserts text's embedding, evicting the oldest entry first if the
// cache is at capacity. A duplicate key refreshes the value in place
// without moving it to the back of the FIFO order, since the cache keys
// on text identity and a re-embedded text is, by construction, identical.
func (c *embeddingCache) put(text string, v []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(text)
	if _, exists := c.entries[key]; exists {
		c.entries[key] = v
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.order = append(c.order, key)
	c.entries[key] = v
}
