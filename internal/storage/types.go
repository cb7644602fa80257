package storage

import (
	"errors"
	"time"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

var (
	// ErrNotFound indicates the requested session, memory, or relationship
	// has no record in the backing store.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates a structural failure the store detected on
	// its own (malformed vector length, missing required column) rather
	// than a semantic validation failure, which is the managers'
	// responsibility.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a serialization conflict from the underlying
	// store. The gateway retries this with bounded backoff before
	// surfacing transient-store.
	ErrConflict = errors.New("write conflict")
)

// CategorySubtype is one (category, subtype) pair used to filter a vector
// search to a specific taxonomy slot.
type CategorySubtype struct {
	Category types.MemoryCategory
	Subtype  string
}

// MemoryFilter narrows a vector search to a subset of a user's memories.
// A zero-value MemoryFilter matches everything (subject to SigmaMin).
type MemoryFilter struct {
	CategorySubtypes []CategorySubtype
	Entities         []string
	TemporalFrom     *time.Time
	TemporalTo       *time.Time
	ConfidenceFloor  float64
}

// ScoredMemory pairs a memory with the cosine similarity the vector search
// computed against the query embedding, in [-1, 1].
type ScoredMemory struct {
	Memory     *types.Memory
	Similarity float64
}

// VectorSearchRequest is the primitive vector-search operation the store
// contract (spec §4.1, §6) requires every backend to support.
type VectorSearchRequest struct {
	UserID    string
	Embedding []float32
	Filter    MemoryFilter
	SigmaMin  float64
	Limit     int
}
