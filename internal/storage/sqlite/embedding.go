package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// embeddings are stored as a BLOB of little-endian float32s rather than a
// native vector column, since SQLite has none; serializeEmbedding and
// deserializeEmbedding are the dual of each other.
func serializeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeEmbedding(buf []byte, dim int) ([]float32, error) {
	if len(buf) != dim*4 {
		return nil, fmt.Errorf("sqlite: embedding buffer size mismatch: expected %d bytes for dim %d, got %d", dim*4, dim, len(buf))
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

// cosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// Returns 0 if either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
