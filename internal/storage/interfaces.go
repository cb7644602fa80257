// Package storage defines the store contract the memory core depends on
// (spec §4.1, §6) and two concrete implementations of it: a PostgreSQL
// backend backed by pgvector, and a modernc.org/sqlite backend for
// embedded deployments and tests. The core depends only on the MemoryStore
// interface; Gateway (gateway.go) wraps a MemoryStore with the
// process-wide write lock, retry-with-backoff, and metrics recording that
// make up the Store Gateway component.
package storage

import (
	"context"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// MemoryStore is the backend contract: row-level CRUD over the five
// entity tables plus the two append-only auxiliary tables, a
// serializable-isolation write path, and the vector-similarity primitive.
// Implementations trust their inputs and report structural failures
// (missing row, malformed vector length) as ErrNotFound/ErrInvalidInput;
// semantic validation (taxonomy membership, security content checks) is
// the managers' responsibility, not the store's.
type MemoryStore interface {
	// Sessions.
	GetSession(ctx context.Context, id string) (*types.Session, error)
	UpsertSession(ctx context.Context, s *types.Session) error
	DeleteSession(ctx context.Context, id string) error

	// Working memory. Sequence numbers are assigned by the caller under a
	// per-session mutex (spec §5); the store persists whatever sequence it
	// is given and never reassigns one.
	InsertWorkingMemoryItem(ctx context.Context, item *types.WorkingMemoryItem) error
	ListWorkingMemoryItems(ctx context.Context, sessionID string) ([]*types.WorkingMemoryItem, error)
	UpdateWorkingMemoryItem(ctx context.Context, item *types.WorkingMemoryItem) error
	DeleteWorkingMemoryItems(ctx context.Context, sessionID string, ids []string) error
	ClearWorkingMemory(ctx context.Context, sessionID string) error

	// Long-term memory.
	InsertMemory(ctx context.Context, m *types.Memory) error
	GetMemory(ctx context.Context, id string) (*types.Memory, error)
	UpdateMemory(ctx context.Context, m *types.Memory) error
	SoftDeleteMemory(ctx context.Context, id string) error
	HardDeleteMemory(ctx context.Context, id string) error
	RestoreMemory(ctx context.Context, id string) error
	ForgetAllForUser(ctx context.Context, userID string) (int, error)
	ListMemoriesForUser(ctx context.Context, userID string, includeDeleted bool) ([]*types.Memory, error)

	// VectorSearch returns up to req.Limit non-deleted memories owned by
	// req.UserID, ordered by descending cosine similarity, each at or
	// above req.SigmaMin. Implementations use an approximate-nearest-
	// neighbor index when available and fall back to exact scan
	// otherwise (spec §4.1).
	VectorSearch(ctx context.Context, req VectorSearchRequest) ([]ScoredMemory, error)

	// IncrementAccess bumps access_count and last_access for every memory
	// ID in ids, in a single write (spec §4.6 Recall batches this).
	IncrementAccess(ctx context.Context, ids []string) error

	// ApplyDecay multiplies importance by rate, floored at floor, for every
	// memory owned by userID whose last_access is older than
	// time.Now().Add(-inactiveFor). Returns the count of rows touched.
	ApplyDecay(ctx context.Context, userID string, rate, floor float64, inactiveFor int64) (int, error)

	// Relationships.
	InsertRelationship(ctx context.Context, r *types.MemoryRelationship) error
	ListRelationships(ctx context.Context, memoryID string) ([]*types.MemoryRelationship, error)
	DeleteRelationshipsForMemory(ctx context.Context, memoryID string) error

	// Access log, append-only.
	AppendAccessLog(ctx context.Context, entries []*types.AccessLogEntry) error
	RecentAccessLog(ctx context.Context, limit int) ([]*types.AccessLogEntry, error)

	// Service metrics and tool errors, both append-only and best-effort
	// from the caller's point of view (spec §4.2, §7).
	RecordServiceMetric(ctx context.Context, component, operation string, latencyMS int64, success bool, tokens int) error
	RecordToolError(ctx context.Context, tool string, code types.ErrorCode, message string) error
	RecentServiceMetrics(ctx context.Context, limit int) ([]ServiceMetricRow, error)
	RecentToolErrors(ctx context.Context, limit int) ([]ToolErrorRow, error)

	// ApplySchema idempotently creates every table and index the store
	// needs, including the vector index, before the first insertion
	// (store contract quirk iii).
	ApplySchema(ctx context.Context) error

	// Close releases any resources (connection pools) held by the store.
	Close() error
}

// ServiceMetricRow is one row of the service-metrics auxiliary table.
type ServiceMetricRow struct {
	Component string
	Operation string
	LatencyMS int64
	Success   bool
	Tokens    int
	At        int64 // unix seconds
}

// ToolErrorRow is one row of the tool-error-log auxiliary table.
type ToolErrorRow struct {
	Tool    string
	Code    types.ErrorCode
	Message string
	At      int64
}
