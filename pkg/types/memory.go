package types

import "time"

// MemoryCategory is the top-level classification bucket for a long-term
// memory. The set is fixed at compile time; see the taxonomy package for
// the category/subtype table and the intent-to-weight profiles.
type MemoryCategory string

const (
	CategoryEpisodic   MemoryCategory = "episodic"
	CategorySemantic   MemoryCategory = "semantic"
	CategoryProcedural MemoryCategory = "procedural"
	CategoryPreference MemoryCategory = "preference"
)

// SourceType identifies how a long-term memory entered the store.
type SourceType string

const (
	SourceExplicit  SourceType = "explicit"  // caller-initiated store_memory
	SourcePromoted  SourceType = "promoted"  // promoted from working memory on eviction/checkpoint
	SourceSupersede SourceType = "supersede" // created as the replacement half of a supersede
)

// Memory is a long-term, user-scoped, vector-indexed memory record.
//
// Invariants: Embedding is non-nil and has exactly the configured dimension
// D; (Category, Subtype) is a pair drawn from the fixed taxonomy; a memory
// referenced by Supersedes is itself soft-deleted at the moment this memory
// is created.
type Memory struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	Category MemoryCategory `json:"category"`
	Subtype  string         `json:"subtype"`

	Content string  `json:"content"`
	Summary *string `json:"summary,omitempty"`

	Embedding []float32 `json:"embedding"`

	Entities []string               `json:"entities,omitempty"` // "type:name" strings
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	EventTime  *time.Time `json:"event_time,omitempty"`
	IsTemporal bool       `json:"is_temporal"`

	Importance  float64 `json:"importance"`
	AccessCount int     `json:"access_count"`
	DecayFactor float64 `json:"decay_factor"`

	Supersedes *string `json:"supersedes,omitempty"`

	SourceSessionID *string    `json:"source_session_id,omitempty"`
	SourceType      SourceType `json:"source_type"`

	Confidence float64 `json:"confidence"`

	CreatedAt  time.Time  `json:"created_at"`
	LastAccess time.Time  `json:"last_access"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the memory has been soft-deleted. Hard-deleted
// rows never reach this type since the row itself is gone.
func (m *Memory) IsDeleted() bool {
	return m.DeletedAt != nil
}

// AgeDays returns the age of the memory in days, measured from CreatedAt.
// Used by the recency term of the composite relevance score.
func (m *Memory) AgeDays(now time.Time) float64 {
	return now.Sub(m.CreatedAt).Hours() / 24.0
}

// RelTag enumerates the fixed set of relationship labels.
type RelTag string

const (
	RelRelatedTo   RelTag = "related-to"
	RelPartOf      RelTag = "part-of"
	RelDependsOn   RelTag = "depends-on"
	RelContradicts RelTag = "contradicts"
	RelUpdates     RelTag = "updates"
)

// AccessLogEntry records a single retrieval of a long-term memory.
// Append-only; used for analytics, never consulted for correctness.
type AccessLogEntry struct {
	ID         string    `json:"id"`
	MemoryID   string    `json:"memory_id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Query      string    `json:"query"`
	Similarity float64   `json:"similarity"`
	Useful     *bool     `json:"useful,omitempty"`
	Used       *bool     `json:"used,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}
