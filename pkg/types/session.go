package types

import "time"

// Session is a bounded conversational context owned by a user. Created on
// first reference, updated on every working-memory operation, and never
// hard-deleted — clearing a session resets its items and token total but
// the row itself persists.
type Session struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	OrgID     *string `json:"org_id,omitempty"`
	MaxTokens int     `json:"max_tokens"`
	Tokens    int     `json:"tokens"`

	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `json:"last_activity"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	Config map[string]interface{} `json:"config,omitempty"`
}

// Expired reports whether the session's expiry, if set, has passed as of
// now. An expired session transitions from active to absent.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// WorkingMemoryContentType is the fixed set of content classifications for
// a working-memory item.
type WorkingMemoryContentType string

const (
	ContentMessage         WorkingMemoryContentType = "message"
	ContentTaskState       WorkingMemoryContentType = "task-state"
	ContentScratchpad      WorkingMemoryContentType = "scratchpad"
	ContentSystem          WorkingMemoryContentType = "system"
	ContentRetrievedMemory WorkingMemoryContentType = "retrieved-memory"
)

// WorkingMemoryItem belongs to exactly one session.
//
// Invariants: the sum of TokenCount across a session's live items equals
// the session's running token total; Sequence is strictly increasing
// within a session.
type WorkingMemoryItem struct {
	ID          string                    `json:"id"`
	SessionID   string                    `json:"session_id"`
	ContentType WorkingMemoryContentType  `json:"content_type"`
	Content     string                    `json:"content"`
	TokenCount  int                       `json:"token_count"`
	Relevance   float64                   `json:"relevance"`
	Pinned      bool                      `json:"pinned"`
	Sequence    int64                     `json:"sequence"`
	CreatedAt   time.Time                 `json:"created_at"`
	LastAccess  time.Time                 `json:"last_access"`
}

// AgeSeconds returns the item's age in seconds, measured from CreatedAt.
// Used by the eviction priority formula.
func (w *WorkingMemoryItem) AgeSeconds(now time.Time) float64 {
	return now.Sub(w.CreatedAt).Seconds()
}
