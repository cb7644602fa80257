package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/security"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// EvictionPromotionThreshold is the default relevance above which an
// evicted working-memory item is promoted to long-term memory rather than
// discarded (spec §4.5).
const EvictionPromotionThreshold = 0.6

// CheckpointPromotionThreshold is the relevance (or pinned status) above
// which clear-session/checkpoint promotes an item to long-term memory
// (spec §4.5).
const CheckpointPromotionThreshold = 0.5

// DefaultSessionTTL is the sliding-window idle timeout applied when no
// configuration overrides it.
const DefaultSessionTTL = 24 * time.Hour

// WorkingMemoryManager is the Working-Memory Manager (C5): session
// lifecycle, item append, token accounting, eviction, and checkpoint
// promotion to the Long-Term Memory Manager.
type WorkingMemoryManager struct {
	gw              *storage.Gateway
	longterm        *LongTermMemoryManager
	defaultCapacity int
	promotionThresh float64
	sessionTTL      time.Duration
}

// NewWorkingMemoryManager constructs a WorkingMemoryManager. longterm is
// the promotion target for evicted and checkpointed items.
func NewWorkingMemoryManager(gw *storage.Gateway, longterm *LongTermMemoryManager, defaultCapacity int) *WorkingMemoryManager {
	if defaultCapacity <= 0 {
		defaultCapacity = 8000
	}
	return &WorkingMemoryManager{
		gw:              gw,
		longterm:        longterm,
		defaultCapacity: defaultCapacity,
		promotionThresh: EvictionPromotionThreshold,
		sessionTTL:      DefaultSessionTTL,
	}
}

// requireSessionTransition gates a session mutation on the legal-edge
// table in pkg/types/state.go, turning the documented state machine into
// a runtime check rather than a formalization nothing ever calls.
func requireSessionTransition(current, next string) error {
	if !types.IsValidSessionTransition(current, next) {
		return types.NewErrorf(types.ErrInternal, "engine: illegal session transition %s -> %s", current, next)
	}
	return nil
}

// InitSession returns the session for id, creating it with maxTokens
// capacity (or the manager's default if maxTokens <= 0) if it does not
// yet exist, or if it exists but has expired. An existing, non-expired
// session has its LastActivity and (if a TTL is configured) its sliding
// expiry bumped, and is returned otherwise unchanged. A configured TTL
// (manager's sessionTTL, spec §3/§9) is applied to both the newly
// created and the resumed session.
func (m *WorkingMemoryManager) InitSession(ctx context.Context, sessionID, userID string, maxTokens int) (session *types.Session, err error) {
	start := time.Now()
	defer func() { m.gw.Record("init_session", start, err == nil) }()

	now := time.Now()

	s, err := m.gw.Store().GetSession(ctx, sessionID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewErrorf(types.ErrInternal, "engine: get session: %v", err)
	}
	if err == nil && s != nil && !s.Expired(now) {
		if err := requireSessionTransition(types.SessionActive, types.SessionActive); err != nil {
			return nil, err
		}
		s.LastActivity = now
		m.applyTTL(s, now)
		if err := m.gw.Store().UpsertSession(ctx, s); err != nil {
			return nil, types.NewErrorf(types.ErrInternal, "engine: upsert session: %v", err)
		}
		return s, nil
	}
	if err == nil && s != nil && s.Expired(now) {
		// The session has transitioned active -> absent. Its working-memory
		// items go with it: leaving them in place would keep counting
		// toward a token total the expired session no longer owns once it
		// is reissued below with Tokens reset to 0.
		if err := requireSessionTransition(types.SessionActive, types.SessionAbsent); err != nil {
			return nil, err
		}
		if err := m.gw.Store().ClearWorkingMemory(ctx, sessionID); err != nil {
			return nil, types.NewErrorf(types.ErrInternal, "engine: init_session: clear expired session: %v", err)
		}
	}

	if err := requireSessionTransition(types.SessionAbsent, types.SessionActive); err != nil {
		return nil, err
	}
	capacity := maxTokens
	if capacity <= 0 {
		capacity = m.defaultCapacity
	}
	s = &types.Session{
		ID:           sessionID,
		UserID:       userID,
		MaxTokens:    capacity,
		Tokens:       0,
		CreatedAt:    now,
		LastActivity: now,
	}
	m.applyTTL(s, now)
	if err := m.gw.Store().UpsertSession(ctx, s); err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: create session: %v", err)
	}
	return s, nil
}

// applyTTL sets s.ExpiresAt to now+sessionTTL, or leaves it nil if no TTL
// is configured.
func (m *WorkingMemoryManager) applyTTL(s *types.Session, now time.Time) {
	if m.sessionTTL <= 0 {
		s.ExpiresAt = nil
		return
	}
	expiresAt := now.Add(m.sessionTTL)
	s.ExpiresAt = &expiresAt
}

// itemPriority computes the eviction priority (spec §4.5):
// p = 100*relevance + 10/(1+age_seconds/3600) + (10 if task-state).
func itemPriority(item *types.WorkingMemoryItem, now time.Time) float64 {
	p := 100*item.Relevance + 10/(1+item.AgeSeconds(now)/3600)
	if item.ContentType == types.ContentTaskState {
		p += 10
	}
	return p
}

// AppendItem security-checks non-system content, computes its token
// count, assigns the next sequence number within the session under the
// session's mutex, inserts the item, and evicts if the session would
// exceed its token capacity. If sessionID has no existing session, one is
// auto-created for userID (spec §7's "not-found ... recovered locally by
// the working-memory manager by auto-creating the session").
func (m *WorkingMemoryManager) AppendItem(ctx context.Context, sessionID, userID string, contentType types.WorkingMemoryContentType, content string, pinned bool, relevance float64) (result *types.WorkingMemoryItem, err error) {
	start := time.Now()
	defer func() { m.gw.Record("add_to_working_memory", start, err == nil) }()

	if contentType != types.ContentSystem {
		if err := security.Check(content); err != nil {
			return nil, err
		}
	}

	lock := m.gw.SessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.gw.Store().GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		session, err = m.InitSession(ctx, sessionID, userID, 0)
	}
	if err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: append_item: resolve session: %v", err)
	}

	existing, err := m.gw.Store().ListWorkingMemoryItems(ctx, sessionID)
	if err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: append_item: list items: %v", err)
	}
	var nextSeq int64
	for _, it := range existing {
		if it.Sequence >= nextSeq {
			nextSeq = it.Sequence + 1
		}
	}

	now := time.Now()
	item := &types.WorkingMemoryItem{
		SessionID:   sessionID,
		ContentType: contentType,
		Content:     content,
		TokenCount:  estimateTokens(content),
		Relevance:   relevance,
		Pinned:      pinned,
		Sequence:    nextSeq,
		CreatedAt:   now,
		LastAccess:  now,
	}

	if err := m.gw.WriteTx(ctx, func(ctx context.Context) error {
		return m.gw.Store().InsertWorkingMemoryItem(ctx, item)
	}); err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: append_item: insert: %v", err)
	}

	session.Tokens += item.TokenCount
	session.LastActivity = now
	if err := m.gw.Store().UpsertSession(ctx, session); err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: append_item: update session tokens: %v", err)
	}

	if session.Tokens > session.MaxTokens {
		if err := m.evict(ctx, session, item.TokenCount); err != nil {
			return nil, err
		}
	}

	return item, nil
}

// evict removes the lowest-priority, non-pinned items from session until
// at least needTokens of space has been freed, promoting any evicted item
// above the promotion threshold (or of content-type task-state) to
// long-term memory first.
func (m *WorkingMemoryManager) evict(ctx context.Context, session *types.Session, needTokens int) error {
	items, err := m.gw.Store().ListWorkingMemoryItems(ctx, session.ID)
	if err != nil {
		return types.NewErrorf(types.ErrInternal, "engine: evict: list items: %v", err)
	}

	now := time.Now()
	candidates := make([]*types.WorkingMemoryItem, 0, len(items))
	for _, it := range items {
		if !it.Pinned {
			candidates = append(candidates, it)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return itemPriority(candidates[i], now) < itemPriority(candidates[j], now)
	})

	var freed int
	var toEvict []*types.WorkingMemoryItem
	for _, c := range candidates {
		if freed >= needTokens {
			break
		}
		freed += c.TokenCount
		toEvict = append(toEvict, c)
	}
	if len(toEvict) == 0 {
		return nil
	}

	ids := make([]string, 0, len(toEvict))
	for _, it := range toEvict {
		ids = append(ids, it.ID)
		if it.Relevance > m.promotionThresh || it.ContentType == types.ContentTaskState {
			if _, err := m.longterm.Store(ctx, session.UserID, it.Content, StoreHints{
				Importance:      &it.Relevance,
				SourceSessionID: &session.ID,
				SourceType:      types.SourcePromoted,
			}); err != nil {
				return err
			}
		}
	}

	if err := m.gw.Store().DeleteWorkingMemoryItems(ctx, session.ID, ids); err != nil {
		return types.NewErrorf(types.ErrInternal, "engine: evict: delete items: %v", err)
	}
	session.Tokens -= freed
	if session.Tokens < 0 {
		session.Tokens = 0
	}
	if err := m.gw.Store().UpsertSession(ctx, session); err != nil {
		return types.NewErrorf(types.ErrInternal, "engine: evict: update session tokens: %v", err)
	}
	return nil
}

// UpdateItem applies a new pinned flag and/or relevance score to an
// existing item. Nil fields leave the current value unchanged.
func (m *WorkingMemoryManager) UpdateItem(ctx context.Context, sessionID, itemID string, pinned *bool, relevance *float64) (err error) {
	start := time.Now()
	defer func() { m.gw.Record("update_working_memory_item", start, err == nil) }()

	items, err := m.gw.Store().ListWorkingMemoryItems(ctx, sessionID)
	if err != nil {
		return types.NewErrorf(types.ErrInternal, "engine: update_item: list items: %v", err)
	}
	var target *types.WorkingMemoryItem
	for _, it := range items {
		if it.ID == itemID {
			target = it
			break
		}
	}
	if target == nil {
		return types.NewErrorf(types.ErrNotFound, "engine: working-memory item %q not found in session %q", itemID, sessionID)
	}
	if pinned != nil {
		target.Pinned = *pinned
	}
	if relevance != nil {
		target.Relevance = *relevance
	}
	if err := m.gw.Store().UpdateWorkingMemoryItem(ctx, target); err != nil {
		return types.NewErrorf(types.ErrInternal, "engine: update_item: %v", err)
	}
	return nil
}

// Items returns every item in sessionID in store order, with no sorting
// or budget filtering applied. Used by the Context Assembler, which needs
// its own (pinned desc, sequence desc) ordering distinct from GetItems'.
func (m *WorkingMemoryManager) Items(ctx context.Context, sessionID string) ([]*types.WorkingMemoryItem, error) {
	items, err := m.gw.Store().ListWorkingMemoryItems(ctx, sessionID)
	if err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: items: %v", err)
	}
	return items, nil
}

// GetItems returns items ordered by (pinned desc, relevance desc, sequence
// desc), greedily filled up to tokenBudget. Items beyond the budget are
// not returned but remain persisted.
func (m *WorkingMemoryManager) GetItems(ctx context.Context, sessionID string, tokenBudget int) (out []*types.WorkingMemoryItem, err error) {
	start := time.Now()
	defer func() { m.gw.Record("get_working_memory", start, err == nil) }()

	items, err := m.gw.Store().ListWorkingMemoryItems(ctx, sessionID)
	if err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: get_items: %v", err)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Pinned != items[j].Pinned {
			return items[i].Pinned
		}
		if items[i].Relevance != items[j].Relevance {
			return items[i].Relevance > items[j].Relevance
		}
		return items[i].Sequence > items[j].Sequence
	})

	var used int
	out = make([]*types.WorkingMemoryItem, 0, len(items))
	for _, it := range items {
		if used+it.TokenCount > tokenBudget {
			continue
		}
		used += it.TokenCount
		out = append(out, it)
	}
	return out, nil
}

// promoteEligible returns the subset of items eligible for checkpoint or
// clear-session promotion: relevance >= CheckpointPromotionThreshold or
// pinned.
func promoteEligible(items []*types.WorkingMemoryItem) []*types.WorkingMemoryItem {
	out := make([]*types.WorkingMemoryItem, 0, len(items))
	for _, it := range items {
		if it.Relevance >= CheckpointPromotionThreshold || it.Pinned {
			out = append(out, it)
		}
	}
	return out
}

func (m *WorkingMemoryManager) promoteAll(ctx context.Context, session *types.Session, items []*types.WorkingMemoryItem) error {
	for _, it := range items {
		importance := it.Relevance
		if _, err := m.longterm.Store(ctx, session.UserID, it.Content, StoreHints{
			Importance:      &importance,
			SourceSessionID: &session.ID,
			SourceType:      types.SourcePromoted,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Checkpoint promotes every eligible item to long-term memory without
// deleting anything, for periodic use by a client.
func (m *WorkingMemoryManager) Checkpoint(ctx context.Context, sessionID string) (err error) {
	start := time.Now()
	defer func() { m.gw.Record("checkpoint_working_memory", start, err == nil) }()

	session, err := m.gw.Store().GetSession(ctx, sessionID)
	if err != nil {
		return types.NewErrorf(types.ErrNotFound, "engine: checkpoint: session %q: %v", sessionID, err)
	}
	items, err := m.gw.Store().ListWorkingMemoryItems(ctx, sessionID)
	if err != nil {
		return types.NewErrorf(types.ErrInternal, "engine: checkpoint: list items: %v", err)
	}
	return m.promoteAll(ctx, session, promoteEligible(items))
}

// ClearSession optionally checkpoints (the default), then deletes every
// item in the session and resets its token total to zero.
func (m *WorkingMemoryManager) ClearSession(ctx context.Context, sessionID string, checkpointFirst bool) (err error) {
	start := time.Now()
	defer func() { m.gw.Record("clear_working_memory", start, err == nil) }()

	session, err := m.gw.Store().GetSession(ctx, sessionID)
	if err != nil {
		return types.NewErrorf(types.ErrNotFound, "engine: clear_session: session %q: %v", sessionID, err)
	}
	if err := requireSessionTransition(types.SessionActive, types.SessionCleared); err != nil {
		return err
	}

	if checkpointFirst {
		items, err := m.gw.Store().ListWorkingMemoryItems(ctx, sessionID)
		if err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: clear_session: list items: %v", err)
		}
		if err := m.promoteAll(ctx, session, promoteEligible(items)); err != nil {
			return err
		}
	}

	if err := m.gw.Store().ClearWorkingMemory(ctx, sessionID); err != nil {
		return types.NewErrorf(types.ErrInternal, "engine: clear_session: %v", err)
	}
	session.Tokens = 0
	if err := m.gw.Store().UpsertSession(ctx, session); err != nil {
		return types.NewErrorf(types.ErrInternal, "engine: clear_session: reset tokens: %v", err)
	}
	return nil
}
