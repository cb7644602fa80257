// Package engine composes the Working-Memory Manager (C5), the Long-Term
// Memory Manager (C6), and the Context Assembler (C7) behind Core, the
// facade that exposes the fifteen named tool operations as typed Go
// methods.
package engine

import (
	"context"
	"time"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/config"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/llm"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/metrics"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/taxonomy"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// metricsRingCapacity is the fixed capacity of the shared metrics ring
// buffer (spec §5/§9).
const metricsRingCapacity = 1000

// Core is the constructed top-level facade. A cmd/ wiring binary builds a
// storage.MemoryStore and an *llm.Gateway, then calls NewCore; Core itself
// never reads configuration files or the environment.
type Core struct {
	gw      *storage.Gateway
	model   *llm.Gateway
	metrics *metrics.RingBuffer

	wm *WorkingMemoryManager
	lt *LongTermMemoryManager
	ca *ContextAssembler

	cfg *config.Config
}

// NewCore wires a Store Gateway, the three memory components, and the
// shared metrics ring buffer from an already-constructed store and model
// gateway plus a validated Config.
func NewCore(store storage.MemoryStore, model *llm.Gateway, cfg *config.Config) *Core {
	ring := metrics.New(metricsRingCapacity)
	gw := storage.New(store, ring)
	model.SetMetrics(ring)

	weights := RelevanceWeights{
		Semantic:            cfg.Memory.WeightSemantic,
		Recency:             cfg.Memory.WeightRecency,
		Frequency:           cfg.Memory.WeightFrequency,
		Importance:          cfg.Memory.WeightImportance,
		RecencyHalfLifeDays: cfg.Memory.RecencyHalfLifeDays,
		AccessCap:           cfg.Memory.AccessCap,
	}

	lt := NewLongTermMemoryManager(gw, model, weights)
	wm := NewWorkingMemoryManager(gw, lt, cfg.Memory.WorkingMemoryDefaultCapacity)
	lt.weights = weights // ensure set even if zero-value weights were passed before cfg load
	wm.promotionThresh = cfg.Memory.EvictionPromotionThreshold
	wm.sessionTTL = time.Duration(cfg.Memory.SessionTTLSeconds) * time.Second
	ca := NewContextAssembler(wm, lt, model, gw)

	return &Core{
		gw:      gw,
		model:   model,
		metrics: ring,
		wm:      wm,
		lt:      lt,
		ca:      ca,
		cfg:     cfg,
	}
}

// Close releases the underlying store's resources.
func (c *Core) Close() error {
	return c.gw.Close()
}

// --- Working memory (C5) ---

// InitSession implements the init_session operation.
func (c *Core) InitSession(ctx context.Context, sessionID, userID string, maxTokens int) (*types.Session, error) {
	return c.wm.InitSession(ctx, sessionID, userID, maxTokens)
}

// AddToWorkingMemory implements the add_to_working_memory operation.
func (c *Core) AddToWorkingMemory(ctx context.Context, sessionID, userID string, contentType types.WorkingMemoryContentType, content string, pinned bool, relevance float64) (*types.WorkingMemoryItem, error) {
	return c.wm.AppendItem(ctx, sessionID, userID, contentType, content, pinned, relevance)
}

// GetWorkingMemory implements the get_working_memory operation.
func (c *Core) GetWorkingMemory(ctx context.Context, sessionID string, tokenBudget int) ([]*types.WorkingMemoryItem, error) {
	return c.wm.GetItems(ctx, sessionID, tokenBudget)
}

// UpdateWorkingMemoryItem implements the update_working_memory_item
// operation.
func (c *Core) UpdateWorkingMemoryItem(ctx context.Context, sessionID, itemID string, pinned *bool, relevance *float64) error {
	return c.wm.UpdateItem(ctx, sessionID, itemID, pinned, relevance)
}

// ClearWorkingMemory implements the clear_working_memory operation.
func (c *Core) ClearWorkingMemory(ctx context.Context, sessionID string, checkpointFirst bool) error {
	return c.wm.ClearSession(ctx, sessionID, checkpointFirst)
}

// --- Long-term memory (C6) ---

// StoreMemory implements the store_memory operation.
func (c *Core) StoreMemory(ctx context.Context, userID, content string, hints StoreHints) (*StoreResult, error) {
	return c.lt.Store(ctx, userID, content, hints)
}

// RecallMemories implements the recall_memories operation.
func (c *Core) RecallMemories(ctx context.Context, userID, sessionID, query string, filter storage.MemoryFilter, limit int, sigmaMin float64) ([]RecalledMemory, error) {
	return c.lt.Recall(ctx, userID, sessionID, query, filter, limit, sigmaMin)
}

// UpdateMemory implements the update_memory operation.
func (c *Core) UpdateMemory(ctx context.Context, memoryID string, content *string, metadata map[string]interface{}) error {
	return c.lt.Update(ctx, memoryID, content, metadata)
}

// ForgetMemory implements the forget_memory operation.
func (c *Core) ForgetMemory(ctx context.Context, memoryID string, hard bool) error {
	return c.lt.Forget(ctx, memoryID, hard)
}

// ForgetAllUserMemories implements the forget_all_user_memories
// operation. confirmToken must equal ConfirmDeleteAllToken.
func (c *Core) ForgetAllUserMemories(ctx context.Context, userID, confirmToken string) (int, error) {
	return c.lt.ForgetAllForUser(ctx, userID, confirmToken)
}

// Supersede, Restore, FindContradictions, and ApplyDecay are Long-Term
// Memory Manager operations (supersede, restore, find-contradictions,
// apply-decay) that are not among the fifteen named tool operations but
// remain reachable on Core for a maintenance caller built on top of this
// module.

// Supersede marks newID as replacing oldID.
func (c *Core) Supersede(ctx context.Context, oldID, newID, createdBy string) error {
	return c.lt.Supersede(ctx, oldID, newID, createdBy)
}

// Restore un-deletes a soft-deleted memory.
func (c *Core) Restore(ctx context.Context, memoryID string) error {
	return c.lt.Restore(ctx, memoryID)
}

// FindContradictions runs the offline contradiction sweep for userID.
func (c *Core) FindContradictions(ctx context.Context, userID string, sigmaMin float64) ([]ContradictionCandidate, error) {
	return c.lt.FindContradictions(ctx, userID, sigmaMin)
}

// ApplyDecay decays importance for userID's inactive memories.
func (c *Core) ApplyDecay(ctx context.Context, userID string, rate, floor float64, inactiveDays int) (int, error) {
	return c.lt.ApplyDecay(ctx, userID, rate, floor, inactiveDays)
}

// --- Context (C7) ---

// GetRelevantContext implements the get_relevant_context operation.
func (c *Core) GetRelevantContext(ctx context.Context, sessionID, userID, query string, tokenBudget int, intentHint *taxonomy.Intent, focusEntities []string) (*ContextResult, error) {
	return c.ca.GetRelevantContext(ctx, sessionID, userID, query, tokenBudget, intentHint, focusEntities)
}

// CheckpointWorkingMemory implements the checkpoint_working_memory
// operation.
func (c *Core) CheckpointWorkingMemory(ctx context.Context, sessionID string) error {
	return c.wm.Checkpoint(ctx, sessionID)
}

// --- Analytics ---

// StatsResult is get_stats' return value: coarse counts plus a snapshot
// of the shared metrics ring buffer.
type StatsResult struct {
	TotalMemories      int           `json:"total_memories"`
	TotalRelationships int           `json:"total_relationships"`
	Calls              metrics.Stats `json:"calls"`
}

// GetStats implements the get_stats operation.
func (c *Core) GetStats(ctx context.Context, userID string) (*StatsResult, error) {
	memories, err := c.gw.Store().ListMemoriesForUser(ctx, userID, false)
	if err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: get_stats: list memories: %v", err)
	}
	relCount := 0
	for _, m := range memories {
		rels, err := c.gw.Store().ListRelationships(ctx, m.ID)
		if err != nil {
			return nil, types.NewErrorf(types.ErrInternal, "engine: get_stats: list relationships: %v", err)
		}
		relCount += len(rels)
	}
	return &StatsResult{
		TotalMemories:      len(memories),
		TotalRelationships: relCount,
		Calls:              c.metrics.Snapshot(),
	}, nil
}

// GetRecentCalls implements the get_recent_calls operation: the most
// recent entries in the shared metrics ring buffer, newest first.
func (c *Core) GetRecentCalls(ctx context.Context, limit int) []metrics.Call {
	return c.metrics.Recent(limit)
}

// GetMemoryAnalytics implements the get_memory_analytics operation: the
// Long-Term Memory Manager's quality-report (spec §9).
func (c *Core) GetMemoryAnalytics(ctx context.Context, userID string) (*QualityReport, error) {
	return c.lt.QualityReport(ctx, userID)
}
