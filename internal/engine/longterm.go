package engine

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/llm"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/security"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/taxonomy"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// ConfirmDeleteAllToken is the literal confirmation token
// forget-all-for-user requires (spec §6).
const ConfirmDeleteAllToken = "CONFIRM_DELETE_ALL"

// DedupK and DedupSigmaMin are the fixed parameters of Store's
// deduplication gate (spec §4.6).
const (
	DedupK        = 3
	DedupSigmaMin = 0.95
)

// RelevanceWeights holds the composite relevance score's four weights
// and its two normalization constants (spec §4.6).
type RelevanceWeights struct {
	Semantic   float64
	Recency    float64
	Frequency  float64
	Importance float64

	RecencyHalfLifeDays float64
	AccessCap           int
}

// StoreHints carries the caller-supplied overrides Store accepts in place
// of running Classify/ExtractEntities itself.
type StoreHints struct {
	Category        *types.MemoryCategory
	Subtype         *string
	Entities        []string
	Importance      *float64
	EventTime       *time.Time
	IsTemporal      *bool
	Metadata        map[string]interface{}
	SourceSessionID *string
	SourceType      types.SourceType
	Confidence      *float64
}

// StoreResult is Store's return value: either a newly inserted memory or
// a reference to the existing memory it deduplicated against.
type StoreResult struct {
	MemoryID string
	Action   string // "inserted" | "merged-with-existing"
}

// RecalledMemory pairs a memory with the composite relevance score
// computed for it during Recall.
type RecalledMemory struct {
	Memory    *types.Memory
	Relevance float64
}

// ContradictionCandidate is one pair flagged by FindContradictions: two
// memories whose embeddings are similar but whose content diverges,
// with the newer one proposed as the candidate to supersede the older.
type ContradictionCandidate struct {
	Newer   *types.Memory
	Older   *types.Memory
	Cosine  float64
	Jaccard float64
}

// QualityReport is the read-only diagnostic Long-Term Memory Manager
// operation named in spec §9: memories with no recent recall, memories
// below a confidence floor, and duplicate clusters the 0.95 dedup gate
// missed at insert time (e.g. because they were inserted before that
// pair's similarity crossed the threshold, or via a direct restore).
type QualityReport struct {
	Orphaned          []*types.Memory
	BelowConfidence   []*types.Memory
	DuplicateClusters [][]*types.Memory
}

// memoryState derives a memory's current state-machine label (spec §9)
// from its persisted fields. Superseded and soft-deleted are a
// same-moment transition in this module (Supersede both sets the
// cross-reference and soft-deletes in one write), so a persisted row
// with DeletedAt set reads as soft-deleted regardless of whether it got
// there via Forget or via Supersede.
func memoryState(m *types.Memory) string {
	if m.DeletedAt != nil {
		return types.MemorySoftDeleted
	}
	return types.MemoryLive
}

// requireMemoryTransition gates a memory mutation on the legal-edge
// table in pkg/types/state.go, turning the documented state machine into
// a runtime check rather than a formalization nothing ever calls.
func requireMemoryTransition(current, next string) error {
	if !types.IsValidMemoryTransition(current, next) {
		return types.NewErrorf(types.ErrValidation, "engine: illegal memory transition %s -> %s", current, next)
	}
	return nil
}

// LongTermMemoryManager is the Long-Term Memory Manager (C6).
type LongTermMemoryManager struct {
	gw      *storage.Gateway
	model   *llm.Gateway
	weights RelevanceWeights
}

// NewLongTermMemoryManager constructs a LongTermMemoryManager.
func NewLongTermMemoryManager(gw *storage.Gateway, model *llm.Gateway, weights RelevanceWeights) *LongTermMemoryManager {
	return &LongTermMemoryManager{gw: gw, model: model, weights: weights}
}

// Store validates and embeds content, deduplicates it against the user's
// existing memories inside the write-mutex scope, and inserts it if no
// near-duplicate is found.
func (m *LongTermMemoryManager) Store(ctx context.Context, userID, content string, hints StoreHints) (result *StoreResult, err error) {
	start := time.Now()
	defer func() { m.gw.Record("store_memory", start, err == nil) }()

	if err := security.Check(content); err != nil {
		return nil, err
	}

	var category types.MemoryCategory
	var subtype string
	var importance float64
	var entities []string
	var isTemporal bool
	var summary *string

	if hints.Category != nil && hints.Subtype != nil {
		category, subtype = *hints.Category, *hints.Subtype
	} else {
		result := m.model.Classify(ctx, content, "")
		category, subtype = result.Category, result.Subtype
		importance = result.Importance
		entities = result.Entities
		isTemporal = result.IsTemporal
		summary = result.Summary
	}
	if !taxonomy.ValidSubtype(category, subtype) {
		return nil, types.NewErrorf(types.ErrValidation, "engine: illegal category/subtype pair %q/%q", category, subtype)
	}

	if hints.Importance != nil {
		importance = *hints.Importance
	}
	if hints.Entities != nil {
		entities = hints.Entities
	} else if entities == nil {
		entities = m.model.ExtractEntities(ctx, content)
	}
	if hints.IsTemporal != nil {
		isTemporal = *hints.IsTemporal
	}

	embedding, err := m.model.Embed(ctx, content)
	if err != nil {
		return nil, err
	}

	confidence := 1.0
	if hints.Confidence != nil {
		confidence = *hints.Confidence
	}
	sourceType := hints.SourceType
	if sourceType == "" {
		sourceType = types.SourceExplicit
	}

	now := time.Now()
	memory := &types.Memory{
		UserID:          userID,
		Category:        category,
		Subtype:         subtype,
		Content:         content,
		Summary:         summary,
		Embedding:       embedding,
		Entities:        entities,
		Metadata:        hints.Metadata,
		EventTime:       hints.EventTime,
		IsTemporal:      isTemporal,
		Importance:      importance,
		AccessCount:     0,
		DecayFactor:     1.0,
		SourceSessionID: hints.SourceSessionID,
		SourceType:      sourceType,
		Confidence:      confidence,
		CreatedAt:       now,
		LastAccess:      now,
		UpdatedAt:       now,
	}

	err = m.gw.WriteTx(ctx, func(ctx context.Context) error {
		hits, err := m.gw.Store().VectorSearch(ctx, storage.VectorSearchRequest{
			UserID:    userID,
			Embedding: embedding,
			SigmaMin:  DedupSigmaMin,
			Limit:     DedupK,
		})
		if err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: store: dedup search: %v", err)
		}
		if len(hits) > 0 {
			existing := hits[0].Memory
			if err := m.gw.Store().IncrementAccess(ctx, []string{existing.ID}); err != nil {
				return types.NewErrorf(types.ErrInternal, "engine: store: dedup touch: %v", err)
			}
			result = &StoreResult{MemoryID: existing.ID, Action: "merged-with-existing"}
			return nil
		}
		if err := m.gw.Store().InsertMemory(ctx, memory); err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: store: insert: %v", err)
		}
		result = &StoreResult{MemoryID: memory.ID, Action: "inserted"}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// compositeRelevance computes spec §4.6's relevance formula for a single
// scored candidate.
func (w RelevanceWeights) compositeRelevance(s storage.ScoredMemory, now time.Time) float64 {
	ageDays := s.Memory.AgeDays(now)
	halfLife := w.RecencyHalfLifeDays
	if halfLife <= 0 {
		halfLife = 30
	}
	accessCap := w.AccessCap
	if accessCap <= 0 {
		accessCap = 100
	}
	return w.Semantic*s.Similarity +
		w.Recency*math.Exp(-ageDays/halfLife) +
		w.Frequency*math.Log(1+float64(s.Memory.AccessCount))/math.Log(1+float64(accessCap)) +
		w.Importance*s.Memory.Importance
}

// Recall embeds query, retrieves candidates matching filter and sigmaMin
// (falling back to 0.7 if sigmaMin <= 0), scores each with the composite
// relevance formula, and batches an access-count increment plus an
// access-log append for every returned memory.
func (m *LongTermMemoryManager) Recall(ctx context.Context, userID, sessionID, query string, filter storage.MemoryFilter, limit int, sigmaMin float64) (out []RecalledMemory, err error) {
	start := time.Now()
	defer func() { m.gw.Record("recall_memories", start, err == nil) }()

	if sigmaMin <= 0 {
		sigmaMin = 0.7
	}
	embedding, err := m.model.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := m.gw.Store().VectorSearch(ctx, storage.VectorSearchRequest{
		UserID:    userID,
		Embedding: embedding,
		Filter:    filter,
		SigmaMin:  sigmaMin,
		Limit:     limit,
	})
	if err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: recall: vector search: %v", err)
	}

	now := time.Now()
	out = make([]RecalledMemory, 0, len(hits))
	for _, h := range hits {
		out = append(out, RecalledMemory{Memory: h.Memory, Relevance: m.weights.compositeRelevance(h, now)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		if out[i].Memory.Importance != out[j].Memory.Importance {
			return out[i].Memory.Importance > out[j].Memory.Importance
		}
		return out[i].Memory.CreatedAt.After(out[j].Memory.CreatedAt)
	})

	if len(out) > 0 {
		ids := make([]string, len(out))
		entries := make([]*types.AccessLogEntry, len(out))
		for i, r := range out {
			ids[i] = r.Memory.ID
			entries[i] = &types.AccessLogEntry{
				MemoryID:   r.Memory.ID,
				SessionID:  sessionID,
				UserID:     userID,
				Query:      query,
				Similarity: r.Relevance,
				AccessedAt: now,
			}
		}
		if err := m.gw.Store().IncrementAccess(ctx, ids); err != nil {
			return nil, types.NewErrorf(types.ErrInternal, "engine: recall: increment access: %v", err)
		}
		if err := m.gw.Store().AppendAccessLog(ctx, entries); err != nil {
			return nil, types.NewErrorf(types.ErrInternal, "engine: recall: append access log: %v", err)
		}
	}

	return out, nil
}

// Update re-embeds and re-validates content if it changed, merges
// metadata, and bumps updated_at.
func (m *LongTermMemoryManager) Update(ctx context.Context, memoryID string, content *string, metadata map[string]interface{}) (err error) {
	start := time.Now()
	defer func() { m.gw.Record("update_memory", start, err == nil) }()

	existing, err := m.gw.Store().GetMemory(ctx, memoryID)
	if err != nil {
		return types.NewErrorf(types.ErrNotFound, "engine: update: memory %q: %v", memoryID, err)
	}

	if content != nil && *content != existing.Content {
		if err := security.Check(*content); err != nil {
			return err
		}
		embedding, err := m.model.Embed(ctx, *content)
		if err != nil {
			return err
		}
		existing.Content = *content
		existing.Embedding = embedding
	}
	for k, v := range metadata {
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]interface{}, len(metadata))
		}
		existing.Metadata[k] = v
	}
	existing.UpdatedAt = time.Now()

	return m.gw.WriteTx(ctx, func(ctx context.Context) error {
		if err := m.gw.Store().UpdateMemory(ctx, existing); err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: update: %v", err)
		}
		return nil
	})
}

// Forget soft-deletes or hard-deletes memoryID. Hard-delete also removes
// every relationship referencing the memory.
func (m *LongTermMemoryManager) Forget(ctx context.Context, memoryID string, hard bool) (err error) {
	start := time.Now()
	defer func() { m.gw.Record("forget_memory", start, err == nil) }()

	existing, err := m.gw.Store().GetMemory(ctx, memoryID)
	if err != nil {
		return types.NewErrorf(types.ErrNotFound, "engine: forget: memory %q: %v", memoryID, err)
	}
	target := types.MemorySoftDeleted
	if hard {
		target = types.MemoryHardDeleted
	}
	if err := requireMemoryTransition(memoryState(existing), target); err != nil {
		return err
	}

	err = m.gw.WriteTx(ctx, func(ctx context.Context) error {
		if hard {
			if err := m.gw.Store().DeleteRelationshipsForMemory(ctx, memoryID); err != nil {
				return types.NewErrorf(types.ErrInternal, "engine: forget: delete relationships: %v", err)
			}
			if err := m.gw.Store().HardDeleteMemory(ctx, memoryID); err != nil {
				return types.NewErrorf(types.ErrNotFound, "engine: forget: hard delete memory %q: %v", memoryID, err)
			}
			return nil
		}
		if err := m.gw.Store().SoftDeleteMemory(ctx, memoryID); err != nil {
			return types.NewErrorf(types.ErrNotFound, "engine: forget: soft delete memory %q: %v", memoryID, err)
		}
		return nil
	})
	return err
}

// ForgetAllForUser hard-deletes every memory owned by userID, requiring
// the literal confirmation token named in spec §6.
func (m *LongTermMemoryManager) ForgetAllForUser(ctx context.Context, userID, confirmToken string) (count int, err error) {
	start := time.Now()
	defer func() { m.gw.Record("forget_all_user_memories", start, err == nil) }()

	if confirmToken != ConfirmDeleteAllToken {
		return 0, types.NewErrorf(types.ErrValidation, "engine: forget_all_for_user requires confirmation token %q", ConfirmDeleteAllToken)
	}
	err = m.gw.WriteTx(ctx, func(ctx context.Context) error {
		n, err := m.gw.Store().ForgetAllForUser(ctx, userID)
		if err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: forget_all_for_user: %v", err)
		}
		count = n
		return nil
	})
	return count, err
}

// Supersede sets new's supersedes reference to old, soft-deletes old, and
// inserts an old->new "updates" relationship. Both memories must already
// exist and belong to the same user.
func (m *LongTermMemoryManager) Supersede(ctx context.Context, oldID, newID, createdBy string) (err error) {
	start := time.Now()
	defer func() { m.gw.Record("supersede", start, err == nil) }()

	err = m.gw.WriteTx(ctx, func(ctx context.Context) error {
		oldMem, err := m.gw.Store().GetMemory(ctx, oldID)
		if err != nil {
			return types.NewErrorf(types.ErrNotFound, "engine: supersede: old memory %q: %v", oldID, err)
		}
		newMem, err := m.gw.Store().GetMemory(ctx, newID)
		if err != nil {
			return types.NewErrorf(types.ErrNotFound, "engine: supersede: new memory %q: %v", newID, err)
		}
		if oldMem.UserID != newMem.UserID {
			return types.NewErrorf(types.ErrValidation, "engine: supersede: memories %q and %q belong to different users", oldID, newID)
		}
		if err := requireMemoryTransition(memoryState(oldMem), types.MemorySuperseded); err != nil {
			return err
		}

		oldIDCopy := oldID
		newMem.Supersedes = &oldIDCopy
		newMem.UpdatedAt = time.Now()
		if err := m.gw.Store().UpdateMemory(ctx, newMem); err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: supersede: update new memory: %v", err)
		}
		if err := m.gw.Store().SoftDeleteMemory(ctx, oldID); err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: supersede: soft delete old memory: %v", err)
		}
		if err := m.gw.Store().InsertRelationship(ctx, &types.MemoryRelationship{
			FromID:    oldID,
			ToID:      newID,
			Tag:       types.RelUpdates,
			Strength:  1.0,
			CreatedAt: time.Now(),
			CreatedBy: createdBy,
		}); err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: supersede: insert relationship: %v", err)
		}
		return nil
	})
	return err
}

// Restore un-deletes a soft-deleted memory, clearing deleted_at so it is
// live again. The only legal source state is soft-deleted (spec §9); a
// live or hard-deleted memory has nothing to restore from.
func (m *LongTermMemoryManager) Restore(ctx context.Context, memoryID string) (err error) {
	start := time.Now()
	defer func() { m.gw.Record("restore_memory", start, err == nil) }()

	existing, err := m.gw.Store().GetMemory(ctx, memoryID)
	if err != nil {
		return types.NewErrorf(types.ErrNotFound, "engine: restore: memory %q: %v", memoryID, err)
	}
	if err := requireMemoryTransition(memoryState(existing), types.MemoryLive); err != nil {
		return err
	}
	return m.gw.WriteTx(ctx, func(ctx context.Context) error {
		if err := m.gw.Store().RestoreMemory(ctx, memoryID); err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: restore: %v", err)
		}
		return nil
	})
}

// jaccardSimilarity computes token-set Jaccard similarity of two content
// strings, lowercased and split on whitespace.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	var intersection, union int
	union = len(setA)
	for tok := range setB {
		if setA[tok] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		out[tok] = true
	}
	return out
}

// cosineSimilarity32 computes cosine similarity between two float32
// embeddings sharing the same dimension.
func cosineSimilarity32(a, b []float32) float64 {
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

// FindContradictions is an offline operation: it pairs every two live
// memories of userID with cosine similarity >= 0.75 and content Jaccard
// similarity < 0.5, flagging the newer as a candidate to supersede the
// older (spec §4.6).
func (m *LongTermMemoryManager) FindContradictions(ctx context.Context, userID string, sigmaMin float64) (candidates []ContradictionCandidate, err error) {
	start := time.Now()
	defer func() { m.gw.Record("find_contradictions", start, err == nil) }()

	if sigmaMin <= 0 {
		sigmaMin = 0.75
	}
	memories, err := m.gw.Store().ListMemoriesForUser(ctx, userID, false)
	if err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: find_contradictions: list memories: %v", err)
	}

	for i := 0; i < len(memories); i++ {
		for j := i + 1; j < len(memories); j++ {
			a, b := memories[i], memories[j]
			cosine := cosineSimilarity32(a.Embedding, b.Embedding)
			if cosine < sigmaMin {
				continue
			}
			jac := jaccardSimilarity(a.Content, b.Content)
			if jac >= 0.5 {
				continue
			}
			newer, older := a, b
			if b.CreatedAt.After(a.CreatedAt) {
				newer, older = b, a
			}
			candidates = append(candidates, ContradictionCandidate{
				Newer: newer, Older: older, Cosine: cosine, Jaccard: jac,
			})
		}
	}
	return candidates, nil
}

// ApplyDecay multiplies importance by rate for every memory of userID
// inactive for at least inactiveDays, floored at floor. Never runs
// implicitly during Recall; callers invoke it explicitly (spec §4.6).
func (m *LongTermMemoryManager) ApplyDecay(ctx context.Context, userID string, rate, floor float64, inactiveDays int) (count int, err error) {
	start := time.Now()
	defer func() { m.gw.Record("apply_decay", start, err == nil) }()

	inactiveSeconds := int64(inactiveDays) * 24 * 3600
	err = m.gw.WriteTx(ctx, func(ctx context.Context) error {
		n, err := m.gw.Store().ApplyDecay(ctx, userID, rate, floor, inactiveSeconds)
		if err != nil {
			return types.NewErrorf(types.ErrInternal, "engine: apply_decay: %v", err)
		}
		count = n
		return nil
	})
	return count, err
}

// QualityReportOrphanDays and QualityReportConfidenceFloor parameterize
// the read-only quality-report operation (spec §9).
const (
	QualityReportOrphanDays      = 30
	QualityReportConfidenceFloor = 0.4
)

// QualityReport surfaces memories with no recall in
// QualityReportOrphanDays days, memories below QualityReportConfidenceFloor
// confidence, and duplicate clusters the 0.95 dedup gate missed at insert
// time, for operator review rather than automatic action.
func (m *LongTermMemoryManager) QualityReport(ctx context.Context, userID string) (report *QualityReport, err error) {
	start := time.Now()
	defer func() { m.gw.Record("get_memory_analytics", start, err == nil) }()

	memories, err := m.gw.Store().ListMemoriesForUser(ctx, userID, false)
	if err != nil {
		return nil, types.NewErrorf(types.ErrInternal, "engine: quality_report: list memories: %v", err)
	}

	now := time.Now()
	orphanCutoff := now.AddDate(0, 0, -QualityReportOrphanDays)

	report = &QualityReport{}
	for _, mem := range memories {
		if mem.LastAccess.Before(orphanCutoff) {
			report.Orphaned = append(report.Orphaned, mem)
		}
		if mem.Confidence < QualityReportConfidenceFloor {
			report.BelowConfidence = append(report.BelowConfidence, mem)
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < len(memories); i++ {
		if seen[memories[i].ID] {
			continue
		}
		cluster := []*types.Memory{memories[i]}
		for j := i + 1; j < len(memories); j++ {
			if seen[memories[j].ID] {
				continue
			}
			if cosineSimilarity32(memories[i].Embedding, memories[j].Embedding) >= DedupSigmaMin {
				cluster = append(cluster, memories[j])
				seen[memories[j].ID] = true
			}
		}
		if len(cluster) > 1 {
			report.DuplicateClusters = append(report.DuplicateClusters, cluster)
		}
	}

	return report, nil
}
