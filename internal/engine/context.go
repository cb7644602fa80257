package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/llm"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/taxonomy"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// longTermCandidateLimit is the fixed number of candidates retrieved per
// category/subtype key during the long-term phase (spec §4.7 step 4).
const longTermCandidateLimit = 5

// minLongTermSubBudget is the fixed floor below which a category/subtype
// key's sub-budget is skipped entirely (spec §4.7 step 4).
const minLongTermSubBudget = 50

// entityBoostFactor is the multiplier applied per matched focus entity
// (spec §4.7 step 5).
const entityBoostFactor = 0.3

// ContextItem is one entry in GetRelevantContext's result: either a
// working-memory item or a long-term memory, annotated uniformly.
type ContextItem struct {
	Source     string  `json:"source"` // "working-memory" | "long-term"
	Content    string  `json:"content"`
	Category   string  `json:"category,omitempty"`
	Subtype    string  `json:"subtype,omitempty"`
	TokenCount int     `json:"token_count"`
	Score      float64 `json:"score"`
	Rationale  string  `json:"rationale"`

	WorkingMemoryItemID string `json:"working_memory_item_id,omitempty"`
	MemoryID            string `json:"memory_id,omitempty"`
}

// ContextResult is GetRelevantContext's return value.
type ContextResult struct {
	Items             []ContextItem   `json:"items"`
	TotalTokens       int             `json:"total_tokens"`
	BudgetUsedPercent float64         `json:"budget_used_percent"`
	Intent            taxonomy.Intent `json:"intent"`
	SourceBreakdown   map[string]int  `json:"source_breakdown"`
}

// ContextAssembler is the Context Assembler (C7): the compound
// GetRelevantContext operation over both memory managers.
type ContextAssembler struct {
	wm    *WorkingMemoryManager
	lt    *LongTermMemoryManager
	model *llm.Gateway
	gw    *storage.Gateway
}

// NewContextAssembler constructs a ContextAssembler.
func NewContextAssembler(wm *WorkingMemoryManager, lt *LongTermMemoryManager, model *llm.Gateway, gw *storage.Gateway) *ContextAssembler {
	return &ContextAssembler{wm: wm, lt: lt, model: model, gw: gw}
}

type longTermCandidate struct {
	memory     *types.Memory
	similarity float64
	category   string
	subtype    string
	score      float64
}

// GetRelevantContext runs the seven-step assembly algorithm of spec §4.7.
func (a *ContextAssembler) GetRelevantContext(ctx context.Context, sessionID, userID, query string, tokenBudget int, intentHint *taxonomy.Intent, focusEntities []string) (result *ContextResult, err error) {
	start := time.Now()
	defer func() { a.gw.Record("get_relevant_context", start, err == nil) }()

	intent := taxonomy.IntentGeneral
	if intentHint != nil && taxonomy.ValidIntent(*intentHint) {
		intent = *intentHint
	} else {
		intent = a.model.DetectIntent(ctx, query)
	}

	wmBudget := int(math.Floor(float64(tokenBudget) * taxonomy.WorkingMemoryWeight(intent)))
	wmRaw, err := a.wm.Items(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sort.Slice(wmRaw, func(i, j int) bool {
		if wmRaw[i].Pinned != wmRaw[j].Pinned {
			return wmRaw[i].Pinned
		}
		return wmRaw[i].Sequence > wmRaw[j].Sequence
	})

	var items []ContextItem
	var wmTokensUsed int
	for _, it := range wmRaw {
		if wmTokensUsed+it.TokenCount > wmBudget {
			break
		}
		wmTokensUsed += it.TokenCount
		items = append(items, ContextItem{
			Source:              "working-memory",
			Content:             it.Content,
			TokenCount:          it.TokenCount,
			Score:               it.Relevance,
			Rationale:           fmt.Sprintf("working-memory (relevance %.2f)", it.Relevance),
			WorkingMemoryItemID: it.ID,
		})
	}

	remaining := tokenBudget - wmTokensUsed

	queryEmbedding, err := a.model.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	focusSet := make(map[string]bool, len(focusEntities))
	for _, e := range focusEntities {
		focusSet[e] = true
	}

	ltWeights := taxonomy.LongTermWeights(intent)
	keys := make([]string, 0, len(ltWeights))
	for k := range ltWeights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var candidates []longTermCandidate
	for _, key := range keys {
		weight := ltWeights[key]
		if weight <= 0 {
			continue
		}
		subBudget := int(math.Floor(float64(remaining) * weight))
		if subBudget < minLongTermSubBudget {
			continue
		}
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			continue
		}
		category, subtype := types.MemoryCategory(parts[0]), parts[1]

		hits, err := a.gw.Store().VectorSearch(ctx, storage.VectorSearchRequest{
			UserID:    userID,
			Embedding: queryEmbedding,
			Filter: storage.MemoryFilter{
				CategorySubtypes: []storage.CategorySubtype{{Category: category, Subtype: subtype}},
			},
			SigmaMin: 0.7,
			Limit:    longTermCandidateLimit,
		})
		if err != nil {
			return nil, types.NewErrorf(types.ErrInternal, "engine: get_relevant_context: vector search %s: %v", key, err)
		}
		for _, h := range hits {
			score := h.Memory.Importance * weight
			if len(focusSet) > 0 {
				overlap := 0
				for _, e := range h.Memory.Entities {
					if focusSet[e] {
						overlap++
					}
				}
				score *= 1 + entityBoostFactor*float64(overlap)
			}
			candidates = append(candidates, longTermCandidate{
				memory: h.Memory, similarity: h.Similarity,
				category: string(category), subtype: subtype, score: score,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var ltTokensUsed int
	var selected []longTermCandidate
	for _, c := range candidates {
		tokens := estimateTokens(c.memory.Content)
		if ltTokensUsed+tokens > remaining {
			continue
		}
		ltTokensUsed += tokens
		selected = append(selected, c)
		items = append(items, ContextItem{
			Source:     "long-term",
			Content:    c.memory.Content,
			Category:   c.category,
			Subtype:    c.subtype,
			TokenCount: tokens,
			Score:      c.score,
			Rationale:  fmt.Sprintf("%s.%s (score %.2f)", c.category, c.subtype, c.score),
			MemoryID:   c.memory.ID,
		})
	}

	if len(selected) > 0 {
		ids := make([]string, len(selected))
		entries := make([]*types.AccessLogEntry, len(selected))
		now := time.Now()
		for i, c := range selected {
			ids[i] = c.memory.ID
			entries[i] = &types.AccessLogEntry{
				MemoryID:   c.memory.ID,
				SessionID:  sessionID,
				UserID:     userID,
				Query:      query,
				Similarity: c.similarity,
				AccessedAt: now,
			}
		}
		if err := a.gw.Store().IncrementAccess(ctx, ids); err != nil {
			return nil, types.NewErrorf(types.ErrInternal, "engine: get_relevant_context: increment access: %v", err)
		}
		if err := a.gw.Store().AppendAccessLog(ctx, entries); err != nil {
			return nil, types.NewErrorf(types.ErrInternal, "engine: get_relevant_context: append access log: %v", err)
		}
	}

	totalTokens := wmTokensUsed + ltTokensUsed
	var budgetUsedPercent float64
	if tokenBudget > 0 {
		budgetUsedPercent = 100 * float64(totalTokens) / float64(tokenBudget)
	}

	return &ContextResult{
		Items:             items,
		TotalTokens:       totalTokens,
		BudgetUsedPercent: budgetUsedPercent,
		Intent:            intent,
		SourceBreakdown: map[string]int{
			"working-memory": wmTokensUsed,
			"long-term":      ltTokensUsed,
		},
	}, nil
}
