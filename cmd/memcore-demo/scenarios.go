package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/engine"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

type scenarioResult struct {
	name string
	err  error
}

// runScenarios exercises the six concrete scenarios end to end against a
// freshly constructed core, one user/session per scenario so they don't
// interfere with each other.
func runScenarios(ctx context.Context, core *engine.Core) []scenarioResult {
	scenarios := []struct {
		name string
		fn   func(context.Context, *engine.Core) error
	}{
		{"S1 dedup", scenarioDedup},
		{"S2 eviction with promotion", scenarioEvictionWithPromotion},
		{"S3 intent routing", scenarioIntentRouting},
		{"S4 security block", scenarioSecurityBlock},
		{"S5 supersession", scenarioSupersession},
		{"S6 cross-user isolation", scenarioCrossUserIsolation},
	}

	results := make([]scenarioResult, 0, len(scenarios))
	for _, s := range scenarios {
		results = append(results, scenarioResult{name: s.name, err: s.fn(ctx, core)})
	}
	return results
}

func scenarioDedup(ctx context.Context, core *engine.Core) error {
	const user = "s1-user"
	const content = "Project uses PostgreSQL 15"

	first, err := core.StoreMemory(ctx, user, content, engine.StoreHints{})
	if err != nil {
		return fmt.Errorf("first store: %w", err)
	}
	if first.Action != "inserted" {
		return fmt.Errorf("expected first store to insert, got action %q", first.Action)
	}

	second, err := core.StoreMemory(ctx, user, content, engine.StoreHints{})
	if err != nil {
		return fmt.Errorf("second store: %w", err)
	}
	if second.Action != "merged-with-existing" {
		return fmt.Errorf("expected second store to merge, got action %q", second.Action)
	}
	if second.MemoryID != first.MemoryID {
		return fmt.Errorf("merged memory id %q does not match original %q", second.MemoryID, first.MemoryID)
	}

	recalled, err := core.RecallMemories(ctx, user, "s1-session", "postgres", emptyFilter(), 10, 0)
	if err != nil {
		return fmt.Errorf("recall: %w", err)
	}
	if len(recalled) != 1 {
		return fmt.Errorf("expected exactly one recalled memory, got %d", len(recalled))
	}
	return nil
}

// tokensOf returns content whose estimateTokens value is exactly n: four
// characters per token with no remainder.
func tokensOf(n int) string {
	return strings.Repeat("x", 4*n)
}

func scenarioEvictionWithPromotion(ctx context.Context, core *engine.Core) error {
	const user = "s2-user"
	const session = "s2-session"

	// Capacity sized so the first three 40-token items fit exactly; the
	// fourth forces eviction.
	if _, err := core.InitSession(ctx, session, user, 120); err != nil {
		return fmt.Errorf("init session: %w", err)
	}

	item1, err := core.AddToWorkingMemory(ctx, session, user, types.ContentMessage, tokensOf(40), false, 0.2)
	if err != nil {
		return fmt.Errorf("append item1: %w", err)
	}
	if _, err := core.AddToWorkingMemory(ctx, session, user, types.ContentMessage, tokensOf(40), true, 0.9); err != nil {
		return fmt.Errorf("append item2: %w", err)
	}
	if _, err := core.AddToWorkingMemory(ctx, session, user, types.ContentMessage, tokensOf(40), false, 0.3); err != nil {
		return fmt.Errorf("append item3: %w", err)
	}
	if _, err := core.AddToWorkingMemory(ctx, session, user, types.ContentMessage, tokensOf(40), false, 0.5); err != nil {
		return fmt.Errorf("append item4: %w", err)
	}

	items, err := core.GetWorkingMemory(ctx, session, 1_000_000)
	if err != nil {
		return fmt.Errorf("get working memory: %w", err)
	}
	var sawPinned, sawEvicted bool
	var total int
	for _, it := range items {
		total += it.TokenCount
		if it.Pinned {
			sawPinned = true
		}
		if it.ID == item1.ID {
			sawEvicted = true
		}
	}
	if !sawPinned {
		return errors.New("pinned item was evicted")
	}
	if sawEvicted {
		return errors.New("expected lowest-priority item to be evicted, but it is still present")
	}
	if total > 120 {
		return fmt.Errorf("session token total %d exceeds capacity 120", total)
	}
	return nil
}

func scenarioIntentRouting(ctx context.Context, core *engine.Core) error {
	const user = "s3-user"
	const session = "s3-session"

	if _, err := core.InitSession(ctx, session, user, 8000); err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	if _, err := core.StoreMemory(ctx, user, "Run `make migrate` then edit schema.sql to add the column, then regenerate models.", engine.StoreHints{
		Category: catPtr(types.CategoryProcedural),
		Subtype:  strPtr("workflow"),
	}); err != nil {
		return fmt.Errorf("seed memory: %w", err)
	}

	result, err := core.GetRelevantContext(ctx, session, user, "How do I add a field to the users table?", 2000, nil, nil)
	if err != nil {
		return fmt.Errorf("get relevant context: %w", err)
	}
	if result.Intent != "how-to" {
		return fmt.Errorf("expected intent how-to, got %q", result.Intent)
	}

	var sawWorkflowOrPattern bool
	for _, item := range result.Items {
		if item.Source == "long-term" && item.Category == "procedural" && (item.Subtype == "workflow" || item.Subtype == "pattern") {
			sawWorkflowOrPattern = true
		}
	}
	if !sawWorkflowOrPattern {
		return errors.New("expected at least one procedural.workflow or procedural.pattern item")
	}
	return nil
}

func scenarioSecurityBlock(ctx context.Context, core *engine.Core) error {
	const user = "s4-user"

	_, err := core.StoreMemory(ctx, user, "OPENAI_API_KEY=sk-abc123def456ghi789jkl012mno345pqr678stu901", engine.StoreHints{})
	var coreErr *types.CoreError
	if !errors.As(err, &coreErr) || coreErr.Code != types.ErrSecurityViolation {
		return fmt.Errorf("expected security-violation, got %v", err)
	}

	recalled, err := core.RecallMemories(ctx, user, "s4-session", "OPENAI_API_KEY", emptyFilter(), 10, 0)
	if err != nil {
		return fmt.Errorf("recall: %w", err)
	}
	if len(recalled) != 0 {
		return fmt.Errorf("expected zero matches after blocked store, got %d", len(recalled))
	}
	return nil
}

func scenarioSupersession(ctx context.Context, core *engine.Core) error {
	const user = "s5-user"

	m1, err := core.StoreMemory(ctx, user, "We use Redis for session caching", engine.StoreHints{})
	if err != nil {
		return fmt.Errorf("store m1: %w", err)
	}
	m2, err := core.StoreMemory(ctx, user, "We migrated off Redis; sessions are now cached in Postgres with pg_bouncer", engine.StoreHints{})
	if err != nil {
		return fmt.Errorf("store m2: %w", err)
	}

	if err := core.Supersede(ctx, m1.MemoryID, m2.MemoryID, "demo"); err != nil {
		return fmt.Errorf("supersede: %w", err)
	}

	recalled, err := core.RecallMemories(ctx, user, "s5-session", "Redis", emptyFilter(), 10, -1)
	if err != nil {
		return fmt.Errorf("recall: %w", err)
	}
	for _, r := range recalled {
		if r.Memory.ID == m1.MemoryID {
			return errors.New("superseded memory m1 was still returned by recall")
		}
	}
	return nil
}

func scenarioCrossUserIsolation(ctx context.Context, core *engine.Core) error {
	const userA, userB = "s6-user-a", "s6-user-b"

	if _, err := core.StoreMemory(ctx, userA, "X", engine.StoreHints{}); err != nil {
		return fmt.Errorf("store for user A: %w", err)
	}

	recalled, err := core.RecallMemories(ctx, userB, "s6-session", "X", emptyFilter(), 10, -1)
	if err != nil {
		return fmt.Errorf("recall for user B: %w", err)
	}
	if len(recalled) != 0 {
		return fmt.Errorf("expected zero rows for user B, got %d", len(recalled))
	}
	return nil
}
