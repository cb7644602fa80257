package engine

import (
	"context"
	"testing"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/taxonomy"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

func newTestContextAssembler(t *testing.T, text *fakeTextGenerator) (*ContextAssembler, *WorkingMemoryManager, *LongTermMemoryManager) {
	t.Helper()
	gw := newTestGateway(t)
	if text == nil {
		text = &fakeTextGenerator{}
	}
	model := newTestModelGateway(text)
	lt := NewLongTermMemoryManager(gw, model, defaultWeights())
	wm := NewWorkingMemoryManager(gw, lt, 8000)
	ca := NewContextAssembler(wm, lt, model, gw)
	return ca, wm, lt
}

func TestGetRelevantContextHonorsIntentHintAndWorkingMemoryShare(t *testing.T) {
	ca, wm, _ := newTestContextAssembler(t, nil)
	ctx := context.Background()
	sessionID := "sess-ctx"
	userID := "user-ctx"

	if _, err := wm.AppendItem(ctx, sessionID, userID, types.ContentMessage, "the user is debugging a crash in the payment worker", false, 0.8); err != nil {
		t.Fatalf("append: %v", err)
	}

	intent := taxonomy.IntentDebug
	result, err := ca.GetRelevantContext(ctx, sessionID, userID, "why is this crashing", 1000, &intent, nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}
	if result.Intent != taxonomy.IntentDebug {
		t.Errorf("got intent %q, want debug (explicit hint)", result.Intent)
	}
	if len(result.Items) == 0 {
		t.Error("expected at least the working-memory item in the result")
	}
	if result.SourceBreakdown["working-memory"] == 0 {
		t.Error("expected a nonzero working-memory share in the source breakdown")
	}
}

func TestGetRelevantContextDetectsIntentWhenNoHintGiven(t *testing.T) {
	ca, _, _ := newTestContextAssembler(t, &fakeTextGenerator{response: "how-to"})
	result, err := ca.GetRelevantContext(context.Background(), "sess-detect", "user-detect", "how do I add a field to the users table?", 1000, nil, nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}
	if result.Intent != taxonomy.IntentHowTo {
		t.Errorf("got intent %q, want how-to (detected via model)", result.Intent)
	}
}

func TestGetRelevantContextIgnoresInvalidIntentHint(t *testing.T) {
	ca, _, _ := newTestContextAssembler(t, &fakeTextGenerator{response: "general"})
	bogus := taxonomy.Intent("not-a-real-intent")
	result, err := ca.GetRelevantContext(context.Background(), "sess-bogus", "user-bogus", "some query", 1000, &bogus, nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}
	if result.Intent != taxonomy.IntentGeneral {
		t.Errorf("got intent %q, want general (invalid hint falls through to detection)", result.Intent)
	}
}

func TestGetRelevantContextRetrievesLongTermMatches(t *testing.T) {
	ca, _, lt := newTestContextAssembler(t, nil)
	ctx := context.Background()
	userID := "user-ltctx"

	if _, err := lt.Store(ctx, userID, "deploying requires running the migration workflow first", StoreHints{
		Category: categoryPtr(types.CategoryProcedural),
		Subtype:  stringPtr("workflow"),
	}); err != nil {
		t.Fatalf("seed long-term memory: %v", err)
	}

	intent := taxonomy.IntentHowTo
	result, err := ca.GetRelevantContext(ctx, "sess-lt", userID, "deploying requires running the migration workflow first", 1000, &intent, nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}

	foundLongTerm := false
	for _, item := range result.Items {
		if item.Source == "long-term" {
			foundLongTerm = true
		}
	}
	if !foundLongTerm {
		t.Errorf("expected a long-term item in the result, got %+v", result.Items)
	}
}

func TestGetRelevantContextAppliesEntityBoost(t *testing.T) {
	ca, _, lt := newTestContextAssembler(t, nil)
	ctx := context.Background()
	userID := "user-entity"

	if _, err := lt.Store(ctx, userID, "the checkout service depends on the payments gateway", StoreHints{
		Category:   categoryPtr(types.CategorySemantic),
		Subtype:    stringPtr("entity"),
		Entities:   []string{"service:checkout", "service:payments"},
		Importance: float64Ptr(0.5),
	}); err != nil {
		t.Fatalf("seed memory: %v", err)
	}

	intent := taxonomy.IntentWhatIs
	withBoost, err := ca.GetRelevantContext(ctx, "sess-boost", userID, "the checkout service depends on the payments gateway", 1000, &intent, []string{"service:checkout"})
	if err != nil {
		t.Fatalf("get relevant context with focus entities: %v", err)
	}
	withoutBoost, err := ca.GetRelevantContext(ctx, "sess-noboost", userID, "the checkout service depends on the payments gateway", 1000, &intent, nil)
	if err != nil {
		t.Fatalf("get relevant context without focus entities: %v", err)
	}

	var scoreWithBoost, scoreWithoutBoost float64
	for _, item := range withBoost.Items {
		if item.Source == "long-term" {
			scoreWithBoost = item.Score
		}
	}
	for _, item := range withoutBoost.Items {
		if item.Source == "long-term" {
			scoreWithoutBoost = item.Score
		}
	}
	if scoreWithBoost <= scoreWithoutBoost {
		t.Errorf("got boosted score %v, unboosted score %v; expected boosted > unboosted", scoreWithBoost, scoreWithoutBoost)
	}
}

func TestGetRelevantContextBudgetUsedPercentIsComputed(t *testing.T) {
	ca, wm, _ := newTestContextAssembler(t, nil)
	ctx := context.Background()
	sessionID := "sess-percent"
	userID := "user-percent"

	if _, err := wm.AppendItem(ctx, sessionID, userID, types.ContentMessage, "some message content", false, 0.5); err != nil {
		t.Fatalf("append: %v", err)
	}

	result, err := ca.GetRelevantContext(ctx, sessionID, userID, "some message content", 100, nil, nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}
	if result.BudgetUsedPercent <= 0 || result.BudgetUsedPercent > 100 {
		t.Errorf("got budget used percent %v, want in (0, 100]", result.BudgetUsedPercent)
	}
}
