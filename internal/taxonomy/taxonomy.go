// Package taxonomy holds the fixed category/subtype table and the
// intent-to-weight retrieval profiles used by the context assembler.
// Everything in this package is compile-time data: there is no
// constructor, no I/O, and no mutable state.
package taxonomy

import "github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"

// Intent is the fixed set of query intents the model gateway's
// DetectIntent classifies a query into.
type Intent string

const (
	IntentHowTo        Intent = "how-to"
	IntentWhatHappened Intent = "what-happened"
	IntentWhatIs       Intent = "what-is"
	IntentDebug        Intent = "debug"
	IntentGeneral      Intent = "general"
)

// WorkingMemoryKey is the pseudo category.subtype key used inside a
// weight profile to refer to the working-memory allocation rather than a
// long-term category/subtype pair.
const WorkingMemoryKey = "working-memory"

// categorySubtypes is the fixed category -> valid subtypes table.
var categorySubtypes = map[types.MemoryCategory][]string{
	types.CategoryEpisodic:   {"event", "decision", "conversation", "outcome"},
	types.CategorySemantic:   {"user", "project", "environment", "domain", "entity"},
	types.CategoryProcedural: {"workflow", "pattern", "tool-usage", "debugging"},
	types.CategoryPreference: {"communication", "style", "tools", "boundaries"},
}

// ValidSubtype reports whether subtype is a legal subtype for category.
func ValidSubtype(category types.MemoryCategory, subtype string) bool {
	subtypes, ok := categorySubtypes[category]
	if !ok {
		return false
	}
	for _, s := range subtypes {
		if s == subtype {
			return true
		}
	}
	return false
}

// Subtypes returns the valid subtypes for category, or nil if category is
// not one of the four fixed categories.
func Subtypes(category types.MemoryCategory) []string {
	return categorySubtypes[category]
}

// Categories returns the four fixed categories in a stable order.
func Categories() []types.MemoryCategory {
	return []types.MemoryCategory{
		types.CategoryEpisodic,
		types.CategorySemantic,
		types.CategoryProcedural,
		types.CategoryPreference,
	}
}

// AllKeys returns every "<category>.<subtype>" key across the fixed
// taxonomy, in a stable order. Used to enumerate the full weight-profile
// key space when building a context-assembly plan.
func AllKeys() []string {
	var keys []string
	for _, cat := range Categories() {
		for _, sub := range categorySubtypes[cat] {
			keys = append(keys, string(cat)+"."+sub)
		}
	}
	return keys
}

// intentWeights maps each intent to a weight profile over
// {working-memory, <category>.<subtype>, ...}. Each profile sums to
// approximately 1.0.
var intentWeights = map[Intent]map[string]float64{
	IntentHowTo: {
		WorkingMemoryKey:      0.25,
		"procedural.workflow": 0.25,
		"procedural.pattern":  0.15,
		"semantic.project":    0.15,
		"semantic.entity":     0.10,
		"preference.style":    0.05,
		"episodic.decision":   0.05,
	},
	IntentWhatHappened: {
		WorkingMemoryKey:        0.20,
		"episodic.decision":     0.30,
		"episodic.event":        0.20,
		"episodic.outcome":      0.15,
		"semantic.project":      0.10,
		"episodic.conversation": 0.05,
	},
	IntentWhatIs: {
		WorkingMemoryKey:      0.20,
		"semantic.entity":     0.30,
		"semantic.project":    0.20,
		"semantic.domain":     0.15,
		"semantic.environment": 0.10,
		"episodic.decision":   0.05,
	},
	IntentDebug: {
		WorkingMemoryKey:         0.30,
		"procedural.debugging":  0.25,
		"episodic.outcome":      0.20,
		"semantic.environment":  0.10,
		"semantic.entity":       0.10,
		"preference.tools":      0.05,
	},
	IntentGeneral: {
		WorkingMemoryKey:           0.35,
		"semantic.project":         0.15,
		"episodic.decision":        0.15,
		"semantic.entity":          0.10,
		"procedural.workflow":      0.10,
		"preference.communication": 0.10,
		"semantic.user":            0.05,
	},
}

// ValidIntent reports whether intent is one of the five fixed intents.
func ValidIntent(intent Intent) bool {
	_, ok := intentWeights[intent]
	return ok
}

// RetrievalWeights returns the weight profile for intent. Falls back to
// the general profile for an unrecognized intent, since DetectIntent's own
// fallback is always general and this keeps the lookup total.
func RetrievalWeights(intent Intent) map[string]float64 {
	if w, ok := intentWeights[intent]; ok {
		return w
	}
	return intentWeights[IntentGeneral]
}

// WorkingMemoryWeight returns the working-memory share of intent's
// profile.
func WorkingMemoryWeight(intent Intent) float64 {
	return RetrievalWeights(intent)[WorkingMemoryKey]
}

// LongTermWeights returns intent's profile with the working-memory key
// removed, leaving only the <category>.<subtype> keys with weight > 0.
func LongTermWeights(intent Intent) map[string]float64 {
	full := RetrievalWeights(intent)
	out := make(map[string]float64, len(full))
	for k, v := range full {
		if k == WorkingMemoryKey {
			continue
		}
		out[k] = v
	}
	return out
}
