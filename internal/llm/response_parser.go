package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/taxonomy"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// ClassificationResult is Classify's parsed output (spec §4.2): the
// category/subtype pair, an importance score, zero or more "type:name"
// entity strings, whether the content is temporal, and an optional summary.
type ClassificationResult struct {
	Category   types.MemoryCategory `json:"category"`
	Subtype    string                `json:"subtype"`
	Importance float64               `json:"importance"`
	Entities   []string              `json:"entities"`
	IsTemporal bool                  `json:"is_temporal"`
	Summary    *string               `json:"summary,omitempty"`
}

// classificationWire is the strict JSON shape the chat endpoint is
// instructed to return for a classification prompt.
type classificationWire struct {
	Category   string   `json:"category"`
	Subtype    string   `json:"subtype"`
	Importance float64  `json:"importance"`
	Entities   []string `json:"entities"`
	IsTemporal bool     `json:"is_temporal"`
	Summary    *string  `json:"summary,omitempty"`
}

// DefaultClassification is the fallback Classify returns when the model's
// response fails to parse or names an illegal category/subtype pair:
// (semantic, domain, importance=0.5, entities=[], is-temporal=false,
// summary=nil).
func DefaultClassification() ClassificationResult {
	return ClassificationResult{
		Category:   types.CategorySemantic,
		Subtype:    "domain",
		Importance: 0.5,
		Entities:   []string{},
		IsTemporal: false,
	}
}

// ParseClassificationResponse parses the chat endpoint's raw text into a
// ClassificationResult. Any parse failure or taxonomy violation is reported
// via the error return; the caller (the Model Gateway) is responsible for
// substituting DefaultClassification and logging at warn level, per the
// recovered-failure policy for Classify.
func ParseClassificationResponse(raw string) (ClassificationResult, error) {
	clean := extractJSON(raw)

	var wire classificationWire
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return ClassificationResult{}, fmt.Errorf("llm: parse classification json: %w", err)
	}

	category := types.MemoryCategory(wire.Category)
	if !taxonomy.ValidSubtype(category, wire.Subtype) {
		return ClassificationResult{}, fmt.Errorf("llm: illegal category/subtype pair %q/%q", wire.Category, wire.Subtype)
	}
	if wire.Importance < 0 || wire.Importance > 1 {
		return ClassificationResult{}, fmt.Errorf("llm: importance %v out of [0,1]", wire.Importance)
	}

	entities := wire.Entities
	if entities == nil {
		entities = []string{}
	}
	return ClassificationResult{
		Category:   category,
		Subtype:    wire.Subtype,
		Importance: wire.Importance,
		Entities:   entities,
		IsTemporal: wire.IsTemporal,
		Summary:    wire.Summary,
	}, nil
}

// entityExtractionWire is the strict JSON shape the chat endpoint is
// instructed to return for an entity-extraction prompt.
type entityExtractionWire struct {
	Entities []string `json:"entities"`
}

// ParseEntityExtractionResponse parses ExtractEntities' raw text into a
// list of "type:name" strings. Returns an empty, non-nil list on parse
// failure, matching ExtractEntities' own "empty list on parse failure"
// contract, so callers never need a separate fallback branch.
func ParseEntityExtractionResponse(raw string) []string {
	clean := extractJSON(raw)

	var wire entityExtractionWire
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return []string{}
	}
	if wire.Entities == nil {
		return []string{}
	}
	return wire.Entities
}

// ParseIntentResponse parses DetectIntent's raw text (a single word) into
// one of the five fixed taxonomy.Intent values. Falls back to
// taxonomy.IntentGeneral on any ambiguity: unrecognized word, empty
// response, or multiple tokens.
func ParseIntentResponse(raw string) taxonomy.Intent {
	word := strings.ToLower(strings.TrimSpace(raw))
	word = strings.Trim(word, ".\"'")
	if fields := strings.Fields(word); len(fields) == 1 {
		word = fields[0]
	} else if len(fields) > 1 {
		return taxonomy.IntentGeneral
	}

	intent := taxonomy.Intent(word)
	if taxonomy.ValidIntent(intent) {
		return intent
	}
	return taxonomy.IntentGeneral
}

// extractJSON extracts the first complete top-level JSON object from text
// that may carry markdown code fences or surrounding prose despite the
// chat endpoint being instructed to return strict JSON.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		switch {
		case c == '\\':
			escape = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text
}
