// Package llm provides the model-service clients (OpenAI-compatible,
// Anthropic, Ollama) and the strict JSON-only prompt templates and response
// parsers the Model Gateway uses to drive Classify, ExtractEntities, and
// DetectIntent.
package llm

import (
	"fmt"
	"strings"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/taxonomy"
)

// categorySubtypeDirective renders the fixed category/subtype table as a
// bulleted list for inclusion in the classification system directive.
func categorySubtypeDirective() string {
	var b strings.Builder
	for _, cat := range taxonomy.Categories() {
		fmt.Fprintf(&b, "- %s: %s\n", cat, strings.Join(taxonomy.Subtypes(cat), ", "))
	}
	return b.String()
}

// ClassificationPrompt renders the strict-JSON classification prompt for a
// single piece of content, optionally carrying caller-supplied context
// (e.g. the session's recent turns) to disambiguate category/subtype and
// temporal framing.
func ClassificationPrompt(content, context string) string {
	contextBlock := ""
	if strings.TrimSpace(context) != "" {
		contextBlock = fmt.Sprintf("\nCONTEXT:\n%s\n", context)
	}
	return fmt.Sprintf(`TASK: Classify a memory into exactly one category and subtype.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

LEGAL CATEGORIES AND SUBTYPES (choose exactly one pair):
%s
REQUIRED JSON STRUCTURE (EXACT FORMAT REQUIRED):
{
  "category": "<one of the categories above>",
  "subtype": "<one of that category's subtypes above>",
  "importance": <float 0.0-1.0>,
  "entities": ["type:name", ...],
  "is_temporal": <true|false>,
  "summary": "<one-sentence summary, or null>"
}

RULES:
1. category and subtype MUST come from the table above as a legal pair.
2. importance reflects how significant this content is to remember, 0.0-1.0.
3. entities are "type:name" strings for any people, projects, tools, or organizations named in the content.
4. is_temporal is true only if the content refers to a specific point or window in time.
5. summary is a short paraphrase, or null if the content is already short.
%s
CONTENT TO CLASSIFY:
%s`, categorySubtypeDirective(), contextBlock, content)
}

// EntityExtractionPrompt renders the strict-JSON entity-extraction prompt.
// Entities are returned as bare "type:name" strings rather than structured
// objects, matching ExtractEntities' list-of-strings contract.
func EntityExtractionPrompt(content string) string {
	return fmt.Sprintf(`TASK: Extract named entities from text.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

Each entity is a "type:name" string. type is one of: person, organization, project, tool.

REQUIRED JSON STRUCTURE:
{
  "entities": ["person:Alice", "organization:Acme Corp", "tool:Postgres"]
}

RULES:
1. Return an empty array if no entities are present.
2. Do not invent entities that are not named in the text.
3. Deduplicate exact "type:name" matches.

TEXT:
%s`, content)
}

// IntentDetectionPrompt renders the single-word intent-detection prompt.
// The model is instructed to answer with exactly one of the five fixed
// intents; ParseIntentResponse falls back to "general" for anything else.
func IntentDetectionPrompt(query string) string {
	return fmt.Sprintf(`TASK: Classify the intent of a query into exactly one word.
OUTPUT: ONLY one of these words, nothing else: how-to, what-happened, what-is, debug, general

- how-to: the query asks how to accomplish something
- what-happened: the query asks about past events or decisions
- what-is: the query asks for a definition or fact about an entity
- debug: the query is about diagnosing or fixing a problem
- general: anything else, or if ambiguous

QUERY:
%s`, query)
}
