package llm

import (
	"strings"
	"testing"
)

func TestCategorySubtypeDirectiveListsEveryFixedCategory(t *testing.T) {
	directive := categorySubtypeDirective()
	for _, want := range []string{"episodic", "semantic", "procedural", "preference"} {
		if !strings.Contains(directive, want) {
			t.Errorf("directive missing category %q: %s", want, directive)
		}
	}
}

func TestClassificationPromptEmbedsContentAndTaxonomy(t *testing.T) {
	prompt := ClassificationPrompt("the user prefers dark mode", "")
	if !strings.Contains(prompt, "the user prefers dark mode") {
		t.Error("prompt should embed the content to classify")
	}
	if !strings.Contains(prompt, "episodic") || !strings.Contains(prompt, "preference") {
		t.Error("prompt should embed the fixed category table")
	}
	if strings.Contains(prompt, "CONTEXT:") {
		t.Error("prompt should omit the context block when context is blank")
	}
}

func TestClassificationPromptIncludesContextWhenPresent(t *testing.T) {
	prompt := ClassificationPrompt("some content", "earlier turns of the conversation")
	if !strings.Contains(prompt, "CONTEXT:") {
		t.Error("prompt should include a CONTEXT block when context is non-blank")
	}
	if !strings.Contains(prompt, "earlier turns of the conversation") {
		t.Error("prompt should embed the supplied context")
	}
}

func TestEntityExtractionPromptEmbedsText(t *testing.T) {
	prompt := EntityExtractionPrompt("Alice met Bob at Acme Corp")
	if !strings.Contains(prompt, "Alice met Bob at Acme Corp") {
		t.Error("prompt should embed the text to extract entities from")
	}
}

func TestIntentDetectionPromptListsAllFiveIntents(t *testing.T) {
	prompt := IntentDetectionPrompt("why is this failing?")
	for _, want := range []string{"how-to", "what-happened", "what-is", "debug", "general"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing intent %q", want)
		}
	}
	if !strings.Contains(prompt, "why is this failing?") {
		t.Error("prompt should embed the query")
	}
}
