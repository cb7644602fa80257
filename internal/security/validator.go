// Package security implements the pre-storage content validator: a
// pattern-based check that rejects content containing credentials, API
// keys, tokens, or other secrets before it reaches long-term or working
// memory.
package security

import (
	"regexp"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// pattern is one named regular expression in the fixed detection table.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// patterns is the fixed set of regular expressions checked on every write.
// Grouped by the provider or secret shape they detect; names are surfaced
// verbatim in security-violation errors.
var patterns = []pattern{
	{"openai_api_key", regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
	{"openai_project_key", regexp.MustCompile(`sk-proj-[A-Za-z0-9_-]{20,}`)},
	{"github_token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`)},
	{"aws_access_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"google_api_key", regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)},
	{"slack_token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`)},
	{"stripe_key", regexp.MustCompile(`(sk|pk)_(live|test)_[A-Za-z0-9]{20,}`)},
	{"bearer_token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"password_assignment", regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"]{4,}['"]?`)},
	{"secret_assignment", regexp.MustCompile(`(?i)(secret|api[_-]?key|access[_-]?token|client[_-]?secret)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`)},
	{"db_connection_string", regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb(\+srv)?|redis):\/\/[^:\s]+:[^@\s]+@[^\s]+`)},
	{"pem_private_key", regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----`)},
}

// Check runs content through the fixed pattern table. A nil return means
// no credential-shaped content was found. A non-nil return is always a
// *types.CoreError with code security-violation, carrying every matched
// pattern name — never just the first.
func Check(content string) error {
	var matched []string
	for _, p := range patterns {
		if p.re.MatchString(content) {
			matched = append(matched, p.name)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return types.NewErrorf(types.ErrSecurityViolation,
		"content matched %d credential pattern(s): %v", len(matched), matched).
		WithHint("store a reference to the secret (e.g. its location in a vault) instead of the secret itself").
		WithPatterns(matched)
}

// PatternNames returns the names of every pattern in the fixed detection
// table, in table order. Exposed for diagnostics and tests, never used to
// drive detection logic itself.
func PatternNames() []string {
	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = p.name
	}
	return names
}
