package types

import (
	"errors"
	"testing"
)

func TestNewErrorfFormatsMessage(t *testing.T) {
	err := NewErrorf(ErrValidation, "expected %d, got %d", 1, 2)
	if err.Message != "expected 1, got 2" {
		t.Errorf("got message %q, want formatted", err.Message)
	}
	if err.Code != ErrValidation {
		t.Errorf("got code %q, want %q", err.Code, ErrValidation)
	}
}

func TestWithHintAndWithPatternsDoNotMutateTheOriginal(t *testing.T) {
	base := NewError(ErrSecurityViolation, "matched")
	withHint := base.WithHint("store a reference instead")
	withPatterns := withHint.WithPatterns([]string{"aws_access_key"})

	if base.Hint != "" || base.Patterns != nil {
		t.Errorf("base error was mutated: %+v", base)
	}
	if withHint.Patterns != nil {
		t.Errorf("WithHint's result should not have picked up Patterns: %+v", withHint)
	}
	if withPatterns.Hint != "store a reference instead" {
		t.Errorf("got hint %q, want it carried over from WithHint", withPatterns.Hint)
	}
	if len(withPatterns.Patterns) != 1 || withPatterns.Patterns[0] != "aws_access_key" {
		t.Errorf("got patterns %v, want [aws_access_key]", withPatterns.Patterns)
	}
}

func TestErrorStringIncludesHintOnlyWhenSet(t *testing.T) {
	noHint := NewError(ErrNotFound, "missing")
	if got := noHint.Error(); got != "not-found: missing" {
		t.Errorf("got %q, want %q", got, "not-found: missing")
	}
	withHint := noHint.WithHint("check the ID")
	if got := withHint.Error(); got != "not-found: missing (check the ID)" {
		t.Errorf("got %q, want the hint appended in parens", got)
	}
}

func TestCodeOfExtractsCodeFromCoreError(t *testing.T) {
	err := NewError(ErrTimeout, "deadline elapsed")
	if got := CodeOf(err); got != ErrTimeout {
		t.Errorf("got %q, want %q", got, ErrTimeout)
	}
}

func TestCodeOfFallsBackToInternalForOtherErrors(t *testing.T) {
	if got := CodeOf(errors.New("something else")); got != ErrInternal {
		t.Errorf("got %q, want %q for a non-CoreError", got, ErrInternal)
	}
}

func TestCodeOfReturnsEmptyForNilError(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Errorf("got %q, want empty string for a nil error", got)
	}
}
