package types

import "fmt"

// ErrorCode enumerates the fixed error taxonomy the core surfaces to
// callers. Every user-visible failure carries exactly one of these codes.
type ErrorCode string

const (
	ErrNotFound         ErrorCode = "not-found"
	ErrValidation       ErrorCode = "validation-error"
	ErrSecurityViolation ErrorCode = "security-violation"
	ErrTransientStore   ErrorCode = "transient-store"
	ErrTimeout          ErrorCode = "timeout"
	ErrUpstreamModel    ErrorCode = "upstream-model"
	ErrInternal         ErrorCode = "internal"
)

// CoreError is the stable error object returned to callers: {code,
// message, hint?}. For security-violation the message enumerates the
// detected pattern categories and Hint advises storing a reference rather
// than the secret. No CoreError ever carries PII; Message and Hint are
// structural descriptions only.
type CoreError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Hint    string    `json:"hint,omitempty"`

	// Patterns carries the matched pattern names for security-violation
	// errors. Empty for every other code.
	Patterns []string `json:"patterns,omitempty"`
}

func (e *CoreError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError constructs a CoreError with the given code and message.
func NewError(code ErrorCode, message string) *CoreError {
	return &CoreError{Code: code, Message: message}
}

// NewErrorf constructs a CoreError with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...interface{}) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithHint returns a copy of the error with Hint set.
func (e *CoreError) WithHint(hint string) *CoreError {
	cp := *e
	cp.Hint = hint
	return &cp
}

// WithPatterns returns a copy of the error with Patterns set. Used by the
// security validator to attach the list of matched pattern names.
func (e *CoreError) WithPatterns(patterns []string) *CoreError {
	cp := *e
	cp.Patterns = patterns
	return &cp
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) a *CoreError,
// otherwise returns ErrInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if ce, ok := err.(*CoreError); ok {
		return ce.Code
	}
	return ErrInternal
}
