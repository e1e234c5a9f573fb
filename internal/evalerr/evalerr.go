// Package evalerr classifies evaluation failures into the stable kinds
// callers are expected to branch on.
package evalerr

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class. The string value is the stable code
// exposed to callers; transport status mapping happens outside the core.
type Kind string

const (
	// KindTimeout marks a generation call that ran out of time. Retryable.
	KindTimeout Kind = "llm_timeout"
	// KindUnavailable marks an unreachable or overloaded generation
	// backend, including rate-limit responses. Retryable.
	KindUnavailable Kind = "llm_service_unavailable"
	// KindParseFailed marks a generation response that could not be parsed
	// or failed schema validation. Retrying without a prompt or schema
	// change will not help.
	KindParseFailed Kind = "llm_response_parse_failed"
	// KindGenerationFailed wraps any stage failure that carries no more
	// specific kind.
	KindGenerationFailed Kind = "feedback_generation_failed"
)

// Error pairs a failure kind with its cause. The cause is kept for
// diagnostics and stays reachable through errors.Is/As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}

	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind. A nil err is allowed when the kind
// alone says enough.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf wraps a formatted message with the given kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind carried anywhere in err's chain. The second
// return is false when the chain holds no classified error.
func KindOf(err error) (Kind, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind, true
	}

	return "", false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	got, ok := KindOf(err)

	return ok && got == kind
}
