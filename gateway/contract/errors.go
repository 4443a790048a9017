package contract

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Client-input class.
	ErrInvalidRequest   = errors.New("invalid chat request")
	ErrMissingParameter = errors.New("missing required parameter")

	// Classification class.
	ErrUnclassifiableIntent   = errors.New("intent cannot be classified")
	ErrIntentCategoryMismatch = errors.New("intent is incompatible with category")

	// Backend class.
	ErrBackendTimeout   = errors.New("backend call timed out")
	ErrBackendExecution = errors.New("backend execution failed")

	// ErrTransient marks a backend failure as retryable. Backends opt in by
	// wrapping it; the dispatcher never retries anything else.
	ErrTransient = errors.New("transient backend failure")
)

// IsClientError reports whether the failure stems from caller-supplied data
// and should surface as a 4xx-equivalent.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrMissingParameter) ||
		errors.Is(err, ErrUnclassifiableIntent) ||
		errors.Is(err, ErrIntentCategoryMismatch)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// TimeoutError reports a backend call that exceeded the dispatch bound. It
// carries the intent attempted and the elapsed duration so callers can tell
// "slow" from "broken".
type TimeoutError struct {
	Intent  Intent
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s backend timed out after %s", e.Intent, e.Elapsed)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrBackendTimeout
}

// ExecutionError wraps a backend-raised failure, preserving the original
// error as a cause without leaking backend internals into the message.
type ExecutionError struct {
	Intent Intent
	Cause  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s backend failed", e.Intent)
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrBackendExecution
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// RequestError attaches the request's trace id to any failure so that even
// pre-dispatch errors remain correlatable.
type RequestError struct {
	TraceID string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: %v", e.TraceID, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// TraceID extracts the trace id from an error chain, if present.
func TraceID(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.TraceID
	}
	return ""
}
