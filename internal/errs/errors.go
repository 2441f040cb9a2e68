// ABOUTME: Unified error type shared by every chat2db subsystem
// ABOUTME: Maps completion, database, storage and input failures onto a small set of kinds
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no such user, document or schema entry
	ErrKindConnectionFailed         // database unreachable or login failed
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // a SQL batch failed while executing
	ErrKindInvalidInput             // bad arguments from the operator
	ErrKindInvalidState             // workflow step not allowed from the current state
	ErrKindUpstream                 // completion or embedding service error
	ErrKindPersistence              // durable memory could not be written
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindInvalidState:
		return "invalid_state"
	case ErrKindUpstream:
		return "upstream"
	case ErrKindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across chat2db.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsNotFound reports whether err represents a missing entity.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a SQL execution failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsInvalidState reports whether err is a rejected workflow transition.
func IsInvalidState(err error) bool {
	return KindOf(err) == ErrKindInvalidState
}

// IsUpstream reports whether err came from the completion or embedding service.
func IsUpstream(err error) bool {
	return KindOf(err) == ErrKindUpstream
}

// IsPersistence reports whether err is a durable-write failure.
func IsPersistence(err error) bool {
	return KindOf(err) == ErrKindPersistence
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
