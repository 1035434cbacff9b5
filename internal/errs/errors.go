package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it,
// most importantly the HTTP layer when picking a status code.
type Kind int

const (
	// KindUnknown is the zero value; treated as a store failure.
	KindUnknown Kind = iota
	// KindValidation marks malformed input: bad identifiers, empty or
	// over-length text, self-follow.
	KindValidation
	// KindNotFound marks a missing or soft-deleted target entity.
	KindNotFound
	// KindForbidden marks an authorization violation.
	KindForbidden
	// KindStoreUnavailable marks a persistent store failure. Fatal to the call.
	KindStoreUnavailable
	// KindCacheUnavailable marks a cache tier failure. Never fatal; callers
	// bypass the cache and continue.
	KindCacheUnavailable
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindCacheUnavailable:
		return "cache_unavailable"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by every engine operation. Raw store
// errors never cross the engine boundary; they are wrapped here.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validationf formats a validation error.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf formats a not-found error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf formats a forbidden error.
func Forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Storef wraps a persistent store failure.
func Storef(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

// Cachef wraps a cache tier failure.
func Cachef(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindCacheUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain. Errors that were never
// classified count as store failures so they surface as 5xx, not as
// silent successes.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreUnavailable
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsForbidden reports whether err is a forbidden error.
func IsForbidden(err error) bool {
	return KindOf(err) == KindForbidden
}
