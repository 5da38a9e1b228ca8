// Package syncerr defines the error taxonomy shared across the sync gateway.
// Components surface the narrowest Kind they can identify; the HTTP boundary
// maps Kind to a status code in one place (see httpapi.StatusFor).
package syncerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindVersionMismatch Kind = "version_mismatch"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindRateLimited    Kind = "rate_limited"
	KindUpstream       Kind = "upstream_failure"
	KindTimeout        Kind = "timeout"
	KindInternal       Kind = "internal"
	KindSchemaMismatch Kind = "schema_mismatch"
	KindNetwork        Kind = "network"
	KindCancelled      Kind = "cancelled"
	KindDropped        Kind = "dropped"
)

// Error is the taxonomy carrier. It wraps an underlying cause without losing it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err
// is not (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether a failure of this kind should be retried by C2.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUpstream, KindRateLimited, KindTimeout, KindNetwork:
		return true
	default:
		return false
	}
}
