// Package apperr defines the error vocabulary returned across package
// boundaries. Provider and database errors are translated into an *Error
// carrying only strings and a status, so results stay serializable.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Use errors.Is(err, apperr.ErrNotFound) to check.
var (
	ErrInvalidAccountID      = errors.New("invalid account id")
	ErrTokenRefreshFailed    = errors.New("token refresh failed")
	ErrTokenPersistFailed    = errors.New("token persist failed")
	ErrProviderRequestFailed = errors.New("provider request failed")
	ErrUnauthenticated       = errors.New("unauthenticated request")
	ErrNotFound              = errors.New("not found")
)

// Error is a classified failure. Kind is one of the sentinels above and Op
// names the operation that failed (e.g. "list", "upload", "refresh").
type Error struct {
	Kind    error
	Op      string
	Message string

	// ProviderStatus is the HTTP status returned by the storage provider,
	// zero when the failure did not come from a provider response.
	ProviderStatus int
}

// New returns an *Error of the given kind.
func New(kind error, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf is New with a formatted message.
func Newf(kind error, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%v (%s): %s", e.Kind, e.Op, e.Message)
	}

	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Status maps err to the HTTP status a route should answer with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidAccountID), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrTokenRefreshFailed):
		return http.StatusUnauthorized
	case errors.Is(err, ErrProviderRequestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Type returns a stable machine-readable name for err's kind.
func Type(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAccountID):
		return "invalid_account_id"
	case errors.Is(err, ErrTokenRefreshFailed):
		return "token_refresh_failed"
	case errors.Is(err, ErrTokenPersistFailed):
		return "token_persist_failed"
	case errors.Is(err, ErrProviderRequestFailed):
		return "provider_request_failed"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

// Message returns the human-readable part of err. Unclassified errors get a
// generic message so internal details are not echoed to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.Error()
	}
	for _, kind := range []error{ErrInvalidAccountID, ErrTokenRefreshFailed, ErrTokenPersistFailed,
		ErrProviderRequestFailed, ErrUnauthenticated, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}

	return "Internal server error"
}
