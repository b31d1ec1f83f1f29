// Package apperr carries the error taxonomy shared by REST handlers and the
// realtime transport, so both surfaces report the same codes.
package apperr

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/veroa/veroa-api/internal/pkg/response"
)

// Kind groups errors by how they surface to callers
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindTimeout
	KindUpstream
	KindUnavailable
)

const (
	sqlStateUniqueViolation = "23505"
	// class 22: numeric overflow, invalid text representation and the like
	sqlClassDataException = "22"
)

var devMode atomic.Bool

// SetDevelopment toggles whether internal error details reach clients.
func SetDevelopment(enabled bool) {
	devMode.Store(enabled)
}

// Error is a classified application error. Sentinel values are compared by
// identity with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// New creates a classified error
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors that were wrapped through Wrap.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && e.Err != nil
}

// Wrap attaches a cause to a sentinel, keeping its classification.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: sentinel.Message, Err: cause}
}

// Status maps a kind to its HTTP status code
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Classify returns the status, code and client-facing message for err.
func Classify(err error) (int, string, string) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return Status(appErr.Kind), appErr.Code, appErr.Message
	}
	if IsUniqueViolation(err) {
		return http.StatusConflict, "CONFLICT", "Resource already exists"
	}
	if isDataException(err) {
		return http.StatusBadRequest, "INVALID_VALUE", "Value is out of range or malformed"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "TIMEOUT", "Operation timed out"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"
}

// IsUniqueViolation reports whether err is a PostgreSQL unique violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == sqlStateUniqueViolation
}

func isDataException(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code.Class()) == sqlClassDataException
}

// Write sends err through the response envelope. 5xx errors are logged;
// their cause is only exposed in development.
func Write(w http.ResponseWriter, err error) {
	status, code, message := Classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("error_code", code).Int("status_code", status).Msg("Request error")
		if devMode.Load() {
			response.ErrorWithDetails(w, status, code, message, map[string]string{"cause": err.Error()})
			return
		}
	}
	response.Error(w, status, code, message)
}
