package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
)

// Sentinel errors shared by every service. Handlers translate them into HTTP
// status codes with StatusCode.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")

	ErrCodeNotFound    = errors.New("verification code not found or expired")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrWrongCode       = errors.New("wrong verification code")

	ErrNotWhitelisted = errors.New("phone number is not registered")
	ErrUserInactive   = errors.New("user account is not active")
	ErrRateLimited    = errors.New("too many requests")
	ErrUnauthorized   = errors.New("unauthorized")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// ConflictError carries the ids of the rows that blocked a write.
type ConflictError struct {
	Message     string
	Conflicting []int64
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// Details renders the blocking ids for the error response body.
func (e *ConflictError) Details() map[string]string {
	if len(e.Conflicting) == 0 {
		return nil
	}
	ids := make([]string, len(e.Conflicting))
	for i, id := range e.Conflicting {
		ids[i] = fmt.Sprint(id)
	}
	return map[string]string{"conflictingIds": strings.Join(ids, ",")}
}

// StatusCode maps a service error onto an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrWrongCode),
		errors.Is(err, ErrCodeExpired), errors.Is(err, ErrCodeNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotWhitelisted), errors.Is(err, ErrUserInactive):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTooManyAttempts), errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Postgres SQLSTATE codes for constraint violations.
const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func pqConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
