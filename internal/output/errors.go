package output

import (
	"errors"
	"fmt"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, identifier),
		HTTPStatus: 404,
	}
}

func ErrAuth(msg string) *Error {
	return &Error{
		Code:    CodeAuth,
		Message: msg,
		Hint:    "Run: studysync auth login",
	}
}

// ErrSessionExpired is the single error kind every pending caller receives
// once a token refresh fails and the stored credentials are destroyed.
func ErrSessionExpired(cause error) *Error {
	return &Error{
		Code:       CodeSessionExpired,
		Message:    "Session expired",
		Hint:       "Run: studysync auth login",
		HTTPStatus: 401,
		Cause:      cause,
	}
}

func ErrForbidden(msg string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: 403,
	}
}

func ErrConflict(msg string) *Error {
	return &Error{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: 409,
	}
}

func ErrRateLimit(retryAfter int) *Error {
	hint := "Try again later"
	if retryAfter > 0 {
		hint = fmt.Sprintf("Try again in %d seconds", retryAfter)
	}
	return &Error{
		Code:       CodeRateLimit,
		Message:    "Rate limited",
		Hint:       hint,
		HTTPStatus: 429,
		Retryable:  true,
	}
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      cause.Error(),
		Retryable: true,
		Cause:     cause,
	}
}

// ErrPending reports that a wait ended before the remote operation
// reached a final state.
func ErrPending(msg, hint string) *Error {
	return &Error{
		Code:      CodePending,
		Message:   msg,
		Hint:      hint,
		Retryable: true,
	}
}

// ErrUnavailable is returned when a local gate (circuit breaker, rate limiter,
// bulkhead) refuses a request before it reaches the network.
func ErrUnavailable(msg, hint string) *Error {
	return &Error{
		Code:      CodeUnavailable,
		Message:   msg,
		Hint:      hint,
		Retryable: true,
	}
}

func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
		Retryable:  status >= 500,
	}
}

// FromStatus builds the error for a non-2xx backend response. retryAfter
// is the parsed Retry-After in seconds, or 0.
func FromStatus(status int, msg string, retryAfter int) *Error {
	switch code := CodeForStatus(status); code {
	case CodeAuth:
		e := ErrAuth(msg)
		e.HTTPStatus = status
		return e
	case CodeForbidden:
		return ErrForbidden(msg)
	case CodeConflict:
		return ErrConflict(msg)
	case CodeRateLimit:
		return ErrRateLimit(retryAfter)
	case CodeAPI:
		return ErrAPI(status, msg)
	default:
		return &Error{Code: code, Message: msg, HTTPStatus: status}
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsSessionExpired reports whether err carries the session_expired code.
func IsSessionExpired(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeSessionExpired
}
