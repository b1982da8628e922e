// Package output provides JSON/YAML/Markdown/styled output and typed CLI errors.
package output

import "net/http"

// Process exit codes. Scripts branch on these, so values never change.
const (
	ExitOK             = 0
	ExitUsage          = 1
	ExitNotFound       = 2
	ExitAuth           = 3
	ExitForbidden      = 4
	ExitRateLimit      = 5
	ExitNetwork        = 6 // also local gate refusals
	ExitAPI            = 7
	ExitConflict       = 8
	ExitSessionExpired = 9
	ExitPending        = 10 // waited for an outcome that has not happened yet
)

// Envelope error codes.
const (
	CodeUsage          = "usage"
	CodeNotFound       = "not_found"
	CodeAuth           = "auth_required"
	CodeForbidden      = "forbidden"
	CodeRateLimit      = "rate_limit"
	CodeNetwork        = "network"
	CodeAPI            = "api_error"
	CodeConflict       = "conflict"
	CodeSessionExpired = "session_expired"
	CodeUnavailable    = "unavailable"
	CodePending        = "pending"
)

var exitCodes = map[string]int{
	CodeUsage:          ExitUsage,
	CodeNotFound:       ExitNotFound,
	CodeAuth:           ExitAuth,
	CodeForbidden:      ExitForbidden,
	CodeRateLimit:      ExitRateLimit,
	CodeNetwork:        ExitNetwork,
	CodeUnavailable:    ExitNetwork,
	CodeConflict:       ExitConflict,
	CodeSessionExpired: ExitSessionExpired,
	CodePending:        ExitPending,
}

// statusCodes maps backend statuses onto envelope codes. Anything else
// is CodeAPI.
var statusCodes = map[int]string{
	http.StatusBadRequest:      CodeUsage,
	http.StatusUnauthorized:    CodeAuth,
	http.StatusForbidden:       CodeForbidden,
	http.StatusNotFound:        CodeNotFound,
	http.StatusConflict:        CodeConflict,
	http.StatusTooManyRequests: CodeRateLimit,
}

// ExitCodeFor returns the exit code for an envelope error code.
func ExitCodeFor(code string) int {
	if exit, ok := exitCodes[code]; ok {
		return exit
	}
	return ExitAPI
}

// CodeForStatus returns the envelope code for an HTTP status.
func CodeForStatus(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return CodeAPI
}
