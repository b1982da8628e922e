package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/studysync/studysync-cli/internal/output"
)

// Response is a fully read backend response. Non-2xx statuses are
// returned as responses, not errors; call Err to convert them.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Err maps a non-2xx response to a typed error. It returns nil for 2xx.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}

	msg := errorMessage(r.Body)
	if msg == "" {
		msg = fmt.Sprintf("Request failed (HTTP %d)", r.StatusCode)
	}

	return output.FromStatus(r.StatusCode, msg, parseRetryAfter(r.Header.Get("Retry-After")))
}

// errorMessage extracts {"message"} or {"error"} from a backend error body.
func errorMessage(body []byte) string {
	var apiErr struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) != nil {
		return ""
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	if s, ok := apiErr.Error.(string); ok {
		return s
	}
	return ""
}

// parseRetryAfter parses the Retry-After header value in seconds.
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		return seconds
	}
	return 0
}
