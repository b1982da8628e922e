package observability

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/studysync/studysync-cli/internal/api"
)

// sensitiveParams are query parameters redacted from trace output.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"accesstoken":   true,
	"refresh_token": true,
	"refreshtoken":  true,
	"token":         true,
	"password":      true,
	"secret":        true,
	"signature":     true,
	"api_key":       true,
}

// TraceWriter prints trace lines stamped relative to its start.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriter writes to stderr.
func NewTraceWriter() *TraceWriter {
	return NewTraceWriterTo(os.Stderr)
}

// NewTraceWriterTo writes to w.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{writer: w, startTime: time.Now()}
}

func (t *TraceWriter) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.startTime).Seconds()
	fmt.Fprintf(t.writer, "[%.3fs] "+format+"\n", append([]any{elapsed}, args...)...)
}

// WriteRequestStart writes "[0.012s]   -> GET /api/groups?q=math".
// Replays are marked with "=>".
func (t *TraceWriter) WriteRequestStart(info api.RequestInfo) {
	prefix := "->"
	if info.Replay {
		prefix = "=>"
	}
	t.printf("  %s %s %s", prefix, info.Method, scrubURL(info.URL))
}

// WriteRequestEnd writes "[0.057s]   <- 200 (45ms)".
func (t *TraceWriter) WriteRequestEnd(_ api.RequestInfo, result api.RequestResult) {
	if result.Err != nil {
		t.printf("  <- ERROR: %v", result.Err)
		return
	}
	t.printf("  <- %d (%dms)", result.StatusCode, result.Duration.Milliseconds())
}

// WriteRefreshStart writes "[0.060s] Refreshing access token (unauthorized)".
func (t *TraceWriter) WriteRefreshStart(info api.RefreshInfo) {
	t.printf("Refreshing access token (%s)", info.Reason)
}

// WriteRefreshEnd reports the refresh outcome.
func (t *TraceWriter) WriteRefreshEnd(_ api.RefreshInfo, err error, d time.Duration) {
	if err != nil {
		t.printf("Refresh failed: %v", err)
		return
	}
	t.printf("Refreshed access token (%dms)", d.Milliseconds())
}

// scrubURL redacts sensitive query parameters.
func scrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[unparseable URL]"
	}

	query := u.Query()
	modified := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "[REDACTED]")
			modified = true
		}
	}
	if !modified {
		return rawURL
	}
	u.RawQuery = query.Encode()
	return u.String()
}
