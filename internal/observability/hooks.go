package observability

import (
	"context"
	"sync"
	"time"

	"github.com/studysync/studysync-cli/internal/api"
)

var _ api.Hooks = (*CLIHooks)(nil)

// CLIHooks feeds client events to a collector and a trace writer.
// Verbosity levels:
//   - 0: collect stats only
//   - 1: also trace refresh events
//   - 2: also trace every request
type CLIHooks struct {
	mu        sync.Mutex
	level     int
	collector *SessionCollector
	writer    *TraceWriter
}

// NewCLIHooks returns hooks at level. collector and writer may be nil.
func NewCLIHooks(level int, collector *SessionCollector, writer *TraceWriter) *CLIHooks {
	return &CLIHooks{level: level, collector: collector, writer: writer}
}

// SetLevel changes the verbosity level.
func (h *CLIHooks) SetLevel(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the verbosity level.
func (h *CLIHooks) Level() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *CLIHooks) snapshot() (int, *SessionCollector, *TraceWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level, h.collector, h.writer
}

func (h *CLIHooks) OnRequestStart(ctx context.Context, info api.RequestInfo) context.Context {
	if level, _, writer := h.snapshot(); level >= 2 && writer != nil {
		writer.WriteRequestStart(info)
	}
	return ctx
}

func (h *CLIHooks) OnRequestEnd(_ context.Context, info api.RequestInfo, result api.RequestResult) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRequest(info, result)
	}
	if level >= 2 && writer != nil {
		writer.WriteRequestEnd(info, result)
	}
}

func (h *CLIHooks) OnRefreshStart(_ context.Context, info api.RefreshInfo) {
	if level, _, writer := h.snapshot(); level >= 1 && writer != nil {
		writer.WriteRefreshStart(info)
	}
}

func (h *CLIHooks) OnRefreshEnd(_ context.Context, info api.RefreshInfo, err error, d time.Duration) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRefresh(err)
	}
	if level >= 1 && writer != nil {
		writer.WriteRefreshEnd(info, err, d)
	}
}
