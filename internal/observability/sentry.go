package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/output"
)

var _ api.Hooks = (*SentryHooks)(nil)

// InitSentry enables error reporting. An empty dsn disables it.
func InitSentry(dsn, environment, release string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, fmt.Errorf("initializing sentry: %w", err)
	}
	return true, nil
}

// FlushSentry waits briefly for queued events.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// ShouldReport reports whether err is worth an error report. Usage,
// auth, not-found and other client-side outcomes are not.
func ShouldReport(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var e *output.Error
	if !errors.As(err, &e) {
		return true
	}
	switch e.Code {
	case output.CodeNetwork:
		return true
	case output.CodeAPI:
		return e.HTTPStatus == 0 || e.HTTPStatus >= 500
	default:
		return false
	}
}

// CaptureError reports err with the command that produced it.
func CaptureError(err error, command string) {
	if !ShouldReport(err) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("command", command)
		if e := output.AsError(err); e.HTTPStatus > 0 {
			scope.SetTag("http_status", fmt.Sprint(e.HTTPStatus))
		}
		sentry.CaptureException(err)
	})
}

// SentryHooks leaves a breadcrumb trail of backend calls so reported
// errors show what led up to them. Token values never appear in it.
type SentryHooks struct {
	hub *sentry.Hub
}

// NewSentryHooks records breadcrumbs on hub, or the current hub if nil.
func NewSentryHooks(hub *sentry.Hub) *SentryHooks {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryHooks{hub: hub}
}

func (h *SentryHooks) OnRequestStart(ctx context.Context, _ api.RequestInfo) context.Context {
	return ctx
}

func (h *SentryHooks) OnRequestEnd(_ context.Context, info api.RequestInfo, result api.RequestResult) {
	level := sentry.LevelInfo
	if result.Err != nil || result.StatusCode >= 500 {
		level = sentry.LevelError
	} else if result.StatusCode >= 400 {
		level = sentry.LevelWarning
	}
	h.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Type:     "http",
		Category: "backend",
		Level:    level,
		Data: map[string]any{
			"method":      info.Method,
			"url":         scrubURL(info.URL),
			"status_code": result.StatusCode,
			"request_id":  info.RequestID,
			"replay":      info.Replay,
		},
	}, nil)
}

func (h *SentryHooks) OnRefreshStart(context.Context, api.RefreshInfo) {}

func (h *SentryHooks) OnRefreshEnd(_ context.Context, info api.RefreshInfo, err error, _ time.Duration) {
	crumb := &sentry.Breadcrumb{
		Category: "auth",
		Message:  "token refresh (" + info.Reason + ")",
		Level:    sentry.LevelInfo,
	}
	if err != nil {
		crumb.Level = sentry.LevelWarning
		crumb.Message += " failed"
	}
	h.hub.AddBreadcrumb(crumb, nil)
}
