package api

import (
	"context"
	"time"
)

// RequestInfo describes one HTTP exchange with the backend.
type RequestInfo struct {
	Method    string
	URL       string
	Path      string
	RequestID string
	// Replay is true for the second send after a token refresh.
	Replay bool
	// Auth is true for login, refresh and logout calls.
	Auth bool
}

// RequestResult describes how an exchange ended. Err is set when no
// response was received.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	RetryAfter int
	Err        error
}

// RefreshInfo describes a refresh attempt.
type RefreshInfo struct {
	// Reason is "unauthorized", "proactive" or "manual".
	Reason string
}

// Hooks observe the client. Implementations must be safe for concurrent use.
type Hooks interface {
	OnRequestStart(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult)
	OnRefreshStart(ctx context.Context, info RefreshInfo)
	OnRefreshEnd(ctx context.Context, info RefreshInfo, err error, duration time.Duration)
}

// Gate admits or rejects backend requests before they are sent. The
// refresh call is never gated.
type Gate interface {
	// Admit returns the context to send with, or an error to fail the
	// request without sending it.
	Admit(ctx context.Context, info RequestInfo) (context.Context, error)
	// Done is called exactly once for every admitted request.
	Done(ctx context.Context, info RequestInfo, result RequestResult)
}

// NoopHooks implements Hooks and does nothing.
type NoopHooks struct{}

func (NoopHooks) OnRequestStart(ctx context.Context, _ RequestInfo) context.Context { return ctx }
func (NoopHooks) OnRequestEnd(context.Context, RequestInfo, RequestResult)          {}
func (NoopHooks) OnRefreshStart(context.Context, RefreshInfo)                       {}
func (NoopHooks) OnRefreshEnd(context.Context, RefreshInfo, error, time.Duration)   {}

// chainHooks fans events out to several Hooks in order.
type chainHooks []Hooks

func (c chainHooks) OnRequestStart(ctx context.Context, info RequestInfo) context.Context {
	for _, h := range c {
		ctx = h.OnRequestStart(ctx, info)
	}
	return ctx
}

func (c chainHooks) OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult) {
	for _, h := range c {
		h.OnRequestEnd(ctx, info, result)
	}
}

func (c chainHooks) OnRefreshStart(ctx context.Context, info RefreshInfo) {
	for _, h := range c {
		h.OnRefreshStart(ctx, info)
	}
}

func (c chainHooks) OnRefreshEnd(ctx context.Context, info RefreshInfo, err error, d time.Duration) {
	for _, h := range c {
		h.OnRefreshEnd(ctx, info, err, d)
	}
}
