// Package api provides the authenticated HTTP client for the StudySync
// backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/session"
	"github.com/studysync/studysync-cli/internal/version"
)

// Config holds the client settings that come from configuration.
type Config struct {
	// BaseURL is the resolved API URL every path is joined onto.
	BaseURL string
	// Timeout bounds a single HTTP exchange. Zero means 30s.
	Timeout time.Duration
}

// Endpoints are the backend-relative auth routes.
type Endpoints struct {
	Login   string
	Refresh string
	Logout  string
}

// DefaultEndpoints returns the StudySync auth routes.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:   "/auth/login",
		Refresh: "/auth/refresh-token",
		Logout:  "/auth/logout",
	}
}

// Client issues requests against the backend with the session's bearer
// token and refreshes it transparently on 401.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	hooks      Hooks
	gate       Gate
	logger     *slog.Logger
	endpoints  Endpoints
	skew       time.Duration
	now        func() time.Time

	refreshGroup singleflight.Group
	refreshing   atomic.Bool

	expiredMu sync.Mutex
	onExpired []func(error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHooks adds observability hooks. Repeated calls chain.
func WithHooks(h Hooks) Option {
	return func(c *Client) {
		if h == nil {
			return
		}
		if chain, ok := c.hooks.(chainHooks); ok {
			c.hooks = append(chain, h)
			return
		}
		if _, ok := c.hooks.(NoopHooks); ok {
			c.hooks = h
			return
		}
		c.hooks = chainHooks{c.hooks, h}
	}
}

// WithGate installs a request gate for backend calls.
func WithGate(g Gate) Option {
	return func(c *Client) { c.gate = g }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEndpoints overrides the auth routes. Empty fields keep the defaults.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		if e.Login != "" {
			c.endpoints.Login = e.Login
		}
		if e.Refresh != "" {
			c.endpoints.Refresh = e.Refresh
		}
		if e.Logout != "" {
			c.endpoints.Logout = e.Logout
		}
	}
}

// WithProactiveRefresh refreshes before sending when the access token is
// a JWT expiring within skew. Zero disables it.
func WithProactiveRefresh(skew time.Duration) Option {
	return func(c *Client) { c.skew = skew }
}

// NewClient creates a client for the backend at cfg.BaseURL.
func NewClient(cfg Config, sess *session.Session, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		session:   sess,
		hooks:     NoopHooks{},
		logger:    slog.New(slog.DiscardHandler),
		endpoints: DefaultEndpoints(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLogger replaces the debug logger. Call it before issuing requests.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Session returns the credential holder the client uses.
func (c *Client) Session() *session.Session {
	return c.session
}

// BaseURL returns the API URL paths are joined onto.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOptions shape a request. JSON and Body are mutually exclusive.
type RequestOptions struct {
	Query  url.Values
	Header http.Header
	// JSON is marshalled as the request body.
	JSON any
	// Body is sent as-is with ContentType.
	Body        []byte
	ContentType string
}

// prepared is a request with its body buffered so it can be replayed.
type prepared struct {
	method      string
	path        string
	url         string
	header      http.Header
	body        []byte
	contentType string
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, &RequestOptions{Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, &RequestOptions{JSON: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, &RequestOptions{JSON: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, &RequestOptions{JSON: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil)
}

// Request sends method path with the current access token. A 401 from any
// route other than login or refresh runs the refresh protocol and replays
// the request once with the new token. Every other status is returned
// untouched. If the refresh fails the error is session expired.
func (c *Client) Request(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error) {
	p, err := c.prepare(method, path, opts)
	if err != nil {
		return nil, err
	}

	if c.isAuthRoute(p.path) {
		return c.send(ctx, p, "", false)
	}

	token := c.session.AccessToken()
	if c.skew > 0 && token != "" && session.ExpiresWithin(token, c.skew, c.now()) {
		c.logger.Debug("access token near expiry, refreshing", "path", p.path)
		if token, err = c.refresh(ctx, token, "proactive"); err != nil {
			return nil, err
		}
	}

	resp, err := c.send(ctx, p, token, false)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	fresh, err := c.refresh(ctx, token, "unauthorized")
	if err != nil {
		return nil, err
	}
	// A 401 here is returned to the caller as-is.
	return c.send(ctx, p, fresh, true)
}

func (c *Client) prepare(method, path string, opts *RequestOptions) (*prepared, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	if opts.JSON != nil && opts.Body != nil {
		return nil, output.ErrUsage("request cannot have both JSON and raw body")
	}

	p := &prepared{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		header: opts.Header.Clone(),
	}
	if p.header == nil {
		p.header = make(http.Header)
	}

	u := c.baseURL + p.path
	if len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + opts.Query.Encode()
	}
	p.url = u

	switch {
	case opts.JSON != nil:
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		p.body = data
		p.contentType = "application/json"
	case opts.Body != nil:
		p.body = opts.Body
		p.contentType = opts.ContentType
	}
	return p, nil
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// isAuthRoute reports whether path is the login or refresh route. Those
// never trigger a refresh.
func (c *Client) isAuthRoute(path string) bool {
	route := path
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	return route == normalizePath(c.endpoints.Refresh) || route == normalizePath(c.endpoints.Login)
}

// send performs one gated HTTP exchange.
func (c *Client) send(ctx context.Context, p *prepared, token string, replay bool) (*Response, error) {
	info := RequestInfo{
		Method:    p.method,
		URL:       p.url,
		Path:      p.path,
		RequestID: uuid.NewString(),
		Replay:    replay,
		Auth:      c.isAuthRoute(p.path),
	}

	if c.gate != nil {
		gctx, err := c.gate.Admit(ctx, info)
		if err != nil {
			return nil, err
		}
		ctx = gctx
	}

	resp, result, err := c.do(ctx, info, p, token)
	if c.gate != nil {
		c.gate.Done(ctx, info, result)
	}
	return resp, err
}

// do executes the exchange and reports it to the hooks. It is shared by
// gated requests and the ungated refresh call.
func (c *Client) do(ctx context.Context, info RequestInfo, p *prepared, token string) (*Response, RequestResult, error) {
	ctx = c.hooks.OnRequestStart(ctx, info)
	start := time.Now()

	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}
	req, err := http.NewRequestWithContext(ctx, p.method, p.url, body)
	if err != nil {
		result := RequestResult{Err: err}
		c.hooks.OnRequestEnd(ctx, info, result)
		return nil, result, fmt.Errorf("building request: %w", err)
	}

	for k, vs := range p.header {
		req.Header[k] = vs
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-Id", info.RequestID)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}

	c.logger.Debug("request", "method", p.method, "path", p.path, "request_id", info.RequestID, "replay", info.Replay)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result := RequestResult{Err: err, Duration: time.Since(start)}
		c.hooks.OnRequestEnd(ctx, info, result)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, result, ctxErr
		}
		return nil, result, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	result := RequestResult{
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	if err != nil {
		result.Err = err
		c.hooks.OnRequestEnd(ctx, info, result)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, result, ctxErr
		}
		return nil, result, output.ErrNetwork(fmt.Errorf("reading response: %w", err))
	}
	c.hooks.OnRequestEnd(ctx, info, result)

	c.logger.Debug("response", "status", resp.StatusCode, "path", p.path, "request_id", info.RequestID,
		"duration", result.Duration)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		RequestID:  info.RequestID,
	}, result, nil
}

// isContextErr reports whether err came from a caller's context.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
