package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/studysync/studysync-cli/internal/output"
)

// RefreshState is the client's refresh state machine position.
type RefreshState string

const (
	RefreshIdle       RefreshState = "idle"
	RefreshInProgress RefreshState = "refreshing"
)

const refreshKey = "refresh"

var errNoRefreshToken = errors.New("no refresh token")

// RefreshState reports whether a refresh call is in flight.
func (c *Client) RefreshState() RefreshState {
	if c.refreshing.Load() {
		return RefreshInProgress
	}
	return RefreshIdle
}

// OnSessionExpired registers fn to run once per failed refresh attempt,
// after credentials have been destroyed.
func (c *Client) OnSessionExpired(fn func(error)) {
	c.expiredMu.Lock()
	defer c.expiredMu.Unlock()
	c.onExpired = append(c.onExpired, fn)
}

// Refresh forces the refresh protocol and returns the new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.refresh(ctx, c.session.AccessToken(), "manual")
}

// refresh returns an access token newer than sent. Concurrent callers
// share one refresh call; a caller whose token was already replaced gets
// the stored token without refreshing again.
func (c *Client) refresh(ctx context.Context, sent, reason string) (string, error) {
	if current := c.session.AccessToken(); current != "" && current != sent && reason != "manual" {
		c.logger.Debug("stale token, replaying with current", "reason", reason)
		return current, nil
	}

	// The flight must outlive any single caller.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.refreshGroup.DoChan(refreshKey, func() (any, error) {
		if current := c.session.AccessToken(); current != "" && current != sent && reason != "manual" {
			return current, nil
		}
		return c.runRefresh(flightCtx, reason)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// runRefresh performs the refresh call. It only ever runs inside the
// single-flight group.
func (c *Client) runRefresh(ctx context.Context, reason string) (string, error) {
	c.refreshing.Store(true)
	defer c.refreshing.Store(false)

	info := RefreshInfo{Reason: reason}
	c.hooks.OnRefreshStart(ctx, info)
	c.logger.Debug("refresh started", "reason", reason)
	start := time.Now()

	hadCredentials := c.session.IsAuthenticated()
	access, err := c.exchangeRefreshToken(ctx)
	if err == nil {
		c.logger.Debug("refresh succeeded", "duration", time.Since(start))
	}
	c.hooks.OnRefreshEnd(ctx, info, err, time.Since(start))

	if err != nil {
		return "", c.expire(err, hadCredentials)
	}
	return access, nil
}

func (c *Client) exchangeRefreshToken(ctx context.Context) (string, error) {
	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		return "", errNoRefreshToken
	}

	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", err
	}
	p := &prepared{
		method:      http.MethodPost,
		path:        normalizePath(c.endpoints.Refresh),
		url:         c.baseURL + normalizePath(c.endpoints.Refresh),
		header:      make(http.Header),
		body:        body,
		contentType: "application/json",
	}
	info := RequestInfo{
		Method:    p.method,
		URL:       p.url,
		Path:      p.path,
		RequestID: uuid.NewString(),
		Auth:      true,
	}

	resp, _, err := c.do(ctx, info, p, "")
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("refresh rejected: HTTP %d", resp.StatusCode)
	}

	var payload tokenPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("malformed refresh response: %w", err)
	}
	access, rotated := payload.tokens()
	if access == "" {
		return "", errors.New("refresh response has no access token")
	}

	if err := c.session.UpdateAccessToken(access, rotated); err != nil {
		// The in-memory token is already current; only persistence failed.
		c.logger.Warn("could not persist refreshed token", "error", err)
	}
	return access, nil
}

// expire destroys the session and notifies the host. Callbacks only run
// when there was a session to lose.
func (c *Client) expire(cause error, notify bool) error {
	if err := c.session.Clear(); err != nil {
		c.logger.Warn("could not clear credentials", "error", err)
	}
	expired := output.ErrSessionExpired(cause)
	c.logger.Debug("session expired", "cause", cause, "context", isContextErr(cause))

	if !notify {
		return expired
	}

	c.expiredMu.Lock()
	callbacks := append([]func(error){}, c.onExpired...)
	c.expiredMu.Unlock()
	for _, fn := range callbacks {
		fn(expired)
	}
	return expired
}

// tokenPayload accepts camelCase and snake_case token fields, optionally
// nested under "data".
type tokenPayload struct {
	AccessToken       string          `json:"accessToken"`
	AccessTokenSnake  string          `json:"access_token"`
	RefreshToken      string          `json:"refreshToken"`
	RefreshTokenSnake string          `json:"refresh_token"`
	User              json.RawMessage `json:"user,omitempty"`
	Data              *tokenPayload   `json:"data,omitempty"`
}

func (p *tokenPayload) tokens() (access, refresh string) {
	access = firstNonEmpty(p.AccessToken, p.AccessTokenSnake)
	refresh = firstNonEmpty(p.RefreshToken, p.RefreshTokenSnake)
	if access == "" && p.Data != nil {
		return p.Data.tokens()
	}
	return access, refresh
}

func (p *tokenPayload) user() json.RawMessage {
	if len(p.User) > 0 {
		return p.User
	}
	if p.Data != nil {
		return p.Data.user()
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
