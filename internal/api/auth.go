package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/studysync/studysync-cli/internal/output"
	"github.com/studysync/studysync-cli/internal/session"
)

// LoginRequest holds the credentials posted to the login route.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// RememberMe selects the durable storage scope.
	RememberMe bool `json:"-"`
}

// LoginResult is what a successful login produced.
type LoginResult struct {
	// User is the profile object returned by the backend, undecoded.
	User  json.RawMessage
	Scope session.Scope
}

// Login exchanges email and password for a token pair and stores it in
// the scope chosen by RememberMe.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, output.ErrUsage("email and password are required")
	}

	resp, err := c.Request(ctx, http.MethodPost, c.endpoints.Login, &RequestOptions{JSON: req})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		msg := errorMessage(resp.Body)
		if msg == "" {
			msg = "Invalid email or password"
		}
		return nil, output.ErrAuth(msg)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var payload tokenPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	access, refresh := payload.tokens()
	if access == "" {
		return nil, output.ErrAPI(resp.StatusCode, "login response has no access token")
	}

	user := payload.user()
	creds := &session.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		Email:        req.Email,
	}
	fillIdentity(creds, user)

	if err := c.session.Save(creds, req.RememberMe); err != nil {
		return nil, err
	}
	c.logger.Debug("logged in", "scope", c.session.Scope())

	return &LoginResult{User: user, Scope: c.session.Scope()}, nil
}

// Logout tells the backend to revoke the session, then destroys the local
// credentials in both scopes. The remote call is best effort.
func (c *Client) Logout(ctx context.Context) error {
	if c.session.IsAuthenticated() {
		body := map[string]string{}
		if rt := c.session.RefreshToken(); rt != "" {
			body["refreshToken"] = rt
		}
		p, err := c.prepare(http.MethodPost, c.endpoints.Logout, &RequestOptions{JSON: body})
		if err == nil {
			if _, err := c.send(ctx, p, c.session.AccessToken(), false); err != nil {
				c.logger.Debug("remote logout failed", "error", err)
			}
		}
	}
	return c.session.Clear()
}

// fillIdentity copies id, email and role from the login profile.
func fillIdentity(creds *session.Credentials, user json.RawMessage) {
	if len(user) == 0 {
		return
	}
	var u struct {
		ID    json.RawMessage `json:"id"`
		AltID json.RawMessage `json:"_id"`
		Email string          `json:"email"`
		Role  string          `json:"role"`
	}
	if json.Unmarshal(user, &u) != nil {
		return
	}
	id := u.ID
	if len(id) == 0 {
		id = u.AltID
	}
	creds.UserID = rawID(id)
	if u.Email != "" {
		creds.Email = u.Email
	}
	creds.Role = u.Role
}

// rawID renders a JSON string or number id as text.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// IsUnauthorized reports whether err is an auth failure from the backend.
func IsUnauthorized(err error) bool {
	var e *output.Error
	return errors.As(err, &e) && (e.Code == output.CodeAuth || e.Code == output.CodeSessionExpired)
}
