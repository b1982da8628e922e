// Package session holds the authenticated user's credential pair and
// persists it in one of two storage scopes.
package session

import (
	"errors"
	"time"
)

// Scope selects where a credential pair is persisted.
type Scope string

const (
	// ScopeNone means no credentials are held.
	ScopeNone Scope = ""
	// ScopeDurable survives restarts ("remember me").
	ScopeDurable Scope = "durable"
	// ScopeSession lives in the runtime dir and is gone after a reboot.
	ScopeSession Scope = "session"
)

// Credentials holds the token pair and metadata returned at login.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        Scope  `json:"scope"`
	UserID       string `json:"user_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	IssuedAt     int64  `json:"issued_at,omitempty"`
}

// ErrNotFound is returned by stores holding no credentials for an origin.
var ErrNotFound = errors.New("credentials not found")

// CredentialStore persists credentials keyed by origin.
type CredentialStore interface {
	Load(origin string) (*Credentials, error)
	Save(origin string, creds *Credentials) error
	Delete(origin string) error
}

func (c *Credentials) clone() *Credentials {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func now() int64 {
	return time.Now().Unix()
}
