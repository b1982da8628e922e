package session

import (
	"errors"
	"fmt"
	"sync"
)

// Session is the single authoritative holder of the credential pair for
// one origin. It is safe for concurrent use.
type Session struct {
	origin    string
	durable   CredentialStore
	ephemeral CredentialStore

	mu     sync.RWMutex
	creds  *Credentials
	loaded bool
}

// New returns a session for origin backed by the durable ("remember me")
// and ephemeral stores. Credentials are read lazily on first use.
func New(origin string, durable, ephemeral CredentialStore) *Session {
	return &Session{origin: origin, durable: durable, ephemeral: ephemeral}
}

// Origin returns the origin this session's credentials belong to.
func (s *Session) Origin() string {
	return s.origin
}

// Load re-reads credentials from the stores, dropping anything cached.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// loadLocked reads both scopes. A store that fails to load does not hide
// credentials held in the other scope; its error is still returned.
func (s *Session) loadLocked() error {
	s.loaded = true
	s.creds = nil

	var errs []error
	for _, scope := range []Scope{ScopeDurable, ScopeSession} {
		creds, err := s.store(scope).Load(s.origin)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("loading %s credentials: %w", scope, err))
			continue
		}
		if s.creds == nil {
			creds.Scope = scope
			s.creds = creds
		}
	}
	return errors.Join(errs...)
}

func (s *Session) ensureLoaded() {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		// Callers that need the error use Load.
		_ = s.loadLocked()
	}
}

// Credentials returns a copy of the current pair, or nil.
func (s *Session) Credentials() *Credentials {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.clone()
}

// AccessToken returns the current access token, or "".
func (s *Session) AccessToken() string {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ""
	}
	return s.creds.AccessToken
}

// RefreshToken returns the current refresh token, or "".
func (s *Session) RefreshToken() string {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ""
	}
	return s.creds.RefreshToken
}

// IsAuthenticated reports whether an access token is held. Server-side
// expiry is not checked.
func (s *Session) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// Scope reports which store holds the current pair.
func (s *Session) Scope() Scope {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ScopeNone
	}
	return s.creds.Scope
}

// Save persists a new pair. remember selects the durable scope; the other
// scope is cleared so only one pair exists per origin.
func (s *Session) Save(creds *Credentials, remember bool) error {
	if creds == nil || creds.AccessToken == "" {
		return errors.New("session: access token required")
	}

	scope, other := ScopeSession, ScopeDurable
	if remember {
		scope, other = ScopeDurable, ScopeSession
	}

	c := creds.clone()
	c.Scope = scope
	if c.IssuedAt == 0 {
		c.IssuedAt = now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store(scope).Save(s.origin, c); err != nil {
		return fmt.Errorf("saving %s credentials: %w", scope, err)
	}
	if err := s.store(other).Delete(s.origin); err != nil {
		return fmt.Errorf("clearing %s credentials: %w", other, err)
	}
	s.creds = c
	s.loaded = true
	return nil
}

// UpdateAccessToken replaces the access token in the scope the pair was
// loaded from. An empty refresh keeps the existing refresh token.
func (s *Session) UpdateAccessToken(access, refresh string) error {
	if access == "" {
		return errors.New("session: access token required")
	}
	s.ensureLoaded()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return errors.New("session: no credentials to update")
	}

	c := s.creds.clone()
	c.AccessToken = access
	if refresh != "" {
		c.RefreshToken = refresh
	}
	c.IssuedAt = now()

	// Keep the in-memory pair current even if persisting fails so the
	// running process can continue.
	s.creds = c
	if err := s.store(c.Scope).Save(s.origin, c); err != nil {
		return fmt.Errorf("saving %s credentials: %w", c.Scope, err)
	}
	return nil
}

// Clear destroys the pair in both scopes.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = nil
	s.loaded = true
	return errors.Join(
		s.durable.Delete(s.origin),
		s.ephemeral.Delete(s.origin),
	)
}

// Storage names the durable scope's backend: "keyring", "file" or
// "memory".
func (s *Session) Storage() string {
	switch d := s.durable.(type) {
	case *KeyringStore:
		if d.UsingKeyring() {
			return "keyring"
		}
		return "file"
	case *FileStore:
		return "file"
	case *MemoryStore:
		return "memory"
	default:
		return "custom"
	}
}

// MigrateDurable moves plaintext fallback credentials into the keyring
// when the durable scope is keyring-backed. Other backends are a no-op.
func (s *Session) MigrateDurable() error {
	ks, ok := s.durable.(*KeyringStore)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ks.MigrateToKeyring()
}

func (s *Session) store(scope Scope) CredentialStore {
	if scope == ScopeDurable {
		return s.durable
	}
	return s.ephemeral
}
