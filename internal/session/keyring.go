package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const serviceName = "studysync"

// KeyringStore is the durable scope: the system keyring when one is
// available, otherwise a plaintext file in the config dir.
type KeyringStore struct {
	useKeyring bool
	fallback   *FileStore
}

// NewKeyringStore probes the system keyring and falls back to a
// credentials file in fallbackDir. disable skips the probe.
func NewKeyringStore(fallbackDir string, disable bool) *KeyringStore {
	fallback := NewFileStore(fallbackDir, "credentials.json")
	if disable {
		return &KeyringStore{fallback: fallback}
	}

	testKey := serviceName + "::probe"
	if err := keyring.Set(serviceName, testKey, "probe"); err == nil {
		_ = keyring.Delete(serviceName, testKey)
		return &KeyringStore{useKeyring: true, fallback: fallback}
	}
	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n",
		fallback.Path())
	return &KeyringStore{fallback: fallback}
}

func key(origin string) string {
	return serviceName + "::" + origin
}

func (s *KeyringStore) Load(origin string) (*Credentials, error) {
	if !s.useKeyring {
		return s.fallback.Load(origin)
	}

	data, err := keyring.Get(serviceName, key(origin))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading keyring: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	return &creds, nil
}

func (s *KeyringStore) Save(origin string, creds *Credentials) error {
	if !s.useKeyring {
		return s.fallback.Save(origin, creds)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, key(origin), string(data))
}

func (s *KeyringStore) Delete(origin string) error {
	if !s.useKeyring {
		return s.fallback.Delete(origin)
	}
	err := keyring.Delete(serviceName, key(origin))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// UsingKeyring reports whether the system keyring backs this store.
func (s *KeyringStore) UsingKeyring() bool {
	return s.useKeyring
}

// MigrateToKeyring moves credentials left in the fallback file into the
// keyring and removes the file. Origins already in the keyring keep the
// keyring copy.
func (s *KeyringStore) MigrateToKeyring() error {
	if !s.useKeyring {
		return nil
	}

	all, err := s.fallback.origins()
	if err != nil {
		return nil //nolint:nilerr // unreadable file means nothing to migrate
	}
	for origin, creds := range all {
		if _, err := s.Load(origin); err == nil {
			continue
		}
		if err := s.Save(origin, creds); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", origin, err)
		}
	}
	return s.fallback.remove()
}
