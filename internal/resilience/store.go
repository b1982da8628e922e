// Package resilience gates backend requests through a rate limiter, a
// bulkhead and a circuit breaker whose state is shared by every studysync
// process through a locked file in the cache dir.
package resilience

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

const (
	// StateFileName is the state file inside the store dir.
	StateFileName = "state.json"

	// DirName is the subdirectory of the cache dir holding the state.
	DirName = "resilience"
)

// LockTimeout bounds how long an operation waits for the state lock
// before proceeding unlocked.
const LockTimeout = 100 * time.Millisecond

// Store reads and writes State under an exclusive file lock.
type Store struct {
	dir string
}

// NewStore returns a store in cacheDir/resilience.
func NewStore(cacheDir string) *Store {
	if cacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(dir, "studysync")
		} else {
			cacheDir = filepath.Join(os.TempDir(), "studysync")
		}
	}
	return &Store{dir: filepath.Join(cacheDir, DirName)}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

// lock takes the state lock. A nil lock with a nil error means the lock
// was busy past LockTimeout and the caller should proceed without it: a
// few extra requests through a gate beat a hung CLI.
func (s *Store) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}

	fl := flock.New(filepath.Join(s.dir, ".lock"))
	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		return nil, fmt.Errorf("locking resilience state: %w", err)
	}
	if !locked {
		return nil, nil
	}
	return fl, nil
}

// Load reads the state. A missing or corrupt file yields a fresh state.
func (s *Store) Load() (*State, error) {
	fl, err := s.lock()
	if err != nil {
		return nil, err
	}
	if fl != nil {
		defer func() { _ = fl.Unlock() }()
	}
	return s.read()
}

// Update runs fn on the current state and writes the result, holding the
// lock for the whole read-modify-write.
func (s *Store) Update(fn func(*State) error) error {
	fl, err := s.lock()
	if err != nil {
		return err
	}
	if fl != nil {
		defer func() { _ = fl.Unlock() }()
	}

	state, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.write(state)
}

// Clear removes the state file.
func (s *Store) Clear() error {
	fl, err := s.lock()
	if err != nil {
		return err
	}
	if fl != nil {
		defer func() { _ = fl.Unlock() }()
	}

	err = os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) read() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil || state.Version != StateVersion {
		return NewState(), nil
	}
	if state.Backends == nil {
		state.Backends = make(map[string]*BackendState)
	}
	return &state, nil
}

func (s *Store) write(state *State) error {
	state.Version = StateVersion
	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Unique temp name: writers that proceeded without the lock must not
	// clobber each other's temp files.
	tmpPath := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
