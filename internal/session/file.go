package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gofrs/flock"
)

// FileStore keeps credentials for every origin in one 0600 JSON file.
// Writes are atomic and serialized across processes with a lock file.
type FileStore struct {
	dir  string
	name string
}

// NewFileStore returns a store writing dir/name.
func NewFileStore(dir, name string) *FileStore {
	return &FileStore{dir: dir, name: name}
}

// Path returns the credentials file path.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, s.name)
}

func (s *FileStore) Load(origin string) (*Credentials, error) {
	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	creds, ok := all[origin]
	if !ok || creds == nil {
		return nil, ErrNotFound
	}
	return creds, nil
}

func (s *FileStore) Save(origin string, creds *Credentials) error {
	return s.update(func(all map[string]*Credentials) {
		all[origin] = creds
	})
}

func (s *FileStore) Delete(origin string) error {
	if _, err := os.Stat(s.Path()); os.IsNotExist(err) {
		return nil
	}
	return s.update(func(all map[string]*Credentials) {
		delete(all, origin)
	})
}

func (s *FileStore) update(fn func(map[string]*Credentials)) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}

	lock := flock.New(s.Path() + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking credentials: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	all, err := s.loadAll()
	if err != nil {
		return err
	}
	fn(all)
	return s.saveAll(all)
}

func (s *FileStore) loadAll() (map[string]*Credentials, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Credentials), nil
		}
		return nil, err
	}

	var all map[string]*Credentials
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("invalid credentials file %s: %w", s.Path(), err)
	}
	if all == nil {
		all = make(map[string]*Credentials)
	}
	return all, nil
}

func (s *FileStore) saveAll(all map[string]*Credentials) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.dir, s.name+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Windows refuses to rename over an existing file.
	destPath := s.Path()
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// origins lists every origin held in the file.
func (s *FileStore) origins() (map[string]*Credentials, error) {
	return s.loadAll()
}

func (s *FileStore) remove() error {
	err := os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
