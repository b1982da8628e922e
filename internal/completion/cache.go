// Package completion backs shell completion of group IDs with a small
// on-disk cache, so completing never touches the network.
package completion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/studysync/studysync-cli/internal/models"
)

// CachedGroup holds what completion needs to offer a group.
type CachedGroup struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject,omitempty"`
}

// Cache is the on-disk completion document.
type Cache struct {
	Groups          []CachedGroup `json:"groups,omitempty"`
	GroupsUpdatedAt time.Time     `json:"groups_updated_at,omitzero"`
	Version         int           `json:"version"`
}

const (
	// CacheVersion is the current cache schema version.
	CacheVersion = 1

	// DefaultMaxAge is how long a group listing is considered fresh.
	DefaultMaxAge = time.Hour

	CacheFileName = "completion.json"
)

// Store reads and writes the completion cache.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a store rooted at dir. An empty dir uses the
// default cache location.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = defaultCacheDir()
	}
	return &Store{dir: dir}
}

func defaultCacheDir() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "studysync")
}

// Path returns the full path to the cache file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, CacheFileName)
}

// Load reads the cache. A missing or corrupt file yields an empty cache.
func (s *Store) Load() (*Cache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadUnsafe()
}

func (s *Store) loadUnsafe() (*Cache, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &Cache{Version: CacheVersion}, nil
		}
		return nil, err
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		return &Cache{Version: CacheVersion}, nil //nolint:nilerr // corrupt cache is rebuilt on next write
	}
	return &cache, nil
}

func (s *Store) saveUnsafe(cache *Cache) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	cache.Version = CacheVersion

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, CacheFileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Groups returns the cached groups, or nil when nothing is cached.
func (s *Store) Groups() []CachedGroup {
	cache, err := s.Load()
	if err != nil {
		return nil
	}
	return cache.Groups
}

// ReplaceGroups stores a complete group listing.
func (s *Store) ReplaceGroups(groups []models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := s.loadUnsafe()
	if err != nil {
		return err
	}
	cache.Groups = convertGroups(groups)
	cache.GroupsUpdatedAt = time.Now()
	return s.saveUnsafe(cache)
}

// AddGroup inserts or updates one group without touching the
// freshness timestamp.
func (s *Store) AddGroup(g models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := s.loadUnsafe()
	if err != nil {
		return err
	}
	entry := convertGroup(g)
	if i := slices.IndexFunc(cache.Groups, func(c CachedGroup) bool { return c.ID == entry.ID }); i >= 0 {
		cache.Groups[i] = entry
	} else {
		cache.Groups = append(cache.Groups, entry)
	}
	return s.saveUnsafe(cache)
}

// RemoveGroup drops a group, for example after it was deleted.
func (s *Store) RemoveGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := s.loadUnsafe()
	if err != nil {
		return err
	}
	n := len(cache.Groups)
	cache.Groups = slices.DeleteFunc(cache.Groups, func(c CachedGroup) bool { return c.ID == id })
	if len(cache.Groups) == n {
		return nil
	}
	return s.saveUnsafe(cache)
}

// IsStale reports whether the group listing is older than maxAge.
func (s *Store) IsStale(maxAge time.Duration) bool {
	cache, err := s.Load()
	if err != nil || cache.GroupsUpdatedAt.IsZero() {
		return true
	}
	return time.Since(cache.GroupsUpdatedAt) > maxAge
}

// Clear removes the cache file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func convertGroups(groups []models.Group) []CachedGroup {
	out := make([]CachedGroup, len(groups))
	for i, g := range groups {
		out[i] = convertGroup(g)
	}
	return out
}

func convertGroup(g models.Group) CachedGroup {
	return CachedGroup{ID: g.ID.String(), Name: g.Name, Subject: g.Subject}
}
