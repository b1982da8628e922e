package session

import "sync"

// MemoryStore keeps credentials in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	creds map[string]*Credentials
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]*Credentials)}
}

func (m *MemoryStore) Load(origin string) (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[origin]
	if !ok {
		return nil, ErrNotFound
	}
	return c.clone(), nil
}

func (m *MemoryStore) Save(origin string, creds *Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[origin] = creds.clone()
	return nil
}

func (m *MemoryStore) Delete(origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, origin)
	return nil
}
