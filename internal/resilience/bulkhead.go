package resilience

import (
	"os"
	"strconv"
)

// Bulkhead bounds in-flight requests across every studysync process.
// Slots are counted per process id so a crashed process's slots are
// reclaimed on the next acquire.
type Bulkhead struct {
	config BulkheadConfig
	store  *Store
	origin string
	pid    int
}

// NewBulkhead returns a bulkhead for origin.
func NewBulkhead(store *Store, origin string, config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().Bulkhead.MaxConcurrent
	}
	return &Bulkhead{config: config, store: store, origin: origin, pid: os.Getpid()}
}

func reap(b *BulkheadState) {
	for key := range b.InFlight {
		pid, err := strconv.Atoi(key)
		if err != nil || !isProcessAlive(pid) {
			delete(b.InFlight, key)
		}
	}
}

// Acquire takes a slot. Storage errors grant it.
func (bh *Bulkhead) Acquire() (bool, error) {
	var acquired bool
	err := bh.store.Update(func(s *State) error {
		b := &s.backend(bh.origin).Bulkhead
		reap(b)
		if b.Total() >= bh.config.MaxConcurrent {
			return nil
		}
		b.add(bh.pid, 1)
		acquired = true
		return nil
	})
	if err != nil {
		return true, nil //nolint:nilerr // fail open
	}
	return acquired, nil
}

// Release frees one slot held by this process.
func (bh *Bulkhead) Release() error {
	return bh.store.Update(func(s *State) error {
		s.backend(bh.origin).Bulkhead.add(bh.pid, -1)
		return nil
	})
}

// InUse returns live in-flight requests across processes.
func (bh *Bulkhead) InUse() (int, error) {
	state, err := bh.store.Load()
	if err != nil {
		return 0, err
	}
	b := state.backend(bh.origin).Bulkhead
	reap(&b)
	return b.Total(), nil
}
