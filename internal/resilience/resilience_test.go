package resilience

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "https://studysync.test/api"

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)} }

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(t.TempDir())
	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StateVersion, state.Version)
	assert.Empty(t, state.Backends)
}

func TestStoreUpdatePersists(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Update(func(s *State) error {
		s.backend(origin).Circuit.Failures = 3
		return nil
	}))

	state, err := NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, 3, state.Backends[origin].Circuit.Failures)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreDiscardsCorruptAndOldState(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Update(func(*State) error { return nil }))

	require.NoError(t, os.WriteFile(store.Path(), []byte("{nope"), 0600))
	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Backends)

	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"version":1,"circuit_breaker":{"state":"open"}}`), 0600))
	state, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Backends)
}

func TestStoreClear(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Update(func(*State) error { return nil }))
	require.NoError(t, store.Clear())
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Clear())
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	store := NewStore(t.TempDir())
	clk := newClock()
	cb := NewCircuitBreaker(store, origin, CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	})
	cb.now = clk.now

	state, err := cb.State()
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, state)

	for range 3 {
		require.NoError(t, cb.RecordFailure())
	}
	state, _ = cb.State()
	assert.Equal(t, CircuitOpen, state)

	allowed, _ := cb.Allow()
	assert.False(t, allowed)
	assert.Equal(t, 30*time.Second, cb.RetryIn())

	clk.advance(31 * time.Second)
	state, _ = cb.State()
	assert.Equal(t, CircuitHalfOpen, state)

	// One probe at a time.
	allowed, _ = cb.Allow()
	assert.True(t, allowed)
	allowed, _ = cb.Allow()
	assert.False(t, allowed)

	require.NoError(t, cb.RecordSuccess())
	allowed, _ = cb.Allow()
	assert.True(t, allowed)
	require.NoError(t, cb.RecordSuccess())

	state, _ = cb.State()
	assert.Equal(t, CircuitClosed, state)
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	store := NewStore(t.TempDir())
	clk := newClock()
	cb := NewCircuitBreaker(store, origin, CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second})
	cb.now = clk.now

	require.NoError(t, cb.RecordFailure())
	clk.advance(2 * time.Second)
	allowed, _ := cb.Allow()
	require.True(t, allowed)

	require.NoError(t, cb.RecordFailure())
	state, _ := cb.State()
	assert.Equal(t, CircuitOpen, state)
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	store := NewStore(t.TempDir())
	cb := NewCircuitBreaker(store, origin, CircuitBreakerConfig{FailureThreshold: 3})

	require.NoError(t, cb.RecordFailure())
	require.NoError(t, cb.RecordFailure())
	require.NoError(t, cb.RecordSuccess())
	require.NoError(t, cb.RecordFailure())
	require.NoError(t, cb.RecordFailure())

	state, _ := cb.State()
	assert.Equal(t, CircuitClosed, state)
}

func TestCircuitBreakerReclaimsStaleProbe(t *testing.T) {
	store := NewStore(t.TempDir())
	clk := newClock()
	cb := NewCircuitBreaker(store, origin, CircuitBreakerConfig{
		FailureThreshold:  1,
		OpenTimeout:       time.Second,
		StaleProbeTimeout: time.Minute,
	})
	cb.now = clk.now

	require.NoError(t, cb.RecordFailure())
	clk.advance(2 * time.Second)
	allowed, _ := cb.Allow()
	require.True(t, allowed)

	// The probing process died without reporting.
	clk.advance(2 * time.Minute)
	allowed, _ = cb.Allow()
	assert.True(t, allowed)
}

func TestCircuitBreakerIsPerOrigin(t *testing.T) {
	store := NewStore(t.TempDir())
	a := NewCircuitBreaker(store, "https://a.test", CircuitBreakerConfig{FailureThreshold: 1})
	b := NewCircuitBreaker(store, "https://b.test", CircuitBreakerConfig{FailureThreshold: 1})

	require.NoError(t, a.RecordFailure())
	allowed, _ := b.Allow()
	assert.True(t, allowed)
	allowed, _ = a.Allow()
	assert.False(t, allowed)

	require.NoError(t, a.Reset())
	allowed, _ = a.Allow()
	assert.True(t, allowed)
}

func TestRateLimiterBucket(t *testing.T) {
	store := NewStore(t.TempDir())
	clk := newClock()
	rl := NewRateLimiter(store, origin, RateLimiterConfig{MaxTokens: 2, RefillRate: 1})
	rl.now = clk.now

	for range 2 {
		ok, err := rl.Allow()
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow()
	assert.False(t, ok)

	clk.advance(time.Second)
	ok, _ = rl.Allow()
	assert.True(t, ok)

	clk.advance(time.Hour)
	tokens, err := rl.Tokens()
	require.NoError(t, err)
	assert.Equal(t, 2.0, tokens)
}

func TestRateLimiterBlock(t *testing.T) {
	store := NewStore(t.TempDir())
	clk := newClock()
	rl := NewRateLimiter(store, origin, RateLimiterConfig{})
	rl.now = clk.now

	require.NoError(t, rl.Block(10*time.Second))
	require.NoError(t, rl.Block(time.Second))
	assert.Equal(t, 10*time.Second, rl.BlockedFor())

	ok, _ := rl.Allow()
	assert.False(t, ok)

	clk.advance(11 * time.Second)
	ok, _ = rl.Allow()
	assert.True(t, ok)

	require.NoError(t, rl.Block(time.Minute))
	require.NoError(t, rl.Reset())
	assert.Zero(t, rl.BlockedFor())
}

func TestBulkheadAcquireRelease(t *testing.T) {
	store := NewStore(t.TempDir())
	bh := NewBulkhead(store, origin, BulkheadConfig{MaxConcurrent: 2})

	for range 2 {
		ok, err := bh.Acquire()
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := bh.Acquire()
	assert.False(t, ok)

	n, err := bh.InUse()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, bh.Release())
	ok, _ = bh.Acquire()
	assert.True(t, ok)
}

func TestBulkheadReapsDeadProcesses(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Update(func(s *State) error {
		// PIDs near the max are not in use.
		s.backend(origin).Bulkhead.InFlight = map[string]int{"4194000": 5, "garbage": 1}
		return nil
	}))

	bh := NewBulkhead(store, origin, BulkheadConfig{MaxConcurrent: 1})
	ok, err := bh.Acquire()
	require.NoError(t, err)
	assert.True(t, ok)

	n, _ := bh.InUse()
	assert.Equal(t, 1, n)
}

func TestBulkheadReleaseNeverGoesNegative(t *testing.T) {
	store := NewStore(t.TempDir())
	bh := NewBulkhead(store, origin, BulkheadConfig{})
	require.NoError(t, bh.Release())
	n, _ := bh.InUse()
	assert.Equal(t, 0, n)
}
