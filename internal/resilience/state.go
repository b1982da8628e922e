package resilience

import (
	"strconv"
	"time"
)

// StateVersion is bumped whenever the file layout changes; older files
// are discarded.
const StateVersion = 2

// State is the persisted gate state, one entry per backend origin.
type State struct {
	Version   int                      `json:"version"`
	Backends  map[string]*BackendState `json:"backends"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// BackendState holds the primitives' state for one origin.
type BackendState struct {
	Circuit  CircuitState  `json:"circuit"`
	Limiter  LimiterState  `json:"limiter"`
	Bulkhead BulkheadState `json:"bulkhead"`
}

// Circuit states.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// CircuitState tracks consecutive failures and the open/half-open window.
type CircuitState struct {
	State     string `json:"state"`
	Failures  int    `json:"failures"`
	Successes int    `json:"successes"`
	// Probes is the number of half-open requests in flight.
	Probes        int       `json:"probes,omitempty"`
	LastProbeAt   time.Time `json:"last_probe_at"`
	LastFailureAt time.Time `json:"last_failure_at"`
	OpenedAt      time.Time `json:"opened_at"`
}

func (c *CircuitState) closed() bool   { return c.State == "" || c.State == CircuitClosed }
func (c *CircuitState) open() bool     { return c.State == CircuitOpen }
func (c *CircuitState) halfOpen() bool { return c.State == CircuitHalfOpen }

// LimiterState is a token bucket plus a server-imposed Retry-After block.
type LimiterState struct {
	Tokens       float64   `json:"tokens"`
	LastRefillAt time.Time `json:"last_refill_at"`
	BlockedUntil time.Time `json:"blocked_until"`
}

// BulkheadState counts in-flight requests per process id.
type BulkheadState struct {
	InFlight map[string]int `json:"in_flight"`
}

// Total returns the number of in-flight requests across all processes.
func (b *BulkheadState) Total() int {
	n := 0
	for _, c := range b.InFlight {
		n += c
	}
	return n
}

func (b *BulkheadState) add(pid, delta int) {
	if b.InFlight == nil {
		b.InFlight = make(map[string]int)
	}
	key := strconv.Itoa(pid)
	n := b.InFlight[key] + delta
	if n <= 0 {
		delete(b.InFlight, key)
		return
	}
	b.InFlight[key] = n
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Version:  StateVersion,
		Backends: make(map[string]*BackendState),
	}
}

// backend returns the entry for origin, creating it on first use.
func (s *State) backend(origin string) *BackendState {
	if s.Backends == nil {
		s.Backends = make(map[string]*BackendState)
	}
	b, ok := s.Backends[origin]
	if !ok {
		b = &BackendState{Circuit: CircuitState{State: CircuitClosed}}
		s.Backends[origin] = b
	}
	return b
}
