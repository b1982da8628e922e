package resilience

import "time"

// CircuitBreaker fails fast after repeated backend failures and lets a
// limited number of probes through once OpenTimeout has passed.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	store  *Store
	origin string
	now    func() time.Time
}

// NewCircuitBreaker returns a breaker for origin. Zero config fields take
// the defaults.
func NewCircuitBreaker(store *Store, origin string, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config.withDefaults(),
		store:  store,
		origin: origin,
		now:    time.Now,
	}
}

// Allow reports whether a request may proceed. In half-open state it
// reserves a probe slot that RecordSuccess or RecordFailure frees.
// Storage errors allow the request.
func (cb *CircuitBreaker) Allow() (bool, error) {
	state, err := cb.store.Load()
	if err != nil {
		return true, nil //nolint:nilerr // fail open
	}
	// Closed is the common case and needs no write.
	if state.backend(cb.origin).Circuit.closed() {
		return true, nil
	}

	var allowed bool
	err = cb.store.Update(func(s *State) error {
		allowed = cb.admit(&s.backend(cb.origin).Circuit, cb.now())
		return nil
	})
	if err != nil {
		return true, nil //nolint:nilerr // fail open
	}
	return allowed, nil
}

func (cb *CircuitBreaker) admit(c *CircuitState, now time.Time) bool {
	switch {
	case c.closed():
		return true
	case c.open():
		if now.Sub(c.OpenedAt) < cb.config.OpenTimeout {
			return false
		}
		c.State = CircuitHalfOpen
		c.Successes = 0
		c.Failures = 0
		c.Probes = 0
	}

	// Half-open: probe slots left behind by a crashed process expire.
	if c.Probes >= cb.config.MaxProbes && !c.LastProbeAt.IsZero() &&
		now.Sub(c.LastProbeAt) >= cb.config.StaleProbeTimeout {
		c.Probes = 0
	}
	if c.Probes >= cb.config.MaxProbes {
		return false
	}
	c.Probes++
	c.LastProbeAt = now
	return true
}

// RecordSuccess records a healthy response.
func (cb *CircuitBreaker) RecordSuccess() error {
	return cb.store.Update(func(s *State) error {
		c := &s.backend(cb.origin).Circuit
		switch {
		case c.halfOpen():
			if c.Probes > 0 {
				c.Probes--
			}
			c.Successes++
			if c.Successes >= cb.config.SuccessThreshold {
				*c = CircuitState{State: CircuitClosed, LastFailureAt: c.LastFailureAt}
			}
		case c.closed():
			c.Failures = 0
		}
		return nil
	})
}

// RecordFailure records a network error or 5xx response.
func (cb *CircuitBreaker) RecordFailure() error {
	return cb.store.Update(func(s *State) error {
		c := &s.backend(cb.origin).Circuit
		now := cb.now()
		c.LastFailureAt = now

		switch {
		case c.closed():
			c.Failures++
			if c.Failures >= cb.config.FailureThreshold {
				c.State = CircuitOpen
				c.OpenedAt = now
			}
		case c.halfOpen():
			c.State = CircuitOpen
			c.OpenedAt = now
			c.Successes = 0
			c.Probes = 0
			c.LastProbeAt = time.Time{}
		}
		return nil
	})
}

// State returns closed, open or half_open. An open circuit whose timeout
// has passed reports half_open.
func (cb *CircuitBreaker) State() (string, error) {
	state, err := cb.store.Load()
	if err != nil {
		return CircuitClosed, err
	}
	c := state.backend(cb.origin).Circuit
	if c.open() && cb.now().Sub(c.OpenedAt) >= cb.config.OpenTimeout {
		return CircuitHalfOpen, nil
	}
	if c.State == "" {
		return CircuitClosed, nil
	}
	return c.State, nil
}

// RetryIn returns how long until an open circuit starts probing.
func (cb *CircuitBreaker) RetryIn() time.Duration {
	state, err := cb.store.Load()
	if err != nil {
		return 0
	}
	c := state.backend(cb.origin).Circuit
	if !c.open() {
		return 0
	}
	if d := cb.config.OpenTimeout - cb.now().Sub(c.OpenedAt); d > 0 {
		return d
	}
	return 0
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() error {
	return cb.store.Update(func(s *State) error {
		s.backend(cb.origin).Circuit = CircuitState{State: CircuitClosed}
		return nil
	})
}
