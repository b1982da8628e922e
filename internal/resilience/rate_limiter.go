package resilience

import "time"

// RateLimiter is a token bucket shared across processes. A Retry-After
// from the backend blocks it until the window passes.
type RateLimiter struct {
	config RateLimiterConfig
	store  *Store
	origin string
	now    func() time.Time
}

// NewRateLimiter returns a limiter for origin.
func NewRateLimiter(store *Store, origin string, config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		config: config.withDefaults(),
		store:  store,
		origin: origin,
		now:    time.Now,
	}
}

func (rl *RateLimiter) refill(l *LimiterState, now time.Time) {
	if l.LastRefillAt.IsZero() {
		l.Tokens = rl.config.MaxTokens
		l.LastRefillAt = now
		return
	}
	if elapsed := now.Sub(l.LastRefillAt); elapsed > 0 {
		l.Tokens = min(rl.config.MaxTokens, l.Tokens+elapsed.Seconds()*rl.config.RefillRate)
	}
	l.LastRefillAt = now
}

// Allow takes one token. It returns false while blocked by Retry-After or
// when the bucket is empty. Storage errors allow the request.
func (rl *RateLimiter) Allow() (bool, error) {
	var allowed bool
	err := rl.store.Update(func(s *State) error {
		l := &s.backend(rl.origin).Limiter
		now := rl.now()
		if now.Before(l.BlockedUntil) {
			return nil
		}
		rl.refill(l, now)
		if l.Tokens >= 1 {
			l.Tokens--
			allowed = true
		}
		return nil
	})
	if err != nil {
		return true, nil //nolint:nilerr // fail open
	}
	return allowed, nil
}

// Block refuses requests for d. A shorter block never shortens a longer one.
func (rl *RateLimiter) Block(d time.Duration) error {
	until := rl.now().Add(d)
	return rl.store.Update(func(s *State) error {
		l := &s.backend(rl.origin).Limiter
		if until.After(l.BlockedUntil) {
			l.BlockedUntil = until
		}
		return nil
	})
}

// BlockedFor returns the remaining Retry-After window.
func (rl *RateLimiter) BlockedFor() time.Duration {
	state, err := rl.store.Load()
	if err != nil {
		return 0
	}
	if d := state.backend(rl.origin).Limiter.BlockedUntil.Sub(rl.now()); d > 0 {
		return d
	}
	return 0
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() (float64, error) {
	var tokens float64
	err := rl.store.Update(func(s *State) error {
		l := &s.backend(rl.origin).Limiter
		rl.refill(l, rl.now())
		tokens = l.Tokens
		return nil
	})
	return tokens, err
}

// Reset refills the bucket and lifts any block.
func (rl *RateLimiter) Reset() error {
	return rl.store.Update(func(s *State) error {
		s.backend(rl.origin).Limiter = LimiterState{Tokens: rl.config.MaxTokens, LastRefillAt: rl.now()}
		return nil
	})
}
