package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/output"
)

var _ api.Gate = (*Gate)(nil)

// Sentinel causes carried by the errors Admit returns.
var (
	ErrRateLimited  = errors.New("rate limited")
	ErrBulkheadFull = errors.New("too many concurrent requests")
	ErrCircuitOpen  = errors.New("circuit open")
)

type slotKey struct{}

// Gate admits backend requests through the rate limiter, the bulkhead and
// the circuit breaker, in that order, and feeds outcomes back to them.
type Gate struct {
	circuitBreaker *CircuitBreaker
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	retryAfter     time.Duration
}

// NewGate combines the primitives. Any of them may be nil.
func NewGate(cb *CircuitBreaker, rl *RateLimiter, bh *Bulkhead) *Gate {
	g := &Gate{circuitBreaker: cb, rateLimiter: rl, bulkhead: bh}
	g.retryAfter = DefaultConfig().RateLimiter.DefaultRetryAfter
	if rl != nil {
		g.retryAfter = rl.config.DefaultRetryAfter
	}
	return g
}

// NewGateFromConfig builds all three primitives for origin.
func NewGateFromConfig(store *Store, origin string, cfg *Config) *Gate {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return NewGate(
		NewCircuitBreaker(store, origin, cfg.CircuitBreaker),
		NewRateLimiter(store, origin, cfg.RateLimiter),
		NewBulkhead(store, origin, cfg.Bulkhead),
	)
}

// Admit checks the primitives before a request is sent. The circuit
// breaker goes last because a half-open probe slot, once reserved, is
// only freed by Done; an earlier rejection would leak it.
func (g *Gate) Admit(ctx context.Context, _ api.RequestInfo) (context.Context, error) {
	if g.rateLimiter != nil {
		if ok, _ := g.rateLimiter.Allow(); !ok {
			e := output.ErrRateLimit(int(math.Ceil(g.rateLimiter.BlockedFor().Seconds())))
			e.HTTPStatus = 0
			e.Cause = ErrRateLimited
			return ctx, e
		}
	}

	if g.bulkhead != nil {
		if ok, _ := g.bulkhead.Acquire(); !ok {
			return ctx, unavailable("Too many concurrent requests", "Wait for other studysync commands to finish", ErrBulkheadFull)
		}
		ctx = context.WithValue(ctx, slotKey{}, true)
	}

	if g.circuitBreaker != nil {
		if ok, _ := g.circuitBreaker.Allow(); !ok {
			g.release(ctx)
			hint := "The backend is failing; try again shortly"
			if d := g.circuitBreaker.RetryIn(); d > 0 {
				hint = fmt.Sprintf("The backend is failing; try again in %s", d.Round(time.Second))
			}
			return ctx, unavailable("Backend temporarily unavailable", hint, ErrCircuitOpen)
		}
	}
	return ctx, nil
}

// Done releases the bulkhead slot and records the outcome. Network errors
// and 5xx trip the circuit; 4xx do not. Retry-After blocks the limiter.
func (g *Gate) Done(ctx context.Context, _ api.RequestInfo, result api.RequestResult) {
	g.release(ctx)

	if g.circuitBreaker != nil {
		failed := result.StatusCode >= 500 ||
			(result.Err != nil && !errors.Is(result.Err, context.Canceled))
		switch {
		case failed:
			_ = g.circuitBreaker.RecordFailure()
		case result.Err == nil:
			_ = g.circuitBreaker.RecordSuccess()
		}
	}

	if g.rateLimiter != nil {
		switch {
		case result.RetryAfter > 0:
			_ = g.rateLimiter.Block(time.Duration(result.RetryAfter) * time.Second)
		case result.StatusCode == http.StatusTooManyRequests:
			_ = g.rateLimiter.Block(g.retryAfter)
		}
	}
}

func (g *Gate) release(ctx context.Context) {
	if held, _ := ctx.Value(slotKey{}).(bool); held && g.bulkhead != nil {
		_ = g.bulkhead.Release()
	}
}

// Status summarizes the gate for display.
type Status struct {
	Circuit      string        `json:"circuit"`
	Tokens       float64       `json:"tokens"`
	BlockedFor   time.Duration `json:"blocked_for"`
	InFlight     int           `json:"in_flight"`
	CircuitRetry time.Duration `json:"circuit_retry_in"`
}

// Status reads the current state of every primitive.
func (g *Gate) Status() Status {
	var st Status
	if g.circuitBreaker != nil {
		st.Circuit, _ = g.circuitBreaker.State()
		st.CircuitRetry = g.circuitBreaker.RetryIn()
	}
	if g.rateLimiter != nil {
		st.Tokens, _ = g.rateLimiter.Tokens()
		st.BlockedFor = g.rateLimiter.BlockedFor()
	}
	if g.bulkhead != nil {
		st.InFlight, _ = g.bulkhead.InUse()
	}
	return st
}

// Reset clears the circuit and the limiter.
func (g *Gate) Reset() error {
	var errs []error
	if g.circuitBreaker != nil {
		errs = append(errs, g.circuitBreaker.Reset())
	}
	if g.rateLimiter != nil {
		errs = append(errs, g.rateLimiter.Reset())
	}
	return errors.Join(errs...)
}

func unavailable(msg, hint string, cause error) *output.Error {
	e := output.ErrUnavailable(msg, hint)
	e.Cause = cause
	return e
}
