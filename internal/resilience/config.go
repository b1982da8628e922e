package resilience

import "time"

// Config holds the settings of all three primitives.
type Config struct {
	CircuitBreaker CircuitBreakerConfig
	RateLimiter    RateLimiterConfig
	Bulkhead       BulkheadConfig
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	// MaxProbes bounds concurrent half-open requests.
	MaxProbes int
	// StaleProbeTimeout frees probe slots held by crashed processes.
	StaleProbeTimeout time.Duration
}

// RateLimiterConfig configures the token bucket.
type RateLimiterConfig struct {
	MaxTokens  float64
	RefillRate float64 // tokens per second
	// DefaultRetryAfter applies to a 429 without a Retry-After header.
	DefaultRetryAfter time.Duration
}

// BulkheadConfig bounds concurrent requests across processes.
type BulkheadConfig struct {
	MaxConcurrent int
}

// DefaultConfig returns settings sized for one user's CLI traffic.
func DefaultConfig() *Config {
	return &Config{
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold:  5,
			SuccessThreshold:  2,
			OpenTimeout:       30 * time.Second,
			MaxProbes:         1,
			StaleProbeTimeout: 2 * time.Minute,
		},
		RateLimiter: RateLimiterConfig{
			MaxTokens:         50,
			RefillRate:        10,
			DefaultRetryAfter: 60 * time.Second,
		},
		Bulkhead: BulkheadConfig{
			MaxConcurrent: 16,
		},
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	d := DefaultConfig().CircuitBreaker
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.MaxProbes <= 0 {
		c.MaxProbes = d.MaxProbes
	}
	if c.StaleProbeTimeout <= 0 {
		c.StaleProbeTimeout = 4 * c.OpenTimeout
	}
	return c
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	d := DefaultConfig().RateLimiter
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.RefillRate <= 0 {
		c.RefillRate = d.RefillRate
	}
	if c.DefaultRetryAfter <= 0 {
		c.DefaultRetryAfter = d.DefaultRetryAfter
	}
	return c
}
