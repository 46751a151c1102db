// Package ratelimit throttles outbound requests to government and retailer
// portals, several of which are hosted behind the same front door
// (cerberus-sector7 fronts more than one chain) and each enforce their own,
// undocumented tolerance for request bursts.
package ratelimit

import (
	"net/url"
	"sync"
	"time"
)

// Config holds rate limiting configuration
type Config struct {
	RequestsPerSecond int `json:"requestsPerSecond"`
	MaxRetries        int `json:"maxRetries"`
	InitialBackoffMs  int `json:"initialBackoffMs"`
	MaxBackoffMs      int `json:"maxBackoffMs"`
}

// DefaultConfig returns the default rate limit configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		MaxRetries:        3,
		InitialBackoffMs:  100,
		MaxBackoffMs:      30000,
	}
}

// WithOverrides returns DefaultConfig with the given overrides applied
func WithOverrides(overrides PartialConfig) Config {
	cfg := DefaultConfig()
	if overrides.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *overrides.RequestsPerSecond
	}
	if overrides.MaxRetries != nil {
		cfg.MaxRetries = *overrides.MaxRetries
	}
	if overrides.InitialBackoffMs != nil {
		cfg.InitialBackoffMs = *overrides.InitialBackoffMs
	}
	if overrides.MaxBackoffMs != nil {
		cfg.MaxBackoffMs = *overrides.MaxBackoffMs
	}
	return cfg
}

// PartialConfig allows partial configuration overrides
type PartialConfig struct {
	RequestsPerSecond *int `json:"requestsPerSecond,omitempty"`
	MaxRetries        *int `json:"maxRetries,omitempty"`
	InitialBackoffMs  *int `json:"initialBackoffMs,omitempty"`
	MaxBackoffMs      *int `json:"maxBackoffMs,omitempty"`
}

// RateLimiter spaces requests at least 1/RequestsPerSecond apart; it allows
// no bursts
type RateLimiter struct {
	config     Config
	lastRequest int64 // Unix nanoseconds of last request
}

// NewRateLimiter creates a new rate limiter with the given config
func NewRateLimiter(config Config) *RateLimiter {
	return &RateLimiter{
		config:     config,
		lastRequest: 0,
	}
}

// NewRateLimiterDefault creates a rate limiter with default config
func NewRateLimiterDefault() *RateLimiter {
	return NewRateLimiter(DefaultConfig())
}

// GetConfig returns the current configuration
func (r *RateLimiter) GetConfig() Config {
	return r.config
}

// SetConfig updates the configuration
func (r *RateLimiter) SetConfig(config Config) {
	r.config = config
}

// Throttle waits to ensure rate limits are respected
// Call this before making a request
func (r *RateLimiter) Throttle() error {
	now := time.Now().UnixNano()
	minInterval := int64(1000_000_000 / r.config.RequestsPerSecond) // nanoseconds

	elapsed := now - r.lastRequest
	if elapsed < minInterval {
		waitTime := minInterval - elapsed
		time.Sleep(time.Duration(waitTime))
	}

	r.lastRequest = time.Now().UnixNano()
	return nil
}

// Reset resets the rate limiter state
// Useful for testing or after long pauses
func (r *RateLimiter) Reset() {
	r.lastRequest = 0
}

// Registry hands out one RateLimiter per host, so two different adapters
// downloading from the same portal throttle each other instead of each
// keeping its own clock and doubling the effective request rate against
// that host. Hosts never seen before get a limiter built from config on
// first use.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*RateLimiter
	config   Config
}

// NewRegistry builds a Registry that lazily creates per-host limiters using
// config as the shared starting point.
func NewRegistry(config Config) *Registry {
	return &Registry{
		limiters: make(map[string]*RateLimiter),
		config:   config,
	}
}

// Config returns the configuration new per-host limiters are built from.
func (reg *Registry) Config() Config {
	return reg.config
}

// Limiter returns the RateLimiter for host, creating one if this is the
// first request seen for it.
func (reg *Registry) Limiter(host string) *RateLimiter {
	reg.mu.RLock()
	rl, ok := reg.limiters[host]
	reg.mu.RUnlock()
	if ok {
		return rl
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if rl, ok := reg.limiters[host]; ok {
		return rl
	}
	rl = NewRateLimiter(reg.config)
	reg.limiters[host] = rl
	return rl
}

// LimiterForURL resolves rawURL to its host and returns that host's
// limiter. Unparseable URLs share a single fallback limiter keyed by the
// empty host, since they cannot be meaningfully partitioned.
func (reg *Registry) LimiterForURL(rawURL string) *RateLimiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	return reg.Limiter(host)
}
