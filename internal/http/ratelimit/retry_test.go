package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableStatusAcceptsRateLimitAndServerErrors(t *testing.T) {
	assert.True(t, IsRetryableStatus(429))
	assert.True(t, IsRetryableStatus(500))
	assert.True(t, IsRetryableStatus(503))
	assert.False(t, IsRetryableStatus(404))
	assert.False(t, IsRetryableStatus(200))
}

func TestCalculateBackoffGrowsExponentiallyAndRespectsCap(t *testing.T) {
	cfg := Config{InitialBackoffMs: 100, MaxBackoffMs: 1000}

	first := CalculateBackoff(0, cfg)
	second := CalculateBackoff(1, cfg)
	assert.True(t, second > first, "backoff should grow with attempt number")

	capped := CalculateBackoff(10, cfg)
	assert.LessOrEqual(t, capped, 1250*time.Millisecond) // cap plus jitter headroom
}

func TestCalculateRateLimitBackoffRespectsRetryAfterHeader(t *testing.T) {
	cfg := DefaultConfig()
	retryAfter := "5"
	backoff := CalculateRateLimitBackoff(0, cfg, &retryAfter)
	assert.GreaterOrEqual(t, backoff, 5*time.Second)
	assert.Less(t, backoff, 6*time.Second)
}

func TestCalculateRateLimitBackoffFallsBackToExponentialWithoutHeader(t *testing.T) {
	cfg := Config{InitialBackoffMs: 100, MaxBackoffMs: 10000}
	backoff := CalculateRateLimitBackoff(0, cfg, nil)
	assert.Greater(t, backoff, time.Duration(0))
}

func TestFetchRetryErrorIncludesStatusAndUnderlyingError(t *testing.T) {
	err := &FetchRetryError{
		URL:        "https://portal.example.com/a.xml",
		Attempts:   3,
		LastStatus: 503,
		LastError:  assertErr{"connection reset"},
	}
	msg := err.Error()
	assert.Contains(t, msg, "https://portal.example.com/a.xml")
	assert.Contains(t, msg, "3 attempts")
	assert.Contains(t, msg, "503")
	assert.Contains(t, msg, "connection reset")
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
