package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryReturnsTheSameLimiterForRepeatedHost(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	a := reg.Limiter("portal.example.com")
	b := reg.Limiter("portal.example.com")
	assert.Same(t, a, b)
}

func TestRegistryGivesDifferentHostsIndependentLimiters(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	a := reg.Limiter("chain-a.example.com")
	b := reg.Limiter("chain-b.example.com")
	assert.NotSame(t, a, b)
}

func TestLimiterForURLGroupsByHostIgnoringPath(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	a := reg.LimiterForURL("https://portal.example.com/files/a.xml")
	b := reg.LimiterForURL("https://portal.example.com/other/b.zip")
	assert.Same(t, a, b)
}

func TestLimiterForURLFallsBackToSharedLimiterOnParseFailure(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	a := reg.LimiterForURL("://not-a-url")
	b := reg.LimiterForURL("")
	assert.Same(t, a, b)
}

func TestRegistryConfigReturnsTheConfigNewLimitersAreBuiltFrom(t *testing.T) {
	cfg := Config{RequestsPerSecond: 5, MaxRetries: 1, InitialBackoffMs: 10, MaxBackoffMs: 20}
	reg := NewRegistry(cfg)
	assert.Equal(t, cfg, reg.Config())
}
