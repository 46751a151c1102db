package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kosarica/crawler/internal/http/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() ratelimit.Config {
	return ratelimit.Config{
		RequestsPerSecond: 1000,
		MaxRetries:        2,
		InitialBackoffMs:  1,
		MaxBackoffMs:      2,
	}
}

func TestClientGetBytesReturnsBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	body, err := c.GetBytes(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestClientFailsImmediatelyOnNonRetryableStatus(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	_, err := c.GetBytes(srv.URL)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts, "404 is not retryable and must fail on the first attempt")
}

func TestClientRetriesRetryableStatusThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	body, err := c.GetBytes(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, 3, attempts)
}

func TestClientExhaustsRetriesOnPersistentServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	_, err := c.GetBytes(srv.URL)
	assert.Error(t, err)
	assert.Equal(t, 3, attempts) // initial + 2 retries
}
