package download

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/kosarica/crawler/internal/http/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *Fetcher {
	jar, _ := cookiejar.New(nil)
	cfg := ratelimit.DefaultConfig()
	cfg.RequestsPerSecond = 1000 // don't slow the test suite down
	return NewFetcher(jar, ratelimit.NewRegistry(cfg))
}

func TestFetchReturnsContentAndFilenameFromContentDisposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="PriceFull.xml"`)
		w.Write([]byte("<Root/>"))
	}))
	defer srv.Close()

	res, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "PriceFull.xml", res.Filename)
	assert.Equal(t, "<Root/>", string(res.Content))
}

func TestFetchDecodesRFC5987FilenameStar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename*=UTF-8''%D7%9E%D7%97%D7%99%D7%A8.xml`)
		w.Write([]byte("<Root/>"))
	}))
	defer srv.Close()

	res, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "מחיר.xml", res.Filename)
}

func TestFetchFallsBackToURLBasename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("content"))
	}))
	defer srv.Close()

	res, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/files/PriceFull.gz")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "PriceFull.gz", res.Filename)
}

func TestFetchTreats404And403AsSoftSkip(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		res, err := newTestFetcher().Fetch(context.Background(), srv.URL)
		assert.NoError(t, err)
		assert.Nil(t, res)
		srv.Close()
	}
}

func TestFetchRetriesThenFailsOnPersistent500(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	jar, _ := cookiejar.New(nil)
	cfg := ratelimit.DefaultConfig()
	cfg.RequestsPerSecond = 1000
	cfg.MaxRetries = 2
	cfg.InitialBackoffMs = 1
	cfg.MaxBackoffMs = 2

	_, err := NewFetcher(jar, ratelimit.NewRegistry(cfg)).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Equal(t, 3, attempts) // initial try + 2 retries
}
