package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/kosarica/crawler/internal/adapters"
	"github.com/kosarica/crawler/internal/credentials"
	"github.com/kosarica/crawler/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter lets tests script a canned RetailerResult per source without
// spinning up a real browser context. calls is a pointer to an int64 rather
// than an int since RunAll now dispatches retailers concurrently and the
// same fakeAdapter instance can be invoked from more than one goroutine.
type fakeAdapter struct {
	result types.RetailerResult
	calls  *int64
}

func (f *fakeAdapter) Run(ctx context.Context, retailerSlug string, source types.Source, seen *adapters.Seen, sink adapters.Sink) types.RetailerResult {
	atomic.AddInt64(f.calls, 1)
	return f.result
}

func noopSinkFor(string) adapters.Sink {
	return func(ctx context.Context, filename string, content []byte) error { return nil }
}

func TestRunRetailerShortCircuitsOnFirstSuccessfulSource(t *testing.T) {
	var firstCalls, secondCalls int64
	first := &fakeAdapter{result: types.RetailerResult{Downloaded: 2}, calls: &firstCalls}
	second := &fakeAdapter{result: types.RetailerResult{Downloaded: 5}, calls: &secondCalls}

	o := New(1, credentials.NewStore(nil), func(kind types.AdapterKind, s types.Source) adapters.Adapter {
		if kind == types.AdapterFlatLink {
			return first
		}
		return second
	}, noopSinkFor)

	retailer := types.Retailer{
		Slug: "victory",
		Sources: []types.Source{
			{Adapter: types.AdapterFlatLink, URL: "https://example.test/a"},
			{Adapter: types.AdapterDownloadButton, URL: "https://example.test/b"},
		},
	}

	result := o.RunRetailer(context.Background(), retailer)

	assert.Equal(t, 2, result.Downloaded)
	assert.EqualValues(t, 1, firstCalls)
	assert.EqualValues(t, 0, secondCalls, "second source must not run once the first yields a download")
}

func TestRunRetailerFallsThroughWhenEarlierSourcesYieldNothing(t *testing.T) {
	var firstCalls, secondCalls int64
	first := &fakeAdapter{result: types.RetailerResult{Downloaded: 0, Reasons: []string{"empty_listing"}}, calls: &firstCalls}
	second := &fakeAdapter{result: types.RetailerResult{Downloaded: 3}, calls: &secondCalls}

	o := New(1, credentials.NewStore(nil), func(kind types.AdapterKind, s types.Source) adapters.Adapter {
		if kind == types.AdapterFlatLink {
			return first
		}
		return second
	}, noopSinkFor)

	retailer := types.Retailer{
		Slug: "shufersal",
		Sources: []types.Source{
			{Adapter: types.AdapterFlatLink, URL: "https://example.test/a"},
			{Adapter: types.AdapterDownloadButton, URL: "https://example.test/b"},
		},
	}

	result := o.RunRetailer(context.Background(), retailer)

	assert.Equal(t, 3, result.Downloaded)
	assert.EqualValues(t, 1, firstCalls)
	assert.EqualValues(t, 1, secondCalls)
	assert.Contains(t, result.Reasons, "empty_listing")
}

func TestRunAllAggregatesEveryRetailer(t *testing.T) {
	var calls int64
	adapter := &fakeAdapter{result: types.RetailerResult{Downloaded: 1}, calls: &calls}

	o := New(2, credentials.NewStore(nil), func(types.AdapterKind, types.Source) adapters.Adapter {
		return adapter
	}, noopSinkFor)

	retailers := []types.Retailer{
		{Slug: "a", Sources: []types.Source{{Adapter: types.AdapterFlatLink}}},
		{Slug: "b", Sources: []types.Source{{Adapter: types.AdapterFlatLink}}},
	}

	manifest := o.RunAll(context.Background(), retailers)
	require.Len(t, manifest.Results, 2)
	assert.False(t, manifest.EndedAt.Before(manifest.StartedAt))
}

func TestRunRetailerTriesSourcesInPriorityOrder(t *testing.T) {
	var firstCalls, secondCalls int64
	low := &fakeAdapter{result: types.RetailerResult{Downloaded: 0}, calls: &firstCalls}
	high := &fakeAdapter{result: types.RetailerResult{Downloaded: 4}, calls: &secondCalls}

	o := New(1, credentials.NewStore(nil), func(kind types.AdapterKind, s types.Source) adapters.Adapter {
		if kind == types.AdapterFlatLink {
			return low
		}
		return high
	}, noopSinkFor)

	// Declared in low-priority-first order; RunRetailer must still try the
	// higher-priority download-button source before the flat-link one.
	retailer := types.Retailer{
		Slug: "rami-levy",
		Sources: []types.Source{
			{Adapter: types.AdapterFlatLink, URL: "https://example.test/a", Priority: 1},
			{Adapter: types.AdapterDownloadButton, URL: "https://example.test/b", Priority: 10},
		},
	}

	result := o.RunRetailer(context.Background(), retailer)

	assert.Equal(t, 4, result.Downloaded)
	assert.EqualValues(t, 1, secondCalls, "higher-priority source must run first")
	assert.EqualValues(t, 0, firstCalls, "lower-priority source must not run once the higher one succeeds")
}

func TestRunRetailerDefaultsCredentialKeyFromRetailerCredentials(t *testing.T) {
	var seen types.Source
	capturing := &capturingAdapter{seen: &seen}

	o := New(1, credentials.NewStore(nil), func(types.AdapterKind, types.Source) adapters.Adapter {
		return capturing
	}, noopSinkFor)

	credKey := "victory-creds"
	retailer := types.Retailer{
		Slug:        "victory",
		Credentials: &credKey,
		Sources:     []types.Source{{Adapter: types.AdapterFileManager, URL: "https://example.test/login"}},
	}

	o.RunRetailer(context.Background(), retailer)

	assert.Equal(t, "victory-creds", seen.CredentialKey)
}

func TestRunRetailerDefaultsCredentialKeyToSlugWhenRetailerHasNone(t *testing.T) {
	var seen types.Source
	capturing := &capturingAdapter{seen: &seen}

	o := New(1, credentials.NewStore(nil), func(types.AdapterKind, types.Source) adapters.Adapter {
		return capturing
	}, noopSinkFor)

	retailer := types.Retailer{
		Slug:    "shufersal",
		Sources: []types.Source{{Adapter: types.AdapterFileManager, URL: "https://example.test/login"}},
	}

	o.RunRetailer(context.Background(), retailer)

	assert.Equal(t, "shufersal", seen.CredentialKey)
}

// capturingAdapter records the source it was invoked with, for asserting on
// fields RunRetailer fills in before dispatch (CredentialKey).
type capturingAdapter struct {
	seen *types.Source
}

func (c *capturingAdapter) Run(ctx context.Context, retailerSlug string, source types.Source, seen *adapters.Seen, sink adapters.Sink) types.RetailerResult {
	*c.seen = source
	return types.RetailerResult{}
}

func TestResolveAdapterKindHostHeuristic(t *testing.T) {
	assert.Equal(t, types.AdapterFileManager, resolveAdapterKind(types.Source{URL: "https://url.publishedprices.co.il/login"}))
	assert.Equal(t, types.AdapterDownloadButton, resolveAdapterKind(types.Source{URL: "https://chain.binaprojects.com/MainIO_Hok.aspx"}))
	assert.Equal(t, types.AdapterFlatLink, resolveAdapterKind(types.Source{URL: "https://example.test/prices"}))
	assert.Equal(t, types.AdapterFileManager, resolveAdapterKind(types.Source{Adapter: types.AdapterFileManager, URL: "https://example.test/prices"}))
}
