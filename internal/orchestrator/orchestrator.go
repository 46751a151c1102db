// Package orchestrator runs one retailer's declared Sources in priority
// order, dispatching each to the matching adapter and stopping as soon as
// one source yields at least one download — later sources exist as
// fallbacks for when an earlier one is down, not as additional feeds to
// always exhaust.
package orchestrator

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kosarica/crawler/internal/adapters"
	"github.com/kosarica/crawler/internal/concurrency"
	"github.com/kosarica/crawler/internal/credentials"
	"github.com/kosarica/crawler/internal/sysmetrics"
	"github.com/kosarica/crawler/internal/types"
	"github.com/rs/zerolog/log"
)

// Orchestrator dispatches retailer sources to adapters under a bounded
// concurrency controller.
type Orchestrator struct {
	controller  *concurrency.Controller
	credentials *credentials.Store
	adapterFor  func(types.AdapterKind, types.Source) adapters.Adapter
	sinkFor     func(retailerSlug string) adapters.Sink
}

// New builds an Orchestrator with the given fan-out and credential store.
// adapterFor is injected so tests can substitute fake adapters without
// spinning up a real browser. sinkFor builds the archive-and-persist
// callback for one retailer's run; it is called once per RunRetailer call
// so a retailer's downloads all share one store-ID cache.
func New(fanOut int, creds *credentials.Store, adapterFor func(types.AdapterKind, types.Source) adapters.Adapter, sinkFor func(retailerSlug string) adapters.Sink) *Orchestrator {
	return &Orchestrator{
		controller:  concurrency.NewController(fanOut),
		credentials: creds,
		adapterFor:  adapterFor,
		sinkFor:     sinkFor,
	}
}

// RunRetailer tries retailer's sources in declared priority order,
// stopping at the first source whose adapter reports at least one
// download. It acquires a concurrency-controller slot for the duration of
// the whole retailer run, not per source, since all sources for one
// retailer share a single browser context lifecycle.
func (o *Orchestrator) RunRetailer(ctx context.Context, retailer types.Retailer) types.RetailerResult {
	release, err := o.controller.Acquire(ctx)
	if err != nil {
		return types.RetailerResult{RetailerSlug: retailer.Slug, Err: err}
	}
	defer release()

	sysmetrics.LogSnapshot(retailer.Slug + ":context-open")
	defer func() {
		sysmetrics.LogSnapshot(retailer.Slug + ":context-close")
		runtime.GC()
	}()

	seen := adapters.NewSeen()
	sink := o.sinkFor(retailer.Slug)
	var last types.RetailerResult

	credKey := retailer.Slug
	if retailer.Credentials != nil && *retailer.Credentials != "" {
		credKey = *retailer.Credentials
	}

	sources := make([]types.Source, len(retailer.Sources))
	copy(sources, retailer.Sources)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority > sources[j].Priority
	})

	for _, source := range sources {
		if source.CredentialKey == "" {
			source.CredentialKey = credKey
		}

		kind := resolveAdapterKind(source)
		adapter := o.adapterFor(kind, source)
		if adapter == nil {
			log.Warn().Str("retailer", retailer.Slug).Str("kind", string(kind)).
				Msg("orchestrator: no adapter registered for source kind")
			continue
		}

		result := adapter.Run(ctx, retailer.Slug, source, seen, sink)
		result.LinksSeen += last.LinksSeen
		result.Downloaded += last.Downloaded
		result.SkippedDuplicate += last.SkippedDuplicate
		result.Reasons = append(last.Reasons, result.Reasons...)
		last = result

		if result.Downloaded > 0 {
			return last
		}
	}

	return last
}

// RunAll runs every retailer concurrently, returning a manifest covering
// the whole batch. Retailer runs race ahead independently; the shared
// concurrency controller inside RunRetailer caps how many hold a browser
// context at once, so fanning every retailer out here does not overrun the
// configured fan-out limit.
func (o *Orchestrator) RunAll(ctx context.Context, retailers []types.Retailer) types.RunManifest {
	manifest := types.RunManifest{StartedAt: time.Now()}
	results := make([]types.RetailerResult, len(retailers))

	var wg sync.WaitGroup
	for i, r := range retailers {
		wg.Add(1)
		go func(i int, r types.Retailer) {
			defer wg.Done()
			results[i] = o.RunRetailer(ctx, r)
		}(i, r)
	}
	wg.Wait()

	manifest.Results = results
	manifest.EndedAt = time.Now()
	return manifest
}

// resolveAdapterKind returns source's explicit adapter tag, falling back
// to a host-based heuristic for configuration that only specifies a URL:
// publishedprices.co.il hosts are always the authenticated file-manager
// family, binaprojects.com hosts are always the download-button family,
// and everything else defaults to flat-link.
func resolveAdapterKind(source types.Source) types.AdapterKind {
	if source.Adapter != "" {
		return source.Adapter
	}

	host := strings.ToLower(source.URL)
	switch {
	case strings.Contains(host, "publishedprices"):
		return types.AdapterFileManager
	case strings.Contains(host, "binaprojects"):
		return types.AdapterDownloadButton
	default:
		return types.AdapterFlatLink
	}
}
