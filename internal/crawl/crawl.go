// Package crawl wires the orchestrator, adapters, and persistence
// gateway together into the single entrypoint both cmd/server's HTTP
// trigger and cmd/cli's run subcommand call.
package crawl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kosarica/crawler/config"
	"github.com/kosarica/crawler/internal/adapters"
	"github.com/kosarica/crawler/internal/adapters/downloadbutton"
	"github.com/kosarica/crawler/internal/adapters/filemanager"
	"github.com/kosarica/crawler/internal/adapters/flatlink"
	"github.com/kosarica/crawler/internal/archive"
	"github.com/kosarica/crawler/internal/credentials"
	"github.com/kosarica/crawler/internal/database"
	"github.com/kosarica/crawler/internal/datefilter"
	"github.com/kosarica/crawler/internal/http/ratelimit"
	"github.com/kosarica/crawler/internal/orchestrator"
	"github.com/kosarica/crawler/internal/storage"
	"github.com/kosarica/crawler/internal/types"
	"github.com/kosarica/crawler/internal/xmlparser"
	"github.com/rs/zerolog/log"
)

// Run selects the retailers matching selector ("all", "public-only",
// "credentialed-only", or a single retailer slug), runs them through the
// orchestrator, persists every parsed row, and returns the resulting
// manifest.
func Run(ctx context.Context, cfg *config.Config, selector string) (types.RunManifest, error) {
	creds := cfg.CredentialStore()
	retailers := selectRetailers(cfg.Retailers, selector, creds)
	if len(retailers) == 0 {
		return types.RunManifest{}, fmt.Errorf("crawl: selector %q matched no retailers", selector)
	}

	archiveStore, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return types.RunManifest{}, fmt.Errorf("crawl: opening archive storage: %w", err)
	}

	if err := database.Migrate(ctx); err != nil {
		return types.RunManifest{}, fmt.Errorf("crawl: migrating schema: %w", err)
	}

	for _, r := range retailers {
		needsCreds := requiresCredentials(r, creds)
		if err := database.UpsertRetailer(ctx, r.Slug, r.Name, needsCreds, !r.Disabled); err != nil {
			return types.RunManifest{}, fmt.Errorf("crawl: seeding retailer %s: %w", r.Slug, err)
		}
	}

	maxAge := time.Duration(cfg.Crawler.MaxFileAgeHours) * time.Hour
	limiters := ratelimit.NewRegistry(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		InitialBackoffMs:  cfg.RateLimit.InitialBackoffMs,
		MaxBackoffMs:      cfg.RateLimit.MaxBackoffMs,
	})
	orch := orchestrator.New(cfg.Crawler.FanOut, creds, adapterFactory(creds, limiters, maxAge), sinkFactory(archiveStore))

	manifest := orch.RunAll(ctx, retailers)

	pruneArchives(ctx, archiveStore, cfg.Storage.RetentionDays)

	return manifest, nil
}

// pruneArchives removes archived downloads older than the configured
// retention window. A zero or negative RetentionDays disables pruning, since
// an operator may want to keep every raw download indefinitely. Failures are
// logged rather than propagated: a stale archive left on disk past its
// retention window is a cleanup concern, not a reason to fail a crawl run
// that already persisted its parsed rows.
func pruneArchives(ctx context.Context, store *storage.LocalStorage, retentionDays int) {
	if retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed, err := store.PruneBefore(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("crawl: pruning archived downloads failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("crawl: pruned stale archived downloads")
	}
}

func adapterFactory(creds *credentials.Store, limiters *ratelimit.Registry, maxAge time.Duration) func(types.AdapterKind, types.Source) adapters.Adapter {
	return func(kind types.AdapterKind, source types.Source) adapters.Adapter {
		switch kind {
		case types.AdapterFileManager:
			return filemanager.New(creds, limiters, maxAge)
		case types.AdapterDownloadButton:
			return downloadbutton.New(maxAge)
		case types.AdapterFlatLink:
			return flatlink.New(limiters, maxAge)
		default:
			return nil
		}
	}
}

// sinkFactory builds one adapters.Sink per retailer, backed by a single
// StoreIDCache shared across every file that retailer downloads this run.
// The raw bytes are archived to store before extraction so a parser bug
// never loses the original download.
func sinkFactory(store *storage.LocalStorage) func(retailerSlug string) adapters.Sink {
	return func(retailerSlug string) adapters.Sink {
		storeCache := database.NewStoreIDCache()

		return func(ctx context.Context, filename string, content []byte) error {
			fileDate := time.Now()

			key := storage.BuildArchiveKey(retailerSlug, fileDate, filename)
			if err := store.Put(ctx, key, content, &storage.Metadata{
				OriginalName:   filename,
				ChainSlug:      retailerSlug,
				DownloadedAt:   fileDate,
				CompressedSize: int64(len(content)),
			}); err != nil {
				log.Warn().Err(err).Str("retailer", retailerSlug).Str("file", filename).
					Msg("crawl: archiving raw download failed, continuing to parse")
			}

			return PersistDownload(ctx, retailerSlug, content, filename, fileDate, storeCache)
		}
	}
}

func selectRetailers(all []types.Retailer, selector string, creds *credentials.Store) []types.Retailer {
	switch selector {
	case "", "all":
		return all
	case "public-only":
		return filterRetailers(all, func(r types.Retailer) bool { return !requiresCredentials(r, creds) })
	case "credentialed-only":
		return filterRetailers(all, func(r types.Retailer) bool { return requiresCredentials(r, creds) })
	default:
		return filterRetailers(all, func(r types.Retailer) bool { return strings.EqualFold(r.Slug, selector) })
	}
}

func requiresCredentials(r types.Retailer, creds *credentials.Store) bool {
	for _, s := range r.Sources {
		if s.Adapter == types.AdapterFileManager {
			return true
		}
	}
	return r.Credentials != nil && creds.Has(*r.Credentials)
}

func filterRetailers(all []types.Retailer, keep func(types.Retailer) bool) []types.Retailer {
	out := make([]types.Retailer, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// PersistDownload runs a downloaded container through the archive
// extractor and XML parser, persisting every price member it contains.
// Adapters call this once per successfully downloaded file, so a ZIP
// carrying both a price feed and its matching promotions feed arrives here
// as one batch: promotions are parsed first and applied to every price
// member in the same batch by barcode, rather than by matching filename
// stems, since retailers are not consistent about naming the two files as
// a pair.
func PersistDownload(ctx context.Context, retailerSlug string, content []byte, filename string, fileDate time.Time, storeCache *database.StoreIDCache) error {
	members, err := archive.Extract(content, filename)
	if err != nil {
		return fmt.Errorf("crawl: extracting %s: %w", filename, err)
	}

	promos, err := pairPromotions(members)
	if err != nil {
		log.Warn().Str("retailer", retailerSlug).Err(err).
			Msg("crawl: parsing promotions member failed, continuing without promo pricing")
	}

	for _, member := range members {
		if isPromoFile(member.InnerName) {
			continue
		}

		result, err := xmlparser.ParseFile(member.XML, promos)
		if err != nil {
			log.Warn().Str("retailer", retailerSlug).Str("file", member.InnerName).Err(err).
				Msg("crawl: skipping unparseable member")
			continue
		}

		if err := database.PersistParseResult(ctx, retailerSlug, result, fileDate, member.InnerName, storeCache); err != nil {
			return fmt.Errorf("crawl: persisting %s: %w", member.InnerName, err)
		}
	}

	return nil
}

// isPromoFile reports whether an archive member's name marks it as a
// promotions feed rather than a price feed, following the government
// schema's "Promo"/"PromoFull" filename prefix convention.
func isPromoFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "promo") || strings.Contains(lower, "מבצע")
}

// pairPromotions parses every promotions member found in one downloaded
// batch into a single combined set of PromoEntry rows. Promotion date
// fields are parsed as DMY: PersistDownload has no access to the
// originating Source's configured locale by the time a sink callback runs,
// and ISO-formatted date fields parse the same regardless of locale, so
// DMY only matters for the ambiguous NN/NN/YYYY case and is the more
// common convention among retailers that publish a separate promotions
// feed at all.
func pairPromotions(members []archive.Member) ([]xmlparser.PromoEntry, error) {
	var all []xmlparser.PromoEntry
	var firstErr error
	for _, m := range members {
		if !isPromoFile(m.InnerName) {
			continue
		}
		entries, err := xmlparser.ParsePromoFile(m.XML, string(datefilter.LocaleDMY))
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("crawl: parsing promotions member %s: %w", m.InnerName, err)
			}
			continue
		}
		all = append(all, entries...)
	}
	return all, firstErr
}
