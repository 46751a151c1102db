package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kosarica/crawler/internal/pkg/cuid2"
	"github.com/kosarica/crawler/internal/types"
)

// UpsertRetailer ensures a retailers row exists for slug, leaving name
// untouched on repeat calls unless a non-empty name is supplied.
// needsCredentials and isActive are recomputed from configuration on every
// run rather than preserved, since they describe the current deployment's
// intent rather than an enrichable fact about the retailer.
func UpsertRetailer(ctx context.Context, slug, name string, needsCredentials, isActive bool) error {
	_, err := Pool().Exec(ctx, `
		INSERT INTO retailers (slug, name, need_creds, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			name       = COALESCE(NULLIF(EXCLUDED.name, ''), retailers.name),
			need_creds = EXCLUDED.need_creds,
			is_active  = EXCLUDED.is_active
	`, slug, name, needsCredentials, isActive)
	return err
}

// UpsertStore inserts or enriches a store row. Enrichment is
// non-empty-preserving: a blank field in meta never clobbers a
// previously-known value, since later files for the same store often omit
// fields an earlier file populated (e.g. a promotions-only feed carries no
// address).
func UpsertStore(ctx context.Context, retailerSlug string, meta types.StoreMetadata) (string, error) {
	if meta.StoreCode == "" {
		return "", fmt.Errorf("database: store metadata missing store code for retailer %s", retailerSlug)
	}

	id := cuid2.GeneratePrefixedId("str", cuid2.PrefixedIdOptions{})

	var storeID string
	err := Pool().QueryRow(ctx, `
		INSERT INTO stores (id, retailer_slug, store_code, name, address, city, chain_id, sub_chain_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
		ON CONFLICT (retailer_slug, store_code) DO UPDATE SET
			name         = COALESCE(NULLIF(EXCLUDED.name, ''), stores.name),
			address      = COALESCE(NULLIF(EXCLUDED.address, ''), stores.address),
			city         = COALESCE(NULLIF(EXCLUDED.city, ''), stores.city),
			chain_id     = COALESCE(NULLIF(EXCLUDED.chain_id, ''), stores.chain_id),
			sub_chain_id = COALESCE(NULLIF(EXCLUDED.sub_chain_id, ''), stores.sub_chain_id),
			updated_at   = now()
		RETURNING id
	`, id, retailerSlug, meta.StoreCode, meta.Name, meta.Address, meta.City, meta.ChainID, meta.SubChainID).
		Scan(&storeID)
	if err != nil {
		return "", fmt.Errorf("database: upserting store %s/%s: %w", retailerSlug, meta.StoreCode, err)
	}
	return storeID, nil
}

// UpsertProduct inserts or enriches a product row keyed by barcode,
// independent of retailer, with the same non-empty-preserving semantics
// as UpsertStore.
func UpsertProduct(ctx context.Context, row types.ParsedRow) (string, error) {
	id := cuid2.GeneratePrefixedId("prd", cuid2.PrefixedIdOptions{})

	var productID string
	err := Pool().QueryRow(ctx, `
		INSERT INTO products (id, barcode, name, manufacturer, unit_qty, unit_of_measure, quantity, is_weighted, image_url)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, NULLIF($9, ''))
		ON CONFLICT (barcode) DO UPDATE SET
			name            = COALESCE(NULLIF(EXCLUDED.name, ''), products.name),
			manufacturer    = COALESCE(NULLIF(EXCLUDED.manufacturer, ''), products.manufacturer),
			unit_qty        = COALESCE(NULLIF(EXCLUDED.unit_qty, ''), products.unit_qty),
			unit_of_measure = COALESCE(NULLIF(EXCLUDED.unit_of_measure, ''), products.unit_of_measure),
			quantity        = COALESCE(EXCLUDED.quantity, products.quantity),
			is_weighted     = products.is_weighted OR EXCLUDED.is_weighted,
			image_url       = COALESCE(NULLIF(EXCLUDED.image_url, ''), products.image_url),
			updated_at      = now()
		RETURNING id
	`, id, row.Barcode, row.ItemName, row.Manufacturer, row.UnitQty, row.UnitOfMeasure, row.Quantity, row.IsWeighted, row.ImageURL).
		Scan(&productID)
	if err != nil {
		return "", fmt.Errorf("database: upserting product %s: %w", row.Barcode, err)
	}
	return productID, nil
}

// InsertPriceSnapshot appends one price observation. Snapshots are never
// updated in place: each parsed row becomes a new row here, preserving
// history per the append-only requirement. storeID may be empty when the
// parsed file carried no resolvable store; the row is still persisted
// against its retailer with a NULL store_id.
func InsertPriceSnapshot(ctx context.Context, retailerSlug, storeID, productID string, row types.ParsedRow, fileDate time.Time, sourceFile string) error {
	var promoPrice *float64
	if row.IsOnSale {
		promoPrice = &row.PromoPrice
	}

	_, err := Pool().Exec(ctx, `
		INSERT INTO price_snapshots (
			retailer_slug, store_id, product_id, price, unit_price, is_on_sale,
			promo_price, promo_start, promo_end, file_date, source_file
		) VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, 0), $6, $7, $8, $9, $10, $11)
	`, retailerSlug, storeID, productID, row.Price, row.UnitPrice, row.IsOnSale,
		promoPrice, row.PromoStart, row.PromoEnd, fileDate, sourceFile)
	if err != nil {
		return fmt.Errorf("database: inserting price snapshot for %s: %w", row.Barcode, err)
	}
	return nil
}

// StoreIDCache memoizes retailer/store-code -> store ID lookups for as long
// as the caller keeps it; internal/crawl shares one per retailer across
// every file that retailer downloads in a run, since its files commonly
// repeat the same handful of stores.
type StoreIDCache struct {
	mu    sync.Mutex
	cache map[string]string
}

// NewStoreIDCache builds an empty StoreIDCache.
func NewStoreIDCache() *StoreIDCache {
	return &StoreIDCache{cache: map[string]string{}}
}

// Resolve returns the store ID for retailerSlug/meta.StoreCode, upserting
// on first sight and reusing the cached ID on every later call with the
// same retailer and store code.
func (c *StoreIDCache) Resolve(ctx context.Context, retailerSlug string, meta types.StoreMetadata) (string, error) {
	key := retailerSlug + "/" + meta.StoreCode

	c.mu.Lock()
	if id, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	id, err := UpsertStore(ctx, retailerSlug, meta)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cache[key] = id
	c.mu.Unlock()
	return id, nil
}

// PersistParseResult upserts the retailer's store (when the file carried
// one), every product row it mentions, and appends one price snapshot per
// row, in that order — Retailer, then Store, then Product, then
// PriceSnapshot — so a snapshot never references a store or product row
// that does not yet exist. A file with no resolvable store still persists
// its rows, attributed to the retailer with a NULL store_id.
func PersistParseResult(ctx context.Context, retailerSlug string, result *types.ParseResult, fileDate time.Time, sourceFile string, storeCache *StoreIDCache) error {
	var storeID string
	if result.Store.StoreCode != "" {
		id, err := storeCache.Resolve(ctx, retailerSlug, result.Store)
		if err != nil {
			return err
		}
		storeID = id
	}

	for _, row := range result.Rows {
		productID, err := UpsertProduct(ctx, row)
		if err != nil {
			return err
		}
		if err := InsertPriceSnapshot(ctx, retailerSlug, storeID, productID, row, fileDate, sourceFile); err != nil {
			return err
		}
	}
	return nil
}
