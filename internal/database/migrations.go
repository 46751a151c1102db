package database

import "context"

// schema is the crawler's full DDL, applied as plain CREATE TABLE IF NOT
// EXISTS statements at connect time. The teacher carries no separate
// migration framework (no golang-migrate in its dependency graph) and
// neither does this module; schema changes are additive and safe to
// re-run.
const schema = `
CREATE TABLE IF NOT EXISTS retailers (
	slug       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	need_creds BOOLEAN NOT NULL DEFAULT false,
	is_active  BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stores (
	id             TEXT PRIMARY KEY,
	retailer_slug  TEXT NOT NULL REFERENCES retailers(slug),
	store_code     TEXT NOT NULL,
	name           TEXT,
	address        TEXT,
	city           TEXT,
	chain_id       TEXT,
	sub_chain_id   TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (retailer_slug, store_code)
);

CREATE TABLE IF NOT EXISTS products (
	id               TEXT PRIMARY KEY,
	barcode          TEXT NOT NULL UNIQUE,
	name             TEXT,
	manufacturer     TEXT,
	unit_qty         TEXT,
	unit_of_measure  TEXT,
	quantity         NUMERIC(12,3),
	is_weighted      BOOLEAN NOT NULL DEFAULT false,
	image_url        TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_snapshots (
	id             BIGSERIAL PRIMARY KEY,
	retailer_slug  TEXT NOT NULL REFERENCES retailers(slug),
	store_id       TEXT REFERENCES stores(id),
	product_id     TEXT NOT NULL REFERENCES products(id),
	price          NUMERIC(12,2) NOT NULL,
	unit_price     NUMERIC(12,4),
	is_on_sale     BOOLEAN NOT NULL DEFAULT false,
	promo_price    NUMERIC(12,2),
	promo_start    TIMESTAMPTZ,
	promo_end      TIMESTAMPTZ,
	file_date      DATE NOT NULL,
	observed_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	source_file    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_snapshots_retailer_product
	ON price_snapshots (retailer_slug, product_id, observed_at DESC);
CREATE INDEX IF NOT EXISTS idx_price_snapshots_store_product
	ON price_snapshots (store_id, product_id, observed_at DESC);
`

// Migrate applies the crawler's schema. Safe to call on every process
// start.
func Migrate(ctx context.Context) error {
	_, err := Pool().Exec(ctx, schema)
	return err
}
