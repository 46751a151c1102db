package database

import "time"

// Retailer holds the slug, name and created_at columns of one row of the
// retailers table; need_creds and is_active are not carried.
type Retailer struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store mirrors one row of the stores table.
type Store struct {
	ID           string    `json:"id"`
	RetailerSlug string    `json:"retailerSlug"`
	StoreCode    string    `json:"storeCode"`
	Name         *string   `json:"name,omitempty"`
	Address      *string   `json:"address,omitempty"`
	City         *string   `json:"city,omitempty"`
	ChainID      *string   `json:"chainId,omitempty"`
	SubChainID   *string   `json:"subChainId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Product holds one row of the products table, keyed by barcode
// independent of any single retailer. The quantity, is_weighted and
// image_url columns are not carried.
type Product struct {
	ID            string    `json:"id"`
	Barcode       string    `json:"barcode"`
	Name          *string   `json:"name,omitempty"`
	Manufacturer  *string   `json:"manufacturer,omitempty"`
	UnitQty       *string   `json:"unitQty,omitempty"`
	UnitOfMeasure *string   `json:"unitOfMeasure,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PriceSnapshot holds one append-only row of the price_snapshots table;
// the retailer_slug column is not carried.
type PriceSnapshot struct {
	ID         int64      `json:"id"`
	StoreID    string     `json:"storeId"`
	ProductID  string     `json:"productId"`
	Price      float64    `json:"price"`
	UnitPrice  *float64   `json:"unitPrice,omitempty"`
	IsOnSale   bool       `json:"isOnSale"`
	PromoPrice *float64   `json:"promoPrice,omitempty"`
	PromoStart *time.Time `json:"promoStart,omitempty"`
	PromoEnd   *time.Time `json:"promoEnd,omitempty"`
	FileDate   time.Time  `json:"fileDate"`
	ObservedAt time.Time  `json:"observedAt"`
	SourceFile string     `json:"sourceFile"`
}
