// Package types holds the domain model shared across the crawler: retailers,
// sources, stores, products, price snapshots, and the intermediate values
// that flow between the archive extractor, XML parser, adapters and the
// persistence gateway.
package types

import "time"

// AdapterKind names one of the three adapter families a Source can bind to.
type AdapterKind string

const (
	AdapterFileManager    AdapterKind = "file_manager"
	AdapterDownloadButton AdapterKind = "download_button"
	AdapterFlatLink       AdapterKind = "flat_link"
)

// Retailer is one grocery chain publishing price data under the
// transparency regulation.
type Retailer struct {
	Slug        string   `json:"slug" yaml:"slug"`
	Name        string   `json:"name" yaml:"name"`
	Credentials *string  `json:"credentialsKey,omitempty" yaml:"credentials_key,omitempty" mapstructure:"credentials_key"`
	Disabled    bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Sources     []Source `json:"sources" yaml:"sources"`
}

// Source is one declared way to reach a retailer's published files. Within
// a retailer's Sources slice, higher Priority sources are tried first; a
// zero-value Priority still works for single-source retailers since ties
// fall back to declared order (sort.SliceStable).
type Source struct {
	Adapter       AdapterKind       `json:"adapter" yaml:"adapter"`
	URL           string            `json:"url" yaml:"url"`
	Priority      int               `json:"priority,omitempty" yaml:"priority,omitempty"`
	DateLocale    string            `json:"dateLocale,omitempty" yaml:"date_locale,omitempty" mapstructure:"date_locale"`
	DateIndex     bool              `json:"dateIndex,omitempty" yaml:"date_index,omitempty" mapstructure:"date_index"`
	Subfolder     string            `json:"subfolder,omitempty" yaml:"subfolder,omitempty"`
	CredentialKey string            `json:"credentialKey,omitempty" yaml:"credential_key,omitempty" mapstructure:"credential_key"`
	Options       map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Store is a single physical location operated by a retailer.
type Store struct {
	ID            string  `json:"id"`
	RetailerSlug  string  `json:"retailerSlug"`
	StoreCode     string  `json:"storeCode"`
	Name          string  `json:"name"`
	Address       *string `json:"address,omitempty"`
	City          *string `json:"city,omitempty"`
	ChainID       *string `json:"chainId,omitempty"`
	SubChainID    *string `json:"subChainId,omitempty"`
}

// Product is one sellable item keyed by barcode, independent of retailer.
type Product struct {
	ID            string   `json:"id"`
	Barcode       string   `json:"barcode"`
	Name          string   `json:"name"`
	Manufacturer  *string  `json:"manufacturer,omitempty"`
	UnitQty       *string  `json:"unitQty,omitempty"`
	UnitOfMeasure *string  `json:"unitOfMeasure,omitempty"`
	Quantity      *float64 `json:"quantity,omitempty"`
	IsWeighted    bool     `json:"isWeighted"`
	ImageURL      *string  `json:"imageUrl,omitempty"`
}

// PriceSnapshot is one append-only observation of a product's price at a
// point in time. RetailerSlug is always present; StoreID is nil when the
// parsed row carried no resolvable store (some feeds report chain-wide
// prices with no store header).
type PriceSnapshot struct {
	RetailerSlug  string     `json:"retailerSlug"`
	StoreID       *string    `json:"storeId,omitempty"`
	ProductID     string     `json:"productId"`
	Price         float64    `json:"price"`
	UnitPrice     *float64   `json:"unitPrice,omitempty"`
	IsOnSale      bool       `json:"isOnSale"`
	PromoPrice    *float64   `json:"promoPrice,omitempty"`
	PromoStart    *time.Time `json:"promoStart,omitempty"`
	PromoEnd      *time.Time `json:"promoEnd,omitempty"`
	FileDate      time.Time  `json:"fileDate"`
	ObservedAt    time.Time  `json:"observedAt"`
	SourceFile    string     `json:"sourceFile"`
}

// DiscoveredFile is one link an adapter surfaced on a retailer's portal,
// before it has been downloaded.
type DiscoveredFile struct {
	URL          string
	Filename     string
	RetailerSlug string
	FileDate     *time.Time
}

// DownloadedFile is the byte content of a DiscoveredFile, fetched and
// hashed, prior to archive extraction.
type DownloadedFile struct {
	DiscoveredFile
	Content  []byte
	MD5Hex   string
}

// ArchiveMember is one (inner-name, xml-bytes) pair produced by the
// archive extractor from a downloaded container.
type ArchiveMember struct {
	InnerName string
	XML       []byte
}

// StoreMetadata is the subset of store fields an XML file's header/store
// section can declare, used to enrich the Store row with non-empty values.
type StoreMetadata struct {
	StoreCode  string
	Name       string
	Address    string
	City       string
	ChainID    string
	SubChainID string
}

// ParsedRow is one product/price line extracted from a retailer XML file.
type ParsedRow struct {
	Barcode       string
	ItemName      string
	Manufacturer  string
	UnitQty       string
	UnitOfMeasure string
	Quantity      *float64
	IsWeighted    bool
	ImageURL      string
	Price         float64
	UnitPrice     float64
	IsOnSale      bool
	PromoPrice    float64
	PromoStart    *time.Time
	PromoEnd      *time.Time
}

// ParseResult is the outcome of parsing one ArchiveMember.
type ParseResult struct {
	Store StoreMetadata
	Rows  []ParsedRow
}

// RetailerResult summarizes one retailer's orchestration run: how many
// links were seen, how many downloads happened, and why the rest were
// skipped. Mirrors the run-manifest entry persisted per retailer.
type RetailerResult struct {
	RetailerSlug    string
	LinksSeen       int
	Downloaded      int
	SkippedDuplicate int
	Reasons         []string
	Err             error
}

// RunManifest aggregates RetailerResult across an entire crawl run.
type RunManifest struct {
	StartedAt time.Time
	EndedAt   time.Time
	Results   []RetailerResult
}
