// Package govil fetches the gov.il price-transparency portal's listing of
// registered retailer chains and their declared file-feed roots, so the
// retailer configuration's sources can be auto-populated instead of
// hand-maintained one portal URL at a time. It is not run automatically
// during ingestion — only from the discover-retailers CLI subcommand —
// so a normal crawl run stays deterministic.
package govil

import (
	"encoding/json"
	"fmt"

	httpclient "github.com/kosarica/crawler/internal/http"
	"github.com/kosarica/crawler/internal/http/ratelimit"
	"github.com/kosarica/crawler/internal/types"
)

// ListingURL is the gov.il transparency portal's retailer directory
// endpoint.
const ListingURL = "https://url.retail.gov.il/api/retailers"

// Entry is one registered retailer as the portal reports it.
type Entry struct {
	Slug    string `json:"chainId"`
	Name    string `json:"chainName"`
	FileURL string `json:"filesUrl"`
}

// Discover fetches and parses the portal's current retailer listing, retrying
// transient failures with the shared rate-limit/backoff client since the
// discover subcommand runs unattended and a single flaky response should
// not force an operator to rerun it by hand.
func Discover() ([]Entry, error) {
	return discoverFrom(ListingURL, defaultClient())
}

func defaultClient() *httpclient.Client {
	return httpclient.NewClient(ratelimit.Config{
		RequestsPerSecond: 1,
		MaxRetries:        3,
		InitialBackoffMs:  500,
		MaxBackoffMs:      10000,
	})
}

// discoverFrom is Discover with the listing URL and client injected, so
// tests can point it at a local server instead of the real portal.
func discoverFrom(url string, client *httpclient.Client) ([]Entry, error) {
	body, err := client.GetBytes(url)
	if err != nil {
		return nil, fmt.Errorf("govil: fetching listing: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("govil: decoding listing: %w", err)
	}
	return entries, nil
}

// ToRetailers converts the portal's entries into retailer-config sources,
// defaulting every discovered feed to the flat-link adapter since the
// portal's directory does not distinguish login-gated portals from plain
// listings — operators still need to annotate the few exceptions by hand.
func ToRetailers(entries []Entry) []types.Retailer {
	retailers := make([]types.Retailer, 0, len(entries))
	for _, e := range entries {
		if e.Slug == "" || e.FileURL == "" {
			continue
		}
		retailers = append(retailers, types.Retailer{
			Slug: e.Slug,
			Name: e.Name,
			Sources: []types.Source{
				{Adapter: types.AdapterFlatLink, URL: e.FileURL},
			},
		})
	}
	return retailers
}
