package crawl

import (
	"context"
	"testing"
	"time"

	"github.com/kosarica/crawler/internal/archive"
	"github.com/kosarica/crawler/internal/credentials"
	"github.com/kosarica/crawler/internal/storage"
	"github.com/kosarica/crawler/internal/types"
)

func testRetailers() []types.Retailer {
	fmKey := "shufersal"
	return []types.Retailer{
		{
			Slug: "shufersal",
			Name: "Shufersal",
			Sources: []types.Source{
				{Adapter: types.AdapterFileManager, URL: "https://login.example.com"},
			},
			Credentials: &fmKey,
		},
		{
			Slug: "victory",
			Name: "Victory",
			Sources: []types.Source{
				{Adapter: types.AdapterFlatLink, URL: "https://files.example.com"},
			},
		},
	}
}

func testCreds() *credentials.Store {
	return credentials.NewStore(map[string]credentials.Pair{
		"shufersal": {Username: "u", Password: "p"},
	})
}

func TestSelectRetailersAllReturnsEveryRetailer(t *testing.T) {
	got := selectRetailers(testRetailers(), "all", testCreds())
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}

	got = selectRetailers(testRetailers(), "", testCreds())
	if len(got) != 2 {
		t.Fatalf("empty selector: len(got) = %d, want 2", len(got))
	}
}

func TestSelectRetailersPublicOnlyExcludesFileManagerSources(t *testing.T) {
	got := selectRetailers(testRetailers(), "public-only", testCreds())
	if len(got) != 1 || got[0].Slug != "victory" {
		t.Fatalf("got %+v, want only victory", got)
	}
}

func TestSelectRetailersCredentialedOnlyKeepsOnlyFileManagerSources(t *testing.T) {
	got := selectRetailers(testRetailers(), "credentialed-only", testCreds())
	if len(got) != 1 || got[0].Slug != "shufersal" {
		t.Fatalf("got %+v, want only shufersal", got)
	}
}

func TestSelectRetailersMatchesSingleSlugCaseInsensitively(t *testing.T) {
	got := selectRetailers(testRetailers(), "SHUFERSAL", testCreds())
	if len(got) != 1 || got[0].Slug != "shufersal" {
		t.Fatalf("got %+v, want only shufersal", got)
	}

	got = selectRetailers(testRetailers(), "not-a-retailer", testCreds())
	if len(got) != 0 {
		t.Fatalf("got %+v, want none", got)
	}
}

func TestIsPromoFileMatchesPromoPrefixCaseInsensitively(t *testing.T) {
	cases := map[string]bool{
		"Promo7290027600007-001-202607300600.xml":     true,
		"PromoFull7290027600007-001-202607300600.xml": true,
		"promofull.xml":                                true,
		"Price7290027600007-001-202607300600.xml":     false,
		"PriceFull.xml":                                false,
	}
	for name, want := range cases {
		if got := isPromoFile(name); got != want {
			t.Errorf("isPromoFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPairPromotionsCombinesEveryPromoMemberInABatch(t *testing.T) {
	const promoXML = `<Root><Promotions>
		<Promotion>
			<DiscountedPrice>5.50</DiscountedPrice>
			<Item><ItemCode>7290000000017</ItemCode></Item>
		</Promotion>
	</Promotions></Root>`

	members := []archive.Member{
		{InnerName: "PriceFull.xml", XML: []byte(`<Root></Root>`)},
		{InnerName: "PromoFull.xml", XML: []byte(promoXML)},
	}

	entries, err := pairPromotions(members)
	if err != nil {
		t.Fatalf("pairPromotions: %v", err)
	}
	if len(entries) != 1 || entries[0].Barcode != "7290000000017" {
		t.Fatalf("got %+v, want a single entry for barcode 7290000000017", entries)
	}
}

func TestPairPromotionsSkipsBatchesWithNoPromoMember(t *testing.T) {
	members := []archive.Member{
		{InnerName: "PriceFull.xml", XML: []byte(`<Root></Root>`)},
	}

	entries, err := pairPromotions(members)
	if err != nil {
		t.Fatalf("pairPromotions: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %+v, want none", entries)
	}
}

func TestPruneArchivesSkipsWhenRetentionDisabled(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	key := storage.BuildArchiveKey("shufersal", old, "a.xml")
	if err := store.Put(context.Background(), key, []byte("a"), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	pruneArchives(context.Background(), store, 0)

	exists, err := store.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("expected the archived file to survive a disabled retention window")
	}
}

func TestPruneArchivesRemovesFilesOlderThanRetentionWindow(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	old := time.Now().AddDate(0, 0, -100)
	key := storage.BuildArchiveKey("shufersal", old, "a.xml")
	if err := store.Put(context.Background(), key, []byte("a"), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	pruneArchives(context.Background(), store, 90)

	exists, err := store.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("expected the archived file to be pruned past its retention window")
	}
}
