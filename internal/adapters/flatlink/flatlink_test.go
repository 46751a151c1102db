package flatlink

import (
	"reflect"
	"testing"
	"time"
)

func TestFilterCandidatesKeepsOnlyRecentPriceFileSuffixes(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	in := []string{
		"https://example.com/PriceFull7290000000017-001-202607300600.xml",
		"https://example.com/promo-20260730.gz",
		"https://example.com/archive-2026-07-29.zip",
		"https://example.com/about.html",
		"https://example.com/logo.png",
		"https://example.com/download?file=Price-20260730.XML",
	}

	got := filterCandidates(in, "iso", 48*time.Hour, now)
	want := []string{
		"https://example.com/PriceFull7290000000017-001-202607300600.xml",
		"https://example.com/promo-20260730.gz",
		"https://example.com/download?file=Price-20260730.XML",
	}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("filterCandidates() = %v, want to contain %q", got, w)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("filterCandidates() = %v, want exactly %v", got, want)
	}
}

func TestFilterCandidatesExcludesFilesWithNoExtractableDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	in := []string{"https://example.com/PriceFull.xml"}

	got := filterCandidates(in, "iso", 48*time.Hour, now)
	if len(got) != 0 {
		t.Fatalf("filterCandidates() = %v, want none: an undated link must be excluded, not assumed recent", got)
	}
}

func TestFilterCandidatesExcludesStaleFiles(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	in := []string{"https://example.com/PriceFull-20260101.xml"}

	got := filterCandidates(in, "iso", 48*time.Hour, now)
	if len(got) != 0 {
		t.Fatalf("filterCandidates() = %v, want none: file is far older than maxAge", got)
	}
}

func TestDedupeSortedRemovesDuplicatesAndSorts(t *testing.T) {
	in := []string{"b.xml", "a.xml", "b.xml", "c.xml"}
	got := dedupeSorted(in)
	want := []string{"a.xml", "b.xml", "c.xml"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dedupeSorted() = %v, want %v", got, want)
	}
}

func TestDedupeSortedHandlesEmptyInput(t *testing.T) {
	got := dedupeSorted(nil)
	if len(got) != 0 {
		t.Fatalf("dedupeSorted(nil) = %v, want empty", got)
	}
}
