// Package adapters defines the contract every retailer-portal adapter
// implements, and the dedup bookkeeping the orchestrator threads through
// all of them for a single run.
package adapters

import (
	"context"

	"github.com/kosarica/crawler/internal/types"
)

// Seen tracks the two dedup keys the orchestrator uses across every
// source it tries for a retailer within one run: a file's content hash
// (so the same bytes published under two URLs only download once) and
// its normalized name (retailer slug + lowercased filename, catching
// same-named re-uploads whose bytes changed trivially, e.g. a re-saved
// timestamp in a comment field).
type Seen struct {
	Hashes map[string]struct{}
	Names  map[string]struct{}
}

// NewSeen builds an empty Seen set.
func NewSeen() *Seen {
	return &Seen{Hashes: map[string]struct{}{}, Names: map[string]struct{}{}}
}

// CheckAndMark reports whether (hash, normalizedName) was already seen,
// and if not, marks it seen. Callers skip the file when this returns true.
func (s *Seen) CheckAndMark(hash, normalizedName string) bool {
	_, byHash := s.Hashes[hash]
	_, byName := s.Names[normalizedName]
	if byHash || byName {
		return true
	}
	s.Hashes[hash] = struct{}{}
	s.Names[normalizedName] = struct{}{}
	return false
}

// Adapter discovers and downloads a retailer's published files from one
// Source. Implementations own their own browser-context lifecycle.
type Adapter interface {
	Run(ctx context.Context, retailerSlug string, source types.Source, seen *Seen, sink Sink) types.RetailerResult
}

// Sink archives and persists one successfully downloaded, deduped file.
// An adapter only counts a file toward RetailerResult.Downloaded once sink
// returns nil; a sink error is treated the same as a download error so a
// retailer never reports success for rows that never made it to storage.
type Sink func(ctx context.Context, filename string, content []byte) error

// NormalizedName builds the name half of the dedup key.
func NormalizedName(retailerSlug, filename string) string {
	return retailerSlug + "/" + toLower(filename)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
