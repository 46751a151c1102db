// Package credentials holds the login pairs the authenticated
// file-manager adapter needs, keyed by retailer. Retailer slugs in the
// configuration file and the keys used in the credentials source rarely
// agree on casing, so lookups fall back to a case-insensitive match and
// log when that fallback fires.
package credentials

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Pair is one retailer's file-manager login.
type Pair struct {
	Username string
	Password string
}

// Store is a process-wide credential lookup table.
type Store struct {
	mu  sync.RWMutex
	byKey map[string]Pair
}

// NewStore builds a Store from a map of tenant key to credential pair,
// typically loaded from config via viper.
func NewStore(raw map[string]Pair) *Store {
	byKey := make(map[string]Pair, len(raw))
	for k, v := range raw {
		byKey[k] = v
	}
	return &Store{byKey: byKey}
}

// Lookup returns the credentials for key, trying an exact match first and
// a case-insensitive match second. The bool result reports whether any
// pair was found.
func (s *Store) Lookup(key string) (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.byKey[key]; ok {
		return p, true
	}

	lower := strings.ToLower(key)
	for k, p := range s.byKey {
		if strings.ToLower(k) == lower {
			log.Debug().Str("requested", key).Str("matched", k).
				Msg("credentials: case-insensitive key fallback")
			return p, true
		}
	}

	return Pair{}, false
}

// Has reports whether key resolves to a stored credential pair, without
// retrieving it.
func (s *Store) Has(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}
