// Package settings holds per-domain runtime configuration with a global
// fallback. Values set for the reserved "global" scope apply to every domain
// that does not override them.
package settings

import (
	"context"
	"encoding/json"
)

// Settings for one domain. JSON names are the setting keys.
type Settings struct {
	SearchPeers        []string `json:"search_peers"`
	PreferPeers        bool     `json:"prefer_peers"`
	SpamThreshold      float64  `json:"spam_threshold"`
	BadWords           []string `json:"bad_words"`
	MinQueryWordLength int      `json:"min_query_word_length"`
	DefaultExpiryDays  int      `json:"default_expiry_days"`
	ReadAuthRequired   bool     `json:"read_auth_required"`
	SearchAuthRequired bool     `json:"search_auth_required"`
}

// Defaults apply when neither the domain nor the global scope sets a key.
func Defaults() Settings {
	return Settings{
		SpamThreshold:      0.5,
		BadWords:           []string{"viagra", "cialis", "casino", "lottery", "xxx", "porn"},
		MinQueryWordLength: 2,
		DefaultExpiryDays:  0,
	}
}

// Store persists raw setting values keyed by (domain, name).
type Store interface {
	Load(ctx context.Context, domain string) (map[string]json.RawMessage, error)
	Save(ctx context.Context, domain, name string, value json.RawMessage) error
}
