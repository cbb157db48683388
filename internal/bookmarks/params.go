package bookmarks

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultCount    = 15
	DefaultCacheTTL = 1800
)

// Params selects one bookmark list. CacheTTL is in seconds.
type Params struct {
	Account  string `json:"user_id"`
	Tags     string `json:"tags"`
	Count    int    `json:"num_item"`
	CacheTTL int    `json:"cache_expiry"`
}

func (p Params) Validate() error {
	switch {
	case p.Account == "":
		return NewLoadError(ErrNotConfigured, "", fmt.Errorf("account is required"))
	case !ValidAccount(p.Account):
		return NewLoadError(ErrNotConfigured, "", fmt.Errorf("account %q is not alphanumeric", p.Account))
	case p.Count <= 0:
		return NewLoadError(ErrNotConfigured, "", fmt.Errorf("count must be a positive integer"))
	case p.CacheTTL <= 0:
		return NewLoadError(ErrNotConfigured, "", fmt.Errorf("cache expiry must be a positive integer"))
	}
	return nil
}

func (p Params) TTL() time.Duration {
	return time.Duration(p.CacheTTL) * time.Second
}

// CacheKey is a hex SHA-256 over every field of p.
func (p Params) CacheKey() string {
	data, _ := json.Marshal(p)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// ValidAccount reports whether account is non-empty ASCII letters and digits.
func ValidAccount(account string) bool {
	if account == "" {
		return false
	}
	for _, r := range account {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
