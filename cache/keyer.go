package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Keyer generates deterministic cache keys for API requests.
//
// Contract:
// - Determinism: the same logical request must produce the same key,
//   regardless of the order query parameters were added in.
// - Layout: keys must start with "<namespace>:<path>" so that mutating
//   calls can invalidate a whole resource by key prefix.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key builds the cache key for one request.
	Key(namespace, method, path string, query url.Values) (string, error)

	// Prefix builds the invalidation prefix covering every cached
	// request under path (the collection and its items).
	Prefix(namespace, path string) string
}

// RequestKeyer is the default Keyer. Keys have the form
//
//	<namespace>:<path>:<hash>
//
// where hash is the first 16 hex characters of
// SHA-256("<method> <path>?<canonical query>"). The method participates
// in the hash, not the prefix, so invalidation by path covers all verbs.
type RequestKeyer struct{}

// NewRequestKeyer creates a RequestKeyer.
func NewRequestKeyer() *RequestKeyer {
	return &RequestKeyer{}
}

// Key builds the cache key for one request.
func (k *RequestKeyer) Key(namespace, method, path string, query url.Values) (string, error) {
	if namespace == "" || path == "" {
		return "", ErrInvalidKey
	}

	sig := method + " " + path + "?" + canonicalQuery(query)
	sum := sha256.Sum256([]byte(sig))
	key := fmt.Sprintf("%s:%s:%s", namespace, path, hex.EncodeToString(sum[:8]))

	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Prefix builds the invalidation prefix for path.
func (k *RequestKeyer) Prefix(namespace, path string) string {
	return namespace + ":" + path
}

// canonicalQuery serializes query parameters sorted by key, values
// sorted within each key.
func canonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for j, v := range values {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Ensure RequestKeyer implements Keyer
var _ Keyer = (*RequestKeyer)(nil)
