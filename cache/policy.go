package cache

import (
	"strings"
	"time"
)

// TTLRule binds an endpoint-path pattern to a cache TTL.
type TTLRule struct {
	// Pattern is matched with strings.Contains against request paths.
	Pattern string

	// TTL is how long matching responses stay cached. Zero disables
	// caching for matching paths.
	TTL time.Duration
}

// TTLTable resolves request paths to TTLs. Like the rate-limit table,
// resolution is an ordered linear scan with first-match-wins semantics;
// insertion order is significant.
type TTLTable struct {
	rules      []TTLRule
	defaultTTL time.Duration
}

// NewTTLTable creates a TTL table. defaultTTL applies to paths matching
// no rule; zero disables caching for them.
func NewTTLTable(defaultTTL time.Duration, rules []TTLRule) *TTLTable {
	return &TTLTable{
		rules:      append([]TTLRule(nil), rules...),
		defaultTTL: defaultTTL,
	}
}

// TTL returns the cache TTL for path.
func (t *TTLTable) TTL(path string) time.Duration {
	for _, rule := range t.rules {
		if strings.Contains(path, rule.Pattern) {
			return rule.TTL
		}
	}
	return t.defaultTTL
}

// Cacheable reports whether responses for path should be cached at all.
func (t *TTLTable) Cacheable(path string) bool {
	return t.TTL(path) > 0
}
