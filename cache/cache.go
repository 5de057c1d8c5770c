package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache stores API responses for idempotent reads.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Expiry: Get must never return an entry past its TTL.
// - Errors: Get never errors; it returns (nil, false) on miss. Set
//   failures are non-fatal to callers: a request must succeed even when
//   its result could not be cached.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL. TTL<=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes one key. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key with the given prefix and returns
	// how many were removed. Used by mutating calls to invalidate a
	// resource's entries before returning to the caller.
	DeletePrefix(ctx context.Context, prefix string) int

	// Len reports the number of live entries, expired ones included
	// until their lazy removal.
	Len() int
}

// ValidateKey checks if a key is usable for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
