package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
)

// Cache stores values for a bounded time.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Get never errors; it returns the zero value and false on miss.
type Cache[V any] interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (V, bool)

	// Set stores value for ttl. A ttl <= 0 stores nothing.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key derives the cache key of a credential: "cred:" followed by the hex
// SHA-256 of the credential.
func Key(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return "cred:" + hex.EncodeToString(sum[:])
}
