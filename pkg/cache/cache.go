// Package cache provides a generic, thread-safe in-memory cache with
// built-in statistics (always enabled for observability) and optional
// Prometheus metrics integration via functional options.
//
// The cache has no eviction policy: entries live until explicitly deleted
// or cleared. GetOrCompute offers an atomic check-then-insert so that
// concurrent callers compute a missing value at most once.
package cache

import (
	"github.com/c360/sousschef/errors"
)

// Cache represents a generic cache interface.
// The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found, zero value and false otherwise.
	Get(key string) (V, bool)

	// GetOrCompute returns the value for key, computing and inserting it
	// if absent. The check, compute, and insert run as one atomic step:
	// concurrent callers for the same key observe at most one compute.
	// Returns the value, whether it was computed (false on a hit), and
	// any error from compute. A compute error inserts nothing.
	GetOrCompute(key string, compute func() (V, error)) (V, bool, error)

	// Set stores a value with the given key. Returns true if a new entry was created, false if updated.
	// Returns an error if the operation fails (e.g., invalid key).
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed and was deleted.
	// Returns an error if the operation fails.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	// Returns an error if the operation fails.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics.
	Stats() *Statistics

	// Close shuts down the cache and releases any resources.
	Close() error
}

// EvictCallback is called when an entry is removed from the cache.
// It receives the key and value of the removed entry.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
// Returns a classified error if the key is invalid.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
