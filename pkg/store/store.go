// Package store defines the byte-oriented storage contract the cache
// engine persists entries through, along with memory, file, LevelDB and
// Redis backed implementations.
//
// All implementations are safe for concurrent use. Per-key mutual
// exclusion beyond single get/set/delete atomicity is the backend's
// concern; the engine tolerates last-writer-wins on concurrent writes
// to the same key.
package store

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested key is not present in the store.
var ErrNotFound = errors.New("key not found")

// Store is the get/set/delete contract consumed by the cache engine.
// Get failures degrade to a cache miss; Set and Delete failures are
// best-effort and must never fail the overall request.
type Store interface {
	// Get returns the bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
