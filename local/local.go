// Package local defines the in-process tier: a byte store with per-entry
// lifetimes, the fastest path a Resolve can take.
//
// Implementations MUST be safe for concurrent use and byte-for-byte
// transparent: Get must return exactly the same []byte previously passed to
// Set for a key - no prepended metadata, no re-encoding, no mutation.
//
// The tier is not persisted across restarts; that is acceptable because any
// process can fall back to the remote tier or the origin.
package local

import (
	"context"
	"time"
)

// Store is the local-tier contract.
type Store interface {
	// Get returns (value, true, nil) on a live hit; (nil, false, nil) when
	// the key is absent or its entry has expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. The entry's expiry is fixed at
	// write time and never extended by reads. Returns ok=false when the
	// store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// PrefixDeleter is implemented by stores that can enumerate keys and remove
// every entry under a prefix. Stores without enumeration simply don't
// implement it.
type PrefixDeleter interface {
	DelPrefix(ctx context.Context, prefix string) error
}
