// Package remote defines the shared cross-process tier. The store is
// modeled as unreliable: latency is unbounded, and absence and connection
// failure are equivalent non-fatal outcomes for the coordinator's race -
// the coordinator must never let a slow remote delay an origin result that
// has already completed.
//
// Implementations MUST be safe for concurrent use and byte-for-byte
// transparent, like the local tier.
package remote

import (
	"context"
	"time"
)

// Store is the remote-tier contract.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) when the key
	// is absent. IO/remote errors come back as (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// PrefixDeleter is implemented by stores that can enumerate keys and remove
// every entry under a prefix.
type PrefixDeleter interface {
	DelPrefix(ctx context.Context, prefix string) error
}
