package tiercache

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	cd "github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/local"
	"github.com/unkn0wn-root/tiercache/remote"
)

// Codec is re-exported for convenience -> tiercache.Codec[Page] or codec.Codec[Page].
type Codec[V any] = cd.Codec[V]

// Loader produces a value from origin. It is supplied per Resolve call and
// must honor ctx if it blocks. A loader may be invoked zero times (local
// hit), or once, even under heavy caller concurrency.
type Loader[V any] func(ctx context.Context) (V, error)

// Cache is the high-level multi-tier cache API. V is the caller's value
// type; serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	// Enabled reports whether the tiers are in use. Disable flips the
	// process-wide switch so Resolve calls the loader directly; the switch
	// is re-read at the start of every Resolve.
	Enabled() bool
	Enable()
	Disable()

	// Resolve returns the value for opts.Key from the fastest tier able to
	// produce it, recomputing from load when both tiers miss.
	Resolve(ctx context.Context, opts ResolveOptions, load Loader[V]) (V, error)

	// Purge removes the key from both tiers and forgets any pending flight
	// so the next Resolve starts fresh work.
	Purge(ctx context.Context, key string) error

	// PurgePrefix removes every entry under prefix from both tiers, where
	// the backing stores support enumeration (see ErrPrefixUnsupported).
	PurgePrefix(ctx context.Context, prefix string) error

	// Close drains pending write-behinds and releases both stores.
	Close(context.Context) error
}

// ResolveOptions tune a single Resolve call. Flags are phrased so the zero
// value selects the common behavior: coalescing on, remote raced whenever
// one is configured, TTLs from the cache-wide defaults.
type ResolveOptions struct {
	Key string

	LocalTTL  time.Duration // 0 => Options.DefaultLocalTTL
	RemoteTTL time.Duration // 0 => Options.DefaultRemoteTTL

	SkipRemote bool // skip the remote lookup and the write-behind
	NoCoalesce bool // run even if a resolution for Key is already in flight
}

// Options tune the behavior of the cache.
// Only Namespace and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "page", "fragment"
	Codec     cd.Codec[V]

	Local  local.Store  // nil => in-process memory store
	Remote remote.Store // nil => origin-only, no remote attempts

	Logger Logger      // if nil, logging is disabled
	Hooks  Hooks       // if nil, NopHooks is used
	Clock  clock.Clock // if nil, the wall clock

	DefaultLocalTTL  time.Duration // 0 => 1m
	DefaultRemoteTTL time.Duration // 0 => 1h
	RemoteTimeout    time.Duration // per remote call; 0 => unbounded
	SweepInterval    time.Duration // default memory store sweeper; 0 => 5m

	RemoteWriteWorkers int // write-behind workers; 0 => 1
	RemoteWriteQueue   int // write-behind queue length; 0 => 1024

	Disabled bool // start with all tiers bypassed
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
