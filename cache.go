package tiercache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	cd "github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/internal/wire"
	"github.com/unkn0wn-root/tiercache/local"
	"github.com/unkn0wn-root/tiercache/remote"
)

const (
	attemptOrigin = "origin"
	attemptRemote = "remote"

	tierLocal  = "local"
	tierRemote = "remote"
)

type writeJob struct {
	key   string // storage key
	frame []byte
	ttl   time.Duration
}

type cache[V any] struct {
	ns    string
	local local.Store
	rem   remote.Store
	codec cd.Codec[V]
	log   Logger
	hooks Hooks
	clk   clock.Clock

	localTTL      time.Duration
	remoteTTL     time.Duration
	remoteTimeout time.Duration

	// process-wide bypass, re-read at the start of every Resolve
	disabled atomic.Bool

	flights coalescer[V]

	// write-behind to the remote tier
	wq        chan writeJob
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("tiercache: namespace is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("tiercache: codec is required")
	}

	c := &cache[V]{
		ns:            opts.Namespace,
		rem:           opts.Remote,
		codec:         opts.Codec,
		remoteTimeout: opts.RemoteTimeout,
	}

	// defaults
	c.log = orDefault[Logger](opts.Logger, NopLogger{})
	c.hooks = orDefault[Hooks](opts.Hooks, NopHooks{})
	c.clk = opts.Clock
	if c.clk == nil {
		c.clk = clock.New()
	}
	c.localTTL = orDefault(opts.DefaultLocalTTL, defaultLocalTTL)
	c.remoteTTL = orDefault(opts.DefaultRemoteTTL, defaultRemoteTTL)

	c.local = opts.Local
	if c.local == nil {
		c.local = local.NewMemory(local.MemoryConfig{
			Clock:         c.clk,
			SweepInterval: orDefault(opts.SweepInterval, defaultSweep),
		})
	}

	c.disabled.Store(opts.Disabled)

	workers := orDefault(opts.RemoteWriteWorkers, defaultWriteWorkers)
	c.wq = make(chan writeJob, orDefault(opts.RemoteWriteQueue, defaultWriteQueue))
	c.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go c.writeBehindLoop()
	}
	return c, nil
}

func (c *cache[V]) Enabled() bool { return !c.disabled.Load() }
func (c *cache[V]) Enable()       { c.disabled.Store(false) }
func (c *cache[V]) Disable()      { c.disabled.Store(true) }

func (c *cache[V]) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		close(c.wq) // drain pending write-behinds first
		c.wg.Wait()
		if err := c.local.Close(ctx); err != nil {
			c.closeErr = err
		}
		if c.rem != nil {
			if err := c.rem.Close(ctx); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}
	})
	return c.closeErr
}

func (c *cache[V]) Resolve(ctx context.Context, opts ResolveOptions, load Loader[V]) (V, error) {
	var zero V
	if load == nil {
		return zero, fmt.Errorf("tiercache: nil loader for %q", opts.Key)
	}
	if opts.Key == "" {
		return zero, fmt.Errorf("tiercache: empty key")
	}

	// Bypass every tier, including coalescing.
	if c.disabled.Load() {
		return load(ctx)
	}

	if opts.NoCoalesce {
		return c.resolve(ctx, opts, load)
	}

	// The flight is detached from the first caller's cancellation: a started
	// resolution runs to completion for everyone who joined it.
	fctx := context.WithoutCancel(ctx)
	v, shared, err := c.flights.do(c.storageKey(opts.Key), func() (V, error) {
		return c.resolve(fctx, opts, load)
	})
	if shared {
		c.log.Debug("joined in-flight resolution", Fields{"key": opts.Key})
	}
	return v, err
}

func (c *cache[V]) resolve(ctx context.Context, opts ResolveOptions, load Loader[V]) (V, error) {
	var zero V
	start := c.clk.Now()
	sk := c.storageKey(opts.Key)

	if v, ok := c.localGet(ctx, opts.Key, sk); ok {
		c.hooks.LocalHit(opts.Key)
		c.log.Debug("local hit", Fields{"key": opts.Key, "elapsed": c.clk.Since(start)})
		return v, nil
	}
	c.hooks.LocalMiss(opts.Key)

	attempts := []attempt[V]{{
		name: attemptOrigin,
		run: func() (V, error) {
			v, err := load(ctx)
			if err != nil {
				return zero, &OriginError{Err: err}
			}
			return v, nil
		},
	}}
	useRemote := c.rem != nil && !opts.SkipRemote
	if useRemote {
		attempts = append(attempts, attempt[V]{
			name: attemptRemote,
			run: func() (V, error) {
				return c.remoteLookup(ctx, opts.Key, sk)
			},
		})
	}

	v, winner, err := c.raceLogged(opts.Key, attempts)
	if err != nil {
		return zero, &ResolutionError{Key: opts.Key, Last: err}
	}

	won := attempts[winner].name
	elapsed := c.clk.Since(start)
	c.hooks.RaceWon(opts.Key, won, elapsed)
	c.log.Debug("resolved", Fields{"key": opts.Key, "winner": won, "elapsed": elapsed})

	payload, encErr := c.codec.Encode(v)
	if encErr != nil {
		// The caller still gets the value; only caching is lost.
		c.log.Warn("encode failed; skipping cache writes", Fields{"key": opts.Key, "err": encErr})
		return v, nil
	}

	// Every success lands in the local tier, whichever attempt won. Expiry
	// is fixed here; reads never extend it.
	c.localSet(ctx, opts.Key, sk, payload, orDefault(opts.LocalTTL, c.localTTL))

	// A remote win means the remote tier is already authoritative; writing
	// it back would be a redundant write-after-read. Only origin wins are
	// pushed out, and only best-effort.
	if won == attemptOrigin && useRemote {
		c.enqueueWriteBehind(opts.Key, sk, payload, orDefault(opts.RemoteTTL, c.remoteTTL))
	}
	return v, nil
}

// raceLogged wraps each attempt so absorbed failures and late settlements
// are still observable through logs and hooks, then runs the race.
func (c *cache[V]) raceLogged(key string, attempts []attempt[V]) (V, int, error) {
	for i := range attempts {
		a := attempts[i]
		attempts[i].run = func() (V, error) {
			t0 := c.clk.Now()
			v, err := a.run()
			if err != nil {
				c.hooks.AttemptFailed(key, a.name, err)
				c.log.Warn("attempt failed", Fields{
					"key": key, "attempt": a.name, "elapsed": c.clk.Since(t0), "err": err,
				})
				return v, err
			}
			c.log.Debug("attempt settled", Fields{
				"key": key, "attempt": a.name, "elapsed": c.clk.Since(t0),
			})
			return v, nil
		}
	}
	return race(attempts)
}

func (c *cache[V]) localGet(ctx context.Context, key, sk string) (V, bool) {
	var zero V
	b, ok, err := c.local.Get(ctx, sk)
	if err != nil {
		// Local tier trouble must not fail the resolve; treat as a miss.
		c.log.Warn("local get error", Fields{"key": key, "err": err})
		return zero, false
	}
	if !ok {
		return zero, false
	}
	v, err := c.codec.Decode(b)
	if err != nil {
		_ = c.local.Del(ctx, sk) // self-heal corrupt
		c.hooks.SelfHeal(tierLocal, key, "value_decode")
		return zero, false
	}
	return v, true
}

func (c *cache[V]) localSet(ctx context.Context, key, sk string, payload []byte, ttl time.Duration) {
	ok, err := c.local.Set(ctx, sk, payload, ttl)
	if err != nil {
		c.log.Warn("local set error", Fields{"key": key, "err": err})
		return
	}
	if !ok {
		c.log.Debug("local set rejected (pressure)", Fields{"key": key})
	}
}

func (c *cache[V]) remoteLookup(ctx context.Context, key, sk string) (V, error) {
	var zero V
	if c.remoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.remoteTimeout)
		defer cancel()
	}
	b, ok, err := c.rem.Get(ctx, sk)
	if err != nil {
		return zero, &RemoteUnavailableError{Key: key, Err: err}
	}
	if !ok {
		return zero, &RemoteUnavailableError{Key: key, Err: ErrRemoteMiss}
	}
	payload, writtenAt, err := wire.DecodeEntry(b)
	if err != nil {
		c.selfHealRemote(key, sk, "frame")
		return zero, &RemoteUnavailableError{Key: key, Err: err}
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		c.selfHealRemote(key, sk, "value_decode")
		return zero, &RemoteUnavailableError{Key: key, Err: err}
	}
	c.log.Debug("remote hit", Fields{"key": key, "age": c.clk.Now().Sub(writtenAt)})
	return v, nil
}

func (c *cache[V]) selfHealRemote(key, sk, reason string) {
	// Deletion must not inherit a raced caller's deadline.
	dctx, cancel := context.WithTimeout(context.Background(), selfHealTimeout)
	defer cancel()
	_ = c.rem.Del(dctx, sk)
	c.hooks.SelfHeal(tierRemote, key, reason)
}

func (c *cache[V]) enqueueWriteBehind(key, sk string, payload []byte, ttl time.Duration) {
	job := writeJob{key: sk, frame: wire.EncodeEntry(payload, c.clk.Now()), ttl: ttl}
	select {
	case c.wq <- job:
	default:
		c.hooks.RemoteWriteDropped(key)
		c.log.Warn("write-behind queue full; dropping remote write", Fields{"key": key})
	}
}

func (c *cache[V]) writeBehindLoop() {
	defer c.wg.Done()
	for job := range c.wq {
		c.writeRemote(job)
	}
}

// writeRemote runs detached from the originating call: never awaited, never
// retried, failures logged and hooked only.
func (c *cache[V]) writeRemote(job writeJob) {
	ctx := context.Background()
	if c.remoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.remoteTimeout)
		defer cancel()
	}
	if err := c.rem.Set(ctx, job.key, job.frame, job.ttl); err != nil {
		c.hooks.RemoteWriteFailed(job.key, err)
		c.log.Warn("write-behind failed", Fields{"key": job.key, "err": err})
		return
	}
	c.log.Debug("write-behind stored", Fields{"key": job.key, "ttl": job.ttl})
}

func (c *cache[V]) Purge(ctx context.Context, key string) error {
	sk := c.storageKey(key)

	// The next Resolve must start fresh work even if an old flight is still
	// running for this key.
	c.flights.forget(sk)

	localErr := c.local.Del(ctx, sk)
	var remoteErr error
	if c.rem != nil {
		remoteErr = c.rem.Del(ctx, sk)
	}
	if localErr == nil && remoteErr == nil {
		c.log.Debug("purged", Fields{"key": key})
		return nil
	}
	if localErr != nil && remoteErr != nil {
		c.hooks.PurgeOutage(key, localErr, remoteErr)
	}
	return &PurgeError{Key: key, LocalErr: localErr, RemoteErr: remoteErr}
}

func (c *cache[V]) PurgePrefix(ctx context.Context, prefix string) error {
	sp := c.storageKey(prefix)

	// Pending flights under the prefix are not forgotten: the flight map
	// cannot be enumerated. With versioned keys a settling flight rewrites
	// the same logical value, so this stays benign.
	var localErr error
	if pd, ok := c.local.(local.PrefixDeleter); ok {
		localErr = pd.DelPrefix(ctx, sp)
	} else {
		localErr = ErrPrefixUnsupported
	}

	var remoteErr error
	if c.rem != nil {
		if pd, ok := c.rem.(remote.PrefixDeleter); ok {
			remoteErr = pd.DelPrefix(ctx, sp)
		} else {
			remoteErr = ErrPrefixUnsupported
		}
	}

	if localErr == nil && remoteErr == nil {
		c.log.Debug("purged prefix", Fields{"prefix": prefix})
		return nil
	}
	if localErr != nil && remoteErr != nil {
		c.hooks.PurgeOutage(prefix, localErr, remoteErr)
	}
	return &PurgeError{Key: prefix, LocalErr: localErr, RemoteErr: remoteErr}
}

func (c *cache[V]) storageKey(userKey string) string {
	// isolate by namespace
	return c.ns + ":" + userKey
}
