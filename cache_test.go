package tiercache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/internal/wire"
)

type testPage struct {
	ID   int    `json:"id"`
	Body string `json:"body"`
}

// memRemote is an in-process stand-in for the remote tier with fault and
// latency injection. setCh signals completed Sets so tests can wait for the
// write-behind worker without sleeping.
type memRemote struct {
	mu   sync.Mutex
	data map[string][]byte

	gets atomic.Int64
	sets atomic.Int64
	dels atomic.Int64

	getDelay time.Duration
	getErr   error
	setDelay time.Duration
	setErr   error

	setCh      chan string
	setEntered chan string   // signals a Set reaching the store
	setBlock   chan struct{} // when non-nil, Set parks here first
}

func newMemRemote() *memRemote {
	return &memRemote{
		data:  make(map[string][]byte),
		setCh: make(chan string, 16),
	}
}

func (r *memRemote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r.gets.Add(1)
	if r.getDelay > 0 {
		select {
		case <-time.After(r.getDelay):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[key]
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (r *memRemote) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	r.sets.Add(1)
	if r.setEntered != nil {
		select {
		case r.setEntered <- key:
		default:
		}
	}
	if r.setBlock != nil {
		<-r.setBlock
	}
	if r.setDelay > 0 {
		select {
		case <-time.After(r.setDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.setErr != nil {
		return r.setErr
	}
	r.mu.Lock()
	r.data[key] = value
	r.mu.Unlock()
	select {
	case r.setCh <- key:
	default:
	}
	return nil
}

func (r *memRemote) Del(_ context.Context, key string) error {
	r.dels.Add(1)
	r.mu.Lock()
	delete(r.data, key)
	r.mu.Unlock()
	return nil
}

func (r *memRemote) DelPrefix(_ context.Context, prefix string) error {
	r.mu.Lock()
	for k := range r.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(r.data, k)
		}
	}
	r.mu.Unlock()
	return nil
}

func (r *memRemote) Close(context.Context) error { return nil }

func (r *memRemote) seed(t *testing.T, key string, v testPage) {
	t.Helper()
	b, err := codec.JSON[testPage]{}.Encode(v)
	if err != nil {
		t.Fatalf("encode seed: %v", err)
	}
	r.mu.Lock()
	r.data[key] = wire.EncodeEntry(b, time.Now())
	r.mu.Unlock()
}

func newTestCache(t *testing.T, mut func(*Options[testPage])) (Cache[testPage], *memRemote) {
	t.Helper()
	rem := newMemRemote()
	opts := Options[testPage]{
		Namespace: "page",
		Codec:     codec.JSON[testPage]{},
		Remote:    rem,
	}
	if mut != nil {
		mut(&opts)
	}
	c, err := New[testPage](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, rem
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestNewValidation(t *testing.T) {
	if _, err := New[testPage](Options[testPage]{Codec: codec.JSON[testPage]{}}); err == nil {
		t.Fatal("expected error for missing namespace")
	}
	if _, err := New[testPage](Options[testPage]{Namespace: "page"}); err == nil {
		t.Fatal("expected error for missing codec")
	}
}

func TestResolveValidation(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	if _, err := c.Resolve(ctx, ResolveOptions{Key: "a"}, nil); err == nil {
		t.Fatal("expected error for nil loader")
	}
	if _, err := c.Resolve(ctx, ResolveOptions{}, func(context.Context) (testPage, error) {
		return testPage{}, nil
	}); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestLocalHitShortCircuits(t *testing.T) {
	c, rem := newTestCache(t, nil)
	ctx := context.Background()

	var calls atomic.Int64
	load := func(context.Context) (testPage, error) {
		calls.Add(1)
		return testPage{ID: 7, Body: "hello"}, nil
	}

	v, err := c.Resolve(ctx, ResolveOptions{Key: "home"}, load)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if v.ID != 7 {
		t.Fatalf("got %+v", v)
	}
	getsAfterFirst := rem.gets.Load()

	v, err = c.Resolve(ctx, ResolveOptions{Key: "home"}, load)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if v.Body != "hello" {
		t.Fatalf("got %+v", v)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
	if rem.gets.Load() != getsAfterFirst {
		t.Fatal("local hit still reached the remote tier")
	}
}

func TestResolveCoalescesConcurrentLoaders(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	gate := make(chan struct{})
	var calls atomic.Int64
	load := func(context.Context) (testPage, error) {
		calls.Add(1)
		<-gate
		return testPage{ID: 1, Body: "shared"}, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]testPage, n)
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Resolve(ctx, ResolveOptions{Key: "burst", SkipRemote: true}, load)
		}(i)
	}

	waitFor(t, func() bool { return calls.Load() == 1 }, "loader to start")
	time.Sleep(50 * time.Millisecond) // let every caller join the flight
	close(gate)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].Body != "shared" {
			t.Fatalf("caller %d got %+v", i, results[i])
		}
	}
}

func TestNoCoalesceRunsIndependently(t *testing.T) {
	c, _ := newTestCache(t, nil)
	ctx := context.Background()

	release := make(chan struct{}, 2)
	var calls atomic.Int64
	load := func(context.Context) (testPage, error) {
		calls.Add(1)
		<-release
		return testPage{ID: 2}, nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_, _ = c.Resolve(ctx, ResolveOptions{Key: "solo", SkipRemote: true, NoCoalesce: true}, load)
		}()
	}

	waitFor(t, func() bool { return calls.Load() == 2 }, "both loaders to start")
	release <- struct{}{}
	release <- struct{}{}
	wg.Wait()
}

func TestExpiredEntryTreatedAsAbsent(t *testing.T) {
	mock := clock.NewMock()
	c, _ := newTestCache(t, func(o *Options[testPage]) {
		o.Clock = mock
		o.DefaultLocalTTL = 60 * time.Second
	})
	ctx := context.Background()

	var calls atomic.Int64
	load := func(context.Context) (testPage, error) {
		calls.Add(1)
		return testPage{ID: int(calls.Load())}, nil
	}
	opts := ResolveOptions{Key: "ttl", SkipRemote: true}

	if _, err := c.Resolve(ctx, opts, load); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Before expiry: still served from the local tier.
	mock.Add(30 * time.Second)
	v, err := c.Resolve(ctx, opts, load)
	if err != nil {
		t.Fatalf("resolve at 30s: %v", err)
	}
	if v.ID != 1 || calls.Load() != 1 {
		t.Fatalf("expected cached value, got %+v after %d calls", v, calls.Load())
	}

	// Past expiry: the entry is absent, not stale-served.
	mock.Add(31 * time.Second)
	v, err = c.Resolve(ctx, opts, load)
	if err != nil {
		t.Fatalf("resolve at 61s: %v", err)
	}
	if v.ID != 2 || calls.Load() != 2 {
		t.Fatalf("expected reload, got %+v after %d calls", v, calls.Load())
	}
}

func TestRemoteWinSkipsWriteBack(t *testing.T) {
	c, rem := newTestCache(t, nil)
	ctx := context.Background()

	rem.seed(t, "page:report", testPage{ID: 42, Body: "from remote"})

	load := func(ctx context.Context) (testPage, error) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
		}
		return testPage{ID: -1, Body: "from origin"}, nil
	}

	v, err := c.Resolve(ctx, ResolveOptions{Key: "report"}, load)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v.ID != 42 {
		t.Fatalf("expected remote value, got %+v", v)
	}
	time.Sleep(20 * time.Millisecond)
	if n := rem.sets.Load(); n != 0 {
		t.Fatalf("remote win wrote back %d times, want 0", n)
	}

	// The remote value now lives in the local tier too.
	var calls atomic.Int64
	v, err = c.Resolve(ctx, ResolveOptions{Key: "report"}, func(context.Context) (testPage, error) {
		calls.Add(1)
		return testPage{}, nil
	})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if v.ID != 42 || calls.Load() != 0 {
		t.Fatalf("expected local hit, got %+v after %d loader calls", v, calls.Load())
	}
}

func TestOriginWinWritesRemoteOnce(t *testing.T) {
	c, rem := newTestCache(t, nil)
	rem.getDelay = 50 * time.Millisecond // remote miss settles late

	v, err := c.Resolve(context.Background(), ResolveOptions{Key: "fresh"},
		func(context.Context) (testPage, error) {
			return testPage{ID: 9, Body: "computed"}, nil
		})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v.ID != 9 {
		t.Fatalf("got %+v", v)
	}

	select {
	case key := <-rem.setCh:
		if key != "page:fresh" {
			t.Fatalf("write-behind used key %q", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write-behind never reached the remote tier")
	}
	if n := rem.sets.Load(); n != 1 {
		t.Fatalf("remote written %d times, want 1", n)
	}

	rem.mu.Lock()
	frame := rem.data["page:fresh"]
	rem.mu.Unlock()
	payload, _, err := wire.DecodeEntry(frame)
	if err != nil {
		t.Fatalf("stored frame does not decode: %v", err)
	}
	got, err := codec.JSON[testPage]{}.Decode(payload)
	if err != nil || got.Body != "computed" {
		t.Fatalf("stored payload %+v, err %v", got, err)
	}
}

func TestRemoteFailureAbsorbed(t *testing.T) {
	c, rem := newTestCache(t, nil)
	rem.getErr = errors.New("connection refused")

	v, err := c.Resolve(context.Background(), ResolveOptions{Key: "resilient"},
		func(context.Context) (testPage, error) {
			return testPage{ID: 3, Body: "still fine"}, nil
		})
	if err != nil {
		t.Fatalf("remote failure leaked to the caller: %v", err)
	}
	if v.ID != 3 {
		t.Fatalf("got %+v", v)
	}
}

type attemptFailure struct {
	attempt string
	err     error
}

// recHooks records the hook calls a test cares about; everything else falls
// through to NopHooks.
type recHooks struct {
	NopHooks
	attemptFailed chan attemptFailure
	writeFailed   chan error
	writeDropped  chan string
}

func newRecHooks() *recHooks {
	return &recHooks{
		attemptFailed: make(chan attemptFailure, 16),
		writeFailed:   make(chan error, 16),
		writeDropped:  make(chan string, 16),
	}
}

func (h *recHooks) AttemptFailed(_, attempt string, err error) {
	h.attemptFailed <- attemptFailure{attempt: attempt, err: err}
}
func (h *recHooks) RemoteWriteFailed(_ string, err error) { h.writeFailed <- err }
func (h *recHooks) RemoteWriteDropped(key string)         { h.writeDropped <- key }

func TestRemoteTimeoutBoundsRemoteCalls(t *testing.T) {
	rh := newRecHooks()
	c, rem := newTestCache(t, func(o *Options[testPage]) {
		o.Hooks = rh
		o.RemoteTimeout = 25 * time.Millisecond
	})
	rem.getDelay = 500 * time.Millisecond
	rem.setDelay = 500 * time.Millisecond

	v, err := c.Resolve(context.Background(), ResolveOptions{Key: "deadline"},
		func(context.Context) (testPage, error) {
			return testPage{ID: 11, Body: "origin"}, nil
		})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v.ID != 11 {
		t.Fatalf("got %+v, want the origin value", v)
	}

	// The lookup must be cut off at the timeout, not ride out the full delay.
	select {
	case af := <-rh.attemptFailed:
		if af.attempt != attemptRemote {
			t.Fatalf("attempt %q failed, want %q", af.attempt, attemptRemote)
		}
		if !errors.Is(af.err, context.DeadlineExceeded) {
			t.Fatalf("remote attempt failed with %v, want deadline exceeded", af.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("remote attempt never reported a failure")
	}

	// Same bound on the write-behind: the slow Set times out and is hooked.
	select {
	case err := <-rh.writeFailed:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("write-behind failed with %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed-out write-behind never reported a failure")
	}
}

func TestWriteBehindFailureStaysBestEffort(t *testing.T) {
	rh := newRecHooks()
	c, rem := newTestCache(t, func(o *Options[testPage]) { o.Hooks = rh })
	rem.setErr = errors.New("write refused")

	var calls atomic.Int64
	v, err := c.Resolve(context.Background(), ResolveOptions{Key: "lossy"},
		func(context.Context) (testPage, error) {
			calls.Add(1)
			return testPage{ID: 6, Body: "kept"}, nil
		})
	if err != nil {
		t.Fatalf("write-behind failure leaked to the caller: %v", err)
	}
	if v.ID != 6 {
		t.Fatalf("got %+v", v)
	}

	select {
	case werr := <-rh.writeFailed:
		if !errors.Is(werr, rem.setErr) {
			t.Fatalf("hook carried %v, want the store error", werr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failed write-behind never surfaced via hooks")
	}

	// The local tier still serves; only the remote copy was lost.
	if _, err := c.Resolve(context.Background(), ResolveOptions{Key: "lossy"},
		func(context.Context) (testPage, error) {
			calls.Add(1)
			return testPage{}, nil
		}); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
}

func TestWriteBehindQueueFullDrops(t *testing.T) {
	rh := newRecHooks()
	c, rem := newTestCache(t, func(o *Options[testPage]) {
		o.Hooks = rh
		o.RemoteWriteWorkers = 1
		o.RemoteWriteQueue = 1
	})
	rem.setEntered = make(chan string, 16)
	rem.setBlock = make(chan struct{})
	defer close(rem.setBlock) // let Close drain

	ctx := context.Background()
	load := func(id int) Loader[testPage] {
		return func(context.Context) (testPage, error) { return testPage{ID: id}, nil }
	}

	// First write occupies the only worker...
	if _, err := c.Resolve(ctx, ResolveOptions{Key: "w1"}, load(1)); err != nil {
		t.Fatalf("resolve w1: %v", err)
	}
	select {
	case <-rem.setEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first write")
	}

	// ...the second fills the queue, the third has nowhere to go.
	if _, err := c.Resolve(ctx, ResolveOptions{Key: "w2"}, load(2)); err != nil {
		t.Fatalf("resolve w2: %v", err)
	}
	v, err := c.Resolve(ctx, ResolveOptions{Key: "w3"}, load(3))
	if err != nil {
		t.Fatalf("resolve w3: %v", err)
	}
	if v.ID != 3 {
		t.Fatalf("got %+v", v)
	}

	select {
	case key := <-rh.writeDropped:
		if key != "w3" {
			t.Fatalf("dropped %q, want w3", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("overflowing write-behind was never reported dropped")
	}
}

func TestCorruptRemoteEntrySelfHeals(t *testing.T) {
	c, rem := newTestCache(t, nil)
	rem.mu.Lock()
	rem.data["page:bad"] = []byte("not a frame")
	rem.mu.Unlock()

	v, err := c.Resolve(context.Background(), ResolveOptions{Key: "bad"},
		func(ctx context.Context) (testPage, error) {
			select {
			case <-time.After(30 * time.Millisecond):
			case <-ctx.Done():
			}
			return testPage{ID: 5}, nil
		})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v.ID != 5 {
		t.Fatalf("got %+v", v)
	}
	waitFor(t, func() bool { return rem.dels.Load() >= 1 }, "corrupt entry deletion")
}

func TestAllAttemptsFailResolutionError(t *testing.T) {
	c, rem := newTestCache(t, nil)
	rem.getErr = errors.New("remote down")

	_, err := c.Resolve(context.Background(), ResolveOptions{Key: "doomed"},
		func(context.Context) (testPage, error) {
			return testPage{}, errors.New("origin down")
		})
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("got %T (%v), want *ResolutionError", err, err)
	}
	if re.Key != "doomed" {
		t.Fatalf("error carries key %q", re.Key)
	}
}

func TestResolutionErrorWrapsOrigin(t *testing.T) {
	c, _ := newTestCache(t, nil)
	sentinel := errors.New("upstream 503")

	_, err := c.Resolve(context.Background(), ResolveOptions{Key: "wrapped", SkipRemote: true},
		func(context.Context) (testPage, error) {
			return testPage{}, sentinel
		})
	if !errors.Is(err, sentinel) {
		t.Fatalf("sentinel not reachable through %v", err)
	}
	var oe *OriginError
	if !errors.As(err, &oe) {
		t.Fatalf("origin error not reachable through %v", err)
	}
}

func TestDisabledBypassesTiers(t *testing.T) {
	c, rem := newTestCache(t, func(o *Options[testPage]) { o.Disabled = true })
	ctx := context.Background()

	if c.Enabled() {
		t.Fatal("expected cache to start disabled")
	}

	var calls atomic.Int64
	load := func(context.Context) (testPage, error) {
		calls.Add(1)
		return testPage{ID: int(calls.Load())}, nil
	}
	opts := ResolveOptions{Key: "switch"}

	for i := 0; i < 3; i++ {
		if _, err := c.Resolve(ctx, opts, load); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("loader called %d times while disabled, want 3", n)
	}
	if rem.gets.Load() != 0 {
		t.Fatal("disabled cache touched the remote tier")
	}

	c.Enable()
	if _, err := c.Resolve(ctx, opts, load); err != nil {
		t.Fatalf("resolve after enable: %v", err)
	}
	if _, err := c.Resolve(ctx, opts, load); err != nil {
		t.Fatalf("resolve after enable: %v", err)
	}
	if n := calls.Load(); n != 4 {
		t.Fatalf("loader called %d times after enable, want 4 (one miss, then hit)", n)
	}
}

func TestPurgeRemovesBothTiers(t *testing.T) {
	c, rem := newTestCache(t, nil)
	ctx := context.Background()

	var calls atomic.Int64
	load := func(context.Context) (testPage, error) {
		calls.Add(1)
		return testPage{ID: int(calls.Load())}, nil
	}
	opts := ResolveOptions{Key: "victim"}

	if _, err := c.Resolve(ctx, opts, load); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	select {
	case <-rem.setCh:
	case <-time.After(2 * time.Second):
		t.Fatal("write-behind never landed")
	}

	if err := c.Purge(ctx, "victim"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	rem.mu.Lock()
	_, stillThere := rem.data["page:victim"]
	rem.mu.Unlock()
	if stillThere {
		t.Fatal("purge left the remote entry behind")
	}

	v, err := c.Resolve(ctx, opts, load)
	if err != nil {
		t.Fatalf("resolve after purge: %v", err)
	}
	if v.ID != 2 || calls.Load() != 2 {
		t.Fatalf("expected recompute after purge, got %+v after %d calls", v, calls.Load())
	}
}

func TestPurgePrefix(t *testing.T) {
	c, _ := newTestCache(t, func(o *Options[testPage]) {
		o.Namespace = "frag"
		o.Codec = codec.Msgpack[testPage]{}
	})
	ctx := context.Background()

	var calls atomic.Int64
	load := func(context.Context) (testPage, error) {
		calls.Add(1)
		return testPage{ID: int(calls.Load())}, nil
	}
	for _, k := range []string{"nav/a", "nav/b", "footer"} {
		if _, err := c.Resolve(ctx, ResolveOptions{Key: k, SkipRemote: true}, load); err != nil {
			t.Fatalf("resolve %q: %v", k, err)
		}
	}

	if err := c.PurgePrefix(ctx, "nav/"); err != nil {
		t.Fatalf("purge prefix: %v", err)
	}

	before := calls.Load()
	if _, err := c.Resolve(ctx, ResolveOptions{Key: "footer", SkipRemote: true}, load); err != nil {
		t.Fatalf("resolve footer: %v", err)
	}
	if calls.Load() != before {
		t.Fatal("prefix purge evicted an unrelated key")
	}
	if _, err := c.Resolve(ctx, ResolveOptions{Key: "nav/a", SkipRemote: true}, load); err != nil {
		t.Fatalf("resolve nav/a: %v", err)
	}
	if calls.Load() != before+1 {
		t.Fatal("prefix purge left nav/a cached")
	}
}

func TestVersionedKeysAreIndependent(t *testing.T) {
	c, _ := newTestCache(t, func(o *Options[testPage]) {
		o.Codec = codec.MustCBOR[testPage](false)
	})
	ctx := context.Background()

	loadV := func(id int) Loader[testPage] {
		return func(context.Context) (testPage, error) { return testPage{ID: id}, nil }
	}

	k1 := VersionedKey("home", "abc123")
	k2 := VersionedKey("home", "def456")
	if k1 == k2 {
		t.Fatal("distinct versions produced the same key")
	}

	v1, err := c.Resolve(ctx, ResolveOptions{Key: k1, SkipRemote: true}, loadV(1))
	if err != nil {
		t.Fatalf("resolve v1: %v", err)
	}
	v2, err := c.Resolve(ctx, ResolveOptions{Key: k2, SkipRemote: true}, loadV(2))
	if err != nil {
		t.Fatalf("resolve v2: %v", err)
	}
	if v1.ID != 1 || v2.ID != 2 {
		t.Fatalf("versions collided: %+v vs %+v", v1, v2)
	}

	// Old version stays intact after the new one is written.
	v1, err = c.Resolve(ctx, ResolveOptions{Key: k1, SkipRemote: true}, loadV(99))
	if err != nil {
		t.Fatalf("re-resolve v1: %v", err)
	}
	if v1.ID != 1 {
		t.Fatalf("old version was replaced: %+v", v1)
	}
}

func TestCloseDrainsWriteBehind(t *testing.T) {
	rem := newMemRemote()
	c, err := New[testPage](Options[testPage]{
		Namespace: "drain",
		Codec:     codec.JSON[testPage]{},
		Remote:    rem,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rem.getDelay = 20 * time.Millisecond

	for i := 0; i < 5; i++ {
		key := "k" + strconv.Itoa(i)
		if _, err := c.Resolve(context.Background(), ResolveOptions{Key: key},
			func(context.Context) (testPage, error) {
				return testPage{ID: i}, nil
			}); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := rem.sets.Load(); n != 5 {
		t.Fatalf("close drained %d write-behinds, want 5", n)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
