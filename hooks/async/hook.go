// Package asynchook decouples hook sinks from the cache's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    HitEvery: 100, // sample hot-path hit logs: ~every 100th
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := tiercache.New[Page](tiercache.Options[Page]{
//	    Namespace: "page",
//	    Codec:     codec.JSON[Page]{},
//	    Hooks:     hooks, // or `raw` if the sink is already cheap
//	})
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/tiercache"
)

// Hooks forwards events to inner on background workers through a bounded
// queue. Events are dropped when the queue is full: hooks are telemetry,
// and the hot path must never block on them.
type Hooks struct {
	inner tiercache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(inner tiercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) LocalHit(k string)  { h.try(func() { h.inner.LocalHit(k) }) }
func (h *Hooks) LocalMiss(k string) { h.try(func() { h.inner.LocalMiss(k) }) }
func (h *Hooks) RaceWon(k, a string, d time.Duration) {
	h.try(func() { h.inner.RaceWon(k, a, d) })
}
func (h *Hooks) AttemptFailed(k, a string, err error) {
	h.try(func() { h.inner.AttemptFailed(k, a, err) })
}
func (h *Hooks) RemoteWriteFailed(k string, err error) {
	h.try(func() { h.inner.RemoteWriteFailed(k, err) })
}
func (h *Hooks) RemoteWriteDropped(k string) { h.try(func() { h.inner.RemoteWriteDropped(k) }) }
func (h *Hooks) SelfHeal(tier, k, reason string) {
	h.try(func() { h.inner.SelfHeal(tier, k, reason) })
}
func (h *Hooks) PurgeOutage(k string, le, re error) {
	h.try(func() { h.inner.PurgeOutage(k, le, re) })
}
