package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/tiercache"
)

type Options struct {
	// Sampling to avoid floods on hot-path events; 0/1 = log all.
	HitEvery     uint64
	MissEvery    uint64
	AttemptEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr     atomic.Uint64
	missCtr    atomic.Uint64
	attemptCtr atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) LocalHit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("tiercache.local_hit", "key", h.redact(key))
}

func (h *Hooks) LocalMiss(key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("tiercache.local_miss", "key", h.redact(key))
}

func (h *Hooks) RaceWon(key, attempt string, elapsed time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Debug("tiercache.race_won",
		"key", h.redact(key),
		"attempt", attempt,
		"elapsed", elapsed)
}

func (h *Hooks) AttemptFailed(key, attempt string, err error) {
	if h.l == nil || !sample(h.opts.AttemptEvery, &h.attemptCtr) {
		return
	}
	h.l.Info("tiercache.attempt_failed",
		"key", h.redact(key),
		"attempt", attempt,
		"err", err)
}

func (h *Hooks) RemoteWriteFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.remote_write_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) RemoteWriteDropped(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.remote_write_dropped",
		"key", h.redact(key))
}

func (h *Hooks) SelfHeal(tier, key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.self_heal",
		"tier", tier,
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) PurgeOutage(key string, localErr, remoteErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("tiercache.purge_outage",
		"key", h.redact(key),
		"local_err", localErr,
		"remote_err", remoteErr)
}
