// Package promhooks exports cache events as Prometheus metrics.
//
// Keys are deliberately not used as label values; cardinality stays bounded
// by tier, attempt and reason.
package promhooks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/tiercache"
)

type Hooks struct {
	localRequests   *prometheus.CounterVec // outcome: hit|miss
	raceWins        *prometheus.CounterVec // attempt: origin|remote
	resolveDuration prometheus.Histogram
	attemptFailures *prometheus.CounterVec // attempt
	remoteWrites    *prometheus.CounterVec // result: failed|dropped
	selfHeals       *prometheus.CounterVec // tier, reason
	purgeOutages    prometheus.Counter
}

var _ tiercache.Hooks = (*Hooks)(nil)

// New builds the metric set and registers it with reg (nil skips
// registration, e.g. when the caller registers by hand).
func New(reg prometheus.Registerer, namespace string) *Hooks {
	h := &Hooks{
		localRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_local_requests_total",
			Help:      "Local tier lookups by outcome",
		}, []string{"outcome"}),
		raceWins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_race_wins_total",
			Help:      "Race settlements by winning attempt",
		}, []string{"attempt"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_resolve_duration_seconds",
			Help:      "Time from local miss to race settlement",
			Buckets:   prometheus.DefBuckets,
		}),
		attemptFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_attempt_failures_total",
			Help:      "Absorbed attempt failures by attempt",
		}, []string{"attempt"}),
		remoteWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_remote_write_errors_total",
			Help:      "Write-behind outcomes that lost data",
		}, []string{"result"}),
		selfHeals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_self_heals_total",
			Help:      "Corrupt entries deleted on read",
		}, []string{"tier", "reason"}),
		purgeOutages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_purge_outages_total",
			Help:      "Purges that failed on both tiers",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			h.localRequests,
			h.raceWins,
			h.resolveDuration,
			h.attemptFailures,
			h.remoteWrites,
			h.selfHeals,
			h.purgeOutages,
		)
	}
	return h
}

func (h *Hooks) LocalHit(string)  { h.localRequests.WithLabelValues("hit").Inc() }
func (h *Hooks) LocalMiss(string) { h.localRequests.WithLabelValues("miss").Inc() }

func (h *Hooks) RaceWon(_ string, attempt string, elapsed time.Duration) {
	h.raceWins.WithLabelValues(attempt).Inc()
	h.resolveDuration.Observe(elapsed.Seconds())
}

func (h *Hooks) AttemptFailed(_ string, attempt string, _ error) {
	h.attemptFailures.WithLabelValues(attempt).Inc()
}

func (h *Hooks) RemoteWriteFailed(string, error) { h.remoteWrites.WithLabelValues("failed").Inc() }
func (h *Hooks) RemoteWriteDropped(string)       { h.remoteWrites.WithLabelValues("dropped").Inc() }

func (h *Hooks) SelfHeal(tier, _, reason string) {
	h.selfHeals.WithLabelValues(tier, reason).Inc()
}

func (h *Hooks) PurgeOutage(string, error, error) { h.purgeOutages.Inc() }
