package tiercache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths; wrap with hooks/async to fan out to
// slower sinks.
type Hooks interface {
	// Local tier outcome for a Resolve that got past the disable switch.
	LocalHit(key string)
	LocalMiss(key string)

	// An attempt settled first with a value.
	// attempt ∈ {"origin", "remote"}
	RaceWon(key, attempt string, elapsed time.Duration)

	// A failing attempt was absorbed by the race.
	AttemptFailed(key, attempt string, err error)

	// Write-behind to the remote tier failed, or was dropped (queue full).
	RemoteWriteFailed(key string, err error)
	RemoteWriteDropped(key string)

	// A corrupt or unreadable entry was deleted on read.
	// tier ∈ {"local", "remote"}; reason ∈ {"frame", "value_decode"}
	SelfHeal(tier, key, reason string)

	// Purge failed on both tiers (likely backend outage).
	PurgeOutage(key string, localErr, remoteErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) LocalHit(string)                       {}
func (NopHooks) LocalMiss(string)                      {}
func (NopHooks) RaceWon(string, string, time.Duration) {}
func (NopHooks) AttemptFailed(string, string, error)   {}
func (NopHooks) RemoteWriteFailed(string, error)       {}
func (NopHooks) RemoteWriteDropped(string)             {}
func (NopHooks) SelfHeal(string, string, string)       {}
func (NopHooks) PurgeOutage(string, error, error)      {}
