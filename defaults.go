package tiercache

import "time"

const (
	defaultLocalTTL     = time.Minute
	defaultRemoteTTL    = time.Hour
	defaultSweep        = 5 * time.Minute
	defaultWriteWorkers = 1
	defaultWriteQueue   = 1024

	selfHealTimeout = 5 * time.Second
)

// orDefault returns def when v is the zero value of T - otherwise v.
func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
