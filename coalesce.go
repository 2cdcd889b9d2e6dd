package tiercache

import "golang.org/x/sync/singleflight"

// coalescer collapses concurrent resolutions for the same key into one
// flight. Insert-if-absent is atomic relative to concurrent callers, so at
// most one flight exists per key at any instant, and the pending entry is
// removed when the flight settles - success or failure - never left stale.
type coalescer[V any] struct {
	g singleflight.Group
}

// do runs fn at most once per key per flight; callers arriving while a
// flight is pending receive that flight's outcome. shared reports whether
// this caller joined a flight started by another.
func (c *coalescer[V]) do(key string, fn func() (V, error)) (v V, shared bool, err error) {
	res, err, shared := c.g.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero V
		return zero, shared, err
	}
	return res.(V), shared, nil
}

// forget drops any pending flight for key so the next caller starts fresh
// work. A flight already running still settles for the callers that joined
// it; nobody new joins after forget.
func (c *coalescer[V]) forget(key string) { c.g.Forget(key) }
