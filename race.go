package tiercache

// attempt is one independent way to produce a value for a key.
type attempt[V any] struct {
	name string
	run  func() (V, error)
}

type settled[V any] struct {
	idx int
	val V
	err error
}

// race runs every attempt concurrently and accepts the first success in
// real completion order - no artificial priority between attempts. Failures
// are absorbed until the set is exhausted; once no attempt remains, the
// error of the last attempt to settle is returned.
//
// A winner ends the race immediately: losing attempts keep running for
// their side effects, and the buffered channel lets them settle without a
// receiver. There is no cancellation here; attempts bound their own work.
func race[V any](attempts []attempt[V]) (V, int, error) {
	results := make(chan settled[V], len(attempts))
	for i := range attempts {
		a := attempts[i]
		idx := i
		go func() {
			v, err := a.run()
			results <- settled[V]{idx: idx, val: v, err: err}
		}()
	}

	var last error
	for range attempts {
		s := <-results
		if s.err == nil {
			return s.val, s.idx, nil
		}
		last = s.err
	}
	var zero V
	return zero, -1, last
}
