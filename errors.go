package tiercache

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteMiss marks a remote lookup that found no value. It travels
	// inside a RemoteUnavailableError and is absorbed by the race unless
	// every attempt fails.
	ErrRemoteMiss = errors.New("tiercache: remote miss")

	// ErrPrefixUnsupported is returned by PurgePrefix when a configured
	// store cannot enumerate its keys.
	ErrPrefixUnsupported = errors.New("tiercache: store does not support prefix purge")
)

// OriginError wraps a loader failure.
type OriginError struct {
	Err error
}

func (e *OriginError) Error() string { return fmt.Sprintf("origin load failed: %v", e.Err) }
func (e *OriginError) Unwrap() error { return e.Err }

// RemoteUnavailableError covers every non-winning remote outcome: a plain
// miss, a connection failure, a timeout, or a corrupt entry. It never
// surfaces to the caller as long as one attempt in the race succeeds.
type RemoteUnavailableError struct {
	Key string
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("remote tier unavailable for %q: %v", e.Key, e.Err)
}
func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

// ResolutionError is the single terminal failure of Resolve: every attempt
// in the race failed. Last is the error of the attempt that settled last.
type ResolutionError struct {
	Key  string
	Last error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed for %q: %v", e.Key, e.Last)
}
func (e *ResolutionError) Unwrap() error { return e.Last }

// PurgeError reports a purge that failed on one or both tiers.
type PurgeError struct {
	Key       string
	LocalErr  error
	RemoteErr error
}

func (e *PurgeError) Error() string {
	switch {
	case e.LocalErr != nil && e.RemoteErr != nil:
		return fmt.Sprintf("purge %q failed on both tiers: local=%v; remote=%v",
			e.Key, e.LocalErr, e.RemoteErr)
	case e.LocalErr != nil:
		return fmt.Sprintf("purge %q: local tier failed: %v", e.Key, e.LocalErr)
	case e.RemoteErr != nil:
		return fmt.Sprintf("purge %q: remote tier failed: %v", e.Key, e.RemoteErr)
	default:
		return fmt.Sprintf("purge %q: unknown error", e.Key)
	}
}

func (e *PurgeError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.LocalErr != nil {
		errs = append(errs, e.LocalErr)
	}
	if e.RemoteErr != nil {
		errs = append(errs, e.RemoteErr)
	}
	return errs
}
