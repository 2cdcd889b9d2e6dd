// Package tiercache coordinates reads across a fast in-process tier, an
// optional shared remote tier, and a caller-supplied origin loader.
//
// On each Resolve the coordinator:
//   - collapses concurrent callers for the same key into one resolution,
//   - serves a live local entry when one exists,
//   - otherwise races the origin loader against a remote lookup and accepts
//     the first success, absorbing individual failures,
//   - writes the winner to the local tier and, on an origin win, schedules a
//     best-effort write-behind to the remote tier.
//
// Components:
//   - local.Store: in-process byte store with per-entry TTL (memory map,
//     Ristretto, BigCache).
//   - remote.Store: shared cross-process byte store (Redis, memcached).
//   - codec.Codec[V]: (de)serializes V <-> []byte.
//
// Keys:
//
//	<ns>:<key> - all entries, both tiers
//
// Callers are expected to embed a content-version token in the key (see
// VersionedKey), so that a key, once written, is never associated with a
// different value. Under that convention TTLs only bound memory; Purge is
// the sole active-invalidation path.
package tiercache
