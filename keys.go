package tiercache

// VersionedKey builds a cache key that embeds a content-version token.
// A versioned key is logically immutable: a content change produces a new
// token and therefore a new key, so the value stored under the old key is
// never replaced and downstream HTTP caches may hold it indefinitely.
//
// The token itself is produced upstream (a deploy hash, a row version, a
// modification counter); the cache treats it as opaque.
func VersionedKey(key, version string) string {
	return key + "@" + version
}
