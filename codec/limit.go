package codec

import "fmt"

// Limit wraps another codec to enforce a maximum payload size at Decode
// time. Encode is forwarded to Inner unchanged. If MaxDecode <= 0, size
// limiting is disabled.
//
// Typical use: protect against oversized entries coming back from a shared
// remote tier that other processes also write to.
type Limit[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec[V]
	// MaxDecode is the maximum permitted length (in bytes) of an incoming
	// payload. Longer payloads fail without invoking Inner.
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
