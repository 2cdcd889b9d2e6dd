package codec

// Bytes is an identity codec for []byte values. Useful when the cached
// value is already rendered output (an HTML fragment, a compressed blob)
// and only the tiering and framing are wanted.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String is a trivial codec for Go string values. Assumes UTF-8 by
// convention and performs no validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
