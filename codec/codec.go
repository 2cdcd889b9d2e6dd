// Package codec defines how cached values are (de)serialized for storage.
// Both tiers store opaque bytes; a Codec is the only place the value type
// is interpreted.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
