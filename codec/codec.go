// Package codec converts cached values to and from bytes.
//
// A Serializer is configured once per cache and must round-trip every type the
// cache is used with. Codec[V] is the typed view the cache core works with.
package codec

// Serializer is a type-agnostic encoder. Unmarshal receives a non-nil pointer.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
}

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// For returns the typed view of s for V.
func For[V any](s Serializer) Codec[V] { return typed[V]{s: s} }

type typed[V any] struct{ s Serializer }

func (c typed[V]) Encode(v V) ([]byte, error) { return c.s.Marshal(v) }
func (c typed[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.s.Unmarshal(b, &v)
	return v, err
}
