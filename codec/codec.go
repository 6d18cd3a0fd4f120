// Package codec turns values into bytes and back. Archive uses a
// Codec[remotecoll.Document[V]] to store collection snapshots.
//
// JSON and Msgpack name fields by their `json` tags; CBOR uses `cbor` tags and
// falls back to `json` ones. Protobuf encodes generated messages and ignores
// struct tags.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
