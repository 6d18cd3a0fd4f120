package codec

import (
	"bytes"
	"encoding/json"
)

// JSON is a Codec backed by encoding/json. The zero value is ready to use.
type JSON[V any] struct {
	// Strict rejects payloads carrying fields unknown to V.
	Strict bool
}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (c JSON[V]) Decode(b []byte) (V, error) {
	var v V
	dec := json.NewDecoder(bytes.NewReader(b))
	if c.Strict {
		dec.DisallowUnknownFields()
	}
	err := dec.Decode(&v)
	return v, err
}
