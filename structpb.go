package remotecoll

import (
	"encoding/json"

	"google.golang.org/protobuf/types/known/structpb"

	c "github.com/unkn0wn-root/remotecoll/codec"
)

// ToStruct returns c as a protobuf Struct, the protobuf rendition of Tree.
// Numbers travel as float64, as with any JSON tree.
func (c Collection[V]) ToStruct() (*structpb.Struct, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(tree)
}

// FromStruct is the inverse of ToStruct.
func FromStruct[V any](s *structpb.Struct, opts DecodeOptions[V]) (Collection[V], error) {
	return FromTree(s.AsMap(), opts)
}

// StructCodec archives documents as serialized google.protobuf.Struct
// messages, for stores shared with protobuf-only consumers.
type StructCodec[V any] struct{}

var _ c.Codec[Document[struct{}]] = StructCodec[struct{}]{}

var structMsg = c.NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })

func (StructCodec[V]) Encode(d Document[V]) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(tree)
	if err != nil {
		return nil, err
	}
	return structMsg.Encode(s)
}

func (StructCodec[V]) Decode(b []byte) (Document[V], error) {
	var d Document[V]
	s, err := structMsg.Decode(b)
	if err != nil {
		return d, err
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return d, err
	}
	err = json.Unmarshal(raw, &d)
	return d, err
}
