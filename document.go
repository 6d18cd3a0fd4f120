package remotecoll

import (
	"encoding/json"
	"fmt"

	"github.com/benbjohnson/immutable"

	"github.com/unkn0wn-root/remotecoll/loading"
)

// DocumentType marks encoded collections, current and legacy alike.
const DocumentType = "remotecoll/collection"

// Document is the encoded form of a Collection. It is codec-agnostic: JSON,
// msgpack and CBOR all use the same field names.
type Document[V any] struct {
	Type     string                             `json:"_type" msgpack:"_type" cbor:"_type"`
	IDProp   string                             `json:"idProp" msgpack:"idProp" cbor:"idProp"`
	Views    map[string]loading.Value[[]string] `json:"views" msgpack:"views" cbor:"views"`
	Entities map[string]loading.Value[V]        `json:"entities" msgpack:"entities" cbor:"entities"`
}

// DecodeOptions tell the decoder how to identify entities.
type DecodeOptions[V any] struct {
	// IDProp is used when the document does not name one (legacy documents).
	IDProp string
	// ID overrides the property-based identity function.
	ID IDFunc[V]
}

// Document returns the encodable form of c.
func (c Collection[V]) Document() Document[V] {
	d := Document[V]{
		Type:     DocumentType,
		IDProp:   c.idProp,
		Views:    make(map[string]loading.Value[[]string], c.views.Len()),
		Entities: make(map[string]loading.Value[V], c.entities.Len()),
	}
	vi := c.views.Iterator()
	for !vi.Done() {
		k, v, _ := vi.Next()
		d.Views[k] = v
	}
	ei := c.entities.Iterator()
	for !ei.Done() {
		k, v, _ := ei.Next()
		d.Entities[k] = v
	}
	return d
}

// FromDocument rebuilds a collection from its encoded form.
func FromDocument[V any](d Document[V], opts DecodeOptions[V]) (Collection[V], error) {
	if d.Type != DocumentType {
		return Collection[V]{}, fmt.Errorf("%w: type %q", ErrUnknownFormat, d.Type)
	}
	prop := coalesce(d.IDProp, opts.IDProp)
	id := opts.ID
	if id == nil {
		if prop == "" {
			return Collection[V]{}, ErrNoID
		}
		id = PropID[V](prop)
	}

	vb := immutable.NewMapBuilder[string, loading.Value[[]string]](nil)
	for k, v := range d.Views {
		vb.Set(k, v)
	}
	eb := immutable.NewMapBuilder[string, loading.Value[V]](nil)
	for k, v := range d.Entities {
		eb.Set(k, v)
	}
	return Collection[V]{
		idProp:   prop,
		id:       id,
		views:    vb.Map(),
		entities: eb.Map(),
	}, nil
}

// MarshalJSON always writes the current document shape.
func (c Collection[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Document())
}

// UnmarshalJSON decodes current and legacy documents. The identity function
// and property of the receiver, if set, are used as decode options.
func (c *Collection[V]) UnmarshalJSON(b []byte) error {
	out, err := Decode(b, DecodeOptions[V]{IDProp: c.idProp, ID: c.id})
	if err != nil {
		return err
	}
	*c = out
	return nil
}

// Decode reads a JSON document. Legacy documents (flat knownIds, idMap and
// entities) are upgraded transparently.
func Decode[V any](b []byte, opts DecodeOptions[V]) (Collection[V], error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return Collection[V]{}, err
	}
	if isLegacy(probe) {
		var l legacyDocument[V]
		if err := json.Unmarshal(b, &l); err != nil {
			return Collection[V]{}, err
		}
		return FromDocument(l.upgrade(), opts)
	}
	var d Document[V]
	if err := json.Unmarshal(b, &d); err != nil {
		return Collection[V]{}, err
	}
	return FromDocument(d, opts)
}

// Tree returns c as a JSON-compatible tree of maps, slices and scalars.
func (c Collection[V]) Tree() (map[string]any, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// FromTree is the inverse of Tree.
func FromTree[V any](tree map[string]any, opts DecodeOptions[V]) (Collection[V], error) {
	b, err := json.Marshal(tree)
	if err != nil {
		return Collection[V]{}, err
	}
	return Decode(b, opts)
}
