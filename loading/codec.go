package loading

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrInvalidEncoding is returned when an encoded value has an unknown type
// marker or a failure without messages.
var ErrInvalidEncoding = errors.New("loading: invalid encoded value")

// Nested values are always written in Core Deterministic form, so a snapshot
// encodes to the same bytes whatever mode the enclosing encoder uses.
var (
	cborEnc = mustEncMode()
	cborDec = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// wireValue is the tagged object every codec reads and writes:
//
//	{"type":"success","value":...}
//	{"type":"failure","errors":["..."]}
type wireValue[V any] struct {
	Type   string   `json:"type" msgpack:"type" cbor:"type"`
	Value  *V       `json:"value,omitempty" msgpack:"value,omitempty" cbor:"value,omitempty"`
	Errors []string `json:"errors,omitempty" msgpack:"errors,omitempty" cbor:"errors,omitempty"`
}

func (v Value[V]) wire() wireValue[V] {
	w := wireValue[V]{Type: v.state.String()}
	switch v.state {
	case StateRefresh, StateSuccess:
		p := v.value
		w.Value = &p
	case StateFailure:
		w.Errors = v.errs
	}
	return w
}

func fromWire[V any](w wireValue[V]) (Value[V], error) {
	var payload V
	if w.Value != nil {
		payload = *w.Value
	}
	switch w.Type {
	case "initial":
		return Initial[V](), nil
	case "pending":
		return Pending[V](), nil
	case "refresh":
		return Refresh(payload), nil
	case "success":
		return Success(payload), nil
	case "failure":
		if len(w.Errors) == 0 {
			return Value[V]{}, fmt.Errorf("%w: failure without errors", ErrInvalidEncoding)
		}
		return failureOf[V](w.Errors), nil
	default:
		return Value[V]{}, fmt.Errorf("%w: type %q", ErrInvalidEncoding, w.Type)
	}
}

func (v Value[V]) MarshalJSON() ([]byte, error) { return json.Marshal(v.wire()) }

func (v *Value[V]) UnmarshalJSON(b []byte) error {
	var w wireValue[V]
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out, err := fromWire(w)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (v Value[V]) MarshalCBOR() ([]byte, error) { return cborEnc.Marshal(v.wire()) }

func (v *Value[V]) UnmarshalCBOR(b []byte) error {
	var w wireValue[V]
	if err := cborDec.Unmarshal(b, &w); err != nil {
		return err
	}
	out, err := fromWire(w)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

var (
	_ msgpack.CustomEncoder = Value[struct{}]{}
	_ msgpack.CustomDecoder = (*Value[struct{}])(nil)
)

func (v Value[V]) EncodeMsgpack(enc *msgpack.Encoder) error { return enc.Encode(v.wire()) }

func (v *Value[V]) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w wireValue[V]
	if err := dec.Decode(&w); err != nil {
		return err
	}
	out, err := fromWire(w)
	if err != nil {
		return err
	}
	*v = out
	return nil
}
