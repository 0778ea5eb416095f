// Package serialization converts Go values to and from CBOR, the
// self-describing binary encoding that carries event, query and
// configuration payloads between the client and the simulation server.
//
// The simulator decodes payloads with serde, so the Go side follows serde's
// conventions: structs are maps keyed by field name (use `cbor:"name"` tags),
// tuple structs are arrays (use the `cbor:",toarray"` struct tag), unit and
// Option::None are null, and enums are externally tagged (see Enum).
package serialization

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
)

// RawMessage is an encoded CBOR item whose decoding is deferred.
type RawMessage = cbor.RawMessage

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOpts := cbor.CoreDetEncOptions()
	// serde decoders accept any float width, but keeping float64 preserves
	// the exact value the caller passed in.
	encOpts.ShortestFloat = cbor.ShortestFloatNone

	var err error
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic("serialization: invalid CBOR encoding options: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[any]any(nil)),
	}.DecMode()
	if err != nil {
		panic("serialization: invalid CBOR decoding options: " + err.Error())
	}
}

// Marshal encodes v. A nil v encodes as CBOR null, which the simulator reads
// as the unit type or Option::None.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, simerrors.WrapSerializationError("cbor marshal", err)
	}
	return data, nil
}

// Unmarshal decodes data into v. Decoding into an *any yields the canonical
// representation: bool, uint64, int64, float64, string, []byte, []any,
// map[any]any or nil.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return simerrors.WrapSerializationError("cbor unmarshal", err)
	}
	return nil
}

// Decode decodes one payload into a new T.
func Decode[T any](data []byte) (T, error) {
	var v T
	err := Unmarshal(data, &v)
	return v, err
}

// DecodeAll decodes a list of payloads, stopping at the first failure.
func DecodeAll[T any](items [][]byte) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := Decode[T](item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Valid reports whether data is exactly one well-formed CBOR item.
func Valid(data []byte) bool {
	return decMode.Wellformed(data) == nil
}

// Unit encodes as CBOR null. It is the payload of an enum variant that
// wraps the unit type, e.g. Enum{Variant: "Reset", Value: Unit{}}.
type Unit struct{}

func (Unit) MarshalCBOR() ([]byte, error) {
	return []byte{0xf6}, nil
}

func (*Unit) UnmarshalCBOR(data []byte) error {
	if len(data) == 1 && (data[0] == 0xf6 || data[0] == 0xf7) {
		return nil
	}
	return simerrors.WrapSerializationError("cbor unmarshal", errNotUnit)
}

var errNotUnit = simerrors.New("expected null for unit value")
