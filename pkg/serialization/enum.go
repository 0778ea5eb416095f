package serialization

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
)

const majorTypeText = 3

// Enum is an externally tagged enum value. A unit variant (nil Value) is
// encoded as its name; any other variant as a single-entry map from the
// name to the payload:
//
//	Enum{Variant: "Idle"}                         -> "Idle"
//	Enum{Variant: "Fill", Value: 1.5e-3}          -> {"Fill": 1.5e-3}
//	Enum{Variant: "Move", Value: Point{X: 1}}     -> {"Move": {"x": 1}}
//
// After decoding, Value holds the undecoded payload as a RawMessage; use As
// to decode it into the variant's type.
type Enum struct {
	Variant string
	Value   any
}

// UnitVariant is shorthand for Enum{Variant: name}.
func UnitVariant(name string) Enum {
	return Enum{Variant: name}
}

// Variant is shorthand for Enum{Variant: name, Value: value}.
func Variant(name string, value any) Enum {
	return Enum{Variant: name, Value: value}
}

func (e Enum) MarshalCBOR() ([]byte, error) {
	if e.Variant == "" {
		return nil, fmt.Errorf("enum variant name is empty")
	}
	if e.Value == nil {
		return encMode.Marshal(e.Variant)
	}
	return encMode.Marshal(map[string]any{e.Variant: e.Value})
}

func (e *Enum) UnmarshalCBOR(data []byte) error {
	if len(data) > 0 && data[0]>>5 == majorTypeText {
		var name string
		if err := decMode.Unmarshal(data, &name); err != nil {
			return err
		}
		e.Variant = name
		e.Value = nil
		return nil
	}

	var m map[string]cbor.RawMessage
	if err := decMode.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("enum must be a text string or a single-entry map: %w", err)
	}
	if len(m) != 1 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Errorf("enum map must have exactly one entry, got %d %v", len(m), keys)
	}
	for k, v := range m {
		e.Variant = k
		e.Value = RawMessage(v)
	}
	return nil
}

// IsUnit reports whether the enum is a unit variant.
func (e Enum) IsUnit() bool {
	return e.Value == nil
}

// As decodes the variant payload into v.
func (e Enum) As(v any) error {
	switch payload := e.Value.(type) {
	case nil:
		return simerrors.WrapSerializationError("enum payload",
			fmt.Errorf("variant %q carries no payload", e.Variant))
	case RawMessage:
		return Unmarshal(payload, v)
	}

	data, err := Marshal(e.Value)
	if err != nil {
		return err
	}
	return Unmarshal(data, v)
}

func (e Enum) String() string {
	if e.Value == nil {
		return e.Variant
	}
	return fmt.Sprintf("%s(%v)", e.Variant, e.Value)
}
