package serialization

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
)

// FromJSON parses a JSON document into a value ready for Marshal. Integer
// literals stay integers so that they reach the simulator as CBOR integers
// rather than floats. Empty input yields nil (the unit value).
func FromJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, simerrors.WrapSerializationError("json decode", err)
	}
	if dec.More() {
		return nil, simerrors.WrapSerializationError("json decode", fmt.Errorf("trailing data after JSON value"))
	}
	return fromJSONValue(v)
}

func fromJSONValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		return parseNumber(val)
	case []any:
		for i := range val {
			item, err := fromJSONValue(val[i])
			if err != nil {
				return nil, err
			}
			val[i] = item
		}
		return val, nil
	case map[string]any:
		for k := range val {
			item, err := fromJSONValue(val[k])
			if err != nil {
				return nil, err
			}
			val[k] = item
		}
		return val, nil
	default:
		return val, nil
	}
}

func parseNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, simerrors.WrapSerializationError("json decode", fmt.Errorf("invalid number %q: %w", s, err))
	}
	return f, nil
}

// Canonical converts a decoded CBOR value into a form encoding/json can
// print: maps get string keys (sorted when printed by encoding/json), byte
// strings become base64 text and tags become {"tag": n, "value": v}.
func Canonical(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[keyString(k)] = Canonical(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Canonical(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Canonical(item)
		}
		return out
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case cbor.Tag:
		return map[string]any{"tag": val.Number, "value": Canonical(val.Content)}
	case Enum:
		if val.Value == nil {
			return val.Variant
		}
		var payload any
		if err := val.As(&payload); err != nil {
			return map[string]any{val.Variant: fmt.Sprint(val.Value)}
		}
		return map[string]any{val.Variant: Canonical(payload)}
	default:
		return val
	}
}

func keyString(k any) string {
	switch key := k.(type) {
	case string:
		return key
	case []byte:
		return base64.StdEncoding.EncodeToString(key)
	default:
		return fmt.Sprint(key)
	}
}

// ToJSON decodes one CBOR payload and renders it as compact JSON.
func ToJSON(data []byte) ([]byte, error) {
	var v any
	if err := Unmarshal(data, &v); err != nil {
		return nil, err
	}
	out, err := json.Marshal(Canonical(v))
	if err != nil {
		return nil, simerrors.WrapSerializationError("json encode", err)
	}
	return out, nil
}
