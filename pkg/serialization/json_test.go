package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONKeepsIntegers(t *testing.T) {
	v, err := FromJSON([]byte(`{"n": 3, "big": 18446744073709551615, "f": 1.5, "e": 1e-3, "l": [1, "a", null]}`))
	require.NoError(t, err)

	m := v.(map[string]any)
	assert.Equal(t, int64(3), m["n"])
	assert.Equal(t, uint64(18446744073709551615), m["big"])
	assert.Equal(t, 1.5, m["f"])
	assert.Equal(t, 1e-3, m["e"])
	assert.Equal(t, []any{int64(1), "a", nil}, m["l"])
}

func TestFromJSONEmptyIsUnit(t *testing.T) {
	v, err := FromJSON([]byte("  "))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`1 2`))
	assert.Error(t, err)
}

func TestJSONToCBORMatchesNativeEncoding(t *testing.T) {
	v, err := FromJSON([]byte(`{"Fill": 7}`))
	require.NoError(t, err)

	fromJSON, err := Marshal(v)
	require.NoError(t, err)
	native, err := Marshal(Variant("Fill", int64(7)))
	require.NoError(t, err)

	assert.Equal(t, native, fromJSON)
}

func TestCanonical(t *testing.T) {
	in := map[any]any{
		"name":    "pump",
		uint64(1): []any{[]byte{0xff}, map[any]any{"x": 1.5}},
	}

	got := Canonical(in)
	assert.Equal(t, map[string]any{
		"name": "pump",
		"1":    []any{"/w==", map[string]any{"x": 1.5}},
	}, got)
}

func TestToJSON(t *testing.T) {
	data, err := Marshal(map[string]any{"flow": 4.5e-6, "on": true})
	require.NoError(t, err)

	out, err := ToJSON(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"flow": 4.5e-6, "on": true}`, string(out))

	_, err = ToJSON([]byte{0x82})
	assert.Error(t, err)
}
