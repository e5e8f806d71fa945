package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeJSONRoundTrip(t *testing.T) {
	n := fullNode()
	data, err := json.Marshal(n)
	require.NoError(t, err)

	var back Node
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, n.ID, back.ID)
	assert.Equal(t, n.Fields, back.Fields)

	// Encoding is deterministic, so a second pass reproduces the
	// exact bytes.
	again, err := json.Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestNodeJSONShape(t *testing.T) {
	id := NewID()
	ref := NewID()
	n := Node{ID: id, Fields: map[string]Field{
		"name":   {UpdatedAt: 100, Value: StringValue("Alice")},
		"age":    {UpdatedAt: 50, Value: IntValue(30)},
		"score":  {UpdatedAt: 51, Value: FloatValue(30)},
		"blob":   {UpdatedAt: 52, Value: BinaryValue([]byte("hi"))},
		"friend": {UpdatedAt: 53, Value: RefValue(ref)},
		"gone":   {UpdatedAt: 54, Value: EmptyValue()},
	}}
	data, err := json.Marshal(n)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	meta := out["_"].(map[string]any)
	assert.Equal(t, id.String(), meta["#"])
	states := meta[">"].(map[string]any)
	assert.Equal(t, 100.0, states["name"])

	assert.Equal(t, "Alice", out["name"])
	assert.Equal(t, 30.0, out["age"])
	assert.Equal(t, "$base64$aGk=", out["blob"])
	assert.Equal(t, map[string]any{"#": ref.String()}, out["friend"])
	assert.Nil(t, out["gone"])

	// Integers and floats keep their kinds across the wire even when
	// the float is integral.
	assert.Contains(t, string(data), `"score":30.0`)
	assert.Contains(t, string(data), `"age":30`)
}

func TestNodeJSONDecodeRejectsBadShapes(t *testing.T) {
	id := NewID().String()
	cases := []string{
		// No metadata at all.
		`{"name":"Alice"}`,
		// Field without a timestamp.
		fmt.Sprintf(`{"_":{"#":%q,">":{}},"name":"Alice"}`, id),
		// Unknown metadata member.
		fmt.Sprintf(`{"_":{"#":%q,">":{},"extra":1}}`, id),
		// Bad id.
		`{"_":{"#":"not-an-id",">":{}}}`,
		// Reference object with a stray member.
		fmt.Sprintf(`{"_":{"#":%q,">":{"f":1}},"f":{"#":%q,"x":1}}`, id, id),
		// Reference object with the wrong member.
		fmt.Sprintf(`{"_":{"#":%q,">":{"f":1}},"f":{"link":%q}}`, id, id),
		// Broken base64 behind the marker.
		fmt.Sprintf(`{"_":{"#":%q,">":{"f":1}},"f":"$base64$!!!"}`, id),
		// Arrays are not a value kind.
		fmt.Sprintf(`{"_":{"#":%q,">":{"f":1}},"f":[1,2]}`, id),
	}
	for _, c := range cases {
		var n Node
		err := json.Unmarshal([]byte(c), &n)
		assert.ErrorIs(t, err, ErrBadWireJSON, "input: %s", c)
	}
}

func TestNodeJSONNumberKinds(t *testing.T) {
	id := NewID().String()
	in := fmt.Sprintf(`{"_":{"#":%q,">":{"i":1,"f":2,"e":3}},"i":7,"f":7.5,"e":1e2}`, id)
	var n Node
	require.NoError(t, json.Unmarshal([]byte(in), &n))
	assert.Equal(t, IntValue(7), n.Fields["i"].Value)
	assert.Equal(t, FloatValue(7.5), n.Fields["f"].Value)
	assert.Equal(t, FloatValue(100), n.Fields["e"].Value)
}

func TestNodeJSONNonFiniteFloat(t *testing.T) {
	n := NewNode()
	n.Set("bad", FloatValue(math.NaN()), 1)
	_, err := json.Marshal(n)
	assert.ErrorIs(t, err, ErrNonFinite)
}
