package graph

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire-interchange JSON form, shared with the wider graph-sync
// ecosystem: a node is a flat object whose "_" member carries the id
// under "#" and the per-field timestamps under ">". Binary payloads
// travel as base64 strings behind a marker token, references as
// one-member objects.
//
//	{"_":{"#":"<id>",">":{"name":100}},"name":"Alice"}

const base64Marker = "$base64$"

var (
	ErrBadWireJSON = errors.New("rod: malformed wire json")
	ErrNonFinite   = errors.New("rod: non-finite float has no json form")
)

type wireMeta struct {
	ID     string             `json:"#"`
	States map[string]float64 `json:">"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	states := make(map[string]float64, len(n.Fields))
	out := make(map[string]json.RawMessage, len(n.Fields)+1)
	for name, f := range n.Fields {
		states[name] = f.UpdatedAt
		raw, err := encodeWireValue(f.Value)
		if err != nil {
			return nil, err
		}
		out[name] = raw
	}
	meta, err := json.Marshal(wireMeta{ID: n.ID.String(), States: states})
	if err != nil {
		return nil, err
	}
	out["_"] = meta
	return json.Marshal(out)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrBadWireJSON, err)
	}
	metaRaw, ok := raw["_"]
	if !ok {
		return fmt.Errorf("%w: missing \"_\" metadata", ErrBadWireJSON)
	}
	var meta wireMeta
	dec := json.NewDecoder(strings.NewReader(string(metaRaw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&meta); err != nil {
		return fmt.Errorf("%w: %s", ErrBadWireJSON, err)
	}
	id, err := IDFromString(meta.ID)
	if err != nil {
		return fmt.Errorf("%w: bad node id %q", ErrBadWireJSON, meta.ID)
	}
	fields := make(map[string]Field, len(raw)-1)
	for name, body := range raw {
		if name == "_" {
			continue
		}
		at, ok := meta.States[name]
		if !ok {
			return fmt.Errorf("%w: field %q has no timestamp", ErrBadWireJSON, name)
		}
		v, err := decodeWireValue(body)
		if err != nil {
			return err
		}
		fields[name] = Field{UpdatedAt: at, Value: v}
	}
	n.ID = id
	n.Fields = fields
	return nil
}

func encodeWireValue(v Value) (json.RawMessage, error) {
	switch v.kind {
	case Empty:
		return json.RawMessage("null"), nil
	case Bool:
		if v.b {
			return json.RawMessage("true"), nil
		}
		return json.RawMessage("false"), nil
	case Int:
		return json.RawMessage(strconv.FormatInt(v.i, 10)), nil
	case Float:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, ErrNonFinite
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		// Keep the decimal point so the peer decodes a float, not an
		// integer.
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return json.RawMessage(s), nil
	case String:
		return json.Marshal(v.s)
	case Binary:
		return json.Marshal(base64Marker + base64.StdEncoding.EncodeToString(v.raw))
	case Ref:
		return json.Marshal(map[string]string{"#": v.ref.String()})
	}
	return nil, ErrBadTag
}

func decodeWireValue(body json.RawMessage) (Value, error) {
	t := strings.TrimSpace(string(body))
	if len(t) == 0 {
		return Value{}, ErrBadWireJSON
	}
	switch t[0] {
	case 'n':
		if t != "null" {
			return Value{}, ErrBadWireJSON
		}
		return EmptyValue(), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(body, &b); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrBadWireJSON, err)
		}
		return BoolValue(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrBadWireJSON, err)
		}
		if strings.HasPrefix(s, base64Marker) {
			raw, err := base64.StdEncoding.DecodeString(s[len(base64Marker):])
			if err != nil {
				return Value{}, fmt.Errorf("%w: invalid base64 after %q", ErrBadWireJSON, base64Marker)
			}
			return BinaryValue(raw), nil
		}
		return StringValue(s), nil
	case '{':
		return decodeWireRef(body)
	case '[':
		return Value{}, fmt.Errorf("%w: arrays are not a value kind", ErrBadWireJSON)
	default:
		return decodeWireNumber(t)
	}
}

// A reference is an object with exactly one member, "#". Anything
// else under the object is a format error, not an extension point.
func decodeWireRef(body json.RawMessage) (Value, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrBadWireJSON, err)
	}
	idRaw, ok := obj["#"]
	if !ok || len(obj) != 1 {
		return Value{}, fmt.Errorf("%w: reference object must have a single \"#\" member", ErrBadWireJSON)
	}
	var idStr string
	if err := json.Unmarshal(idRaw, &idStr); err != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrBadWireJSON, err)
	}
	id, err := IDFromString(idStr)
	if err != nil {
		return Value{}, fmt.Errorf("%w: bad reference id %q", ErrBadWireJSON, idStr)
	}
	return RefValue(id), nil
}

// Numbers without a fraction or exponent decode as integers, the rest
// as floats, mirroring how the upstream peers serialize the two kinds.
func decodeWireNumber(t string) (Value, error) {
	var num json.Number
	if err := json.Unmarshal([]byte(t), &num); err != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrBadWireJSON, err)
	}
	if !strings.ContainsAny(t, ".eE") {
		if i, err := num.Int64(); err == nil {
			return IntValue(i), nil
		}
	}
	f, err := num.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrBadWireJSON, err)
	}
	return FloatValue(f), nil
}
