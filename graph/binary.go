package graph

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"
)

// The binary node encoding is the on-disk compatibility contract: it
// must reproduce, byte for byte, the borsh layout the original files
// were written in. That means little-endian fixed-width scalars,
// u32-prefixed strings and byte blobs, map entries sorted by key, and
// the 128-bit id serialized as a little-endian u128 (i.e. the id
// bytes reversed).

var (
	ErrCorruptData = errors.New("rod: unrecognized data in storage medium")
	ErrBadTag      = errors.New("rod: unknown value kind tag")
)

func appendID(buf []byte, id ID) []byte {
	for i := 15; i >= 0; i-- {
		buf = append(buf, id[i])
	}
	return buf
}

func parseID(buf []byte) (ID, []byte, error) {
	if len(buf) < 16 {
		return ID0, nil, ErrCorruptData
	}
	var id ID
	for i := 0; i < 16; i++ {
		id[i] = buf[15-i]
	}
	return id, buf[16:], nil
}

func appendValue(buf []byte, v Value) []byte {
	buf = append(buf, v.kind)
	switch v.kind {
	case Empty:
	case Bool:
		if v.b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case Int:
		buf = binary.LittleEndian.AppendUint64(buf, uint64(v.i))
	case Float:
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.f))
	case String:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.s)))
		buf = append(buf, v.s...)
	case Binary:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.raw)))
		buf = append(buf, v.raw...)
	case Ref:
		buf = appendID(buf, v.ref)
	}
	return buf
}

func parseValue(buf []byte) (Value, []byte, error) {
	if len(buf) < 1 {
		return Value{}, nil, ErrCorruptData
	}
	kind, rest := buf[0], buf[1:]
	switch kind {
	case Empty:
		return EmptyValue(), rest, nil
	case Bool:
		if len(rest) < 1 || rest[0] > 1 {
			return Value{}, nil, ErrCorruptData
		}
		return BoolValue(rest[0] == 1), rest[1:], nil
	case Int:
		if len(rest) < 8 {
			return Value{}, nil, ErrCorruptData
		}
		i := int64(binary.LittleEndian.Uint64(rest))
		return IntValue(i), rest[8:], nil
	case Float:
		if len(rest) < 8 {
			return Value{}, nil, ErrCorruptData
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(rest))
		return FloatValue(f), rest[8:], nil
	case String:
		s, rest, err := parseBlob(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return StringValue(string(s)), rest, nil
	case Binary:
		raw, rest, err := parseBlob(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return BinaryValue(raw), rest, nil
	case Ref:
		id, rest, err := parseID(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return RefValue(id), rest, nil
	default:
		return Value{}, nil, ErrBadTag
	}
}

func parseBlob(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, ErrCorruptData
	}
	n := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, ErrCorruptData
	}
	return buf[:n], buf[n:], nil
}

// AppendNode appends the encoded node to buf.
func AppendNode(buf []byte, n *Node) []byte {
	buf = appendID(buf, n.ID)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(n.Fields)))
	names := make([]string, 0, len(n.Fields))
	for name := range n.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := n.Fields[name]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(name)))
		buf = append(buf, name...)
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f.UpdatedAt))
		buf = appendValue(buf, f.Value)
	}
	return buf
}

// ParseNode decodes one node and rejects trailing garbage.
func ParseNode(buf []byte) (Node, error) {
	id, rest, err := parseID(buf)
	if err != nil {
		return Node{}, err
	}
	if len(rest) < 4 {
		return Node{}, ErrCorruptData
	}
	count := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]
	fields := make(map[string]Field, count)
	for i := uint32(0); i < count; i++ {
		var name []byte
		name, rest, err = parseBlob(rest)
		if err != nil {
			return Node{}, err
		}
		if len(rest) < 8 {
			return Node{}, ErrCorruptData
		}
		at := math.Float64frombits(binary.LittleEndian.Uint64(rest))
		rest = rest[8:]
		var v Value
		v, rest, err = parseValue(rest)
		if err != nil {
			return Node{}, err
		}
		fields[string(name)] = Field{UpdatedAt: at, Value: v}
	}
	if len(rest) != 0 {
		return Node{}, ErrCorruptData
	}
	return Node{ID: id, Fields: fields}, nil
}

// AppendIDMapping encodes an optional id the way borsh encodes an
// Option: a presence byte, then the payload.
func AppendIDMapping(buf []byte, id *ID) []byte {
	if id == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return appendID(buf, *id)
}

// ParseIDMapping decodes a mapping file body. A nil result with a nil
// error means the key was explicitly mapped to nothing.
func ParseIDMapping(buf []byte) (*ID, error) {
	if len(buf) < 1 {
		return nil, ErrCorruptData
	}
	switch buf[0] {
	case 0:
		if len(buf) != 1 {
			return nil, ErrCorruptData
		}
		return nil, nil
	case 1:
		id, rest, err := parseID(buf[1:])
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, ErrCorruptData
		}
		return &id, nil
	default:
		return nil, ErrCorruptData
	}
}
