package graph

// Value kinds. The set is closed: merge and codec logic switch over
// every kind exhaustively, so adding one means touching all of them.
const (
	Empty  = byte(0)
	Bool   = byte(1)
	Int    = byte(2)
	Float  = byte(3)
	String = byte(4)
	Binary = byte(5)
	Ref    = byte(6)
)

// Value is a tagged union over the seven field value kinds. Exactly
// one variant is live at a time, selected by the kind byte.
type Value struct {
	kind byte
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	ref  ID
}

func EmptyValue() Value          { return Value{kind: Empty} }
func BoolValue(b bool) Value     { return Value{kind: Bool, b: b} }
func IntValue(i int64) Value     { return Value{kind: Int, i: i} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }
func StringValue(s string) Value { return Value{kind: String, s: s} }
func RefValue(id ID) Value       { return Value{kind: Ref, ref: id} }

func BinaryValue(raw []byte) Value {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Value{kind: Binary, raw: cp}
}

func (v Value) Kind() byte { return v.kind }

func (v Value) Bool() (bool, bool)     { return v.b, v.kind == Bool }
func (v Value) Int() (int64, bool)     { return v.i, v.kind == Int }
func (v Value) Float() (float64, bool) { return v.f, v.kind == Float }
func (v Value) Text() (string, bool)   { return v.s, v.kind == String }
func (v Value) Ref() (ID, bool)        { return v.ref, v.kind == Ref }

func (v Value) Binary() ([]byte, bool) {
	if v.kind != Binary {
		return nil, false
	}
	cp := make([]byte, len(v.raw))
	copy(cp, v.raw)
	return cp, true
}

// Equal is exact equality: same kind, same payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Empty:
		return true
	case Bool:
		return v.b == other.b
	case Int:
		return v.i == other.i
	case Float:
		return v.f == other.f
	case String:
		return v.s == other.s
	case Binary:
		return string(v.raw) == string(other.raw)
	case Ref:
		return v.ref == other.ref
	}
	return false
}
