package graph

// Field is a single named slot in a node: the value plus the time it
// was last adopted, in float seconds since the epoch. UpdatedAt only
// ever moves forward, and only as a result of a merge.
type Field struct {
	UpdatedAt float64
	Value     Value
}

// Node is a graph vertex: an immutable id plus a map of independently
// timestamped fields. A node with no fields is valid; lookup misses
// materialize exactly that.
type Node struct {
	ID     ID
	Fields map[string]Field
}

// NewNode mints a node with a fresh id and no fields.
func NewNode() Node {
	return Node{ID: NewID(), Fields: make(map[string]Field)}
}

// NewNodeWithID is used when the id is dictated from outside, e.g.
// when materializing the target of a dangling reference.
func NewNodeWithID(id ID) Node {
	return Node{ID: id, Fields: make(map[string]Field)}
}

// Set writes a field stamped at the given time. This is the only
// mutation path besides merge; it is what navigation handles use on
// their private snapshots.
func (n *Node) Set(name string, value Value, now float64) {
	if n.Fields == nil {
		n.Fields = make(map[string]Field)
	}
	n.Fields[name] = Field{UpdatedAt: now, Value: value}
}

func (n *Node) Get(name string) (Field, bool) {
	f, ok := n.Fields[name]
	return f, ok
}

// Clone deep-copies the node so handles never alias the cache.
func (n *Node) Clone() Node {
	fields := make(map[string]Field, len(n.Fields))
	for k, f := range n.Fields {
		if f.Value.kind == Binary {
			raw, _ := f.Value.Binary()
			f.Value = Value{kind: Binary, raw: raw}
		}
		fields[k] = f
	}
	return Node{ID: n.ID, Fields: fields}
}
