package rod

import (
	"context"

	"github.com/eraeco/rod/graph"
)

// Handle is a read/write view over one node. It holds a private
// snapshot: Set mutates only the snapshot, and nothing touches the
// engine until the handle is saved back through Put. Handles never
// share state with the cache or with each other.
type Handle struct {
	eng  *Engine
	node graph.Node
}

func (h *Handle) ID() graph.ID {
	return h.node.ID
}

// Node returns a copy of the snapshot.
func (h *Handle) Node() graph.Node {
	return h.node.Clone()
}

func (h *Handle) Get(name string) (graph.Value, bool) {
	f, ok := h.node.Get(name)
	if !ok {
		return graph.Value{}, false
	}
	return f.Value, true
}

// Set writes a field into the snapshot, stamped with the current
// clock reading.
func (h *Handle) Set(name string, value graph.Value) {
	h.node.Set(name, value, h.eng.clock.Now())
}

// Save merges the snapshot back into the database under key. Sugar
// for Engine.Put.
func (h *Handle) Save(ctx context.Context, key string) error {
	return h.eng.Put(ctx, key, h.node)
}

// Follow resolves the named field as a graph edge. Edges are soft: a
// missing field, a value that is not a reference, or a reference to a
// node nobody ever wrote all yield an empty node, never an error.
// Only store I/O can fail.
func (h *Handle) Follow(ctx context.Context, name string) (*Handle, error) {
	f, ok := h.node.Get(name)
	if !ok {
		return &Handle{eng: h.eng, node: graph.NewNode()}, nil
	}
	id, ok := f.Value.Ref()
	if !ok {
		return &Handle{eng: h.eng, node: graph.NewNode()}, nil
	}
	return h.eng.GetByID(ctx, id)
}
