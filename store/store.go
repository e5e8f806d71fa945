// Package store defines the persistence seam the engine writes
// through, plus the two bundled backends: a one-file-per-node
// filesystem store and an embedded pebble store. The contract is kept
// deliberately narrow so a browser-storage or remote backend can slot
// in without touching the engine.
package store

import (
	"context"
	"errors"

	"github.com/eraeco/rod/graph"
)

var (
	// ErrWrongShape: the bytes under a node key decoded cleanly but
	// describe a different node than the key names.
	ErrWrongShape = errors.New("rod: stored data has the wrong shape")
	// ErrClosed: the backend was closed and can no longer serve.
	ErrClosed = errors.New("rod: store is closed")
)

// Store is the persistence contract. All methods may block on I/O;
// callers run them from goroutines and the runtime keeps other work
// moving. Failures propagate; nothing here retries.
type Store interface {
	// GetNode returns the stored node, or nil when the id is unknown.
	GetNode(ctx context.Context, id graph.ID) (*graph.Node, error)
	// PutNode writes the node, replacing any previous version.
	PutNode(ctx context.Context, node *graph.Node) error
	// DeleteNode removes the node. Deleting an unknown id is not an
	// error.
	DeleteNode(ctx context.Context, id graph.ID) error

	// SetID records a name->id mapping. A nil id maps the key to
	// nothing, which is distinct from the key never having been seen.
	SetID(ctx context.Context, key string, id *graph.ID) error
	// GetID resolves a name mapping. ok reports whether any mapping
	// exists; a nil id with ok=true means the key was explicitly
	// cleared.
	GetID(ctx context.Context, key string) (id *graph.ID, ok bool, err error)

	Close() error
}
