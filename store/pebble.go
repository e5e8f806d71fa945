package store

import (
	"context"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/eraeco/rod/graph"
)

// Pebble key space: lit O + raw id bytes for nodes, lit N + raw key
// bytes for name mappings. Values reuse the binary node and mapping
// encodings, so a pebble store and an fs store hold byte-identical
// records.
func nodeKey(id graph.ID) []byte {
	return append([]byte{'O'}, id.Bytes()...)
}

func nameKey(key string) []byte {
	return append([]byte{'N'}, key...)
}

var writeOptions = pebble.WriteOptions{Sync: false}

// PebbleStore is the embedded-KV backend, for deployments where a
// directory of small files is too slow or too loose.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "open pebble db")
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) GetNode(ctx context.Context, id graph.ID) (*graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db == nil {
		return nil, ErrClosed
	}
	val, closer, err := s.db.Get(nodeKey(id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebble get node")
	}
	node, perr := graph.ParseNode(val)
	_ = closer.Close()
	if perr != nil {
		return nil, perr
	}
	if node.ID != id {
		return nil, ErrWrongShape
	}
	return &node, nil
}

func (s *PebbleStore) PutNode(ctx context.Context, node *graph.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db == nil {
		return ErrClosed
	}
	buf := graph.AppendNode(nil, node)
	err := s.db.Set(nodeKey(node.ID), buf, &writeOptions)
	return errors.Wrap(err, "pebble put node")
}

func (s *PebbleStore) DeleteNode(ctx context.Context, id graph.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Delete(nodeKey(id), &writeOptions)
	return errors.Wrap(err, "pebble delete node")
}

func (s *PebbleStore) SetID(ctx context.Context, key string, id *graph.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db == nil {
		return ErrClosed
	}
	buf := graph.AppendIDMapping(nil, id)
	err := s.db.Set(nameKey(key), buf, &writeOptions)
	return errors.Wrap(err, "pebble set mapping")
}

func (s *PebbleStore) GetID(ctx context.Context, key string) (*graph.ID, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.db == nil {
		return nil, false, ErrClosed
	}
	val, closer, err := s.db.Get(nameKey(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "pebble get mapping")
	}
	id, perr := graph.ParseIDMapping(val)
	_ = closer.Close()
	if perr != nil {
		return nil, false, perr
	}
	return id, true, nil
}

func (s *PebbleStore) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}
