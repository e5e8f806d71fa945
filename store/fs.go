package store

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/eraeco/rod/graph"
)

// FsStore keeps one file per node under nodes/ (named by the id's
// textual form) and one file per name mapping under names/ (named by
// a reversible base64 encoding of the key, so arbitrary keys stay
// filesystem-safe). Node files hold the binary node encoding, mapping
// files an optional fixed-width id. Writes truncate in place; the
// format is the cross-implementation on-disk contract.
type FsStore struct {
	nodeDir string
	nameDir string
}

func NewFsStore(root string) (*FsStore, error) {
	s := &FsStore{
		nodeDir: filepath.Join(root, "nodes"),
		nameDir: filepath.Join(root, "names"),
	}
	if err := os.MkdirAll(s.nodeDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create node dir")
	}
	if err := os.MkdirAll(s.nameDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create name dir")
	}
	return s, nil
}

func (s *FsStore) nodePath(id graph.ID) string {
	return filepath.Join(s.nodeDir, id.String())
}

func (s *FsStore) namePath(key string) string {
	return filepath.Join(s.nameDir, base64.RawURLEncoding.EncodeToString([]byte(key)))
}

func (s *FsStore) GetNode(ctx context.Context, id graph.ID) (*graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(s.nodePath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read node file")
	}
	node, err := graph.ParseNode(buf)
	if err != nil {
		return nil, err
	}
	if node.ID != id {
		return nil, ErrWrongShape
	}
	return &node, nil
}

func (s *FsStore) PutNode(ctx context.Context, node *graph.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := graph.AppendNode(nil, node)
	err := os.WriteFile(s.nodePath(node.ID), buf, 0o644)
	return errors.Wrap(err, "write node file")
}

func (s *FsStore) DeleteNode(ctx context.Context, id graph.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.nodePath(id))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "delete node file")
}

func (s *FsStore) SetID(ctx context.Context, key string, id *graph.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := graph.AppendIDMapping(nil, id)
	err := os.WriteFile(s.namePath(key), buf, 0o644)
	return errors.Wrap(err, "write mapping file")
}

func (s *FsStore) GetID(ctx context.Context, key string) (*graph.ID, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	buf, err := os.ReadFile(s.namePath(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "read mapping file")
	}
	id, err := graph.ParseIDMapping(buf)
	if err != nil {
		return nil, false, err
	}
	return id, true, nil
}

func (s *FsStore) Close() error { return nil }
