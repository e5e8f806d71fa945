// Package rod is the engine of an eventually-consistent graph
// database: nodes with independently timestamped fields, merged with
// the HAM conflict-resolution rule so replicas converge no matter the
// order updates arrive in. The engine owns an in-memory node cache,
// tracks dirty nodes, and writes them back to a pluggable store.
package rod

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/eraeco/rod/graph"
	"github.com/eraeco/rod/store"
	"github.com/eraeco/rod/utils"
)

var ErrClosed = errors.New("rod: engine is closed")

// cacheEntry is the authoritative in-memory copy of one node. All
// mutation happens under mu; readers take clones. gen counts
// mutations so the flusher can tell whether a write landed between
// its snapshot and its dirty-clear.
type cacheEntry struct {
	mu   sync.Mutex
	node graph.Node
	gen  uint64
}

// Engine is safe for concurrent use by any number of callers without
// external locking; a single instance is meant to be shared.
type Engine struct {
	store store.Store
	clock graph.Clock
	log   utils.Logger
	opts  Options

	cache *xsync.MapOf[graph.ID, *cacheEntry]
	// dirty maps a node id to the generation its cache entry had
	// when it was last mutated.
	dirty *xsync.MapOf[graph.ID, uint64]
	names *lru.Cache[string, graph.ID]

	pending utils.Heap[deferredMerge]
	pmu     sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// Open wires an engine to its store and starts the background flush
// and deferral tasks. The caller owns the store's lifetime through
// Engine.Close.
func Open(st store.Store, opts Options) (*Engine, error) {
	opts.SetDefaults()
	names, err := lru.New[string, graph.ID](opts.NameCacheSize)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:  st,
		clock:  opts.Clock,
		log:    opts.Logger,
		opts:   opts,
		cache:  xsync.NewMapOf[graph.ID, *cacheEntry](),
		dirty:  xsync.NewMapOf[graph.ID, uint64](),
		names:  names,
		ctx:    ctx,
		cancel: cancel,
	}
	e.pending.Less = func(a, b deferredMerge) bool { return a.at < b.at }
	e.wg.Add(2)
	go e.flushLoop()
	go e.deferralLoop()
	return e, nil
}

// Close stops the background tasks, flushes whatever is still dirty,
// and closes the store. Deferred future-timestamped merges that have
// not come due yet are dropped, as they would be on a crash; the
// peers that produced them will resend.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return ErrClosed
	}
	e.cancel()
	e.wg.Wait()
	e.flushOnce(context.Background())
	return e.store.Close()
}

// Get resolves a string key to a node handle. A key with no mapping
// (or one explicitly cleared) materializes a fresh empty node that is
// persisted immediately; get never fails on absence, only on store
// errors.
//
// Get does not establish the name mapping for a missing key; only Put
// does. Two consecutive Gets of an unmapped key therefore return two
// different fresh nodes.
func (e *Engine) Get(ctx context.Context, key string) (*Handle, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if id, ok := e.names.Get(key); ok {
		return e.GetByID(ctx, id)
	}
	id, ok, err := e.store.GetID(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok && id != nil {
		e.names.Add(key, *id)
		return e.GetByID(ctx, *id)
	}

	node := graph.NewNode()
	if err := e.store.PutNode(ctx, &node); err != nil {
		return nil, err
	}
	e.cache.Store(node.ID, &cacheEntry{node: node.Clone()})
	CachedNodes.Inc()
	e.log.Debug("materialized node for unmapped key",
		"key", key, "node", node.ID.String())
	return &Handle{eng: e, node: node}, nil
}

// GetByID returns a handle for the node with the given id,
// materializing and persisting an empty node if neither the cache nor
// the store knows it.
func (e *Engine) GetByID(ctx context.Context, id graph.ID) (*Handle, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	ent, err := e.entry(ctx, id, true)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	snap := ent.node.Clone()
	ent.mu.Unlock()
	return &Handle{eng: e, node: snap}, nil
}

// Put merges node into the stored node with the same id, persists the
// merged result, and points key at it, overwriting any previous
// mapping for key.
func (e *Engine) Put(ctx context.Context, key string, node graph.Node) error {
	if e.closed.Load() {
		return ErrClosed
	}
	snap, gen, err := e.apply(ctx, node)
	if err != nil {
		return err
	}
	if err := e.store.PutNode(ctx, &snap); err != nil {
		return err
	}
	FlushedNodes.Inc()
	e.clearDirty(node.ID, gen)

	id := node.ID
	if err := e.store.SetID(ctx, key, &id); err != nil {
		return err
	}
	e.names.Add(key, id)
	return nil
}

// MergeRemote folds an already-received remote node into the cache.
// Unlike Put it is write-back: the merged node is persisted by the
// background flusher, not synchronously. This is the entry point a
// wire-sync layer feeds.
func (e *Engine) MergeRemote(ctx context.Context, node graph.Node) error {
	if e.closed.Load() {
		return ErrClosed
	}
	_, _, err := e.apply(ctx, node)
	return err
}

// entry returns the cache entry for id, loading it from the store on
// first touch. An id unknown to the store starts as an empty node;
// persistNew controls whether that empty node is written out
// immediately (Get semantics) or left for the merge that is about to
// dirty it (Put semantics).
func (e *Engine) entry(ctx context.Context, id graph.ID, persistNew bool) (*cacheEntry, error) {
	if ent, ok := e.cache.Load(id); ok {
		return ent, nil
	}
	node, err := e.store.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		fresh := graph.NewNodeWithID(id)
		if persistNew {
			if err := e.store.PutNode(ctx, &fresh); err != nil {
				return nil, err
			}
		}
		node = &fresh
	}
	ent, loaded := e.cache.LoadOrStore(id, &cacheEntry{node: *node})
	if !loaded {
		CachedNodes.Inc()
	}
	return ent, nil
}

// apply merges incoming into the cached authoritative node, marks it
// dirty, and queues any fields whose timestamps are still ahead of
// the clock. It returns a clone of the merged node and the generation
// that clone reflects.
func (e *Engine) apply(ctx context.Context, incoming graph.Node) (graph.Node, uint64, error) {
	ent, err := e.entry(ctx, incoming.ID, false)
	if err != nil {
		return graph.Node{}, 0, err
	}
	ent.mu.Lock()
	deferred, stats := ent.node.Merge(incoming, e.clock.Now())
	ent.gen++
	gen := ent.gen
	snap := ent.node.Clone()
	// Publish the dirty generation before releasing the lock: stores
	// are then ordered with the merges, so the dirty map always holds
	// the newest generation. Published after unlock, a slow writer
	// could overwrite a newer marker with its stale generation and
	// then clear it, losing the newer merge's write-back.
	e.dirty.Store(incoming.ID, gen)
	ent.mu.Unlock()

	MergedNodes.Inc()
	countFieldMerges(stats)
	if len(deferred) > 0 {
		e.enqueueDeferred(incoming.ID, deferred)
	}
	return snap, gen, nil
}

// clearDirty removes the dirty marker for id only if no write bumped
// the generation since gen was observed. Unconditional clearing here
// is the classic lost-update race.
func (e *Engine) clearDirty(id graph.ID, gen uint64) {
	e.dirty.Compute(id, func(old uint64, loaded bool) (uint64, bool) {
		if loaded && old == gen {
			return 0, true
		}
		return old, !loaded
	})
}
