package rod

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eraeco/rod/graph"
	"github.com/eraeco/rod/store"
)

type testClock struct {
	mu  sync.Mutex
	now float64
}

func (c *testClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d float64) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

func testEngine(t *testing.T) (*Engine, *store.FsStore, *testClock) {
	t.Helper()
	fs, err := store.NewFsStore(t.TempDir())
	require.NoError(t, err)
	clk := &testClock{now: 1000}
	e, err := Open(fs, Options{
		FlushInterval:    10 * time.Millisecond,
		DeferralInterval: 5 * time.Millisecond,
		Clock:            clk,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, fs, clk
}

func TestGetMissingKeyMaterializes(t *testing.T) {
	e, fs, _ := testEngine(t)
	ctx := context.Background()

	h, err := e.Get(ctx, "missing-key")
	require.NoError(t, err)
	assert.False(t, h.ID().IsZero())
	assert.Empty(t, h.Node().Fields)

	// The fresh node is already persisted under its id...
	stored, err := fs.GetNode(ctx, h.ID())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.Fields)

	// ...but the name table still has no entry for the key.
	_, ok, err := fs.GetID(ctx, "missing-key")
	require.NoError(t, err)
	assert.False(t, ok)

	// And a second miss mints a different node.
	h2, err := e.Get(ctx, "missing-key")
	require.NoError(t, err)
	assert.NotEqual(t, h.ID(), h2.ID())
}

func TestPutThenGet(t *testing.T) {
	e, fs, _ := testEngine(t)
	ctx := context.Background()

	n := graph.NewNode()
	n.Set("name", graph.StringValue("John"), 100)
	require.NoError(t, e.Put(ctx, "users/john", n))

	// Put is write-through: the node and the mapping are durable
	// before Put returns.
	stored, err := fs.GetNode(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	id, ok, err := fs.GetID(ctx, "users/john")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, n.ID, *id)

	h, err := e.Get(ctx, "users/john")
	require.NoError(t, err)
	assert.Equal(t, n.ID, h.ID())
	v, ok2 := h.Get("name")
	require.True(t, ok2)
	assert.Equal(t, graph.StringValue("John"), v)
}

func TestPutMergesWithStored(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()

	first := graph.NewNode()
	first.Set("name", graph.StringValue("Alice"), 10)
	require.NoError(t, e.Put(ctx, "user", first))

	update := graph.NewNodeWithID(first.ID)
	update.Set("name", graph.StringValue("Bob"), 20)
	update.Set("age", graph.IntValue(30), 5)
	require.NoError(t, e.Put(ctx, "user", update))

	h, err := e.Get(ctx, "user")
	require.NoError(t, err)
	node := h.Node()
	assert.Equal(t, graph.Field{UpdatedAt: 20, Value: graph.StringValue("Bob")}, node.Fields["name"])
	assert.Equal(t, graph.Field{UpdatedAt: 5, Value: graph.IntValue(30)}, node.Fields["age"])

	// A stale update loses and removes nothing.
	stale := graph.NewNodeWithID(first.ID)
	stale.Set("name", graph.StringValue("Eve"), 1)
	require.NoError(t, e.Put(ctx, "user", stale))
	h, err = e.Get(ctx, "user")
	require.NoError(t, err)
	node = h.Node()
	assert.Equal(t, graph.StringValue("Bob"), node.Fields["name"].Value)
	assert.Len(t, node.Fields, 2)
}

func TestMergeRemoteFlushedInBackground(t *testing.T) {
	e, fs, _ := testEngine(t)
	ctx := context.Background()

	n := graph.NewNode()
	n.Set("name", graph.StringValue("remote"), 50)
	require.NoError(t, e.MergeRemote(ctx, n))

	assert.Eventually(t, func() bool {
		stored, err := fs.GetNode(ctx, n.ID)
		return err == nil && stored != nil && len(stored.Fields) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDeferredMergeAppliesWhenClockCatchesUp(t *testing.T) {
	e, _, clk := testEngine(t)
	ctx := context.Background()

	base := graph.NewNode()
	base.Set("flag", graph.BoolValue(false), 900)
	require.NoError(t, e.Put(ctx, "thing", base))

	// 50 seconds ahead of the clock: inside the grace window, so the
	// update waits instead of applying or vanishing.
	future := graph.NewNodeWithID(base.ID)
	future.Set("flag", graph.BoolValue(true), 1050)
	require.NoError(t, e.MergeRemote(ctx, future))

	h, err := e.GetByID(ctx, base.ID)
	require.NoError(t, err)
	v, _ := h.Get("flag")
	assert.Equal(t, graph.BoolValue(false), v)

	clk.Advance(100) // now 1100 >= 1050

	assert.Eventually(t, func() bool {
		h, err := e.GetByID(ctx, base.ID)
		if err != nil {
			return false
		}
		v, ok := h.Get("flag")
		return ok && v.Equal(graph.BoolValue(true))
	}, 2*time.Second, 5*time.Millisecond)
}

func TestFarFutureUpdateDiscarded(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()

	base := graph.NewNode()
	base.Set("x", graph.IntValue(1), 900)
	require.NoError(t, e.Put(ctx, "far", base))

	forged := graph.NewNodeWithID(base.ID)
	forged.Set("x", graph.IntValue(2), 1000+graph.FutureUpdateThreshold+1)
	require.NoError(t, e.MergeRemote(ctx, forged))

	h, err := e.GetByID(ctx, base.ID)
	require.NoError(t, err)
	v, _ := h.Get("x")
	assert.Equal(t, graph.IntValue(1), v)
	e.pmu.Lock()
	assert.Zero(t, e.pending.Len())
	e.pmu.Unlock()
}

func TestClearDirtyGeneration(t *testing.T) {
	e, _, _ := testEngine(t)
	id := graph.NewID()

	// A newer write bumped the generation after the flusher took its
	// snapshot: the marker must survive.
	e.dirty.Store(id, 7)
	e.clearDirty(id, 6)
	_, still := e.dirty.Load(id)
	assert.True(t, still)

	e.clearDirty(id, 7)
	_, still = e.dirty.Load(id)
	assert.False(t, still)
}

func TestStaleWriterCannotClearNewerMerge(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFsStore(dir)
	require.NoError(t, err)
	e, err := Open(fs, Options{
		FlushInterval: time.Hour,
		Clock:         &testClock{now: 1000},
	})
	require.NoError(t, err)
	ctx := context.Background()

	// A slow writer merges first but persists last: it must not be
	// able to clear the marker a newer merge published in between,
	// or that merge would live only in cache and never reach disk.
	slow := graph.NewNode()
	slow.Set("a", graph.IntValue(1), 10)
	snapA, genA, err := e.apply(ctx, slow)
	require.NoError(t, err)

	remote := graph.NewNodeWithID(slow.ID)
	remote.Set("b", graph.IntValue(2), 20)
	_, genB, err := e.apply(ctx, remote)
	require.NoError(t, err)
	require.Greater(t, genB, genA)

	// The slow writer resumes with its pre-merge snapshot.
	require.NoError(t, fs.PutNode(ctx, &snapA))
	e.clearDirty(slow.ID, genA)

	g, still := e.dirty.Load(slow.ID)
	require.True(t, still, "newer merge's dirty marker must survive a stale clear")
	assert.Equal(t, genB, g)

	// Close's final flush repairs the stale on-disk snapshot.
	require.NoError(t, e.Close())
	fs2, err := store.NewFsStore(dir)
	require.NoError(t, err)
	stored, err := fs2.GetNode(ctx, slow.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, graph.IntValue(1), stored.Fields["a"].Value)
	assert.Equal(t, graph.IntValue(2), stored.Fields["b"].Value)
}

func TestEngineClosed(t *testing.T) {
	fs, err := store.NewFsStore(t.TempDir())
	require.NoError(t, err)
	e, err := Open(fs, Options{})
	require.NoError(t, err)

	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Close(), ErrClosed)

	ctx := context.Background()
	_, err = e.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, e.Put(ctx, "k", graph.NewNode()), ErrClosed)
	assert.ErrorIs(t, e.MergeRemote(ctx, graph.NewNode()), ErrClosed)
}

func TestCloseFlushesDirtyNodes(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFsStore(dir)
	require.NoError(t, err)
	e, err := Open(fs, Options{
		// Long enough that the ticker never fires during the test.
		FlushInterval: time.Hour,
		Clock:         &testClock{now: 1000},
	})
	require.NoError(t, err)

	n := graph.NewNode()
	n.Set("name", graph.StringValue("durable"), 50)
	require.NoError(t, e.MergeRemote(context.Background(), n))
	require.NoError(t, e.Close())

	fs2, err := store.NewFsStore(dir)
	require.NoError(t, err)
	stored, err := fs2.GetNode(context.Background(), n.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, graph.StringValue("durable"), stored.Fields["name"].Value)
}

func TestFieldMergeOutcomeCounters(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()

	adopted := testutil.ToFloat64(FieldMerges.WithLabelValues("adopted"))
	discarded := testutil.ToFloat64(FieldMerges.WithLabelValues("discarded"))

	n := graph.NewNode()
	n.Set("x", graph.IntValue(1), 10)
	require.NoError(t, e.Put(ctx, "m", n))

	stale := graph.NewNodeWithID(n.ID)
	stale.Set("x", graph.IntValue(0), 5)
	require.NoError(t, e.MergeRemote(ctx, stale))

	assert.Equal(t, adopted+1, testutil.ToFloat64(FieldMerges.WithLabelValues("adopted")))
	assert.Equal(t, discarded+1, testutil.ToFloat64(FieldMerges.WithLabelValues("discarded")))
}

func TestConcurrentPutsConverge(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()

	base := graph.NewNode()
	require.NoError(t, e.Put(ctx, "counter", base))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := graph.NewNodeWithID(base.ID)
			n.Set("slot", graph.IntValue(int64(i)), float64(100+i))
			assert.NoError(t, e.Put(ctx, "counter", n))
		}(i)
	}
	wg.Wait()

	h, err := e.Get(ctx, "counter")
	require.NoError(t, err)
	v, ok := h.Get("slot")
	require.True(t, ok)
	// The highest timestamp wins regardless of interleaving.
	assert.Equal(t, graph.IntValue(7), v)
}
