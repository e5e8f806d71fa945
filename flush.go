package rod

import (
	"context"
	"time"

	"github.com/eraeco/rod/graph"
)

func (e *Engine) flushLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.flushOnce(e.ctx)
		}
	}
}

// flushOnce drains the dirty set: for each dirty id it snapshots the
// cached node together with its generation, writes the snapshot to
// the store, and clears dirtiness only if the generation is still the
// one it captured. A write that lands between snapshot and clear
// keeps the id dirty for the next tick instead of being lost.
func (e *Engine) flushOnce(ctx context.Context) {
	var ids []graph.ID
	e.dirty.Range(func(id graph.ID, _ uint64) bool {
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		ent, ok := e.cache.Load(id)
		if !ok {
			// Dirty without a cache entry cannot happen through the
			// public paths; drop the marker rather than spin on it.
			e.dirty.Delete(id)
			continue
		}
		ent.mu.Lock()
		snap := ent.node.Clone()
		gen := ent.gen
		ent.mu.Unlock()

		if err := e.store.PutNode(ctx, &snap); err != nil {
			FlushErrors.Inc()
			e.log.Error("node flush failed", "node", id.String(), "error", err)
			continue
		}
		FlushedNodes.Inc()
		e.clearDirty(id, gen)
	}
}
