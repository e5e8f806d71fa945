package rod

import (
	"time"

	"github.com/eraeco/rod/graph"
)

// A near-future update (ahead of the local clock but inside the
// 600-second grace window) cannot be applied yet and must not be
// dropped. It waits here, keyed by its timestamp, until the clock
// catches up; re-application goes through the ordinary merge path, so
// the convergence guarantee is the same as for immediate merges.
type deferredMerge struct {
	at    float64
	id    graph.ID
	name  string
	field graph.Field
}

func (e *Engine) enqueueDeferred(id graph.ID, fields []graph.DeferredField) {
	e.pmu.Lock()
	for _, d := range fields {
		e.pending.Push(deferredMerge{
			at:    d.Field.UpdatedAt,
			id:    id,
			name:  d.Name,
			field: d.Field,
		})
	}
	depth := e.pending.Len()
	e.pmu.Unlock()

	DeferredMerges.Add(float64(len(fields)))
	DeferredDepth.Set(float64(depth))
	e.log.Debug("deferred future-timestamped fields",
		"node", id.String(), "count", len(fields))
}

func (e *Engine) deferralLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.opts.DeferralInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.drainDeferred()
		}
	}
}

// drainDeferred re-applies every queued merge whose timestamp the
// clock has reached. The re-applied field lands in the "newer but not
// future" branch of the merge rule unless something even newer
// arrived in the meantime, in which case it loses exactly as it
// should.
func (e *Engine) drainDeferred() {
	now := e.clock.Now()
	var due []deferredMerge
	e.pmu.Lock()
	for e.pending.Len() > 0 && e.pending.Peek().at <= now {
		due = append(due, e.pending.Pop())
	}
	depth := e.pending.Len()
	e.pmu.Unlock()
	DeferredDepth.Set(float64(depth))

	for _, d := range due {
		update := graph.NewNodeWithID(d.id)
		update.Fields[d.name] = d.field
		if _, _, err := e.apply(e.ctx, update); err != nil {
			e.log.Error("deferred merge failed",
				"node", d.id.String(), "field", d.name, "error", err)
		}
	}
}
