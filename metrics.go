package rod

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eraeco/rod/graph"
)

var MergedNodes = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "rod",
	Subsystem: "engine",
	Name:      "merged_nodes",
})

// FieldMerges counts per-field merge results, labeled by outcome:
// adopted, kept, discarded or deferred.
var FieldMerges = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rod",
	Subsystem: "engine",
	Name:      "field_merges",
}, []string{"outcome"})

func countFieldMerges(s graph.MergeStats) {
	if s.Adopted > 0 {
		FieldMerges.WithLabelValues("adopted").Add(float64(s.Adopted))
	}
	if s.Kept > 0 {
		FieldMerges.WithLabelValues("kept").Add(float64(s.Kept))
	}
	if s.Discarded > 0 {
		FieldMerges.WithLabelValues("discarded").Add(float64(s.Discarded))
	}
	if s.Deferred > 0 {
		FieldMerges.WithLabelValues("deferred").Add(float64(s.Deferred))
	}
}

var DeferredMerges = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "rod",
	Subsystem: "engine",
	Name:      "deferred_merges",
})

var FlushedNodes = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "rod",
	Subsystem: "engine",
	Name:      "flushed_nodes",
})

var FlushErrors = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "rod",
	Subsystem: "engine",
	Name:      "flush_errors",
})

var CachedNodes = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "rod",
	Subsystem: "engine",
	Name:      "cached_nodes",
})

var DeferredDepth = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "rod",
	Subsystem: "engine",
	Name:      "deferred_queue_depth",
})

// Collectors returns every engine metric for the caller to register;
// the engine never touches the default registry itself.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		MergedNodes, FieldMerges, DeferredMerges, FlushedNodes,
		FlushErrors, CachedNodes, DeferredDepth,
	}
}
