package graph

// FutureUpdateThreshold is how far ahead of the local clock an
// incoming timestamp may be before the update is treated as clock
// skew or a forged timestamp and discarded outright. Anything closer
// than that is deferred and re-applied once the clock catches up.
const FutureUpdateThreshold = 600.0

// MergeOutcome reports what a field merge did.
type MergeOutcome byte

const (
	// Kept: the existing field won; nothing changed.
	Kept MergeOutcome = iota
	// Adopted: the incoming field (or its value, on a timestamp tie)
	// replaced the existing one.
	Adopted
	// Discarded: the incoming field was stale or too far in the
	// future; nothing changed.
	Discarded
	// Deferred: the incoming timestamp is ahead of the clock but
	// within the grace window; the caller must re-apply it once the
	// clock reaches Field.UpdatedAt.
	Deferred
)

// Merge resolves incoming against f using the HAM rule, with now as
// the local clock reading. The resolution is deterministic for any
// pair of distinct timestamps regardless of which side is local, and
// merging a field into itself is a no-op; that is the whole
// convergence guarantee.
func (f *Field) Merge(incoming Field, now float64) MergeOutcome {
	switch {
	case incoming.UpdatedAt == f.UpdatedAt:
		// Tie: the lexically dominant value wins. Timestamps are
		// already equal, so only the value may move. The boolean
		// rows of Compare are inverted (see lexical.go), so for a
		// bool-vs-bool tie the sign flips; the net winner is always
		// true, and for every other kind the greater value.
		c := Compare(f.Value, incoming.Value)
		if f.Value.Kind() == Bool && incoming.Value.Kind() == Bool {
			c = -c
		}
		if c < 0 {
			f.Value = incoming.Value
			return Adopted
		}
		return Kept

	case incoming.UpdatedAt < f.UpdatedAt:
		return Discarded

	case incoming.UpdatedAt <= now:
		*f = incoming
		return Adopted

	case incoming.UpdatedAt-now > FutureUpdateThreshold:
		return Discarded

	default:
		return Deferred
	}
}

// DeferredField is a field merge postponed until the local clock
// reaches the field's timestamp.
type DeferredField struct {
	Name  string
	Field Field
}

// MergeStats counts the per-field outcomes of one node merge. A field
// name the node had never seen counts as Adopted.
type MergeStats struct {
	Kept, Adopted, Discarded, Deferred int
}

func (s *MergeStats) record(o MergeOutcome) {
	switch o {
	case Kept:
		s.Kept++
	case Adopted:
		s.Adopted++
	case Discarded:
		s.Discarded++
	case Deferred:
		s.Deferred++
	}
}

// Merge folds incoming into n field by field: shared names go through
// the HAM rule, new names are inserted as-is, and nothing is ever
// removed. Both nodes are assumed to describe the same logical entity;
// that is the caller's contract, not checked here. Fields that came
// back Deferred are returned for the caller to schedule.
func (n *Node) Merge(incoming Node, now float64) (deferred []DeferredField, stats MergeStats) {
	if n.Fields == nil {
		n.Fields = make(map[string]Field, len(incoming.Fields))
	}
	for name, inf := range incoming.Fields {
		cur, ok := n.Fields[name]
		if !ok {
			n.Fields[name] = inf
			stats.Adopted++
			continue
		}
		out := cur.Merge(inf, now)
		stats.record(out)
		if out == Deferred {
			deferred = append(deferred, DeferredField{Name: name, Field: inf})
			continue
		}
		n.Fields[name] = cur
	}
	return deferred, stats
}
