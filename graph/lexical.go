package graph

import (
	"bytes"
	"math"
)

// Compare defines the lexical total order used to break merge ties
// between fields carrying identical timestamps. It returns <0, 0, >0
// in the usual way.
//
// Across kinds, values order by rank: Empty < Bool < Int < Float <
// String < Binary < Ref. Within a kind the order is natural, except
// booleans: the comparison is deliberately inverted so that in a
// merge tie true always beats false, whichever side it arrives on.
// The upstream graph-sync protocol resolves boolean ties this way and
// changing it would break convergence against existing peers.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		return int(a.kind) - int(b.kind)
	}
	switch a.kind {
	case Empty:
		return 0
	case Bool:
		switch {
		case a.b && !b.b:
			return -1
		case !a.b && b.b:
			return 1
		default:
			return 0
		}
	case Int:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	case Float:
		return compareFloat(a.f, b.f)
	case String:
		switch {
		case a.s < b.s:
			return -1
		case a.s > b.s:
			return 1
		default:
			return 0
		}
	case Binary:
		return bytes.Compare(a.raw, b.raw)
	case Ref:
		return bytes.Compare(a.ref[:], b.ref[:])
	}
	return 0
}

// NaN sorts below every number, and equal to another NaN, so the
// order stays total and symmetric.
func compareFloat(x, y float64) int {
	xn, yn := math.IsNaN(x), math.IsNaN(y)
	switch {
	case xn && yn:
		return 0
	case xn:
		return -1
	case yn:
		return 1
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
