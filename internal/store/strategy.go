package store

import (
	"strconv"
	"strings"
)

// StrategyKind distinguishes the execution strategy variants.
type StrategyKind int

const (
	// StrategyFused executes one fused kernel covering several operations.
	StrategyFused StrategyKind = iota + 1
	// StrategyUnfused executes each operation individually.
	StrategyUnfused
	// StrategyComposed concatenates sub-strategies over sub-ranges.
	StrategyComposed
)

// String returns the kind name for logs and summaries.
func (k StrategyKind) String() string {
	switch k {
	case StrategyFused:
		return "fused"
	case StrategyUnfused:
		return "unfused"
	case StrategyComposed:
		return "composed"
	default:
		return "unknown"
	}
}

// Strategy describes how a finalized plan should be run. It is a recursive
// tagged value: Fused carries an opaque optimization payload O, Unfused
// replays buffered operations one at a time, Composed concatenates children
// (stored by value, executed depth-first).
//
// Ordering is always an explicit permutation/subset of indices into the
// plan's operation sequence. Execution must replay operations in this order,
// not buffer order, to respect the optimizer's chosen schedule.
type Strategy[O any] struct {
	Kind     StrategyKind
	Opt      O     // StrategyFused only
	Ordering []int // StrategyFused and StrategyUnfused
	Children []Strategy[O]
}

// Fused builds a strategy executing the payload over the given indices.
func Fused[O any](opt O, ordering []int) Strategy[O] {
	return Strategy[O]{Kind: StrategyFused, Opt: opt, Ordering: ordering}
}

// Unfused builds a strategy replaying the given indices individually.
func Unfused[O any](ordering []int) Strategy[O] {
	return Strategy[O]{Kind: StrategyUnfused, Ordering: ordering}
}

// Composed builds a strategy concatenating the given children.
func Composed[O any](children ...Strategy[O]) Strategy[O] {
	return Strategy[O]{Kind: StrategyComposed, Children: children}
}

// NumOperations returns how many operation indices the strategy covers.
func (s Strategy[O]) NumOperations() int {
	switch s.Kind {
	case StrategyFused, StrategyUnfused:
		return len(s.Ordering)
	case StrategyComposed:
		n := 0
		for _, c := range s.Children {
			n += c.NumOperations()
		}
		return n
	default:
		return 0
	}
}

// FusedPrefixLen returns how many leading operations are covered by fused
// payloads before the first individually-executed operation. Used to break
// ties between candidate plans: the plan whose fusion covers the longest
// prefix wins.
func (s Strategy[O]) FusedPrefixLen() int {
	switch s.Kind {
	case StrategyFused:
		return len(s.Ordering)
	case StrategyUnfused:
		return 0
	case StrategyComposed:
		n := 0
		for _, c := range s.Children {
			covered := c.FusedPrefixLen()
			n += covered
			if covered < c.NumOperations() {
				break
			}
		}
		return n
	default:
		return 0
	}
}

// NumFusedOperations returns how many operation indices anywhere in the tree
// are covered by fused payloads. Feeds the fusion-reduction statistic.
func (s Strategy[O]) NumFusedOperations() int {
	switch s.Kind {
	case StrategyFused:
		return len(s.Ordering)
	case StrategyUnfused:
		return 0
	case StrategyComposed:
		n := 0
		for _, c := range s.Children {
			n += c.NumFusedOperations()
		}
		return n
	default:
		return 0
	}
}

// Shape renders the strategy tree as a compact string for summaries,
// e.g. "composed(fused[3],unfused[1])".
func (s Strategy[O]) Shape() string {
	switch s.Kind {
	case StrategyFused:
		return "fused[" + strconv.Itoa(len(s.Ordering)) + "]"
	case StrategyUnfused:
		return "unfused[" + strconv.Itoa(len(s.Ordering)) + "]"
	case StrategyComposed:
		parts := make([]string, len(s.Children))
		for i, c := range s.Children {
			parts[i] = c.Shape()
		}
		return "composed(" + strings.Join(parts, ",") + ")"
	default:
		return "unknown"
	}
}
