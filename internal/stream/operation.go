package stream

import (
	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/store"
)

// Operation is the executable unit for one OperationIr: given the handle
// container, perform the backend side effect the record describes. The core
// never inspects what an operation computes; it only sequences and caches.
type Operation interface {
	Execute(h *handle.Container)
}

// Optimization is the constraint on fused payloads: a fused kernel knows how
// many operations it subsumes and how to run itself against the handles.
// Backends plug in their own representation.
//
// Execute receives the current window's operation records with their
// CONCRETE tensor ids, in buffer order. The payload was built over relative
// ids at discovery time; the window is how it resolves the ids of the replay
// it is being applied to.
type Optimization interface {
	Execute(h *handle.Container, window []ir.OperationIr)
	Len() int
}

// BlockOptimization wraps the strategy an explorer proposes for an operation
// window.
type BlockOptimization[O Optimization] struct {
	Strategy store.Strategy[O]
}

// Explorer proposes an execution strategy for a buffered operation window.
//
// Explore receives relative-renumbered operations and returns ok=false when
// no fusion can be found - that is not an error; the stream falls back to
// replaying the window unfused.
type Explorer[O Optimization] interface {
	Explore(ops []ir.OperationIr) (BlockOptimization[O], bool)
}

// Observer receives stream lifecycle events. Diagnostic only: implementations
// must not mutate core state. The trace recorder implements this.
type Observer interface {
	OperationRegistered(stream StreamId, op ir.OperationIr)
	PlanCreated(stream StreamId, id store.PlanId, operations int, strategy string)
	PlanReused(stream StreamId, id store.PlanId)
	StreamDrained(stream StreamId, executed int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OperationRegistered(StreamId, ir.OperationIr)    {}
func (NopObserver) PlanCreated(StreamId, store.PlanId, int, string) {}
func (NopObserver) PlanReused(StreamId, store.PlanId)               {}
func (NopObserver) StreamDrained(StreamId, int)                     {}

// identityOrdering returns [0, 1, ..., n-1].
func identityOrdering(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
