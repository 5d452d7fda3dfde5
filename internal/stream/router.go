package stream

import (
	"log/slog"

	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/store"
)

// Router owns the mapping from stream id to operation stream for one device,
// and orchestrates cross-stream synchronization. All streams share the
// device's plan store, so a plan discovered on one stream is replayed on any
// other.
//
// Not safe for concurrent mutation: the owning device runtime serializes all
// access (single-writer model).
type Router[O Optimization] struct {
	streams  map[StreamId]*OperationStream[O]
	store    *store.Store[O]
	explorer Explorer[O]
	observer Observer

	// origins tracks which stream produced each live tensor, so an operation
	// reading another stream's tensor drains the producer first.
	origins map[ir.TensorId]StreamId

	maxBuffer int
}

// RouterOption configures a router.
type RouterOption[O Optimization] func(*Router[O])

// WithObserver attaches a lifecycle observer (e.g. the trace recorder).
func WithObserver[O Optimization](obs Observer) RouterOption[O] {
	return func(r *Router[O]) {
		r.observer = obs
	}
}

// WithMaxBuffer overrides the buffer length at which a stream forces a sync
// point. Use a small value to test forced exploration.
func WithMaxBuffer[O Optimization](n int) RouterOption[O] {
	return func(r *Router[O]) {
		r.maxBuffer = n
	}
}

// NewRouter creates a router with an empty plan store.
func NewRouter[O Optimization](explorer Explorer[O], opts ...RouterOption[O]) *Router[O] {
	r := &Router[O]{
		streams:   make(map[StreamId]*OperationStream[O]),
		store:     store.New[O](),
		explorer:  explorer,
		observer:  NopObserver{},
		origins:   make(map[ir.TensorId]StreamId),
		maxBuffer: DefaultMaxBuffer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register routes an operation to its owning stream. Any input tensor
// produced by a different stream establishes a cross-stream dependency: the
// producer is drained first (read-before-write ordering across streams), so
// the handle exists before this stream's eventual drain reads it.
func (r *Router[O]) Register(id StreamId, op ir.OperationIr, operation Operation, h *handle.Container) {
	for _, t := range op.Inputs {
		origin, ok := r.origins[t.ID]
		if ok && origin != id {
			slog.Debug("cross-stream dependency, draining producer",
				"consumer", id,
				"producer", origin,
				"tensor", uint64(t.ID),
			)
			r.Drain(h, origin)
		}
	}

	for _, t := range op.Outputs {
		r.origins[t.ID] = id
	}
	if op.Kind == ir.OpDrop {
		for _, t := range op.Inputs {
			delete(r.origins, t.ID)
		}
	}

	r.stream(id).Register(op, operation, h)
}

// Drain drains exactly one stream; unrelated streams are untouched.
// Draining an unknown stream is a no-op.
func (r *Router[O]) Drain(h *handle.Container, id StreamId) {
	if s, ok := r.streams[id]; ok {
		s.Drain(h)
	}
}

// MarkRead records an external read of a tensor on the given stream.
func (r *Router[O]) MarkRead(id StreamId, t ir.TensorIr, h *handle.Container) {
	if s, ok := r.streams[id]; ok {
		s.MarkRead(t, h)
	}
	delete(r.origins, t.ID)
}

// Store exposes the shared plan store. Mutating it outside the streams'
// matching policy is a contract violation; tooling reads only.
func (r *Router[O]) Store() *store.Store[O] {
	return r.store
}

// Buffered returns the buffered operations of every non-empty stream.
// Diagnostic only.
func (r *Router[O]) Buffered() map[StreamId][]ir.OperationIr {
	out := make(map[StreamId][]ir.OperationIr)
	for id, s := range r.streams {
		if s.Len() > 0 {
			out[id] = s.Buffered()
		}
	}
	return out
}

// StreamLen returns the number of buffered operations on one stream.
// Diagnostic only.
func (r *Router[O]) StreamLen(id StreamId) int {
	if s, ok := r.streams[id]; ok {
		return s.Len()
	}
	return 0
}

func (r *Router[O]) stream(id StreamId) *OperationStream[O] {
	s, ok := r.streams[id]
	if !ok {
		s = newOperationStream(id, r.store, r.explorer, r.observer, r.maxBuffer)
		r.streams[id] = s
	}
	return s
}
