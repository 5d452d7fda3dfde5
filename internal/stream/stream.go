package stream

import (
	"log/slog"

	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/store"
)

// DefaultMaxBuffer is the default buffer length at which a stream forces a
// sync point. A buffer that long has diverged from everything stored (or
// nothing was ever stored); exploring it keeps memory bounded.
const DefaultMaxBuffer = 256

// queued pairs an operation record with its executable unit.
type queued struct {
	global    ir.OperationIr // as registered, concrete tensor ids
	operation Operation
}

// OperationStream buffers operations for one logical execution stream and
// decides when to execute them.
//
// The buffer is kept in three parallel views: the queued operations with
// their concrete ids, the relative-renumbered records, and the record
// fingerprints. The relative views are rebuilt whenever a prefix of the
// buffer is executed, because relative ids are anchored at the buffer start.
type OperationStream[O Optimization] struct {
	id       StreamId
	store    *store.Store[O]
	explorer Explorer[O]
	observer Observer

	buffer    []queued
	converter *ir.Converter
	relative  []ir.OperationIr
	fps       []string

	maxBuffer int
}

// newOperationStream creates an empty stream bound to the device's shared
// store and explorer. Streams are created by the router, never directly.
func newOperationStream[O Optimization](
	id StreamId,
	s *store.Store[O],
	explorer Explorer[O],
	observer Observer,
	maxBuffer int,
) *OperationStream[O] {
	return &OperationStream[O]{
		id:        id,
		store:     s,
		explorer:  explorer,
		observer:  observer,
		converter: ir.NewConverter(),
		maxBuffer: maxBuffer,
	}
}

// Register appends an operation to the buffer. Registration always succeeds;
// malformed operand references are a caller contract violation, not a
// reported error.
//
// A barrier operation (one the optimizer can never fuse) forces an immediate
// sync point: pending fusable operations finalize first as their own plan,
// then the barrier finalizes as a singleton plan. Otherwise the lazy matching
// policy runs and may execute a stored plan whose trigger fired.
func (s *OperationStream[O]) Register(op ir.OperationIr, operation Operation, h *handle.Container) {
	s.append(op, operation)
	s.observer.OperationRegistered(s.id, op)

	if op.Barrier() || len(s.buffer) >= s.maxBuffer {
		s.processSync(h)
		return
	}
	s.processLazy(h)
}

// Drain forces finalization of everything buffered. Idempotent: draining an
// empty buffer is a no-op.
func (s *OperationStream[O]) Drain(h *handle.Container) {
	if len(s.buffer) == 0 {
		return
	}
	executed := len(s.buffer)
	s.processSync(h)
	s.observer.StreamDrained(s.id, executed)
}

// MarkRead records that a tensor was consumed externally (copied out to
// host), releasing ownership assumptions tied to it.
func (s *OperationStream[O]) MarkRead(t ir.TensorIr, h *handle.Container) {
	h.MarkRead(t)
}

// Len returns the number of buffered operations.
func (s *OperationStream[O]) Len() int {
	return len(s.buffer)
}

// Buffered returns the buffered operation records in registration order,
// with their concrete tensor ids. Diagnostic only.
func (s *OperationStream[O]) Buffered() []ir.OperationIr {
	out := make([]ir.OperationIr, len(s.buffer))
	for i, q := range s.buffer {
		out[i] = q.global
	}
	return out
}

func (s *OperationStream[O]) append(op ir.OperationIr, operation Operation) {
	rel := s.converter.Relative(op)
	s.buffer = append(s.buffer, queued{global: op, operation: operation})
	s.relative = append(s.relative, rel)
	s.fps = append(s.fps, rel.Fingerprint())
}

// processLazy runs the matching policy after a registration.
func (s *OperationStream[O]) processLazy(h *handle.Container) {
	for len(s.buffer) > 0 {
		ix := s.store.Index()

		// A longer stored plan may still match: wait for more operations.
		if ix.HasExtension(s.fps) {
			return
		}

		candidates := ix.FindFingerprints(store.SearchPrefixes, s.fps)
		id, ok := s.selectFired(candidates, false)
		if !ok {
			// Diverged from everything stored, or nothing fired yet.
			// Exploration waits for the next sync point.
			return
		}

		s.executePlan(id, h)
		s.observer.PlanReused(s.id, id)
	}
}

// processSync finalizes the whole buffer: stored plans are replayed where
// their triggers fire, everything else is explored.
func (s *OperationStream[O]) processSync(h *handle.Container) {
	for len(s.buffer) > 0 {
		candidates := s.store.Index().FindFingerprints(store.SearchPrefixes, s.fps)

		if id, ok := s.selectFired(candidates, true); ok {
			s.executePlan(id, h)
			s.observer.PlanReused(s.id, id)
			continue
		}

		// A plan may cover the whole remaining buffer without any of its
		// triggers firing yet (it was discovered under a different stop
		// condition). Recognize it on sync from now on instead of storing a
		// duplicate.
		if id, ok := s.selectExact(candidates); ok {
			s.store.AddTrigger(id, store.OnSync())
			s.executePlan(id, h)
			s.observer.PlanReused(s.id, id)
			continue
		}

		s.explore(h)
	}
}

// explore asks the optimizer for a strategy over the longest finalizable
// window, stores the resulting plan, and executes it.
func (s *OperationStream[O]) explore(h *handle.Container) {
	// A barrier op is its own singleton plan, always recognized.
	if s.relative[0].Barrier() {
		window := append([]ir.OperationIr(nil), s.relative[:1]...)
		id := s.store.Add(store.ExecutionPlan[O]{
			Operations: window,
			Triggers:   []store.Trigger{store.Always()},
			Strategy:   store.Unfused[O]([]int{0}),
		})
		s.finishExploration(id, h)
		return
	}

	// Fusable window: everything up to the next barrier (barriers only linger
	// in the buffer when several arrive behind one sync point).
	end := 0
	for end < len(s.relative) && !s.relative[end].Barrier() {
		end++
	}
	window := append([]ir.OperationIr(nil), s.relative[:end]...)

	block, ok := s.explorer.Explore(window)
	if !ok {
		// No fusion found. Never fatal: degrade to one-at-a-time replay.
		slog.Debug("exploration found no fusion, falling back to unfused",
			"stream", s.id,
			"operations", len(window),
		)
		block = BlockOptimization[O]{Strategy: store.Unfused[O](identityOrdering(len(window)))}
	}

	triggers := []store.Trigger{store.OnOperations(window)}
	if end == len(s.relative) {
		// The window was closed by the sync itself, not by a trailing
		// barrier: recognize it on sync next time too.
		triggers = append(triggers, store.OnSync())
	}

	id := s.store.Add(store.ExecutionPlan[O]{
		Operations: window,
		Triggers:   triggers,
		Strategy:   block.Strategy,
	})
	s.finishExploration(id, h)
}

func (s *OperationStream[O]) finishExploration(id store.PlanId, h *handle.Container) {
	plan := s.store.Get(id)
	s.observer.PlanCreated(s.id, id, len(plan.Operations), plan.Strategy.Shape())
	slog.Debug("new execution plan explored",
		"stream", s.id,
		"plan_id", id,
		"operations", len(plan.Operations),
		"strategy", plan.Strategy.Shape(),
	)
	s.executePlan(id, h)
}

// selectFired returns the best candidate plan with a firing trigger.
// Candidates arrive longest-sequence-first from the index; ties are broken by
// the longest fused prefix, then the lowest plan id.
func (s *OperationStream[O]) selectFired(candidates []store.PlanId, sync bool) (store.PlanId, bool) {
	best := -1
	bestScore := -1
	for _, id := range candidates {
		plan := s.store.Get(id)
		fired := false
		for _, trigger := range plan.Triggers {
			if trigger.Fires(s.fps, sync) {
				fired = true
				break
			}
		}
		if !fired {
			continue
		}
		score := plan.Strategy.FusedPrefixLen()
		if score > bestScore || (score == bestScore && (best == -1 || id < best)) {
			best = id
			bestScore = score
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// selectExact returns the lowest-id candidate covering the entire remaining
// buffer.
func (s *OperationStream[O]) selectExact(candidates []store.PlanId) (store.PlanId, bool) {
	best := -1
	for _, id := range candidates {
		if len(s.store.Get(id).Operations) != len(s.buffer) {
			continue
		}
		if best == -1 || id < best {
			best = id
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// executePlan runs the plan's strategy over the front of the buffer, then
// renumbers what remains.
func (s *OperationStream[O]) executePlan(id store.PlanId, h *handle.Container) {
	plan := s.store.Get(id)
	n := len(plan.Operations)
	window := s.buffer[:n]

	s.runStrategy(plan.Strategy, window, h)
	s.truncate(n)
}

// runStrategy walks the strategy tree depth-first. Orderings index into the
// plan's full operation window, so every level receives the same window.
func (s *OperationStream[O]) runStrategy(strategy store.Strategy[O], window []queued, h *handle.Container) {
	switch strategy.Kind {
	case store.StrategyFused:
		ops := make([]ir.OperationIr, len(window))
		for i, q := range window {
			ops[i] = q.global
		}
		strategy.Opt.Execute(h, ops)
	case store.StrategyUnfused:
		for _, idx := range strategy.Ordering {
			window[idx].operation.Execute(h)
		}
	case store.StrategyComposed:
		for _, child := range strategy.Children {
			s.runStrategy(child, window, h)
		}
	}
}

// truncate drops the executed prefix and rebuilds the relative views: the
// remaining operations must be renumbered from zero again.
func (s *OperationStream[O]) truncate(n int) {
	s.buffer = append(s.buffer[:0], s.buffer[n:]...)
	s.converter = ir.NewConverter()
	s.relative = s.relative[:0]
	s.fps = s.fps[:0]
	for _, q := range s.buffer {
		rel := s.converter.Relative(q.global)
		s.relative = append(s.relative, rel)
		s.fps = append(s.fps, rel.Fingerprint())
	}
}
