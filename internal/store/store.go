package store

import (
	"fmt"
	"log/slog"

	"github.com/roach88/fusor/internal/ir"
)

// ExecutionPlan is the stored outcome of one exploration: the operations it
// was discovered over (never empty), the triggers that authorize replaying
// it, and the chosen strategy.
//
// Operations are relative-renumbered; the plan matches any concrete tensor
// identities with the same program shape.
type ExecutionPlan[O any] struct {
	Operations []ir.OperationIr
	Triggers   []Trigger
	Strategy   Strategy[O]
}

// Store owns the append-only collection of discovered plans for one device.
//
// Not safe for concurrent mutation: the owning device runtime serializes all
// access (single-writer model).
type Store[O any] struct {
	plans []ExecutionPlan[O]
	index *Index
}

// New creates an empty store.
func New[O any]() *Store[O] {
	return &Store[O]{index: NewIndex()}
}

// Add appends a plan and returns its stable id, updating the index.
//
// Panics on an empty operation sequence: that is a contract violation by the
// caller (a plan must be discovered over something), not a runtime condition
// to recover from.
func (s *Store[O]) Add(plan ExecutionPlan[O]) PlanId {
	if len(plan.Operations) == 0 {
		panic("store: cannot add a plan with no operations")
	}

	id := len(s.plans)
	s.index.Insert(plan.Operations, id)
	s.plans = append(s.plans, plan)

	slog.Debug("execution plan stored",
		"plan_id", id,
		"operations", len(plan.Operations),
		"triggers", len(plan.Triggers),
		"strategy", plan.Strategy.Shape(),
	)

	return id
}

// Find returns every plan id whose indexed sequence matches the query.
// Empty on no match, never an error.
func (s *Store[O]) Find(query SearchQuery) []PlanId {
	return s.index.Find(query)
}

// Index exposes the derived index for the stream's matching policy.
func (s *Store[O]) Index() *Index {
	return s.index
}

// AddTrigger appends a trigger to a plan's trigger set. Idempotent: adding a
// trigger already present is a no-op. This is how a plan later becomes
// recognizable by a new prefix without creating a duplicate plan.
func (s *Store[O]) AddTrigger(id PlanId, trigger Trigger) {
	plan := &s.plans[id]
	key := trigger.Key()
	for _, existing := range plan.Triggers {
		if existing.Key() == key {
			return
		}
	}
	plan.Triggers = append(plan.Triggers, trigger)
}

// Get returns the plan by id for in-place refinement. The caller must hold an
// id previously returned by Add; anything else panics on the slice index,
// by design, since ids are never invalidated.
func (s *Store[O]) Get(id PlanId) *ExecutionPlan[O] {
	return &s.plans[id]
}

// Len returns the number of stored plans.
func (s *Store[O]) Len() int {
	return len(s.plans)
}

// PlanSummary is read-only plan information for tooling.
type PlanSummary struct {
	ID             PlanId `json:"id"`
	OperationCount int    `json:"operation_count"`
	TriggerCount   int    `json:"trigger_count"`
	Strategy       string `json:"strategy"`
}

// Summaries returns one summary per stored plan, in id order.
// Diagnostic only - carries no behavioral contract.
func (s *Store[O]) Summaries() []PlanSummary {
	out := make([]PlanSummary, len(s.plans))
	for id, plan := range s.plans {
		out[id] = PlanSummary{
			ID:             id,
			OperationCount: len(plan.Operations),
			TriggerCount:   len(plan.Triggers),
			Strategy:       plan.Strategy.Shape(),
		}
	}
	return out
}

// Stats aggregates plan statistics for diagnostics.
type Stats struct {
	PlanCount      int            `json:"plan_count"`
	OperationCount int            `json:"operation_count"`
	FusedCount     int            `json:"fused_count"`
	KindCounts     map[string]int `json:"kind_counts"`
}

// FusionRatio returns the share of stored operations covered by fused
// payloads, 0 when nothing is stored.
func (st Stats) FusionRatio() float64 {
	if st.OperationCount == 0 {
		return 0
	}
	return float64(st.FusedCount) / float64(st.OperationCount)
}

// ComputeStats walks every plan once. Diagnostic only.
func (s *Store[O]) ComputeStats() Stats {
	st := Stats{KindCounts: make(map[string]int)}
	st.PlanCount = len(s.plans)
	for _, plan := range s.plans {
		st.OperationCount += len(plan.Operations)
		st.FusedCount += plan.Strategy.NumFusedOperations()
		for _, op := range plan.Operations {
			st.KindCounts[op.Kind.String()]++
		}
	}
	return st
}

// String renders stats compactly for logs.
func (st Stats) String() string {
	return fmt.Sprintf("plans=%d operations=%d fused=%d ratio=%.2f",
		st.PlanCount, st.OperationCount, st.FusedCount, st.FusionRatio())
}
