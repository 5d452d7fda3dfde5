package cpu

import (
	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/store"
	"github.com/roach88/fusor/internal/stream"
)

// minFusedSegment is the smallest run worth a fused kernel; a single op
// gains nothing from fusion.
const minFusedSegment = 2

// Explorer proposes strategies for the cpu backend. It fuses maximal runs of
// consecutive elementwise operations over equally-sized buffers; everything
// else replays individually. Mixed windows become a composed strategy.
type Explorer struct{}

// NewExplorer creates the cpu explorer.
func NewExplorer() *Explorer {
	return &Explorer{}
}

// Explore implements the stream.Explorer contract for *Fused payloads.
// Returns false when the window holds no fusable run at all.
func (e *Explorer) Explore(ops []ir.OperationIr) (stream.BlockOptimization[*Fused], bool) {
	var children []store.Strategy[*Fused]
	fusedAny := false

	i := 0
	for i < len(ops) {
		if !fusable(ops[i]) {
			// Collect the unfused run.
			start := i
			for i < len(ops) && !fusable(ops[i]) {
				i++
			}
			children = append(children, store.Unfused[*Fused](indexRange(start, i)))
			continue
		}

		// Collect the elementwise run over a constant element count.
		start := i
		numel := ops[i].Outputs[0].NumElements()
		for i < len(ops) && fusable(ops[i]) && ops[i].Outputs[0].NumElements() == numel {
			i++
		}

		indices := indexRange(start, i)
		if len(indices) < minFusedSegment {
			children = append(children, store.Unfused[*Fused](indices))
			continue
		}

		children = append(children, store.Fused(NewFused(ops[start:i], indices), indices))
		fusedAny = true
	}

	if !fusedAny {
		return stream.BlockOptimization[*Fused]{}, false
	}

	if len(children) == 1 {
		return stream.BlockOptimization[*Fused]{Strategy: children[0]}, true
	}
	return stream.BlockOptimization[*Fused]{Strategy: store.Composed(children...)}, true
}

func fusable(op ir.OperationIr) bool {
	return elementwiseKind(op.Kind) &&
		len(op.Inputs) == 1 && len(op.Outputs) == 1 &&
		op.Inputs[0].DType == ir.F32
}

func indexRange(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}
