package cpu

import (
	"fmt"
	"math"

	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
)

// Fused is the cpu backend's optimization payload: one kernel covering a
// segment of elementwise operations. Instead of one buffer traversal per
// operation, the whole segment runs in a single element-major pass;
// per-element intermediates live in registers, and every output buffer is
// still materialized so later reads outside the segment stay valid.
type Fused struct {
	// ops are the segment's operations with relative ids, as discovered.
	ops []ir.OperationIr
	// indices locate the segment inside the plan's operation window.
	indices []int
}

// NewFused builds the payload for the segment at the given window indices.
func NewFused(ops []ir.OperationIr, indices []int) *Fused {
	if len(ops) != len(indices) {
		panic("cpu: fused segment ops and indices diverge")
	}
	return &Fused{
		ops:     append([]ir.OperationIr(nil), ops...),
		indices: append([]int(nil), indices...),
	}
}

// Len returns how many operations the kernel subsumes.
func (f *Fused) Len() int {
	return len(f.indices)
}

// fusedStep is one operation of the segment, with its input resolved either
// to an external buffer or to the output of an earlier step.
type fusedStep struct {
	kind     ir.OpKind
	scalar   float64
	srcStep  int       // index of the producing step, -1 when external
	external []float32 // resolved external input when srcStep == -1
	out      []float32
}

// Execute runs the kernel. The window carries the current replay's concrete
// operation records; f.indices picks out the segment.
func (f *Fused) Execute(h *handle.Container, window []ir.OperationIr) {
	concrete := make([]ir.OperationIr, len(f.indices))
	for i, idx := range f.indices {
		concrete[i] = window[idx]
	}

	steps := make([]fusedStep, len(concrete))
	numel := 0
	for i, op := range concrete {
		in := op.Inputs[0]
		st := fusedStep{kind: op.Kind, scalar: op.Scalar, srcStep: -1}

		for j := i - 1; j >= 0; j-- {
			if concrete[j].Outputs[0].ID == in.ID {
				st.srcStep = j
				break
			}
		}
		if st.srcStep == -1 {
			st.external = GetFloatTensor(h, in).Float
		}

		numel = op.Outputs[0].NumElements()
		st.out = make([]float32, numel)
		steps[i] = st
	}

	for el := 0; el < numel; el++ {
		for i := range steps {
			var x float32
			if steps[i].srcStep >= 0 {
				x = steps[steps[i].srcStep].out[el]
			} else {
				x = steps[i].external[el]
			}
			steps[i].out[el] = evalElementwise(steps[i].kind, steps[i].scalar, x)
		}
	}

	for i, op := range concrete {
		out := op.Outputs[0]
		h.Register(out.ID, &Tensor{Shape: out.Shape, DType: ir.F32, Float: steps[i].out})
	}
}

// elementwiseKind reports whether a kind is a one-input elementwise
// operation the fused kernel understands.
func elementwiseKind(kind ir.OpKind) bool {
	switch kind {
	case ir.OpTanh, ir.OpExp, ir.OpRelu, ir.OpNeg,
		ir.OpAddScalar, ir.OpSubScalar, ir.OpMulScalar, ir.OpDivScalar, ir.OpPowScalar:
		return true
	default:
		return false
	}
}

func evalElementwise(kind ir.OpKind, scalar float64, x float32) float32 {
	switch kind {
	case ir.OpTanh:
		return float32(math.Tanh(float64(x)))
	case ir.OpExp:
		return float32(math.Exp(float64(x)))
	case ir.OpRelu:
		if x < 0 {
			return 0
		}
		return x
	case ir.OpNeg:
		return -x
	case ir.OpAddScalar:
		return x + float32(scalar)
	case ir.OpSubScalar:
		return x - float32(scalar)
	case ir.OpMulScalar:
		return x * float32(scalar)
	case ir.OpDivScalar:
		return x / float32(scalar)
	case ir.OpPowScalar:
		return float32(math.Pow(float64(x), scalar))
	default:
		panic(fmt.Sprintf("cpu: kind %s is not elementwise", kind))
	}
}
