package cpu

import (
	"fmt"
	"math"

	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
)

// operation adapts one OperationIr to the stream's executable contract.
type operation struct {
	op ir.OperationIr
}

// Executable returns the backend executable for an operation record.
func Executable(op ir.OperationIr) operation {
	return operation{op: op}
}

func (o operation) Execute(h *handle.Container) {
	apply(h, o.op)
}

// apply performs the backend side effect for one operation, resolving
// operands by their concrete ids.
func apply(h *handle.Container, op ir.OperationIr) {
	switch op.Kind {
	case ir.OpInit:
		out := op.Outputs[0]
		data := make([]float32, out.NumElements())
		fill := float32(op.Scalar)
		for i := range data {
			data[i] = fill
		}
		h.Register(out.ID, &Tensor{Shape: out.Shape, DType: ir.F32, Float: data})

	case ir.OpTanh:
		applyUnary(h, op, func(x float32) float32 { return float32(math.Tanh(float64(x))) })
	case ir.OpExp:
		applyUnary(h, op, func(x float32) float32 { return float32(math.Exp(float64(x))) })
	case ir.OpRelu:
		applyUnary(h, op, func(x float32) float32 {
			if x < 0 {
				return 0
			}
			return x
		})
	case ir.OpNeg:
		applyUnary(h, op, func(x float32) float32 { return -x })

	case ir.OpAddScalar:
		s := float32(op.Scalar)
		applyUnary(h, op, func(x float32) float32 { return x + s })
	case ir.OpSubScalar:
		s := float32(op.Scalar)
		applyUnary(h, op, func(x float32) float32 { return x - s })
	case ir.OpMulScalar:
		s := float32(op.Scalar)
		applyUnary(h, op, func(x float32) float32 { return x * s })
	case ir.OpDivScalar:
		s := float32(op.Scalar)
		applyUnary(h, op, func(x float32) float32 { return x / s })
	case ir.OpPowScalar:
		s := op.Scalar
		applyUnary(h, op, func(x float32) float32 { return float32(math.Pow(float64(x), s)) })

	case ir.OpAdd:
		applyBinary(h, op, func(a, b float32) float32 { return a + b })
	case ir.OpSub:
		applyBinary(h, op, func(a, b float32) float32 { return a - b })
	case ir.OpMul:
		applyBinary(h, op, func(a, b float32) float32 { return a * b })
	case ir.OpDiv:
		applyBinary(h, op, func(a, b float32) float32 { return a / b })

	case ir.OpEqual:
		applyCompare(h, op, func(a, b float32) bool { return a == b })
	case ir.OpGreater:
		applyCompare(h, op, func(a, b float32) bool { return a > b })

	case ir.OpMatMul:
		applyMatMul(h, op)
	case ir.OpLinear:
		applyLinear(h, op)

	case ir.OpDrop:
		for _, t := range op.Inputs {
			h.Free(t.ID)
		}

	default:
		panic(fmt.Sprintf("cpu: no executable for operation kind %s", op.Kind))
	}
}

func applyUnary(h *handle.Container, op ir.OperationIr, f func(float32) float32) {
	in := GetFloatTensor(h, op.Inputs[0])
	out := op.Outputs[0]
	data := make([]float32, len(in.Float))
	for i, x := range in.Float {
		data[i] = f(x)
	}
	h.Register(out.ID, &Tensor{Shape: out.Shape, DType: ir.F32, Float: data})
}

func applyBinary(h *handle.Container, op ir.OperationIr, f func(a, b float32) float32) {
	lhs := GetFloatTensor(h, op.Inputs[0])
	rhs := GetFloatTensor(h, op.Inputs[1])
	out := op.Outputs[0]
	data := make([]float32, len(lhs.Float))
	for i := range data {
		data[i] = f(lhs.Float[i], rhs.Float[i])
	}
	h.Register(out.ID, &Tensor{Shape: out.Shape, DType: ir.F32, Float: data})
}

func applyCompare(h *handle.Container, op ir.OperationIr, f func(a, b float32) bool) {
	lhs := GetFloatTensor(h, op.Inputs[0])
	rhs := GetFloatTensor(h, op.Inputs[1])
	out := op.Outputs[0]
	data := make([]bool, len(lhs.Float))
	for i := range data {
		data[i] = f(lhs.Float[i], rhs.Float[i])
	}
	h.Register(out.ID, &Tensor{Shape: out.Shape, DType: ir.Bool, Bool: data})
}

func applyMatMul(h *handle.Container, op ir.OperationIr) {
	lhs := GetFloatTensor(h, op.Inputs[0])
	rhs := GetFloatTensor(h, op.Inputs[1])
	out := op.Outputs[0]

	m, k := lhs.Shape[0], lhs.Shape[1]
	n := rhs.Shape[1]
	data := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for p := 0; p < k; p++ {
				sum += lhs.Float[i*k+p] * rhs.Float[p*n+j]
			}
			data[i*n+j] = sum
		}
	}
	h.Register(out.ID, &Tensor{Shape: out.Shape, DType: ir.F32, Float: data})
}

// applyLinear computes x*w + b over inputs [x, w, b].
func applyLinear(h *handle.Container, op ir.OperationIr) {
	x := GetFloatTensor(h, op.Inputs[0])
	w := GetFloatTensor(h, op.Inputs[1])
	b := GetFloatTensor(h, op.Inputs[2])
	out := op.Outputs[0]

	m, k := x.Shape[0], x.Shape[1]
	n := w.Shape[1]
	data := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := b.Float[j]
			for p := 0; p < k; p++ {
				sum += x.Float[i*k+p] * w.Float[p*n+j]
			}
			data[i*n+j] = sum
		}
	}
	h.Register(out.ID, &Tensor{Shape: out.Shape, DType: ir.F32, Float: data})
}
