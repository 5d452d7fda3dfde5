// Package cpu is the reference backend: plain-Go tensors, an executable for
// every operation kind, and an explorer that fuses elementwise chains.
//
// The stream core never depends on this package; it exists so the caching
// machinery has something real to execute, and so tests can observe final
// tensor values instead of mocks.
package cpu

import (
	"fmt"

	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
)

// Tensor is a backend-resident buffer. Exactly one of the data slices is
// populated, matching DType.
type Tensor struct {
	Shape []int
	DType ir.DType
	Float []float32
	Int   []int32
	Bool  []bool
	Quant []byte
}

// NewFloat builds a float tensor, copying data.
func NewFloat(shape []int, data []float32) *Tensor {
	return &Tensor{Shape: shape, DType: ir.F32, Float: append([]float32(nil), data...)}
}

// NumElements returns the product of the shape dimensions.
func (t *Tensor) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// GetFloatTensor resolves a float operand. Panics when the handle is missing
// or has the wrong type: reading a tensor before its producer's drain is a
// contract violation by the caller, not a runtime condition.
func GetFloatTensor(h *handle.Container, t ir.TensorIr) *Tensor {
	return getTensor(h, t, ir.F32)
}

// GetIntTensor resolves an int operand.
func GetIntTensor(h *handle.Container, t ir.TensorIr) *Tensor {
	return getTensor(h, t, ir.I32)
}

// GetBoolTensor resolves a bool operand.
func GetBoolTensor(h *handle.Container, t ir.TensorIr) *Tensor {
	return getTensor(h, t, ir.Bool)
}

// GetQuantizedTensor resolves a quantized operand.
func GetQuantizedTensor(h *handle.Container, t ir.TensorIr) *Tensor {
	return getTensor(h, t, ir.Q8)
}

func getTensor(h *handle.Container, t ir.TensorIr, want ir.DType) *Tensor {
	raw, ok := h.Get(t.ID)
	if !ok {
		panic(fmt.Sprintf("cpu: tensor %d read before its producer drained", t.ID))
	}
	tensor, ok := raw.(*Tensor)
	if !ok {
		panic(fmt.Sprintf("cpu: tensor %d holds a foreign handle %T", t.ID, raw))
	}
	if tensor.DType != want {
		panic(fmt.Sprintf("cpu: tensor %d is %s, wanted %s", t.ID, tensor.DType, want))
	}
	return tensor
}
