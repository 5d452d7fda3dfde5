package cpu

import (
	"fmt"

	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/server"
)

// Device adapts the cpu backend to the server's read boundary.
type Device struct{}

// NewDevice creates the cpu device.
func NewDevice() Device {
	return Device{}
}

// Name implements server.Device.
func (Device) Name() string {
	return "cpu"
}

// Read implements server.Device. The data slices are copied: once handed to
// the host the buffer must not alias backend state.
func (Device) Read(h *handle.Container, t ir.TensorIr) (server.TensorData, error) {
	raw, ok := h.Get(t.ID)
	if !ok {
		return server.TensorData{}, fmt.Errorf("tensor %d has no handle", t.ID)
	}
	tensor, ok := raw.(*Tensor)
	if !ok {
		return server.TensorData{}, fmt.Errorf("tensor %d holds a foreign handle %T", t.ID, raw)
	}

	data := server.TensorData{Shape: append([]int(nil), tensor.Shape...), DType: tensor.DType}
	switch tensor.DType {
	case ir.F32:
		data.Float = append([]float32(nil), tensor.Float...)
	case ir.I32:
		data.Int = append([]int32(nil), tensor.Int...)
	case ir.Bool:
		data.Bool = append([]bool(nil), tensor.Bool...)
	case ir.Q8:
		data.Quantized = append([]byte(nil), tensor.Quant...)
	default:
		return server.TensorData{}, fmt.Errorf("tensor %d has unreadable dtype %s", t.ID, tensor.DType)
	}
	return data, nil
}
