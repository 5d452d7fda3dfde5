package server

import (
	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
)

// TensorData is host-side tensor content. Exactly one data slice is
// populated, matching DType.
type TensorData struct {
	Shape     []int
	DType     ir.DType
	Float     []float32
	Int       []int32
	Bool      []bool
	Quantized []byte
}

// Device copies a drained tensor's handle out to host data. Implemented by
// each backend; the server never inspects handles itself.
type Device interface {
	// Name identifies the device in logs and traces.
	Name() string
	// Read materializes the tensor behind a registered handle. Reading an
	// unregistered tensor is an error, not a panic: the caller may race a
	// read against a stream it never registered on.
	Read(h *handle.Container, t ir.TensorIr) (TensorData, error)
}
