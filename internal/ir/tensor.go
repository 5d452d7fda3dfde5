package ir

import "fmt"

// TensorId uniquely identifies one logical tensor version within a process.
// Ids are allocated by the handle container when a producer creates the
// tensor; this package only tracks identity, never buffer ownership.
type TensorId uint64

// TensorStatus describes how an operation touches a tensor operand.
type TensorStatus int

const (
	// StatusNotInit marks a tensor the operation writes for the first time.
	StatusNotInit TensorStatus = iota + 1
	// StatusReadOnly marks a tensor the operation only reads.
	StatusReadOnly
	// StatusReadWrite marks a tensor the operation reads and may reuse in place.
	StatusReadWrite
)

// String returns the status name for logs and traces.
func (s TensorStatus) String() string {
	switch s {
	case StatusNotInit:
		return "not_init"
	case StatusReadOnly:
		return "read_only"
	case StatusReadWrite:
		return "read_write"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DType is the element type of a tensor.
type DType int

const (
	F32 DType = iota + 1
	I32
	Bool
	Q8
)

// String returns the dtype name for logs and traces.
func (d DType) String() string {
	switch d {
	case F32:
		return "f32"
	case I32:
		return "i32"
	case Bool:
		return "bool"
	case Q8:
		return "q8"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// TensorIr describes one operand of an operation: which logical tensor it is,
// its shape and element type, and whether the operation reads or writes it.
type TensorIr struct {
	ID     TensorId     `json:"id"`
	Shape  []int        `json:"shape"`
	Status TensorStatus `json:"status"`
	DType  DType        `json:"dtype"`
}

// WithStatus returns a copy of the operand under a different status. The
// same logical tensor is written by its producer and read by its consumers;
// only the status differs between those records.
func (t TensorIr) WithStatus(s TensorStatus) TensorIr {
	t.Status = s
	return t
}

// NumElements returns the product of the shape dimensions.
// A scalar (empty shape) has one element.
func (t TensorIr) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}
