package ir

import "fmt"

// OpKind identifies the operation an OperationIr describes.
//
// Kinds are grouped by category: elementwise binary ops, elementwise unary
// ops, scalar-argument numeric ops, matrix/module ops, comparison (bool) ops,
// initialization, custom backend ops, and explicit drop.
type OpKind int

const (
	// Elementwise binary.
	OpAdd OpKind = iota + 1
	OpSub
	OpMul
	OpDiv

	// Elementwise unary.
	OpTanh
	OpExp
	OpRelu
	OpNeg

	// Scalar-argument numeric.
	OpAddScalar
	OpSubScalar
	OpMulScalar
	OpDivScalar
	OpPowScalar

	// Matrix / module.
	OpMatMul
	OpLinear

	// Comparison (bool output).
	OpEqual
	OpGreater

	// Lifecycle.
	OpInit
	OpCustom
	OpDrop
)

var opKindNames = map[OpKind]string{
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "div",
	OpTanh:      "tanh",
	OpExp:       "exp",
	OpRelu:      "relu",
	OpNeg:       "neg",
	OpAddScalar: "add_scalar",
	OpSubScalar: "sub_scalar",
	OpMulScalar: "mul_scalar",
	OpDivScalar: "div_scalar",
	OpPowScalar: "pow_scalar",
	OpMatMul:    "matmul",
	OpLinear:    "linear",
	OpEqual:     "equal",
	OpGreater:   "greater",
	OpInit:      "init",
	OpCustom:    "custom",
	OpDrop:      "drop",
}

// String returns the stable kind name used in fingerprints, logs, and traces.
func (k OpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// KindFromName resolves a kind name back to its OpKind.
// Used by the CLI program loader; unknown names return false.
func KindFromName(name string) (OpKind, bool) {
	for k, n := range opKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// OperationIr is an immutable description of one logical tensor operation:
// its kind, the operands it reads and writes, and any scalar attribute.
// It carries everything needed to reconstruct data dependencies without
// re-touching the backend.
type OperationIr struct {
	Kind    OpKind     `json:"kind"`
	Inputs  []TensorIr `json:"inputs"`
	Outputs []TensorIr `json:"outputs"`

	// Scalar is the attribute of scalar-argument kinds (AddScalar, ...).
	// Zero for all other kinds.
	Scalar float64 `json:"scalar,omitempty"`

	// Name tags OpCustom operations so distinct custom kernels stay
	// structurally distinct.
	Name string `json:"name,omitempty"`
}

// Barrier reports whether this operation finalizes the stream buffer on
// registration. Barrier ops never participate in fusion windows: they are
// executed as their own singleton plan, and any pending fusable ops are
// finalized first as a separate plan.
func (op OperationIr) Barrier() bool {
	switch op.Kind {
	case OpInit, OpCustom, OpDrop:
		return true
	default:
		return false
	}
}

// Tensors returns all operands, inputs first.
func (op OperationIr) Tensors() []TensorIr {
	out := make([]TensorIr, 0, len(op.Inputs)+len(op.Outputs))
	out = append(out, op.Inputs...)
	out = append(out, op.Outputs...)
	return out
}

// Reads reports whether the operation reads the given tensor.
func (op OperationIr) Reads(id TensorId) bool {
	for _, t := range op.Inputs {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Writes reports whether the operation produces the given tensor.
func (op OperationIr) Writes(id TensorId) bool {
	for _, t := range op.Outputs {
		if t.ID == id {
			return true
		}
	}
	return false
}
