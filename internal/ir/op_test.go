package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindFromName_RoundTrip(t *testing.T) {
	for kind, name := range opKindNames {
		got, ok := KindFromName(name)
		require.True(t, ok, "name %q", name)
		assert.Equal(t, kind, got)
	}

	_, ok := KindFromName("no_such_op")
	assert.False(t, ok)
}

func TestBarrier(t *testing.T) {
	testCases := []struct {
		kind    OpKind
		barrier bool
	}{
		{OpInit, true},
		{OpDrop, true},
		{OpCustom, true},
		{OpMulScalar, false},
		{OpTanh, false},
		{OpMatMul, false},
	}

	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			op := OperationIr{Kind: tc.kind}
			assert.Equal(t, tc.barrier, op.Barrier())
		})
	}
}

func TestReadsWrites(t *testing.T) {
	op := OperationIr{
		Kind:    OpAdd,
		Inputs:  []TensorIr{tensor(1, StatusReadOnly), tensor(2, StatusReadOnly)},
		Outputs: []TensorIr{tensor(3, StatusNotInit)},
	}

	assert.True(t, op.Reads(1))
	assert.True(t, op.Reads(2))
	assert.False(t, op.Reads(3))
	assert.True(t, op.Writes(3))
	assert.False(t, op.Writes(1))
}

func TestRelativeSequence_FirstAppearanceOrder(t *testing.T) {
	ops := []OperationIr{
		{Kind: OpMul, Inputs: []TensorIr{tensor(42, StatusReadOnly), tensor(7, StatusReadOnly)}, Outputs: []TensorIr{tensor(99, StatusNotInit)}},
		{Kind: OpTanh, Inputs: []TensorIr{tensor(99, StatusReadOnly)}, Outputs: []TensorIr{tensor(100, StatusNotInit)}},
	}

	rel := RelativeSequence(ops)

	assert.Equal(t, TensorId(0), rel[0].Inputs[0].ID)
	assert.Equal(t, TensorId(1), rel[0].Inputs[1].ID)
	assert.Equal(t, TensorId(2), rel[0].Outputs[0].ID)
	assert.Equal(t, TensorId(2), rel[1].Inputs[0].ID, "reuse keeps the relative id")
	assert.Equal(t, TensorId(3), rel[1].Outputs[0].ID)

	// Originals untouched.
	assert.Equal(t, TensorId(42), ops[0].Inputs[0].ID)
}
