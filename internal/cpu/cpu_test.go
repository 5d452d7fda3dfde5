package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fusor/internal/handle"
	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/store"
)

func floatIr(id ir.TensorId, shape []int, status ir.TensorStatus) ir.TensorIr {
	return ir.TensorIr{ID: id, Shape: shape, Status: status, DType: ir.F32}
}

func unary(kind ir.OpKind, in, out ir.TensorId, scalar float64) ir.OperationIr {
	return ir.OperationIr{
		Kind:    kind,
		Inputs:  []ir.TensorIr{floatIr(in, []int{4}, ir.StatusReadOnly)},
		Outputs: []ir.TensorIr{floatIr(out, []int{4}, ir.StatusNotInit)},
		Scalar:  scalar,
	}
}

func seed(h *handle.Container, id ir.TensorId, data []float32) {
	h.Register(id, NewFloat([]int{len(data)}, data))
}

func TestApply_ScalarAndUnaryOps(t *testing.T) {
	testCases := []struct {
		kind   ir.OpKind
		scalar float64
		in     []float32
		want   []float32
	}{
		{ir.OpAddScalar, 1.5, []float32{1, 2, 3, 4}, []float32{2.5, 3.5, 4.5, 5.5}},
		{ir.OpSubScalar, 1, []float32{1, 2, 3, 4}, []float32{0, 1, 2, 3}},
		{ir.OpMulScalar, 2, []float32{1, 2, 3, 4}, []float32{2, 4, 6, 8}},
		{ir.OpDivScalar, 2, []float32{2, 4, 6, 8}, []float32{1, 2, 3, 4}},
		{ir.OpNeg, 0, []float32{1, -2, 3, -4}, []float32{-1, 2, -3, 4}},
		{ir.OpRelu, 0, []float32{-1, 2, -3, 4}, []float32{0, 2, 0, 4}},
	}

	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			h := handle.NewContainer()
			seed(h, 0, tc.in)

			Executable(unary(tc.kind, 0, 1, tc.scalar)).Execute(h)

			out := GetFloatTensor(h, floatIr(1, []int{4}, ir.StatusReadOnly))
			assert.Equal(t, tc.want, out.Float)
		})
	}
}

func TestApply_TanhExp(t *testing.T) {
	h := handle.NewContainer()
	seed(h, 0, []float32{0, 1, -1, 2})

	Executable(unary(ir.OpTanh, 0, 1, 0)).Execute(h)
	Executable(unary(ir.OpExp, 0, 2, 0)).Execute(h)

	tanh := GetFloatTensor(h, floatIr(1, []int{4}, ir.StatusReadOnly)).Float
	exp := GetFloatTensor(h, floatIr(2, []int{4}, ir.StatusReadOnly)).Float
	for i, x := range []float32{0, 1, -1, 2} {
		assert.InDelta(t, math.Tanh(float64(x)), float64(tanh[i]), 1e-6)
		assert.InDelta(t, math.Exp(float64(x)), float64(exp[i]), 1e-4)
	}
}

func TestApply_BinaryAndCompare(t *testing.T) {
	h := handle.NewContainer()
	seed(h, 0, []float32{1, 2, 3, 4})
	seed(h, 1, []float32{4, 2, 1, 4})

	binary := func(kind ir.OpKind, out ir.TensorId) ir.OperationIr {
		return ir.OperationIr{
			Kind: kind,
			Inputs: []ir.TensorIr{
				floatIr(0, []int{4}, ir.StatusReadOnly),
				floatIr(1, []int{4}, ir.StatusReadOnly),
			},
			Outputs: []ir.TensorIr{floatIr(out, []int{4}, ir.StatusNotInit)},
		}
	}

	Executable(binary(ir.OpAdd, 2)).Execute(h)
	assert.Equal(t, []float32{5, 4, 4, 8}, GetFloatTensor(h, floatIr(2, []int{4}, ir.StatusReadOnly)).Float)

	Executable(binary(ir.OpMul, 3)).Execute(h)
	assert.Equal(t, []float32{4, 4, 3, 16}, GetFloatTensor(h, floatIr(3, []int{4}, ir.StatusReadOnly)).Float)

	eq := binary(ir.OpEqual, 4)
	eq.Outputs[0].DType = ir.Bool
	Executable(eq).Execute(h)
	assert.Equal(t, []bool{false, true, false, true}, GetBoolTensor(h, eq.Outputs[0]).Bool)

	gt := binary(ir.OpGreater, 5)
	gt.Outputs[0].DType = ir.Bool
	Executable(gt).Execute(h)
	assert.Equal(t, []bool{false, false, true, false}, GetBoolTensor(h, gt.Outputs[0]).Bool)
}

func TestApply_MatMul(t *testing.T) {
	h := handle.NewContainer()
	h.Register(0, NewFloat([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6}))
	h.Register(1, NewFloat([]int{3, 2}, []float32{7, 8, 9, 10, 11, 12}))

	op := ir.OperationIr{
		Kind: ir.OpMatMul,
		Inputs: []ir.TensorIr{
			floatIr(0, []int{2, 3}, ir.StatusReadOnly),
			floatIr(1, []int{3, 2}, ir.StatusReadOnly),
		},
		Outputs: []ir.TensorIr{floatIr(2, []int{2, 2}, ir.StatusNotInit)},
	}
	Executable(op).Execute(h)

	out := GetFloatTensor(h, op.Outputs[0])
	assert.Equal(t, []float32{58, 64, 139, 154}, out.Float)
}

func TestApply_InitAndDrop(t *testing.T) {
	h := handle.NewContainer()

	init := ir.OperationIr{
		Kind:    ir.OpInit,
		Outputs: []ir.TensorIr{floatIr(0, []int{3}, ir.StatusNotInit)},
		Scalar:  2.5,
	}
	Executable(init).Execute(h)
	assert.Equal(t, []float32{2.5, 2.5, 2.5}, GetFloatTensor(h, init.Outputs[0]).Float)

	drop := ir.OperationIr{
		Kind:   ir.OpDrop,
		Inputs: []ir.TensorIr{floatIr(0, []int{3}, ir.StatusReadWrite)},
	}
	Executable(drop).Execute(h)
	_, ok := h.Get(0)
	assert.False(t, ok)
}

// The fused kernel must be observably identical to executing the same
// operations one at a time.
func TestFused_MatchesSequentialExecution(t *testing.T) {
	ops := []ir.OperationIr{
		unary(ir.OpMulScalar, 0, 1, 2.0),
		unary(ir.OpAddScalar, 1, 2, 1.0),
		unary(ir.OpTanh, 2, 3, 0),
	}
	input := []float32{0.5, -1, 0, 2}

	sequential := handle.NewContainer()
	seed(sequential, 0, input)
	for _, op := range ops {
		Executable(op).Execute(sequential)
	}

	fused := handle.NewContainer()
	seed(fused, 0, input)
	NewFused(ir.RelativeSequence(ops), []int{0, 1, 2}).Execute(fused, ops)

	for _, id := range []ir.TensorId{1, 2, 3} {
		want := GetFloatTensor(sequential, floatIr(id, []int{4}, ir.StatusReadOnly)).Float
		got := GetFloatTensor(fused, floatIr(id, []int{4}, ir.StatusReadOnly)).Float
		assert.Equal(t, want, got, "tensor %d", id)
	}
}

// A fork inside the segment (two steps reading the same intermediate) still
// executes correctly in the element-major pass.
func TestFused_ForkedSegment(t *testing.T) {
	ops := []ir.OperationIr{
		unary(ir.OpMulScalar, 0, 1, 2.0),
		unary(ir.OpNeg, 1, 2, 0),
		unary(ir.OpAddScalar, 1, 3, 1.0),
	}
	h := handle.NewContainer()
	seed(h, 0, []float32{1, 2, 3, 4})

	NewFused(ir.RelativeSequence(ops), []int{0, 1, 2}).Execute(h, ops)

	assert.Equal(t, []float32{-2, -4, -6, -8}, GetFloatTensor(h, floatIr(2, []int{4}, ir.StatusReadOnly)).Float)
	assert.Equal(t, []float32{3, 5, 7, 9}, GetFloatTensor(h, floatIr(3, []int{4}, ir.StatusReadOnly)).Float)
}

func TestExplorer_FusesElementwiseRun(t *testing.T) {
	e := NewExplorer()
	ops := ir.RelativeSequence([]ir.OperationIr{
		unary(ir.OpMulScalar, 0, 1, 2.0),
		unary(ir.OpAddScalar, 1, 2, 1.0),
		unary(ir.OpTanh, 2, 3, 0),
	})

	block, ok := e.Explore(ops)
	require.True(t, ok)
	assert.Equal(t, store.StrategyFused, block.Strategy.Kind)
	assert.Equal(t, []int{0, 1, 2}, block.Strategy.Ordering)
	assert.Equal(t, 3, block.Strategy.Opt.Len())
}

func TestExplorer_MixedWindowComposes(t *testing.T) {
	e := NewExplorer()

	matmul := ir.OperationIr{
		Kind: ir.OpMatMul,
		Inputs: []ir.TensorIr{
			floatIr(3, []int{4, 4}, ir.StatusReadOnly),
			floatIr(4, []int{4, 4}, ir.StatusReadOnly),
		},
		Outputs: []ir.TensorIr{floatIr(5, []int{4, 4}, ir.StatusNotInit)},
	}
	ops := ir.RelativeSequence([]ir.OperationIr{
		unary(ir.OpMulScalar, 0, 1, 2.0),
		unary(ir.OpAddScalar, 1, 2, 1.0),
		matmul,
	})

	block, ok := e.Explore(ops)
	require.True(t, ok)
	require.Equal(t, store.StrategyComposed, block.Strategy.Kind)
	require.Len(t, block.Strategy.Children, 2)
	assert.Equal(t, store.StrategyFused, block.Strategy.Children[0].Kind)
	assert.Equal(t, []int{0, 1}, block.Strategy.Children[0].Ordering)
	assert.Equal(t, store.StrategyUnfused, block.Strategy.Children[1].Kind)
	assert.Equal(t, []int{2}, block.Strategy.Children[1].Ordering)
}

func TestExplorer_NothingFusable(t *testing.T) {
	e := NewExplorer()

	matmul := ir.OperationIr{
		Kind: ir.OpMatMul,
		Inputs: []ir.TensorIr{
			floatIr(0, []int{4, 4}, ir.StatusReadOnly),
			floatIr(1, []int{4, 4}, ir.StatusReadOnly),
		},
		Outputs: []ir.TensorIr{floatIr(2, []int{4, 4}, ir.StatusNotInit)},
	}

	_, ok := e.Explore(ir.RelativeSequence([]ir.OperationIr{matmul}))
	assert.False(t, ok, "no fusable run means no fusion, not an error")

	_, ok = e.Explore(ir.RelativeSequence([]ir.OperationIr{unary(ir.OpTanh, 0, 1, 0)}))
	assert.False(t, ok, "a single elementwise op is not worth a kernel")
}

func TestExplorer_SizeBreakSplitsSegments(t *testing.T) {
	e := NewExplorer()

	small := func(in, out ir.TensorId, kind ir.OpKind) ir.OperationIr {
		return ir.OperationIr{
			Kind:    kind,
			Inputs:  []ir.TensorIr{floatIr(in, []int{2}, ir.StatusReadOnly)},
			Outputs: []ir.TensorIr{floatIr(out, []int{2}, ir.StatusNotInit)},
		}
	}
	ops := ir.RelativeSequence([]ir.OperationIr{
		unary(ir.OpMulScalar, 0, 1, 2.0), // numel 4
		unary(ir.OpAddScalar, 1, 2, 1.0), // numel 4
		small(3, 4, ir.OpTanh),           // numel 2, breaks the run
		small(4, 5, ir.OpNeg),
	})

	block, ok := e.Explore(ops)
	require.True(t, ok)
	require.Equal(t, store.StrategyComposed, block.Strategy.Kind)
	require.Len(t, block.Strategy.Children, 2)
	assert.Equal(t, []int{0, 1}, block.Strategy.Children[0].Ordering)
	assert.Equal(t, []int{2, 3}, block.Strategy.Children[1].Ordering)
	assert.Equal(t, store.StrategyFused, block.Strategy.Children[1].Kind)
}
