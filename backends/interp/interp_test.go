// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package interp_test

import (
	"math"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/backends/interp"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/tensors"
)

func newTestBuilder(t *testing.T) backends.Builder {
	backend := interp.New("")
	require.Equal(t, "go", backend.Name())
	return backend.Builder(t.Name())
}

// run compiles a single-output computation and executes it.
func run(t *testing.T, builder backends.Builder, output backends.Op, inputs ...*tensors.Tensor) *tensors.Tensor {
	exec := must.M1(builder.Compile(output))
	results := must.M1(exec.Execute(inputs...))
	require.Len(t, results, 1)
	return results[0]
}

func TestRegistered(t *testing.T) {
	backend := backends.NewWithConfig("go")
	assert.Equal(t, "go", backend.Name())
	assert.NotEmpty(t, backend.Description())
}

func TestParameterAndConstant(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Parameter("x", shapes.Make(dtypes.Float64, 2, 2)))
	c := must.M1(builder.Constant(tensors.FromValue([][]float64{{10, 20}, {30, 40}})))
	sum := must.M1(builder.Add(x, c))
	got := run(t, builder, sum, tensors.FromValue([][]float64{{1, 2}, {3, 4}}))
	assert.Equal(t, [][]float64{{11, 22}, {33, 44}}, got.Value())
}

func TestBroadcastingBinaryOps(t *testing.T) {
	builder := newTestBuilder(t)
	matrix := must.M1(builder.Constant(tensors.FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})))
	row := must.M1(builder.Constant(tensors.FromValue([]float32{10, 20, 30})))
	got := run(t, builder, must.M1(builder.Mul(matrix, row)))
	assert.Equal(t, [][]float32{{10, 40, 90}, {40, 100, 180}}, got.Value())
}

func TestIntegerDivisionByZeroIsAnError(t *testing.T) {
	builder := newTestBuilder(t)
	num := must.M1(builder.Constant(tensors.FromScalar(int32(7))))
	den := must.M1(builder.Constant(tensors.FromScalar(int32(0))))
	div := must.M1(builder.Div(num, den))
	exec := must.M1(builder.Compile(div))
	_, err := exec.Execute()
	require.Error(t, err)
}

func TestComparisons(t *testing.T) {
	builder := newTestBuilder(t)
	lhs := must.M1(builder.Constant(tensors.FromValue([]int32{1, 2, 3})))
	rhs := must.M1(builder.Constant(tensors.FromValue([]int32{2, 2, 2})))
	got := run(t, builder, must.M1(builder.LessThan(lhs, rhs)))
	assert.Equal(t, []bool{true, false, false}, got.Value())
}

func TestConvertDType(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Constant(tensors.FromValue([]bool{true, false, true})))
	got := run(t, builder, must.M1(builder.ConvertDType(x, dtypes.Int32)))
	assert.Equal(t, []int32{1, 0, 1}, got.Value())

	builder2 := newTestBuilder(t)
	y := must.M1(builder2.Constant(tensors.FromValue([]float64{1.7, -2.7})))
	got = run(t, builder2, must.M1(builder2.ConvertDType(y, dtypes.Int64)))
	assert.Equal(t, []int64{1, -2}, got.Value())
}

func TestMatMul(t *testing.T) {
	builder := newTestBuilder(t)
	a := must.M1(builder.Constant(tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})))
	b := must.M1(builder.Constant(tensors.FromValue([][]float64{{7, 8}, {9, 10}, {11, 12}})))
	got := run(t, builder, must.M1(builder.MatMul(a, b)))
	assert.Equal(t, [][]float64{{58, 64}, {139, 154}}, got.Value())
}

func TestReshapeAndTranspose(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Constant(tensors.FromValue([][]int32{{1, 2, 3}, {4, 5, 6}})))
	transposed := must.M1(builder.Transpose(x, 1, 0))
	reshaped := must.M1(builder.Reshape(transposed, -1))
	got := run(t, builder, reshaped)
	assert.Equal(t, []int32{1, 4, 2, 5, 3, 6}, got.Value())
}

func TestBroadcastOp(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Constant(tensors.FromValue([]int32{1, 2})))
	got := run(t, builder, must.M1(builder.Broadcast(x, 3, 2)))
	assert.Equal(t, [][]int32{{1, 2}, {1, 2}, {1, 2}}, got.Value())
}

func TestShapeOfAndRank(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Parameter("x", shapes.Make(dtypes.Float32, shapes.DynamicDim, 3)))
	shapeOf := must.M1(builder.ShapeOf(x))
	exec := must.M1(builder.Compile(shapeOf))
	results := must.M1(exec.Execute(tensors.FromShape(shapes.Make(dtypes.Float32, 5, 3))))
	assert.Equal(t, []int32{5, 3}, results[0].Value())

	builder2 := newTestBuilder(t)
	y := must.M1(builder2.Constant(tensors.FromValue([][]int8{{1}, {2}})))
	got := run(t, builder2, must.M1(builder2.Rank(y)))
	assert.Equal(t, int32(2), got.Value())
}

func TestReduce(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Constant(tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})))
	got := run(t, builder, must.M1(builder.Reduce(x, backends.ReduceOpSum, 0)))
	assert.Equal(t, []float64{5, 7, 9}, got.Value())

	builder2 := newTestBuilder(t)
	y := must.M1(builder2.Constant(tensors.FromValue([][]int64{{1, 2}, {3, 4}})))
	got = run(t, builder2, must.M1(builder2.Reduce(y, backends.ReduceOpProduct, -1)))
	assert.Equal(t, []int64{2, 12}, got.Value())

	builder3 := newTestBuilder(t)
	z := must.M1(builder3.Constant(tensors.FromValue([]float32{3, 1, 2})))
	got = run(t, builder3, must.M1(builder3.Reduce(z, backends.ReduceOpMax, 0)))
	assert.Equal(t, float32(3), got.Value())
}

func TestReduceOverZeroElements(t *testing.T) {
	// Each output cell starts at the reduction's identity, so reducing an
	// empty axis is well defined.
	builder := newTestBuilder(t)
	empty := must.M1(builder.Constant(tensors.FromValue([]int32{})))
	got := run(t, builder, must.M1(builder.Reduce(empty, backends.ReduceOpProduct, 0)))
	assert.Equal(t, int32(1), got.Value())

	builder2 := newTestBuilder(t)
	empty = must.M1(builder2.Constant(tensors.FromValue([]float64{})))
	got = run(t, builder2, must.M1(builder2.Reduce(empty, backends.ReduceOpSum, 0)))
	assert.Equal(t, 0.0, got.Value())

	builder3 := newTestBuilder(t)
	empty = must.M1(builder3.Constant(tensors.FromValue([]float64{})))
	got = run(t, builder3, must.M1(builder3.Reduce(empty, backends.ReduceOpMax, 0)))
	assert.Equal(t, math.Inf(-1), got.Value())
}

func TestDynamicReduce(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Constant(tensors.FromValue([][]int32{{1, 2}, {3, 4}})))
	axes := must.M1(builder.Constant(tensors.FromValue([]int32{0, 1})))
	got := run(t, builder, must.M1(builder.DynamicReduce(x, backends.ReduceOpSum, axes)))
	assert.Equal(t, int32(10), got.Value())
}

func TestIota(t *testing.T) {
	builder := newTestBuilder(t)
	got := run(t, builder, must.M1(builder.Iota(shapes.Make(dtypes.Int32, 2, 3), 1)))
	assert.Equal(t, [][]int32{{0, 1, 2}, {0, 1, 2}}, got.Value())
}

func TestRange(t *testing.T) {
	builder := newTestBuilder(t)
	start := must.M1(builder.Constant(tensors.FromScalar(int32(2))))
	limit := must.M1(builder.Constant(tensors.FromScalar(int32(6))))
	got := run(t, builder, must.M1(builder.Range(start, limit)))
	assert.Equal(t, []int32{2, 3, 4, 5}, got.Value())

	// Empty range.
	builder2 := newTestBuilder(t)
	start = must.M1(builder2.Constant(tensors.FromScalar(int32(3))))
	limit = must.M1(builder2.Constant(tensors.FromScalar(int32(3))))
	got = run(t, builder2, must.M1(builder2.Range(start, limit)))
	assert.Equal(t, 0, got.Size())
}

func TestSetDiff1D(t *testing.T) {
	builder := newTestBuilder(t)
	lhs := must.M1(builder.Constant(tensors.FromValue([]int32{0, 1, 2, 3, 4})))
	rhs := must.M1(builder.Constant(tensors.FromValue([]int32{1, 3})))
	got := run(t, builder, must.M1(builder.SetDiff1D(lhs, rhs)))
	assert.Equal(t, []int32{0, 2, 4}, got.Value())
}

func TestGather(t *testing.T) {
	builder := newTestBuilder(t)
	params := must.M1(builder.Constant(tensors.FromValue([][]float32{{1, 2}, {3, 4}, {5, 6}})))
	indices := must.M1(builder.Constant(tensors.FromValue([]int32{2, 0})))
	got := run(t, builder, must.M1(builder.Gather(params, indices)))
	assert.Equal(t, [][]float32{{5, 6}, {1, 2}}, got.Value())
}

func TestConcatenate(t *testing.T) {
	builder := newTestBuilder(t)
	a := must.M1(builder.Constant(tensors.FromValue([]int32{1, 2})))
	b := must.M1(builder.Constant(tensors.FromValue([]int32{3})))
	got := run(t, builder, must.M1(builder.Concatenate(0, a, b)))
	assert.Equal(t, []int32{1, 2, 3}, got.Value())

	builder2 := newTestBuilder(t)
	m1 := must.M1(builder2.Constant(tensors.FromValue([][]float64{{1}, {2}})))
	m2 := must.M1(builder2.Constant(tensors.FromValue([][]float64{{3}, {4}})))
	got = run(t, builder2, must.M1(builder2.Concatenate(1, m1, m2)))
	assert.Equal(t, [][]float64{{1, 3}, {2, 4}}, got.Value())
}

func TestFloat16IsNotImplemented(t *testing.T) {
	builder := newTestBuilder(t)
	_, err := builder.Parameter("x", shapes.Make(dtypes.Float16, 2))
	require.Error(t, err)
	assert.True(t, backends.IsNotImplemented(err))
}

func TestUnaryOps(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Constant(tensors.FromValue([]float64{-1, 4})))
	abs := must.M1(builder.Abs(x))
	sqrt := must.M1(builder.Sqrt(abs))
	got := run(t, builder, sqrt)
	assert.Equal(t, []float64{1, 2}, got.Value())
}

func TestInputValidation(t *testing.T) {
	builder := newTestBuilder(t)
	x := must.M1(builder.Parameter("x", shapes.Make(dtypes.Float32, 2)))
	exec := must.M1(builder.Compile(x))

	_, err := exec.Execute()
	require.Error(t, err)

	_, err = exec.Execute(tensors.FromValue([]float32{1, 2, 3}))
	require.Error(t, err)

	results := must.M1(exec.Execute(tensors.FromValue([]float32{1, 2})))
	assert.Equal(t, []float32{1, 2}, results[0].Value())
}
