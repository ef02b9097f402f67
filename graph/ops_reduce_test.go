// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"math"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	. "github.com/symtensor/symtensor/graph"
	"github.com/symtensor/symtensor/graph/graphtest"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
)

func TestReduceSum(t *testing.T) {
	graphtest.RunAndCompare(t, "sum-axis0", func(g *Graph) *Node {
		return ReduceSum(Const(g, [][]float64{{1, 2, 3}, {4, 5, 6}}), 0)
	}, []float64{5, 7, 9}, 0)

	graphtest.RunAndCompare(t, "sum-negative-axis", func(g *Graph) *Node {
		return ReduceSum(Const(g, [][]float64{{1, 2, 3}, {4, 5, 6}}), -1)
	}, []float64{6, 15}, 0)

	graphtest.RunAndCompare(t, "sum-all", func(g *Graph) *Node {
		sum := ReduceAllSum(Const(g, [][]int32{{1, 2}, {3, 4}}))
		assert.True(t, sum.IsScalar())
		return sum
	}, int32(10), 0)
}

func TestReduceProductMaxMin(t *testing.T) {
	graphtest.RunAndCompare(t, "product", func(g *Graph) *Node {
		return ReduceProduct(Const(g, [][]int64{{1, 2}, {3, 4}}), 1)
	}, []int64{2, 12}, 0)

	graphtest.RunAndCompare(t, "max", func(g *Graph) *Node {
		return ReduceMax(Const(g, [][]float32{{1, 7}, {5, 2}}), 0)
	}, []float32{5, 7}, 0)

	graphtest.RunAndCompare(t, "min-all", func(g *Graph) *Node {
		return ReduceAllMin(Const(g, []float64{3, -1, 2}))
	}, -1.0, 0)

	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()
	err := exceptions.TryCatch[error](func() {
		_ = ReduceMax(Const(g, []complex64{1, 2}))
	})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestReduceMultipleAxes(t *testing.T) {
	graphtest.RunAndCompare(t, "sum-two-of-three-axes", func(g *Graph) *Node {
		x := Iota(g, shapes.Make(dtypes.Float32, 2, 3, 4), 0)
		sum := ReduceSum(x, 0, 2)
		assert.Equal(t, []int{3}, sum.Shape().Dimensions)
		return sum
	}, []float32{4, 4, 4}, 0)
}

func TestReduceOptions(t *testing.T) {
	// The deprecated ReductionIndices alias selects the same axes.
	graphtest.RunAndCompare(t, "reduction-indices", func(g *Graph) *Node {
		x := Const(g, [][]float64{{1, 2, 3}, {4, 5, 6}})
		return ReduceSumWithOptions(x, ReduceOptions{ReductionIndices: []int{0}})
	}, []float64{5, 7, 9}, 0)

	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()
	x := Const(g, [][]float64{{1, 2}, {3, 4}})

	// Setting both ways of choosing axes is an error.
	err := exceptions.TryCatch[error](func() {
		_ = ReduceSumWithOptions(x, ReduceOptions{Axes: []int{0}, ReductionIndices: []int{1}})
	})
	require.ErrorIs(t, err, ErrConflictingArguments)

	err = exceptions.TryCatch[error](func() {
		_ = ReduceSum(x, 0, 0)
	})
	require.ErrorIs(t, err, ErrConflictingArguments)

	err = exceptions.TryCatch[error](func() {
		_ = ReduceSum(x, 2)
	})
	require.Error(t, err)
}

func TestReduceAllOfKnownRankIsStatic(t *testing.T) {
	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()
	x := Const(g, [][]float32{{1, 2}, {3, 4}})
	sum := ReduceAllSum(x)
	// With a known rank the axes are resolved at build time: the reduction
	// consumes only x, no deferred axes node.
	require.Len(t, sum.Inputs(), 1)
	assert.Same(t, x, sum.Inputs()[0])
	assert.True(t, sum.IsScalar())
}

func TestReduceUnknownRank(t *testing.T) {
	// Reduce-all of an unknown-rank operand defers the axes to execution time
	// and still yields a scalar.
	graphtest.RunWithInputsAndCompare(t, "sum-unknown-rank", func(g *Graph) *Node {
		x := Parameter(g, "x", shapes.MakeUnknownRank(dtypes.Float64))
		sum := ReduceAllSum(x)
		assert.True(t, sum.IsScalar())
		require.Len(t, sum.Inputs(), 2)
		return sum
	}, []any{[][]float64{{1, 2, 3}, {4, 5, 6}}}, 21.0, 0)

	// Explicit axes on an unknown-rank operand: validated and applied at
	// execution time, output rank unknown at build time.
	graphtest.RunWithInputsAndCompare(t, "sum-axis-unknown-rank", func(g *Graph) *Node {
		x := Parameter(g, "x", shapes.MakeUnknownRank(dtypes.Float64))
		sum := ReduceSum(x, 0)
		assert.False(t, sum.Shape().IsRankKnown())
		return sum
	}, []any{[][]float64{{1, 2, 3}, {4, 5, 6}}}, []float64{5, 7, 9}, 0)
}

func TestReduceDynamicDims(t *testing.T) {
	// Known rank with dynamic dimensions still resolves axes at build time.
	graphtest.RunWithInputsAndCompare(t, "sum-dynamic-dim", func(g *Graph) *Node {
		x := Parameter(g, "x", shapes.Make(dtypes.Float32, shapes.DynamicDim, 3))
		sum := ReduceSum(x, -1)
		assert.Equal(t, []int{shapes.DynamicDim}, sum.Shape().Dimensions)
		return sum
	}, []any{[][]float32{{1, 2, 3}, {4, 5, 6}}}, []float32{6, 15}, 0)
}

func TestReduceOverZeroElements(t *testing.T) {
	// Reducing over zero elements yields the operation's identity.
	graphtest.RunAndCompare(t, "empty-product", func(g *Graph) *Node {
		return ReduceAllProduct(Const(g, []int32{}))
	}, int32(1), 0)

	graphtest.RunAndCompare(t, "empty-sum", func(g *Graph) *Node {
		return ReduceAllSum(Const(g, []float64{}))
	}, 0.0, 0)

	graphtest.RunAndCompare(t, "empty-max", func(g *Graph) *Node {
		return ReduceAllMax(Const(g, []float64{}))
	}, math.Inf(-1), 0)

	graphtest.RunAndCompare(t, "empty-axis", func(g *Graph) *Node {
		return ReduceProduct(Const(g, [][]float32{{}, {}}), 1)
	}, []float32{1, 1}, 0)
}
