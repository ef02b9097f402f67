// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	. "github.com/symtensor/symtensor/graph"
	"github.com/symtensor/symtensor/graph/graphtest"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
)

var (
	tensordotA = [][]float64{{1, 2, 3}, {4, 5, 6}}
	tensordotB = [][]float64{{7, 8}, {9, 10}, {11, 12}}
	// tensordotA x tensordotB.
	tensordotWant = [][]float64{{58, 64}, {139, 154}}
)

func TestTensorDotMatrix(t *testing.T) {
	graphtest.RunAndCompare(t, "matrix-contraction", func(g *Graph) *Node {
		product := TensorDot(Const(g, tensordotA), Const(g, tensordotB), 1)
		assert.Equal(t, []int{2, 2}, product.Shape().Dimensions)
		return product
	}, tensordotWant, 0)
}

func TestTensorDotAxes(t *testing.T) {
	graphtest.RunAndCompare(t, "explicit-axes", func(g *Graph) *Node {
		return TensorDotAxes(Const(g, tensordotA), Const(g, tensordotB), []int{1}, []int{0})
	}, tensordotWant, 0)

	graphtest.RunAndCompare(t, "negative-axes", func(g *Graph) *Node {
		return TensorDotAxes(Const(g, tensordotA), Const(g, tensordotB), []int{-1}, []int{-2})
	}, tensordotWant, 0)

	// Contracting a's first axis instead: a^T x b.
	graphtest.RunAndCompare(t, "first-axis-of-a", func(g *Graph) *Node {
		a := Const(g, [][]float64{{1, 2}, {3, 4}, {5, 6}})
		return TensorDotAxes(a, Const(g, tensordotB), []int{0}, []int{0})
	}, [][]float64{{89, 98}, {116, 128}}, 0)
}

// naiveTensorDot contracts a [i, j, k] with b [j, k, m] over (j, k) with plain
// loops, the reference for the planner tests.
func naiveTensorDot(a [][][]float64, b [][][]float64) [][]float64 {
	iDim, jDim, kDim, mDim := len(a), len(b), len(b[0]), len(b[0][0])
	out := make([][]float64, iDim)
	for i := range out {
		out[i] = make([]float64, mDim)
		for m := 0; m < mDim; m++ {
			for j := 0; j < jDim; j++ {
				for k := 0; k < kDim; k++ {
					out[i][m] += a[i][j][k] * b[j][k][m]
				}
			}
		}
	}
	return out
}

func rank3Sequence(d0, d1, d2 int, scale float64) [][][]float64 {
	value := 0.0
	out := make([][][]float64, d0)
	for i := range out {
		out[i] = make([][]float64, d1)
		for j := range out[i] {
			out[i][j] = make([]float64, d2)
			for k := range out[i][j] {
				out[i][j][k] = value * scale
				value++
			}
		}
	}
	return out
}

func TestTensorDotHigherRank(t *testing.T) {
	a := rank3Sequence(2, 3, 4, 1)
	b := rank3Sequence(3, 4, 5, 0.5)
	want := naiveTensorDot(a, b)

	graphtest.RunAndCompare(t, "rank3-two-axes", func(g *Graph) *Node {
		product := TensorDot(Const(g, a), Const(g, b), 2)
		assert.Equal(t, []int{2, 5}, product.Shape().Dimensions)
		return product
	}, want, 1e-9)

	graphtest.RunAndCompare(t, "rank3-explicit-axes", func(g *Graph) *Node {
		return TensorDotAxes(Const(g, a), Const(g, b), []int{1, 2}, []int{0, 1})
	}, want, 1e-9)
}

func TestTensorDotFullContraction(t *testing.T) {
	graphtest.RunAndCompare(t, "full-contraction", func(g *Graph) *Node {
		x := Const(g, [][]float64{{1, 2}, {3, 4}})
		product := TensorDotAxes(x, x, []int{0, 1}, []int{0, 1})
		assert.True(t, product.IsScalar())
		return product
	}, 30.0, 0)

	// Same contraction through the deferred plan: with every axis contracted
	// the free-axes set is empty, and prod(free dims) must come out as 1.
	graphtest.RunWithInputsAndCompare(t, "dynamic-full-contraction", func(g *Graph) *Node {
		x := Parameter(g, "x", shapes.Make(dtypes.Float64, shapes.DynamicDim, shapes.DynamicDim))
		return TensorDotAxes(x, x, []int{0, 1}, []int{0, 1})
	}, []any{[][]float64{{1, 2}, {3, 4}}}, 30.0, 0)
}

func TestTensorDotDynamicDims(t *testing.T) {
	// Dynamic dimensions force the deferred plan; the values must match the
	// static plan on the same operands.
	graphtest.RunWithInputsAndCompare(t, "dynamic-dims", func(g *Graph) *Node {
		a := Parameter(g, "a", shapes.Make(dtypes.Float64, shapes.DynamicDim, shapes.DynamicDim))
		b := Parameter(g, "b", shapes.Make(dtypes.Float64, shapes.DynamicDim, shapes.DynamicDim))
		return TensorDot(a, b, 1)
	}, []any{tensordotA, tensordotB}, tensordotWant, 0)

	graphtest.RunWithInputsAndCompare(t, "dynamic-negative-axes", func(g *Graph) *Node {
		a := Parameter(g, "a", shapes.Make(dtypes.Float64, shapes.DynamicDim, shapes.DynamicDim))
		b := Const(g, tensordotB)
		return TensorDotAxes(a, b, []int{-1}, []int{0})
	}, []any{tensordotA}, tensordotWant, 0)
}

func TestTensorDotUnknownRank(t *testing.T) {
	// With a's rank unknown even the contraction axes are computed at
	// execution time.
	graphtest.RunWithInputsAndCompare(t, "unknown-rank-a", func(g *Graph) *Node {
		a := Parameter(g, "a", shapes.MakeUnknownRank(dtypes.Float64))
		return TensorDot(a, Const(g, tensordotB), 1)
	}, []any{tensordotA}, tensordotWant, 0)

	aRank3 := rank3Sequence(2, 3, 4, 1)
	bRank3 := rank3Sequence(3, 4, 5, 0.5)
	graphtest.RunWithInputsAndCompare(t, "unknown-rank-two-axes", func(g *Graph) *Node {
		a := Parameter(g, "a", shapes.MakeUnknownRank(dtypes.Float64))
		return TensorDot(a, Const(g, bRank3), 2)
	}, []any{aRank3}, naiveTensorDot(aRank3, bRank3), 1e-9)
}

func TestTensorDotWithAxesNode(t *testing.T) {
	graphtest.RunAndCompare(t, "axes-as-node", func(g *Graph) *Node {
		axes := Const(g, [][]int32{{1}, {0}})
		return TensorDotWithAxesNode(Const(g, tensordotA), Const(g, tensordotB), axes)
	}, tensordotWant, 0)

	// Negative axes in the node count from the end of each operand.
	graphtest.RunAndCompare(t, "axes-node-negative", func(g *Graph) *Node {
		axes := Const(g, [][]int32{{-1}, {0}})
		return TensorDotWithAxesNode(Const(g, tensordotA), Const(g, tensordotB), axes)
	}, tensordotWant, 0)

	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()
	a, b := Const(g, tensordotA), Const(g, tensordotB)

	err := exceptions.TryCatch[error](func() {
		_ = TensorDotWithAxesNode(a, b, Const(g, []int32{1, 0}))
	})
	require.ErrorIs(t, err, ErrShapeMismatch)

	err = exceptions.TryCatch[error](func() {
		_ = TensorDotWithAxesNode(a, b, Const(g, [][]float32{{1}, {0}}))
	})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestTensorDotErrors(t *testing.T) {
	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()
	a, b := Const(g, tensordotA), Const(g, tensordotB)

	err := exceptions.TryCatch[error](func() { _ = TensorDot(a, b, 0) })
	require.ErrorIs(t, err, ErrInvalidAxisCount)

	err = exceptions.TryCatch[error](func() { _ = TensorDot(a, b, 3) })
	require.ErrorIs(t, err, ErrInvalidAxisCount)

	err = exceptions.TryCatch[error](func() { _ = TensorDotAxes(a, b, []int{0, 1}, []int{0}) })
	require.ErrorIs(t, err, ErrInvalidAxesLength)

	err = exceptions.TryCatch[error](func() { _ = TensorDotAxes(a, b, nil, nil) })
	require.ErrorIs(t, err, ErrInvalidAxisCount)

	err = exceptions.TryCatch[error](func() { _ = TensorDotAxes(a, b, []int{0, 0}, []int{0, 1}) })
	require.Error(t, err)

	// Statically known paired dimensions must agree: a's axis 0 has size 2,
	// b's axis 0 has size 3.
	err = exceptions.TryCatch[error](func() { _ = TensorDotAxes(a, b, []int{0}, []int{0}) })
	require.ErrorIs(t, err, ErrShapeMismatch)
}
