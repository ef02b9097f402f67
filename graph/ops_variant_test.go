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

// testSparse builds the sparse encoding of [[0, 10], [20, 0]].
func testSparse(g *Graph) *Sparse {
	indices := Const(g, [][]int32{{0, 1}, {1, 0}})
	values := Const(g, []float64{10, 20})
	denseShape := Const(g, []int32{2, 2})
	return SparseOf(indices, values, denseShape)
}

func TestValueConstructors(t *testing.T) {
	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()

	dense := DenseOf(Const(g, []float32{1, 2}))
	assert.Equal(t, dtypes.Float32, dense.DType())

	sparse := testSparse(g)
	assert.Equal(t, dtypes.Float64, sparse.DType())

	indexed := IndexedOf(Const(g, []int32{0, 2}), Const(g, [][]float32{{1, 2}, {5, 6}}))
	assert.Equal(t, dtypes.Float32, indexed.DType())

	// All three are (the only) Value implementations.
	for _, value := range []Value{dense, sparse, indexed} {
		assert.NotEqual(t, dtypes.InvalidDType, value.DType())
	}
}

func TestSparseOfValidation(t *testing.T) {
	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()
	indices := Const(g, [][]int32{{0, 1}, {1, 0}})
	values := Const(g, []float64{10, 20})
	denseShape := Const(g, []int32{2, 2})

	// Indices must be a 2-D integer matrix.
	err := exceptions.TryCatch[error](func() {
		_ = SparseOf(Const(g, []int32{0, 1}), values, denseShape)
	})
	require.ErrorIs(t, err, ErrShapeMismatch)

	// One values entry per indices row.
	err = exceptions.TryCatch[error](func() {
		_ = SparseOf(indices, Const(g, []float64{10, 20, 30}), denseShape)
	})
	require.ErrorIs(t, err, ErrShapeMismatch)

	// One denseShape entry per indices column.
	err = exceptions.TryCatch[error](func() {
		_ = SparseOf(indices, values, Const(g, []int32{2, 2, 2}))
	})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestIndexedOfValidation(t *testing.T) {
	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()

	err := exceptions.TryCatch[error](func() {
		_ = IndexedOf(Const(g, []int32{0, 1, 2}), Const(g, [][]float32{{1}, {2}}))
	})
	require.ErrorIs(t, err, ErrShapeMismatch)

	err = exceptions.TryCatch[error](func() {
		_ = IndexedOf(Const(g, []int32{0}), Const(g, float32(1)))
	})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestDivValueDense(t *testing.T) {
	graphtest.RunAndCompare(t, "div-dense", func(g *Graph) *Node {
		dense := DenseOf(Const(g, []int32{1, 2, 3}))
		result := DivValue(dense, Const(g, int32(2)))
		// Promotion applies through the dispatch: Int32 to Float64.
		require.IsType(t, &Dense{}, result)
		assert.Equal(t, dtypes.Float64, result.DType())
		return result.(*Dense).X
	}, []float64{0.5, 1, 1.5}, 1e-9)
}

func TestDivValueSparse(t *testing.T) {
	graphtest.RunAndCompare(t, "div-sparse", func(g *Graph) *Node {
		sparse := testSparse(g)
		result := DivValue(sparse, Const(g, float64(4)))
		require.IsType(t, &Sparse{}, result)
		divided := result.(*Sparse)
		// Only the stored values change; the encoding is shared.
		assert.Same(t, sparse.Indices, divided.Indices)
		assert.Same(t, sparse.DenseShape, divided.DenseShape)
		return divided.Values
	}, []float64{2.5, 5}, 1e-9)

	// A non-scalar denominator would touch the unstored zeros.
	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()
	err := exceptions.TryCatch[error](func() {
		_ = DivValue(testSparse(g), Const(g, []float64{1, 2}))
	})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestDivValueIndexed(t *testing.T) {
	graphtest.RunAndCompare(t, "div-indexed", func(g *Graph) *Node {
		indexed := IndexedOf(Const(g, []int32{0, 2}), Const(g, [][]float32{{2, 4}, {6, 8}}))
		result := DivValue(indexed, Const(g, float32(2)))
		require.IsType(t, &Indexed{}, result)
		divided := result.(*Indexed)
		assert.Same(t, indexed.Indices, divided.Indices)
		return divided.Values
	}, [][]float32{{1, 2}, {3, 4}}, 1e-6)
}

func TestReduceSumValueDense(t *testing.T) {
	graphtest.RunAndCompare(t, "reduce-dense-axis", func(g *Graph) *Node {
		dense := DenseOf(Const(g, [][]float64{{1, 2, 3}, {4, 5, 6}}))
		return ReduceSumValue(dense, 0)
	}, []float64{5, 7, 9}, 0)

	graphtest.RunAndCompare(t, "reduce-dense-all", func(g *Graph) *Node {
		return ReduceSumValue(DenseOf(Const(g, [][]int32{{1, 2}, {3, 4}})))
	}, int32(10), 0)
}

func TestReduceSumValueSparse(t *testing.T) {
	// The sum of a sparse value is the sum of its stored values.
	graphtest.RunAndCompare(t, "reduce-sparse-all", func(g *Graph) *Node {
		return ReduceSumValue(testSparse(g))
	}, 30.0, 0)

	// Explicit axes are fine as long as they cover the full dense rank.
	graphtest.RunAndCompare(t, "reduce-sparse-explicit-all", func(g *Graph) *Node {
		return ReduceSumValue(testSparse(g), 0, -1)
	}, 30.0, 0)

	g := NewGraph(graphtest.BuildTestBackend(), t.Name())
	defer g.Finalize()

	// Partial reductions of a sparse value are not supported.
	err := exceptions.TryCatch[error](func() {
		_ = ReduceSumValue(testSparse(g), 0)
	})
	require.Error(t, err)

	// Explicit axes need the dense rank to validate against.
	dynShape := Parameter(g, "denseShape", shapes.Make(dtypes.Int32, shapes.DynamicDim))
	sparse := SparseOf(Const(g, [][]int32{{0, 1}}), Const(g, []float64{10}), dynShape)
	err = exceptions.TryCatch[error](func() {
		_ = ReduceSumValue(sparse, 0, 1)
	})
	require.Error(t, err)
}

func TestReduceSumValueIndexed(t *testing.T) {
	graphtest.RunAndCompare(t, "reduce-indexed", func(g *Graph) *Node {
		indexed := IndexedOf(Const(g, []int32{1, 3}), Const(g, [][]float64{{1, 2}, {3, 4}}))
		return ReduceSumValue(indexed, -1)
	}, []float64{3, 7}, 0)
}
