// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/sets"
	"github.com/symtensor/symtensor/types/shapes"
)

// Value is the closed set of tensor representations the variant-dispatching
// front-ends accept: exactly *Dense, *Sparse and *Indexed implement it.
// Operations on a Value type-switch over the three representations and route
// to a representation-specific routine.
type Value interface {
	// DType of the value's elements.
	DType() dtypes.DType

	// closedValue keeps the set of implementations closed.
	closedValue()
}

// Dense is the ordinary representation: a plain node.
type Dense struct {
	X *Node
}

// Sparse is a COO-encoded value: Values holds the nnz stored elements,
// Indices is the [nnz, rank] integer matrix with their coordinates, and
// DenseShape is the 1-D integer vector with the dense dimensions. Elements
// not stored are zero.
type Sparse struct {
	Indices, Values, DenseShape *Node
}

// Indexed is a row-sliced value: Values holds rows taken from axis 0 of a
// larger value, and the 1-D integer Indices records which rows they are.
type Indexed struct {
	Indices, Values *Node
}

// DenseOf wraps a node as a Dense value.
func DenseOf(x *Node) *Dense {
	x.AssertValid()
	return &Dense{X: x}
}

// SparseOf builds a Sparse value, validating whatever is statically known:
// indices must be a 2-D integer matrix, values 1-D with one entry per indices
// row, denseShape a 1-D integer vector with one entry per indices column.
func SparseOf(indices, values, denseShape *Node) *Sparse {
	validateBuildingGraphFromInputs(indices, values, denseShape)
	if !indices.DType().IsInt() || (indices.Shape().IsRankKnown() && indices.Rank() != 2) {
		panicWrapf(ErrShapeMismatch, "SparseOf(indices=%s): indices must be a [nnz, rank] integer matrix", indices.Shape())
	}
	assertIntVector("SparseOf", "denseShape", denseShape)
	if values.Shape().IsRankKnown() && values.Rank() != 1 {
		panicWrapf(ErrShapeMismatch, "SparseOf(values=%s): values must be 1-D", values.Shape())
	}
	nnz, numValues := indices.Shape().Dim(0), values.Shape().Dim(0)
	if nnz != shapes.DynamicDim && numValues != shapes.DynamicDim && nnz != numValues {
		panicWrapf(ErrShapeMismatch, "SparseOf: %d indices rows for %d values", nnz, numValues)
	}
	rank, numDims := indices.Shape().Dim(1), denseShape.Shape().Dim(0)
	if rank != shapes.DynamicDim && numDims != shapes.DynamicDim && rank != numDims {
		panicWrapf(ErrShapeMismatch, "SparseOf: indices have rank %d coordinates but denseShape has %d entries", rank, numDims)
	}
	return &Sparse{Indices: indices, Values: values, DenseShape: denseShape}
}

// IndexedOf builds an Indexed value: rows of values at the row positions in
// the 1-D integer indices.
func IndexedOf(indices, values *Node) *Indexed {
	validateBuildingGraphFromInputs(indices, values)
	assertIntVector("IndexedOf", "indices", indices)
	numIndices, numRows := indices.Shape().Dim(0), shapes.DynamicDim
	if values.Shape().IsRankKnown() {
		if values.Rank() == 0 {
			panicWrapf(ErrShapeMismatch, "IndexedOf(values=%s): values cannot be a scalar", values.Shape())
		}
		numRows = values.Shape().Dim(0)
	}
	if numIndices != shapes.DynamicDim && numRows != shapes.DynamicDim && numIndices != numRows {
		panicWrapf(ErrShapeMismatch, "IndexedOf: %d indices for %d value rows", numIndices, numRows)
	}
	return &Indexed{Indices: indices, Values: values}
}

// DType implements Value.
func (v *Dense) DType() dtypes.DType { return v.X.DType() }

// DType implements Value.
func (v *Sparse) DType() dtypes.DType { return v.Values.DType() }

// DType implements Value.
func (v *Indexed) DType() dtypes.DType { return v.Values.DType() }

func (v *Dense) closedValue()   {}
func (v *Sparse) closedValue()  {}
func (v *Indexed) closedValue() {}

// rank of the dense space a Sparse value lives in, taken from the static
// length of the DenseShape vector; shapes.DynamicDim if it isn't known at
// build time.
func (v *Sparse) rank() int {
	return v.DenseShape.Shape().Dim(0)
}

// DivValue is the variant-dispatching true division of x by the node y, with
// the same promotion rules as Div. The representation is preserved.
//
// For Sparse x only a scalar denominator is supported: dividing the stored
// values by a scalar keeps the unstored zeros zero, so the COO encoding
// remains valid. For Indexed x, y must be a scalar or broadcast against the
// value rows.
func DivValue(x Value, y *Node) Value {
	switch v := x.(type) {
	case *Dense:
		return &Dense{X: Div(v.X, y)}
	case *Sparse:
		if y.Shape().IsRankKnown() && !y.IsScalar() {
			panicWrapf(ErrShapeMismatch, "DivValue(Sparse, y=%s): sparse true division requires a scalar denominator", y.Shape())
		}
		return &Sparse{Indices: v.Indices, Values: Div(v.Values, y), DenseShape: v.DenseShape}
	case *Indexed:
		return &Indexed{Indices: v.Indices, Values: Div(v.Values, y)}
	default:
		exceptions.Panicf("DivValue: unknown Value implementation %T", x)
		panic(nil) // Quiet the compiler.
	}
}

// ReduceSumValue is the variant-dispatching sum reduction of x over the given
// axes (all axes when none is given), returning a dense node.
//
// A Sparse value can only be reduced over all of its axes -- the unstored
// zeros contribute nothing to a sum, so that is the sum of its stored values.
// The axes still get validated against the dense rank when DenseShape's
// length is statically known. An Indexed value reduces over its gathered
// rows.
func ReduceSumValue(x Value, axes ...int) *Node {
	switch v := x.(type) {
	case *Dense:
		return ReduceSum(v.X, axes...)
	case *Sparse:
		rank := v.rank()
		if len(axes) > 0 {
			if rank == shapes.DynamicDim {
				exceptions.Panicf("ReduceSumValue(Sparse): explicit axes need a statically known dense rank")
			}
			normalized := adjustAxesToRank(rank, axes, "axes")
			if len(sets.MakeWith(normalized...)) != rank {
				exceptions.Panicf("ReduceSumValue(Sparse, axes=%v): only the full reduction over all %d axes is supported", axes, rank)
			}
		}
		return ReduceAllSum(v.Values)
	case *Indexed:
		return ReduceSum(v.Values, axes...)
	default:
		exceptions.Panicf("ReduceSumValue: unknown Value implementation %T", x)
		panic(nil) // Quiet the compiler.
	}
}
