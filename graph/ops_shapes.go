// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/xslices"
)

// Reshape x to the given dimensions. The total size must not change. One of
// the dimensions may be -1, in which case it is inferred from the size of x.
//
// If x's shape is not fully defined the inferred dimension stays dynamic and
// the size check is deferred to execution time.
func Reshape(x *Node, dimensions ...int) *Node {
	g := validateBuildingGraphFromInputs(x)
	newDims := slices.Clone(dimensions)
	inferIdx := -1
	knownSize := 1
	for ii, dim := range newDims {
		if dim == -1 {
			if inferIdx != -1 {
				exceptions.Panicf("Reshape(x=%s, dimensions=%v): only one dimension can be -1", x.Shape(), dimensions)
			}
			inferIdx = ii
			continue
		}
		if dim <= 0 {
			exceptions.Panicf("Reshape(x=%s, dimensions=%v): invalid dimension %d", x.Shape(), dimensions, dim)
		}
		knownSize *= dim
	}
	xSize := x.Shape().Size()
	if inferIdx != -1 {
		if xSize == shapes.DynamicDim {
			newDims[inferIdx] = shapes.DynamicDim
		} else {
			if knownSize == 0 || xSize%knownSize != 0 {
				panicWrapf(ErrShapeMismatch, "Reshape(x=%s, dimensions=%v): cannot infer dimension", x.Shape(), dimensions)
			}
			newDims[inferIdx] = xSize / knownSize
		}
	} else if xSize != shapes.DynamicDim && xSize != knownSize {
		panicWrapf(ErrShapeMismatch, "Reshape(x=%s, dimensions=%v): sizes don't match", x.Shape(), dimensions)
	}
	outputShape := shapes.Shape{DType: x.DType(), Dimensions: newDims}
	return g.newNode("Reshape", outputShape, mustOp(g.builder.Reshape(x.backendOp, dimensions...)), x).
		withAttributes("dimensions=%v", dimensions)
}

// DynamicReshape reshapes x to the dimensions held by a 1-D integer node,
// evaluated at execution time.
//
// If the length of dimensions is statically known, the output rank is known
// (with every dimension dynamic); otherwise the output has unknown rank.
func DynamicReshape(x, dimensions *Node) *Node {
	g := validateBuildingGraphFromInputs(x, dimensions)
	assertIntVector("DynamicReshape", "dimensions", dimensions)
	outputShape := shapes.MakeUnknownRank(x.DType())
	if numDims := dimensions.Shape().Dim(0); numDims != shapes.DynamicDim {
		outputShape = shapes.Make(x.DType(), xslices.SliceWithValue(numDims, shapes.DynamicDim)...)
	}
	return g.newNode("DynamicReshape", outputShape,
		mustOp(g.builder.DynamicReshape(x.backendOp, dimensions.backendOp)), x, dimensions)
}

// Transpose returns x with its axes permuted: output axis ii takes x's axis
// permutation[ii]. permutation must hold each axis of x exactly once.
func Transpose(x *Node, permutation ...int) *Node {
	g := validateBuildingGraphFromInputs(x)
	rank := x.Rank()
	if rank == shapes.DynamicDim {
		exceptions.Panicf("Transpose(x=%s) requires a known rank, use DynamicTranspose instead", x.Shape())
	}
	if len(permutation) != rank {
		exceptions.Panicf("Transpose(x=%s, permutation=%v): permutation must have one entry per axis", x.Shape(), permutation)
	}
	axes := adjustAxesToRank(rank, permutation, "permutation")
	seen := make([]bool, rank)
	for _, axis := range axes {
		if seen[axis] {
			exceptions.Panicf("Transpose(x=%s, permutation=%v): axis %d appears more than once", x.Shape(), permutation, axis)
		}
		seen[axis] = true
	}
	newDims := make([]int, rank)
	for ii, axis := range axes {
		newDims[ii] = x.Shape().Dimensions[axis]
	}
	outputShape := shapes.Shape{DType: x.DType(), Dimensions: newDims}
	return g.newNode("Transpose", outputShape, mustOp(g.builder.Transpose(x.backendOp, axes...)), x).
		withAttributes("permutation=%v", axes)
}

// DynamicTranspose permutes the axes of x by a 1-D integer node, evaluated at
// execution time. The output rank matches x's (dimensions become dynamic);
// if x's rank is unknown so is the output's.
func DynamicTranspose(x, permutation *Node) *Node {
	g := validateBuildingGraphFromInputs(x, permutation)
	assertIntVector("DynamicTranspose", "permutation", permutation)
	outputShape := shapes.MakeUnknownRank(x.DType())
	if rank := x.Rank(); rank != shapes.DynamicDim {
		outputShape = shapes.Make(x.DType(), xslices.SliceWithValue(rank, shapes.DynamicDim)...)
	}
	return g.newNode("DynamicTranspose", outputShape,
		mustOp(g.builder.DynamicTranspose(x.backendOp, permutation.backendOp)), x, permutation)
}

// MatMul is the matrix multiplication of two rank-2 nodes:
// [m, k] x [k, n] -> [m, n]. Higher-rank contractions are built on top of it
// by TensorDot.
func MatMul(lhs, rhs *Node) *Node {
	g := validateBuildingGraphFromInputs(lhs, rhs)
	if lhs.DType() != rhs.DType() {
		panicWrapf(ErrTypeMismatch, "MatMul(lhs=%s, rhs=%s)", lhs.Shape(), rhs.Shape())
	}
	if (lhs.Shape().IsRankKnown() && lhs.Rank() != 2) || (rhs.Shape().IsRankKnown() && rhs.Rank() != 2) {
		panicWrapf(ErrShapeMismatch, "MatMul(lhs=%s, rhs=%s): operands must be rank-2", lhs.Shape(), rhs.Shape())
	}
	m, k0, k1, n := shapes.DynamicDim, shapes.DynamicDim, shapes.DynamicDim, shapes.DynamicDim
	if lhs.Shape().IsRankKnown() {
		m, k0 = lhs.Shape().Dim(0), lhs.Shape().Dim(1)
	}
	if rhs.Shape().IsRankKnown() {
		k1, n = rhs.Shape().Dim(0), rhs.Shape().Dim(1)
	}
	if k0 != shapes.DynamicDim && k1 != shapes.DynamicDim && k0 != k1 {
		panicWrapf(ErrShapeMismatch, "MatMul(lhs=%s, rhs=%s): contracting dimensions don't match", lhs.Shape(), rhs.Shape())
	}
	outputShape := shapes.Make(lhs.DType(), m, n)
	return g.newNode("MatMul", outputShape, mustOp(g.builder.MatMul(lhs.backendOp, rhs.backendOp)), lhs, rhs)
}

// Concatenate joins the operands along the given axis (negative counts from
// the end). All operands must have the same dtype and rank, and equal
// dimensions outside the concatenation axis.
func Concatenate(operands []*Node, axis int) *Node {
	g := validateBuildingGraphFromInputs(operands...)
	first := operands[0]
	rank := first.Rank()
	if rank == shapes.DynamicDim {
		exceptions.Panicf("Concatenate(operands[0]=%s): operands must have a known rank", first.Shape())
	}
	if rank == 0 {
		exceptions.Panicf("Concatenate: cannot concatenate scalars, use Stack instead")
	}
	adjusted := adjustAxisToRank(rank, axis, "axis")
	newDims := slices.Clone(first.Shape().Dimensions)
	for ii, operand := range operands[1:] {
		if operand.DType() != first.DType() {
			panicWrapf(ErrTypeMismatch, "Concatenate(operands[0]=%s, operands[%d]=%s)", first.Shape(), ii+1, operand.Shape())
		}
		if operand.Rank() != rank {
			panicWrapf(ErrShapeMismatch, "Concatenate(operands[0]=%s, operands[%d]=%s): ranks differ", first.Shape(), ii+1, operand.Shape())
		}
		for dim := 0; dim < rank; dim++ {
			a, b := newDims[dim], operand.Shape().Dimensions[dim]
			if dim == adjusted {
				if a == shapes.DynamicDim || b == shapes.DynamicDim {
					newDims[dim] = shapes.DynamicDim
				} else {
					newDims[dim] = a + b
				}
				continue
			}
			if a != shapes.DynamicDim && b != shapes.DynamicDim && a != b {
				panicWrapf(ErrShapeMismatch, "Concatenate(operands[0]=%s, operands[%d]=%s): dimensions outside axis %d differ",
					first.Shape(), ii+1, operand.Shape(), adjusted)
			}
			if a == shapes.DynamicDim {
				newDims[dim] = b
			}
		}
	}
	backendOps := make([]backends.Op, len(operands))
	for ii, operand := range operands {
		backendOps[ii] = operand.backendOp
	}
	outputShape := shapes.Shape{DType: first.DType(), Dimensions: newDims}
	return g.newNode("Concatenate", outputShape,
		mustOp(g.builder.Concatenate(adjusted, backendOps...)), operands...).
		withAttributes("axis=%d", adjusted)
}

// Stack joins scalar nodes into a 1-D node of length len(operands). It is
// used to assemble runtime shape vectors from scalar shape components.
func Stack(operands ...*Node) *Node {
	validateBuildingGraphFromInputs(operands...)
	asVectors := make([]*Node, len(operands))
	for ii, operand := range operands {
		if operand.Shape().IsRankKnown() && !operand.IsScalar() {
			exceptions.Panicf("Stack(operands[%d]=%s): operands must be scalars", ii, operand.Shape())
		}
		asVectors[ii] = Reshape(operand, 1)
	}
	return Concatenate(asVectors, 0)
}

// Gather picks the rows of params at the positions given by the 1-D integer
// node indices -- a gather along axis 0.
func Gather(params, indices *Node) *Node {
	g := validateBuildingGraphFromInputs(params, indices)
	assertIntVector("Gather", "indices", indices)
	if params.Shape().IsRankKnown() && params.Rank() == 0 {
		exceptions.Panicf("Gather(params=%s): params cannot be a scalar", params.Shape())
	}
	outputShape := shapes.MakeUnknownRank(params.DType())
	if params.Shape().IsRankKnown() {
		newDims := slices.Clone(params.Shape().Dimensions)
		newDims[0] = indices.Shape().Dim(0)
		outputShape = shapes.Shape{DType: params.DType(), Dimensions: newDims}
	}
	return g.newNode("Gather", outputShape,
		mustOp(g.builder.Gather(params.backendOp, indices.backendOp)), params, indices)
}

// SetDiff1D returns the elements of the 1-D node lhs that are not present in
// the 1-D node rhs, preserving lhs order. The output length is only known at
// execution time.
func SetDiff1D(lhs, rhs *Node) *Node {
	g := validateBuildingGraphFromInputs(lhs, rhs)
	assertIntVector("SetDiff1D", "lhs", lhs)
	assertIntVector("SetDiff1D", "rhs", rhs)
	if lhs.DType() != rhs.DType() {
		panicWrapf(ErrTypeMismatch, "SetDiff1D(lhs=%s, rhs=%s)", lhs.Shape(), rhs.Shape())
	}
	outputShape := shapes.Make(lhs.DType(), shapes.DynamicDim)
	return g.newNode("SetDiff1D", outputShape,
		mustOp(g.builder.SetDiff1D(lhs.backendOp, rhs.backendOp)), lhs, rhs)
}

// ShapeOf returns the runtime shape of x as a 1-D Int32 node. If x's rank is
// known, so is the output length.
func ShapeOf(x *Node) *Node {
	g := validateBuildingGraphFromInputs(x)
	dim := shapes.DynamicDim
	if x.Shape().IsRankKnown() {
		dim = x.Rank()
	}
	outputShape := shapes.Make(dtypes.Int32, dim)
	return g.newNode("ShapeOf", outputShape, mustOp(g.builder.ShapeOf(x.backendOp)), x)
}

// RankOf returns the runtime rank of x as a scalar Int32 node.
func RankOf(x *Node) *Node {
	g := validateBuildingGraphFromInputs(x)
	return g.newNode("Rank", shapes.Make(dtypes.Int32), mustOp(g.builder.Rank(x.backendOp)), x)
}

// Range creates a 1-D Int32 node holding [start, start+1, ..., limit-1] from
// two scalar integer nodes, evaluated at execution time.
func Range(start, limit *Node) *Node {
	g := validateBuildingGraphFromInputs(start, limit)
	for _, operand := range []*Node{start, limit} {
		if !operand.DType().IsInt() {
			panicWrapf(ErrUnsupportedType, "Range(start=%s, limit=%s): operands must be integer scalars",
				start.Shape(), limit.Shape())
		}
		if operand.Shape().IsRankKnown() && !operand.IsScalar() {
			panicWrapf(ErrShapeMismatch, "Range(start=%s, limit=%s): operands must be integer scalars",
				start.Shape(), limit.Shape())
		}
	}
	outputShape := shapes.Make(dtypes.Int32, shapes.DynamicDim)
	return g.newNode("Range", outputShape, mustOp(g.builder.Range(start.backendOp, limit.backendOp)), start, limit)
}

// assertIntVector panics unless node is (statically known to be) a 1-D
// integer value.
func assertIntVector(opName, paramName string, node *Node) {
	if !node.DType().IsInt() {
		panicWrapf(ErrUnsupportedType, "%s(%s=%s): must be a 1-D integer value", opName, paramName, node.Shape())
	}
	if node.Shape().IsRankKnown() && node.Rank() != 1 {
		panicWrapf(ErrShapeMismatch, "%s(%s=%s): must be a 1-D integer value", opName, paramName, node.Shape())
	}
}
