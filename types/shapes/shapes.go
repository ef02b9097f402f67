// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and associated tools.
//
// Shape represents the shape (dtype, rank and dimensions) of either a concrete
// tensor or the expected value of a node in a computation graph. Other than a
// concrete tensor, a graph node may have dimensions that are only known when the
// graph executes: those are marked with DynamicDim. The rank itself may also be
// unknown at graph building time.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension of a multidimensional tensor. Sometimes used
//     interchangeably with Dimension, but here we refer to the dimension index as
//     "axis" (plural axes) and to its size as its dimension.
//   - Dimension: the size of a tensor along one of its axes.
//   - DType: the data type of the unit element of a tensor. See package
//     github.com/symtensor/symtensor/types/dtypes.
//   - Scalar: a shape with no axes (rank 0), holding a single value.
//   - Static vs. dynamic: a dimension (or the rank) is static if known at graph
//     building time, and dynamic if only determinable when the graph executes.
//
// Example: `[][]int32{{0, 1, 2}, {3, 4, 5}}` converted to a tensor has shape
// `(Int32)[2 3]`: rank 2, axis 0 has dimension 2 and axis 1 has dimension 3.
// This shape is created with `shapes.Make(dtypes.Int32, 2, 3)`.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/symtensor/symtensor/types/dtypes"
)

// DynamicDim is the value used in Shape.Dimensions for a dimension whose size is
// only known at execution time.
const DynamicDim = -1

// Shape represents the shape of either a concrete tensor or of the expected
// value of a computation node.
//
// Use Make (or MakeUnknownRank) to create a new shape. See example in the
// package documentation.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// UnknownRank marks a shape whose number of axes is only known at execution
	// time. Dimensions must be empty if it is set.
	UnknownRank bool
}

// Make returns a Shape with the given dtype and dimensions. Individual
// dimensions may be DynamicDim, meaning their size is only known at execution
// time.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 && dim != DynamicDim {
			exceptions.Panicf("shapes.Make(%s): dimensions must be non-negative or DynamicDim, got %v",
				dtype, dimensions)
		}
	}
	return s
}

// MakeUnknownRank returns a Shape of the given dtype whose rank (and hence
// dimensions) is only known at execution time.
func MakeUnknownRank(dtype dtypes.DType) Shape {
	return Shape{DType: dtype, UnknownRank: true}
}

// Scalar returns a scalar Shape for the given Go type.
func Scalar[T dtypes.Supported]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. The zero value Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of axes. It returns DynamicDim if the
// rank itself is unknown -- check with IsRankKnown first.
func (s Shape) Rank() int {
	if s.UnknownRank {
		return DynamicDim
	}
	return len(s.Dimensions)
}

// IsRankKnown returns whether the rank of the shape is known at graph building
// time.
func (s Shape) IsRankKnown() bool { return !s.UnknownRank }

// IsScalar returns whether the shape represents a scalar: rank 0 and the rank is
// known.
func (s Shape) IsScalar() bool { return s.Ok() && !s.UnknownRank && len(s.Dimensions) == 0 }

// IsFullyDefined returns whether the rank and every dimension of the shape are
// known at graph building time.
func (s Shape) IsFullyDefined() bool {
	if s.UnknownRank {
		return false
	}
	return !slices.Contains(s.Dimensions, DynamicDim)
}

// Dim returns the dimension of the given axis. axis can be negative, in which
// case it counts from the end -- so axis=-1 refers to the last axis.
// It panics for an out-of-bound axis or if the rank is unknown.
func (s Shape) Dim(axis int) int {
	if s.UnknownRank {
		exceptions.Panicf("Shape.Dim(%d) called on shape %s with unknown rank", axis, s)
	}
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, pretty-printing the shape.
// Dynamic dimensions print as "?", and a shape of unknown rank prints as "[?...]".
func (s Shape) String() string {
	if s.UnknownRank {
		return fmt.Sprintf("(%s)[?...]", s.DType)
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, 0, s.Rank())
	for _, dim := range s.Dimensions {
		if dim == DynamicDim {
			parts = append(parts, "?")
		} else {
			parts = append(parts, fmt.Sprintf("%d", dim))
		}
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// Size returns the number of elements of DType needed for this shape: the
// product of all dimensions. It returns DynamicDim if any dimension (or the
// rank) is not statically known.
func (s Shape) Size() int {
	if !s.IsFullyDefined() {
		return DynamicDim
	}
	size := 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return size
}

// Memory returns the number of bytes needed to store a tensor of this shape. It
// returns DynamicDim if the shape is not fully defined.
func (s Shape) Memory() int {
	size := s.Size()
	if size == DynamicDim {
		return DynamicDim
	}
	return s.DType.Size() * size
}

// Equal compares two shapes for equality: dtype, rank and dimensions (including
// the positions of dynamic dimensions) must all match.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType || s.UnknownRank != s2.UnknownRank {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// EqualDimensions compares two shapes for equality of rank and dimensions.
// DTypes may differ.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.UnknownRank != s2.UnknownRank {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Compatible returns whether the two shapes could describe the same value at
// execution time: dtypes equal, and every statically known dimension matching.
// Unknown ranks and dynamic dimensions are compatible with anything.
func (s Shape) Compatible(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	if s.UnknownRank || s2.UnknownRank {
		return true
	}
	if s.Rank() != s2.Rank() {
		return false
	}
	for axis, dim := range s.Dimensions {
		dim2 := s2.Dimensions[axis]
		if dim != DynamicDim && dim2 != DynamicDim && dim != dim2 {
			return false
		}
	}
	return true
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions), UnknownRank: s.UnknownRank}
}

// ConcatenateDimensions of two shapes. The resulting rank is the sum of both
// ranks. They must have the same dtype. If either has unknown rank, the result
// has unknown rank.
func ConcatenateDimensions(s1, s2 Shape) Shape {
	if !s1.Ok() || !s2.Ok() || s1.DType != s2.DType {
		return Invalid()
	}
	if s1.UnknownRank || s2.UnknownRank {
		return MakeUnknownRank(s1.DType)
	}
	shape := Shape{DType: s1.DType, Dimensions: make([]int, s1.Rank()+s2.Rank())}
	copy(shape.Dimensions, s1.Dimensions)
	copy(shape.Dimensions[s1.Rank():], s2.Dimensions)
	return shape
}

// Broadcast returns the shape resulting from broadcasting s1 and s2 together,
// per the standard trailing-alignment rule: dimensions align from the right,
// size-1 dimensions stretch, and dynamic dimensions are compatible with
// anything. If either rank is unknown, the result has unknown rank.
//
// It returns an error if statically known dimensions are incompatible.
func Broadcast(s1, s2 Shape) (Shape, error) {
	if s1.DType != s2.DType {
		return Invalid(), errors.Errorf("cannot broadcast shapes %s and %s with different dtypes", s1, s2)
	}
	if s1.UnknownRank || s2.UnknownRank {
		return MakeUnknownRank(s1.DType), nil
	}
	rank := max(s1.Rank(), s2.Rank())
	dims := make([]int, rank)
	for ii := range rank {
		axis1 := s1.Rank() - rank + ii
		axis2 := s2.Rank() - rank + ii
		dim1, dim2 := 1, 1
		if axis1 >= 0 {
			dim1 = s1.Dimensions[axis1]
		}
		if axis2 >= 0 {
			dim2 = s2.Dimensions[axis2]
		}
		switch {
		case dim1 == dim2:
			dims[ii] = dim1
		case dim1 == 1:
			dims[ii] = dim2
		case dim2 == 1:
			dims[ii] = dim1
		case dim1 == DynamicDim:
			// Unknown side either matches dim2 or is 1 (and stretches to dim2):
			// either way the result dimension is dim2.
			dims[ii] = dim2
		case dim2 == DynamicDim:
			dims[ii] = dim1
		default:
			return Invalid(), errors.Errorf("shapes %s and %s are not broadcast-compatible on axis %d",
				s1, s2, ii)
		}
	}
	return Shape{DType: s1.DType, Dimensions: dims}, nil
}

// HasShape is an interface for objects that have an associated Shape, like
// concrete tensors or computation graph nodes.
type HasShape interface {
	Shape() Shape
}
