// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/tensors"
)

// Op represents the output of an operation during computation graph building.
//
// It is opaque from the symtensor perspective: the graph package passes it back
// as input to the other Builder methods.
type Op any

// Builder defines the set of primitive ops a backend must support for building
// a computation. It is created by Backend.Builder.
//
// Every op constructor appends one node to the computation being built and
// returns its handle. Methods return an error for invalid arguments or for ops
// the backend doesn't implement (see NotImplementedError) -- the graph layer
// converts those to panics.
//
// "Dynamic" variants take graph-level values where their static counterparts
// take Go ints: they exist so shape arithmetic can be deferred to execution
// time when shapes aren't statically known.
type Builder interface {
	// Name of the computation being built.
	Name() string

	// Compile the computation built so far into an Executable with the given
	// outputs. It invalidates the Builder.
	Compile(outputs ...Op) (Executable, error)

	// Parameter creates a named input parameter for the computation. During
	// execution the corresponding values are fed in creation order.
	//
	// The shape may contain dynamic dimensions (or have unknown rank): the
	// concrete shape is taken from the value fed at execution time.
	Parameter(name string, shape shapes.Shape) (Op, error)

	// Constant embeds a concrete tensor into the computation.
	Constant(value *tensors.Tensor) (Op, error)

	// Elementwise binary arithmetic. Operands must have the same dtype and be
	// broadcast-compatible (standard trailing-alignment rule).
	Add(lhs, rhs Op) (Op, error)
	Sub(lhs, rhs Op) (Op, error)
	Mul(lhs, rhs Op) (Op, error)
	Div(lhs, rhs Op) (Op, error)
	Max(lhs, rhs Op) (Op, error)
	Min(lhs, rhs Op) (Op, error)

	// Elementwise unary arithmetic.
	Neg(x Op) (Op, error)
	Abs(x Op) (Op, error)
	Exp(x Op) (Op, error)
	Log(x Op) (Op, error)
	Sqrt(x Op) (Op, error)

	// Elementwise comparison, yielding Bool. Same broadcasting as arithmetic.
	Equal(lhs, rhs Op) (Op, error)
	NotEqual(lhs, rhs Op) (Op, error)
	LessThan(lhs, rhs Op) (Op, error)
	LessOrEqual(lhs, rhs Op) (Op, error)
	GreaterThan(lhs, rhs Op) (Op, error)
	GreaterOrEqual(lhs, rhs Op) (Op, error)

	// ConvertDType performs an unchecked elementwise numeric cast.
	ConvertDType(x Op, dtype dtypes.DType) (Op, error)

	// MatMul is the pairwise matrix multiplication of two rank-2 operands:
	// [m, k] x [k, n] -> [m, n]. This is the only linear-algebra primitive;
	// higher-rank contractions are planned on top of it by the graph layer.
	MatMul(lhs, rhs Op) (Op, error)

	// Reshape to the given dimensions; the total size must not change.
	Reshape(x Op, dimensions ...int) (Op, error)

	// DynamicReshape reshapes x to the dimensions given by a 1-D integer
	// operand, evaluated at execution time.
	DynamicReshape(x Op, dimensions Op) (Op, error)

	// Transpose permutes the axes of x. permutation must hold each axis
	// exactly once.
	Transpose(x Op, permutation ...int) (Op, error)

	// DynamicTranspose permutes the axes of x by a 1-D integer operand,
	// evaluated at execution time.
	DynamicTranspose(x Op, permutation Op) (Op, error)

	// Broadcast expands x to the given dimensions, which must be a valid
	// broadcast of x's shape (trailing alignment, size-1 stretching).
	Broadcast(x Op, dimensions ...int) (Op, error)

	// ShapeOf returns the runtime shape of x as a 1-D Int32 value.
	ShapeOf(x Op) (Op, error)

	// Rank returns the runtime rank of x as a scalar Int32.
	Rank(x Op) (Op, error)

	// Reduce applies the given reduction over the selected axes, which are
	// removed from the output. Axes must be unique and in-range.
	Reduce(x Op, reduction ReduceOpType, axes ...int) (Op, error)

	// DynamicReduce applies the given reduction over axes given by a 1-D
	// integer operand, evaluated at execution time.
	DynamicReduce(x Op, reduction ReduceOpType, axes Op) (Op, error)

	// Iota creates a value of the given shape with values increasing along the
	// given axis.
	Iota(shape shapes.Shape, axis int) (Op, error)

	// Range creates a 1-D Int32 sequence [start, start+1, ..., limit-1] from
	// two scalar integer operands, evaluated at execution time.
	Range(start, limit Op) (Op, error)

	// SetDiff1D computes the elements of the 1-D operand lhs that are not
	// present in the 1-D operand rhs, preserving lhs order.
	SetDiff1D(lhs, rhs Op) (Op, error)

	// Gather picks the rows of params at the positions given by the 1-D
	// integer operand indices (a gather along axis 0).
	Gather(params, indices Op) (Op, error)

	// Concatenate the operands along the given axis. All operands must have
	// the same rank and dtype, and equal dimensions outside that axis.
	Concatenate(axis int, operands ...Op) (Op, error)
}

// ReduceOpType selects among the basic reduction types supported by
// Builder.Reduce and Builder.DynamicReduce.
type ReduceOpType int

const (
	// ReduceOpUndefined is an undefined value.
	ReduceOpUndefined ReduceOpType = iota

	// ReduceOpSum reduces by summing all elements being reduced.
	ReduceOpSum

	// ReduceOpProduct reduces by multiplying all elements being reduced.
	ReduceOpProduct

	// ReduceOpMax reduces by taking the maximum value.
	ReduceOpMax

	// ReduceOpMin reduces by taking the minimum value.
	ReduceOpMin
)

// String implements fmt.Stringer.
func (r ReduceOpType) String() string {
	switch r {
	case ReduceOpSum:
		return "Sum"
	case ReduceOpProduct:
		return "Product"
	case ReduceOpMax:
		return "Max"
	case ReduceOpMin:
		return "Min"
	default:
		return "Undefined"
	}
}

// Executable is the result of compiling a computation, ready to run.
type Executable interface {
	// Inputs returns the names and declared shapes of the parameters, in the
	// order they must be fed to Execute.
	Inputs() (names []string, inputShapes []shapes.Shape)

	// Outputs returns the (possibly dynamic) shapes of the outputs.
	Outputs() []shapes.Shape

	// Execute the computation with the given input values, one per parameter,
	// in order. Input shapes must be compatible with the declared parameter
	// shapes.
	Execute(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error)

	// Finalize releases resources associated with the executable.
	Finalize()
}
