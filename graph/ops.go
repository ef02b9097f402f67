// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/tensors"
	"github.com/x448/float16"
)

// validateBuildingGraphFromInputs checks that all inputs are non-nil, belong to
// the same graph, and that the graph is still building. It returns the graph.
func validateBuildingGraphFromInputs(inputs ...*Node) *Graph {
	if len(inputs) == 0 {
		exceptions.Panicf("no input nodes provided")
	}
	var g *Graph
	for ii, node := range inputs {
		node.AssertValid()
		if g == nil {
			g = node.graph
		} else if node.graph != g {
			exceptions.Panicf("input node #%d belongs to a different graph (%q) than the other inputs (%q)",
				ii, node.graph.name, g.name)
		}
	}
	g.AssertBuilding()
	return g
}

// mustOp panics, preserving the backend error, if the op constructor failed.
func mustOp(op backends.Op, err error) backends.Op {
	if err != nil {
		panic(errors.WithStack(err))
	}
	return op
}

// adjustAxisToRank normalizes a possibly negative axis (-1 means the last
// axis) for the given rank. It panics if the axis is out-of-range.
func adjustAxisToRank(rank, axis int, paramName string) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		exceptions.Panicf("%s=%d is out-of-range for rank %d", paramName, axis, rank)
	}
	return adjusted
}

// adjustAxesToRank normalizes possibly negative axes for the given rank,
// returning an adjusted copy. It panics if any axis is out-of-range.
func adjustAxesToRank(rank int, axesWithNegatives []int, paramName string) []int {
	axes := slices.Clone(axesWithNegatives)
	for ii := range axes {
		axes[ii] = adjustAxisToRank(rank, axes[ii], fmt.Sprintf("%s[%d]", paramName, ii))
	}
	return axes
}

// Parameter registers an input parameter for the computation Graph. During
// Graph.Run the corresponding values are fed in creation order.
//
// The shape may contain dynamic dimensions (shapes.DynamicDim) or have unknown
// rank, in which case the concrete shape is taken from the value fed at
// execution time -- and ops consuming the parameter defer their shape
// arithmetic accordingly.
func Parameter(g *Graph, name string, shape shapes.Shape) *Node {
	g.AssertBuilding()
	if !shape.Ok() {
		exceptions.Panicf("invalid shape for parameter %q", name)
	}
	handle := ParameterHandle(len(g.parameters))
	if name == "" {
		name = fmt.Sprintf("parameter_#%d", handle)
	}
	if _, found := g.parameterNameToHandle[name]; found {
		exceptions.Panicf("parameter named %q already exists in graph %q", name, g.name)
	}
	node := g.newNode("Parameter", shape.Clone(), mustOp(g.builder.Parameter(name, shape))).
		withAttributes("name=%q", name)
	node.parameterName = name
	node.parameterHandle = handle
	g.parameters = append(g.parameters, node)
	g.parameterNameToHandle[name] = handle
	return node
}

// ConstTensor embeds a concrete tensor as a constant node in the graph.
//
// The tensor must not be mutated while the graph is alive.
func ConstTensor(g *Graph, t *tensors.Tensor) *Node {
	g.AssertBuilding()
	node := g.newNode("Constant", t.Shape(), mustOp(g.builder.Constant(t)))
	node.constValue = t
	return node
}

// Const creates a constant node from a Go value: a scalar, a (nested) slice,
// or a *tensors.Tensor. The dtype is inferred from the value.
func Const(g *Graph, value any) *Node {
	return ConstTensor(g, tensors.FromAnyValue(value))
}

// Scalar returns a constant scalar node with the given value converted to
// dtype. Scalars are cached per graph: repeated values reuse the same node.
func Scalar(g *Graph, dtype dtypes.DType, value float64) *Node {
	g.AssertBuilding()
	key := scalarKey{dtype: dtype, value: value}
	if node, found := g.scalars[key]; found {
		return node
	}
	node := ConstTensor(g, scalarTensorOf(dtype, value))
	g.scalars[key] = node
	return node
}

// ScalarZero returns a cached scalar constant 0 for the given dtype.
func ScalarZero(g *Graph, dtype dtypes.DType) *Node { return Scalar(g, dtype, 0) }

// ScalarOne returns a cached scalar constant 1 for the given dtype.
func ScalarOne(g *Graph, dtype dtypes.DType) *Node { return Scalar(g, dtype, 1) }

// scalarTensorOf converts a float64 to a scalar concrete tensor of the given
// dtype.
func scalarTensorOf(dtype dtypes.DType, value float64) *tensors.Tensor {
	switch dtype {
	case dtypes.Bool:
		return tensors.FromScalar(value != 0)
	case dtypes.Int8:
		return tensors.FromScalar(int8(value))
	case dtypes.Int16:
		return tensors.FromScalar(int16(value))
	case dtypes.Int32:
		return tensors.FromScalar(int32(value))
	case dtypes.Int64:
		return tensors.FromScalar(int64(value))
	case dtypes.Uint8:
		return tensors.FromScalar(uint8(value))
	case dtypes.Uint16:
		return tensors.FromScalar(uint16(value))
	case dtypes.Uint32:
		return tensors.FromScalar(uint32(value))
	case dtypes.Uint64:
		return tensors.FromScalar(uint64(value))
	case dtypes.Float16:
		return tensors.FromScalar(float16.Fromfloat32(float32(value)))
	case dtypes.BFloat16:
		return tensors.FromScalar(bfloat16.FromFloat64(value))
	case dtypes.Float32:
		return tensors.FromScalar(float32(value))
	case dtypes.Float64:
		return tensors.FromScalar(value)
	case dtypes.Complex64:
		return tensors.FromScalar(complex(float32(value), 0))
	case dtypes.Complex128:
		return tensors.FromScalar(complex(value, 0))
	default:
		exceptions.Panicf("cannot create scalar constant of dtype %s", dtype)
		panic(nil) // Quiet the compiler.
	}
}

// binaryOpFn is the signature of the backend elementwise binary constructors.
type binaryOpFn func(lhs, rhs backends.Op) (backends.Op, error)

// binaryOp implements the common plumbing of elementwise binary ops: same
// dtype, broadcast-compatible shapes.
func binaryOp(opName string, lhs, rhs *Node, fn binaryOpFn) *Node {
	g := validateBuildingGraphFromInputs(lhs, rhs)
	if lhs.DType() != rhs.DType() {
		panicWrapf(ErrTypeMismatch, "%s(lhs=%s, rhs=%s)", opName, lhs.Shape(), rhs.Shape())
	}
	outputShape, err := shapes.Broadcast(lhs.Shape(), rhs.Shape())
	if err != nil {
		panicWrapf(ErrShapeMismatch, "%s(lhs=%s, rhs=%s): %v", opName, lhs.Shape(), rhs.Shape(), err)
	}
	return g.newNode(opName, outputShape, mustOp(fn(lhs.backendOp, rhs.backendOp)), lhs, rhs)
}

// compareOp is like binaryOp but the output dtype is Bool. The operand dtype
// must be ordered for the inequality comparisons.
func compareOp(opName string, lhs, rhs *Node, ordered bool, fn binaryOpFn) *Node {
	g := validateBuildingGraphFromInputs(lhs, rhs)
	if lhs.DType() != rhs.DType() {
		panicWrapf(ErrTypeMismatch, "%s(lhs=%s, rhs=%s)", opName, lhs.Shape(), rhs.Shape())
	}
	if ordered && !lhs.DType().IsOrdered() {
		panicWrapf(ErrUnsupportedType, "%s is not defined for dtype %s", opName, lhs.DType())
	}
	outputShape, err := shapes.Broadcast(lhs.Shape(), rhs.Shape())
	if err != nil {
		panicWrapf(ErrShapeMismatch, "%s(lhs=%s, rhs=%s): %v", opName, lhs.Shape(), rhs.Shape(), err)
	}
	outputShape.DType = dtypes.Bool
	return g.newNode(opName, outputShape, mustOp(fn(lhs.backendOp, rhs.backendOp)), lhs, rhs)
}

// unaryOp implements the common plumbing of elementwise unary ops.
func unaryOp(opName string, x *Node, fn func(backends.Op) (backends.Op, error)) *Node {
	g := validateBuildingGraphFromInputs(x)
	return g.newNode(opName, x.Shape().Clone(), mustOp(fn(x.backendOp)), x)
}

// Add returns the element-wise sum of x and y, with broadcasting.
func Add(x, y *Node) *Node { return binaryOp("Add", x, y, x.graph.builder.Add) }

// Sub returns the element-wise subtraction of y from x, with broadcasting.
func Sub(x, y *Node) *Node { return binaryOp("Sub", x, y, x.graph.builder.Sub) }

// Mul returns the element-wise product of x and y, with broadcasting.
func Mul(x, y *Node) *Node { return binaryOp("Mul", x, y, x.graph.builder.Mul) }

// Max returns the element-wise maximum of x and y, with broadcasting.
func Max(x, y *Node) *Node {
	if !x.DType().IsOrdered() {
		panicWrapf(ErrUnsupportedType, "Max is not defined for dtype %s", x.DType())
	}
	return binaryOp("Max", x, y, x.graph.builder.Max)
}

// Min returns the element-wise minimum of x and y, with broadcasting.
func Min(x, y *Node) *Node {
	if !x.DType().IsOrdered() {
		panicWrapf(ErrUnsupportedType, "Min is not defined for dtype %s", x.DType())
	}
	return binaryOp("Min", x, y, x.graph.builder.Min)
}

// Neg returns the element-wise negation of x.
func Neg(x *Node) *Node { return unaryOp("Neg", x, x.graph.builder.Neg) }

// Abs returns the element-wise absolute value of x.
func Abs(x *Node) *Node { return unaryOp("Abs", x, x.graph.builder.Abs) }

// Exp returns the element-wise exponential of x.
func Exp(x *Node) *Node { return unaryOp("Exp", x, x.graph.builder.Exp) }

// Log returns the element-wise natural logarithm of x.
func Log(x *Node) *Node { return unaryOp("Log", x, x.graph.builder.Log) }

// Sqrt returns the element-wise square root of x.
func Sqrt(x *Node) *Node { return unaryOp("Sqrt", x, x.graph.builder.Sqrt) }

// Equal performs element-wise equality check, returning Bool, with
// broadcasting.
func Equal(x, y *Node) *Node { return compareOp("Equal", x, y, false, x.graph.builder.Equal) }

// NotEqual performs element-wise inequality check, returning Bool, with
// broadcasting.
func NotEqual(x, y *Node) *Node { return compareOp("NotEqual", x, y, false, x.graph.builder.NotEqual) }

// LessThan performs element-wise comparison, returning Bool, with
// broadcasting.
func LessThan(x, y *Node) *Node { return compareOp("LessThan", x, y, true, x.graph.builder.LessThan) }

// LessOrEqual performs element-wise comparison, returning Bool, with
// broadcasting.
func LessOrEqual(x, y *Node) *Node {
	return compareOp("LessOrEqual", x, y, true, x.graph.builder.LessOrEqual)
}

// GreaterThan performs element-wise comparison, returning Bool, with
// broadcasting.
func GreaterThan(x, y *Node) *Node {
	return compareOp("GreaterThan", x, y, true, x.graph.builder.GreaterThan)
}

// GreaterOrEqual performs element-wise comparison, returning Bool, with
// broadcasting.
func GreaterOrEqual(x, y *Node) *Node {
	return compareOp("GreaterOrEqual", x, y, true, x.graph.builder.GreaterOrEqual)
}

// AddScalar converts scalar to a constant with x's dtype and returns
// `x + scalar` with broadcasting.
func AddScalar(x *Node, scalar float64) *Node {
	return Add(x, Scalar(x.Graph(), x.DType(), scalar))
}

// SubScalar converts scalar to a constant with x's dtype and returns
// `x - scalar` with broadcasting.
func SubScalar(x *Node, scalar float64) *Node {
	return Sub(x, Scalar(x.Graph(), x.DType(), scalar))
}

// MulScalar converts scalar to a constant with x's dtype and returns
// `x * scalar` with broadcasting.
func MulScalar(x *Node, scalar float64) *Node {
	return Mul(x, Scalar(x.Graph(), x.DType(), scalar))
}

// MaxScalar converts scalar to a constant with x's dtype and returns the
// element-wise `Max(x, scalar)`.
func MaxScalar(x *Node, scalar float64) *Node {
	return Max(x, Scalar(x.Graph(), x.DType(), scalar))
}

// MinScalar converts scalar to a constant with x's dtype and returns the
// element-wise `Min(x, scalar)`.
func MinScalar(x *Node, scalar float64) *Node {
	return Min(x, Scalar(x.Graph(), x.DType(), scalar))
}

// Square returns x^2 point-wise. Same as `Mul(x, x)`.
func Square(x *Node) *Node { return Mul(x, x) }

// Fill creates a node with the given dimensions, filled with value converted
// to dtype.
func Fill(g *Graph, dtype dtypes.DType, value float64, dimensions ...int) *Node {
	return BroadcastToDims(Scalar(g, dtype, value), dimensions...)
}

// Ones creates a node of the given shape filled with 1s. The shape must be
// fully defined.
func Ones(g *Graph, shape shapes.Shape) *Node {
	return Fill(g, shape.DType, 1, shape.Dimensions...)
}

// Zeros creates a node of the given shape filled with 0s. The shape must be
// fully defined.
func Zeros(g *Graph, shape shapes.Shape) *Node {
	return Fill(g, shape.DType, 0, shape.Dimensions...)
}

// OnesLike returns a node with the same shape as x, filled with 1s. x must
// have a fully defined shape.
func OnesLike(x *Node) *Node {
	g := validateBuildingGraphFromInputs(x)
	return Ones(g, x.Shape())
}

// ZerosLike returns a node with the same shape as x, filled with 0s. x must
// have a fully defined shape.
func ZerosLike(x *Node) *Node {
	g := validateBuildingGraphFromInputs(x)
	return Zeros(g, x.Shape())
}

// BroadcastToDims broadcasts x to the given dimensions, which must be a valid
// broadcast target of x's shape (trailing alignment, size-1 stretching).
func BroadcastToDims(x *Node, dimensions ...int) *Node {
	g := validateBuildingGraphFromInputs(x)
	target := shapes.Make(x.DType(), dimensions...)
	if x.Shape().IsRankKnown() {
		if _, err := shapes.Broadcast(x.Shape(), target); err != nil {
			panicWrapf(ErrShapeMismatch, "BroadcastToDims(x=%s, dimensions=%v)", x.Shape(), dimensions)
		}
	}
	return g.newNode("Broadcast", target, mustOp(g.builder.Broadcast(x.backendOp, dimensions...)), x).
		withAttributes("dimensions=%v", dimensions)
}

// Iota creates a node of the given shape with values increasing along the
// given axis (negative values count from the end). The shape must be fully
// defined.
func Iota(g *Graph, shape shapes.Shape, iotaAxis int) *Node {
	g.AssertBuilding()
	if !shape.IsFullyDefined() {
		exceptions.Panicf("Iota(shape=%s) requires a fully defined shape", shape)
	}
	axis := adjustAxisToRank(shape.Rank(), iotaAxis, "iotaAxis")
	return g.newNode("Iota", shape.Clone(), mustOp(g.builder.Iota(shape, axis))).
		withAttributes("shape=%s, axis=%d", shape, axis)
}
