// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/symtensor/symtensor/types/dtypes"
)

// truedivPromotion maps each dtype to the dtype both operands must be
// converted to before a true division. Narrow integers go to Float32, wide
// integers to Float64, and floating/complex kinds stay unchanged. DTypes with
// no entry (Bool) don't support true division.
var truedivPromotion = map[dtypes.DType]dtypes.DType{
	dtypes.Uint8:  dtypes.Float32,
	dtypes.Int8:   dtypes.Float32,
	dtypes.Uint16: dtypes.Float32,
	dtypes.Int16:  dtypes.Float32,
	dtypes.Int32:  dtypes.Float64,
	dtypes.Int64:  dtypes.Float64,
	dtypes.Uint32: dtypes.Float64,
	dtypes.Uint64: dtypes.Float64,

	dtypes.Float16:    dtypes.Float16,
	dtypes.BFloat16:   dtypes.BFloat16,
	dtypes.Float32:    dtypes.Float32,
	dtypes.Float64:    dtypes.Float64,
	dtypes.Complex64:  dtypes.Complex64,
	dtypes.Complex128: dtypes.Complex128,
}

// Div returns the element-wise true division of x by y, with broadcasting.
//
// True division always yields a floating (or complex) result: integer operands
// are first promoted, narrow (8/16-bit) integers to Float32 and wide
// (32/64-bit) integers to Float64. Floating and complex operands divide in
// their own dtype.
//
// It panics wrapping ErrTypeMismatch if the operand dtypes differ, and
// ErrUnsupportedType if the dtype has no true-division behavior (Bool).
func Div(x, y *Node) *Node {
	validateBuildingGraphFromInputs(x, y)
	if x.DType() != y.DType() {
		panicWrapf(ErrTypeMismatch, "Div(x=%s, y=%s)", x.Shape(), y.Shape())
	}
	promoted, found := truedivPromotion[x.DType()]
	if !found {
		panicWrapf(ErrUnsupportedType, "Div is not defined for dtype %s", x.DType())
	}
	if promoted != x.DType() {
		x = ConvertDType(x, promoted)
		y = ConvertDType(y, promoted)
	}
	return binaryOp("Div", x, y, x.graph.builder.Div)
}

// DivScalar converts scalar to a constant with x's dtype and returns the
// true division `x / scalar`, with the same promotion rules as Div.
func DivScalar(x *Node, scalar float64) *Node {
	return Div(x, Scalar(x.Graph(), x.DType(), scalar))
}

// FloorDiv returns the element-wise integer division of x by y, with
// broadcasting and no dtype promotion. The quotient is truncated toward zero.
//
// It panics wrapping ErrUnsupportedType for non-integer operands; use Div for
// floating point.
func FloorDiv(x, y *Node) *Node {
	validateBuildingGraphFromInputs(x, y)
	if !x.DType().IsInt() {
		panicWrapf(ErrUnsupportedType, "FloorDiv is not defined for dtype %s", x.DType())
	}
	return binaryOp("FloorDiv", x, y, x.graph.builder.Div)
}
