// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/symtensor/symtensor/types/dtypes"
)

// ConvertDType converts x to the given dtype, element-wise and unchecked:
// out-of-range values overflow or wrap the way the backend's native
// conversion does. See SaturateCast for a clamping conversion.
//
// If x already has the given dtype, x itself is returned.
func ConvertDType(x *Node, dtype dtypes.DType) *Node {
	g := validateBuildingGraphFromInputs(x)
	if !dtype.IsSupported() {
		panicWrapf(ErrUnsupportedType, "ConvertDType(x=%s, dtype=%s)", x.Shape(), dtype)
	}
	if x.DType() == dtype {
		return x
	}
	outputShape := x.Shape().Clone()
	outputShape.DType = dtype
	return g.newNode("ConvertDType", outputShape, mustOp(g.builder.ConvertDType(x.backendOp, dtype)), x).
		withAttributes("dtype=%s", dtype)
}

// SaturateCast converts x to the given dtype, clamping values that fall
// outside the target's representable range to its boundaries, instead of
// letting them wrap around or overflow.
//
// The clamps happen in the source dtype's domain, before the narrowing
// conversion: first against the target's lowest finite value (only when it is
// above the source's), then against the target's highest finite value (only
// when it is below the source's). Unordered dtypes (complex) cannot be
// clamped and convert directly.
func SaturateCast(x *Node, dtype dtypes.DType) *Node {
	validateBuildingGraphFromInputs(x)
	if !dtype.IsSupported() {
		panicWrapf(ErrUnsupportedType, "SaturateCast(x=%s, dtype=%s)", x.Shape(), dtype)
	}
	if x.DType() == dtype {
		return x
	}
	if x.DType().IsOrdered() && dtype.IsOrdered() {
		if dtype.LowestFinite() > x.DType().LowestFinite() {
			x = MaxScalar(x, dtype.LowestFinite())
		}
		if dtype.HighestFinite() < x.DType().HighestFinite() {
			x = MinScalar(x, dtype.HighestFinite())
		}
	}
	return ConvertDType(x, dtype)
}
