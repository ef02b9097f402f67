// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package interp

// The interpreter kernels. Elementwise and reduction kernels are generic over
// the Go element type, with a dtype switch dispatching into the right
// instantiation; pure data-movement kernels (transpose, gather, concatenate,
// broadcast) move opaque elements with reflection instead, so they work for
// any dtype without one instantiation per type.

import (
	"math"
	"math/cmplx"
	"reflect"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/tensors"
)

// The kernel constraints are tilde-free unions of the dtypes' exact Go types:
// a type parameter constrained by them can instantiate the dtypes.Supported
// and dtypes.Number generics.

type realNumber interface {
	dtypes.NumberNotComplex
}

type complexNumber interface {
	complex64 | complex128
}

type intNumber interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// broadcastOutDims returns the dimensions of broadcasting two concrete shapes
// together, aligning from the right and stretching size-1 dimensions.
func broadcastOutDims(lhs, rhs []int) ([]int, error) {
	rank := max(len(lhs), len(rhs))
	dims := make([]int, rank)
	for ii := range rank {
		dimL, dimR := 1, 1
		if axis := len(lhs) - rank + ii; axis >= 0 {
			dimL = lhs[axis]
		}
		if axis := len(rhs) - rank + ii; axis >= 0 {
			dimR = rhs[axis]
		}
		switch {
		case dimL == dimR:
			dims[ii] = dimL
		case dimL == 1:
			dims[ii] = dimR
		case dimR == 1:
			dims[ii] = dimL
		default:
			return nil, errors.Errorf("interp: dimensions %v and %v are not broadcast-compatible", lhs, rhs)
		}
	}
	return dims, nil
}

// rowMajorStrides of the given dimensions.
func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	stride := 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dims[axis]
	}
	return strides
}

// broadcastStrides returns, per output axis, the flat stride into an operand
// with the given dimensions: 0 for axes the operand is stretched (or missing)
// on.
func broadcastStrides(dims, outDims []int) []int {
	strides := rowMajorStrides(dims)
	result := make([]int, len(outDims))
	for ii := range outDims {
		axis := len(dims) - len(outDims) + ii
		if axis < 0 || dims[axis] == 1 {
			continue
		}
		result[ii] = strides[axis]
	}
	return result
}

// incrementCoords advances a multi-dimensional odometer, returning false when
// it wraps around.
func incrementCoords(coords, dims []int) bool {
	for axis := len(dims) - 1; axis >= 0; axis-- {
		coords[axis]++
		if coords[axis] < dims[axis] {
			return true
		}
		coords[axis] = 0
	}
	return false
}

func dot(coords, strides []int) int {
	idx := 0
	for ii, coord := range coords {
		idx += coord * strides[ii]
	}
	return idx
}

// binaryElems evaluates fn elementwise with broadcasting.
func binaryElems[T dtypes.Supported](lhs, rhs *tensors.Tensor, outDims []int, fn func(a, b T) T) *tensors.Tensor {
	out := tensors.FromShape(shapes.Make(dtypes.FromGenericsType[T](), outDims...))
	outFlat := tensors.FlatData[T](out)
	lhsFlat, rhsFlat := tensors.FlatData[T](lhs), tensors.FlatData[T](rhs)
	lhsStrides := broadcastStrides(lhs.Shape().Dimensions, outDims)
	rhsStrides := broadcastStrides(rhs.Shape().Dimensions, outDims)
	coords := make([]int, len(outDims))
	for ii := range outFlat {
		outFlat[ii] = fn(lhsFlat[dot(coords, lhsStrides)], rhsFlat[dot(coords, rhsStrides)])
		incrementCoords(coords, outDims)
	}
	return out
}

func binaryReal[T realNumber](op opType, lhs, rhs *tensors.Tensor, outDims []int) (*tensors.Tensor, error) {
	var fn func(a, b T) T
	switch op {
	case opAdd:
		fn = func(a, b T) T { return a + b }
	case opSub:
		fn = func(a, b T) T { return a - b }
	case opMul:
		fn = func(a, b T) T { return a * b }
	case opDiv:
		fn = func(a, b T) T { return a / b }
	case opMax:
		fn = func(a, b T) T { return max(a, b) }
	case opMin:
		fn = func(a, b T) T { return min(a, b) }
	default:
		return nil, errors.Errorf("interp: bad binary op %s", op)
	}
	return binaryElems(lhs, rhs, outDims, fn), nil
}

func binaryComplex[T complexNumber](op opType, lhs, rhs *tensors.Tensor, outDims []int) (*tensors.Tensor, error) {
	var fn func(a, b T) T
	switch op {
	case opAdd:
		fn = func(a, b T) T { return a + b }
	case opSub:
		fn = func(a, b T) T { return a - b }
	case opMul:
		fn = func(a, b T) T { return a * b }
	case opDiv:
		fn = func(a, b T) T { return a / b }
	default:
		return nil, errors.Errorf("interp: op %s is not defined for complex dtypes", op)
	}
	return binaryElems(lhs, rhs, outDims, fn), nil
}

func execBinary(op opType, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	if lhs.DType() != rhs.DType() {
		return nil, errors.Errorf("interp: %s operand dtypes differ: %s vs %s", op, lhs.DType(), rhs.DType())
	}
	outDims, err := broadcastOutDims(lhs.Shape().Dimensions, rhs.Shape().Dimensions)
	if err != nil {
		return nil, err
	}
	switch lhs.DType() {
	case dtypes.Int8:
		return binaryReal[int8](op, lhs, rhs, outDims)
	case dtypes.Int16:
		return binaryReal[int16](op, lhs, rhs, outDims)
	case dtypes.Int32:
		return binaryReal[int32](op, lhs, rhs, outDims)
	case dtypes.Int64:
		return binaryReal[int64](op, lhs, rhs, outDims)
	case dtypes.Uint8:
		return binaryReal[uint8](op, lhs, rhs, outDims)
	case dtypes.Uint16:
		return binaryReal[uint16](op, lhs, rhs, outDims)
	case dtypes.Uint32:
		return binaryReal[uint32](op, lhs, rhs, outDims)
	case dtypes.Uint64:
		return binaryReal[uint64](op, lhs, rhs, outDims)
	case dtypes.Float32:
		return binaryReal[float32](op, lhs, rhs, outDims)
	case dtypes.Float64:
		return binaryReal[float64](op, lhs, rhs, outDims)
	case dtypes.Complex64:
		return binaryComplex[complex64](op, lhs, rhs, outDims)
	case dtypes.Complex128:
		return binaryComplex[complex128](op, lhs, rhs, outDims)
	default:
		return nil, backends.NotImplementedError("interp: %s for dtype %s", op, lhs.DType())
	}
}

// compareElems evaluates a predicate elementwise with broadcasting, yielding
// Bool.
func compareElems[T dtypes.Supported](lhs, rhs *tensors.Tensor, outDims []int, fn func(a, b T) bool) *tensors.Tensor {
	out := tensors.FromShape(shapes.Make(dtypes.Bool, outDims...))
	outFlat := tensors.FlatData[bool](out)
	lhsFlat, rhsFlat := tensors.FlatData[T](lhs), tensors.FlatData[T](rhs)
	lhsStrides := broadcastStrides(lhs.Shape().Dimensions, outDims)
	rhsStrides := broadcastStrides(rhs.Shape().Dimensions, outDims)
	coords := make([]int, len(outDims))
	for ii := range outFlat {
		outFlat[ii] = fn(lhsFlat[dot(coords, lhsStrides)], rhsFlat[dot(coords, rhsStrides)])
		incrementCoords(coords, outDims)
	}
	return out
}

func compareOrdered[T realNumber](op opType, lhs, rhs *tensors.Tensor, outDims []int) (*tensors.Tensor, error) {
	var fn func(a, b T) bool
	switch op {
	case opEqual:
		fn = func(a, b T) bool { return a == b }
	case opNotEqual:
		fn = func(a, b T) bool { return a != b }
	case opLessThan:
		fn = func(a, b T) bool { return a < b }
	case opLessOrEqual:
		fn = func(a, b T) bool { return a <= b }
	case opGreaterThan:
		fn = func(a, b T) bool { return a > b }
	case opGreaterOrEqual:
		fn = func(a, b T) bool { return a >= b }
	default:
		return nil, errors.Errorf("interp: bad comparison op %s", op)
	}
	return compareElems(lhs, rhs, outDims, fn), nil
}

func compareEquality[T dtypes.Supported](op opType, lhs, rhs *tensors.Tensor, outDims []int) (*tensors.Tensor, error) {
	switch op {
	case opEqual:
		return compareElems(lhs, rhs, outDims, func(a, b T) bool { return a == b }), nil
	case opNotEqual:
		return compareElems(lhs, rhs, outDims, func(a, b T) bool { return a != b }), nil
	default:
		return nil, errors.Errorf("interp: op %s is not defined for dtype %s", op, lhs.DType())
	}
}

func execCompare(op opType, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	if lhs.DType() != rhs.DType() {
		return nil, errors.Errorf("interp: %s operand dtypes differ: %s vs %s", op, lhs.DType(), rhs.DType())
	}
	outDims, err := broadcastOutDims(lhs.Shape().Dimensions, rhs.Shape().Dimensions)
	if err != nil {
		return nil, err
	}
	switch lhs.DType() {
	case dtypes.Bool:
		return compareEquality[bool](op, lhs, rhs, outDims)
	case dtypes.Int8:
		return compareOrdered[int8](op, lhs, rhs, outDims)
	case dtypes.Int16:
		return compareOrdered[int16](op, lhs, rhs, outDims)
	case dtypes.Int32:
		return compareOrdered[int32](op, lhs, rhs, outDims)
	case dtypes.Int64:
		return compareOrdered[int64](op, lhs, rhs, outDims)
	case dtypes.Uint8:
		return compareOrdered[uint8](op, lhs, rhs, outDims)
	case dtypes.Uint16:
		return compareOrdered[uint16](op, lhs, rhs, outDims)
	case dtypes.Uint32:
		return compareOrdered[uint32](op, lhs, rhs, outDims)
	case dtypes.Uint64:
		return compareOrdered[uint64](op, lhs, rhs, outDims)
	case dtypes.Float32:
		return compareOrdered[float32](op, lhs, rhs, outDims)
	case dtypes.Float64:
		return compareOrdered[float64](op, lhs, rhs, outDims)
	case dtypes.Complex64:
		return compareEquality[complex64](op, lhs, rhs, outDims)
	case dtypes.Complex128:
		return compareEquality[complex128](op, lhs, rhs, outDims)
	default:
		return nil, backends.NotImplementedError("interp: %s for dtype %s", op, lhs.DType())
	}
}

// unaryElems evaluates fn elementwise.
func unaryElems[T dtypes.Supported](x *tensors.Tensor, fn func(v T) T) *tensors.Tensor {
	out := tensors.FromShape(x.Shape())
	outFlat := tensors.FlatData[T](out)
	for ii, v := range tensors.FlatData[T](x) {
		outFlat[ii] = fn(v)
	}
	return out
}

func unaryInt[T intNumber](op opType, x *tensors.Tensor) (*tensors.Tensor, error) {
	switch op {
	case opNeg:
		return unaryElems(x, func(v T) T { return -v }), nil
	case opAbs:
		return unaryElems(x, func(v T) T {
			if v < 0 {
				return -v
			}
			return v
		}), nil
	default:
		return nil, errors.Errorf("interp: op %s is not defined for dtype %s", op, x.DType())
	}
}

func execUnary(op opType, x *tensors.Tensor) (*tensors.Tensor, error) {
	switch x.DType() {
	case dtypes.Int8:
		return unaryInt[int8](op, x)
	case dtypes.Int16:
		return unaryInt[int16](op, x)
	case dtypes.Int32:
		return unaryInt[int32](op, x)
	case dtypes.Int64:
		return unaryInt[int64](op, x)
	case dtypes.Uint8:
		return unaryInt[uint8](op, x)
	case dtypes.Uint16:
		return unaryInt[uint16](op, x)
	case dtypes.Uint32:
		return unaryInt[uint32](op, x)
	case dtypes.Uint64:
		return unaryInt[uint64](op, x)
	case dtypes.Float32:
		var fn func(v float32) float32
		switch op {
		case opNeg:
			fn = func(v float32) float32 { return -v }
		case opAbs:
			fn = math32.Abs
		case opExp:
			fn = math32.Exp
		case opLog:
			fn = math32.Log
		case opSqrt:
			fn = math32.Sqrt
		}
		return unaryElems(x, fn), nil
	case dtypes.Float64:
		var fn func(v float64) float64
		switch op {
		case opNeg:
			fn = func(v float64) float64 { return -v }
		case opAbs:
			fn = math.Abs
		case opExp:
			fn = math.Exp
		case opLog:
			fn = math.Log
		case opSqrt:
			fn = math.Sqrt
		}
		return unaryElems(x, fn), nil
	case dtypes.Complex64:
		fn, err := unaryComplexFn(op, x.DType())
		if err != nil {
			return nil, err
		}
		return unaryElems(x, func(v complex64) complex64 { return complex64(fn(complex128(v))) }), nil
	case dtypes.Complex128:
		fn, err := unaryComplexFn(op, x.DType())
		if err != nil {
			return nil, err
		}
		return unaryElems(x, fn), nil
	default:
		return nil, backends.NotImplementedError("interp: %s for dtype %s", op, x.DType())
	}
}

func unaryComplexFn(op opType, dtype dtypes.DType) (func(v complex128) complex128, error) {
	switch op {
	case opNeg:
		return func(v complex128) complex128 { return -v }, nil
	case opExp:
		return cmplx.Exp, nil
	case opLog:
		return cmplx.Log, nil
	case opSqrt:
		return cmplx.Sqrt, nil
	default:
		return nil, errors.Errorf("interp: op %s is not defined for dtype %s", op, dtype)
	}
}

// castTo converts a source slice to the destination element type.
func castTo[D, S realNumber](dst []D, src []S) {
	for ii, v := range src {
		dst[ii] = D(v)
	}
}

func convertToReal[D realNumber](x *tensors.Tensor) (*tensors.Tensor, error) {
	dst := make([]D, x.Size())
	switch src := x.Flat().(type) {
	case []bool:
		for ii, v := range src {
			if v {
				dst[ii] = 1
			}
		}
	case []int8:
		castTo(dst, src)
	case []int16:
		castTo(dst, src)
	case []int32:
		castTo(dst, src)
	case []int64:
		castTo(dst, src)
	case []uint8:
		castTo(dst, src)
	case []uint16:
		castTo(dst, src)
	case []uint32:
		castTo(dst, src)
	case []uint64:
		castTo(dst, src)
	case []float32:
		castTo(dst, src)
	case []float64:
		castTo(dst, src)
	default:
		return nil, errors.Errorf("interp: cannot convert dtype %s to a real dtype", x.DType())
	}
	return tensors.FromFlatDataAndDimensions(dst, x.Shape().Dimensions...), nil
}

func convertToComplex[D complexNumber](x *tensors.Tensor) (*tensors.Tensor, error) {
	dst := make([]D, x.Size())
	switch src := x.Flat().(type) {
	case []complex64:
		for ii, v := range src {
			dst[ii] = D(complex128(v))
		}
	case []complex128:
		for ii, v := range src {
			dst[ii] = D(v)
		}
	default:
		asFloat, err := convertToReal[float64](x)
		if err != nil {
			return nil, err
		}
		for ii, v := range tensors.FlatData[float64](asFloat) {
			dst[ii] = D(complex(v, 0))
		}
	}
	return tensors.FromFlatDataAndDimensions(dst, x.Shape().Dimensions...), nil
}

func convertToBool(x *tensors.Tensor) (*tensors.Tensor, error) {
	asFloat, err := convertToReal[float64](x)
	if err != nil {
		return nil, err
	}
	dst := make([]bool, x.Size())
	for ii, v := range tensors.FlatData[float64](asFloat) {
		dst[ii] = v != 0
	}
	return tensors.FromFlatDataAndDimensions(dst, x.Shape().Dimensions...), nil
}

func execConvert(x *tensors.Tensor, dtype dtypes.DType) (*tensors.Tensor, error) {
	if x.DType() == dtype {
		return x, nil
	}
	switch dtype {
	case dtypes.Bool:
		return convertToBool(x)
	case dtypes.Int8:
		return convertToReal[int8](x)
	case dtypes.Int16:
		return convertToReal[int16](x)
	case dtypes.Int32:
		return convertToReal[int32](x)
	case dtypes.Int64:
		return convertToReal[int64](x)
	case dtypes.Uint8:
		return convertToReal[uint8](x)
	case dtypes.Uint16:
		return convertToReal[uint16](x)
	case dtypes.Uint32:
		return convertToReal[uint32](x)
	case dtypes.Uint64:
		return convertToReal[uint64](x)
	case dtypes.Float32:
		return convertToReal[float32](x)
	case dtypes.Float64:
		return convertToReal[float64](x)
	case dtypes.Complex64:
		return convertToComplex[complex64](x)
	case dtypes.Complex128:
		return convertToComplex[complex128](x)
	default:
		return nil, backends.NotImplementedError("interp: ConvertDType to %s", dtype)
	}
}

func matmulT[T dtypes.Number](lhs, rhs *tensors.Tensor) *tensors.Tensor {
	m, k := lhs.Shape().Dim(0), lhs.Shape().Dim(1)
	n := rhs.Shape().Dim(1)
	out := tensors.FromShape(shapes.Make(lhs.DType(), m, n))
	outFlat := tensors.FlatData[T](out)
	lhsFlat, rhsFlat := tensors.FlatData[T](lhs), tensors.FlatData[T](rhs)
	for row := 0; row < m; row++ {
		for col := 0; col < n; col++ {
			var acc T
			for kk := 0; kk < k; kk++ {
				acc += lhsFlat[row*k+kk] * rhsFlat[kk*n+col]
			}
			outFlat[row*n+col] = acc
		}
	}
	return out
}

func execMatMul(lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	if lhs.DType() != rhs.DType() {
		return nil, errors.Errorf("interp: MatMul operand dtypes differ: %s vs %s", lhs.DType(), rhs.DType())
	}
	if lhs.Rank() != 2 || rhs.Rank() != 2 {
		return nil, errors.Errorf("interp: MatMul operands must be rank-2, got %s and %s", lhs.Shape(), rhs.Shape())
	}
	if lhs.Shape().Dim(1) != rhs.Shape().Dim(0) {
		return nil, errors.Errorf("interp: MatMul contracting dimensions don't match: %s x %s", lhs.Shape(), rhs.Shape())
	}
	switch lhs.DType() {
	case dtypes.Int8:
		return matmulT[int8](lhs, rhs), nil
	case dtypes.Int16:
		return matmulT[int16](lhs, rhs), nil
	case dtypes.Int32:
		return matmulT[int32](lhs, rhs), nil
	case dtypes.Int64:
		return matmulT[int64](lhs, rhs), nil
	case dtypes.Uint8:
		return matmulT[uint8](lhs, rhs), nil
	case dtypes.Uint16:
		return matmulT[uint16](lhs, rhs), nil
	case dtypes.Uint32:
		return matmulT[uint32](lhs, rhs), nil
	case dtypes.Uint64:
		return matmulT[uint64](lhs, rhs), nil
	case dtypes.Float32:
		return matmulT[float32](lhs, rhs), nil
	case dtypes.Float64:
		return matmulT[float64](lhs, rhs), nil
	case dtypes.Complex64:
		return matmulT[complex64](lhs, rhs), nil
	case dtypes.Complex128:
		return matmulT[complex128](lhs, rhs), nil
	default:
		return nil, backends.NotImplementedError("interp: MatMul for dtype %s", lhs.DType())
	}
}

func execReshape(x *tensors.Tensor, dimensions []int) (*tensors.Tensor, error) {
	newDims := make([]int, len(dimensions))
	inferIdx, knownSize := -1, 1
	for ii, dim := range dimensions {
		if dim == -1 {
			if inferIdx != -1 {
				return nil, errors.Errorf("interp: Reshape(%v): only one dimension can be -1", dimensions)
			}
			inferIdx = ii
			continue
		}
		if dim < 0 {
			return nil, errors.Errorf("interp: Reshape(%v): invalid dimension %d", dimensions, dim)
		}
		newDims[ii] = dim
		knownSize *= dim
	}
	if inferIdx != -1 {
		if knownSize == 0 || x.Size()%knownSize != 0 {
			return nil, errors.Errorf("interp: Reshape(%s, %v): cannot infer dimension", x.Shape(), dimensions)
		}
		newDims[inferIdx] = x.Size() / knownSize
	} else if knownSize != x.Size() {
		return nil, errors.Errorf("interp: Reshape(%s, %v): sizes don't match", x.Shape(), dimensions)
	}
	return tensors.FromFlatDataAndDimensions(x.Flat(), newDims...), nil
}

func execTranspose(x *tensors.Tensor, permutation []int) (*tensors.Tensor, error) {
	rank := x.Rank()
	if len(permutation) != rank {
		return nil, errors.Errorf("interp: Transpose(%s, %v): permutation must have one entry per axis", x.Shape(), permutation)
	}
	outDims := make([]int, rank)
	seen := make([]bool, rank)
	for ii, axis := range permutation {
		if axis < 0 {
			axis += rank
		}
		if axis < 0 || axis >= rank || seen[axis] {
			return nil, errors.Errorf("interp: Transpose(%s, %v): invalid permutation", x.Shape(), permutation)
		}
		seen[axis] = true
		outDims[ii] = x.Shape().Dimensions[axis]
	}
	out := tensors.FromShape(shapes.Make(x.DType(), outDims...))
	srcStrides := rowMajorStrides(x.Shape().Dimensions)
	dstV, srcV := reflect.ValueOf(out.Flat()), reflect.ValueOf(x.Flat())
	coords := make([]int, rank)
	for ii := 0; ii < out.Size(); ii++ {
		srcIdx := 0
		for axis, coord := range coords {
			srcAxis := permutation[axis]
			if srcAxis < 0 {
				srcAxis += rank
			}
			srcIdx += coord * srcStrides[srcAxis]
		}
		dstV.Index(ii).Set(srcV.Index(srcIdx))
		incrementCoords(coords, outDims)
	}
	return out, nil
}

func execBroadcast(x *tensors.Tensor, dimensions []int) (*tensors.Tensor, error) {
	if _, err := broadcastOutDims(x.Shape().Dimensions, dimensions); err != nil {
		return nil, err
	}
	out := tensors.FromShape(shapes.Make(x.DType(), dimensions...))
	strides := broadcastStrides(x.Shape().Dimensions, dimensions)
	dstV, srcV := reflect.ValueOf(out.Flat()), reflect.ValueOf(x.Flat())
	coords := make([]int, len(dimensions))
	for ii := 0; ii < out.Size(); ii++ {
		dstV.Index(ii).Set(srcV.Index(dot(coords, strides)))
		incrementCoords(coords, dimensions)
	}
	return out, nil
}

func reduceT[T dtypes.Number](x *tensors.Tensor, reduction backends.ReduceOpType, reduced []bool, outDims []int) (*tensors.Tensor, error) {
	switch reduction {
	case backends.ReduceOpSum:
		return reduceElems(x, T(0), func(a, b T) T { return a + b }, reduced, outDims), nil
	case backends.ReduceOpProduct:
		return reduceElems(x, T(1), func(a, b T) T { return a * b }, reduced, outDims), nil
	default:
		return nil, errors.Errorf("interp: reduction %s is not defined for dtype %s", reduction, x.DType())
	}
}

func reduceOrderedT[T realNumber](x *tensors.Tensor, reduction backends.ReduceOpType, reduced []bool, outDims []int) (*tensors.Tensor, error) {
	switch reduction {
	case backends.ReduceOpMax:
		return reduceElems(x, x.DType().LowestValue().(T), func(a, b T) T { return max(a, b) }, reduced, outDims), nil
	case backends.ReduceOpMin:
		return reduceElems(x, x.DType().HighestValue().(T), func(a, b T) T { return min(a, b) }, reduced, outDims), nil
	default:
		return reduceT[T](x, reduction, reduced, outDims)
	}
}

// reduceElems combines the elements of x into the cells of the output that
// drops the reduced axes. Every cell starts at init, the identity of fn, so
// reducing over zero elements is well defined -- an empty product is 1, an
// empty sum is 0.
func reduceElems[T dtypes.Supported](x *tensors.Tensor, init T, fn func(a, b T) T, reduced []bool, outDims []int) *tensors.Tensor {
	out := tensors.FromShape(shapes.Make(x.DType(), outDims...))
	outFlat := tensors.FlatData[T](out)
	for ii := range outFlat {
		outFlat[ii] = init
	}
	outStrides := rowMajorStrides(outDims)
	xDims := x.Shape().Dimensions
	coords := make([]int, len(xDims))
	for _, v := range tensors.FlatData[T](x) {
		dstIdx, outAxis := 0, 0
		for axis, coord := range coords {
			if reduced[axis] {
				continue
			}
			dstIdx += coord * outStrides[outAxis]
			outAxis++
		}
		outFlat[dstIdx] = fn(outFlat[dstIdx], v)
		incrementCoords(coords, xDims)
	}
	return out
}

func execReduce(x *tensors.Tensor, reduction backends.ReduceOpType, axes []int) (*tensors.Tensor, error) {
	rank := x.Rank()
	reduced := make([]bool, rank)
	for _, axis := range axes {
		if axis < 0 {
			axis += rank
		}
		if axis < 0 || axis >= rank {
			return nil, errors.Errorf("interp: reduction axis out-of-range for %s: %v", x.Shape(), axes)
		}
		if reduced[axis] {
			return nil, errors.Errorf("interp: repeated reduction axis in %v", axes)
		}
		reduced[axis] = true
	}
	outDims := make([]int, 0, rank)
	for axis, dim := range x.Shape().Dimensions {
		if !reduced[axis] {
			outDims = append(outDims, dim)
		}
	}
	switch x.DType() {
	case dtypes.Int8:
		return reduceOrderedT[int8](x, reduction, reduced, outDims)
	case dtypes.Int16:
		return reduceOrderedT[int16](x, reduction, reduced, outDims)
	case dtypes.Int32:
		return reduceOrderedT[int32](x, reduction, reduced, outDims)
	case dtypes.Int64:
		return reduceOrderedT[int64](x, reduction, reduced, outDims)
	case dtypes.Uint8:
		return reduceOrderedT[uint8](x, reduction, reduced, outDims)
	case dtypes.Uint16:
		return reduceOrderedT[uint16](x, reduction, reduced, outDims)
	case dtypes.Uint32:
		return reduceOrderedT[uint32](x, reduction, reduced, outDims)
	case dtypes.Uint64:
		return reduceOrderedT[uint64](x, reduction, reduced, outDims)
	case dtypes.Float32:
		return reduceOrderedT[float32](x, reduction, reduced, outDims)
	case dtypes.Float64:
		return reduceOrderedT[float64](x, reduction, reduced, outDims)
	case dtypes.Complex64:
		return reduceT[complex64](x, reduction, reduced, outDims)
	case dtypes.Complex128:
		return reduceT[complex128](x, reduction, reduced, outDims)
	default:
		return nil, backends.NotImplementedError("interp: Reduce%s for dtype %s", reduction, x.DType())
	}
}

func iotaT[T realNumber](shape shapes.Shape, axis int) *tensors.Tensor {
	out := tensors.FromShape(shape)
	outFlat := tensors.FlatData[T](out)
	stride := rowMajorStrides(shape.Dimensions)[axis]
	dim := shape.Dimensions[axis]
	for ii := range outFlat {
		outFlat[ii] = T((ii / stride) % dim)
	}
	return out
}

func execIota(shape shapes.Shape, axis int) (*tensors.Tensor, error) {
	if axis < 0 || axis >= shape.Rank() {
		return nil, errors.Errorf("interp: Iota axis %d out-of-range for shape %s", axis, shape)
	}
	switch shape.DType {
	case dtypes.Int8:
		return iotaT[int8](shape, axis), nil
	case dtypes.Int16:
		return iotaT[int16](shape, axis), nil
	case dtypes.Int32:
		return iotaT[int32](shape, axis), nil
	case dtypes.Int64:
		return iotaT[int64](shape, axis), nil
	case dtypes.Uint8:
		return iotaT[uint8](shape, axis), nil
	case dtypes.Uint16:
		return iotaT[uint16](shape, axis), nil
	case dtypes.Uint32:
		return iotaT[uint32](shape, axis), nil
	case dtypes.Uint64:
		return iotaT[uint64](shape, axis), nil
	case dtypes.Float32:
		return iotaT[float32](shape, axis), nil
	case dtypes.Float64:
		return iotaT[float64](shape, axis), nil
	default:
		return nil, backends.NotImplementedError("interp: Iota for dtype %s", shape.DType)
	}
}

func execRange(start, limit *tensors.Tensor) (*tensors.Tensor, error) {
	startValue, err := intOf(start)
	if err != nil {
		return nil, err
	}
	limitValue, err := intOf(limit)
	if err != nil {
		return nil, err
	}
	n := max(0, limitValue-startValue)
	values := make([]int32, n)
	for ii := range values {
		values[ii] = int32(startValue + ii)
	}
	return tensors.FromFlatDataAndDimensions(values, n), nil
}

func execSetDiff1D(lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	lhsInts, err := intsOf(lhs)
	if err != nil {
		return nil, err
	}
	rhsInts, err := intsOf(rhs)
	if err != nil {
		return nil, err
	}
	exclude := make(map[int]struct{}, len(rhsInts))
	for _, v := range rhsInts {
		exclude[v] = struct{}{}
	}
	keep := make([]int, 0, len(lhsInts))
	for pos, v := range lhsInts {
		if _, found := exclude[v]; !found {
			keep = append(keep, pos)
		}
	}
	srcV := reflect.ValueOf(lhs.Flat())
	dstV := reflect.MakeSlice(srcV.Type(), len(keep), len(keep))
	for ii, pos := range keep {
		dstV.Index(ii).Set(srcV.Index(pos))
	}
	return tensors.FromFlatDataAndDimensions(dstV.Interface(), len(keep)), nil
}

func execGather(params, indices *tensors.Tensor) (*tensors.Tensor, error) {
	if params.Rank() < 1 {
		return nil, errors.Errorf("interp: Gather params cannot be a scalar")
	}
	idx, err := intsOf(indices)
	if err != nil {
		return nil, err
	}
	paramsDims := params.Shape().Dimensions
	rowSize := 1
	for _, dim := range paramsDims[1:] {
		rowSize *= dim
	}
	outDims := append([]int{len(idx)}, paramsDims[1:]...)
	out := tensors.FromShape(shapes.Make(params.DType(), outDims...))
	dstV, srcV := reflect.ValueOf(out.Flat()), reflect.ValueOf(params.Flat())
	for ii, row := range idx {
		if row < 0 || row >= paramsDims[0] {
			return nil, errors.Errorf("interp: Gather index %d out-of-range for %s", row, params.Shape())
		}
		reflect.Copy(dstV.Slice(ii*rowSize, (ii+1)*rowSize), srcV.Slice(row*rowSize, (row+1)*rowSize))
	}
	return out, nil
}

func execConcatenate(operands []*tensors.Tensor, axis int) (*tensors.Tensor, error) {
	first := operands[0]
	rank := first.Rank()
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, errors.Errorf("interp: Concatenate axis %d out-of-range for %s", axis, first.Shape())
	}
	outDims := append([]int{}, first.Shape().Dimensions...)
	for _, operand := range operands[1:] {
		if operand.DType() != first.DType() || operand.Rank() != rank {
			return nil, errors.Errorf("interp: Concatenate operands %s and %s don't match", first.Shape(), operand.Shape())
		}
		for dim := 0; dim < rank; dim++ {
			if dim == axis {
				continue
			}
			if operand.Shape().Dimensions[dim] != outDims[dim] {
				return nil, errors.Errorf("interp: Concatenate operands %s and %s differ outside axis %d",
					first.Shape(), operand.Shape(), axis)
			}
		}
		outDims[axis] += operand.Shape().Dimensions[axis]
	}
	out := tensors.FromShape(shapes.Make(first.DType(), outDims...))
	dstV := reflect.ValueOf(out.Flat())
	outer := 1
	for _, dim := range outDims[:axis] {
		outer *= dim
	}
	inner := 1
	for _, dim := range outDims[axis+1:] {
		inner *= dim
	}
	dstBlock := outDims[axis] * inner
	axisOffset := 0
	for _, operand := range operands {
		srcV := reflect.ValueOf(operand.Flat())
		srcBlock := operand.Shape().Dimensions[axis] * inner
		for oo := 0; oo < outer; oo++ {
			dstStart := oo*dstBlock + axisOffset*inner
			reflect.Copy(dstV.Slice(dstStart, dstStart+srcBlock), srcV.Slice(oo*srcBlock, (oo+1)*srcBlock))
		}
		axisOffset += operand.Shape().Dimensions[axis]
	}
	return out, nil
}
