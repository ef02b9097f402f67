// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes defines the DType enum of the data types supported by symtensor,
// and the tools to inspect them.
//
// A DType describes the unit element of a tensor: fixed-width signed and unsigned
// integers, floating-point kinds (including the 16-bit Float16 and BFloat16
// variants) and complex kinds.
//
// Float16 support uses the github.com/x448/float16 implementation, and BFloat16
// uses the simple implementation in github.com/gomlx/gopjrt/dtypes/bfloat16.
package dtypes

import (
	"math"
	"reflect"
	"strconv"

	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// panicf panics with the formatted description and a stack trace.
//
// It is only used for "bugs in the code" -- when parameters don't follow the
// specifications.
func panicf(format string, args ...any) {
	panic(errors.Errorf(format, args...))
}

// DType is an enum of the data type of a tensor (or of a node in a computation graph).
type DType int32

const (
	// InvalidDType is the zero value of DType and is not a valid data type.
	InvalidDType DType = iota

	// Bool is a two-state boolean (a predicate).
	Bool

	// Int8 to Int64 are signed integers of fixed width.
	Int8
	Int16
	Int32
	Int64

	// Uint8 to Uint64 are unsigned integers of fixed width.
	Uint8
	Uint16
	Uint32
	Uint64

	// Float16 is the IEEE 754 half-precision floating-point format.
	Float16

	// BFloat16 is the truncated "brain" 16-bit floating-point format:
	// 1 sign bit, 8 exponent bits and 7 mantissa bits.
	BFloat16

	// Float32 and Float64 are the IEEE 754 single and double precision formats.
	Float32
	Float64

	// Complex64 is a pair of Float32 (real, imag), as in Go's complex64.
	Complex64

	// Complex128 is a pair of Float64 (real, imag), as in Go's complex128.
	Complex128
)

// Short aliases to the dtypes, for dense numeric code.
const (
	I8   = Int8
	I16  = Int16
	I32  = Int32
	I64  = Int64
	U8   = Uint8
	U16  = Uint16
	U32  = Uint32
	U64  = Uint64
	F16  = Float16
	BF16 = BFloat16
	F32  = Float32
	F64  = Float64
	C64  = Complex64
	C128 = Complex128
)

// String implements fmt.Stringer.
func (dtype DType) String() string {
	switch dtype {
	case Bool:
		return "Bool"
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Uint8:
		return "Uint8"
	case Uint16:
		return "Uint16"
	case Uint32:
		return "Uint32"
	case Uint64:
		return "Uint64"
	case Float16:
		return "Float16"
	case BFloat16:
		return "BFloat16"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Complex64:
		return "Complex64"
	case Complex128:
		return "Complex128"
	case InvalidDType:
		return "InvalidDType"
	default:
		return "DType(" + strconv.Itoa(int(dtype)) + ")"
	}
}

// IsFloat returns whether dtype is a floating-point kind, including the 16-bit formats.
// It returns false for complex numbers.
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == BFloat16 || dtype == Float32 || dtype == Float64
}

// IsFloat16 returns whether dtype is one of the 16-bit float formats: Float16 or BFloat16.
func (dtype DType) IsFloat16() bool {
	return dtype == Float16 || dtype == BFloat16
}

// IsComplex returns whether dtype is a complex number kind.
func (dtype DType) IsComplex() bool {
	return dtype == Complex64 || dtype == Complex128
}

// IsInt returns whether dtype is an integer kind, signed or unsigned.
func (dtype DType) IsInt() bool {
	return dtype >= Int8 && dtype <= Uint64
}

// IsUnsigned returns whether dtype is an unsigned integer kind.
func (dtype DType) IsUnsigned() bool {
	return dtype >= Uint8 && dtype <= Uint64
}

// IsOrdered returns whether values of dtype are ordered -- that is, whether
// Min/Max and comparison operations are defined for it.
// Complex numbers and booleans are not ordered.
func (dtype DType) IsOrdered() bool {
	return dtype.IsInt() || dtype.IsFloat()
}

// IsSupported returns whether dtype is one of the valid enum values.
func (dtype DType) IsSupported() bool {
	return dtype > InvalidDType && dtype <= Complex128
}

// Size returns the number of bytes used to store one element of dtype.
func (dtype DType) Size() int {
	return int(dtype.GoType().Size())
}

// Bits returns the number of bits used to store one element of dtype.
func (dtype DType) Bits() int {
	return dtype.Size() * 8
}

// Memory returns the number of bytes for the given DType.
// It's an alias to Size, converted to uintptr.
func (dtype DType) Memory() uintptr {
	return uintptr(dtype.Size())
}

// Pre-generated reflect.Type values for the types without a reflect.Kind of their own.
var (
	float16Type  = reflect.TypeOf(float16.Float16(0))
	bfloat16Type = reflect.TypeOf(bfloat16.BFloat16(0))
)

// GoType returns the Go reflect.Type corresponding to the tensor DType.
// It panics for invalid dtypes.
func (dtype DType) GoType() reflect.Type {
	switch dtype {
	case Bool:
		return reflect.TypeOf(true)
	case Int8:
		return reflect.TypeOf(int8(0))
	case Int16:
		return reflect.TypeOf(int16(0))
	case Int32:
		return reflect.TypeOf(int32(0))
	case Int64:
		return reflect.TypeOf(int64(0))
	case Uint8:
		return reflect.TypeOf(uint8(0))
	case Uint16:
		return reflect.TypeOf(uint16(0))
	case Uint32:
		return reflect.TypeOf(uint32(0))
	case Uint64:
		return reflect.TypeOf(uint64(0))
	case Float16:
		return float16Type
	case BFloat16:
		return bfloat16Type
	case Float32:
		return reflect.TypeOf(float32(0))
	case Float64:
		return reflect.TypeOf(float64(0))
	case Complex64:
		return reflect.TypeOf(complex64(0))
	case Complex128:
		return reflect.TypeOf(complex128(0))
	default:
		panicf("unknown dtype %q (%d) in DType.GoType", dtype, dtype)
		panic(nil) // Quiet the compiler.
	}
}

// GoStr converts dtype to the name of the corresponding Go type.
func (dtype DType) GoStr() string {
	return dtype.GoType().Name()
}

// RealDType returns the dtype of the real component of complex dtypes.
// For float dtypes, it returns itself.
// It returns InvalidDType for other dtypes.
func (dtype DType) RealDType() DType {
	if dtype.IsFloat() {
		return dtype
	}
	switch dtype {
	case Complex64:
		return Float32
	case Complex128:
		return Float64
	default:
		return InvalidDType
	}
}

// FromGenericsType returns the DType corresponding to the Go type T.
func FromGenericsType[T Supported]() DType {
	var t T
	return FromAny(t)
}

// FromGoType returns the DType for the given reflect.Type, or InvalidDType if
// the type has no corresponding DType.
func FromGoType(t reflect.Type) DType {
	if t == float16Type {
		return Float16
	}
	if t == bfloat16Type {
		return BFloat16
	}
	switch t.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int:
		switch strconv.IntSize {
		case 32:
			return Int32
		case 64:
			return Int64
		default:
			panicf("cannot use int of %d bits with symtensor -- try using int32 or int64", strconv.IntSize)
			panic(nil) // Quiet the compiler.
		}
	case reflect.Int8:
		return Int8
	case reflect.Int16:
		return Int16
	case reflect.Int32:
		return Int32
	case reflect.Int64:
		return Int64
	case reflect.Uint8:
		return Uint8
	case reflect.Uint16:
		return Uint16
	case reflect.Uint32:
		return Uint32
	case reflect.Uint64:
		return Uint64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Complex64:
		return Complex64
	case reflect.Complex128:
		return Complex128
	default:
		return InvalidDType
	}
}

// FromAny introspects the underlying type of value and returns the corresponding
// DType. Unsupported types return InvalidDType.
func FromAny(value any) DType {
	return FromGoType(reflect.TypeOf(value))
}

// LowestValue for dtype converted to the corresponding Go type.
// For float values it returns negative infinity.
// There is no lowest value for complex numbers, since they are not ordered --
// it returns the zero value instead.
func (dtype DType) LowestValue() any {
	switch dtype {
	case Bool:
		return false
	case Int8:
		return int8(math.MinInt8)
	case Int16:
		return int16(math.MinInt16)
	case Int32:
		return int32(math.MinInt32)
	case Int64:
		return int64(math.MinInt64)
	case Uint8:
		return uint8(0)
	case Uint16:
		return uint16(0)
	case Uint32:
		return uint32(0)
	case Uint64:
		return uint64(0)
	case Float16:
		return float16.Inf(-1)
	case BFloat16:
		return bfloat16.Inf(-1)
	case Float32:
		return float32(math.Inf(-1))
	case Float64:
		return math.Inf(-1)
	default:
		return reflect.New(dtype.GoType()).Elem().Interface()
	}
}

// HighestValue for dtype converted to the corresponding Go type.
// For float values it returns positive infinity.
// There is no highest value for complex numbers, since they are not ordered --
// it returns the zero value instead.
func (dtype DType) HighestValue() any {
	switch dtype {
	case Bool:
		return true
	case Int8:
		return int8(math.MaxInt8)
	case Int16:
		return int16(math.MaxInt16)
	case Int32:
		return int32(math.MaxInt32)
	case Int64:
		return int64(math.MaxInt64)
	case Uint8:
		return uint8(math.MaxUint8)
	case Uint16:
		return uint16(math.MaxUint16)
	case Uint32:
		return uint32(math.MaxUint32)
	case Uint64:
		return uint64(math.MaxUint64)
	case Float16:
		return float16.Inf(1)
	case BFloat16:
		return bfloat16.Inf(1)
	case Float32:
		return float32(math.Inf(1))
	case Float64:
		return math.Inf(1)
	default:
		return reflect.New(dtype.GoType()).Elem().Interface()
	}
}

// MaxFloat16 is the largest finite value representable by a Float16: 65504.
const MaxFloat16 = float64(65504)

// MaxBFloat16 is the largest finite value representable by a BFloat16: 2^127 * (2 - 2^-7).
const MaxBFloat16 = float64(3.38953138925153547590470800371487866880e+38)

// LowestFinite returns the most negative finite value representable by dtype,
// as a float64. It panics for unordered dtypes.
//
// Notice that for Int64 and Uint64 the returned float64 is the closest
// approximation of the exact bound.
func (dtype DType) LowestFinite() float64 {
	if !dtype.IsOrdered() {
		panicf("dtype %s is not ordered, it has no lowest finite value", dtype)
	}
	switch dtype {
	case Float16:
		return -MaxFloat16
	case BFloat16:
		return -MaxBFloat16
	case Float32:
		return -math.MaxFloat32
	case Float64:
		return -math.MaxFloat64
	default:
		v := reflect.ValueOf(dtype.LowestValue())
		if dtype.IsUnsigned() {
			return float64(v.Uint())
		}
		return float64(v.Int())
	}
}

// HighestFinite returns the largest finite value representable by dtype, as a
// float64. It panics for unordered dtypes.
//
// Notice that for Int64 and Uint64 the returned float64 is the closest
// approximation of the exact bound.
func (dtype DType) HighestFinite() float64 {
	if !dtype.IsOrdered() {
		panicf("dtype %s is not ordered, it has no highest finite value", dtype)
	}
	switch dtype {
	case Float16:
		return MaxFloat16
	case BFloat16:
		return MaxBFloat16
	case Float32:
		return math.MaxFloat32
	case Float64:
		return math.MaxFloat64
	default:
		v := reflect.ValueOf(dtype.HighestValue())
		if dtype.IsUnsigned() {
			return float64(v.Uint())
		}
		return float64(v.Int())
	}
}

// Supported lists the Go types that symtensor knows how to convert to a DType.
// Used as a constraint for generics.
//
// Notice Go's `int` type is not portable: it maps to Int32 or Int64 depending
// on the platform.
type Supported interface {
	bool | float16.Float16 | bfloat16.BFloat16 |
		float32 | float64 | int | int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		complex64 | complex128
}

// Number represents the native Go numeric types corresponding to supported DTypes.
// Used as a constraint for generics.
//
// It includes complex numbers, and it doesn't include float16.Float16 or
// bfloat16.BFloat16 because they are not native number types.
type Number interface {
	float32 | float64 | int | int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 | complex64 | complex128
}

// NumberNotComplex represents the ordered native Go numeric types (Number
// minus the complex kinds). Used as a constraint for generics.
type NumberNotComplex interface {
	float32 | float64 | int | int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64
}

// GoFloat are the native Go float types, used as a constraint for generics.
type GoFloat interface {
	float32 | float64
}
