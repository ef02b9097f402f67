// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoTypeRoundTrip(t *testing.T) {
	for _, dtype := range []DType{Bool, Int8, Int16, Int32, Int64,
		Uint8, Uint16, Uint32, Uint64, Float16, BFloat16, Float32, Float64,
		Complex64, Complex128} {
		assert.Equal(t, dtype, FromGoType(dtype.GoType()), "dtype %s", dtype)
	}
	assert.Equal(t, Float32, FromGenericsType[float32]())
	assert.Equal(t, Int64, FromGenericsType[int]())
	assert.Equal(t, InvalidDType, FromAny("not a number"))
}

func TestPredicates(t *testing.T) {
	assert.True(t, Float32.IsFloat())
	assert.False(t, Int32.IsFloat())
	assert.True(t, BFloat16.IsFloat16())
	assert.True(t, Complex128.IsComplex())
	assert.True(t, Uint16.IsInt())
	assert.True(t, Uint16.IsUnsigned())
	assert.False(t, Int16.IsUnsigned())
	assert.True(t, Float64.IsOrdered())
	assert.False(t, Complex64.IsOrdered())
	assert.False(t, Bool.IsOrdered())
	assert.False(t, InvalidDType.IsSupported())
}

func TestSizes(t *testing.T) {
	assert.Equal(t, 1, Int8.Size())
	assert.Equal(t, 2, Float16.Size())
	assert.Equal(t, 8, Complex64.Size())
	assert.Equal(t, 16, Complex128.Size())
	assert.Equal(t, 64, Float64.Bits())
	assert.Equal(t, uintptr(8), Float64.Memory())
}

func TestFiniteBounds(t *testing.T) {
	assert.Equal(t, float64(255), Uint8.HighestFinite())
	assert.Equal(t, float64(0), Uint8.LowestFinite())
	assert.Equal(t, float64(-128), Int8.LowestFinite())
	assert.Equal(t, float64(127), Int8.HighestFinite())
	assert.Equal(t, float64(65504), Float16.HighestFinite())
	assert.Equal(t, float64(math.MaxFloat32), Float32.HighestFinite())
	assert.Equal(t, float64(-math.MaxFloat32), Float32.LowestFinite())
	assert.Equal(t, float64(math.MaxInt32), Int32.HighestFinite())

	// The non-finite bounds of floats are infinities.
	assert.True(t, math.IsInf(float64(Float64.HighestValue().(float64)), 1))

	// Bounds must be ordered for every ordered dtype.
	for _, dtype := range []DType{Int8, Int16, Int32, Int64, Uint8, Uint16,
		Uint32, Uint64, Float16, BFloat16, Float32, Float64} {
		require.Less(t, dtype.LowestFinite(), dtype.HighestFinite(), "dtype %s", dtype)
	}
}
