// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/symtensor/symtensor/types/dtypes"
)

func TestMake(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	assert.Equal(t, 2, s.Rank())
	assert.True(t, s.IsRankKnown())
	assert.True(t, s.IsFullyDefined())
	assert.Equal(t, 6, s.Size())
	assert.Equal(t, 3, s.Dim(1))
	assert.Equal(t, 3, s.Dim(-1))
	assert.Equal(t, "(Float32)[2 3]", s.String())

	scalar := Make(dtypes.Int64)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 1, scalar.Size())

	err := exceptions.TryCatch[error](func() { _ = Make(dtypes.Float32, 2, -3) })
	require.Error(t, err)
}

func TestDynamicDimensions(t *testing.T) {
	s := Make(dtypes.Float64, DynamicDim, 3)
	assert.True(t, s.IsRankKnown())
	assert.False(t, s.IsFullyDefined())
	assert.Equal(t, DynamicDim, s.Size())
	assert.Equal(t, "(Float64)[? 3]", s.String())

	u := MakeUnknownRank(dtypes.Int32)
	assert.False(t, u.IsRankKnown())
	assert.Equal(t, DynamicDim, u.Rank())
	assert.False(t, u.IsScalar())
	assert.Equal(t, "(Int32)[?...]", u.String())
}

func TestEqualAndCompatible(t *testing.T) {
	a := Make(dtypes.Float32, 2, 3)
	assert.True(t, a.Equal(Make(dtypes.Float32, 2, 3)))
	assert.False(t, a.Equal(Make(dtypes.Float64, 2, 3)))
	assert.False(t, a.Equal(Make(dtypes.Float32, 3, 2)))

	assert.True(t, a.Compatible(Make(dtypes.Float32, DynamicDim, 3)))
	assert.True(t, a.Compatible(MakeUnknownRank(dtypes.Float32)))
	assert.False(t, a.Compatible(Make(dtypes.Float32, 2, 4)))
	assert.False(t, a.Compatible(Make(dtypes.Float32, 2, 3, 1)))
	assert.False(t, a.Compatible(MakeUnknownRank(dtypes.Float64)))
}

func TestBroadcast(t *testing.T) {
	testCases := []struct {
		name    string
		s1, s2  Shape
		want    Shape
		wantErr bool
	}{
		{"same", Make(dtypes.F32, 2, 3), Make(dtypes.F32, 2, 3), Make(dtypes.F32, 2, 3), false},
		{"trailing alignment", Make(dtypes.F32, 2, 3), Make(dtypes.F32, 3), Make(dtypes.F32, 2, 3), false},
		{"stretch both", Make(dtypes.F32, 2, 1), Make(dtypes.F32, 1, 3), Make(dtypes.F32, 2, 3), false},
		{"scalar", Make(dtypes.F32), Make(dtypes.F32, 4, 5), Make(dtypes.F32, 4, 5), false},
		{"dynamic meets known", Make(dtypes.F32, DynamicDim, 3), Make(dtypes.F32, 7, 3), Make(dtypes.F32, 7, 3), false},
		{"unknown rank", MakeUnknownRank(dtypes.F32), Make(dtypes.F32, 2), MakeUnknownRank(dtypes.F32), false},
		{"incompatible", Make(dtypes.F32, 2, 3), Make(dtypes.F32, 4, 3), Shape{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Broadcast(tc.s1, tc.s2)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %s, want %s", got, tc.want)
		})
	}

	_, err := Broadcast(Make(dtypes.F32, 2), Make(dtypes.F64, 2))
	require.Error(t, err)
}

func TestConcatenateDimensions(t *testing.T) {
	got := ConcatenateDimensions(Make(dtypes.Int32, 2, 3), Make(dtypes.Int32, 4))
	assert.True(t, got.Equal(Make(dtypes.Int32, 2, 3, 4)))

	got = ConcatenateDimensions(Make(dtypes.Int32, 2), MakeUnknownRank(dtypes.Int32))
	assert.False(t, got.IsRankKnown())

	assert.False(t, ConcatenateDimensions(Make(dtypes.Int32, 2), Make(dtypes.Int64, 2)).Ok())
}
