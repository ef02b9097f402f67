// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provides missing functionality to the standard slices package.
package xslices

import (
	"golang.org/x/exp/constraints"
)

// FillSlice fills the slice with the given value.
func FillSlice[T any](slice []T, value T) {
	for ii := range slice {
		slice[ii] = value
	}
}

// SliceWithValue creates a slice of the given size, with every element set to value.
func SliceWithValue[T any](size int, value T) []T {
	slice := make([]T, size)
	FillSlice(slice, value)
	return slice
}

// Iota returns a slice of the given size with the values
// [start, start+1, ..., start+size-1].
func Iota[T interface {
	constraints.Integer | constraints.Float
}](start T, size int) []T {
	slice := make([]T, size)
	value := start
	for ii := range slice {
		slice[ii] = value
		value += 1
	}
	return slice
}

// Product returns the product of the elements of the slice. It returns 1 for an
// empty slice.
func Product[T constraints.Integer | constraints.Float](slice []T) T {
	product := T(1)
	for _, value := range slice {
		product *= value
	}
	return product
}
