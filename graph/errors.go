// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/pkg/errors"
)

// Taxonomy of graph-building failures. Ops panic with errors wrapping one of
// these sentinels (plus a stack trace and context), so after recovering --
// e.g. with exceptions.TryCatch[error] -- callers can classify the failure
// with errors.Is.
//
// All of them are programmer-visible contract violations detected at graph
// building time; none is transient. Validation only covers statically known
// shape/type information: what is dynamic is checked by the backend at
// execution time.
var (
	// ErrTypeMismatch indicates operand dtypes that were required to match do
	// not.
	ErrTypeMismatch = errors.New("operand dtypes must match")

	// ErrUnsupportedType indicates a dtype with no defined behavior for the
	// requested operation (e.g. true-division of booleans).
	ErrUnsupportedType = errors.New("dtype not supported by operation")

	// ErrConflictingArguments indicates two mutually-exclusive ways of
	// specifying the same parameter were both supplied.
	ErrConflictingArguments = errors.New("conflicting arguments")

	// ErrInvalidAxesLength indicates contraction axis lists of different
	// lengths.
	ErrInvalidAxesLength = errors.New("contraction axis lists must have the same length")

	// ErrInvalidAxisCount indicates an invalid number of axes to contract.
	ErrInvalidAxisCount = errors.New("invalid number of axes")

	// ErrShapeMismatch indicates statically known shapes are incompatible for
	// the requested operation (broadcasting, contraction, matrix
	// multiplication).
	ErrShapeMismatch = errors.New("incompatible shapes")
)

// panicWrapf throws (panics with) the sentinel error wrapped with a formatted
// message and a stack trace.
func panicWrapf(sentinel error, format string, args ...any) {
	panic(errors.Wrapf(sentinel, format, args...))
}
