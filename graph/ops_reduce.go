// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/sets"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/xslices"
)

// ReduceOptions selects the axes of a reduction.
//
// Axes is the canonical parameter. ReductionIndices is a deprecated alias
// kept for callers ported from older APIs; setting both panics wrapping
// ErrConflictingArguments. Leaving both nil reduces over all axes.
type ReduceOptions struct {
	Axes []int

	// Deprecated: use Axes.
	ReductionIndices []int
}

// reductionAxes resolves which axes a reduction applies to.
//
// With explicit axes they are returned normalized (negatives counted from the
// end when the rank is known). Without explicit axes it reduces over all
// axes: when x's rank is known that is the build-time constant [0..rank-1]
// and no extra nodes are created; when the rank is unknown it returns instead
// a deferred node computing range(0, rank(x)) at execution time.
func reductionAxes(x *Node, opts ReduceOptions) (axes []int, deferred *Node) {
	if opts.Axes != nil && opts.ReductionIndices != nil {
		panicWrapf(ErrConflictingArguments, "cannot specify both Axes (%v) and the deprecated ReductionIndices (%v)",
			opts.Axes, opts.ReductionIndices)
	}
	explicit := opts.Axes
	if explicit == nil {
		explicit = opts.ReductionIndices
	}
	rank := x.Rank()
	if explicit != nil {
		if rank != shapes.DynamicDim {
			explicit = adjustAxesToRank(rank, explicit, "axes")
		}
		seen := sets.Make[int](len(explicit))
		for _, axis := range explicit {
			if seen.Has(axis) {
				panicWrapf(ErrConflictingArguments, "reduction axis %d appears more than once in %v", axis, explicit)
			}
			seen.Insert(axis)
		}
		return explicit, nil
	}
	if rank != shapes.DynamicDim {
		return xslices.Iota(0, rank), nil
	}
	g := x.Graph()
	return nil, Range(ScalarZero(g, dtypes.Int32), RankOf(x))
}

// reduce implements the shared plumbing of the basic reductions. Reduced axes
// are removed from the output shape.
func reduce(reduction backends.ReduceOpType, x *Node, opts ReduceOptions) *Node {
	g := validateBuildingGraphFromInputs(x)
	opName := "Reduce" + reduction.String()
	axes, deferred := reductionAxes(x, opts)
	if deferred != nil {
		outputShape := shapes.Make(x.DType()) // Reduce-all of unknown rank yields a scalar.
		return g.newNode(opName, outputShape,
			mustOp(g.builder.DynamicReduce(x.backendOp, reduction, deferred.backendOp)), x, deferred)
	}
	outputShape := shapes.MakeUnknownRank(x.DType())
	if rank := x.Rank(); rank != shapes.DynamicDim {
		reduced := sets.MakeWith(axes...)
		dims := make([]int, 0, rank-len(axes))
		for axis, dim := range x.Shape().Dimensions {
			if !reduced.Has(axis) {
				dims = append(dims, dim)
			}
		}
		outputShape = shapes.Shape{DType: x.DType(), Dimensions: dims}
	}
	return g.newNode(opName, outputShape, mustOp(g.builder.Reduce(x.backendOp, reduction, axes...)), x).
		withAttributes("axes=%v", axes)
}

// ReduceSum sums x over the given axes, which are removed from the output.
// Negative axes count from the end. With no axes it sums over all of them,
// yielding a scalar.
func ReduceSum(x *Node, axes ...int) *Node {
	return reduce(backends.ReduceOpSum, x, ReduceOptions{Axes: axes})
}

// ReduceSumWithOptions is like ReduceSum with the axes given as
// ReduceOptions, which also carries the deprecated ReductionIndices alias.
func ReduceSumWithOptions(x *Node, opts ReduceOptions) *Node {
	return reduce(backends.ReduceOpSum, x, opts)
}

// ReduceAllSum sums x over all of its axes, yielding a scalar.
func ReduceAllSum(x *Node) *Node { return ReduceSum(x) }

// ReduceProduct multiplies x over the given axes, which are removed from the
// output. Negative axes count from the end. With no axes it multiplies over
// all of them, yielding a scalar.
func ReduceProduct(x *Node, axes ...int) *Node {
	return reduce(backends.ReduceOpProduct, x, ReduceOptions{Axes: axes})
}

// ReduceProductWithOptions is like ReduceProduct with the axes given as
// ReduceOptions.
func ReduceProductWithOptions(x *Node, opts ReduceOptions) *Node {
	return reduce(backends.ReduceOpProduct, x, opts)
}

// ReduceAllProduct multiplies x over all of its axes, yielding a scalar.
func ReduceAllProduct(x *Node) *Node { return ReduceProduct(x) }

// ReduceMax takes the maximum of x over the given axes, which are removed
// from the output.
func ReduceMax(x *Node, axes ...int) *Node {
	if !x.DType().IsOrdered() {
		panicWrapf(ErrUnsupportedType, "ReduceMax is not defined for dtype %s", x.DType())
	}
	return reduce(backends.ReduceOpMax, x, ReduceOptions{Axes: axes})
}

// ReduceMaxWithOptions is like ReduceMax with the axes given as
// ReduceOptions.
func ReduceMaxWithOptions(x *Node, opts ReduceOptions) *Node {
	return reduce(backends.ReduceOpMax, x, opts)
}

// ReduceAllMax takes the maximum of x over all of its axes, yielding a
// scalar.
func ReduceAllMax(x *Node) *Node { return ReduceMax(x) }

// ReduceMin takes the minimum of x over the given axes, which are removed
// from the output.
func ReduceMin(x *Node, axes ...int) *Node {
	if !x.DType().IsOrdered() {
		panicWrapf(ErrUnsupportedType, "ReduceMin is not defined for dtype %s", x.DType())
	}
	return reduce(backends.ReduceOpMin, x, ReduceOptions{Axes: axes})
}

// ReduceMinWithOptions is like ReduceMin with the axes given as
// ReduceOptions.
func ReduceMinWithOptions(x *Node, opts ReduceOptions) *Node {
	return reduce(backends.ReduceOpMin, x, opts)
}

// ReduceAllMin takes the minimum of x over all of its axes, yielding a
// scalar.
func ReduceAllMin(x *Node) *Node { return ReduceMin(x) }
