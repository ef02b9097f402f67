// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/sets"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/xslices"
)

// contractionAxes is one operand's side of a contraction spec: either
// build-time axis positions or a deferred 1-D integer node computing them at
// execution time. Exactly one of the fields is set.
type contractionAxes struct {
	static []int
	node   *Node
}

// TensorDot contracts the last numAxes axes of a against the first numAxes
// axes of b: the generalized tensor contraction
//
//	output[a_free..., b_free...] = sum_k a[a_free..., k...] * b[k..., b_free...]
//
// For two matrices and numAxes=1 this is the ordinary matrix multiplication.
// The contraction is planned as transpose + reshape of each operand to 2-D,
// one matrix multiplication, and a reshape of the product back to the free
// dimensions of a followed by the free dimensions of b.
//
// When a's rank is unknown at build time the axis ranges are computed at
// execution time from its runtime rank.
//
// It panics wrapping ErrInvalidAxisCount if numAxes < 1 or exceeds an
// operand's known rank, and ErrShapeMismatch if statically known paired
// dimensions disagree.
func TensorDot(a, b *Node, numAxes int) *Node {
	g := validateBuildingGraphFromInputs(a, b)
	if numAxes < 1 {
		panicWrapf(ErrInvalidAxisCount, "TensorDot(numAxes=%d): must contract at least one axis", numAxes)
	}
	if rank := b.Rank(); rank != shapes.DynamicDim && numAxes > rank {
		panicWrapf(ErrInvalidAxisCount, "TensorDot(b=%s, numAxes=%d): b doesn't have that many axes", b.Shape(), numAxes)
	}
	bAxes := contractionAxes{static: iotaAxes(0, numAxes)}
	if rank := a.Rank(); rank != shapes.DynamicDim {
		if numAxes > rank {
			panicWrapf(ErrInvalidAxisCount, "TensorDot(a=%s, numAxes=%d): a doesn't have that many axes", a.Shape(), numAxes)
		}
		return tensordot(a, b, contractionAxes{static: iotaAxes(rank-numAxes, numAxes)}, bAxes)
	}
	rankA := RankOf(a)
	start := Sub(rankA, Scalar(g, dtypes.Int32, float64(numAxes)))
	return tensordot(a, b, contractionAxes{node: Range(start, rankA)}, bAxes)
}

// TensorDotAxes contracts explicitly paired axes of a and b: aAxes[i] of a is
// summed against bAxes[i] of b. Negative axes count from the end of the
// respective operand. See TensorDot for the planning.
//
// It panics wrapping ErrInvalidAxesLength if the lists have different
// lengths, ErrInvalidAxisCount if they are empty, and ErrShapeMismatch if
// statically known paired dimensions disagree.
func TensorDotAxes(a, b *Node, aAxes, bAxes []int) *Node {
	validateBuildingGraphFromInputs(a, b)
	if len(aAxes) != len(bAxes) {
		panicWrapf(ErrInvalidAxesLength, "TensorDotAxes(aAxes=%v, bAxes=%v)", aAxes, bAxes)
	}
	if len(aAxes) == 0 {
		panicWrapf(ErrInvalidAxisCount, "TensorDotAxes: must contract at least one axis")
	}
	aAxes = normalizeContractionAxes(a, aAxes, "aAxes")
	bAxes = normalizeContractionAxes(b, bAxes, "bAxes")
	return tensordot(a, b, contractionAxes{static: aAxes}, contractionAxes{static: bAxes})
}

// TensorDotWithAxesNode contracts axes of a and b given as a 2 x k integer
// node: row 0 holds a's axes, row 1 holds b's, paired column-wise. The axes
// are only known at execution time, so planning always takes the deferred
// path; the result is equivalent to TensorDotAxes on the same axis values.
func TensorDotWithAxesNode(a, b, axes *Node) *Node {
	g := validateBuildingGraphFromInputs(a, b, axes)
	if !axes.DType().IsInt() {
		panicWrapf(ErrUnsupportedType, "TensorDotWithAxesNode(axes=%s): axes must be integer", axes.Shape())
	}
	if axes.Shape().IsRankKnown() {
		if axes.Rank() != 2 || (axes.Shape().Dim(0) != shapes.DynamicDim && axes.Shape().Dim(0) != 2) {
			panicWrapf(ErrShapeMismatch, "TensorDotWithAxesNode(axes=%s): axes must have shape [2, numContractedAxes]", axes.Shape())
		}
	}
	aRow := Reshape(Gather(axes, Const(g, []int32{0})), -1)
	bRow := Reshape(Gather(axes, Const(g, []int32{1})), -1)
	return tensordot(a, b, contractionAxes{node: aRow}, contractionAxes{node: bRow})
}

// normalizeContractionAxes adjusts negative axes (when the rank is known) and
// checks uniqueness.
func normalizeContractionAxes(operand *Node, axes []int, paramName string) []int {
	if rank := operand.Rank(); rank != shapes.DynamicDim {
		axes = adjustAxesToRank(rank, axes, paramName)
	}
	seen := sets.Make[int](len(axes))
	for _, axis := range axes {
		if seen.Has(axis) {
			exceptions.Panicf("%s=%v: contracting the same axis more than once is invalid", paramName, axes)
		}
		seen.Insert(axis)
	}
	return axes
}

// tensordot plans and builds the contraction: both operands reshaped to 2-D,
// one matrix multiplication, result reshaped to aFree++bFree.
func tensordot(a, b *Node, aAxes, bAxes contractionAxes) *Node {
	g := a.Graph()
	if aAxes.static != nil && bAxes.static != nil &&
		a.Shape().IsRankKnown() && b.Shape().IsRankKnown() {
		for ii := range aAxes.static {
			dimA := a.Shape().Dim(aAxes.static[ii])
			dimB := b.Shape().Dim(bAxes.static[ii])
			if dimA != shapes.DynamicDim && dimB != shapes.DynamicDim && dimA != dimB {
				panicWrapf(ErrShapeMismatch,
					"TensorDot(a=%s, b=%s): contracted axis pair (%d, %d) has sizes %d and %d",
					a.Shape(), b.Shape(), aAxes.static[ii], bAxes.static[ii], dimA, dimB)
			}
		}
	}
	aMat, aFreeDims, aFreeNode := tensordotReshape(a, aAxes, false)
	bMat, bFreeDims, bFreeNode := tensordotReshape(b, bAxes, true)
	product := MatMul(aMat, bMat)
	if aFreeNode == nil && bFreeNode == nil {
		return Reshape(product, slices.Concat(aFreeDims, bFreeDims)...)
	}
	if aFreeNode == nil {
		aFreeNode = Const(g, toInt32s(aFreeDims))
	}
	if bFreeNode == nil {
		bFreeNode = Const(g, toInt32s(bFreeDims))
	}
	return DynamicReshape(product, Concatenate([]*Node{aFreeNode, bFreeNode}, 0))
}

// tensordotReshape plans one operand of a contraction: transpose its free
// axes together and its contracted axes together, and reshape to the 2-D
// [prod(free), prod(contracted)] -- contracted first when flipped, as needed
// for the right-hand operand of the matrix multiplication.
//
// When the operand shape is fully defined and the axes are build-time values,
// the whole plan is computed with plain integers and the free dimension sizes
// are returned as ints. Otherwise the equivalent plan is emitted as graph
// nodes operating on the runtime shape, and the free dimension sizes come
// back as a deferred 1-D node. Both paths produce the same values.
func tensordotReshape(x *Node, axes contractionAxes, flipped bool) (mat *Node, freeDims []int, freeDimsNode *Node) {
	if x.Shape().IsFullyDefined() && axes.static != nil {
		rank := x.Rank()
		contracted := adjustAxesToRank(rank, axes.static, "axes")
		inContraction := sets.MakeWith(contracted...)
		free := make([]int, 0, rank-len(contracted))
		for axis := 0; axis < rank; axis++ {
			if !inContraction.Has(axis) {
				free = append(free, axis)
			}
		}
		freeDims = make([]int, 0, len(free))
		for _, axis := range free {
			freeDims = append(freeDims, x.Shape().Dim(axis))
		}
		contractedDims := make([]int, 0, len(contracted))
		for _, axis := range contracted {
			contractedDims = append(contractedDims, x.Shape().Dim(axis))
		}
		prodFree := xslices.Product(freeDims)
		prodContracted := xslices.Product(contractedDims)
		var perm []int
		var newDims []int
		if flipped {
			perm = slices.Concat(contracted, free)
			newDims = []int{prodContracted, prodFree}
		} else {
			perm = slices.Concat(free, contracted)
			newDims = []int{prodFree, prodContracted}
		}
		mat = Reshape(Transpose(x, perm...), newDims...)
		return mat, freeDims, nil
	}

	// Deferred plan: same quantities computed from the runtime shape.
	g := x.Graph()
	axesNode := axes.node
	if axesNode == nil {
		axesNode = Const(g, toInt32s(axes.static))
	}
	axesNode = ConvertDType(axesNode, dtypes.Int32)
	shapeNode := ShapeOf(x)
	rankNode := RankOf(x)
	// Count negative axes from the end: axis += rank where axis < 0.
	isNegative := ConvertDType(LessThan(axesNode, ScalarZero(g, dtypes.Int32)), dtypes.Int32)
	axesNode = Add(axesNode, Mul(isNegative, rankNode))
	freeNode := SetDiff1D(Range(ScalarZero(g, dtypes.Int32), rankNode), axesNode)
	freeDimsNode = Gather(shapeNode, freeNode)
	contractedDimsNode := Gather(shapeNode, axesNode)
	prodFree := ReduceAllProduct(freeDimsNode)
	prodContracted := ReduceAllProduct(contractedDimsNode)
	var perm, newShape *Node
	if flipped {
		perm = Concatenate([]*Node{axesNode, freeNode}, 0)
		newShape = Stack(prodContracted, prodFree)
	} else {
		perm = Concatenate([]*Node{freeNode, axesNode}, 0)
		newShape = Stack(prodFree, prodContracted)
	}
	mat = DynamicReshape(DynamicTranspose(x, perm), newShape)
	return mat, nil, freeDimsNode
}

// iotaAxes returns [start, start+1, ..., start+n-1].
func iotaAxes(start, n int) []int {
	axes := make([]int, n)
	for ii := range axes {
		axes[ii] = start + ii
	}
	return axes
}

// toInt32s converts build-time dimensions to the Int32 vector the deferred
// shape arithmetic works in.
func toInt32s(values []int) []int32 {
	result := make([]int32, len(values))
	for ii, value := range values {
		result[ii] = int32(value)
	}
	return result
}
