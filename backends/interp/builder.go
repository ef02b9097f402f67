// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package interp

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/tensors"
)

// opType enumerates the instructions the interpreter executes.
type opType int

const (
	opInvalid opType = iota
	opParameter
	opConstant
	opAdd
	opSub
	opMul
	opDiv
	opMax
	opMin
	opNeg
	opAbs
	opExp
	opLog
	opSqrt
	opEqual
	opNotEqual
	opLessThan
	opLessOrEqual
	opGreaterThan
	opGreaterOrEqual
	opConvertDType
	opMatMul
	opReshape
	opDynamicReshape
	opTranspose
	opDynamicTranspose
	opBroadcast
	opShapeOf
	opRank
	opReduce
	opDynamicReduce
	opIota
	opRange
	opSetDiff1D
	opGather
	opConcatenate
)

var opTypeNames = [...]string{
	"Invalid", "Parameter", "Constant",
	"Add", "Sub", "Mul", "Div", "Max", "Min",
	"Neg", "Abs", "Exp", "Log", "Sqrt",
	"Equal", "NotEqual", "LessThan", "LessOrEqual", "GreaterThan", "GreaterOrEqual",
	"ConvertDType", "MatMul",
	"Reshape", "DynamicReshape", "Transpose", "DynamicTranspose", "Broadcast",
	"ShapeOf", "Rank", "Reduce", "DynamicReduce",
	"Iota", "Range", "SetDiff1D", "Gather", "Concatenate",
}

func (op opType) String() string {
	if op < 0 || int(op) >= len(opTypeNames) {
		return "Invalid"
	}
	return opTypeNames[op]
}

// instruction is one recorded operation. Shapes are not tracked at recording
// time -- the interpreter computes concrete shapes while executing -- but the
// dtype is, so unsupported dtypes are rejected early.
type instruction struct {
	builder *Builder
	idx     int
	op      opType
	dtype   dtypes.DType
	inputs  []*instruction

	// Static arguments, set depending on op:
	name        string          // opParameter
	paramShape  shapes.Shape    // opParameter
	value       *tensors.Tensor // opConstant
	targetDType dtypes.DType    // opConvertDType
	ints        []int           // dimensions, permutation or axes
	axis        int             // opConcatenate, opIota
	reduction   backends.ReduceOpType
	iotaShape   shapes.Shape // opIota
}

// Builder records instructions for the interpreter. It implements
// backends.Builder.
type Builder struct {
	backend      *Backend
	name         string
	instructions []*instruction
	parameters   []*instruction
	compiled     bool
}

func newBuilder(backend *Backend, name string) *Builder {
	return &Builder{backend: backend, name: name}
}

// Name implements backends.Builder.
func (b *Builder) Name() string { return b.name }

// castInstruction checks an op handle was produced by this builder.
func (b *Builder) castInstruction(op backends.Op) (*instruction, error) {
	inst, ok := op.(*instruction)
	if !ok || inst == nil {
		return nil, errors.Errorf("interp: op is not an instruction handle (%T)", op)
	}
	if inst.builder != b {
		return nil, errors.Errorf("interp: op %s comes from a different builder (%q)", inst.op, inst.builder.name)
	}
	return inst, nil
}

func (b *Builder) castInstructions(ops ...backends.Op) ([]*instruction, error) {
	insts := make([]*instruction, len(ops))
	for ii, op := range ops {
		var err error
		insts[ii], err = b.castInstruction(op)
		if err != nil {
			return nil, err
		}
	}
	return insts, nil
}

// checkInterpretable rejects dtypes the interpreter has no kernels for.
func checkInterpretable(dtype dtypes.DType) error {
	if !dtype.IsSupported() {
		return errors.Errorf("interp: invalid dtype %s", dtype)
	}
	if dtype == dtypes.Float16 || dtype == dtypes.BFloat16 {
		return backends.NotImplementedError("interp: dtype %s is not interpreted", dtype)
	}
	return nil
}

// record appends a new instruction.
func (b *Builder) record(op opType, dtype dtypes.DType, inputs ...*instruction) *instruction {
	inst := &instruction{
		builder: b,
		idx:     len(b.instructions),
		op:      op,
		dtype:   dtype,
		inputs:  inputs,
	}
	b.instructions = append(b.instructions, inst)
	return inst
}

func (b *Builder) assertBuilding() error {
	if b.compiled {
		return errors.Errorf("interp: builder %q has already been compiled", b.name)
	}
	return nil
}

// Parameter implements backends.Builder.
func (b *Builder) Parameter(name string, shape shapes.Shape) (backends.Op, error) {
	if err := b.assertBuilding(); err != nil {
		return nil, err
	}
	if err := checkInterpretable(shape.DType); err != nil {
		return nil, err
	}
	inst := b.record(opParameter, shape.DType)
	inst.name = name
	inst.paramShape = shape.Clone()
	b.parameters = append(b.parameters, inst)
	return inst, nil
}

// Constant implements backends.Builder.
func (b *Builder) Constant(value *tensors.Tensor) (backends.Op, error) {
	if err := b.assertBuilding(); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errors.New("interp: nil constant")
	}
	if err := checkInterpretable(value.DType()); err != nil {
		return nil, err
	}
	inst := b.record(opConstant, value.DType())
	inst.value = value
	return inst, nil
}

// recordSimple is shared by the ops with no static arguments.
func (b *Builder) recordSimple(op opType, dtype dtypes.DType, ops ...backends.Op) (backends.Op, error) {
	if err := b.assertBuilding(); err != nil {
		return nil, err
	}
	inputs, err := b.castInstructions(ops...)
	if err != nil {
		return nil, err
	}
	return b.record(op, dtype, inputs...), nil
}

func (b *Builder) binary(op opType, lhs, rhs backends.Op) (backends.Op, error) {
	lhsInst, err := b.castInstruction(lhs)
	if err != nil {
		return nil, err
	}
	return b.recordSimple(op, lhsInst.dtype, lhs, rhs)
}

func (b *Builder) compare(op opType, lhs, rhs backends.Op) (backends.Op, error) {
	return b.recordSimple(op, dtypes.Bool, lhs, rhs)
}

func (b *Builder) unary(op opType, x backends.Op) (backends.Op, error) {
	xInst, err := b.castInstruction(x)
	if err != nil {
		return nil, err
	}
	return b.recordSimple(op, xInst.dtype, x)
}

// Add implements backends.Builder.
func (b *Builder) Add(lhs, rhs backends.Op) (backends.Op, error) { return b.binary(opAdd, lhs, rhs) }

// Sub implements backends.Builder.
func (b *Builder) Sub(lhs, rhs backends.Op) (backends.Op, error) { return b.binary(opSub, lhs, rhs) }

// Mul implements backends.Builder.
func (b *Builder) Mul(lhs, rhs backends.Op) (backends.Op, error) { return b.binary(opMul, lhs, rhs) }

// Div implements backends.Builder.
func (b *Builder) Div(lhs, rhs backends.Op) (backends.Op, error) { return b.binary(opDiv, lhs, rhs) }

// Max implements backends.Builder.
func (b *Builder) Max(lhs, rhs backends.Op) (backends.Op, error) { return b.binary(opMax, lhs, rhs) }

// Min implements backends.Builder.
func (b *Builder) Min(lhs, rhs backends.Op) (backends.Op, error) { return b.binary(opMin, lhs, rhs) }

// Neg implements backends.Builder.
func (b *Builder) Neg(x backends.Op) (backends.Op, error) { return b.unary(opNeg, x) }

// Abs implements backends.Builder.
func (b *Builder) Abs(x backends.Op) (backends.Op, error) { return b.unary(opAbs, x) }

// Exp implements backends.Builder.
func (b *Builder) Exp(x backends.Op) (backends.Op, error) { return b.unary(opExp, x) }

// Log implements backends.Builder.
func (b *Builder) Log(x backends.Op) (backends.Op, error) { return b.unary(opLog, x) }

// Sqrt implements backends.Builder.
func (b *Builder) Sqrt(x backends.Op) (backends.Op, error) { return b.unary(opSqrt, x) }

// Equal implements backends.Builder.
func (b *Builder) Equal(lhs, rhs backends.Op) (backends.Op, error) {
	return b.compare(opEqual, lhs, rhs)
}

// NotEqual implements backends.Builder.
func (b *Builder) NotEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return b.compare(opNotEqual, lhs, rhs)
}

// LessThan implements backends.Builder.
func (b *Builder) LessThan(lhs, rhs backends.Op) (backends.Op, error) {
	return b.compare(opLessThan, lhs, rhs)
}

// LessOrEqual implements backends.Builder.
func (b *Builder) LessOrEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return b.compare(opLessOrEqual, lhs, rhs)
}

// GreaterThan implements backends.Builder.
func (b *Builder) GreaterThan(lhs, rhs backends.Op) (backends.Op, error) {
	return b.compare(opGreaterThan, lhs, rhs)
}

// GreaterOrEqual implements backends.Builder.
func (b *Builder) GreaterOrEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return b.compare(opGreaterOrEqual, lhs, rhs)
}

// ConvertDType implements backends.Builder.
func (b *Builder) ConvertDType(x backends.Op, dtype dtypes.DType) (backends.Op, error) {
	if err := checkInterpretable(dtype); err != nil {
		return nil, err
	}
	op, err := b.recordSimple(opConvertDType, dtype, x)
	if err != nil {
		return nil, err
	}
	op.(*instruction).targetDType = dtype
	return op, nil
}

// MatMul implements backends.Builder.
func (b *Builder) MatMul(lhs, rhs backends.Op) (backends.Op, error) {
	return b.binary(opMatMul, lhs, rhs)
}

// Reshape implements backends.Builder.
func (b *Builder) Reshape(x backends.Op, dimensions ...int) (backends.Op, error) {
	xInst, err := b.castInstruction(x)
	if err != nil {
		return nil, err
	}
	op, err := b.recordSimple(opReshape, xInst.dtype, x)
	if err != nil {
		return nil, err
	}
	op.(*instruction).ints = slices.Clone(dimensions)
	return op, nil
}

// DynamicReshape implements backends.Builder.
func (b *Builder) DynamicReshape(x backends.Op, dimensions backends.Op) (backends.Op, error) {
	xInst, err := b.castInstruction(x)
	if err != nil {
		return nil, err
	}
	return b.recordSimple(opDynamicReshape, xInst.dtype, x, dimensions)
}

// Transpose implements backends.Builder.
func (b *Builder) Transpose(x backends.Op, permutation ...int) (backends.Op, error) {
	xInst, err := b.castInstruction(x)
	if err != nil {
		return nil, err
	}
	op, err := b.recordSimple(opTranspose, xInst.dtype, x)
	if err != nil {
		return nil, err
	}
	op.(*instruction).ints = slices.Clone(permutation)
	return op, nil
}

// DynamicTranspose implements backends.Builder.
func (b *Builder) DynamicTranspose(x backends.Op, permutation backends.Op) (backends.Op, error) {
	xInst, err := b.castInstruction(x)
	if err != nil {
		return nil, err
	}
	return b.recordSimple(opDynamicTranspose, xInst.dtype, x, permutation)
}

// Broadcast implements backends.Builder.
func (b *Builder) Broadcast(x backends.Op, dimensions ...int) (backends.Op, error) {
	xInst, err := b.castInstruction(x)
	if err != nil {
		return nil, err
	}
	op, err := b.recordSimple(opBroadcast, xInst.dtype, x)
	if err != nil {
		return nil, err
	}
	op.(*instruction).ints = slices.Clone(dimensions)
	return op, nil
}

// ShapeOf implements backends.Builder.
func (b *Builder) ShapeOf(x backends.Op) (backends.Op, error) {
	return b.recordSimple(opShapeOf, dtypes.Int32, x)
}

// Rank implements backends.Builder.
func (b *Builder) Rank(x backends.Op) (backends.Op, error) {
	return b.recordSimple(opRank, dtypes.Int32, x)
}

// Reduce implements backends.Builder.
func (b *Builder) Reduce(x backends.Op, reduction backends.ReduceOpType, axes ...int) (backends.Op, error) {
	xInst, err := b.castInstruction(x)
	if err != nil {
		return nil, err
	}
	op, err := b.recordSimple(opReduce, xInst.dtype, x)
	if err != nil {
		return nil, err
	}
	inst := op.(*instruction)
	inst.reduction = reduction
	inst.ints = slices.Clone(axes)
	return op, nil
}

// DynamicReduce implements backends.Builder.
func (b *Builder) DynamicReduce(x backends.Op, reduction backends.ReduceOpType, axes backends.Op) (backends.Op, error) {
	xInst, err := b.castInstruction(x)
	if err != nil {
		return nil, err
	}
	op, err := b.recordSimple(opDynamicReduce, xInst.dtype, x, axes)
	if err != nil {
		return nil, err
	}
	op.(*instruction).reduction = reduction
	return op, nil
}

// Iota implements backends.Builder.
func (b *Builder) Iota(shape shapes.Shape, axis int) (backends.Op, error) {
	if err := b.assertBuilding(); err != nil {
		return nil, err
	}
	if err := checkInterpretable(shape.DType); err != nil {
		return nil, err
	}
	if !shape.IsFullyDefined() {
		return nil, errors.Errorf("interp: Iota requires a fully defined shape, got %s", shape)
	}
	inst := b.record(opIota, shape.DType)
	inst.iotaShape = shape.Clone()
	inst.axis = axis
	return inst, nil
}

// Range implements backends.Builder.
func (b *Builder) Range(start, limit backends.Op) (backends.Op, error) {
	return b.recordSimple(opRange, dtypes.Int32, start, limit)
}

// SetDiff1D implements backends.Builder.
func (b *Builder) SetDiff1D(lhs, rhs backends.Op) (backends.Op, error) {
	return b.binary(opSetDiff1D, lhs, rhs)
}

// Gather implements backends.Builder.
func (b *Builder) Gather(params, indices backends.Op) (backends.Op, error) {
	return b.binary(opGather, params, indices)
}

// Concatenate implements backends.Builder.
func (b *Builder) Concatenate(axis int, operands ...backends.Op) (backends.Op, error) {
	if len(operands) == 0 {
		return nil, errors.New("interp: Concatenate needs at least one operand")
	}
	firstInst, err := b.castInstruction(operands[0])
	if err != nil {
		return nil, err
	}
	op, err := b.recordSimple(opConcatenate, firstInst.dtype, operands...)
	if err != nil {
		return nil, err
	}
	op.(*instruction).axis = axis
	return op, nil
}

// Compile implements backends.Builder.
func (b *Builder) Compile(outputs ...backends.Op) (backends.Executable, error) {
	if err := b.assertBuilding(); err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, errors.Errorf("interp: computation %q has no outputs", b.name)
	}
	outputInsts, err := b.castInstructions(outputs...)
	if err != nil {
		return nil, err
	}
	b.compiled = true
	return newExecutable(b, outputInsts), nil
}
