// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package interp

import (
	"github.com/pkg/errors"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/tensors"
	"k8s.io/klog/v2"
)

// Executable interprets a compiled computation. It implements
// backends.Executable.
//
// It keeps no mutable state between runs, so it is safe to Execute from
// multiple goroutines.
type Executable struct {
	name         string
	instructions []*instruction
	parameters   []*instruction
	outputs      []*instruction

	// needed marks the instructions reachable from the outputs; the others
	// are skipped during execution.
	needed []bool

	// parameterInput maps a parameter instruction index to its position in
	// the Execute inputs.
	parameterInput map[int]int
}

func newExecutable(b *Builder, outputs []*instruction) *Executable {
	e := &Executable{
		name:           b.name,
		instructions:   b.instructions,
		parameters:     b.parameters,
		outputs:        outputs,
		needed:         make([]bool, len(b.instructions)),
		parameterInput: make(map[int]int, len(b.parameters)),
	}
	for pos, param := range b.parameters {
		e.parameterInput[param.idx] = pos
		e.needed[param.idx] = true // Feeding an unused parameter is not an error.
	}
	var mark func(inst *instruction)
	mark = func(inst *instruction) {
		if e.needed[inst.idx] {
			return
		}
		e.needed[inst.idx] = true
		for _, input := range inst.inputs {
			mark(input)
		}
	}
	for _, output := range outputs {
		mark(output)
	}
	return e
}

// Inputs implements backends.Executable.
func (e *Executable) Inputs() (names []string, inputShapes []shapes.Shape) {
	names = make([]string, len(e.parameters))
	inputShapes = make([]shapes.Shape, len(e.parameters))
	for ii, param := range e.parameters {
		names[ii] = param.name
		inputShapes[ii] = param.paramShape
	}
	return
}

// Outputs implements backends.Executable. The interpreter only resolves
// shapes while executing, so the output shapes are reported with the rank
// unknown.
func (e *Executable) Outputs() []shapes.Shape {
	outputShapes := make([]shapes.Shape, len(e.outputs))
	for ii, output := range e.outputs {
		outputShapes[ii] = shapes.MakeUnknownRank(output.dtype)
	}
	return outputShapes
}

// Finalize implements backends.Executable.
func (e *Executable) Finalize() {
	e.instructions = nil
	e.parameters = nil
	e.outputs = nil
}

// Execute implements backends.Executable: it interprets the needed
// instructions in recording order, all on host memory.
func (e *Executable) Execute(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error) {
	if e.instructions == nil {
		return nil, errors.Errorf("interp: executable %q has been finalized", e.name)
	}
	if len(inputs) != len(e.parameters) {
		return nil, errors.Errorf("interp: computation %q takes %d inputs, got %d",
			e.name, len(e.parameters), len(inputs))
	}
	for ii, input := range inputs {
		param := e.parameters[ii]
		if input == nil {
			return nil, errors.Errorf("interp: input %q (#%d) is nil", param.name, ii)
		}
		if !input.Shape().Compatible(param.paramShape) {
			return nil, errors.Errorf("interp: input %q (#%d) declared as %s, got %s",
				param.name, ii, param.paramShape, input.Shape())
		}
	}
	values := make([]*tensors.Tensor, len(e.instructions))
	for _, inst := range e.instructions {
		if !e.needed[inst.idx] {
			continue
		}
		value, err := e.executeInstruction(inst, values, inputs)
		if err != nil {
			return nil, errors.WithMessagef(err, "interp: computation %q, instruction #%d (%s)",
				e.name, inst.idx, inst.op)
		}
		values[inst.idx] = value
	}
	results := make([]*tensors.Tensor, len(e.outputs))
	for ii, output := range e.outputs {
		results[ii] = values[output.idx]
	}
	klog.V(2).Infof("interp: executed %q: %d instructions, %d outputs", e.name, len(e.instructions), len(results))
	return results, nil
}

func (e *Executable) executeInstruction(inst *instruction, values, inputs []*tensors.Tensor) (result *tensors.Tensor, err error) {
	// Kernels may panic on data-dependent failures (integer division by zero,
	// odd runtime shapes); surface those as errors.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("interp: %v", r)
		}
	}()
	in := func(pos int) *tensors.Tensor { return values[inst.inputs[pos].idx] }
	switch inst.op {
	case opParameter:
		return inputs[e.parameterInput[inst.idx]], nil
	case opConstant:
		return inst.value, nil
	case opAdd, opSub, opMul, opDiv, opMax, opMin:
		return execBinary(inst.op, in(0), in(1))
	case opNeg, opAbs, opExp, opLog, opSqrt:
		return execUnary(inst.op, in(0))
	case opEqual, opNotEqual, opLessThan, opLessOrEqual, opGreaterThan, opGreaterOrEqual:
		return execCompare(inst.op, in(0), in(1))
	case opConvertDType:
		return execConvert(in(0), inst.targetDType)
	case opMatMul:
		return execMatMul(in(0), in(1))
	case opReshape:
		return execReshape(in(0), inst.ints)
	case opDynamicReshape:
		dims, err := intsOf(in(1))
		if err != nil {
			return nil, err
		}
		return execReshape(in(0), dims)
	case opTranspose:
		return execTranspose(in(0), inst.ints)
	case opDynamicTranspose:
		permutation, err := intsOf(in(1))
		if err != nil {
			return nil, err
		}
		return execTranspose(in(0), permutation)
	case opBroadcast:
		return execBroadcast(in(0), inst.ints)
	case opShapeOf:
		dims := in(0).Shape().Dimensions
		return tensors.FromFlatDataAndDimensions(toInt32s(dims), len(dims)), nil
	case opRank:
		return tensors.FromScalar(int32(in(0).Rank())), nil
	case opReduce:
		return execReduce(in(0), inst.reduction, inst.ints)
	case opDynamicReduce:
		axes, err := intsOf(in(1))
		if err != nil {
			return nil, err
		}
		return execReduce(in(0), inst.reduction, axes)
	case opIota:
		return execIota(inst.iotaShape, inst.axis)
	case opRange:
		return execRange(in(0), in(1))
	case opSetDiff1D:
		return execSetDiff1D(in(0), in(1))
	case opGather:
		return execGather(in(0), in(1))
	case opConcatenate:
		operands := make([]*tensors.Tensor, len(inst.inputs))
		for ii := range inst.inputs {
			operands[ii] = in(ii)
		}
		return execConcatenate(operands, inst.axis)
	default:
		return nil, errors.Errorf("interp: cannot interpret op %s", inst.op)
	}
}

// intsOf reads a 1-D integer tensor as a []int.
func intsOf(t *tensors.Tensor) ([]int, error) {
	if t.Rank() != 1 || !t.DType().IsInt() {
		return nil, errors.Errorf("interp: expected a 1-D integer tensor, got %s", t.Shape())
	}
	result := make([]int, t.Size())
	switch flat := t.Flat().(type) {
	case []int8:
		for ii, v := range flat {
			result[ii] = int(v)
		}
	case []int16:
		for ii, v := range flat {
			result[ii] = int(v)
		}
	case []int32:
		for ii, v := range flat {
			result[ii] = int(v)
		}
	case []int64:
		for ii, v := range flat {
			result[ii] = int(v)
		}
	case []uint8:
		for ii, v := range flat {
			result[ii] = int(v)
		}
	case []uint16:
		for ii, v := range flat {
			result[ii] = int(v)
		}
	case []uint32:
		for ii, v := range flat {
			result[ii] = int(v)
		}
	case []uint64:
		for ii, v := range flat {
			result[ii] = int(v)
		}
	default:
		return nil, errors.Errorf("interp: expected an integer tensor, got %s", t.Shape())
	}
	return result, nil
}

// intOf reads a scalar integer tensor.
func intOf(t *tensors.Tensor) (int, error) {
	if t.Rank() != 0 {
		return 0, errors.Errorf("interp: expected a scalar integer, got %s", t.Shape())
	}
	// Read through the 1-element flat data.
	asVector := tensors.FromFlatDataAndDimensions(t.Flat(), 1)
	ints, err := intsOf(asVector)
	if err != nil {
		return 0, err
	}
	return ints[0], nil
}

// toInt32s converts dimensions to the Int32 domain of runtime shape values.
func toInt32s(values []int) []int32 {
	result := make([]int32, len(values))
	for ii, value := range values {
		result[ii] = int32(value)
	}
	return result
}
