// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a host-side concrete Tensor: a flat data buffer
// plus a Shape.
//
// In symtensor, graph nodes are symbolic and carry no data; Tensor is the
// concrete counterpart used to feed constants and parameters into a backend and
// to read execution results back. Its shape is always fully defined.
package tensors

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/x448/float16"
)

// Tensor is a concrete multidimensional array: a flat buffer of one of the
// supported dtypes, interpreted according to its Shape.
//
// A Tensor's shape is immutable and always fully defined.
type Tensor struct {
	shape shapes.Shape

	// flat is a Go slice of the type corresponding to shape.DType, with
	// shape.Size() elements, in row-major order.
	flat any
}

// FromShape returns a zero-initialized Tensor of the given shape. The shape
// must be fully defined.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() || !shape.IsFullyDefined() {
		exceptions.Panicf("tensors.FromShape: shape %s is not fully defined", shape)
	}
	flat := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size())
	return &Tensor{shape: shape.Clone(), flat: flat.Interface()}
}

// FromFlatDataAndDimensions creates a Tensor from the flat (row-major) data and
// the given dimensions. The dtype is inferred from the slice element type, and
// the number of elements must match the product of the dimensions.
func FromFlatDataAndDimensions(flat any, dimensions ...int) *Tensor {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions: flat must be a slice, got %T", flat)
	}
	dtype := dtypes.FromGoType(flatV.Type().Elem())
	if dtype == dtypes.InvalidDType {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions: unsupported element type %s", flatV.Type().Elem())
	}
	shape := shapes.Make(dtype, dimensions...)
	if !shape.IsFullyDefined() {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions: dimensions %v are not fully defined", dimensions)
	}
	if flatV.Len() != shape.Size() {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions: got %d elements for shape %s (size %d)",
			flatV.Len(), shape, shape.Size())
	}
	return &Tensor{shape: shape, flat: flat}
}

// FromScalar creates a scalar (rank 0) Tensor holding the given value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromFlatDataAndDimensions([]T{value})
}

// FromValue creates a Tensor from a scalar or (possibly nested) Go slices. The
// dtype is inferred from the base element type, and the dimensions from the
// slice lengths, which must be regular (not ragged).
func FromValue(value any) *Tensor {
	v := reflect.ValueOf(value)
	dims, baseType := valueDimensionsAndType(v)
	dtype := dtypes.FromGoType(baseType)
	if dtype == dtypes.InvalidDType {
		exceptions.Panicf("tensors.FromValue: unsupported base type %s in %T", baseType, value)
	}
	t := FromShape(shapes.Make(dtype, dims...))
	flatV := reflect.ValueOf(t.flat)
	pos := 0
	copyNestedValue(v, dims, flatV, &pos)
	return t
}

// FromAnyValue is like FromValue, but if the value is already a *Tensor it is
// returned unchanged.
func FromAnyValue(value any) *Tensor {
	if t, ok := value.(*Tensor); ok {
		return t
	}
	return FromValue(value)
}

// valueDimensionsAndType walks nested slices and returns the implied dimensions
// and the base (non-slice) element type.
func valueDimensionsAndType(v reflect.Value) (dims []int, baseType reflect.Type) {
	t := v.Type()
	for t.Kind() == reflect.Slice {
		dims = append(dims, v.Len())
		if v.Len() == 0 {
			// Take remaining dimensions as 0 until the base type.
			t = t.Elem()
			for t.Kind() == reflect.Slice {
				dims = append(dims, 0)
				t = t.Elem()
			}
			return dims, t
		}
		v = v.Index(0)
		t = v.Type()
	}
	return dims, t
}

// copyNestedValue copies nested slices into the flat buffer, checking that the
// nesting is regular.
func copyNestedValue(v reflect.Value, dims []int, flatV reflect.Value, pos *int) {
	if len(dims) == 0 {
		flatV.Index(*pos).Set(v.Convert(flatV.Type().Elem()))
		*pos++
		return
	}
	if v.Len() != dims[0] {
		exceptions.Panicf("tensors.FromValue: ragged nested slices, got length %d where %d was expected",
			v.Len(), dims[0])
	}
	for ii := 0; ii < v.Len(); ii++ {
		copyNestedValue(v.Index(ii), dims[1:], flatV, pos)
	}
}

// Shape of the Tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the Tensor's elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the Tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements stored in the Tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Flat returns the flat (row-major) data buffer of the tensor, a Go slice of
// the type corresponding to the tensor's dtype. It is shared, not a copy:
// mutating it mutates the tensor.
func (t *Tensor) Flat() any { return t.flat }

// FlatData returns the tensor's flat buffer as a []T. It panics if T doesn't
// correspond to the tensor's dtype.
func FlatData[T dtypes.Supported](t *Tensor) []T {
	flat, ok := t.flat.([]T)
	if !ok {
		exceptions.Panicf("tensors.FlatData[%T] called on tensor with dtype %s", *new(T), t.DType())
	}
	return flat
}

// Value returns the tensor contents as a Go scalar (for rank 0) or nested Go
// slices. The data is copied.
func (t *Tensor) Value() any {
	flatV := reflect.ValueOf(t.flat)
	if t.Rank() == 0 {
		return flatV.Index(0).Interface()
	}
	pos := 0
	return buildNestedValue(t.shape.Dimensions, flatV, &pos).Interface()
}

func buildNestedValue(dims []int, flatV reflect.Value, pos *int) reflect.Value {
	if len(dims) == 0 {
		v := flatV.Index(*pos)
		*pos++
		return v
	}
	sliceType := flatV.Type().Elem()
	for range dims {
		sliceType = reflect.SliceOf(sliceType)
	}
	result := reflect.MakeSlice(sliceType, dims[0], dims[0])
	for ii := 0; ii < dims[0]; ii++ {
		result.Index(ii).Set(buildNestedValue(dims[1:], flatV, pos))
	}
	return result
}

// GoStr converts the tensor contents to a multidimensional Go-syntax string.
func (t *Tensor) GoStr() string {
	value := t.Value()
	if t.Rank() == 0 {
		return fmt.Sprintf("%s(%v)", t.DType().GoStr(), value)
	}
	return fmt.Sprintf("%#v", value)
}

// String returns a printable representation: shape plus contents for small
// tensors, shape plus storage size for large ones.
func (t *Tensor) String() string {
	if t.Size() <= maxSizeToPrint {
		return fmt.Sprintf("%s: %s", t.shape, t.GoStr())
	}
	return fmt.Sprintf("%s: (%s)", t.shape, memoryString(t.shape.Memory()))
}

// maxSizeToPrint limits how many elements Tensor.String prints in full.
const maxSizeToPrint = 32

// Equal returns whether both tensors have the same shape and exactly equal
// contents.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	return reflect.DeepEqual(t.flat, other.flat)
}

// InDelta returns whether both tensors have the same shape and every pair of
// corresponding elements is within delta of each other. Complex elements
// compare both components; booleans must be exactly equal.
//
// If delta <= 0, it checks for exact equality.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if !t.shape.EqualDimensions(other.shape) {
		return false
	}
	if delta <= 0 && t.DType() == other.DType() {
		return reflect.DeepEqual(t.flat, other.flat)
	}
	flat1, flat2 := reflect.ValueOf(t.flat), reflect.ValueOf(other.flat)
	for ii := 0; ii < flat1.Len(); ii++ {
		e1, e2 := flat1.Index(ii).Interface(), flat2.Index(ii).Interface()
		if !elementsInDelta(e1, e2, delta) {
			return false
		}
	}
	return true
}

func elementsInDelta(e1, e2 any, delta float64) bool {
	if b1, ok := e1.(bool); ok {
		b2, ok := e2.(bool)
		return ok && b1 == b2
	}
	c1, ok1 := elementToComplex(e1)
	c2, ok2 := elementToComplex(e2)
	if !ok1 || !ok2 {
		return false
	}
	diff := c1 - c2
	return abs(real(diff)) <= delta && abs(imag(diff)) <= delta
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func elementToComplex(e any) (complex128, bool) {
	switch f := e.(type) {
	case float16.Float16:
		return complex(float64(f.Float32()), 0), true
	case bfloat16.BFloat16:
		return complex(float64(f.Float32()), 0), true
	}
	switch v := reflect.ValueOf(e); v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return complex(float64(v.Int()), 0), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return complex(float64(v.Uint()), 0), true
	case reflect.Float32, reflect.Float64:
		return complex(v.Float(), 0), true
	case reflect.Complex64, reflect.Complex128:
		return v.Complex(), true
	default:
		return 0, false
	}
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	t2 := FromShape(t.shape)
	reflect.Copy(reflect.ValueOf(t2.flat), reflect.ValueOf(t.flat))
	return t2
}
