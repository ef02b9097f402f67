// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/tensors"
)

// ConstAsDType creates a constant node from a Go value (scalar or nested
// slices), enforcing the given dtype instead of inferring it. A value of a
// different dtype gets a conversion node appended to its constant.
func ConstAsDType(g *Graph, dtype dtypes.DType, value any) *Node {
	t := tensors.FromAnyValue(value)
	if t.DType() == dtype {
		return ConstTensor(g, t)
	}
	return ConvertDType(ConstTensor(g, t), dtype)
}

// ExecOnce builds a graph with buildFn, compiles its single output and runs
// it, returning the resulting concrete tensor. A convenience for computations
// made only of constants (tests, one-off evaluations); for parameterized or
// repeated execution use NewGraph / Compile / Run directly.
func ExecOnce(backend backends.Backend, buildFn func(g *Graph) *Node) *tensors.Tensor {
	g := NewGraph(backend, "")
	defer g.Finalize()
	output := buildFn(g)
	g.Compile(output)
	return g.Run()[0]
}
