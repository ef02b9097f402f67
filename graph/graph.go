// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

// Package graph is the core package of symtensor: it builds symbolic
// tensor-expression graphs -- elementwise arithmetic, reductions, linear
// algebra, casts -- and delegates their execution to a backend engine.
//
// The main elements of the package are:
//
//   - Graph: the blueprint of one computation. Created with NewGraph for a
//     given backend, populated by the op constructors (Add, Div, ReduceSum,
//     TensorDot, ...), then compiled with Graph.Compile and executed with
//     Graph.Run.
//
//   - Node: a symbolic value in the computation: an input parameter, a
//     constant, or the result of an op. Each Node has a shape determined at
//     graph building time; individual dimensions (or the rank itself) may be
//     dynamic, that is, only known when the graph executes.
//
// # Static vs. dynamic shapes
//
// Ops validate whatever is statically known and report errors immediately,
// during building. Where shape information is dynamic, ops emit extra nodes
// that compute the equivalent quantities at execution time (see TensorDot for
// the largest example), and validation is deferred to the engine.
//
// # Error handling
//
// Graph and Node methods "throw" errors with panic(), carrying an error
// wrapped with a stack trace. This keeps expression-heavy building code
// readable: one recover (see github.com/gomlx/exceptions) at the top replaces
// error checks on every op. The errors wrap the taxonomy sentinels in this
// package (ErrTypeMismatch, ErrShapeMismatch, ...), so callers can check the
// failure class with errors.Is.
package graph

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/tensors"
	"k8s.io/klog/v2"
)

// GraphId is a unique id of the Graph within a process.
type GraphId int

// ParameterHandle is the index of a parameter within a Graph.
type ParameterHandle int

// Graph with the operations and dependencies needed to run a computation.
//
// It is not safe for concurrent use: build, compile and run a Graph from a
// single goroutine. Independent Graphs are safe to use concurrently.
type Graph struct {
	backend backends.Backend
	builder backends.Builder

	id   GraphId
	name string

	// nodes of the graph, in creation order.
	nodes []*Node

	// parameters keeps track of parameter nodes, their names and a mapping of
	// name to handle.
	parameters            []*Node
	parameterNameToHandle map[string]ParameterHandle

	// scalars caches scalar constants already created in this Graph.
	scalars map[scalarKey]*Node

	// After Compile:
	executable backends.Executable
	outputs    []*Node
}

type scalarKey struct {
	dtype dtypes.DType
	value float64
}

// nextGraphId is incremented atomically: independent graphs may be
// constructed from different goroutines.
var nextGraphId atomic.Int64

// NewGraph constructs an empty Graph that will execute on the given backend.
// If name is empty, a unique one is generated.
func NewGraph(backend backends.Backend, name string) *Graph {
	id := GraphId(nextGraphId.Add(1) - 1)
	if name == "" {
		name = fmt.Sprintf("graph_#%d", id)
	}
	return &Graph{
		backend:               backend,
		builder:               backend.Builder(name),
		id:                    id,
		name:                  name,
		parameterNameToHandle: make(map[string]ParameterHandle),
		scalars:               make(map[scalarKey]*Node),
	}
}

// Name of the computation this Graph defines.
func (g *Graph) Name() string { return g.name }

// Backend this Graph builds for.
func (g *Graph) Backend() backends.Backend { return g.backend }

// GraphId is the unique id of this graph.
func (g *Graph) GraphId() GraphId { return g.id }

// IsCompiled returns whether Compile has already been called.
func (g *Graph) IsCompiled() bool { return g.executable != nil }

// AssertBuilding panics if the graph is nil or has already been compiled.
func (g *Graph) AssertBuilding() {
	if g == nil || g.builder == nil {
		exceptions.Panicf("the Graph is nil or finalized")
	}
	if g.IsCompiled() {
		exceptions.Panicf("Graph %q has already been compiled, no more ops can be added", g.name)
	}
}

// AssertCompiled panics if the graph has not been compiled yet.
func (g *Graph) AssertCompiled() {
	if g == nil {
		exceptions.Panicf("the Graph is nil")
	}
	if !g.IsCompiled() {
		exceptions.Panicf("Graph %q is not compiled yet, call Graph.Compile first", g.name)
	}
}

// registerNode assigns the node an id within the Graph and records it.
func (g *Graph) registerNode(node *Node) {
	node.id = NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
}

// NodeById returns the node with the given id, which must exist in this graph.
func (g *Graph) NodeById(id NodeId) *Node {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid Graph.NodeById(%d): graph %q has %d nodes", id, g.name, len(g.nodes))
	}
	return g.nodes[id]
}

// LastNode returns the most recently created node, or nil for an empty graph.
func (g *Graph) LastNode() *Node {
	if len(g.nodes) == 0 {
		return nil
	}
	return g.nodes[len(g.nodes)-1]
}

// NumParameters returns the number of parameter nodes created so far.
func (g *Graph) NumParameters() int { return len(g.parameters) }

// GetParameterByHandle returns the given parameter node.
func (g *Graph) GetParameterByHandle(handle ParameterHandle) *Node {
	if int(handle) < 0 || int(handle) >= len(g.parameters) {
		exceptions.Panicf("invalid parameter handle %d for graph %q with %d parameters",
			handle, g.name, len(g.parameters))
	}
	return g.parameters[handle]
}

// GetParameterByName returns the parameter with the given name, or nil if it
// doesn't exist.
func (g *Graph) GetParameterByName(name string) *Node {
	handle, found := g.parameterNameToHandle[name]
	if !found {
		return nil
	}
	return g.parameters[handle]
}

// Compile hands the built computation over to the backend, with the given
// nodes as outputs. After Compile no more ops can be added; use Run to
// execute.
func (g *Graph) Compile(outputs ...*Node) {
	g.AssertBuilding()
	if len(outputs) == 0 {
		exceptions.Panicf("Graph.Compile needs at least one output node")
	}
	backendOutputs := make([]backends.Op, len(outputs))
	for ii, node := range outputs {
		node.AssertValid()
		if node.Graph() != g {
			exceptions.Panicf("output node #%d given to Graph.Compile belongs to a different graph", ii)
		}
		backendOutputs[ii] = node.backendOp
	}
	executable, err := g.builder.Compile(backendOutputs...)
	if err != nil {
		panic(errors.WithMessagef(err, "failed to compile graph %q", g.name))
	}
	klog.V(1).Infof("compiled graph %q: %d nodes, %d parameters, %d outputs",
		g.name, len(g.nodes), len(g.parameters), len(outputs))
	g.executable = executable
	g.outputs = outputs
}

// Run executes the compiled graph with the given inputs, one per parameter, in
// creation order. Each input is converted with tensors.FromAnyValue, so plain
// Go values and (nested) slices are accepted.
//
// It returns one concrete tensor per node given to Compile.
func (g *Graph) Run(inputs ...any) []*tensors.Tensor {
	g.AssertCompiled()
	if len(inputs) != len(g.parameters) {
		exceptions.Panicf("graph %q takes %d parameters, got %d inputs", g.name, len(g.parameters), len(inputs))
	}
	inputTensors := make([]*tensors.Tensor, len(inputs))
	for ii, input := range inputs {
		inputTensors[ii] = tensors.FromAnyValue(input)
		param := g.parameters[ii]
		if !inputTensors[ii].Shape().Compatible(param.Shape()) {
			exceptions.Panicf("graph %q parameter %q declared as %s, got incompatible input %s",
				g.name, param.ParameterName(), param.Shape(), inputTensors[ii].Shape())
		}
	}
	results, err := g.executable.Execute(inputTensors...)
	if err != nil {
		panic(errors.WithMessagef(err, "failed to execute graph %q", g.name))
	}
	return results
}

// Finalize releases the backend resources associated with the graph. The graph
// becomes invalid.
func (g *Graph) Finalize() {
	if g.executable != nil {
		g.executable.Finalize()
		g.executable = nil
	}
	g.builder = nil
	g.nodes = nil
	g.parameters = nil
}

// String lists all the nodes of the graph, for debugging.
func (g *Graph) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Graph %q: %d nodes\n", g.name, len(g.nodes))
	for _, node := range g.nodes {
		_, _ = fmt.Fprintf(&sb, "\t%s\n", node)
	}
	return sb.String()
}
