// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/types/dtypes"
	"github.com/symtensor/symtensor/types/shapes"
	"github.com/symtensor/symtensor/types/tensors"
)

// NodeId is a unique id of a Node within a Graph.
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// Node represents a symbolic value in a computation Graph: an input parameter,
// a constant, or the result of an op.
//
// A Node is immutable: its shape and dtype are fixed at construction. Ops that
// change the dtype (like ConvertDType) return a new Node.
type Node struct {
	graph *Graph
	id    NodeId
	shape shapes.Shape

	// opName identifies the operation that produced this node, e.g. "MatMul".
	opName string

	// inputNodes are the graph edges: the nodes this one consumes.
	inputNodes []*Node

	// attributes is a short description of the static (non-node) arguments of
	// the op, used only for printing.
	attributes string

	// backendOp is the handle of the corresponding op in the backend builder.
	backendOp backends.Op

	// parameterName and parameterHandle are set for parameter nodes only.
	parameterName   string
	parameterHandle ParameterHandle

	// constValue is kept for constant nodes, for printing and for build-time
	// folding (e.g. the contraction planner reading statically known axes).
	constValue *tensors.Tensor
}

// newNode registers a node produced by the named op in the graph.
func (g *Graph) newNode(opName string, shape shapes.Shape, backendOp backends.Op, inputs ...*Node) *Node {
	node := &Node{
		graph:      g,
		shape:      shape,
		opName:     opName,
		inputNodes: inputs,
		backendOp:  backendOp,
	}
	g.registerNode(node)
	return node
}

// withAttributes annotates the node description with its static arguments.
// Returns the node itself for chaining.
func (n *Node) withAttributes(format string, args ...any) *Node {
	n.attributes = fmt.Sprintf(format, args...)
	return n
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph {
	if n == nil {
		return nil
	}
	return n.graph
}

// Id is the unique id of this node within its Graph.
func (n *Node) Id() NodeId {
	if n == nil {
		return InvalidNodeId
	}
	return n.id
}

// Shape of the Node's value. Individual dimensions (or the rank) may be
// dynamic -- see the shapes package.
func (n *Node) Shape() shapes.Shape {
	if n == nil {
		return shapes.Shape{}
	}
	return n.shape
}

// DType of the node's shape.
func (n *Node) DType() dtypes.DType {
	return n.Shape().DType
}

// Rank of the node's shape. It returns shapes.DynamicDim if the rank is
// unknown at graph building time.
func (n *Node) Rank() int {
	return n.Shape().Rank()
}

// IsScalar returns whether the node's shape is a scalar.
func (n *Node) IsScalar() bool {
	return n.Shape().IsScalar()
}

// OpName identifies the operation that created this node.
func (n *Node) OpName() string { return n.opName }

// Inputs are the nodes that are direct inputs to this node.
func (n *Node) Inputs() []*Node { return n.inputNodes }

// IsParameter returns whether this is a parameter node.
func (n *Node) IsParameter() bool { return n != nil && n.opName == "Parameter" }

// ParameterName returns the parameter name, and panics if the node is not a
// parameter.
func (n *Node) ParameterName() string {
	n.AssertValid()
	if !n.IsParameter() {
		exceptions.Panicf("node %s is not a Parameter node", n)
	}
	return n.parameterName
}

// ParameterHandle returns the parameter handle, and panics if the node is not
// a parameter.
func (n *Node) ParameterHandle() ParameterHandle {
	n.AssertValid()
	if !n.IsParameter() {
		exceptions.Panicf("node %s is not a Parameter node", n)
	}
	return n.parameterHandle
}

// IsConstant returns whether this is a constant node.
func (n *Node) IsConstant() bool { return n != nil && n.constValue != nil }

// ConstantValue returns the concrete tensor behind a constant node, or nil for
// other nodes. The tensor must not be mutated.
func (n *Node) ConstantValue() *tensors.Tensor {
	if n == nil {
		return nil
	}
	return n.constValue
}

// AssertValid panics if the node or its graph is invalid.
func (n *Node) AssertValid() {
	if n == nil {
		exceptions.Panicf("the Node is nil")
	}
	if n.graph == nil || n.id == InvalidNodeId {
		exceptions.Panicf("the Node is invalid (no graph attached)")
	}
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "#%d %s", n.id, n.opName)
	if n.attributes != "" {
		_, _ = fmt.Fprintf(&sb, "[%s]", n.attributes)
	}
	if len(n.inputNodes) > 0 {
		ids := make([]string, len(n.inputNodes))
		for ii, input := range n.inputNodes {
			ids[ii] = fmt.Sprintf("#%d", input.id)
		}
		_, _ = fmt.Fprintf(&sb, "(%s)", strings.Join(ids, ", "))
	}
	_, _ = fmt.Fprintf(&sb, " -> %s", n.shape)
	return sb.String()
}
