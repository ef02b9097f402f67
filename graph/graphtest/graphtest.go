// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

// Package graphtest holds test utilities for packages that depend on the
// graph package: a lazily created shared test backend and small
// build-run-compare helpers.
package graphtest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/symtensor/symtensor/backends"
	"github.com/symtensor/symtensor/graph"
	"github.com/symtensor/symtensor/types/tensors"

	_ "github.com/symtensor/symtensor/backends/interp"
)

var (
	buildOnce   sync.Once
	testBackend backends.Backend
)

// BuildTestBackend returns the backend to use in tests, created on first use.
// It honors the usual backend configuration environment variable, defaulting
// to the pure Go interpreter.
func BuildTestBackend() backends.Backend {
	buildOnce.Do(func() {
		testBackend = backends.New()
	})
	return testBackend
}

// RunAndCompare builds a graph with buildFn (typically a closure over
// constants), executes its single output on the test backend and checks the
// result against want (a Go scalar or nested slices) within delta.
func RunAndCompare(t *testing.T, name string, buildFn func(g *graph.Graph) *graph.Node, want any, delta float64) {
	t.Helper()
	g := graph.NewGraph(BuildTestBackend(), name)
	output := buildFn(g)
	g.Compile(output)
	got := g.Run()[0]
	wantTensor := tensors.FromAnyValue(want)
	require.Truef(t, wantTensor.InDelta(got, delta),
		"%s: got %s, want %s", name, got.GoStr(), wantTensor.GoStr())
}

// RunWithInputsAndCompare is like RunAndCompare for graphs with parameters:
// buildFn declares them, and they are fed from inputs in creation order.
func RunWithInputsAndCompare(t *testing.T, name string, buildFn func(g *graph.Graph) *graph.Node,
	inputs []any, want any, delta float64) {
	t.Helper()
	g := graph.NewGraph(BuildTestBackend(), name)
	output := buildFn(g)
	g.Compile(output)
	got := g.Run(inputs...)[0]
	wantTensor := tensors.FromAnyValue(want)
	require.Truef(t, wantTensor.InDelta(got, delta),
		"%s: got %s, want %s", name, got.GoStr(), wantTensor.GoStr())
}
