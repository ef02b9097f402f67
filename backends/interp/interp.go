// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

// Package interp implements a pure Go backend for symtensor: a node-by-node
// interpreter over host-memory tensors.
//
// It is the reference backend: correctness and zero external dependencies
// over speed. Kernels are straightforward loops, so it is meant for tests,
// small computations and as the specification of what the ops do; heavy
// lifting belongs in an accelerated backend.
//
// The 16-bit float dtypes (Float16, BFloat16) are not interpreted and yield
// not-implemented errors.
//
// To use it, import it anonymously so it registers itself:
//
//	import _ "github.com/symtensor/symtensor/backends/interp"
package interp

import (
	"github.com/symtensor/symtensor/backends"
	"k8s.io/klog/v2"
)

// BackendName to be used in backends.NewWithConfig or the configuration
// environment variable.
const BackendName = "go"

func init() {
	backends.Register(BackendName, New)
}

// Backend implements backends.Backend interpreting computations on the host.
type Backend struct {
	finalized bool
}

// New constructs an interpreter backend. The config string is ignored, the
// interpreter has nothing to configure.
func New(config string) backends.Backend {
	if config != "" {
		klog.Warningf("interp backend takes no configuration, ignoring %q", config)
	}
	return &Backend{}
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "Pure Go node-by-node interpreter (reference backend)"
}

// Builder implements backends.Backend.
func (b *Backend) Builder(name string) backends.Builder {
	return newBuilder(b, name)
}

// Finalize implements backends.Backend.
func (b *Backend) Finalize() { b.finalized = true }
