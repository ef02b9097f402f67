// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface a computation building and execution
// engine needs to implement to be used by symtensor.
//
// The graph package only builds symbolic expressions; everything numeric --
// kernel execution, scheduling, placement -- is delegated to a Backend.
// A backend that doesn't implement every operation can simply return a
// "not implemented" error for it (see NotImplementedError), and it will still
// work for computations that don't require those operations.
//
// To simplify error handling in the builder layer, the graph package converts
// backend errors into panics with stack traces. See package
// github.com/gomlx/exceptions.
package backends

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// Backend is the API that needs to be implemented by a symtensor execution engine.
type Backend interface {
	// Name returns the short name of the backend, e.g.: "go" for the pure Go
	// interpreter.
	Name() string

	// Description is a longer description of the Backend that can be used to
	// pretty-print.
	Description() string

	// Builder creates a new builder used to define a new named computation.
	Builder(name string) Builder

	// Finalize releases all associated resources immediately and makes the
	// backend invalid.
	Finalize()
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a backend constructor under the given name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if _, found := registeredConstructors[name]; found {
		klog.Warningf("backends.Register: re-registering backend %q", name)
	}
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the backend configuration to use if it is not overridden by
// the ConfigEnvVar environment variable.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default backend
// configuration to use.
//
// The format of the configuration is "<backend_name>:<backend_configuration>",
// where "<backend_name>" is the name of a registered backend and
// "<backend_configuration>" is backend specific.
const ConfigEnvVar = "SYMTENSOR_BACKEND"

// New returns a new Backend with the default configuration.
//
// The default is:
//
//  1. The environment variable in ConfigEnvVar, if set.
//  2. The variable DefaultConfig, if set.
//  3. The first registered backend, with an empty configuration.
//
// It panics if no backend was registered.
func New() Backend {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig creates a Backend from a "<backend_name>:<backend_configuration>"
// string -- see ConfigEnvVar for the format.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends for symtensor -- maybe import the pure Go one with import _ "github.com/symtensor/symtensor/backends/interp"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if config != "" {
		if _, found := registeredConstructors[config]; found {
			backendName = config
			backendConfig = ""
		}
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given", backendName, config)
	}
	return constructor(backendConfig)
}
