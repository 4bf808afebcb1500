// Copyright 2025 Oskar Olofsson
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor (Chain of Responsibility) provides the building blocks for
// sequential workflows such as the three-phase upload. A workflow is a chain
// of commands sharing one context; each command reads its input from the
// context, does one unit of work, and writes its output back for the next
// command. The chain stops at the first recorded error unless configured
// otherwise, which is exactly the behavior the upload protocol needs: a
// failed phase aborts the remaining phases without compensation.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys through which a chain pipes the primary data
// flow from one command to the next.
const (
	// CtxIn is the default key for a command's primary input. The chain
	// populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key where a command places its primary output.
	CtxOut = "__OUT__"
)

// Context is the shared state object passed through a chain of commands. It
// carries data, collected errors, and the standard Go context used for
// cancellation and trace propagation.
type Context interface {
	// SetContext sets the standard Go context, carrying cancellation and
	// trace information.
	SetContext(context context.Context)

	// GetContext retrieves the standard Go context.
	GetContext() context.Context

	// Add stores a key-value pair. Returns the Context for chaining.
	Add(key string, value interface{}) Context

	// AddError records an error, keyed by the command that produced it.
	AddError(key string, err error)

	// GetErrors returns all errors collected during the workflow.
	GetErrors() map[string]error

	// Get retrieves a value by key, or nil.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// HasErrors reports whether any command recorded an error.
	HasErrors() bool
}

// Executable is anything with a core execution step.
type Executable interface {
	// Execute performs the unit of work, reading inputs from and writing
	// outputs to the given Context.
	Execute(context Context)
}

// Command is an atomic, named, instrumented unit of work. It is the
// fundamental building block of a workflow.
type Command interface {
	Executable

	// GetName returns the command's unique name, used for logging, error
	// keys, and telemetry.
	GetName() string

	// GetInputParam returns the context key holding this command's input.
	GetInputParam() string

	// GetOutputParam returns the context key receiving this command's output.
	GetOutputParam() string

	// IsExecutable checks preconditions against the current context state.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter incremented on success.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter incremented on failure.
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command composed of other Commands, executed in order. Chains
// nest: a chain may itself be a step of a larger chain.
type Chain interface {
	Command

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain

	// ContinueOnFailure controls whether later commands still run after an
	// earlier one records an error. Defaults to false.
	ContinueOnFailure(continueOnFailure bool) Chain
}
