// Copyright 2024 Google, LLC
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

// Package cor (Chain of Responsibility) provides the building blocks render
// workflows are assembled from. This file defines the interfaces every
// command, chain and context implements. A workflow is a Chain of Commands
// that share one Context for a single execution.
package cor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a BaseChain pipes between consecutive commands.
const (
	// CtxIn is the default key of a command's primary input. The BaseChain
	// fills it with the output of the previous command and clears it when
	// that command produced none.
	CtxIn = "__IN__"
	// CtxOut is the default key a command leaves its primary output under.
	// The BaseChain moves it to CtxIn once the command returns.
	CtxOut = "__OUT__"
)

// StepTiming is the measured wall time of one executed command. Skipped
// commands have no timing.
type StepTiming struct {
	Name     string
	Duration time.Duration
}

// Context is the per-execution state passed through a chain. It acts as a
// property bag for a single render, carrying data and errors between
// commands. It also keeps step timings and temp files. A Context is not
// shared between executions.
type Context interface {
	// SetContext sets the Go context used for cancellation and tracing. The
	// chain swaps in each command's span context while that command runs.
	SetContext(context context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores value under key and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// AddError records err under the name of the command that produced it.
	// A later error under the same key replaces the earlier one.
	AddError(key string, err error)

	// GetErrors returns every recorded error keyed by command name.
	GetErrors() map[string]error

	// FirstError returns the earliest recorded error and its key. It returns
	// an empty key and a nil error when nothing failed.
	FirstError() (string, error)

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes key.
	Remove(key string)

	// HasErrors reports whether any error was recorded.
	HasErrors() bool

	// RecordStep appends the timing of an executed command.
	RecordStep(name string, duration time.Duration)

	// GetSteps returns the recorded timings in execution order.
	GetSteps() []StepTiming

	// AddTempFile registers a file to delete on Close.
	AddTempFile(file string)

	// GetTempFiles returns the registered temp files.
	GetTempFiles() []string

	// Close removes every registered temp file. Callers defer it right after
	// creating the Context.
	Close()
}

// Executable is anything with an Execute step.
type Executable interface {
	// Execute reads its inputs from the Context and writes its outputs and
	// errors back to it.
	Execute(context Context)
}

// Command is a named, instrumented unit of work. Commands hold
// configuration only, so one instance can serve concurrent executions.
type Command interface {
	Executable

	// GetName returns the unique name used for spans, metrics and errors.
	GetName() string

	// GetInputParam returns the key the command reads its primary input from.
	GetInputParam() string

	// GetOutputParam returns the key the command stores its primary output under.
	GetOutputParam() string

	// IsExecutable reports whether the Context holds what the command needs.
	// Chains skip commands that are not executable.
	IsExecutable(context Context) bool

	// GetTracer returns the OpenTelemetry tracer for this command.
	GetTracer() trace.Tracer

	// GetMeter returns the OpenTelemetry meter for this command.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter of successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter of failed executions.
	GetErrorCounter() metric.Int64Counter

	// GetDurationHistogram returns the histogram of execution times in
	// milliseconds.
	GetDurationHistogram() metric.Float64Histogram
}

// Chain represents a sequence of commands. It is itself a Command, so chains
// can be nested inside other chains.
type Chain interface {
	Command

	// ContinueOnFailure keeps the chain running after a command records an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends command to the sequence.
	AddCommand(command Command) Chain
}
