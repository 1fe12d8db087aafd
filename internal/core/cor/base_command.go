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

// Package cor (Chain of Responsibility) assembles workflows from a sequence
// of commands. This file defines BaseCommand, the foundation every concrete
// command embeds. It provides:
//   - A name used for spans, metrics and the step timings of a render.
//   - OpenTelemetry instruments: a tracer, success and error counters and a
//     duration histogram.
//   - Input and output parameter keys that default to CtxIn and CtxOut, which
//     lets a BaseChain pipe one command's output into the next.
package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MeterName is the instrumentation scope of every command metric.
const MeterName = "github.com/harryxbt/content-engine"

// BaseCommand is the default partial implementation of Command. Concrete
// commands embed it and implement Execute.
type BaseCommand struct {
	Name              string                  // Unique name, also used as the metrics step name.
	InputParamName    string                  // Context key of the primary input; CtxIn when empty.
	OutputParamName   string                  // Context key of the primary output; CtxOut when empty.
	Tracer            trace.Tracer            // Tracer from the global provider.
	Meter             metric.Meter            // Meter from the global provider.
	SuccessCounter    metric.Int64Counter     // Incremented on success.
	ErrorCounter      metric.Int64Counter     // Incremented on failure.
	DurationHistogram metric.Float64Histogram // Execution time in milliseconds.
}

// NewBaseCommand is the constructor for BaseCommand. It creates the counters
// <name>.counter.success and <name>.counter.error and the histogram
// <name>.duration (milliseconds) on the global meter provider. Instrument
// creation failures are logged and leave the instrument nil.
//
// Inputs:
//   - name: The command name, also the step name reported in render metrics.
//
// Outputs:
//   - *BaseCommand: The instrumented command with default parameter keys.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(MeterName)

	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		slog.Error("failed to create success counter", "command", name, "error", err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		slog.Error("failed to create error counter", "command", name, "error", err)
	}
	duration, err := meter.Float64Histogram(fmt.Sprintf("%s.duration", name), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create duration histogram", "command", name, "error", err)
	}

	return &BaseCommand{
		Name:              name,
		Tracer:            otel.Tracer(name),
		Meter:             meter,
		SuccessCounter:    successCounter,
		ErrorCounter:      errorCounter,
		DurationHistogram: duration,
	}
}

// WithParams is a builder method that names the context keys the command reads
// its primary input from and writes its primary output to.
//
// Inputs:
//   - input: The key checked by IsExecutable and read by Execute.
//   - output: The key Execute stores its result under.
//
// Outputs:
//   - *BaseCommand: The command itself.
func (c *BaseCommand) WithParams(input string, output string) *BaseCommand {
	c.InputParamName = input
	c.OutputParamName = output
	return c
}

// GetName returns the name of the command.
func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable provides the default precondition check. It requires a valid
// Context with a Go context and a value stored under the input key.
//
// Inputs:
//   - context: The shared Context of the execution.
//
// Outputs:
//   - bool: True when the command is ready to execute.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(c.GetInputParam()) != nil
}

// GetInputParam returns the key of the primary input, CtxIn unless set.
func (c *BaseCommand) GetInputParam() string {
	if len(c.InputParamName) == 0 {
		return CtxIn
	}
	return c.InputParamName
}

// GetOutputParam returns the key of the primary output, CtxOut unless set.
func (c *BaseCommand) GetOutputParam() string {
	if len(c.OutputParamName) == 0 {
		return CtxOut
	}
	return c.OutputParamName
}

// GetTracer returns the OpenTelemetry tracer of the command.
func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

// GetMeter returns the OpenTelemetry meter of the command.
func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

// GetSuccessCounter returns the counter incremented on success.
func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

// GetErrorCounter returns the counter incremented by Fail.
func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}

// GetDurationHistogram returns the histogram a BaseChain records execution
// time into.
func (c *BaseCommand) GetDurationHistogram() metric.Float64Histogram {
	return c.DurationHistogram
}

// Fail records err in the Context under the command name and increments the
// error counter. Commands call it instead of AddError.
//
// Inputs:
//   - context: The shared Context of the execution.
//   - err: The failure, usually one of the typed errors of the services package.
func (c *BaseCommand) Fail(context Context, err error) {
	c.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(c.GetName(), err)
}
