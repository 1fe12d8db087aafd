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
// of commands. This file defines BaseChain, the default Chain implementation.
//
// Logic Flow:
// A BaseChain is itself a Command, so chains can be nested. It runs its
// commands in the order they were added and pipes data between them.
//
//  1. **Execution starts**: Execute is called with the shared Context.
//  2. **Telemetry**: A span named <chain>_execute covers the whole run.
//  3. **Stop checks**: Before each command the chain stops when the Context
//     already holds an error (unless continueOnFailure is set) or when the
//     Go context is done. A cancelled context is recorded against the
//     command that was about to start.
//  4. **Precondition**: A command whose IsExecutable reports false is skipped.
//     Its span carries a "skipped" event and no timing is recorded.
//  5. **Execution**: Each executed command runs under its own child span.
//     Its wall time is stored with RecordStep and in the command's duration
//     histogram. The span status reflects whether the command added errors.
//  6. **Data Piping**: After each command the value in CtxOut is moved to
//     CtxIn. When the command left no output, CtxIn is cleared, so a
//     following command that reads CtxIn is skipped.
//  7. **Completion**: The chain span is closed with a status that reflects
//     the final state of the Context, and the Go context is restored to the
//     one the chain was called with.
package cor

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// BaseChain is the default implementation of the Chain interface. It holds
// the commands to execute sequentially.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool      // Keep executing after a command records an error.
	commands          []Command // Commands in execution order.
}

// NewBaseChain is the constructor for BaseChain.
//
// Inputs:
//   - name: The name of the chain, used for the chain span and its metrics.
//
// Outputs:
//   - *BaseChain: An empty chain.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure is a builder method that sets the error handling of the chain.
//
// Inputs:
//   - continueOnFailure: When true, commands after a failed one still run if
//     their inputs are present. When false, the chain stops at the first error.
//
// Outputs:
//   - Chain: The chain itself, for fluent configuration.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand is a builder method that appends a command to the sequence.
//
// Inputs:
//   - command: Any implementation of Command, including another Chain.
//
// Outputs:
//   - Chain: The chain itself, for fluent configuration.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// Commands returns the names of the chained commands in execution order.
func (c *BaseChain) Commands() []string {
	out := make([]string, 0, len(c.commands))
	for _, command := range c.commands {
		out = append(out, command.GetName())
	}
	return out
}

// IsExecutable only needs a Go context; each command checks its own inputs.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs the commands in order as described in the package comment.
// Errors are not returned; they are recorded in chCtx under the name of the
// command that produced them.
//
// Inputs:
//   - chCtx: The shared Context for this execution.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	defer chCtx.SetContext(parentCtx)

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}
		if err := outerCtx.Err(); err != nil {
			chCtx.AddError(command.GetName(), fmt.Errorf("%s not started: %w", command.GetName(), err))
			break
		}

		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
		chCtx.SetContext(commandContext)

		if !command.IsExecutable(chCtx) {
			commandSpan.AddEvent("skipped")
			commandSpan.End()
			chCtx.SetContext(outerCtx)
			continue
		}

		errorsBefore := len(chCtx.GetErrors())
		start := time.Now()
		command.Execute(chCtx)
		elapsed := time.Since(start)

		chCtx.RecordStep(command.GetName(), elapsed)
		command.GetDurationHistogram().Record(commandContext, float64(elapsed.Microseconds())/1000.0,
			metric.WithAttributes(attribute.String("chain", c.GetName())))

		if len(chCtx.GetErrors()) > errorsBefore {
			commandSpan.SetStatus(codes.Error, "command failed")
		} else {
			commandSpan.SetStatus(codes.Ok, "command completed")
		}
		commandSpan.End()
		chCtx.SetContext(outerCtx)

		// flip-flop the output of this command into the input of the next
		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed")
	} else {
		chainSpan.SetStatus(codes.Ok, "chain completed")
	}
}
