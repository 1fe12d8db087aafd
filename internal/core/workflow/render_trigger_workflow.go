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

package workflow

import (
	"fmt"

	"github.com/harryxbt/content-engine/internal/core/commands"
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
)

// RenderCommand renders the *model.RenderRequest found in CtxIn and leaves
// the *model.RenderResult in CtxOut.
type RenderCommand struct {
	cor.BaseCommand
	compositor *Compositor
}

func NewRenderCommand(name string, compositor *Compositor) *RenderCommand {
	return &RenderCommand{BaseCommand: *cor.NewBaseCommand(name), compositor: compositor}
}

func (c *RenderCommand) Execute(context cor.Context) {
	req, ok := context.Get(c.GetInputParam()).(*model.RenderRequest)
	if !ok {
		c.Fail(context, fmt.Errorf("expected *model.RenderRequest, got %T", context.Get(c.GetInputParam())))
		return
	}
	// Queued requests always write under the output root.
	queued := *req
	queued.OutputPath = ""

	res, err := c.compositor.Render(context.GetContext(), &queued)
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), res)
}

// RenderTriggerWorkflow handles a JSON render request delivered as a message
// body: decode, then render.
type RenderTriggerWorkflow struct {
	cor.BaseCommand
	compositor *Compositor
	chain      cor.Chain
}

// Execute delegates to the inner chain.
func (m *RenderTriggerWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func (m *RenderTriggerWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())
	out.AddCommand(commands.NewRenderRequestReader("render-request-reader"))
	out.AddCommand(NewRenderCommand("render", m.compositor))
	m.chain = out
}

// NewRenderTriggerWorkflow builds the message-driven render chain.
func NewRenderTriggerWorkflow(compositor *Compositor) *RenderTriggerWorkflow {
	out := &RenderTriggerWorkflow{
		BaseCommand: *cor.NewBaseCommand("render-trigger-workflow"),
		compositor:  compositor,
	}
	out.initializeChain()
	return out
}
