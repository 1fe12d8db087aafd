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

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
)

// RenderRequestReader decodes a JSON render request (for example a Pub/Sub
// message body) into a *model.RenderRequest.
type RenderRequestReader struct {
	cor.BaseCommand
}

func NewRenderRequestReader(name string) *RenderRequestReader {
	return &RenderRequestReader{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *RenderRequestReader) Execute(context cor.Context) {
	in, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.Fail(context, fmt.Errorf("render request must be a JSON string, got %T", context.Get(c.GetInputParam())))
		return
	}
	var out model.RenderRequest
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal render request: %w", err))
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), &out)
}
