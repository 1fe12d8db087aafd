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
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/services"
)

// MediaProbe measures the source video and stores its metadata.
type MediaProbe struct {
	cor.BaseCommand
	prober *services.Prober
}

func NewMediaProbe(name string, prober *services.Prober) *MediaProbe {
	out := &MediaProbe{BaseCommand: *cor.NewBaseCommand(name), prober: prober}
	out.WithParams(SourcePathParam, MetadataParam)
	return out
}

func (c *MediaProbe) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)
	meta, err := c.prober.Probe(context.GetContext(), path)
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), meta)
}
