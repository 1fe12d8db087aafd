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

// This file defines the FilterGraphBuilder command, which turns the probe
// result and the caption layout into a complete EncodeRequest.
//
// Logic Flow:
//  1. Read the media metadata and caption layout left by the previous steps.
//  2. Resolve the font: the request's font path, then the configured path,
//     then the fallback list, finally a generic family name.
//  3. Apply the trim (request override or configured default) to compute the
//     trimmed duration. Offsets that consume the whole clip are dropped.
//  4. Build and validate the node graph and store the EncodeRequest.
package commands

import (
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
)

// FilterGraphBuilder produces the EncodeRequest for the render.
type FilterGraphBuilder struct {
	cor.BaseCommand
	geometry   model.Geometry
	font       model.FontSettings
	trim       model.Trim
	fileExists func(string) bool // Font existence check; services.FileExists by default.
}

func NewFilterGraphBuilder(name string, geometry model.Geometry, font model.FontSettings, trim model.Trim) *FilterGraphBuilder {
	out := &FilterGraphBuilder{
		BaseCommand: *cor.NewBaseCommand(name),
		geometry:    geometry,
		font:        font,
		trim:        trim,
		fileExists:  services.FileExists,
	}
	out.WithParams(LayoutParam, EncodeRequestParam)
	return out
}

// WithFileCheck replaces the font existence check.
func (c *FilterGraphBuilder) WithFileCheck(exists func(string) bool) *FilterGraphBuilder {
	c.fileExists = exists
	return c
}

func (c *FilterGraphBuilder) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(MetadataParam) != nil &&
		context.Get(SourcePathParam) != nil &&
		context.Get(OutputPathParam) != nil
}

func (c *FilterGraphBuilder) Execute(context cor.Context) {
	layout := context.Get(c.GetInputParam()).(*model.CaptionLayout)
	meta := context.Get(MetadataParam).(*model.MediaMetadata)

	trim := c.trim
	requested := c.font.Path
	if req := renderRequest(context); req != nil {
		if req.Trim != nil {
			trim = *req.Trim
		}
		if len(req.FontPath) > 0 {
			requested = req.FontPath
		}
	}
	fallbacks := c.font.Fallbacks
	if requested != c.font.Path && len(c.font.Path) > 0 {
		fallbacks = append([]string{c.font.Path}, fallbacks...)
	}
	font := services.ResolveFont(requested, fallbacks, c.font.GenericFamily, c.fileExists)
	trim = trim.Fit(meta.DurationSeconds)

	nodes, err := services.BuildGraph(meta, layout, &c.geometry, trim, font)
	if err != nil {
		c.Fail(context, err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), &model.EncodeRequest{
		InputPath:              context.Get(SourcePathParam).(string),
		OutputPath:             context.Get(OutputPathParam).(string),
		Pipeline:               nodes,
		TrimStartSeconds:       trim.StartSeconds,
		TrimmedDurationSeconds: trim.TrimmedDuration(meta.DurationSeconds),
		Font:                   font,
	})
}
