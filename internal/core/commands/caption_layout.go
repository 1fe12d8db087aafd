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
	"log/slog"

	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
)

// CaptionLayout wraps the request caption to the configured budget and
// centers it inside the banner.
type CaptionLayout struct {
	cor.BaseCommand
	geometry model.Geometry
}

func NewCaptionLayout(name string, geometry model.Geometry) *CaptionLayout {
	out := &CaptionLayout{BaseCommand: *cor.NewBaseCommand(name), geometry: geometry}
	out.WithParams(RenderRequestParam, LayoutParam)
	return out
}

func (c *CaptionLayout) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.RenderRequest)
	layout, err := services.Layout(req.Caption, c.geometry.MaxCharsPerLine, c.geometry.BannerHeight, c.geometry.LineHeight)
	if err != nil {
		c.Fail(context, err)
		return
	}
	if layout.StartY < 0 {
		// Overflowing captions are rendered anyway; lines spill above the banner.
		slog.WarnContext(context.GetContext(), "caption overflows banner",
			"lines", len(layout.Lines), "start_y", layout.StartY, "banner_height", c.geometry.BannerHeight)
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), layout)
}
