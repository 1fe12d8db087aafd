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
	"time"

	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
)

// Context keys shared by the render commands.
const (
	RenderRequestParam = "__RENDER_REQUEST__"
	SourcePathParam    = "__SOURCE_PATH__"
	MetadataParam      = "__MEDIA_METADATA__"
	LayoutParam        = "__CAPTION_LAYOUT__"
	EncodeRequestParam = "__ENCODE_REQUEST__"
	OutputPathParam    = "__OUTPUT_PATH__"
	ObjectURIParam     = "__OBJECT_URI__"
	StartTimeParam     = "__START_TIME__"
)

// Step names. Commands are registered under these names so the recorded
// timings double as the render's step metrics.
const (
	StepFetch   = "fetch"
	StepProbe   = "probe"
	StepLayout  = "layout"
	StepGraph   = "graph"
	StepEncode  = "encode"
	StepPublish = "publish"
	StepPersist = "persist"
)

// CollectMetrics assembles the metrics of the steps executed so far.
func CollectMetrics(context cor.Context) model.GenerationMetrics {
	steps := context.GetSteps()
	out := model.GenerationMetrics{Steps: make([]model.StepMetric, 0, len(steps))}
	for _, step := range steps {
		out.Steps = append(out.Steps, model.StepMetric{Step: step.Name, DurationMs: step.Duration.Milliseconds()})
	}
	if start, ok := context.Get(StartTimeParam).(time.Time); ok {
		out.TotalDurationMs = time.Since(start).Milliseconds()
	}
	if req, ok := context.Get(EncodeRequestParam).(*model.EncodeRequest); ok {
		out.VideoDurationSec = req.TrimmedDurationSeconds
	}
	if meta, ok := context.Get(MetadataParam).(*model.MediaMetadata); ok {
		out.DurationFallback = meta.DurationFallback
	}
	return out
}

func renderRequest(context cor.Context) *model.RenderRequest {
	req, _ := context.Get(RenderRequestParam).(*model.RenderRequest)
	return req
}
