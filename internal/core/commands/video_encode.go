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
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// VideoEncode runs the encoder for the EncodeRequest built by the previous
// step and publishes the final output path.
type VideoEncode struct {
	cor.BaseCommand
	settings      model.EncoderSettings
	frameRate     int
	executor      services.Executor
	framesCounter metric.Int64Counter
}

func NewVideoEncode(name string, settings model.EncoderSettings, frameRate int, executor services.Executor) *VideoEncode {
	out := &VideoEncode{
		BaseCommand: *cor.NewBaseCommand(name),
		settings:    settings,
		frameRate:   frameRate,
		executor:    executor,
	}
	out.WithParams(EncodeRequestParam, OutputPathParam)
	out.framesCounter, _ = out.GetMeter().Int64Counter(name+".frames", metric.WithUnit("{frame}"))
	return out
}

func (c *VideoEncode) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.EncodeRequest)
	ctx := context.GetContext()
	span := trace.SpanFromContext(ctx)

	var reported int64
	encoder := services.NewEncoder(c.settings, c.frameRate,
		services.WithExecutor(c.executor),
		services.WithProgress(func(frame int64) {
			if frame > reported {
				c.framesCounter.Add(ctx, frame-reported)
				reported = frame
			}
		}))

	output, err := encoder.Invoke(ctx, req)
	span.SetAttributes(attribute.Int64("encode.frames", reported))
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), output)
	context.Add(cor.CtxOut, output)
}
