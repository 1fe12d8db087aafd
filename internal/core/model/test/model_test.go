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

// Package model_test contains unit tests for the helpers attached to the
// render data models.
package model_test

import (
	"testing"
	"time"

	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestTrimFit verifies that only offsets leaving part of the clip are kept.
func TestTrimFit(t *testing.T) {
	trim := model.Trim{StartSeconds: 5, EndSeconds: 1}
	assert.Equal(t, trim, trim.Fit(30))
	assert.Equal(t, model.Trim{}, trim.Fit(4))
	assert.Equal(t, model.Trim{}, trim.Fit(6))
}

// TestTrimmedDuration verifies trimming from both ends and the one second floor.
func TestTrimmedDuration(t *testing.T) {
	trim := model.Trim{StartSeconds: 5, EndSeconds: 1}
	assert.Equal(t, 24.0, trim.TrimmedDuration(30))
	// Offsets that consume the clip are ignored.
	assert.Equal(t, 4.0, trim.TrimmedDuration(4))
	assert.Equal(t, 6.0, trim.TrimmedDuration(6))
	// A short remainder is floored at the minimum duration.
	assert.Equal(t, model.MinimumDurationSeconds, model.Trim{StartSeconds: 1, EndSeconds: 1.5}.TrimmedDuration(3))
	assert.Equal(t, 12.5, model.Trim{}.TrimmedDuration(12.5))
}

func TestLineCenter(t *testing.T) {
	l := &model.CaptionLayout{Lines: []string{"a", "b"}, LineHeight: 60, StartY: 113}
	assert.Equal(t, 143, l.LineCenter(0))
	assert.Equal(t, 203, l.LineCenter(1))
}

func TestParams(t *testing.T) {
	p := model.Params{{Key: "w", Value: "1080"}, {Key: "h", Value: "1765"}}
	assert.Equal(t, "1765", p.Get("h"))
	assert.Equal(t, "", p.Get("missing"))
	assert.Equal(t, "w=1080:h=1765", p.String())
}

func TestOperationFilter(t *testing.T) {
	assert.Equal(t, "color", model.SolidColor.Filter())
	assert.Equal(t, "drawtext", model.DrawText.Filter())
	assert.Equal(t, "Overlay", model.Overlay.String())
}

// TestNewRenderRecord ensures the per-step durations are lifted onto the row.
func TestNewRenderRecord(t *testing.T) {
	req := &model.RenderRequest{Caption: "Hello world"}
	res := &model.RenderResult{
		ID:         "abc",
		OutputPath: "/tmp/out.mp4",
		Metrics: model.GenerationMetrics{
			Steps: []model.StepMetric{
				{Step: "probe", DurationMs: 12},
				{Step: "layout", DurationMs: 0},
				{Step: "encode", DurationMs: 3400},
			},
			TotalDurationMs:  3450,
			VideoDurationSec: 24,
		},
	}
	row := model.NewRenderRecord(req, res)
	assert.Equal(t, "abc", row.ID)
	assert.Equal(t, "Hello world", row.Caption)
	assert.Equal(t, int64(12), row.ProbeDurationMs)
	assert.Equal(t, int64(3400), row.EncodeDurationMs)
	assert.Equal(t, 24.0, row.VideoDurationSec)
	assert.WithinDuration(t, time.Now(), row.CreateDate, time.Second)
}
