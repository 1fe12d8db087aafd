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

package model

import "time"

// StepMetric is the wall time of a single named render step.
type StepMetric struct {
	Step       string `json:"step"`
	DurationMs int64  `json:"duration_ms"`
}

// GenerationMetrics summarizes one render.
type GenerationMetrics struct {
	Steps            []StepMetric `json:"steps"`
	TotalDurationMs  int64        `json:"total_duration_ms"`
	VideoDurationSec float64      `json:"video_duration_sec"`
	DurationFallback bool         `json:"duration_fallback,omitempty"`
}

// Step returns the metric recorded for name and whether it exists.
func (m *GenerationMetrics) Step(name string) (StepMetric, bool) {
	for _, s := range m.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepMetric{}, false
}

// RenderRequest is the caller-facing description of a render. One of
// InputPath, InputURL or Scenario selects the source.
type RenderRequest struct {
	ID         string `json:"id,omitempty"`
	BatchID    string `json:"batch_id,omitempty"`
	InputPath  string `json:"input_path,omitempty"`
	InputURL   string `json:"video_url,omitempty"`
	Scenario   string `json:"scenario,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	Caption    string `json:"caption"`
	FontPath   string `json:"font_path,omitempty"`
	Trim       *Trim  `json:"trim,omitempty"`
}

// RenderResult is returned to the caller once the output file exists.
type RenderResult struct {
	ID         string            `json:"id"`
	OutputPath string            `json:"output_path"`
	PublicURL  string            `json:"url,omitempty"`
	ObjectURI  string            `json:"object_uri,omitempty"`
	Metrics    GenerationMetrics `json:"metrics"`
}

// RenderRecord is the row written to the metrics table for each completed render.
type RenderRecord struct {
	ID               string    `bigquery:"id"`
	Caption          string    `bigquery:"caption"`
	OutputPath       string    `bigquery:"output_path"`
	ObjectURI        string    `bigquery:"object_uri"`
	TotalDurationMs  int64     `bigquery:"total_duration_ms"`
	ProbeDurationMs  int64     `bigquery:"probe_duration_ms"`
	EncodeDurationMs int64     `bigquery:"encode_duration_ms"`
	VideoDurationSec float64   `bigquery:"video_duration_sec"`
	DurationFallback bool      `bigquery:"duration_fallback"`
	CreateDate       time.Time `bigquery:"create_date"`
}

// NewRenderRecord flattens a result into a metrics row.
func NewRenderRecord(req *RenderRequest, res *RenderResult) *RenderRecord {
	probe, _ := res.Metrics.Step("probe")
	encode, _ := res.Metrics.Step("encode")
	return &RenderRecord{
		ID:               res.ID,
		Caption:          req.Caption,
		OutputPath:       res.OutputPath,
		ObjectURI:        res.ObjectURI,
		TotalDurationMs:  res.Metrics.TotalDurationMs,
		ProbeDurationMs:  probe.DurationMs,
		EncodeDurationMs: encode.DurationMs,
		VideoDurationSec: res.Metrics.VideoDurationSec,
		DurationFallback: res.Metrics.DurationFallback,
		CreateDate:       time.Now().UTC(),
	}
}
