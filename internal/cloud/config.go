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

// Package cloud defines the application configuration, loaded from TOML
// files, and the optional Google Cloud integrations (Cloud Storage publishing,
// BigQuery metrics and Pub/Sub render requests).
//
// Structs:
//   - Config: the root configuration.
//   - Probe, Render, Fetch, Storage: per-concern sections.
//   - BigQueryDataSource: where render metrics are written.
//   - TopicSubscription: a Pub/Sub subscription delivering render requests.
package cloud

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
)

// Probe configures the media inspection step.
type Probe struct {
	Binary          string `toml:"binary"`            // ffprobe binary.
	FallbackOnError bool   `toml:"fallback_on_error"` // Absorb probe failures with the default duration.
}

// Render configures admission control for concurrent renders.
type Render struct {
	MaxConcurrent   int     `toml:"max_concurrent"`    // Renders allowed to run at once; defaults to the CPU count.
	SpawnsPerSecond float64 `toml:"spawns_per_second"` // Rate at which admitted renders may start; 0 disables the limit.
}

// Fetch configures downloads of remote source videos.
type Fetch struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Storage configures where videos are read from and written to.
type Storage struct {
	OutputDir     string `toml:"output_dir"`      // Root of generated files.
	LibraryPath   string `toml:"library_path"`    // Directory of scenario clips.
	PublicBaseURL string `toml:"public_base_url"` // Base of URLs returned for generated files.
	OutputBucket  string `toml:"output_bucket"`   // Optional bucket receiving a copy of every render.
	GCSInput      bool   `toml:"gcs_input"`       // Accept gs:// source URLs.
}

// BigQueryDataSource represents the table render metrics are appended to.
type BigQueryDataSource struct {
	DatasetName  string `toml:"dataset"`
	MetricsTable string `toml:"metrics_table"`
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Config is the root of the application configuration.
type Config struct {
	Application struct {
		Name            string `toml:"name"`              // Service name reported to telemetry.
		GoogleProjectId string `toml:"google_project_id"` // Enables Cloud exporters and clients when set.
		GoogleLocation  string `toml:"location"`          // The Google Cloud location.
		LogFile         string `toml:"log_file"`          // Optional file receiving a copy of the logs.
		HTTPPort        int    `toml:"http_port"`         // Port of the HTTP server.
	} `toml:"application"`
	Geometry           model.Geometry               `toml:"geometry"`
	Font               model.FontSettings           `toml:"font"`
	Probe              Probe                        `toml:"probe"`
	Encoder            model.EncoderSettings        `toml:"encoder"`
	Render             Render                       `toml:"render"`
	Trim               model.Trim                   `toml:"trim"`
	Fetch              Fetch                        `toml:"fetch"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
}

// NewConfig returns a Config holding the built-in defaults. Values loaded
// from TOML files override them.
func NewConfig() *Config {
	c := &Config{
		Geometry: model.DefaultGeometry(),
		Font: model.FontSettings{
			Path:          "fonts/tiktok-sans-scm.ttf",
			Fallbacks:     append([]string(nil), services.DefaultFontFallbacks...),
			GenericFamily: services.GenericFontFamily,
		},
		Probe:              Probe{Binary: services.DefaultProbeCommand},
		Encoder:            model.DefaultEncoderSettings(),
		Render:             Render{MaxConcurrent: runtime.NumCPU()},
		Fetch:              Fetch{TimeoutSeconds: 120},
		Storage:            Storage{OutputDir: "output", LibraryPath: "library", PublicBaseURL: "http://localhost:8080"},
		TopicSubscriptions: make(map[string]TopicSubscription),
	}
	c.Application.Name = "content-engine"
	c.Application.HTTPPort = 8080
	return c
}

// Validate rejects geometry and limits the compositor cannot work with.
func (c *Config) Validate() error {
	g := c.Geometry
	var errs []error
	if g.CanvasWidth <= 0 || g.CanvasHeight <= 0 {
		errs = append(errs, fmt.Errorf("canvas must be positive, got %dx%d", g.CanvasWidth, g.CanvasHeight))
	}
	if g.BannerHeight <= 0 || g.BannerHeight > g.CanvasHeight {
		errs = append(errs, fmt.Errorf("banner height %d outside canvas height %d", g.BannerHeight, g.CanvasHeight))
	}
	if g.VideoOffset < 0 || g.VideoOffset >= g.CanvasHeight {
		errs = append(errs, fmt.Errorf("video offset %d outside canvas height %d", g.VideoOffset, g.CanvasHeight))
	}
	if g.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("frame rate must be positive, got %d", g.FrameRate))
	}
	if g.MaxCharsPerLine <= 0 || g.LineHeight <= 0 || g.FontSize <= 0 {
		errs = append(errs, errors.New("max_chars_per_line, line_height and font_size must be positive"))
	}
	if c.Trim.StartSeconds < 0 || c.Trim.EndSeconds < 0 {
		errs = append(errs, errors.New("trim offsets cannot be negative"))
	}
	if c.Render.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("render.max_concurrent must be positive, got %d", c.Render.MaxConcurrent))
	}
	if len(c.Storage.OutputDir) == 0 {
		errs = append(errs, errors.New("storage.output_dir is required"))
	}
	return errors.Join(errs...)
}
