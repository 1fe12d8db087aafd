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

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/harryxbt/content-engine/internal/core/model"
)

// DefaultProbeCommand is used when no ffprobe binary is configured.
const DefaultProbeCommand = "ffprobe"

// CommandRunner runs a short-lived process and returns its standard output.
// On a non-zero exit the returned error should be (or wrap) an *exec.ExitError.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the CommandRunner backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  *probeFormat  `json:"format"`
}

// Prober inspects media files with ffprobe.
type Prober struct {
	binary          string
	runner          CommandRunner
	fallbackOnError bool
}

// ProberOption customizes a Prober.
type ProberOption func(*Prober)

// WithRunner replaces the process runner, mostly for tests.
func WithRunner(runner CommandRunner) ProberOption {
	return func(p *Prober) {
		if runner != nil {
			p.runner = runner
		}
	}
}

// WithFallbackOnError makes Probe absorb probe failures and return the
// default duration instead of an error.
func WithFallbackOnError(enabled bool) ProberOption {
	return func(p *Prober) {
		p.fallbackOnError = enabled
	}
}

// NewProber creates a Prober for the given binary, defaulting to ffprobe.
func NewProber(binary string, opts ...ProberOption) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultProbeCommand
	}
	p := &Prober{binary: binary, runner: ExecRunner{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns the duration and video dimensions of inputPath. A missing or
// zero duration is replaced with model.DefaultDurationSeconds.
func (p *Prober) Probe(ctx context.Context, inputPath string) (*model.MediaMetadata, error) {
	meta, err := p.inspect(ctx, inputPath)
	if err != nil {
		if !p.fallbackOnError {
			return nil, err
		}
		slog.WarnContext(ctx, "probe failed, using fallback duration",
			"path", inputPath, "fallback_seconds", model.DefaultDurationSeconds, "error", err)
		return &model.MediaMetadata{DurationSeconds: model.DefaultDurationSeconds, DurationFallback: true}, nil
	}
	if meta.DurationFallback {
		slog.WarnContext(ctx, "probe reported no duration, using fallback",
			"path", inputPath, "fallback_seconds", model.DefaultDurationSeconds)
	}
	return meta, nil
}

func (p *Prober) inspect(ctx context.Context, inputPath string) (*model.MediaMetadata, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return nil, &ProbeError{Err: errors.New("empty path")}
	}
	output, err := p.runner.Run(ctx, p.binary,
		"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", inputPath)
	if err != nil {
		probeErr := &ProbeError{Path: inputPath, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			probeErr.Stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, probeErr
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, &ProbeError{Path: inputPath, Err: fmt.Errorf("parse output: %w", err)}
	}

	meta := &model.MediaMetadata{}
	var video *probeStream
	for i := range result.Streams {
		if strings.EqualFold(result.Streams[i].CodecType, "video") {
			video = &result.Streams[i]
			break
		}
	}
	if video != nil {
		meta.Width = video.Width
		meta.Height = video.Height
	}

	duration := 0.0
	if result.Format != nil {
		duration = parseDuration(result.Format.Duration)
	}
	if duration <= 0 && video != nil {
		duration = parseDuration(video.Duration)
	}
	if duration <= 0 {
		duration = model.DefaultDurationSeconds
		meta.DurationFallback = true
	}
	meta.DurationSeconds = duration
	return meta, nil
}

// parseDuration returns 0 for empty, "N/A" and otherwise unusable values.
func parseDuration(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed < 0 {
		return 0
	}
	return parsed
}
