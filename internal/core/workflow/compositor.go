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

// This file defines the Compositor, the single entry point for rendering a
// captioned video.
//
// Logic Flow:
//  1. Copy the request, give it an id and resolve its source (local path,
//     library scenario or remote URL).
//  2. Pick a collision-free output path under the output root.
//  3. Wait for an admission slot so the number of encoder processes stays
//     bounded.
//  4. Run the CaptionVideoWorkflow chain with a timeout and collect the step
//     timings into GenerationMetrics.
//  5. Return the first failing step as a StepError, or the result.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harryxbt/content-engine/internal/cloud"
	"github.com/harryxbt/content-engine/internal/core/commands"
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Steps reported for failures that happen outside the chain.
const (
	StepRequest   = "request"
	StepSource    = "source"
	StepAdmission = "admission"
)

// requiredSteps must all have run for a render to count as complete.
var requiredSteps = []string{commands.StepProbe, commands.StepLayout, commands.StepGraph, commands.StepEncode}

// Compositor renders captioned videos. It is safe for concurrent use.
type Compositor struct {
	config    *cloud.Config
	workflow  *CaptionVideoWorkflow
	admission *Admission
	locator   *services.OutputLocator
	library   *services.Library
	tracer    trace.Tracer
	now       func() time.Time
	gcsInput  bool
}

type compositorOptions struct {
	runners Runners
	now     func() time.Time
}

// CompositorOption customizes a Compositor.
type CompositorOption func(*compositorOptions)

// WithRunners replaces the process backends, mostly for tests.
func WithRunners(runners Runners) CompositorOption {
	return func(o *compositorOptions) {
		o.runners = runners
	}
}

// WithClock replaces time.Now for output path dating.
func WithClock(now func() time.Time) CompositorOption {
	return func(o *compositorOptions) {
		o.now = now
	}
}

// NewCompositor wires a Compositor from config. serviceClients may be nil,
// in which case nothing is published to Cloud Storage or BigQuery.
func NewCompositor(config *cloud.Config, serviceClients *cloud.ServiceClients, opts ...CompositorOption) *Compositor {
	o := &compositorOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return &Compositor{
		config:    config,
		workflow:  NewCaptionVideoWorkflow(config, serviceClients, o.runners),
		admission: NewAdmission(config.Render.MaxConcurrent, config.Render.SpawnsPerSecond),
		locator:   services.NewOutputLocator(config.Storage.OutputDir, config.Storage.PublicBaseURL),
		library:   services.NewLibrary(config.Storage.LibraryPath),
		tracer:    otel.Tracer("compositor"),
		now:       o.now,
		gcsInput:  config.Storage.GCSInput && serviceClients != nil && serviceClients.StorageClient != nil,
	}
}

// Library returns the scenario library the compositor resolves from.
func (c *Compositor) Library() *services.Library {
	return c.library
}

// Admission exposes the render slots, for health reporting.
func (c *Compositor) Admission() *Admission {
	return c.admission
}

// Workflow returns the underlying chain.
func (c *Compositor) Workflow() *CaptionVideoWorkflow {
	return c.workflow
}

// Render produces the captioned video described by req. Errors are
// *StepError values naming the failed step; the original typed error
// (ProbeError, EncodeError...) is reachable with errors.As.
func (c *Compositor) Render(ctx context.Context, req *model.RenderRequest) (*model.RenderResult, error) {
	if req == nil {
		return nil, &StepError{Step: StepRequest, Err: fmt.Errorf("%w: missing request", services.ErrInvalidRequest)}
	}
	// Total render time includes the wait for a render slot.
	start := time.Now()
	r := *req
	if _, err := uuid.Parse(r.ID); err != nil {
		r.ID = uuid.NewString()
	}
	if r.Trim != nil && (r.Trim.StartSeconds < 0 || r.Trim.EndSeconds < 0) {
		return nil, &StepError{Step: StepRequest, Err: fmt.Errorf("%w: trim offsets cannot be negative", services.ErrInvalidRequest)}
	}

	source, err := c.resolveSource(&r)
	if err != nil {
		return nil, &StepError{Step: StepSource, Err: err}
	}
	if len(r.OutputPath) == 0 {
		r.OutputPath = c.locator.NewPath(r.ID, r.BatchID, c.now())
	}

	release, err := c.admission.Acquire(ctx)
	if err != nil {
		return nil, &StepError{Step: StepAdmission, Err: err}
	}
	defer release()

	if secs := c.config.Encoder.TimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}
	spanCtx, span := c.tracer.Start(ctx, "render")
	defer span.End()
	span.SetAttributes(attribute.String("render.id", r.ID), attribute.String("render.output", r.OutputPath))

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(spanCtx)
	chainCtx.Add(commands.RenderRequestParam, &r)
	chainCtx.Add(commands.StartTimeParam, start)
	chainCtx.Add(commands.OutputPathParam, r.OutputPath)
	if len(source) > 0 {
		chainCtx.Add(commands.SourcePathParam, source)
	}

	c.workflow.Execute(chainCtx)

	if err := c.checkCompleted(chainCtx); err != nil {
		if FailedStep(err) == commands.StepEncode {
			_ = os.Remove(r.OutputPath)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		slog.ErrorContext(spanCtx, "render failed", "id", r.ID, "step", FailedStep(err), "error", err)
		return nil, err
	}

	uri, _ := chainCtx.Get(commands.ObjectURIParam).(string)
	out := &model.RenderResult{
		ID:         r.ID,
		OutputPath: r.OutputPath,
		PublicURL:  c.locator.PublicURL(r.OutputPath),
		ObjectURI:  uri,
		Metrics:    commands.CollectMetrics(chainCtx),
	}
	span.SetStatus(codes.Ok, "render completed")
	slog.InfoContext(spanCtx, "render completed",
		"id", out.ID,
		"output", out.OutputPath,
		"total_ms", out.Metrics.TotalDurationMs,
		"video_sec", out.Metrics.VideoDurationSec)
	return out, nil
}

// resolveSource picks the local file to render from. Remote URLs are left
// to the fetch step and yield "".
func (c *Compositor) resolveSource(r *model.RenderRequest) (string, error) {
	if isURL(r.InputPath) && len(r.InputURL) == 0 {
		r.InputURL, r.InputPath = r.InputPath, ""
	}
	given := 0
	for _, s := range []string{r.InputPath, r.InputURL, r.Scenario} {
		if len(strings.TrimSpace(s)) > 0 {
			given++
		}
	}
	if given != 1 {
		return "", fmt.Errorf("%w: exactly one of input_path, video_url or scenario is required", services.ErrInvalidRequest)
	}

	switch {
	case len(r.InputURL) > 0:
		if strings.HasPrefix(r.InputURL, commands.GCSScheme) {
			if !c.gcsInput {
				return "", fmt.Errorf("%w: gs:// sources are not enabled", services.ErrInvalidRequest)
			}
			_, _, err := commands.ParseGCSURI(r.InputURL)
			return "", err
		}
		if !services.IsRemote(r.InputURL) {
			return "", fmt.Errorf("%w: not an http(s) url: %q", services.ErrInvalidRequest, r.InputURL)
		}
		return "", nil
	case len(r.Scenario) > 0:
		return c.library.Resolve(r.Scenario)
	default:
		info, err := os.Stat(r.InputPath)
		if err != nil {
			return "", fmt.Errorf("%w: %s", services.ErrVideoNotFound, r.InputPath)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", services.ErrInvalidRequest, r.InputPath)
		}
		return r.InputPath, nil
	}
}

func isURL(s string) bool {
	return services.IsRemote(s) || strings.HasPrefix(s, commands.GCSScheme)
}

// checkCompleted turns the chain outcome into an error: the first recorded
// failure, or the first required step that never ran.
func (c *Compositor) checkCompleted(chainCtx cor.Context) error {
	if name, err := chainCtx.FirstError(); err != nil {
		return &StepError{Step: name, Err: err}
	}
	ran := make(map[string]bool)
	for _, step := range chainCtx.GetSteps() {
		ran[step.Name] = true
	}
	for _, step := range requiredSteps {
		if !ran[step] {
			return &StepError{Step: step, Err: errors.New("step did not run")}
		}
	}
	return nil
}
