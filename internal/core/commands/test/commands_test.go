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

package commands_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harryxbt/content-engine/internal/core/commands"
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
	test "github.com/harryxbt/content-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	return ctx
}

func TestRenderRequestReader(t *testing.T) {
	reader := commands.NewRenderRequestReader("reader")
	ctx := newContext()
	ctx.Add(cor.CtxIn, test.GetTestRenderMessageText())

	require.True(t, reader.IsExecutable(ctx))
	reader.Execute(ctx)
	require.False(t, ctx.HasErrors())

	req := ctx.Get(cor.CtxOut).(*model.RenderRequest)
	assert.Equal(t, "sample", req.Scenario)
	assert.Equal(t, "a1b2c3d4", req.BatchID)
	require.NotNil(t, req.Trim)
	assert.Equal(t, model.Trim{StartSeconds: 1, EndSeconds: 1}, *req.Trim)
}

func TestRenderRequestReaderErrors(t *testing.T) {
	for name, input := range map[string]interface{}{
		"not json":   "{caption",
		"wrong type": 42,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := newContext()
			ctx.Add(cor.CtxIn, input)
			commands.NewRenderRequestReader("reader").Execute(ctx)
			key, err := ctx.FirstError()
			assert.Equal(t, "reader", key)
			assert.Error(t, err)
			assert.Nil(t, ctx.Get(cor.CtxOut))
		})
	}
}

func TestCaptionLayout(t *testing.T) {
	geometry := model.DefaultGeometry()
	layout := commands.NewCaptionLayout(commands.StepLayout, geometry)

	ctx := newContext()
	assert.False(t, layout.IsExecutable(ctx))

	ctx.Add(commands.RenderRequestParam, &model.RenderRequest{Caption: "Hello world"})
	layout.Execute(ctx)
	out := ctx.Get(commands.LayoutParam).(*model.CaptionLayout)
	assert.Equal(t, []string{"Hello world"}, out.Lines)
	assert.Equal(t, 143, out.StartY)

	bad := model.DefaultGeometry()
	bad.LineHeight = 0
	ctx = newContext()
	ctx.Add(commands.RenderRequestParam, &model.RenderRequest{Caption: "x"})
	commands.NewCaptionLayout(commands.StepLayout, bad).Execute(ctx)
	_, err := ctx.FirstError()
	assert.True(t, errors.Is(err, services.ErrLayout))
}

func graphContext(req *model.RenderRequest) cor.Context {
	g := model.DefaultGeometry()
	layout, _ := services.Layout(req.Caption, g.MaxCharsPerLine, g.BannerHeight, g.LineHeight)
	ctx := newContext()
	ctx.Add(commands.RenderRequestParam, req)
	ctx.Add(commands.SourcePathParam, "/videos/in.mp4")
	ctx.Add(commands.OutputPathParam, "/out/2024-01-01/b/id.mp4")
	ctx.Add(commands.MetadataParam, &model.MediaMetadata{DurationSeconds: 20})
	ctx.Add(commands.LayoutParam, layout)
	return ctx
}

func TestFilterGraphBuilderDefaults(t *testing.T) {
	font := model.FontSettings{Path: "/fonts/configured.ttf", Fallbacks: []string{"/fonts/fallback.ttf"}}
	builder := commands.NewFilterGraphBuilder(commands.StepGraph, model.DefaultGeometry(), font, model.Trim{StartSeconds: 2, EndSeconds: 3}).
		WithFileCheck(func(path string) bool { return path == "/fonts/fallback.ttf" })

	ctx := graphContext(&model.RenderRequest{Caption: "Hello world"})
	require.True(t, builder.IsExecutable(ctx))
	builder.Execute(ctx)
	require.False(t, ctx.HasErrors())

	req := ctx.Get(commands.EncodeRequestParam).(*model.EncodeRequest)
	assert.Equal(t, "/videos/in.mp4", req.InputPath)
	assert.Equal(t, "/out/2024-01-01/b/id.mp4", req.OutputPath)
	assert.Equal(t, 2.0, req.TrimStartSeconds)
	assert.Equal(t, 15.0, req.TrimmedDurationSeconds)
	assert.Equal(t, model.FontRef{File: "/fonts/fallback.ttf"}, req.Font)
	assert.NoError(t, services.ValidateGraph(req.Pipeline))
}

func TestFilterGraphBuilderRequestOverrides(t *testing.T) {
	font := model.FontSettings{Path: "/fonts/configured.ttf"}
	builder := commands.NewFilterGraphBuilder(commands.StepGraph, model.DefaultGeometry(), font, model.Trim{StartSeconds: 2, EndSeconds: 3}).
		WithFileCheck(func(path string) bool { return path == "/fonts/configured.ttf" })

	ctx := graphContext(&model.RenderRequest{
		Caption:  "Hello world",
		FontPath: "/fonts/missing.ttf",
		Trim:     &model.Trim{StartSeconds: 0, EndSeconds: 19.5},
	})
	builder.Execute(ctx)

	req := ctx.Get(commands.EncodeRequestParam).(*model.EncodeRequest)
	assert.Equal(t, 0.0, req.TrimStartSeconds)
	assert.Equal(t, model.MinimumDurationSeconds, req.TrimmedDurationSeconds)
	assert.Equal(t, "/fonts/configured.ttf", req.Font.File, "configured font is the first fallback")
}

func TestFilterGraphBuilderIgnoresTrimLongerThanClip(t *testing.T) {
	builder := commands.NewFilterGraphBuilder(commands.StepGraph, model.DefaultGeometry(), model.FontSettings{}, model.Trim{}).
		WithFileCheck(func(string) bool { return false })
	ctx := graphContext(&model.RenderRequest{Caption: "Hello world", Trim: &model.Trim{StartSeconds: 5, EndSeconds: 1}})
	ctx.Add(commands.MetadataParam, &model.MediaMetadata{DurationSeconds: 4})
	builder.Execute(ctx)
	require.False(t, ctx.HasErrors())

	req := ctx.Get(commands.EncodeRequestParam).(*model.EncodeRequest)
	assert.Equal(t, 0.0, req.TrimStartSeconds)
	assert.Equal(t, 4.0, req.TrimmedDurationSeconds)
	assert.Equal(t, "4", req.Pipeline[2].Params.Get("d"))
}

func TestFilterGraphBuilderGenericFont(t *testing.T) {
	builder := commands.NewFilterGraphBuilder(commands.StepGraph, model.DefaultGeometry(), model.FontSettings{}, model.Trim{}).
		WithFileCheck(func(string) bool { return false })
	ctx := graphContext(&model.RenderRequest{Caption: "Hello world"})
	builder.Execute(ctx)

	req := ctx.Get(commands.EncodeRequestParam).(*model.EncodeRequest)
	assert.Equal(t, services.GenericFontFamily, req.Font.Family)
	assert.Contains(t, services.SerializeGraph(req.Pipeline), "font="+services.GenericFontFamily)
}

func TestMediaProbe(t *testing.T) {
	runner := &test.FakeRunner{Output: test.ProbeJSON(8, 1280, 720)}
	probe := commands.NewMediaProbe(commands.StepProbe, services.NewProber("ffprobe", services.WithRunner(runner)))

	ctx := newContext()
	ctx.Add(commands.SourcePathParam, "/videos/in.mp4")
	probe.Execute(ctx)
	meta := ctx.Get(commands.MetadataParam).(*model.MediaMetadata)
	assert.Equal(t, 8.0, meta.DurationSeconds)

	failing := commands.NewMediaProbe(commands.StepProbe,
		services.NewProber("ffprobe", services.WithRunner(&test.FakeRunner{Err: &test.ExitError{Code: 1}})))
	ctx = newContext()
	ctx.Add(commands.SourcePathParam, "/videos/in.mp4")
	failing.Execute(ctx)
	key, err := ctx.FirstError()
	assert.Equal(t, commands.StepProbe, key)
	assert.True(t, errors.Is(err, services.ErrProbe))
}

func TestMediaFetchOnlyRunsForURLs(t *testing.T) {
	fetch := commands.NewMediaFetch(commands.StepFetch, services.NewFetcher("ffmpeg", time.Second, &test.FakeRunner{}))

	ctx := newContext()
	ctx.Add(commands.RenderRequestParam, &model.RenderRequest{InputPath: "/videos/in.mp4"})
	assert.False(t, fetch.IsExecutable(ctx))

	ctx.Add(commands.RenderRequestParam, &model.RenderRequest{InputURL: "https://example.com/a.mp4"})
	assert.True(t, fetch.IsExecutable(ctx))
}

func TestVideoEncode(t *testing.T) {
	out := filepath.Join(t.TempDir(), "d", "b", "id.mp4")
	ctx := graphContext(&model.RenderRequest{Caption: "Hello world"})
	ctx.Add(commands.OutputPathParam, out)
	commands.NewFilterGraphBuilder(commands.StepGraph, model.DefaultGeometry(), model.FontSettings{}, model.Trim{}).
		WithFileCheck(func(string) bool { return false }).Execute(ctx)

	executor := &test.FakeExecutor{Stderr: []string{"frame=  10", "frame=  20"}}
	encode := commands.NewVideoEncode(commands.StepEncode, model.DefaultEncoderSettings(), 30, executor)
	ctx.Remove(commands.OutputPathParam)
	require.True(t, encode.IsExecutable(ctx))
	encode.Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Equal(t, out, ctx.Get(commands.OutputPathParam))
	assert.Equal(t, out, ctx.Get(cor.CtxOut))
	assert.FileExists(t, out)
}

func TestGCSHelpers(t *testing.T) {
	bucket, object, err := commands.ParseGCSURI("gs://media/in/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "media", bucket)
	assert.Equal(t, "in/clip.mp4", object)

	for _, uri := range []string{"gs://", "gs://bucket", "gs:///object", "https://x/y"} {
		_, _, err := commands.ParseGCSURI(uri)
		assert.True(t, errors.Is(err, services.ErrInvalidRequest), uri)
	}

	root := filepath.Join("/srv", "output")
	assert.Equal(t, "2024-01-01/b/id.mp4", commands.ObjectName(root, filepath.Join(root, "2024-01-01", "b", "id.mp4")))
	assert.Equal(t, "id.mp4", commands.ObjectName(root, "/elsewhere/id.mp4"))

	download := commands.NewGCSToTempFile(commands.StepFetch, nil, "source-")
	ctx := newContext()
	ctx.Add(commands.RenderRequestParam, &model.RenderRequest{InputURL: "gs://media/clip.mp4"})
	assert.False(t, download.IsExecutable(ctx), "no client configured")
}

func TestCollectMetrics(t *testing.T) {
	ctx := newContext()
	ctx.Add(commands.StartTimeParam, time.Now().Add(-250*time.Millisecond))
	ctx.Add(commands.MetadataParam, &model.MediaMetadata{DurationSeconds: 30, DurationFallback: true})
	ctx.Add(commands.EncodeRequestParam, &model.EncodeRequest{TrimmedDurationSeconds: 28})
	ctx.RecordStep(commands.StepProbe, 12*time.Millisecond)
	ctx.RecordStep(commands.StepEncode, 1500*time.Millisecond)

	metrics := commands.CollectMetrics(ctx)
	assert.GreaterOrEqual(t, metrics.TotalDurationMs, int64(250))
	assert.Equal(t, 28.0, metrics.VideoDurationSec)
	assert.True(t, metrics.DurationFallback)

	encode, ok := metrics.Step(commands.StepEncode)
	require.True(t, ok)
	assert.Equal(t, int64(1500), encode.DurationMs)
	_, ok = metrics.Step(commands.StepLayout)
	assert.False(t, ok)

	names := make([]string, 0)
	for _, s := range metrics.Steps {
		names = append(names, s.Step)
	}
	assert.Equal(t, "probe,encode", strings.Join(names, ","))
}
