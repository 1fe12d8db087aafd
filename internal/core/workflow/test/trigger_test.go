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

package workflow_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/workflow"
	test "github.com/harryxbt/content-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTriggerWorkflow(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "render-trigger")
	defer span.End()

	h := newHarness(t, nil)
	h.probe.Output = test.ProbeJSON(10, 1920, 1080)
	test.WriteSampleVideo(t, filepath.Join(h.config.Storage.LibraryPath, "sample.mp4"))

	trigger := workflow.NewRenderTriggerWorkflow(h.compositor)
	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(traceCtx)
	chainCtx.Add(cor.CtxIn, test.GetTestRenderMessageText())

	trigger.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors(), "%v", chainCtx.GetErrors())
	res, ok := chainCtx.Get(cor.CtxIn).(*model.RenderResult)
	require.True(t, ok)
	assert.FileExists(t, res.OutputPath)
	assert.Contains(t, res.OutputPath, string(filepath.Separator)+"a1b2c3d4"+string(filepath.Separator))
	assert.Equal(t, 8.0, res.Metrics.VideoDurationSec)
}

func TestRenderTriggerWorkflowRejectsBadMessage(t *testing.T) {
	h := newHarness(t, nil)
	trigger := workflow.NewRenderTriggerWorkflow(h.compositor)

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, "{not json")

	trigger.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	name, err := chainCtx.FirstError()
	assert.Equal(t, "render-request-reader", name)
	assert.Error(t, err)
	assert.Empty(t, h.encoder.Calls())
}

func TestRenderTriggerIgnoresOutputPath(t *testing.T) {
	h := newHarness(t, nil)
	elsewhere := filepath.Join(t.TempDir(), "elsewhere.mp4")

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, &model.RenderRequest{InputPath: h.input, OutputPath: elsewhere, Caption: "Queued"})

	cmd := workflow.NewRenderCommand("render", h.compositor)
	require.True(t, cmd.IsExecutable(chainCtx))
	cmd.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	res := chainCtx.Get(cor.CtxOut).(*model.RenderResult)
	assert.NotEqual(t, elsewhere, res.OutputPath)
	assert.NoFileExists(t, elsewhere)
}

func TestAdmission(t *testing.T) {
	a := workflow.NewAdmission(2, 0)
	assert.Equal(t, int64(2), a.Capacity())

	r1, err := a.Acquire(ctx)
	require.NoError(t, err)
	r2, ok := a.TryAcquire()
	require.True(t, ok)
	_, ok = a.TryAcquire()
	assert.False(t, ok, "both slots are taken")
	assert.Equal(t, int64(2), a.InFlight())

	r1()
	r1() // releasing twice is harmless
	assert.Equal(t, int64(1), a.InFlight())
	r2()
	assert.Equal(t, int64(0), a.InFlight())

	// a non-positive size still admits one render at a time
	assert.Equal(t, int64(1), workflow.NewAdmission(0, 0).Capacity())
}

func TestAdmissionRateLimit(t *testing.T) {
	a := workflow.NewAdmission(4, 20)
	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := a.Acquire(ctx)
		require.NoError(t, err)
		release()
	}
	// burst of one, then 50ms per spawn
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
