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

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harryxbt/content-engine/internal/api"
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
	"github.com/harryxbt/content-engine/internal/core/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	last   *model.RenderRequest
	result *model.RenderResult
	err    error
}

func (f *fakeRenderer) Render(_ context.Context, req *model.RenderRequest) (*model.RenderResult, error) {
	f.last = req
	return f.result, f.err
}

type fakeLibrary struct {
	names []string
	err   error
}

func (f fakeLibrary) Scenarios() ([]string, error) { return f.names, f.err }

type fakeSlots struct{}

func (fakeSlots) InFlight() int64 { return 1 }
func (fakeSlots) Capacity() int64 { return 4 }

func newRouter(renderer api.Renderer, library api.ScenarioLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.Health(r)
	v1 := r.Group("/api/v1")
	api.VideoRouter(v1, renderer)
	api.ScenarioRouter(v1, library)
	api.Dashboard(v1, fakeSlots{})
	return r
}

func do(t *testing.T, r http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostVideo(t *testing.T) {
	renderer := &fakeRenderer{result: &model.RenderResult{
		ID:         "1f0c6b8e-4c1e-4a43-9f59-3f1b2c9d0a11",
		OutputPath: "/srv/output/2024-01-01/b/1f0c6b8e-4c1e-4a43-9f59-3f1b2c9d0a11.mp4",
		PublicURL:  "http://localhost:8080/output/2024-01-01/b/1f0c6b8e-4c1e-4a43-9f59-3f1b2c9d0a11.mp4",
	}}
	r := newRouter(renderer, fakeLibrary{})

	w := do(t, r, http.MethodPost, "/api/v1/videos",
		`{"scenario":"office","caption":"hi","output_path":"/etc/passwd","font_path":"/tmp/x.ttf"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res model.RenderResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, renderer.result.ID, res.ID)
	assert.Equal(t, renderer.result.PublicURL, res.PublicURL)

	assert.Equal(t, "office", renderer.last.Scenario)
	assert.Empty(t, renderer.last.OutputPath)
	assert.Empty(t, renderer.last.FontPath)
}

func TestPostVideoErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		step   string
	}{
		{"not found", &workflow.StepError{Step: workflow.StepSource, Err: fmt.Errorf("%w: /x.mp4", services.ErrVideoNotFound)}, http.StatusNotFound, workflow.StepSource},
		{"invalid", &workflow.StepError{Step: workflow.StepRequest, Err: services.ErrInvalidRequest}, http.StatusBadRequest, workflow.StepRequest},
		{"not video", &workflow.StepError{Step: workflow.StepSource, Err: services.ErrNotVideo}, http.StatusBadRequest, workflow.StepSource},
		{"probe", &workflow.StepError{Step: "probe", Err: &services.ProbeError{Path: "/x.mp4", Err: errors.New("exit status 1")}}, http.StatusUnprocessableEntity, "probe"},
		{"busy", &workflow.StepError{Step: workflow.StepAdmission, Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, workflow.StepAdmission},
		{"canceled", &workflow.StepError{Step: "encode", Err: context.Canceled}, http.StatusRequestTimeout, "encode"},
		{"encode", &workflow.StepError{Step: "encode", Err: &services.EncodeError{ExitCode: 1, StderrTail: "No such filter"}}, http.StatusInternalServerError, "encode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&fakeRenderer{err: tc.err}, fakeLibrary{})
			w := do(t, r, http.MethodPost, "/api/v1/videos", `{"input_path":"/x.mp4","caption":"hi"}`)
			assert.Equal(t, tc.status, w.Code)

			var body api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.step, body.FailedStep)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestPostVideoEncodeDetail(t *testing.T) {
	err := &workflow.StepError{Step: "encode", Err: &services.EncodeError{ExitCode: 1, StderrTail: "No such filter: 'drawtextx'"}}
	w := do(t, newRouter(&fakeRenderer{err: err}, fakeLibrary{}), http.MethodPost, "/api/v1/videos", `{"caption":"hi"}`)

	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "No such filter: 'drawtextx'", body.Detail)
}

func TestPostVideoRejectsMalformedBody(t *testing.T) {
	renderer := &fakeRenderer{}
	w := do(t, newRouter(renderer, fakeLibrary{}), http.MethodPost, "/api/v1/videos", `{"caption":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, renderer.last)
}

func TestScenarios(t *testing.T) {
	w := do(t, newRouter(&fakeRenderer{}, fakeLibrary{names: []string{"airport", "office"}}), http.MethodGet, "/api/v1/scenarios", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scenarios":["airport","office"]}`, w.Body.String())

	w = do(t, newRouter(&fakeRenderer{}, fakeLibrary{err: errors.New("gone")}), http.MethodGet, "/api/v1/scenarios", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthAndStats(t *testing.T) {
	r := newRouter(&fakeRenderer{}, fakeLibrary{})

	w := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"renders_in_flight":1,"render_capacity":4}`, w.Body.String())
}
