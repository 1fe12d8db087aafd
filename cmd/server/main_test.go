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

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/workflow"
	test "github.com/harryxbt/content-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *StateManager {
	t.Helper()
	config := test.NewConfig(t)
	compositor := workflow.NewCompositor(config, nil, workflow.WithRunners(workflow.Runners{
		Probe:      &test.FakeRunner{Output: test.ProbeJSON(6, 1920, 1080)},
		Encode:     &test.FakeExecutor{},
		FontExists: func(string) bool { return false },
	}))
	return &StateManager{config: config, compositor: compositor}
}

func TestRouterRendersAndServesOutput(t *testing.T) {
	s := newTestState(t)
	test.WriteSampleVideo(t, filepath.Join(s.config.Storage.LibraryPath, "office.mp4"))
	router := NewRouter(s)

	body := `{"scenario":"office","caption":"Hello world","batch_id":"feedbeef"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res model.RenderResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, strings.HasPrefix(res.PublicURL, s.config.Storage.PublicBaseURL+"/output/"), res.PublicURL)
	assert.Contains(t, res.OutputPath, string(filepath.Separator)+"feedbeef"+string(filepath.Separator))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(res.PublicURL, s.config.Storage.PublicBaseURL), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, test.SampleMP4Header, w.Body.Bytes())
}

func TestRouterHealthAndScenarios(t *testing.T) {
	s := newTestState(t)
	test.WriteSampleVideo(t, filepath.Join(s.config.Storage.LibraryPath, "airport.mp4"))
	router := NewRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scenarios", nil))
	assert.JSONEq(t, `{"scenarios":["airport"]}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.JSONEq(t, `{"renders_in_flight":0,"render_capacity":2}`, w.Body.String())
}
