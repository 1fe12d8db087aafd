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

// Package api defines the HTTP routes of the compositor server.
//
// Functions:
//   - VideoRouter: POST /videos renders a captioned video.
//   - ScenarioRouter: GET /scenarios lists the library clips.
//   - Dashboard: GET /stats reports render slot usage.
//   - Health: GET /health.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
	"github.com/harryxbt/content-engine/internal/core/workflow"
)

// Renderer renders a single request.
type Renderer interface {
	Render(ctx context.Context, req *model.RenderRequest) (*model.RenderResult, error)
}

// ScenarioLister lists the clips available by name.
type ScenarioLister interface {
	Scenarios() ([]string, error)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	FailedStep string `json:"failed_step,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// StatusFor maps a render error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidRequest), errors.Is(err, services.ErrNotVideo):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrProbe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded) && workflow.FailedStep(err) == workflow.StepAdmission:
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the response body for err.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Error:      err.Error(),
		FailedStep: workflow.FailedStep(err),
		Detail:     workflow.StderrTail(err),
	}
}

// VideoRouter registers POST /videos. The output location is always chosen
// by the server.
func VideoRouter(r *gin.RouterGroup, renderer Renderer) {
	videos := r.Group("/videos")
	{
		videos.POST("", func(c *gin.Context) {
			var req model.RenderRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
				return
			}
			req.OutputPath = ""
			req.FontPath = ""

			res, err := renderer.Render(c.Request.Context(), &req)
			if err != nil {
				status := StatusFor(err)
				slog.WarnContext(c.Request.Context(), "render request failed", "status", status, "error", err)
				c.JSON(status, NewErrorResponse(err))
				return
			}
			c.JSON(http.StatusOK, res)
		})
	}
}

// ScenarioRouter registers GET /scenarios.
func ScenarioRouter(r *gin.RouterGroup, lister ScenarioLister) {
	r.GET("/scenarios", func(c *gin.Context) {
		names, err := lister.Scenarios()
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "failed to list scenarios", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "library unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scenarios": names})
	})
}

// Health registers GET /health on the engine root.
func Health(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
