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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SlotReporter exposes render admission usage.
type SlotReporter interface {
	InFlight() int64
	Capacity() int64
}

// Dashboard registers GET /stats with the current render slot usage.
func Dashboard(r *gin.RouterGroup, slots SlotReporter) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"renders_in_flight": slots.InFlight(),
				"render_capacity":   slots.Capacity(),
			})
		})
	}
}
