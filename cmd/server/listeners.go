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
	"context"
	"errors"
	"log/slog"

	"github.com/harryxbt/content-engine/internal/core/workflow"
)

// SetupListeners attaches the render trigger workflow to every configured
// subscription and starts each listener in the background.
func SetupListeners(ctx context.Context, s *StateManager) {
	if s.cloud == nil || len(s.cloud.PubSubListeners) == 0 {
		return
	}
	trigger := workflow.NewRenderTriggerWorkflow(s.compositor)
	for name, listener := range s.cloud.PubSubListeners {
		name, listener := name, listener
		listener.SetCommand(trigger)
		go func() {
			if err := listener.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("listener stopped", "listener", name, "error", err)
			}
		}()
	}
}
