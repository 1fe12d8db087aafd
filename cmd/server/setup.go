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

// This file holds the server state: configuration, cloud clients and the
// compositor shared by the HTTP routes and the Pub/Sub listeners.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harryxbt/content-engine/internal/cloud"
	"github.com/harryxbt/content-engine/internal/core/workflow"
)

// StateManager holds the shared dependencies of the server.
type StateManager struct {
	config     *cloud.Config
	cloud      *cloud.ServiceClients
	compositor *workflow.Compositor
}

var state = &StateManager{}

// SetupOS defaults the configuration directory to configs/ and the runtime
// to local, unless the environment already says otherwise.
func SetupOS() error {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads the configuration once.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to setup os: %w", err)
		}
		config, err := cloud.Load()
		if err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

// InitState creates the cloud clients the configuration asks for and the
// compositor.
func InitState(ctx context.Context) error {
	config, err := GetConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(config.Storage.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients
	state.compositor = workflow.NewCompositor(config, cloudClients)
	return nil
}
