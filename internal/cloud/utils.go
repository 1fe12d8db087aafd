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

package cloud

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ConfigFileBaseName  = ".env"                         // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"                        // The file extension for configuration files.
	ConfigSeparator     = "."                            // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "CONTENT_ENGINE_CONFIG_PREFIX" // Directory holding the configuration files.
	EnvConfigRuntime    = "CONTENT_ENGINE_RUNTIME"       // Runtime overlay to apply (e.g., "local", "test", "prod").
)

// Environment variables overriding individual settings.
const (
	EnvFontPath      = "FONT_PATH"
	EnvOutputDir     = "OUTPUT_DIR"
	EnvLibraryPath   = "LIBRARY_PATH"
	EnvPublicBaseURL = "PUBLIC_BASE_URL"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig decodes the base file (.env.toml) and then the runtime overlay
// (.env.<runtime>.toml) into baseConfig. Missing files are skipped; values in
// the overlay win.
func LoadConfig(baseConfig interface{}) error {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	for _, fileName := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(fileName) {
			slog.Debug("configuration file not found, skipping", "file", fileName)
			continue
		}
		if _, err := toml.DecodeFile(fileName, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", fileName, err)
		}
		slog.Info("loaded configuration", "file", fileName)
	}
	return nil
}

// ApplyEnvironment overrides file settings with FONT_PATH, OUTPUT_DIR,
// LIBRARY_PATH and PUBLIC_BASE_URL when they are set.
func (c *Config) ApplyEnvironment() {
	if v, ok := os.LookupEnv(EnvFontPath); ok && len(v) > 0 {
		c.Font.Path = v
	}
	if v, ok := os.LookupEnv(EnvOutputDir); ok && len(v) > 0 {
		c.Storage.OutputDir = v
	}
	if v, ok := os.LookupEnv(EnvLibraryPath); ok && len(v) > 0 {
		c.Storage.LibraryPath = v
	}
	if v, ok := os.LookupEnv(EnvPublicBaseURL); ok && len(v) > 0 {
		c.Storage.PublicBaseURL = strings.TrimRight(v, "/")
	}
}

// Load builds a Config from defaults, TOML files and environment overrides,
// then validates it.
func Load() (*Config, error) {
	config := NewConfig()
	if err := LoadConfig(config); err != nil {
		return nil, err
	}
	config.ApplyEnvironment()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
