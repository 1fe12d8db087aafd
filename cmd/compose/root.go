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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/harryxbt/content-engine/internal/cloud"
	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/workflow"
	"github.com/harryxbt/content-engine/internal/telemetry"
	"github.com/spf13/cobra"
)

type composeFlags struct {
	input     string
	url       string
	scenario  string
	output    string
	caption   string
	font      string
	batch     string
	trimStart float64
	trimEnd   float64
	verbose   bool
}

// loadConfig reads the TOML configuration, defaulting the directory to
// configs/ and the runtime to local.
func loadConfig() (*cloud.Config, error) {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		_ = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		_ = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return cloud.Load()
}

func (f *composeFlags) request(cmd *cobra.Command) *model.RenderRequest {
	req := &model.RenderRequest{
		InputPath:  f.input,
		InputURL:   f.url,
		Scenario:   f.scenario,
		OutputPath: f.output,
		Caption:    f.caption,
		FontPath:   f.font,
		BatchID:    f.batch,
	}
	if cmd.Flags().Changed("trim-start") || cmd.Flags().Changed("trim-end") {
		req.Trim = &model.Trim{StartSeconds: f.trimStart, EndSeconds: f.trimEnd}
	}
	return req
}

// newRootCommand builds the CLI. opts are passed to the compositor.
func newRootCommand(opts ...workflow.CompositorOption) *cobra.Command {
	flags := &composeFlags{}

	rootCmd := &cobra.Command{
		Use:           "compose",
		Short:         "Render a video under a caption banner",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if flags.verbose {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(telemetry.NewHandler(cmd.ErrOrStderr(), level)))

			config, err := loadConfig()
			if err != nil {
				return err
			}
			compositor := workflow.NewCompositor(config, nil, opts...)
			res, err := compositor.Render(cmd.Context(), flags.request(cmd))
			if err != nil {
				if tail := workflow.StderrTail(err); len(tail) > 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), tail)
				}
				var stepErr *workflow.StepError
				if errors.As(err, &stepErr) {
					return fmt.Errorf("render failed at %s: %w", stepErr.Step, stepErr.Err)
				}
				return err
			}
			return writeJSON(cmd, res)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&flags.input, "input", "i", "", "Local source video")
	f.StringVar(&flags.url, "url", "", "Remote source video (http or https)")
	f.StringVarP(&flags.scenario, "scenario", "s", "", "Library scenario name")
	f.StringVarP(&flags.output, "output", "o", "", "Output file (default: generated under storage.output_dir)")
	f.StringVarP(&flags.caption, "caption", "c", "", "Caption text")
	f.StringVar(&flags.font, "font", "", "Font file overriding font.path")
	f.StringVar(&flags.batch, "batch", "", "Batch id used in the generated output path")
	f.Float64Var(&flags.trimStart, "trim-start", 0, "Seconds removed from the start")
	f.Float64Var(&flags.trimEnd, "trim-end", 0, "Seconds removed from the end")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Log progress to stderr")
	rootCmd.MarkFlagsMutuallyExclusive("input", "url", "scenario")
	rootCmd.MarkFlagsOneRequired("input", "url", "scenario")

	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newScenariosCommand())
	return rootCmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
