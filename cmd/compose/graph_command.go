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
	"fmt"
	"strings"

	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
	"github.com/spf13/cobra"
)

// newGraphCommand prints the filter graph and encoder arguments for a
// caption without running anything.
func newGraphCommand() *cobra.Command {
	var caption, input, output string
	var duration float64
	var args bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the filter graph for a caption",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			g := config.Geometry
			layout, err := services.Layout(caption, g.MaxCharsPerLine, g.BannerHeight, g.LineHeight)
			if err != nil {
				return err
			}
			font := services.ResolveFont(config.Font.Path, config.Font.Fallbacks, config.Font.GenericFamily, services.FileExists)
			meta := &model.MediaMetadata{DurationSeconds: duration}
			trim := config.Trim.Fit(duration)
			nodes, err := services.BuildGraph(meta, layout, &g, trim, font)
			if err != nil {
				return err
			}
			if !args {
				for i := range nodes {
					fmt.Fprintln(cmd.OutOrStdout(), services.SerializeGraph(nodes[i:i+1]))
				}
				return nil
			}
			encoder := services.NewEncoder(config.Encoder, g.FrameRate)
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(encoder.Args(&model.EncodeRequest{
				InputPath:              input,
				OutputPath:             output,
				Pipeline:               nodes,
				TrimStartSeconds:       trim.StartSeconds,
				TrimmedDurationSeconds: trim.TrimmedDuration(duration),
				Font:                   font,
			}), "\n"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&caption, "caption", "c", "", "Caption text")
	cmd.Flags().Float64Var(&duration, "duration", model.DefaultDurationSeconds, "Source duration in seconds")
	cmd.Flags().BoolVar(&args, "args", false, "Print the full encoder argument list")
	cmd.Flags().StringVar(&input, "input", "input.mp4", "Input path used with --args")
	cmd.Flags().StringVar(&output, "output", "output.mp4", "Output path used with --args")
	return cmd
}

func newScenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the clips in the scenario library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			names, err := services.NewLibrary(config.Storage.LibraryPath).Scenarios()
			if err != nil {
				return err
			}
			return writeJSON(cmd, names)
		},
	}
}
