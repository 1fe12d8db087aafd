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

package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/harryxbt/content-engine/internal/core/model"
)

// Stage labels of the composition graph, in the order they are defined.
const (
	LabelScaledSource = "src_scaled"
	LabelScaled       = "scaled"
	LabelBackground   = "bg"
	LabelBannerCanvas = "banner_bg"
	LabelBanner       = "banner"
	LabelWithVideo    = "with_video"
	LabelComposed     = "composed"
	LabelOut          = model.OutputLabel
)

// StageSeparator joins serialized nodes into a single graph description.
const StageSeparator = ";"

// optionEscaper escapes characters significant to the filter option parser.
var optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)

// graphEscaper escapes characters significant to the graph parser.
var graphEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)

// EscapeText prepares a value for embedding as a filter option inside a
// filter graph. The graph parser strips one level of escaping and the option
// parser strips the next, so both levels are applied here. The option parser
// drops unescaped whitespace at either end of a value, so leading and
// trailing spaces are escaped as well.
func EscapeText(value string) string {
	return graphEscaper.Replace(escapeOption(value))
}

// escapeOption applies the option level of escaping.
func escapeOption(value string) string {
	body := strings.TrimLeft(value, " ")
	lead := len(value) - len(body)
	trimmed := strings.TrimRight(body, " ")
	trail := len(body) - len(trimmed)
	return strings.Repeat(`\ `, lead) + optionEscaper.Replace(trimmed) + strings.Repeat(`\ `, trail)
}

// BuildGraph composes the pipeline that crops the source into the video
// region, draws the caption banner above it and fades the result in.
func BuildGraph(
	meta *model.MediaMetadata,
	layout *model.CaptionLayout,
	geometry *model.Geometry,
	trim model.Trim,
	font model.FontRef,
) ([]model.PipelineNode, error) {
	if meta == nil || layout == nil || geometry == nil {
		return nil, &GraphBuildError{Label: LabelOut, Reason: "metadata, layout and geometry are required"}
	}
	width := strconv.Itoa(geometry.CanvasWidth)
	videoHeight := strconv.Itoa(geometry.VideoHeight())
	duration := formatSeconds(trim.TrimmedDuration(meta.DurationSeconds))
	fps := strconv.Itoa(geometry.FrameRate)

	nodes := []model.PipelineNode{
		{
			Label:     LabelScaledSource,
			Operation: model.Scale,
			Inputs:    []string{model.SourceVideo},
			Params: model.Params{
				{Key: "w", Value: width},
				{Key: "h", Value: videoHeight},
				{Key: "force_original_aspect_ratio", Value: "increase"},
			},
		},
		{
			Label:     LabelScaled,
			Operation: model.Crop,
			Inputs:    []string{LabelScaledSource},
			Params: model.Params{
				{Key: "w", Value: width},
				{Key: "h", Value: videoHeight},
				{Key: "x", Value: "(iw-ow)/2"},
				{Key: "y", Value: "(ih-oh)/2"},
			},
		},
		{
			Label:     LabelBackground,
			Operation: model.SolidColor,
			Params: model.Params{
				{Key: "c", Value: geometry.BackgroundColor},
				{Key: "s", Value: fmt.Sprintf("%dx%d", geometry.CanvasWidth, geometry.CanvasHeight)},
				{Key: "r", Value: fps},
				{Key: "d", Value: duration},
			},
		},
		{
			Label:     LabelBannerCanvas,
			Operation: model.SolidColor,
			Params: model.Params{
				{Key: "c", Value: geometry.BannerColor},
				{Key: "s", Value: fmt.Sprintf("%dx%d", geometry.CanvasWidth, geometry.BannerHeight)},
				{Key: "r", Value: fps},
				{Key: "d", Value: duration},
			},
		},
	}

	nodes = append(nodes, textNodes(layout, geometry, font)...)

	nodes = append(nodes,
		model.PipelineNode{
			Label:     LabelWithVideo,
			Operation: model.Overlay,
			Inputs:    []string{LabelBackground, LabelScaled},
			Params: model.Params{
				{Key: "x", Value: "0"},
				{Key: "y", Value: strconv.Itoa(geometry.VideoOffset)},
				{Key: "shortest", Value: "1"},
			},
		},
		model.PipelineNode{
			Label:     LabelComposed,
			Operation: model.Overlay,
			Inputs:    []string{LabelWithVideo, LabelBanner},
			Params: model.Params{
				{Key: "x", Value: "0"},
				{Key: "y", Value: "0"},
			},
		},
		model.PipelineNode{
			Label:     LabelOut,
			Operation: model.Fade,
			Inputs:    []string{LabelComposed},
			Params: model.Params{
				{Key: "t", Value: "in"},
				{Key: "st", Value: "0"},
				{Key: "d", Value: formatSeconds(geometry.FadeInSeconds)},
			},
		},
	)

	if err := ValidateGraph(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// textNodes chains one DrawText stage per non-empty caption line onto the
// banner canvas. The last stage is labeled banner. With nothing to draw a
// full-frame crop passes the canvas through under the banner label.
func textNodes(layout *model.CaptionLayout, geometry *model.Geometry, font model.FontRef) []model.PipelineNode {
	type placed struct {
		text   string
		center int
	}
	var lines []placed
	for i, line := range layout.Lines {
		if len(line) == 0 {
			continue
		}
		lines = append(lines, placed{text: line, center: layout.LineCenter(i)})
	}

	if len(lines) == 0 {
		return []model.PipelineNode{{
			Label:     LabelBanner,
			Operation: model.Crop,
			Inputs:    []string{LabelBannerCanvas},
			Params: model.Params{
				{Key: "w", Value: "iw"},
				{Key: "h", Value: "ih"},
			},
		}}
	}

	fontParam := model.Param{Key: "font", Value: EscapeText(font.Family)}
	if font.IsFile() {
		fontParam = model.Param{Key: "fontfile", Value: EscapeText(font.File)}
	}

	out := make([]model.PipelineNode, 0, len(lines))
	previous := LabelBannerCanvas
	for i, line := range lines {
		label := fmt.Sprintf("banner_l%d", i)
		if i == len(lines)-1 {
			label = LabelBanner
		}
		out = append(out, model.PipelineNode{
			Label:     label,
			Operation: model.DrawText,
			Inputs:    []string{previous},
			Params: model.Params{
				fontParam,
				{Key: "text", Value: EscapeText(line.text)},
				{Key: "expansion", Value: "none"},
				{Key: "fontsize", Value: strconv.Itoa(geometry.FontSize)},
				{Key: "fontcolor", Value: geometry.TextColor},
				{Key: "x", Value: "(w-text_w)/2"},
				{Key: "y", Value: fmt.Sprintf("%d-text_h/2", line.center)},
			},
		})
		previous = label
	}
	return out
}

// ValidateGraph checks that labels are unique, that every input refers to a
// label defined earlier (or the source stream) and that the graph ends in out.
func ValidateGraph(nodes []model.PipelineNode) error {
	if len(nodes) == 0 {
		return &GraphBuildError{Label: LabelOut, Reason: "graph is empty"}
	}
	defined := map[string]bool{model.SourceVideo: true}
	for _, node := range nodes {
		if len(node.Label) == 0 {
			return &GraphBuildError{Reason: "empty label"}
		}
		if defined[node.Label] {
			return &GraphBuildError{Label: node.Label, Reason: "label defined more than once"}
		}
		for _, input := range node.Inputs {
			if input == node.Label {
				return &GraphBuildError{Label: node.Label, Reason: "node consumes its own output"}
			}
			if !defined[input] {
				return &GraphBuildError{Label: node.Label, Reason: fmt.Sprintf("input %q is not defined before use", input)}
			}
		}
		defined[node.Label] = true
	}
	if last := nodes[len(nodes)-1].Label; last != LabelOut {
		return &GraphBuildError{Label: last, Reason: "terminal label must be " + LabelOut}
	}
	return nil
}

// SerializeGraph renders nodes as a filter graph description. Node order is
// preserved.
func SerializeGraph(nodes []model.PipelineNode) string {
	stages := make([]string, 0, len(nodes))
	for _, node := range nodes {
		var b strings.Builder
		for _, input := range node.Inputs {
			b.WriteString("[" + input + "]")
		}
		b.WriteString(node.Operation.Filter())
		if len(node.Params) > 0 {
			b.WriteString("=" + node.Params.String())
		}
		b.WriteString("[" + node.Label + "]")
		stages = append(stages, b.String())
	}
	return strings.Join(stages, StageSeparator)
}

// formatSeconds prints seconds with at most millisecond precision.
func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(math.Round(seconds*1000)/1000, 'f', -1, 64)
}
