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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the records that flow between the
// commands of a render chain. They live only for the duration of a single
// render and are never shared between requests.
package model

import "math"

// DefaultDurationSeconds is substituted when a probe yields no usable duration.
const DefaultDurationSeconds = 30.0

// MinimumDurationSeconds is the floor applied to a trimmed duration.
const MinimumDurationSeconds = 1.0

// MediaMetadata is the normalized result of probing a source file.
type MediaMetadata struct {
	DurationSeconds  float64 `json:"duration_seconds"`
	Width            int     `json:"width,omitempty"`  // 0 when the probe reported no video stream.
	Height           int     `json:"height,omitempty"` // 0 when the probe reported no video stream.
	DurationFallback bool    `json:"duration_fallback,omitempty"`
}

// Trim holds the seconds removed from the head and tail of the source.
type Trim struct {
	StartSeconds float64 `json:"start_seconds" toml:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds" toml:"end_seconds"`
}

// Fit returns t when the offsets leave part of a clip of the given duration,
// and no trim at all when they would consume it.
func (t Trim) Fit(duration float64) Trim {
	if t.StartSeconds+t.EndSeconds >= duration {
		return Trim{}
	}
	return t
}

// TrimmedDuration returns the playable duration left after trimming,
// never less than MinimumDurationSeconds. Offsets that consume the whole
// clip are ignored.
func (t Trim) TrimmedDuration(duration float64) float64 {
	fit := t.Fit(duration)
	return math.Max(MinimumDurationSeconds, duration-fit.StartSeconds-fit.EndSeconds)
}

// CaptionLayout is the word-wrapped caption and its vertical placement inside the banner.
type CaptionLayout struct {
	Lines      []string `json:"lines"`
	LineHeight int      `json:"line_height"`
	StartY     int      `json:"start_y"` // May be negative when the caption overflows the banner.
}

// LineCenter returns the vertical center of line i measured from the banner top.
func (l *CaptionLayout) LineCenter(i int) int {
	return l.StartY + i*l.LineHeight + l.LineHeight/2
}

// FontRef names the font handed to the text renderer. Exactly one of File
// or Family is set.
type FontRef struct {
	File   string `json:"file,omitempty"`
	Family string `json:"family,omitempty"`
}

// IsFile reports whether the reference points at a font file on disk.
func (f FontRef) IsFile() bool {
	return len(f.File) > 0
}

// Geometry fixes the output canvas and the placement of every element on it.
type Geometry struct {
	CanvasWidth     int     `toml:"canvas_width"`       // Output width in pixels.
	CanvasHeight    int     `toml:"canvas_height"`      // Output height in pixels.
	BannerHeight    int     `toml:"banner_height"`      // Height of the caption banner at the top of the canvas.
	VideoOffset     int     `toml:"video_offset"`       // Vertical offset at which the source video is placed.
	FrameRate       int     `toml:"frame_rate"`         // Output frame rate.
	MaxCharsPerLine int     `toml:"max_chars_per_line"` // Word-wrap budget in characters.
	LineHeight      int     `toml:"line_height"`        // Vertical advance between caption lines.
	FontSize        int     `toml:"font_size"`          // Caption font size.
	BackgroundColor string  `toml:"background_color"`   // Canvas color behind the video.
	BannerColor     string  `toml:"banner_color"`       // Banner fill color.
	TextColor       string  `toml:"text_color"`         // Caption color.
	FadeInSeconds   float64 `toml:"fade_in_seconds"`    // Length of the fade from black at t=0.
}

// VideoHeight is the height of the region the source video is cropped to.
func (g *Geometry) VideoHeight() int {
	return g.CanvasHeight - g.VideoOffset
}

// DefaultGeometry returns the vertical 1080x1920 layout with a 346px banner.
func DefaultGeometry() Geometry {
	return Geometry{
		CanvasWidth:     1080,
		CanvasHeight:    1920,
		BannerHeight:    346,
		VideoOffset:     155,
		FrameRate:       30,
		MaxCharsPerLine: 30,
		LineHeight:      60,
		FontSize:        48,
		BackgroundColor: "black",
		BannerColor:     "white",
		TextColor:       "black",
		FadeInSeconds:   1,
	}
}
