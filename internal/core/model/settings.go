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

package model

// EncoderSettings are the fixed encoding parameters applied to every render.
type EncoderSettings struct {
	Binary         string `toml:"binary"`
	VideoCodec     string `toml:"video_codec"`
	Preset         string `toml:"preset"`
	CRF            int    `toml:"crf"`
	PixelFormat    string `toml:"pixel_format"`
	AudioCodec     string `toml:"audio_codec"`
	AudioBitrate   string `toml:"audio_bitrate"`
	StderrTailKB   int    `toml:"stderr_tail_kb"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DefaultEncoderSettings returns H.264/AAC settings tuned for fast turnaround.
func DefaultEncoderSettings() EncoderSettings {
	return EncoderSettings{
		Binary:         "ffmpeg",
		VideoCodec:     "libx264",
		Preset:         "ultrafast",
		CRF:            23,
		PixelFormat:    "yuv420p",
		AudioCodec:     "aac",
		AudioBitrate:   "128k",
		StderrTailKB:   16,
		TimeoutSeconds: 600,
	}
}

// FontSettings configure font lookup for caption text.
type FontSettings struct {
	Path          string   `toml:"path"`           // Preferred font file.
	Fallbacks     []string `toml:"fallbacks"`      // Consulted in order when Path is missing.
	GenericFamily string   `toml:"generic_family"` // Used when no file exists.
}
