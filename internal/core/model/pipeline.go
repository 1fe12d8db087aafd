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

import "strings"

// SourceVideo is the stream reference of the first input's video. Graphs may
// consume it without defining it.
const SourceVideo = "0:v"

// OutputLabel is the terminal label mapped to the encoder's video output.
const OutputLabel = "out"

// Operation enumerates the composition stages a pipeline node can perform.
type Operation int

const (
	Scale Operation = iota
	Crop
	SolidColor
	DrawText
	Overlay
	Fade
)

var operationFilters = map[Operation]string{
	Scale:      "scale",
	Crop:       "crop",
	SolidColor: "color",
	DrawText:   "drawtext",
	Overlay:    "overlay",
	Fade:       "fade",
}

// Filter returns the encoder filter name for the operation.
func (o Operation) Filter() string {
	return operationFilters[o]
}

func (o Operation) String() string {
	switch o {
	case Scale:
		return "Scale"
	case Crop:
		return "Crop"
	case SolidColor:
		return "SolidColor"
	case DrawText:
		return "DrawText"
	case Overlay:
		return "Overlay"
	case Fade:
		return "Fade"
	}
	return "Unknown"
}

// Param is a single key/value option of a pipeline node.
type Param struct {
	Key   string
	Value string
}

// Params keeps node options in insertion order so serialization is stable.
type Params []Param

// Get returns the value stored for key, or "" if absent.
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// String renders the params as key=value pairs joined by ':'.
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, kv := range p {
		parts = append(parts, kv.Key+"="+kv.Value)
	}
	return strings.Join(parts, ":")
}

// PipelineNode is one named stage of the composition graph.
type PipelineNode struct {
	Label     string
	Operation Operation
	Params    Params
	Inputs    []string
}

// EncodeRequest is everything the encoder needs for a single invocation.
type EncodeRequest struct {
	InputPath              string
	OutputPath             string
	Pipeline               []PipelineNode
	TrimStartSeconds       float64
	TrimmedDurationSeconds float64
	Font                   FontRef
}
