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
	"errors"
	"fmt"
)

// Sentinel markers. Every typed error below reports true for errors.Is
// against its marker so callers can branch without a type switch.
var (
	ErrProbe          = errors.New("probe failed")
	ErrLayout         = errors.New("layout failed")
	ErrGraphBuild     = errors.New("pipeline graph invalid")
	ErrEncodeSpawn    = errors.New("encoder could not be launched")
	ErrEncode         = errors.New("encoder failed")
	ErrInvalidRequest = errors.New("invalid request")
	ErrVideoNotFound  = errors.New("video not found")
	ErrNotVideo       = errors.New("file is not a video")
)

// ProbeError reports an inspection process that exited non-zero or whose
// output was not well-formed metadata.
type ProbeError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *ProbeError) Error() string {
	if len(e.Stderr) > 0 {
		return fmt.Sprintf("probe %s: %v: %s", e.Path, e.Err, e.Stderr)
	}
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

func (e *ProbeError) Is(target error) bool { return target == ErrProbe }

// LayoutError reports a caption that cannot be laid out with the given budget.
type LayoutError struct {
	Reason string
}

func (e *LayoutError) Error() string { return "layout: " + e.Reason }

func (e *LayoutError) Is(target error) bool { return target == ErrLayout }

// GraphBuildError signals a broken graph invariant. It indicates a defect in
// the builder, never bad user input.
type GraphBuildError struct {
	Label  string
	Reason string
}

func (e *GraphBuildError) Error() string {
	return fmt.Sprintf("pipeline graph: node %q: %s", e.Label, e.Reason)
}

func (e *GraphBuildError) Is(target error) bool { return target == ErrGraphBuild }

// EncodeSpawnError reports an encoder binary that could not be started.
type EncodeSpawnError struct {
	Binary string
	Err    error
}

func (e *EncodeSpawnError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

func (e *EncodeSpawnError) Unwrap() error { return e.Err }

func (e *EncodeSpawnError) Is(target error) bool { return target == ErrEncodeSpawn }

// EncodeError reports an encoder run that failed. StderrTail holds the last
// kilobytes the process wrote to its error stream.
type EncodeError struct {
	ExitCode   int
	StderrTail string
	Err        error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode failed (exit code %d): %v", e.ExitCode, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }
