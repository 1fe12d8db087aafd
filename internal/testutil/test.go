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

// Package test provides configuration and fakes shared by the test suites:
// a cached test configuration, fake probe and encoder backends, and sample
// request payloads.
package test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/harryxbt/content-engine/internal/cloud"
)

// StateManager caches the loaded test configuration.
type StateManager struct {
	mu     sync.Mutex
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestRenderMessageText returns a render request as it arrives on the
// render subscription.
func GetTestRenderMessageText() string {
	return `{
  "scenario": "sample",
  "caption": "When the deploy goes out on a Friday afternoon",
  "batch_id": "a1b2c3d4",
  "trim": { "start_seconds": 1, "end_seconds": 1 }
}`
}

// SampleMP4Header is the start of an ISO base media file; enough for content
// sniffing to classify the file as video.
var SampleMP4Header = []byte{
	0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
	0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2',
	'a', 'v', 'c', '1', 'm', 'p', '4', '1',
	0x00, 0x00, 0x00, 0x08, 'f', 'r', 'e', 'e',
}

// WriteSampleVideo writes a file that sniffs as mp4 to path.
func WriteSampleVideo(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, SampleMP4Header, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// repoRoot walks up from the working directory to the directory holding go.mod.
func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found")
		}
		dir = parent
	}
}

// SetupOS points the configuration loader at configs/.env.test.toml.
func SetupOS() error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	if err := os.Setenv(cloud.EnvConfigFilePrefix, filepath.Join(root, "configs")); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig returns the shared test configuration, loading it once.
// Callers must not modify it; use NewConfig for a private copy.
func GetConfig() *cloud.Config {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// NewConfig returns a private copy of the test configuration whose output
// and library directories live under t.TempDir().
func NewConfig(t *testing.T) *cloud.Config {
	t.Helper()
	c := *GetConfig()
	c.Font.Fallbacks = append([]string(nil), c.Font.Fallbacks...)
	c.TopicSubscriptions = map[string]cloud.TopicSubscription{}
	root := t.TempDir()
	c.Storage.OutputDir = filepath.Join(root, "output")
	c.Storage.LibraryPath = filepath.Join(root, "library")
	c.Storage.OutputBucket = ""
	c.BigQueryDataSource = cloud.BigQueryDataSource{}
	if err := os.MkdirAll(c.Storage.LibraryPath, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}
	return &c
}

// ProbeJSON renders an ffprobe -of json document. A duration <= 0 omits the
// duration field.
func ProbeJSON(duration float64, width int, height int) []byte {
	format := `"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2"}`
	if duration > 0 {
		format = fmt.Sprintf(`"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "%.6f"}`, duration)
	}
	return []byte(fmt.Sprintf(`{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": %d, "height": %d},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  %s
}`, width, height, format))
}

// FakeRunner is a CommandRunner returning canned output.
type FakeRunner struct {
	mu     sync.Mutex
	Output []byte
	Err    error
	// OnRun, when set, runs before the canned result is returned.
	OnRun func(name string, args []string) error
	Calls  [][]string
}

func (f *FakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.OnRun != nil {
		if err := f.OnRun(name, args); err != nil {
			return nil, err
		}
	}
	return f.Output, f.Err
}

// CallCount returns how many times Run was called.
func (f *FakeRunner) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// ExitError is a process failure carrying an exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

func (e *ExitError) ExitCode() int { return e.Code }

// FakeExecutor is an encoder Executor that writes a small output file and
// replays stderr lines. Set Err to make it fail after replaying.
type FakeExecutor struct {
	Stderr []string
	Err    error
	// Hold, when set, is waited on before the run completes.
	Hold chan struct{}
	// SkipOutput leaves the output file absent.
	SkipOutput bool

	mu          sync.Mutex
	calls       [][]string
	running     int
	maxParallel int
}

func (f *FakeExecutor) Run(ctx context.Context, binary string, args []string, onStderr func(string)) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{binary}, args...))
	f.running++
	if f.running > f.maxParallel {
		f.maxParallel = f.running
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	for _, line := range f.Stderr {
		if onStderr != nil {
			onStderr(line)
		}
	}
	if f.Hold != nil {
		select {
		case <-f.Hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.Err != nil {
		return f.Err
	}
	if f.SkipOutput || len(args) == 0 {
		return nil
	}
	return os.WriteFile(args[len(args)-1], SampleMP4Header, 0o644)
}

// Calls returns the argument lists of every run, binary first.
func (f *FakeExecutor) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// MaxParallel returns the highest number of simultaneous runs observed.
func (f *FakeExecutor) MaxParallel() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxParallel
}
