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
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/harryxbt/content-engine/internal/core/model"
)

var frameRegex = regexp.MustCompile(`frame=\s*(\d+)`)

var errOutputMissing = errors.New("encoder exited cleanly but produced no output")

// Executor launches a long-running process and streams its error output line
// by line. A launch failure must be returned as *EncodeSpawnError; a non-zero
// exit as an error implementing ExitCode() int.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStderr func(string)) error
}

// ProgressFunc receives the most recent frame counter reported by the encoder.
type ProgressFunc func(frame int64)

// Encoder drives ffmpeg through a serialized composition graph.
type Encoder struct {
	settings model.EncoderSettings
	fps      int
	exec     Executor
	progress ProgressFunc
}

// EncoderOption customizes an Encoder.
type EncoderOption func(*Encoder)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) EncoderOption {
	return func(e *Encoder) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithProgress registers a callback for frame progress.
func WithProgress(fn ProgressFunc) EncoderOption {
	return func(e *Encoder) {
		e.progress = fn
	}
}

// NewEncoder creates an Encoder producing output at fps frames per second.
func NewEncoder(settings model.EncoderSettings, fps int, opts ...EncoderOption) *Encoder {
	defaults := model.DefaultEncoderSettings()
	if len(strings.TrimSpace(settings.Binary)) == 0 {
		settings.Binary = defaults.Binary
	}
	if settings.StderrTailKB <= 0 {
		settings.StderrTailKB = defaults.StderrTailKB
	}
	e := &Encoder{settings: settings, fps: fps, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Args returns the full argument list for req without running anything.
func (e *Encoder) Args(req *model.EncodeRequest) []string {
	s := e.settings
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-ss", formatSeconds(req.TrimStartSeconds),
		"-i", req.InputPath,
		"-filter_complex", SerializeGraph(req.Pipeline),
		"-map", "[" + model.OutputLabel + "]",
		"-map", "0:a?",
		"-t", formatSeconds(req.TrimmedDurationSeconds),
	}
	if e.fps > 0 {
		args = append(args, "-r", strconv.Itoa(e.fps))
	}
	args = append(args, "-c:v", s.VideoCodec)
	if len(s.Preset) > 0 {
		args = append(args, "-preset", s.Preset)
	}
	if s.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(s.CRF))
	}
	args = append(args, "-pix_fmt", s.PixelFormat, "-c:a", s.AudioCodec)
	if len(s.AudioBitrate) > 0 {
		args = append(args, "-b:a", s.AudioBitrate)
	}
	return append(args, "-movflags", "+faststart", req.OutputPath)
}

// Invoke runs the encoder for req and returns the output path once the file
// exists. Failures carry the tail of the encoder's stderr.
func (e *Encoder) Invoke(ctx context.Context, req *model.EncodeRequest) (string, error) {
	if req == nil || len(req.InputPath) == 0 || len(req.OutputPath) == 0 {
		return "", fmt.Errorf("%w: encode request needs input and output paths", ErrInvalidRequest)
	}
	if err := ValidateGraph(req.Pipeline); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tail := newTailBuffer(e.settings.StderrTailKB * 1024)
	onStderr := func(line string) {
		tail.WriteLine(line)
		if e.progress == nil {
			return
		}
		if m := frameRegex.FindStringSubmatch(line); m != nil {
			if frame, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				e.progress(frame)
			}
		}
	}

	if err := e.exec.Run(ctx, e.settings.Binary, e.Args(req), onStderr); err != nil {
		var spawnErr *EncodeSpawnError
		if errors.As(err, &spawnErr) {
			return "", spawnErr
		}
		exitCode := -1
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			exitCode = coder.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return "", &EncodeError{ExitCode: exitCode, StderrTail: tail.String(), Err: err}
	}

	if info, err := os.Stat(req.OutputPath); err != nil || info.Size() == 0 {
		return "", &EncodeError{ExitCode: 0, StderrTail: tail.String(), Err: errOutputMissing}
	}
	return req.OutputPath, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = io.Discard
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &EncodeSpawnError{Binary: binary, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return &EncodeSpawnError{Binary: binary, Err: err}
	}

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesOrCR)
	for scanner.Scan() {
		if onStderr != nil {
			onStderr(scanner.Text())
		}
	}
	// keep the pipe drained so the process never blocks on a full buffer
	_, _ = io.Copy(io.Discard, stderr)
	return cmd.Wait()
}

// scanLinesOrCR splits on '\n' or '\r'. ffmpeg rewrites its stats line with
// carriage returns.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the last limit bytes of the lines written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) WriteLine(line string) {
	if len(line) == 0 {
		return
	}
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	// compact lazily so long encodes do not copy on every stats line
	if len(t.buf) > 2*t.limit {
		t.buf = append(t.buf[:0:0], t.buf[len(t.buf)-t.limit:]...)
	}
}

func (t *tailBuffer) String() string {
	if over := len(t.buf) - t.limit; over > 0 {
		return string(t.buf[over:])
	}
	return string(t.buf)
}
