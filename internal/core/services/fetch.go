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
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
)

// MinimumDownloadBytes is the smallest payload accepted as a real video.
const MinimumDownloadBytes = 1000

// Fetcher downloads remote videos by remuxing them into a local file.
type Fetcher struct {
	binary  string
	runner  CommandRunner
	timeout time.Duration
}

// NewFetcher creates a Fetcher that runs binary (ffmpeg) with a per-download timeout.
func NewFetcher(binary string, timeout time.Duration, runner CommandRunner) *Fetcher {
	if runner == nil {
		runner = ExecRunner{}
	}
	if len(strings.TrimSpace(binary)) == 0 {
		binary = "ffmpeg"
	}
	return &Fetcher{binary: binary, runner: runner, timeout: timeout}
}

// IsRemote reports whether input is an http(s) URL.
func IsRemote(input string) bool {
	u, err := url.Parse(input)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && len(u.Host) > 0
}

// Fetch copies the streams at rawURL into a new temporary mp4 and returns its
// path. The caller owns the file.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !IsRemote(rawURL) {
		return "", fmt.Errorf("%w: not an http(s) url: %q", ErrInvalidRequest, rawURL)
	}
	tmp, err := os.CreateTemp("", "fetch-*.mp4")
	if err != nil {
		return "", err
	}
	_ = tmp.Close()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	_, err = f.runner.Run(ctx, f.binary, "-hide_banner", "-nostdin", "-y", "-i", rawURL, "-c", "copy", tmp.Name())
	if err != nil {
		detail := err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			detail = tailString(strings.TrimSpace(string(exitErr.Stderr)), 200)
		}
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: download %s: %s", ErrVideoNotFound, rawURL, detail)
	}
	if info, err := os.Stat(tmp.Name()); err != nil || info.Size() < MinimumDownloadBytes {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: download %s produced no usable file", ErrVideoNotFound, rawURL)
	}
	return tmp.Name(), nil
}

func tailString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
