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
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
)

// LibraryExtension is the extension of every scenario clip.
const LibraryExtension = ".mp4"

// Library resolves scenario names to clips stored in a local directory.
type Library struct {
	root string
}

// NewLibrary creates a Library over root.
func NewLibrary(root string) *Library {
	return &Library{root: root}
}

// Resolve returns the path of <root>/<scenario>.mp4 after checking that it
// exists and that its content is a video.
func (l *Library) Resolve(scenario string) (string, error) {
	scenario = strings.TrimSpace(scenario)
	if len(scenario) == 0 || strings.ContainsAny(scenario, `/\`) || strings.HasPrefix(scenario, ".") {
		return "", fmt.Errorf("%w: invalid scenario name %q", ErrInvalidRequest, scenario)
	}
	clip := filepath.Join(l.root, scenario+LibraryExtension)
	if !FileExists(clip) {
		return "", fmt.Errorf("%w: scenario %q not in %s", ErrVideoNotFound, scenario, l.root)
	}
	if err := CheckVideo(clip); err != nil {
		return "", err
	}
	return clip, nil
}

// Scenarios lists the scenario names available in the library.
func (l *Library) Scenarios() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read library %s: %w", l.root, err)
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), LibraryExtension) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	sort.Strings(out)
	return out, nil
}

// CheckVideo sniffs the header of path and rejects anything that is not a
// recognised video container.
func CheckVideo(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVideoNotFound, err)
	}
	defer file.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: read %s: %v", ErrNotVideo, path, err)
	}
	if !filetype.IsVideo(head[:n]) {
		return fmt.Errorf("%w: %s", ErrNotVideo, path)
	}
	return nil
}
