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
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutputExtension is appended to every generated file name.
const OutputExtension = ".mp4"

// OutputLocator hands out collision-free output paths laid out as
// <root>/<date>/<batch>/<id>.mp4 and maps them to public URLs.
type OutputLocator struct {
	root          string
	publicBaseURL string
	batchID       string
}

// NewBatchID returns a short random batch identifier.
func NewBatchID() string {
	return uuid.NewString()[:8]
}

// NewOutputLocator creates a locator rooted at root. Files are grouped under
// a batch id generated once per locator.
func NewOutputLocator(root string, publicBaseURL string) *OutputLocator {
	return &OutputLocator{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		batchID:       NewBatchID(),
	}
}

// Root returns the directory every generated path lives under.
func (l *OutputLocator) Root() string {
	return l.root
}

// NewPath returns a fresh output path. An empty id or batch is generated.
func (l *OutputLocator) NewPath(id string, batch string, now time.Time) string {
	if len(id) == 0 {
		id = uuid.NewString()
	}
	if len(batch) == 0 {
		batch = l.batchID
	}
	return filepath.Join(l.root, now.Format("2006-01-02"), batch, id+OutputExtension)
}

// PublicURL returns the URL the output is served at, or "" when the file
// lives outside the root or no public base is configured.
func (l *OutputLocator) PublicURL(outputPath string) string {
	if len(l.publicBaseURL) == 0 {
		return ""
	}
	rel, err := filepath.Rel(l.root, outputPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	escaped := make([]string, 0)
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return l.publicBaseURL + path.Join("/output", strings.Join(escaped, "/"))
}
