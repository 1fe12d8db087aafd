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

// This file defines the GCSFileUpload command, which copies the rendered
// video into a Cloud Storage bucket once encoding has finished.
//
// Logic Flow:
//  1. Read the local output path left by the encode step.
//  2. Derive the object name from the path relative to the output root, so
//     the bucket mirrors the local <date>/<batch>/<id>.mp4 layout.
//  3. Stream the file into a storage.Writer and close it to commit the object.
//  4. Store the gs:// URI for the caller.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/harryxbt/content-engine/internal/core/cor"
)

// GCSFileUpload publishes the encoded output to a bucket.
type GCSFileUpload struct {
	cor.BaseCommand                 // Embeds the BaseCommand for naming and metrics.
	client          *storage.Client // The GCS client.
	bucket          string          // Destination bucket.
	root            string          // Local output root stripped from object names.
}

func NewGCSFileUpload(name string, client *storage.Client, bucket string, root string) *GCSFileUpload {
	out := &GCSFileUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket, root: root}
	out.WithParams(OutputPathParam, ObjectURIParam)
	return out
}

// ObjectName maps a local output path to its object name.
func ObjectName(root string, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.Base(path)
}

func (c *GCSFileUpload) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)
	name := ObjectName(c.root, path)

	dat, err := os.Open(path)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to open file %s: %w", path, err))
		return
	}
	defer dat.Close()

	writer := c.client.Bucket(c.bucket).Object(name).NewWriter(context.GetContext())
	writer.ContentType = "video/mp4"

	if written, err := io.Copy(writer, dat); err != nil {
		_ = writer.Close()
		c.Fail(context, fmt.Errorf("copy to gs://%s/%s failed after %d bytes: %w", c.bucket, name, written, err))
		return
	}
	// Close commits the object; an error here means nothing was written.
	if err := writer.Close(); err != nil {
		c.Fail(context, fmt.Errorf("finalize gs://%s/%s: %w", c.bucket, name, err))
		return
	}

	uri := fmt.Sprintf("gs://%s/%s", c.bucket, name)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), uri)
	slog.InfoContext(context.GetContext(), "uploaded render", "uri", uri)
}
