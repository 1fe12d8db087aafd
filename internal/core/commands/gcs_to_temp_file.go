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

// This file defines the GCSToTempFile command, which downloads a gs:// source
// video into a local temporary file so the probe and encode steps can read it.
//
// Logic Flow:
//  1. Parse the request's gs://bucket/object URL.
//  2. Stream the object into a new temporary file with io.Copy.
//  3. Register the file for cleanup and store its path as the source path.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/services"
)

// GCSScheme prefixes Cloud Storage source URLs.
const GCSScheme = "gs://"

// GCSToTempFile downloads a Cloud Storage object to a local temporary file.
type GCSToTempFile struct {
	cor.BaseCommand                 // Embeds the BaseCommand for common functionality like naming and metrics.
	client          *storage.Client // The GCS client for interacting with the storage service.
	tempFilePrefix  string          // A prefix to use when naming the temporary file (e.g., "source-").
}

func NewGCSToTempFile(name string, client *storage.Client, tempFilePrefix string) *GCSToTempFile {
	out := &GCSToTempFile{
		BaseCommand:    *cor.NewBaseCommand(name),
		client:         client,
		tempFilePrefix: tempFilePrefix,
	}
	out.WithParams(RenderRequestParam, SourcePathParam)
	return out
}

// ParseGCSURI splits gs://bucket/object into its bucket and object name.
func ParseGCSURI(uri string) (bucket string, object string, err error) {
	if !strings.HasPrefix(uri, GCSScheme) {
		return "", "", fmt.Errorf("%w: not a gs:// url: %q", services.ErrInvalidRequest, uri)
	}
	bucket, object, _ = strings.Cut(strings.TrimPrefix(uri, GCSScheme), "/")
	if len(bucket) == 0 || len(object) == 0 {
		return "", "", fmt.Errorf("%w: gs:// url needs a bucket and an object: %q", services.ErrInvalidRequest, uri)
	}
	return bucket, object, nil
}

func (c *GCSToTempFile) IsExecutable(context cor.Context) bool {
	req := renderRequest(context)
	return c.client != nil && context.GetContext() != nil && req != nil && strings.HasPrefix(req.InputURL, GCSScheme)
}

func (c *GCSToTempFile) Execute(context cor.Context) {
	bucket, object, err := ParseGCSURI(renderRequest(context).InputURL)
	if err != nil {
		c.Fail(context, err)
		return
	}

	reader, err := c.client.Bucket(bucket).Object(object).NewReader(context.GetContext())
	if err != nil {
		c.Fail(context, fmt.Errorf("%w: gs://%s/%s: %v", services.ErrVideoNotFound, bucket, object, err))
		return
	}
	defer func(reader *storage.Reader) {
		if err := reader.Close(); err != nil {
			slog.WarnContext(context.GetContext(), "failed to close GCS reader", "error", err)
		}
	}(reader)

	tempFile, err := os.CreateTemp("", c.tempFilePrefix+"*.mp4")
	if err != nil {
		c.Fail(context, fmt.Errorf("could not create temp file: %w", err))
		return
	}
	context.AddTempFile(tempFile.Name())

	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		c.Fail(context, fmt.Errorf("copy gs://%s/%s failed after %d bytes: %w", bucket, object, written, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "downloaded source", "uri", GCSScheme+bucket+"/"+object, "bytes", written)
	context.Add(c.GetOutputParam(), tempFile.Name())
}
