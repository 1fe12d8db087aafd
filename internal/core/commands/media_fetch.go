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

package commands

import (
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/services"
)

// MediaFetch downloads a remote source video into a temp file and points
// the source path at it. It only runs for requests carrying a video URL.
type MediaFetch struct {
	cor.BaseCommand
	fetcher *services.Fetcher
}

func NewMediaFetch(name string, fetcher *services.Fetcher) *MediaFetch {
	out := &MediaFetch{BaseCommand: *cor.NewBaseCommand(name), fetcher: fetcher}
	out.WithParams(RenderRequestParam, SourcePathParam)
	return out
}

func (c *MediaFetch) IsExecutable(context cor.Context) bool {
	req := renderRequest(context)
	return context.GetContext() != nil && req != nil && services.IsRemote(req.InputURL)
}

func (c *MediaFetch) Execute(context cor.Context) {
	req := renderRequest(context)
	path, err := c.fetcher.Fetch(context.GetContext(), req.InputURL)
	if err != nil {
		c.Fail(context, err)
		return
	}
	context.AddTempFile(path)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), path)
}
