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

// Package workflow assembles the render commands into chains and exposes the
// Compositor, the entry point used by the HTTP server, the CLI and the
// Pub/Sub listener.
package workflow

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/harryxbt/content-engine/internal/cloud"
	"github.com/harryxbt/content-engine/internal/core/commands"
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/services"
)

// Runners are the process backends used by a workflow. Zero values select
// the os/exec implementations.
type Runners struct {
	Probe      services.CommandRunner
	Fetch      services.CommandRunner
	Encode     services.Executor
	FontExists func(string) bool
}

// CaptionVideoWorkflow is the chain fetch -> probe -> layout -> graph ->
// encode, followed by publish and persist when those are configured. Fetch
// only runs for remote sources.
type CaptionVideoWorkflow struct {
	cor.BaseCommand
	config         *cloud.Config
	runners        Runners
	storageClient  *storage.Client
	bigqueryClient *bigquery.Client
	chain          *cor.BaseChain // The underlying chain of commands to be executed.
}

// Execute runs the chain against context.
func (m *CaptionVideoWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// IsExecutable needs a render request in the context.
func (m *CaptionVideoWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(commands.RenderRequestParam) != nil
}

// Steps returns the chained step names in execution order.
func (m *CaptionVideoWorkflow) Steps() []string {
	return m.chain.Commands()
}

func (m *CaptionVideoWorkflow) initializeChain() {
	c := m.config
	out := cor.NewBaseChain(m.GetName())

	fetcher := services.NewFetcher(c.Encoder.Binary, time.Duration(c.Fetch.TimeoutSeconds)*time.Second, m.runners.Fetch)
	out.AddCommand(commands.NewMediaFetch(commands.StepFetch, fetcher))
	if m.storageClient != nil && c.Storage.GCSInput {
		out.AddCommand(commands.NewGCSToTempFile(commands.StepFetch, m.storageClient, "source-"))
	}

	prober := services.NewProber(c.Probe.Binary,
		services.WithRunner(m.runners.Probe),
		services.WithFallbackOnError(c.Probe.FallbackOnError))
	out.AddCommand(commands.NewMediaProbe(commands.StepProbe, prober))

	out.AddCommand(commands.NewCaptionLayout(commands.StepLayout, c.Geometry))

	graph := commands.NewFilterGraphBuilder(commands.StepGraph, c.Geometry, c.Font, c.Trim)
	if m.runners.FontExists != nil {
		graph.WithFileCheck(m.runners.FontExists)
	}
	out.AddCommand(graph)

	out.AddCommand(commands.NewVideoEncode(commands.StepEncode, c.Encoder, c.Geometry.FrameRate, m.runners.Encode))

	if m.storageClient != nil && len(c.Storage.OutputBucket) > 0 {
		out.AddCommand(commands.NewGCSFileUpload(commands.StepPublish, m.storageClient, c.Storage.OutputBucket, c.Storage.OutputDir))
	}
	if m.bigqueryClient != nil && len(c.BigQueryDataSource.DatasetName) > 0 {
		out.AddCommand(commands.NewMetricsPersistToBigQuery(commands.StepPersist, m.bigqueryClient,
			c.BigQueryDataSource.DatasetName, c.BigQueryDataSource.MetricsTable))
	}
	m.chain = out
}

// NewCaptionVideoWorkflow builds the workflow. serviceClients may be nil.
func NewCaptionVideoWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients, runners Runners) *CaptionVideoWorkflow {
	out := &CaptionVideoWorkflow{
		BaseCommand: *cor.NewBaseCommand("caption-video-workflow"),
		config:      config,
		runners:     runners,
	}
	if serviceClients != nil {
		out.storageClient = serviceClients.StorageClient
		out.bigqueryClient = serviceClients.BigQueryClient
	}
	out.initializeChain()
	return out
}
