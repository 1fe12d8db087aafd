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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
)

// ServiceClients holds the Google Cloud clients the configuration asks for.
// Clients for unconfigured features are nil.
type ServiceClients struct {
	StorageClient   *storage.Client            // Set when storage.output_bucket or storage.gcs_input is configured.
	PubsubClient    *pubsub.Client             // Set when topic_subscriptions are configured.
	BigQueryClient  *bigquery.Client           // Set when big_query_data_source.dataset is configured.
	PubSubListeners map[string]*PubSubListener // Listeners keyed by the logical name from the config.
}

// Close releases every open client.
func (c *ServiceClients) Close() {
	if c == nil {
		return
	}
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BigQueryClient != nil {
		_ = c.BigQueryClient.Close()
	}
}

// NewCloudServiceClients creates the clients required by config. With no
// cloud features configured it returns an empty, usable ServiceClients.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{PubSubListeners: make(map[string]*PubSubListener)}
	defer func() {
		if err != nil {
			cloud.Close()
			cloud = nil
		}
	}()

	needsProject := len(config.TopicSubscriptions) > 0 || len(config.BigQueryDataSource.DatasetName) > 0
	if needsProject && len(config.Application.GoogleProjectId) == 0 {
		return cloud, errors.New("application.google_project_id is required for Pub/Sub and BigQuery")
	}

	if len(config.Storage.OutputBucket) > 0 || config.Storage.GCSInput {
		if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
			return cloud, fmt.Errorf("storage client: %w", err)
		}
	}

	if len(config.BigQueryDataSource.DatasetName) > 0 {
		if cloud.BigQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			return cloud, fmt.Errorf("bigquery client: %w", err)
		}
	}

	if len(config.TopicSubscriptions) > 0 {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			return cloud, fmt.Errorf("pubsub client: %w", err)
		}
		for subKey, values := range config.TopicSubscriptions {
			cloud.PubSubListeners[subKey] = NewPubSubListener(cloud.PubsubClient, values.Name, nil)
		}
	}

	slog.Info("cloud clients ready",
		"storage", cloud.StorageClient != nil,
		"bigquery", cloud.BigQueryClient != nil,
		"listeners", len(cloud.PubSubListeners))
	return cloud, nil
}
