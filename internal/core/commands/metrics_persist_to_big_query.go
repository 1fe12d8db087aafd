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
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"github.com/harryxbt/content-engine/internal/core/cor"
	"github.com/harryxbt/content-engine/internal/core/model"
)

// MetricsPersistToBigQuery appends one RenderRecord per successful render
// to a BigQuery table.
type MetricsPersistToBigQuery struct {
	cor.BaseCommand
	client  *bigquery.Client // The client for interacting with the BigQuery service.
	dataset string           // The name of the BigQuery dataset.
	table   string           // The name of the target table within the dataset.
}

func NewMetricsPersistToBigQuery(name string, client *bigquery.Client, dataset string, table string) *MetricsPersistToBigQuery {
	out := &MetricsPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table}
	out.WithParams(OutputPathParam, "")
	return out
}

func (s *MetricsPersistToBigQuery) IsExecutable(context cor.Context) bool {
	return s.BaseCommand.IsExecutable(context) && renderRequest(context) != nil
}

func (s *MetricsPersistToBigQuery) Execute(context cor.Context) {
	req := renderRequest(context)
	uri, _ := context.Get(ObjectURIParam).(string)
	res := &model.RenderResult{
		ID:         req.ID,
		OutputPath: context.Get(s.GetInputParam()).(string),
		ObjectURI:  uri,
		Metrics:    CollectMetrics(context),
	}
	row := model.NewRenderRecord(req, res)

	i := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := i.Put(context.GetContext(), row); err != nil {
		s.Fail(context, fmt.Errorf("bigquery insert failed for render '%s': %w", row.ID, err))
		return
	}
	s.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "persisted render metrics", "id", row.ID, "table", s.table)
}
