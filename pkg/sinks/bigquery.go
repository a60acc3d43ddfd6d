package sinks

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/kubesee/kubesee/pkg/kube"
)

// BigQueryConfig streams events into a BigQuery table via the streaming
// insert API, one of the bonus destinations SPEC_FULL.md adds to exercise
// cloud.google.com/go/bigquery from the teacher's go.mod.
type BigQueryConfig struct {
	Project string         `yaml:"project"`
	Dataset string         `yaml:"dataset"`
	Table   string         `yaml:"table"`
	Layout  map[string]any `yaml:"layout"`
	DeDot   bool           `yaml:"deDot,omitempty"`
}

type BigQuerySink struct {
	cfg      *BigQueryConfig
	client   *bigquery.Client
	inserter *bigquery.Inserter
}

func NewBigQuerySink(cfg *BigQueryConfig) (Sink, error) {
	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("building bigquery client: %w", err)
	}

	inserter := client.Dataset(cfg.Dataset).Table(cfg.Table).Inserter()
	return &BigQuerySink{cfg: cfg, client: client, inserter: inserter}, nil
}

func (b *BigQuerySink) Close() {
	b.client.Close()
}

// bigQueryRow implements bigquery.ValueSaver so the sink can stream the
// serialized event (already rendered through any layout) as a single JSON
// column instead of declaring a static BigQuery schema.
type bigQueryRow struct {
	eventJSON string
	insertID  string
}

func (r *bigQueryRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{"event": r.eventJSON}, r.insertID, nil
}

func (b *BigQuerySink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(b.cfg.Layout, b.cfg.DeDot, ev)
	if err != nil {
		return err
	}

	row := &bigQueryRow{eventJSON: string(out), insertID: string(ev.UID)}
	return b.inserter.Put(ctx, row)
}
