package sinks

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/kubesee/kubesee/pkg/kube"
	opensearch "github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
)

// OpensearchSink reuses ElasticsearchConfig (the two backends share the
// same Bulk/Index API shape) but talks to the cluster through
// opensearch-project/opensearch-go instead of go-elasticsearch/v7.
type OpensearchSink struct {
	cfg    *ElasticsearchConfig
	client *opensearch.Client
}

func NewOpensearchSink(cfg *ElasticsearchConfig) (Sink, error) {
	tlsConfig, err := setupTLS(&cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to setup TLS: %w", err)
	}
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Hosts,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	})
	if err != nil {
		return nil, fmt.Errorf("building opensearch client: %w", err)
	}

	return &OpensearchSink{cfg: cfg, client: client}, nil
}

func (o *OpensearchSink) Close() {}

func (o *OpensearchSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(o.cfg.Layout, o.cfg.DeDot, ev)
	if err != nil {
		return err
	}

	req := opensearchapi.IndexRequest{
		Index: o.cfg.indexName(ev),
		Body:  bytes.NewReader(out),
	}
	if o.cfg.UseEventID {
		req.DocumentID = string(ev.UID)
	}

	resp, err := req.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("opensearch index request: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("opensearch index request failed: %s", resp.String())
	}
	return nil
}
