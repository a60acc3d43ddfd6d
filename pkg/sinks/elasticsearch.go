package sinks

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"regexp"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/kubesee/kubesee/pkg/kube"
)

// ElasticsearchConfig is shared by the elasticsearch and opensearch sinks:
// both send one document Index request per event, differing only in client
// library (go-elasticsearch/v7 vs opensearch-go).
type ElasticsearchConfig struct {
	Hosts       []string          `yaml:"hosts"`
	Username    string            `yaml:"username,omitempty"`
	Password    string            `yaml:"password,omitempty"`
	APIKey      string            `yaml:"apiKey,omitempty"`
	Index       string            `yaml:"index"`
	IndexFormat string            `yaml:"indexFormat,omitempty"`
	UseEventID  bool              `yaml:"useEventID,omitempty"`
	TLS         TLS               `yaml:"tls"`
	Layout      map[string]any    `yaml:"layout"`
	DeDot       bool              `yaml:"deDot,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

// indexBraceRe finds each "{ ... }" block in an indexFormat string; the
// content between the braces is itself a Go reference-time layout (2006,
// 01, 02, 15, 04, 05, ...), per spec.md §6 and Open Question (iii): passing
// it straight to time.Format is the "placeholder-chaining" substitution the
// spec prefers over a single regex pass, because Go's own reference-time
// formatter already resolves overlapping tokens (e.g. "2006" vs "06")
// correctly by construction.
var indexBraceRe = regexp.MustCompile(`\{([^}]*)\}`)

func (c *ElasticsearchConfig) indexName(ev *kube.EnhancedEvent) string {
	if c.IndexFormat == "" {
		return c.Index
	}
	t := ev.Timestamp()
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC()
	return indexBraceRe.ReplaceAllStringFunc(c.IndexFormat, func(block string) string {
		return t.Format(block[1 : len(block)-1])
	})
}

type ElasticsearchSink struct {
	cfg    *ElasticsearchConfig
	client *elasticsearch.Client
}

func NewElasticsearchSink(cfg *ElasticsearchConfig) (Sink, error) {
	tlsConfig, err := setupTLS(&cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to setup TLS: %w", err)
	}
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Hosts,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	})
	if err != nil {
		return nil, fmt.Errorf("building elasticsearch client: %w", err)
	}

	return &ElasticsearchSink{cfg: cfg, client: client}, nil
}

func (e *ElasticsearchSink) Close() {}

func (e *ElasticsearchSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(e.cfg.Layout, e.cfg.DeDot, ev)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index: e.cfg.indexName(ev),
		Body:  bytes.NewReader(out),
	}
	if e.cfg.UseEventID {
		req.DocumentID = string(ev.UID)
	}

	resp, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("elasticsearch index request: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("elasticsearch index request failed: %s", resp.String())
	}
	return nil
}
