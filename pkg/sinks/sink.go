// Package sinks implements the uniform start/send/close façade over every
// delivery backend (stdout, file, webhook, syslog, Loki, Elasticsearch,
// OpenSearch, Kafka, in-memory, and a handful of bonus destinations) plus
// the shared layout/dedot serialisation helper every sink uses.
package sinks

import (
	"context"
	"fmt"

	"github.com/kubesee/kubesee/pkg/kube"
)

// Sink is the contract every delivery backend implements. Send may block up
// to the sink's own timeout; Close is idempotent.
type Sink interface {
	Send(ctx context.Context, ev *kube.EnhancedEvent) error
	Close()
}

// ReceiverConfig is a tagged union: exactly one of its sink-specific fields
// must be set. Name must be unique among a config's receivers.
type ReceiverConfig struct {
	Name string `yaml:"name"`

	Stdout        *StdoutConfig        `yaml:"stdout,omitempty"`
	File          *FileConfig          `yaml:"file,omitempty"`
	Webhook       *WebhookConfig       `yaml:"webhook,omitempty"`
	Pipe          *PipeConfig          `yaml:"pipe,omitempty"`
	Syslog        *SyslogConfig        `yaml:"syslog,omitempty"`
	Loki          *LokiConfig          `yaml:"loki,omitempty"`
	Elasticsearch *ElasticsearchConfig `yaml:"elasticsearch,omitempty"`
	Opensearch    *ElasticsearchConfig `yaml:"opensearch,omitempty"`
	Kafka         *KafkaConfig         `yaml:"kafka,omitempty"`
	InMemory      *InMemoryConfig      `yaml:"inMemory,omitempty"`
	Pubsub        *PubsubConfig        `yaml:"pubsub,omitempty"`
	EventBridge   *EventBridgeConfig   `yaml:"eventBridge,omitempty"`
	BigQuery      *BigQueryConfig      `yaml:"bigQuery,omitempty"`
	Opsgenie      *OpsgenieConfig      `yaml:"opsgenie,omitempty"`
	Slack         *SlackConfig         `yaml:"slack,omitempty"`

	// MaxConcurrency bounds how many in-flight Send calls the registry
	// allows for this receiver at once. Defaults to 1, which preserves
	// strict per-receiver FIFO delivery; >1 trades that for throughput.
	MaxConcurrency int `yaml:"maxConcurrency,omitempty"`
	// MaxQueueSize bounds this receiver's queue. 0 means the registry
	// default (1000).
	MaxQueueSize int `yaml:"maxQueueSize,omitempty"`
}

// countSet returns how many sink-specific fields are non-nil, for the
// "exactly one sink key" validation rule.
func (r *ReceiverConfig) countSet() int {
	n := 0
	for _, set := range []bool{
		r.Stdout != nil, r.File != nil, r.Webhook != nil, r.Pipe != nil,
		r.Syslog != nil, r.Loki != nil, r.Elasticsearch != nil, r.Opensearch != nil,
		r.Kafka != nil, r.InMemory != nil, r.Pubsub != nil, r.EventBridge != nil,
		r.BigQuery != nil, r.Opsgenie != nil, r.Slack != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Validate enforces the "exactly one sink key" and "name required" rules
// from spec.md §6/§7.
func (r *ReceiverConfig) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("receiver is missing a name")
	}
	switch r.countSet() {
	case 0:
		return fmt.Errorf("receiver %q has no sink key", r.Name)
	case 1:
		return nil
	default:
		return fmt.Errorf("receiver %q has more than one sink key", r.Name)
	}
}

// GetSink constructs the running Sink instance for this receiver's
// configuration. Factory mapping keyed by sink type, unified across every
// known sink (no hard-coded single-entry map).
func (r *ReceiverConfig) GetSink() (Sink, error) {
	switch {
	case r.Stdout != nil:
		return NewStdoutSink(r.Stdout)
	case r.File != nil:
		return NewFileSink(r.File)
	case r.Webhook != nil:
		return NewWebhook(r.Webhook)
	case r.Pipe != nil:
		return NewPipeSink(r.Pipe)
	case r.Syslog != nil:
		return NewSyslogSink(r.Syslog)
	case r.Loki != nil:
		return NewLokiSink(r.Loki)
	case r.Elasticsearch != nil:
		return NewElasticsearchSink(r.Elasticsearch)
	case r.Opensearch != nil:
		return NewOpensearchSink(r.Opensearch)
	case r.Kafka != nil:
		return NewKafkaSink(r.Kafka)
	case r.InMemory != nil:
		return NewInMemorySink(r.InMemory)
	case r.Pubsub != nil:
		return NewPubsubSink(r.Pubsub)
	case r.EventBridge != nil:
		return NewEventBridgeSink(r.EventBridge)
	case r.BigQuery != nil:
		return NewBigQuerySink(r.BigQuery)
	case r.Opsgenie != nil:
		return NewOpsgenieSink(r.Opsgenie)
	case r.Slack != nil:
		return NewSlackSink(r.Slack)
	default:
		return nil, fmt.Errorf("receiver %q has no sink key", r.Name)
	}
}
