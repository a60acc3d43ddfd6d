package sinks

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/kubesee/kubesee/pkg/kube"
)

// PubsubConfig publishes one message per event to a Google Cloud Pub/Sub
// topic, serialised through the shared dedot/layout policy (spec.md §4.7)
// like every other sink.
type PubsubConfig struct {
	GcloudProjectId string         `yaml:"gcloud_project_id"`
	Topic           string         `yaml:"topic"`
	CreateTopic     bool           `yaml:"create_topic"`
	Layout          map[string]any `yaml:"layout"`
	DeDot           bool           `yaml:"deDot,omitempty"`
}

type PubsubSink struct {
	cfg          *PubsubConfig
	pubsubClient *pubsub.Client
	topic        *pubsub.Topic
}

func NewPubsubSink(cfg *PubsubConfig) (Sink, error) {
	ctx := context.Background()
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GcloudProjectId)
	if err != nil {
		return nil, err
	}

	var topic *pubsub.Topic
	if cfg.CreateTopic {
		topic, err = pubsubClient.CreateTopic(ctx, cfg.Topic)
		if err != nil {
			return nil, err
		}
		slog.With("topic", cfg.Topic).Info("pubsub: created topic")
	} else {
		topic = pubsubClient.Topic(cfg.Topic)
	}

	return &PubsubSink{
		pubsubClient: pubsubClient,
		topic:        topic,
		cfg:          cfg,
	}, nil
}

func (ps *PubsubSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(ps.cfg.Layout, ps.cfg.DeDot, ev)
	if err != nil {
		return err
	}
	_, err = ps.topic.Publish(ctx, &pubsub.Message{Data: out}).Get(ctx)
	return err
}

func (ps *PubsubSink) Close() {
	slog.Info("pubsub: closing topic")
	ps.pubsubClient.Close()
}
