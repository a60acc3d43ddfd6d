package sinks

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/eventbridge"
	"github.com/kubesee/kubesee/pkg/kube"
)

// EventBridgeConfig publishes one PutEvents entry per event. Details, when
// set, is rendered as a layout through the shared dedot/layout policy
// (spec.md §4.7) rather than embedding the event verbatim.
type EventBridgeConfig struct {
	DetailType   string         `yaml:"detailType"`
	Details      map[string]any `yaml:"details"`
	Source       string         `yaml:"source"`
	EventBusName string         `yaml:"eventBusName"`
	Region       string         `yaml:"region"`
	DeDot        bool           `yaml:"deDot,omitempty"`
}

type EventBridgeSink struct {
	cfg *EventBridgeConfig
	svc *eventbridge.EventBridge
}

func NewEventBridgeSink(cfg *EventBridgeConfig) (Sink, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Retryer: client.DefaultRetryer{
			NumMaxRetries:    client.DefaultRetryerMaxNumRetries,
			MinRetryDelay:    client.DefaultRetryerMinRetryDelay,
			MinThrottleDelay: client.DefaultRetryerMinThrottleDelay,
			MaxRetryDelay:    client.DefaultRetryerMaxRetryDelay,
			MaxThrottleDelay: client.DefaultRetryerMaxThrottleDelay,
		},
	})
	if err != nil {
		return nil, err
	}

	return &EventBridgeSink{
		cfg: cfg,
		svc: eventbridge.New(sess),
	}, nil
}

func (s *EventBridgeSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(s.cfg.Details, s.cfg.DeDot, ev)
	if err != nil {
		return err
	}
	toSend := string(out)

	now := time.Now()
	entry := eventbridge.PutEventsRequestEntry{
		Detail:       &toSend,
		DetailType:   &s.cfg.DetailType,
		Time:         &now,
		Source:       &s.cfg.Source,
		EventBusName: &s.cfg.EventBusName,
	}

	req, _ := s.svc.PutEventsRequest(&eventbridge.PutEventsInput{
		Entries: []*eventbridge.PutEventsRequestEntry{&entry},
	})
	if err := req.Send(); err != nil {
		slog.With("err", err).Error("eventbridge put events failed")
		return err
	}
	return nil
}

func (s *EventBridgeSink) Close() {}
