package sinks

import (
	"context"
	"fmt"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/slack-go/slack"
)

// SlackConfig posts a message to a Slack channel per event, a bonus
// destination exercising slack-go/slack from the teacher's go.mod.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
	Message string `yaml:"message"`
}

type SlackSink struct {
	cfg *SlackConfig
	cli *slack.Client
}

func NewSlackSink(cfg *SlackConfig) (Sink, error) {
	return &SlackSink{cfg: cfg, cli: slack.New(cfg.Token)}, nil
}

func (s *SlackSink) Close() {}

func (s *SlackSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	text, err := GetString(ev, s.cfg.Message)
	if err != nil {
		return fmt.Errorf("rendering slack message: %w", err)
	}

	_, _, err = s.cli.PostMessageContext(ctx, s.cfg.Channel, slack.MsgOptionText(text, false))
	return err
}
