//go:build windows || plan9

package sinks

import (
	"context"

	"github.com/kubesee/kubesee/pkg/kube"
)

type SyslogConfig struct {
	Network string         `yaml:"network"`
	Address string         `yaml:"address"`
	Tag     string         `yaml:"tag"`
	Layout  map[string]any `yaml:"layout"`
	DeDot   bool           `yaml:"deDot,omitempty"`
}

type SyslogSink struct {
}

func NewSyslogSink(config *SyslogConfig) (Sink, error) {
	return &SyslogSink{}, nil
}

func (w *SyslogSink) Close() {
}

func (w *SyslogSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	return nil
}
