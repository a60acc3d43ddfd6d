package sinks

import (
	"context"
	"fmt"
	"os"

	"github.com/kubesee/kubesee/pkg/kube"
)

type StdoutConfig struct {
	Layout map[string]any `yaml:"layout"`
	DeDot  bool           `yaml:"deDot,omitempty"`
}

type Stdout struct {
	cfg *StdoutConfig
}

func NewStdoutSink(cfg *StdoutConfig) (Sink, error) {
	return &Stdout{cfg: cfg}, nil
}

func (s *Stdout) Close() {}

func (s *Stdout) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(s.cfg.Layout, s.cfg.DeDot, ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
