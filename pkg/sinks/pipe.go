package sinks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kubesee/kubesee/pkg/kube"
)

// PipeConfig writes line-delimited JSON to a file or device path (e.g. a
// named pipe or /dev/stdout), per spec.md §6. It is the file sink's
// contract minus rotation: a pipe/device has no notion of "size" to rotate
// against, so the handle stays open for the sink's lifetime.
type PipeConfig struct {
	Path   string         `yaml:"path"`
	Layout map[string]any `yaml:"layout"`
	DeDot  bool           `yaml:"deDot,omitempty"`
}

type PipeSink struct {
	cfg  *PipeConfig
	mu   sync.Mutex
	file *os.File
}

func NewPipeSink(cfg *PipeConfig) (Sink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("pipe sink requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("creating directory for %s: %w", cfg.Path, err)
	}
	fh, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
	}
	return &PipeSink{cfg: cfg, file: fh}, nil
}

func (p *PipeSink) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.file.Close()
}

func (p *PipeSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(p.cfg.Layout, p.cfg.DeDot, ev)
	if err != nil {
		return err
	}
	out = append(out, '\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = p.file.Write(out)
	return err
}
