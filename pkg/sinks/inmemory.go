package sinks

import (
	"context"
	"sync"

	"github.com/kubesee/kubesee/pkg/kube"
)

// InMemoryConfig has no user-facing options; Ref is populated by
// NewInMemorySink so tests can reach the running sink's captured events
// without going through the registry.
type InMemoryConfig struct {
	Ref *InMemorySink `yaml:"-"`
}

// InMemorySink stores every event it receives, in order. It exists for
// tests and local experimentation, never production delivery.
type InMemorySink struct {
	mu     sync.Mutex
	Events []*kube.EnhancedEvent
}

func NewInMemorySink(cfg *InMemoryConfig) (Sink, error) {
	sink := &InMemorySink{}
	cfg.Ref = sink
	return sink, nil
}

func (s *InMemorySink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	return nil
}

func (s *InMemorySink) Close() {}
