package exporter

import (
	"testing"
	"time"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/kubesee/kubesee/pkg/metrics"
	"github.com/kubesee/kubesee/pkg/sinks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainFor(t *testing.T, e *Engine, name string) {
	t.Helper()
	require.True(t, e.Registry.Drain(name, time.Second))
}

func TestEngineNoRoutes(t *testing.T) {
	cfg := &Config{
		Route:     Route{},
		Receivers: nil,
	}

	e, err := NewEngine(cfg, NewRegistry(metrics.NewUnregisteredStore()))
	require.NoError(t, err)

	ev := &kube.EnhancedEvent{}
	e.OnEvent(ev)
}

func TestEngineSimple(t *testing.T) {
	config := &sinks.InMemoryConfig{}
	cfg := &Config{
		Route: Route{
			Match: []Rule{{
				Receiver: "in-mem",
			}},
		},
		Receivers: []sinks.ReceiverConfig{{
			Name:     "in-mem",
			InMemory: config,
		}},
	}

	e, err := NewEngine(cfg, NewRegistry(metrics.NewUnregisteredStore()))
	require.NoError(t, err)

	ev := &kube.EnhancedEvent{}
	e.OnEvent(ev)
	drainFor(t, e, "in-mem")

	assert.Contains(t, config.Ref.Events, ev)
}

func TestEngineDropSimple(t *testing.T) {
	config := &sinks.InMemoryConfig{}
	cfg := &Config{
		Route: Route{
			Drop: []Rule{{
				// Drops anything
			}},
			Match: []Rule{{
				Receiver: "in-mem",
			}},
		},
		Receivers: []sinks.ReceiverConfig{{
			Name:     "in-mem",
			InMemory: config,
		}},
	}

	e, err := NewEngine(cfg, NewRegistry(metrics.NewUnregisteredStore()))
	require.NoError(t, err)

	ev := &kube.EnhancedEvent{}
	e.OnEvent(ev)
	drainFor(t, e, "in-mem")

	assert.Empty(t, config.Ref.Events)
}

// TestSelectiveAlerting is end-to-end scenario 1 of spec.md §8
// ("legacy issue-51"): a Normal-type event is dropped outright, and only a
// Warning FailedCreatePodContainer event reaches the receiver.
func TestSelectiveAlerting(t *testing.T) {
	config := &sinks.InMemoryConfig{}
	cfg := &Config{
		Route: Route{
			Drop: []Rule{{Type: "Normal"}},
			Match: []Rule{{
				Reason:   "FailedCreatePodContainer",
				Receiver: "elastic",
			}},
		},
		Receivers: []sinks.ReceiverConfig{{
			Name:     "elastic",
			InMemory: config,
		}},
	}

	e, err := NewEngine(cfg, NewRegistry(metrics.NewUnregisteredStore()))
	require.NoError(t, err)

	a := &kube.EnhancedEvent{}
	a.Type, a.Reason = "Warning", "FailedCreatePodContainer"
	e.OnEvent(a)

	b := &kube.EnhancedEvent{}
	b.Type, b.Reason = "Warning", "FailedCreate"
	e.OnEvent(b)

	c := &kube.EnhancedEvent{}
	c.Type, c.Reason = "Normal", "FailedCreatePodContainer"
	e.OnEvent(c)

	drainFor(t, e, "elastic")

	assert.Equal(t, []*kube.EnhancedEvent{a}, config.Ref.Events)
}

// TestNamespaceMatchWithSubRoute is end-to-end scenario 2 of spec.md §8: a
// namespace-gated match rule (no receiver of its own) only admits matching
// events into its sub-route, which is what actually emits.
func TestNamespaceMatchWithSubRoute(t *testing.T) {
	config := &sinks.InMemoryConfig{}
	cfg := &Config{
		Route: Route{
			Match: []Rule{{Namespace: "kube-.*"}},
			Routes: []Route{{
				Match: []Rule{{Receiver: "sys"}},
			}},
		},
		Receivers: []sinks.ReceiverConfig{{
			Name:     "sys",
			InMemory: config,
		}},
	}

	e, err := NewEngine(cfg, NewRegistry(metrics.NewUnregisteredStore()))
	require.NoError(t, err)

	inSystem := &kube.EnhancedEvent{}
	inSystem.Namespace = "kube-system"
	e.OnEvent(inSystem)

	inDefault := &kube.EnhancedEvent{}
	inDefault.Namespace = "default"
	e.OnEvent(inDefault)

	drainFor(t, e, "sys")

	assert.Equal(t, []*kube.EnhancedEvent{inSystem}, config.Ref.Events)
}

func TestEngineStopDrainsAndCloses(t *testing.T) {
	config := &sinks.InMemoryConfig{}
	cfg := &Config{
		Route: Route{Match: []Rule{{Receiver: "in-mem"}}},
		Receivers: []sinks.ReceiverConfig{{
			Name:     "in-mem",
			InMemory: config,
		}},
	}

	e, err := NewEngine(cfg, NewRegistry(metrics.NewUnregisteredStore()))
	require.NoError(t, err)
	e.DrainTimeout = 2 * time.Second

	for i := 0; i < 10; i++ {
		e.OnEvent(&kube.EnhancedEvent{})
	}

	e.Stop()
	assert.Len(t, config.Ref.Events, 10)
}
