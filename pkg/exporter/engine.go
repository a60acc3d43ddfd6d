package exporter

import (
	"errors"
	"log/slog"
	"reflect"
	"time"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/kubesee/kubesee/pkg/metrics"
)

// DefaultDrainTimeout bounds how long Stop waits for every receiver's
// queue to empty before force-closing sinks (spec.md §4.6).
const DefaultDrainTimeout = 30 * time.Second

// Engine binds the route tree, the receiver registry built from
// config.Receivers, and (in production) the watcher that feeds it events.
// It owns the orderly startup/shutdown protocol of spec.md §4.6.
type Engine struct {
	Route        Route
	Registry     ReceiverRegistry
	DrainTimeout time.Duration

	watcher *kube.EventWatcher
}

// NewEngine constructs every configured receiver's sink and registers it,
// returning an Engine ready to drive events through config.Route. It does
// not start a watcher -- call Run for the full supervised lifecycle, or
// drive OnEvent directly in tests.
func NewEngine(config *Config, registry ReceiverRegistry) (*Engine, error) {
	for _, v := range config.Receivers {
		sink, err := v.GetSink()
		if err != nil {
			return nil, errors.New("cannot initialize sink " + v.Name + ": " + err.Error())
		}

		slog.With(
			"name", v.Name,
			"type", reflect.TypeOf(sink).String(),
		).Info("registering sink")

		maxQueueSize := v.MaxQueueSize
		maxConcurrency := v.MaxConcurrency
		if maxQueueSize == 0 {
			maxQueueSize = DefaultMaxQueueSize
		}
		if maxConcurrency == 0 {
			maxConcurrency = DefaultMaxConcurrency
		}
		if err := registry.RegisterWithOptions(v.Name, sink, maxQueueSize, maxConcurrency); err != nil {
			return nil, err
		}
	}

	return &Engine{
		Route:        config.Route,
		Registry:     registry,
		DrainTimeout: DefaultDrainTimeout,
	}, nil
}

// OnEvent does not care whether an event is add or update; prior filtering
// happens in the watcher.
func (e *Engine) OnEvent(event *kube.EnhancedEvent) {
	e.Route.ProcessEvent(event, e.Registry)
}

// StampClusterName returns a copy of event with ClusterName set, matching
// the immutable-event/new-copy rule of spec.md §3 ("the engine stamps
// cluster_name by producing a new copy").
func StampClusterName(event *kube.EnhancedEvent, clusterName string) *kube.EnhancedEvent {
	if clusterName == "" {
		return event
	}
	cp := *event
	cp.ClusterName = clusterName
	return &cp
}

// Run starts the watcher over config, wiring its callback to stamp the
// cluster name and feed OnEvent, and blocks until stop is closed. On
// return it has already performed the shutdown protocol in Stop.
func (e *Engine) Run(config *Config, store *metrics.Store, stop <-chan struct{}) error {
	restConfig, err := kube.BuildConfig(config.KubeQPS, config.KubeBurst)
	if err != nil {
		return err
	}

	clusterName := config.ClusterName
	e.watcher = kube.NewEventWatcher(restConfig, config.Namespace, config.MaxEventAgeSeconds, store, func(event *kube.EnhancedEvent) {
		e.OnEvent(StampClusterName(event, clusterName))
	}, config.OmitLookup, config.CacheSize)

	e.watcher.Start()
	<-stop
	e.Stop()
	return nil
}

// Stop runs the shutdown protocol of spec.md §4.6: stop the watcher so no
// new events arrive, drain every receiver's queue up to DrainTimeout, then
// close every sink and release its resources.
func (e *Engine) Stop() {
	if e.watcher != nil {
		slog.Info("stopping watcher")
		e.watcher.Stop()
	}

	timeout := e.DrainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}

	slog.Info("draining receivers")
	if !e.Registry.DrainAll(timeout) {
		slog.Warn("drain timed out, some events may be lost")
	}

	slog.Info("closing sinks")
	e.Registry.CloseAll()
	slog.Info("all sinks closed")
}
