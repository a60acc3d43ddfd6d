package exporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/kubesee/kubesee/pkg/metrics"
	"github.com/kubesee/kubesee/pkg/sinks"
)

// DefaultMaxQueueSize is the per-receiver queue depth used when a receiver
// does not configure its own.
const DefaultMaxQueueSize = 1000

// DefaultMaxConcurrency is how many Send calls may be in flight for one
// receiver at once when the receiver does not configure its own. 1
// preserves strict per-receiver FIFO delivery.
const DefaultMaxConcurrency = 1

// ReceiverRegistry is the destination a Route emits matched events to, and
// what the Engine wires configured sinks into. It satisfies EventSender.
type ReceiverRegistry interface {
	EventSender
	RegisterWithOptions(name string, receiver sinks.Sink, maxQueueSize, maxConcurrency int) error
	Register(name string, receiver sinks.Sink) error
	Drain(name string, timeout time.Duration) bool
	DrainAll(timeout time.Duration) bool
	Close(name string)
	CloseAll()
}

// receiverEntry is everything the Registry tracks for one receiver. queue is
// the bounded inbox; accepting gates whether SendEvent still enqueues onto
// it (false once Drain or Close has started); pending tracks in-flight and
// queued events so Drain can wait for the receiver to go idle.
type receiverEntry struct {
	name      string
	sink      sinks.Sink
	queue     chan *kube.EnhancedEvent
	pending   sync.WaitGroup
	mu        sync.Mutex
	accepting bool
	closed    bool
}

// Registry dispatches events to registered sinks through a bounded,
// per-receiver queue. A pool of MaxConcurrency worker goroutines drains each
// receiver's queue independently, so one slow sink cannot stall another.
// This generalizes the one-goroutine-per-sink discipline of a plain
// channel-based dispatcher with bounded capacity and reject-newest overflow.
type Registry struct {
	mu        sync.RWMutex
	receivers map[string]*receiverEntry
	metrics   *metrics.Store
}

// NewRegistry creates a Registry that reports queue/send metrics to store.
func NewRegistry(store *metrics.Store) *Registry {
	return &Registry{
		receivers: make(map[string]*receiverEntry),
		metrics:   store,
	}
}

// Register wires receiver under name using the default queue size and
// concurrency.
func (r *Registry) Register(name string, receiver sinks.Sink) error {
	return r.RegisterWithOptions(name, receiver, DefaultMaxQueueSize, DefaultMaxConcurrency)
}

// RegisterWithOptions wires receiver under name with an explicit queue depth
// and worker concurrency, starting its dispatch workers immediately.
func (r *Registry) RegisterWithOptions(name string, receiver sinks.Sink, maxQueueSize, maxConcurrency int) error {
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	entry := &receiverEntry{
		name:      name,
		sink:      receiver,
		queue:     make(chan *kube.EnhancedEvent, maxQueueSize),
		accepting: true,
	}

	r.mu.Lock()
	r.receivers[name] = entry
	r.mu.Unlock()

	for i := 0; i < maxConcurrency; i++ {
		go r.worker(entry)
	}
	return nil
}

func (r *Registry) worker(entry *receiverEntry) {
	l := slog.With("sink", entry.name)
	for ev := range entry.queue {
		func() {
			defer entry.pending.Done()
			start := time.Now()
			err := entry.sink.Send(context.Background(), ev)
			if r.metrics != nil {
				r.metrics.SinkSendDuration.WithLabelValues(entry.name).Observe(time.Since(start).Seconds())
				r.metrics.QueueLength.WithLabelValues(entry.name).Set(float64(len(entry.queue)))
			}
			if err != nil {
				if r.metrics != nil {
					r.metrics.SendErrors.WithLabelValues(entry.name).Inc()
				}
				l.With("event", string(ev.UID), "err", err).Error("cannot send event")
			}
		}()
	}
}

// SendEvent enqueues event for the named receiver. If the queue is full the
// event is dropped (reject-newest) and logged; an unknown receiver name is
// also logged and otherwise a no-op, since a route can only reference
// receivers configured at startup. The accepting check and the channel send
// happen under entry.mu, the same lock Close holds while closing the
// queue, so a SendEvent can never land on an already-closed channel
// regardless of how Close and SendEvent happen to interleave.
func (r *Registry) SendEvent(name string, event *kube.EnhancedEvent) {
	r.mu.RLock()
	entry, ok := r.receivers[name]
	r.mu.RUnlock()
	if !ok {
		slog.With("name", name).Error("there is no receiver with this name")
		return
	}

	entry.mu.Lock()
	if !entry.accepting {
		entry.mu.Unlock()
		slog.With("sink", name).Warn("receiver is draining or closed, dropping event")
		return
	}

	entry.pending.Add(1)
	select {
	case entry.queue <- event:
		entry.mu.Unlock()
		if r.metrics != nil {
			r.metrics.QueueLength.WithLabelValues(name).Set(float64(len(entry.queue)))
		}
	default:
		entry.pending.Done()
		entry.mu.Unlock()
		if r.metrics != nil {
			r.metrics.QueueDropped.WithLabelValues(name).Inc()
		}
		slog.With("sink", name, "event", string(event.UID)).Warn("queue full, dropping event")
	}
}

// Drain stops accepting new events for name and waits up to timeout for its
// queue and in-flight sends to empty. It returns false if timeout elapses
// first. Draining a receiver that does not exist is a no-op and returns true.
func (r *Registry) Drain(name string, timeout time.Duration) bool {
	r.mu.RLock()
	entry, ok := r.receivers[name]
	r.mu.RUnlock()
	if !ok {
		return true
	}

	entry.mu.Lock()
	entry.accepting = false
	entry.mu.Unlock()

	done := make(chan struct{})
	go func() {
		entry.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		slog.With("sink", name).Warn("drain timed out with events still pending")
		return false
	}
}

// DrainAll drains every registered receiver, sharing one deadline across all
// of them. It returns false if any receiver failed to drain in time.
func (r *Registry) DrainAll(timeout time.Duration) bool {
	r.mu.RLock()
	names := make([]string, 0, len(r.receivers))
	for name := range r.receivers {
		names = append(names, name)
	}
	r.mu.RUnlock()

	deadline := time.Now().Add(timeout)
	ok := true
	for _, name := range names {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if !r.Drain(name, remaining) {
			ok = false
		}
	}
	return ok
}

// Close stops the named receiver's workers and closes its sink. It does not
// wait for pending events; call Drain first if that matters. accepting is
// cleared and the queue closed under entry.mu, the same lock SendEvent
// holds around its own accepting-check-then-send, so Close is safe to call
// concurrently with SendEvent regardless of call order.
func (r *Registry) Close(name string) {
	r.mu.Lock()
	entry, ok := r.receivers[name]
	if ok {
		delete(r.receivers, name)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	alreadyClosed := entry.closed
	entry.accepting = false
	entry.closed = true
	if !alreadyClosed {
		close(entry.queue)
	}
	entry.mu.Unlock()
	if alreadyClosed {
		return
	}

	slog.With("sink", name).Info("closing sink")
	entry.sink.Close()
}

// CloseAll closes every registered receiver.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	names := make([]string, 0, len(r.receivers))
	for name := range r.receivers {
		names = append(names, name)
	}
	r.mu.RUnlock()

	for _, name := range names {
		r.Close(name)
	}
}
