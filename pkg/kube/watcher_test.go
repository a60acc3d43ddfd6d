package kube

import (
	"testing"
	"time"

	"github.com/kubesee/kubesee/pkg/metrics"
	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestWatcher(maxAge time.Duration) *EventWatcher {
	return &EventWatcher{
		maxEventAgeSeconds: maxAge,
		metricsStore:       metrics.NewStore(prometheus.NewRegistry(), "kubesee_test_"),
	}
}

func TestIsEventDiscardedNoTimestampIsKept(t *testing.T) {
	w := newTestWatcher(5 * time.Second)
	ev := &corev1.Event{}
	assert.False(t, w.isEventDiscarded(ev))
}

func TestIsEventDiscardedOldLastTimestampIsDropped(t *testing.T) {
	w := newTestWatcher(5 * time.Second)
	ev := &corev1.Event{
		LastTimestamp: metav1.NewTime(time.Now().Add(-time.Hour)),
	}
	assert.True(t, w.isEventDiscarded(ev))
}

func TestIsEventDiscardedFreshLastTimestampIsKept(t *testing.T) {
	w := newTestWatcher(5 * time.Second)
	ev := &corev1.Event{
		LastTimestamp: metav1.NewTime(time.Now()),
	}
	assert.False(t, w.isEventDiscarded(ev))
}

func TestIsEventDiscardedFallsBackToEventTime(t *testing.T) {
	w := newTestWatcher(5 * time.Second)
	ev := &corev1.Event{
		EventTime: metav1.NewMicroTime(time.Now().Add(-time.Hour)),
	}
	assert.True(t, w.isEventDiscarded(ev))
}
