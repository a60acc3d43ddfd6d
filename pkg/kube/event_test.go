package kube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestDeDotIsIdempotent(t *testing.T) {
	ev := EnhancedEvent{}
	ev.Labels = map[string]string{"app.kubernetes.io/name": "nginx"}
	ev.InvolvedObject.Labels = map[string]string{"a.b.c": "1"}

	once := ev.DeDot()
	twice := once.DeDot()

	assert.Equal(t, map[string]string{"app_kubernetes_io/name": "nginx"}, once.Labels)
	assert.Equal(t, once.Labels, twice.Labels)
	assert.Equal(t, once.InvolvedObject.Labels, twice.InvolvedObject.Labels)
}

func TestGetTimestampPrefersLastOverEventTime(t *testing.T) {
	ev := &EnhancedEvent{}
	now := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)
	ev.LastTimestamp = metav1.Time{Time: now}
	ev.EventTime = metav1.MicroTime{Time: now.Add(time.Hour)}

	require.Equal(t, now.UnixMilli(), ev.GetTimestampMs())
	require.Equal(t, "2024-03-15T09:30:45.000Z", ev.GetTimestampISO8601())
}

func TestGetTimestampFallsBackToEventTime(t *testing.T) {
	ev := &EnhancedEvent{}
	now := time.Date(2024, 3, 15, 9, 30, 45, 123000000, time.UTC)
	ev.EventTime = metav1.MicroTime{Time: now}

	require.Equal(t, "2024-03-15T09:30:45.123Z", ev.GetTimestampISO8601())
}

func TestTemplateContextExposesInvolvedObject(t *testing.T) {
	ev := &EnhancedEvent{}
	ev.InvolvedObject.Kind = "Pod"
	ev.Message = "Successfully pulled image"

	ctx := ev.TemplateContext()
	io, ok := ctx["InvolvedObject"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Pod", io["Kind"])
	assert.Equal(t, "Successfully pulled image", ctx["Message"])
}
