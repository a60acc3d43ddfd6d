package sinks

import (
	"testing"
	"time"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/stretchr/testify/assert"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// TestIndexNameUsesEventTimestamp is spec.md §8 scenario 3: indexFormat
// "kube-events-{2006-01-02}" against an event timed 2024-03-15T09:30:45Z
// resolves to "kube-events-2024-03-15".
func TestIndexNameUsesEventTimestamp(t *testing.T) {
	cfg := &ElasticsearchConfig{IndexFormat: "kube-events-{2006-01-02}"}

	ev := &kube.EnhancedEvent{}
	ev.LastTimestamp = metav1.Time{Time: time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)}

	assert.Equal(t, "kube-events-2024-03-15", cfg.indexName(ev))
}

func TestIndexNameSupportsMultipleBraceBlocks(t *testing.T) {
	cfg := &ElasticsearchConfig{IndexFormat: "kube-events-{2006}.{01}.{02}"}

	ev := &kube.EnhancedEvent{}
	ev.LastTimestamp = metav1.Time{Time: time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)}

	assert.Equal(t, "kube-events-2024.03.15", cfg.indexName(ev))
}

func TestIndexNameFallsBackToIndexWhenFormatEmpty(t *testing.T) {
	cfg := &ElasticsearchConfig{Index: "kube-events"}
	assert.Equal(t, "kube-events", cfg.indexName(&kube.EnhancedEvent{}))
}
