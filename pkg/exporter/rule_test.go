package exporter

import (
	"testing"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/stretchr/testify/assert"
)

func TestRuleMatchesEventEmptyRuleMatchesAnything(t *testing.T) {
	r := &Rule{}
	assert.True(t, r.MatchesEvent(&kube.EnhancedEvent{}))
}

func TestRuleMatchesEventRegexFields(t *testing.T) {
	r := &Rule{Namespace: "kube-.*", Reason: "^Failed.*"}

	ev := &kube.EnhancedEvent{}
	ev.Namespace = "kube-system"
	ev.Reason = "FailedMount"
	assert.True(t, r.MatchesEvent(ev))

	ev.Namespace = "default"
	assert.False(t, r.MatchesEvent(ev))
}

func TestRuleMatchesEventInvalidRegexNeverMatches(t *testing.T) {
	r := &Rule{Reason: "["}
	ev := &kube.EnhancedEvent{}
	ev.Reason = "anything"
	assert.False(t, r.MatchesEvent(ev))
}

func TestRuleMatchesEventLabels(t *testing.T) {
	r := &Rule{Labels: map[string]string{"app": "nginx"}}

	ev := &kube.EnhancedEvent{}
	ev.InvolvedObject.Labels = map[string]string{"app": "nginx", "tier": "web"}
	assert.True(t, r.MatchesEvent(ev))

	ev.InvolvedObject.Labels = map[string]string{"tier": "web"}
	assert.False(t, r.MatchesEvent(ev))
}

// TestRuleMatchesEventEnrichedInvolvedObjectLabels proves a rule routes on
// a label the watcher's enrichment overlaid onto InvolvedObject -- not on
// the embedded corev1.Event's own (always-empty in practice) label map --
// per spec.md §4.5's overlay and §4.2's "the event's corresponding map".
func TestRuleMatchesEventEnrichedInvolvedObjectLabels(t *testing.T) {
	r := &Rule{Labels: map[string]string{"team": "sre"}}

	ev := &kube.EnhancedEvent{}
	ev.InvolvedObject.Labels = map[string]string{"team": "sre"} // as watcher.go's enrichment would set it
	assert.True(t, r.MatchesEvent(ev))
	assert.Empty(t, ev.Labels, "rule must not depend on the event's own label map")
}

func TestRuleMatchesEventMinCount(t *testing.T) {
	min := int64(3)
	r := &Rule{MinCount: &min}

	ev := &kube.EnhancedEvent{}
	ev.Count = 2
	assert.False(t, r.MatchesEvent(ev))

	ev.Count = 3
	assert.True(t, r.MatchesEvent(ev))
}

func TestRuleMatchesEventMinCountDefaultsToOne(t *testing.T) {
	min := int64(1)
	r := &Rule{MinCount: &min}

	ev := &kube.EnhancedEvent{} // Count left zero-valued
	assert.True(t, r.MatchesEvent(ev))
}
