package exporter

import (
	"testing"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	sent []string
}

func (r *recordingSender) SendEvent(name string, _ *kube.EnhancedEvent) {
	r.sent = append(r.sent, name)
}

func TestRouteProcessEventDropAbortsSubtree(t *testing.T) {
	route := &Route{
		Drop:  []Rule{{Type: "Normal"}},
		Match: []Rule{{Receiver: "a"}},
	}
	sender := &recordingSender{}

	ev := &kube.EnhancedEvent{}
	ev.Type = "Normal"
	route.ProcessEvent(ev, sender)

	assert.Empty(t, sender.sent)
}

func TestRouteProcessEventEmptyMatchListCountsAsAllMatched(t *testing.T) {
	route := &Route{
		Routes: []Route{{Match: []Rule{{Receiver: "a"}}}},
	}
	sender := &recordingSender{}
	route.ProcessEvent(&kube.EnhancedEvent{}, sender)

	assert.Equal(t, []string{"a"}, sender.sent)
}

func TestRouteProcessEventGateWithoutReceiverStillGatesSubRoute(t *testing.T) {
	route := &Route{
		Match:  []Rule{{Namespace: "kube-.*"}},
		Routes: []Route{{Match: []Rule{{Receiver: "sys"}}}},
	}
	sender := &recordingSender{}

	notMatching := &kube.EnhancedEvent{}
	notMatching.Namespace = "default"
	route.ProcessEvent(notMatching, sender)
	assert.Empty(t, sender.sent)

	matching := &kube.EnhancedEvent{}
	matching.Namespace = "kube-public"
	route.ProcessEvent(matching, sender)
	assert.Equal(t, []string{"sys"}, sender.sent)
}

func TestRouteProcessEventMatchRuleEmitsAndStillGatesRecursion(t *testing.T) {
	route := &Route{
		Match:  []Rule{{Receiver: "top"}},
		Routes: []Route{{Match: []Rule{{Receiver: "nested"}}}},
	}
	sender := &recordingSender{}
	route.ProcessEvent(&kube.EnhancedEvent{}, sender)

	assert.ElementsMatch(t, []string{"top", "nested"}, sender.sent)
}

func TestRouteProcessEventDepthBound(t *testing.T) {
	// Build a route deeper than maxRouteDepth; ProcessEvent must not panic
	// or hang, and anything beyond the bound never fires.
	var leaf Route
	for i := 0; i < maxRouteDepth+10; i++ {
		leaf = Route{Match: []Rule{{Receiver: "r"}}, Routes: []Route{leaf}}
	}

	sender := &recordingSender{}
	leaf.ProcessEvent(&kube.EnhancedEvent{}, sender)

	assert.LessOrEqual(t, len(sender.sent), maxRouteDepth)
}
