package exporter

import "github.com/kubesee/kubesee/pkg/kube"

// EventSender is the side-effecting callback a Route emits (receiver, event)
// pairs to. In production this is the Registry; tests may substitute
// anything that records the calls.
type EventSender interface {
	SendEvent(name string, event *kube.EnhancedEvent)
}

// Route is a node in the drop/match/sub-route evaluation tree. The tree
// must be a DAG; evaluation depth is bounded by the maxRouteDepth constant.
type Route struct {
	Drop   []Rule  `yaml:"drop,omitempty"`
	Match  []Rule  `yaml:"match,omitempty"`
	Routes []Route `yaml:"routes,omitempty"`
}

// maxRouteDepth bounds recursion so a misconfigured (accidentally cyclic,
// if ever constructed programmatically) route tree cannot recurse forever.
const maxRouteDepth = 64

// ProcessEvent walks the route for one event, in the order spec.md
// requires: drop rules abort the subtree; match rules gate recursion into
// sub-routes and may independently emit to a receiver; an empty match list
// (or no match rules at all) counts as "all matched".
func (r *Route) ProcessEvent(event *kube.EnhancedEvent, dest EventSender) {
	r.processEvent(event, dest, 0)
}

func (r *Route) processEvent(event *kube.EnhancedEvent, dest EventSender, depth int) {
	if depth >= maxRouteDepth {
		return
	}

	for _, drop := range r.Drop {
		if drop.MatchesEvent(event) {
			return
		}
	}

	allMatched := true
	for _, match := range r.Match {
		matched := match.MatchesEvent(event)
		if matched && match.Receiver != "" {
			dest.SendEvent(match.Receiver, event)
		}
		if !matched {
			allMatched = false
		}
	}
	if !allMatched {
		return
	}

	for _, sub := range r.Routes {
		sub.processEvent(event, dest, depth+1)
	}
}
