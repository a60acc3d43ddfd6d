package exporter

import (
	"regexp"
	"sync"

	"github.com/kubesee/kubesee/pkg/kube"
)

// Rule is a single filter predicate evaluated against one event. Every
// scalar field is an optional regex pattern; a nil/empty pattern matches
// anything. Receiver is the destination to emit to when the rule matches
// and participates in a Route's match list -- a Rule with no Receiver is a
// gate, not a sink reference.
type Rule struct {
	APIVersion  string            `yaml:"apiVersion,omitempty"`
	Kind        string            `yaml:"kind,omitempty"`
	Namespace   string            `yaml:"namespace,omitempty"`
	Reason      string            `yaml:"reason,omitempty"`
	Message     string            `yaml:"message,omitempty"`
	Type        string            `yaml:"type,omitempty"`
	Component   string            `yaml:"component,omitempty"`
	Host        string            `yaml:"host,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
	MinCount    *int64            `yaml:"minCount,omitempty"`
	Receiver    string            `yaml:"receiver,omitempty"`
}

// regexCache memoizes compiled patterns so repeated evaluation against
// many events does not recompile them; a nil entry records a pattern that
// failed to compile, which matches nothing.
var regexCache sync.Map // string -> *regexp.Regexp (nil = failed to compile)

func compile(pattern string) *regexp.Regexp {
	if cached, ok := regexCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		regexCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil
	}
	regexCache.Store(pattern, re)
	return re
}

// matchesPattern reports whether pattern (empty/nil means "anything")
// unanchored-matches s. A nil event string is treated as "".
func matchesPattern(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	re := compile(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(s)
}

func matchesMap(rulePatterns map[string]string, eventValues map[string]string) bool {
	if len(rulePatterns) == 0 {
		return true
	}
	for key, pattern := range rulePatterns {
		value, ok := eventValues[key]
		if !ok {
			return false
		}
		if !matchesPattern(pattern, value) {
			return false
		}
	}
	return true
}

// MatchesEvent evaluates every rule attribute independently and returns
// their conjunction. Matching never errors: an invalid regex matches
// nothing for that attribute rather than aborting evaluation.
func (r *Rule) MatchesEvent(event *kube.EnhancedEvent) bool {
	if !matchesPattern(r.APIVersion, event.InvolvedObject.APIVersion) {
		return false
	}
	if !matchesPattern(r.Kind, event.InvolvedObject.Kind) {
		return false
	}
	if !matchesPattern(r.Namespace, event.Namespace) {
		return false
	}
	if !matchesPattern(r.Reason, event.Reason) {
		return false
	}
	if !matchesPattern(r.Message, event.Message) {
		return false
	}
	if !matchesPattern(r.Type, event.Type) {
		return false
	}
	if !matchesPattern(r.Component, event.Source.Component) {
		return false
	}
	if !matchesPattern(r.Host, event.Source.Host) {
		return false
	}
	if !matchesMap(r.Labels, event.InvolvedObject.Labels) {
		return false
	}
	if !matchesMap(r.Annotations, event.InvolvedObject.Annotations) {
		return false
	}
	if !r.matchesMinCount(event) {
		return false
	}
	return true
}

func (r *Rule) matchesMinCount(event *kube.EnhancedEvent) bool {
	if r.MinCount == nil || *r.MinCount == 0 {
		return true
	}
	count := event.Count
	if count == 0 {
		count = 1
	}
	return int64(count) >= *r.MinCount
}
