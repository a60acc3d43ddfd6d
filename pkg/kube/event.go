package kube

import (
	"encoding/json"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EnhancedObjectReference extends the plain Kubernetes ObjectReference with
// the metadata the watcher looks up out of band: labels, annotations, owner
// references, and whether the lookup found the object already gone.
type EnhancedObjectReference struct {
	corev1.ObjectReference `json:",inline"`
	Labels                 map[string]string      `json:"labels,omitempty"`
	Annotations            map[string]string      `json:"annotations,omitempty"`
	OwnerReferences        []metav1.OwnerReference `json:"ownerReferences,omitempty"`
	Deleted                bool                    `json:"deleted,omitempty"`
}

// EnhancedEvent is the in-memory representation of a Kubernetes Event used
// throughout the exporter. It is constructed once by the watcher and never
// mutated afterwards; ClusterName is stamped by the engine, not the API.
type EnhancedEvent struct {
	corev1.Event   `json:",inline"`
	InvolvedObject EnhancedObjectReference `json:"involvedObject"`
	ClusterName    string                  `json:"clusterName,omitempty"`
}

// ToJSON serialises the event verbatim (no layout, no dedotting).
func (e *EnhancedEvent) ToJSON() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// DeDot returns a copy of the event whose involved-object and event-level
// label/annotation maps have every "." in their keys replaced with "_", so
// that systems which reject dotted field names (classically Elasticsearch)
// can index them. DeDot is idempotent: deDot(deDot(e)) == deDot(e).
func (e EnhancedEvent) DeDot() EnhancedEvent {
	cp := e
	cp.Labels = dedotMap(e.Labels)
	cp.Annotations = dedotMap(e.Annotations)
	cp.InvolvedObject = e.InvolvedObject
	cp.InvolvedObject.Labels = dedotMap(e.InvolvedObject.Labels)
	cp.InvolvedObject.Annotations = dedotMap(e.InvolvedObject.Annotations)
	return cp
}

func dedotMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ReplaceAll(k, ".", "_")] = v
	}
	return out
}

// Timestamp returns the event's best-effort wall-clock instant: the first
// non-zero timestamp among LastTimestamp, EventTime, FirstTimestamp and
// CreationTimestamp, in that order. Sinks that need a concrete time (e.g.
// the Elasticsearch/OpenSearch indexFormat date substitution) use this
// rather than the processing-time clock.
func (e *EnhancedEvent) Timestamp() time.Time {
	return e.timestamp()
}

// timestamp returns the first non-zero timestamp among LastTimestamp,
// EventTime, FirstTimestamp and CreationTimestamp, in that order -- the same
// preference order the watcher's age filter uses for LastTimestamp/EventTime.
func (e *EnhancedEvent) timestamp() time.Time {
	if !e.LastTimestamp.IsZero() {
		return e.LastTimestamp.Time
	}
	if !e.EventTime.IsZero() {
		return e.EventTime.Time
	}
	if !e.FirstTimestamp.IsZero() {
		return e.FirstTimestamp.Time
	}
	return e.CreationTimestamp.Time
}

// GetTimestampMs returns the event's best-effort timestamp in epoch
// milliseconds. Exposed as a callable template leaf (GetTimestampMs).
func (e *EnhancedEvent) GetTimestampMs() int64 {
	t := e.timestamp()
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// GetTimestampISO8601 renders the event's best-effort timestamp with
// millisecond precision, e.g. 2024-03-15T09:30:45.123Z. Exposed as a
// callable template leaf (GetTimestampISO8601).
func (e *EnhancedEvent) GetTimestampISO8601() string {
	t := e.timestamp()
	if t.IsZero() {
		return ""
	}
	return formatTimestamp(t)
}

// formatTimestamp renders t as YYYY-MM-DDTHH:MM:SS.mmmZ in UTC, or "" for
// the zero time -- the fixed format every timestamp field uses in template
// contexts.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func formatMetaTime(t metav1.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTimestamp(t.Time)
}

func formatMicroTime(t metav1.MicroTime) string {
	if t.IsZero() {
		return ""
	}
	return formatTimestamp(t.Time)
}

// TemplateContext builds the map[string]any the template engine evaluates
// field paths and functions against. Keys mirror the event in PascalCase;
// GetTimestampMs/GetTimestampISO8601 are exposed as zero-argument callables
// so "{{ .GetTimestampMs }}" invokes them on read.
func (e *EnhancedEvent) TemplateContext() map[string]any {
	return map[string]any{
		"Name":                e.Name,
		"Namespace":           e.Namespace,
		"UID":                 string(e.UID),
		"ResourceVersion":     e.ResourceVersion,
		"CreationTimestamp":   formatMetaTime(e.CreationTimestamp),
		"Labels":              stringMapToAny(e.Labels),
		"Annotations":         stringMapToAny(e.Annotations),
		"Message":             e.Message,
		"Reason":              e.Reason,
		"Type":                e.Type,
		"Count":               int64(e.Count),
		"Action":              e.Action,
		"ReportingController": e.ReportingController,
		"ReportingInstance":   e.ReportingInstance,
		"FirstTimestamp":      formatMetaTime(e.FirstTimestamp),
		"LastTimestamp":       formatMetaTime(e.LastTimestamp),
		"EventTime":           formatMicroTime(e.EventTime),
		"ClusterName":         e.ClusterName,
		"InvolvedObject":      e.InvolvedObject.templateContext(),
		"Source": map[string]any{
			"Component": e.Source.Component,
			"Host":      e.Source.Host,
		},
		"GetTimestampMs":      func() int64 { return e.GetTimestampMs() },
		"GetTimestampISO8601": func() string { return e.GetTimestampISO8601() },
	}
}

func (o *EnhancedObjectReference) templateContext() map[string]any {
	owners := make([]any, 0, len(o.OwnerReferences))
	for _, ref := range o.OwnerReferences {
		owners = append(owners, map[string]any{
			"Kind": ref.Kind,
			"Name": ref.Name,
			"UID":  string(ref.UID),
		})
	}
	return map[string]any{
		"Kind":            o.Kind,
		"Namespace":       o.Namespace,
		"Name":            o.Name,
		"UID":             string(o.UID),
		"APIVersion":      o.APIVersion,
		"ResourceVersion": o.ResourceVersion,
		"FieldPath":       o.FieldPath,
		"Labels":          stringMapToAny(o.Labels),
		"Annotations":     stringMapToAny(o.Annotations),
		"OwnerReferences": owners,
		"Deleted":         o.Deleted,
	}
}

func stringMapToAny(in map[string]string) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
