package sinks

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kubesee/kubesee/pkg/kube"
	tmpl "github.com/kubesee/kubesee/pkg/template"
)

// GetString renders text against event's template context using the
// pkg/template mini-language (spec.md §4.3).
func GetString(event *kube.EnhancedEvent, text string) (string, error) {
	out, err := tmpl.Render(text, event.TemplateContext())
	if err != nil {
		slog.With(
			"err", err,
			"value", text,
		).Debug("render template failed")
		return "", err
	}
	return out, nil
}

// convertLayoutTemplate renders every string leaf of layout, recursing into
// maps and lists, per spec.md §4.3's render_layout contract.
func convertLayoutTemplate(layout map[string]any, ev *kube.EnhancedEvent) (map[string]any, error) {
	rendered, err := tmpl.RenderLayout(layout, ev.TemplateContext())
	if err != nil {
		return nil, err
	}
	out, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("convertLayoutTemplate: unexpected result type %T", rendered)
	}
	return out, nil
}

// convertTemplate is convertLayoutTemplate's single-value counterpart, used
// where a sink renders one nested layout value rather than a whole map.
func convertTemplate(value any, ev *kube.EnhancedEvent) (any, error) {
	return tmpl.RenderLayout(value, ev.TemplateContext())
}

// serializeEventWithLayout implements the shared sink serialisation policy
// of spec.md §4.7: dedot first if requested, then either render layout (if
// set) or JSON-encode the event verbatim.
func serializeEventWithLayout(layout map[string]any, deDot bool, ev *kube.EnhancedEvent) ([]byte, error) {
	event := ev
	if deDot {
		d := ev.DeDot()
		event = &d
	}

	if layout != nil {
		res, err := convertLayoutTemplate(layout, event)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	}
	return event.ToJSON(), nil
}
