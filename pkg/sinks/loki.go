package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kubesee/kubesee/pkg/kube"
)

// LokiConfig pushes events to Grafana Loki's HTTP push API
// (/loki/api/v1/push), labeled per spec.md's loki sink contract.
type LokiConfig struct {
	URL        string            `yaml:"url"`
	TLS        TLS               `yaml:"tls"`
	Headers    map[string]string `yaml:"headers"`
	Labels     map[string]string `yaml:"labels"`
	Layout     map[string]any    `yaml:"layout"`
	DeDot      bool              `yaml:"deDot,omitempty"`
	TenantID   string            `yaml:"tenantID,omitempty"`
	Timeout    time.Duration     `yaml:"timeout,omitempty"`
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string        `json:"values"`
}

type LokiSink struct {
	cfg    *LokiConfig
	client *http.Client
}

func NewLokiSink(cfg *LokiConfig) (Sink, error) {
	tlsConfig, err := setupTLS(&cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to setup TLS: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &LokiSink{
		cfg: cfg,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
	}, nil
}

func (l *LokiSink) Close() {}

func (l *LokiSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(l.cfg.Layout, l.cfg.DeDot, ev)
	if err != nil {
		return err
	}

	labels := make(map[string]string, len(l.cfg.Labels)+2)
	for k, v := range l.cfg.Labels {
		rendered, err := GetString(ev, v)
		if err != nil {
			return fmt.Errorf("rendering label %q: %w", k, err)
		}
		labels[k] = rendered
	}
	if _, ok := labels["job"]; !ok {
		labels["job"] = "kubesee"
	}

	req := lokiPushRequest{
		Streams: []lokiStream{{
			Stream: labels,
			Values: [][2]string{{strconv.FormatInt(time.Now().UnixNano(), 10), string(out)}},
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		httpReq.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	for k, v := range l.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki push returned status %d", resp.StatusCode)
	}
	return nil
}
