package sinks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/kubesee/kubesee/pkg/kube"
)

// webhookMaxAttempts, webhookBaseBackoff implement spec.md §6's webhook
// retry contract: retry on 429/500/502/503/504 or a transport error, up to
// 3 attempts total, exponential backoff starting at 100ms with ±20% jitter.
const (
	webhookMaxAttempts = 3
	webhookBaseBackoff = 100 * time.Millisecond
)

type WebhookConfig struct {
	Endpoint string            `yaml:"endpoint"`
	TLS      TLS               `yaml:"tls"`
	Layout   map[string]any    `yaml:"layout"`
	DeDot    bool              `yaml:"deDot,omitempty"`
	Headers  map[string]string `yaml:"headers"`
}

func NewWebhook(cfg *WebhookConfig) (Sink, error) {
	tlsClientConfig, err := setupTLS(&cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to setup TLS: %w", err)
	}
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: tlsClientConfig,
	}
	return &Webhook{
		cfg:       cfg,
		transport: transport,
		client:    &http.Client{Transport: transport},
	}, nil
}

type Webhook struct {
	cfg       *WebhookConfig
	transport *http.Transport
	client    *http.Client
}

func (w *Webhook) Close() {
	w.transport.CloseIdleConnections()
}

// httpError wraps a non-2xx response with the status code so the retry
// loop can decide whether it is one of the retryable statuses.
type httpError struct {
	statusCode int
	body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http_error %d: %s", e.statusCode, e.body)
}

func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func (w *Webhook) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	reqBody, err := serializeEventWithLayout(w.cfg.Layout, w.cfg.DeDot, ev)
	if err != nil {
		return err
	}

	slog.With(
		"endpoint", w.cfg.Endpoint,
		"body", string(reqBody),
	).
		Debug("webhook request body")

	headers := w.renderHeaders(ev)

	var lastErr error
	for attempt := 0; attempt < webhookMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepWithJitter(ctx, webhookBaseBackoff, attempt); err != nil {
				return lastErr
			}
		}

		lastErr = w.doPost(ctx, reqBody, headers)
		if lastErr == nil {
			return nil
		}

		var he *httpError
		if errors.As(lastErr, &he) && !isRetryableStatus(he.statusCode) {
			return lastErr
		}
	}
	return lastErr
}

func (w *Webhook) renderHeaders(ev *kube.EnhancedEvent) map[string]string {
	headers := make(map[string]string, len(w.cfg.Headers))
	for k, v := range w.cfg.Headers {
		realValue, err := GetString(ev, v)
		if err != nil {
			// Header-template failures are explicitly non-fatal (spec.md §4.3):
			// use the raw template string as the header value.
			slog.With("header", k, "err", err).Debug("header template failed, using raw value")
			headers[k] = v
			continue
		}
		headers[k] = realValue
	}
	return headers
}

func (w *Webhook) doPost(ctx context.Context, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{statusCode: resp.StatusCode, body: string(respBody)}
	}
	return nil
}

// sleepWithJitter sleeps backoff*2^(attempt-1) +/- 20% jitter, returning
// ctx.Err() if ctx is cancelled first.
func sleepWithJitter(ctx context.Context, backoff time.Duration, attempt int) error {
	d := backoff << (attempt - 1)
	jitter := float64(d) * 0.2 * (2*rand.Float64() - 1)
	d = time.Duration(float64(d) + jitter)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
