package sinks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWebhookRetriesOnRetryableStatusThenSucceeds is spec.md §8 scenario 4:
// an endpoint returning 503 twice then 200 succeeds after >=2 backoff sleeps.
func TestWebhookRetriesOnRetryableStatusThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w, err := NewWebhook(&WebhookConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer w.Close()

	err = w.Send(context.Background(), &kube.EnhancedEvent{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestWebhookDoesNotRetryNonRetryableStatus is spec.md §8 scenario 4: an
// endpoint returning 400 fails after exactly one call, no retries.
func TestWebhookDoesNotRetryNonRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w, err := NewWebhook(&WebhookConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer w.Close()

	err = w.Send(context.Background(), &kube.EnhancedEvent{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
