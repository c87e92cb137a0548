package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/logger"
)

func TestBatchFinishedDeliversPayload(t *testing.T) {
	var received BatchFinishedEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Notify.WebhookURL = server.URL
	cfg.Notify.Timeout = 5 * time.Second

	notifier := NewNotifier(cfg, logger.NewNop())
	err := notifier.BatchFinished(context.Background(), BatchFinishedEvent{
		InstitutionID: 30,
		Period:        "2024-2025",
		Rated:         12,
		Skipped:       []int64{44},
	})
	require.NoError(t, err)

	assert.Equal(t, "ratings.batch_finished", received.Event)
	assert.Equal(t, int64(30), received.InstitutionID)
	assert.Equal(t, 12, received.Rated)
	assert.Equal(t, []int64{44}, received.Skipped)
}

func TestBatchFinishedErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Notify.WebhookURL = server.URL
	cfg.Notify.Timeout = 5 * time.Second

	notifier := NewNotifier(cfg, logger.NewNop())
	err := notifier.BatchFinished(context.Background(), BatchFinishedEvent{Period: "2024-2025"})
	assert.Error(t, err)
}

func TestBatchFinishedThrottled(t *testing.T) {
	var posts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Notify.WebhookURL = server.URL
	cfg.Notify.Timeout = 5 * time.Second
	cfg.Notify.RatePerSecond = 20
	cfg.Notify.Burst = 1

	notifier := NewNotifier(cfg, logger.NewNop())

	// At 20 req/s with burst 1 the second post waits for a token,
	// roughly 50ms after the first.
	start := time.Now()
	require.NoError(t, notifier.BatchFinished(context.Background(), BatchFinishedEvent{Period: "2024-2025"}))
	require.NoError(t, notifier.BatchFinished(context.Background(), BatchFinishedEvent{Period: "2024-2025"}))
	elapsed := time.Since(start)

	assert.Equal(t, 2, posts)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestBatchFinishedNoURLIsNoop(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notify.Timeout = time.Second

	notifier := NewNotifier(cfg, logger.NewNop())
	assert.NoError(t, notifier.BatchFinished(context.Background(), BatchFinishedEvent{}))
}
