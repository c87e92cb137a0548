package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/httputil"
	"github.com/elmarb/edurate/pkg/logger"
)

// Notifier announces completed batch recalculations to an external
// webhook. With no webhook URL configured every call is a no-op, so
// callers never need to guard the send.
type Notifier struct {
	client *httputil.Client
	url    string
	logger *logger.Logger
}

// BatchFinishedEvent is the webhook payload for a completed scope
// recalculation.
type BatchFinishedEvent struct {
	Event         string           `json:"event"`
	InstitutionID int64            `json:"institution_id"`
	Period        contracts.Period `json:"period"`
	Rated         int              `json:"rated"`
	Skipped       []int64          `json:"skipped,omitempty"`
	Duration      string           `json:"duration"`
	FinishedAt    time.Time        `json:"finished_at"`
}

// NewNotifier creates a webhook notifier from configuration. Posts are
// throttled to NotifyConfig.RatePerSecond so a burst of finished
// batches cannot flood the receiving endpoint.
func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	client := httputil.NewWithTimeout(log, cfg.Notify.Timeout)
	if cfg.Notify.RatePerSecond > 0 {
		burst := cfg.Notify.Burst
		if burst < 1 {
			burst = 1
		}
		client = client.WithRateLimit(cfg.Notify.RatePerSecond, burst)
	}

	return &Notifier{
		client: client,
		url:    cfg.Notify.WebhookURL,
		logger: log,
	}
}

// BatchFinished posts the event to the configured webhook. Delivery is
// best-effort from the caller's point of view; failures are returned
// but batches do not retry the announcement.
func (n *Notifier) BatchFinished(ctx context.Context, event BatchFinishedEvent) error {
	if n.url == "" {
		return nil
	}

	event.Event = "ratings.batch_finished"

	resp, err := n.client.PostJSON(ctx, n.url, event)
	if err != nil {
		return fmt.Errorf("post batch webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("batch webhook returned status %d", resp.StatusCode)
	}

	n.logger.WithFields(map[string]interface{}{
		"institution_id": event.InstitutionID,
		"period":         event.Period,
		"rated":          event.Rated,
	}).Debug("Batch webhook delivered")

	return nil
}
