package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flock/pkg/config"
	"github.com/flocknet/flock/pkg/telemetry"
)

// WebhookNotifier POSTs notification events to a configured endpoint
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *config.NotifyConfig, logger *zap.Logger) *WebhookNotifier {
	w := &WebhookNotifier{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	logger.Info("Webhook notifier initialized", zap.String("url", cfg.WebhookURL))
	return w
}

type webhookEvent struct {
	Type   string    `json:"type"`
	SrcID  int64     `json:"src_id"`
	DstID  int64     `json:"dst_id"`
	PostID int64     `json:"post_id,omitempty"`
	At     time.Time `json:"at"`
}

// Send delivers one event. The request is bounded by the configured
// timeout and by ctx, whichever ends first.
func (w *WebhookNotifier) Send(ctx context.Context, typeID int16, srcID, dstID, postID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "notify.webhook_send")
	defer span.End()

	payload, err := json.Marshal(webhookEvent{
		Type:   TypeName(typeID),
		SrcID:  srcID,
		DstID:  dstID,
		PostID: postID,
		At:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
