package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebhookNotifier posts event strings to a chat webhook. Messages over the
// rate limit are dropped, not queued; the engine never blocks on delivery.
// With no URL configured it degrades to log-only.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewWebhookNotifier(url string, minInterval time.Duration, log *zap.Logger) *WebhookNotifier {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Every(minInterval), 3),
		log:     log,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, msg string) error {
	n.log.Info("notify", zap.String("message", msg))
	if n.url == "" {
		return nil
	}
	if !n.limiter.Allow() {
		n.log.Debug("notification dropped, rate limited", zap.String("message", msg))
		return nil
	}

	body, err := json.Marshal(map[string]string{"content": msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
