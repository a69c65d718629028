package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"payablelane/pkg/webhooks"

	"github.com/google/uuid"
)

// WebhookPublisher pushes each notification to a collaborator endpoint,
// signed per the shared HMAC scheme.
type WebhookPublisher struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhookPublisher(url, secret string) *WebhookPublisher {
	return &WebhookPublisher{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if err := webhooks.Sign(req.Header, "whk_"+uuid.NewString(), eventType, payload, p.secret); err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook push returned %d", resp.StatusCode)
	}
	return nil
}
