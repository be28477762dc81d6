package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/julianstephens/habitbell/internal/constants"
	"github.com/julianstephens/habitbell/internal/models"
)

// Webhook posts reminders as JSON to the chat transport's HTTP endpoint.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: constants.DispatchTimeout},
	}
}

func (w *Webhook) Send(ctx context.Context, reminder models.Reminder) error {
	jsonData, err := json.Marshal(reminder)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", reminder.ID)
	if w.secret != "" {
		req.Header.Set(constants.WebhookSecretHeader, w.secret)
	}

	res, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("webhook failed with status %d: %s", res.StatusCode, string(body))
}
