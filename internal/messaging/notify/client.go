package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bidtask/bidtask/internal/telemetry"
	"github.com/bidtask/bidtask/pkg/logger"
)

// Client pushes notification events to the external identity & notification
// service. Delivery is best-effort: the engine's consistency boundary never
// includes notifications, so callers log failures and continue.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type event struct {
	UserID    string                 `json:"user_id"`
	EventKind string                 `json:"event_kind"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	SentAt    int64                  `json:"sent_at"`
}

func (c *Client) Notify(ctx context.Context, userID uuid.UUID, eventKind string, payload map[string]interface{}) error {
	log := logger.WithComponent("notify")

	body, err := json.Marshal(event{
		UserID:    userID.String(),
		EventKind: eventKind,
		Payload:   payload,
		SentAt:    time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/notifications", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		telemetry.RecordNotification("error")
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		telemetry.RecordNotification("rejected")
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}

	telemetry.RecordNotification("delivered")
	log.Debug().
		Str("user_id", userID.String()).
		Str("event", eventKind).
		Msg("Notification delivered")
	return nil
}
