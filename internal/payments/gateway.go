package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/pkg/logger"
)

// Gateway is the HTTP client for the external settlement service. Requests
// carry the payment id as idempotency key, so retried calls are safe.
type Gateway struct {
	baseURL string
	client  *http.Client
}

func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type settleRequest struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	PayeeID   string `json:"payee_id"`
}

type settleResponse struct {
	Status string `json:"status"`
}

// Settle submits a settlement request. The returned status is the gateway's
// verdict; transport problems surface as errors and are retryable.
func (g *Gateway) Settle(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, payeeID uuid.UUID) (models.PaymentStatus, error) {
	log := logger.WithComponent("settlement_gateway")

	body, err := json.Marshal(settleRequest{
		PaymentID: paymentID.String(),
		Amount:    amount.String(),
		PayeeID:   payeeID.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal settle request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/settlements", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create settle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", paymentID.String())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("settle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("gateway unavailable, status %d", resp.StatusCode)
	}

	var result settleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode settle response: %w", err)
	}

	log.Debug().
		Str("payment_id", paymentID.String()).
		Str("status", result.Status).
		Msg("Settlement response received")

	switch result.Status {
	case "settled":
		return models.PaymentStatusSettled, nil
	default:
		return models.PaymentStatusFailed, nil
	}
}
