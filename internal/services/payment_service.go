package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/telemetry"
	"github.com/bidtask/bidtask/pkg/logger"
)

// RetryPolicy bounds settlement attempts against the external gateway.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// PaymentService drives settlement of pending payments through the external
// gateway. Settlement is idempotent by payment id, so a retried call never
// double-charges.
type PaymentService struct {
	payments PaymentRepository
	gateway  SettlementGateway
	notifier Notifier
	retry    RetryPolicy
}

func NewPaymentService(payments PaymentRepository, gateway SettlementGateway, notifier Notifier, retry RetryPolicy) *PaymentService {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 5
	}
	if retry.BaseBackoff <= 0 {
		retry.BaseBackoff = 500 * time.Millisecond
	}
	if retry.MaxBackoff <= 0 {
		retry.MaxBackoff = 8 * time.Second
	}
	return &PaymentService{
		payments: payments,
		gateway:  gateway,
		notifier: notifier,
		retry:    retry,
	}
}

func (s *PaymentService) GetPayment(ctx context.Context, id, requesterID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.ClientID != requesterID && payment.TaskerID != requesterID {
		return nil, models.ErrForbidden
	}
	return payment, nil
}

func (s *PaymentService) GetPaymentByTask(ctx context.Context, taskID, requesterID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if payment.ClientID != requesterID && payment.TaskerID != requesterID {
		return nil, models.ErrForbidden
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

// Settle pushes a payment through the gateway with bounded exponential
// backoff. Transport errors are retried; a gateway verdict (settled or
// failed) is final for that call. Exhaustion leaves the payment failed and
// returns ErrSettlementFailed.
func (s *PaymentService) Settle(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	log := logger.WithComponent("payment_service")

	if payment.Status == models.PaymentStatusSettled {
		return payment, nil
	}

	backoff := s.retry.BaseBackoff
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		telemetry.RecordSettlementAttempt()

		status, err := s.gateway.Settle(ctx, payment.ID, payment.Amount, payment.TaskerID)
		if err == nil {
			return s.finish(ctx, payment, status, attempt)
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("payment_id", payment.ID.String()).
			Int("attempt", attempt).
			Dur("next_backoff", backoff).
			Msg("Settlement attempt failed")

		if attempt == s.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return payment, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.retry.MaxBackoff {
			backoff = s.retry.MaxBackoff
		}
	}

	payment.Status = models.PaymentStatusFailed
	payment.Attempts = s.retry.MaxAttempts
	if err := s.payments.MarkFailed(ctx, payment.ID, payment.Attempts); err != nil {
		log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("Failed to record failed settlement")
	}
	telemetry.RecordSettlement(string(models.PaymentStatusFailed))
	s.notify(ctx, payment.TaskerID, EventPaymentFailed, map[string]interface{}{"payment_id": payment.ID.String()})

	log.Error().
		Err(lastErr).
		Str("payment_id", payment.ID.String()).
		Int("attempts", s.retry.MaxAttempts).
		Msg("Settlement exhausted, payment left failed for manual intervention")
	return payment, models.ErrSettlementFailed
}

// RetrySettlement re-runs settlement for a failed payment on behalf of a
// participant. Settled payments are immutable and returned as-is.
func (s *PaymentService) RetrySettlement(ctx context.Context, paymentID, requesterID uuid.UUID) (*models.Payment, error) {
	payment, err := s.GetPayment(ctx, paymentID, requesterID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusSettled {
		return payment, nil
	}
	return s.Settle(ctx, payment)
}

func (s *PaymentService) finish(ctx context.Context, payment *models.Payment, status models.PaymentStatus, attempts int) (*models.Payment, error) {
	log := logger.WithComponent("payment_service")

	payment.Attempts = attempts
	switch status {
	case models.PaymentStatusSettled:
		now := time.Now().UTC()
		payment.Status = models.PaymentStatusSettled
		payment.SettledAt = &now
		if err := s.payments.MarkSettled(ctx, payment.ID, attempts, now); err != nil {
			return payment, err
		}
		telemetry.RecordSettlement(string(models.PaymentStatusSettled))
		s.notify(ctx, payment.TaskerID, EventPaymentSettled, map[string]interface{}{"payment_id": payment.ID.String()})
		log.Info().Str("payment_id", payment.ID.String()).Int("attempts", attempts).Msg("Payment settled")
		return payment, nil
	default:
		// The gateway examined the request and declined it.
		payment.Status = models.PaymentStatusFailed
		if err := s.payments.MarkFailed(ctx, payment.ID, attempts); err != nil {
			return payment, err
		}
		telemetry.RecordSettlement(string(models.PaymentStatusFailed))
		s.notify(ctx, payment.TaskerID, EventPaymentFailed, map[string]interface{}{"payment_id": payment.ID.String()})
		log.Warn().Str("payment_id", payment.ID.String()).Msg("Gateway declined settlement")
		return payment, models.ErrSettlementFailed
	}
}

func (s *PaymentService) notify(ctx context.Context, userID uuid.UUID, eventKind string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, eventKind, payload); err != nil {
		log := logger.WithComponent("payment_service")
		log.Warn().
			Err(err).
			Str("event", eventKind).
			Str("user_id", userID.String()).
			Msg("Notification delivery failed")
	}
}
