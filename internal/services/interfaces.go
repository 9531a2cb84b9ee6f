package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidtask/bidtask/internal/database/repositories"
	"github.com/bidtask/bidtask/internal/models"
)

// Notification event kinds forwarded to the identity & notification service.
const (
	EventTaskCreated    = "task.created"
	EventTaskCompleted  = "task.completed"
	EventTaskCancelled  = "task.cancelled"
	EventBidSubmitted   = "bid.submitted"
	EventBidAccepted    = "bid.accepted"
	EventBidRejected    = "bid.rejected"
	EventBidWithdrawn   = "bid.withdrawn"
	EventPaymentSettled = "payment.settled"
	EventPaymentFailed  = "payment.failed"
	EventReviewReceived = "review.received"
)

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, filter repositories.TaskFilter) ([]models.Task, error)
	Complete(ctx context.Context, taskID uuid.UUID, expectedVersion int64, payment *models.Payment) (*models.Task, error)
	Cancel(ctx context.Context, taskID uuid.UUID, from models.TaskStatus, expectedVersion int64) (*models.Task, *models.Bid, error)
	AcceptBid(ctx context.Context, taskID, bidID uuid.UUID, expectedVersion int64) (*models.Task, *models.Bid, []models.Bid, error)
}

type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	Get(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.Bid, error)
	ListByTasker(ctx context.Context, taskerID uuid.UUID) ([]models.Bid, error)
	GetAcceptedByTask(ctx context.Context, taskID uuid.UUID) (*models.Bid, error)
	Withdraw(ctx context.Context, bidID uuid.UUID) (*models.Bid, error)
}

type PaymentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByTask(ctx context.Context, taskID uuid.UUID) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	MarkSettled(ctx context.Context, id uuid.UUID, attempts int, settledAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) (*models.TaskerRating, error)
	ListByTasker(ctx context.Context, taskerID uuid.UUID) ([]models.Review, error)
	GetRating(ctx context.Context, taskerID uuid.UUID) (*models.TaskerRating, error)
}

// Notifier is the outbound contract to the external identity & notification
// service. Delivery is best-effort; callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, eventKind string, payload map[string]interface{}) error
}

// SettlementGateway is the external payment collaborator. Settle is
// idempotent by payment id: calling it twice with the same id never
// double-charges.
type SettlementGateway interface {
	Settle(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, payeeID uuid.UUID) (models.PaymentStatus, error)
}
