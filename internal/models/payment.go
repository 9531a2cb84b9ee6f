package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSettled PaymentStatus = "settled"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment records the settlement owed for a completed task. It is created
// exactly once, inside the completion transaction, with the accepted bid's
// amount. A failed payment is an operational condition to be retried, never
// a reason to un-complete the task.
type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	TaskID    uuid.UUID       `json:"task_id" db:"task_id"`
	BidID     uuid.UUID       `json:"bid_id" db:"bid_id"`
	ClientID  uuid.UUID       `json:"client_id" db:"client_id"`
	TaskerID  uuid.UUID       `json:"tasker_id" db:"tasker_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    PaymentStatus   `json:"status" db:"status"`
	Attempts  int             `json:"attempts" db:"attempts"`
	SettledAt *time.Time      `json:"settled_at,omitempty" db:"settled_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
