package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BidStatus string

const (
	BidStatusSubmitted BidStatus = "submitted"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
	BidStatusWithdrawn BidStatus = "withdrawn"
)

func ValidBidStatus(s BidStatus) bool {
	switch s {
	case BidStatusSubmitted, BidStatusAccepted, BidStatusRejected, BidStatusWithdrawn:
		return true
	default:
		return false
	}
}

// Live reports whether the bid still counts against the one-live-bid
// invariant for its (task, tasker) pair.
func (s BidStatus) Live() bool {
	return s == BidStatusSubmitted || s == BidStatusAccepted
}

const MaxBidMessageLen = 500

// Bid is a tasker's offer (amount + message) to perform a specific task.
// A tasker may hold at most one live bid per task, and at most one bid per
// task ever reaches accepted.
type Bid struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TaskID      uuid.UUID       `json:"task_id" db:"task_id"`
	TaskerID    uuid.UUID       `json:"tasker_id" db:"tasker_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Message     string          `json:"message" db:"message"`
	Status      BidStatus       `json:"status" db:"status"`
	SubmittedAt time.Time       `json:"submitted_at" db:"submitted_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate performs basic validation on the bid
func (b *Bid) Validate() error {
	if b.TaskID == uuid.Nil {
		return NewValidationError("task_id", "is required")
	}
	if b.TaskerID == uuid.Nil {
		return NewValidationError("tasker_id", "is required")
	}
	if !b.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if len(b.Message) > MaxBidMessageLen {
		return NewValidationError("message", "exceeds maximum length")
	}
	return nil
}

// OwnedBy reports whether the given user is the bid's tasker.
func (b *Bid) OwnedBy(userID uuid.UUID) bool {
	return b.TaskerID == userID
}
