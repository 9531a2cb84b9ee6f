package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5

	MaxReviewCommentLen = 1000
)

// Review is a client's rating of the tasker whose bid was accepted on a
// completed task. One review per (task, reviewer) pair, immutable once
// created.
type Review struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TaskID     uuid.UUID `json:"task_id" db:"task_id"`
	ReviewerID uuid.UUID `json:"reviewer_id" db:"reviewer_id"`
	TaskerID   uuid.UUID `json:"tasker_id" db:"tasker_id"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    string    `json:"comment" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Validate performs basic validation on the review
func (r *Review) Validate() error {
	if r.TaskID == uuid.Nil {
		return NewValidationError("task_id", "is required")
	}
	if r.ReviewerID == uuid.Nil {
		return NewValidationError("reviewer_id", "is required")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return NewValidationError("rating", "must be between 1 and 5")
	}
	if len(r.Comment) > MaxReviewCommentLen {
		return NewValidationError("comment", "exceeds maximum length")
	}
	return nil
}

// TaskerRating is the incrementally maintained review summary for a tasker.
// It is updated in the same transaction that inserts the review and is the
// source of truth for the displayed average.
type TaskerRating struct {
	TaskerID    uuid.UUID `json:"tasker_id" db:"tasker_id"`
	ReviewCount int64     `json:"review_count" db:"review_count"`
	RatingSum   int64     `json:"rating_sum" db:"rating_sum"`
}

// Average returns the running average rounded to one decimal place for
// display. A tasker with no reviews averages zero.
func (r TaskerRating) Average() decimal.Decimal {
	if r.ReviewCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(r.RatingSum).
		Div(decimal.NewFromInt(r.ReviewCount)).
		Round(1)
}
