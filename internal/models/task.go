package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

const MaxTaskDescriptionLen = 4000

// Task is a unit of work posted by a client, open for bids until one is
// accepted. Tasks are never physically deleted; cancellation is a terminal
// state so that bid history survives.
type Task struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ClientID    uuid.UUID       `json:"client_id" db:"client_id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Location    string          `json:"location" db:"location"`
	Budget      decimal.Decimal `json:"budget" db:"budget"`
	ImageRefs   pq.StringArray  `json:"image_refs,omitempty" db:"image_refs"`
	Status      TaskStatus      `json:"status" db:"status"`
	Version     int64           `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// Validate performs basic validation on the task
func (t *Task) Validate() error {
	if t.ClientID == uuid.Nil {
		return NewValidationError("client_id", "is required")
	}
	if t.Title == "" {
		return NewValidationError("title", "is required")
	}
	if len(t.Description) > MaxTaskDescriptionLen {
		return NewValidationError("description", "exceeds maximum length")
	}
	if t.Location == "" {
		return NewValidationError("location", "is required")
	}
	if !t.Budget.IsPositive() {
		return NewValidationError("budget", "must be greater than zero")
	}
	return nil
}

// CanTransitionTo reports whether the lifecycle allows moving from the
// task's current status to next. Open tasks move to in_progress only via
// bid acceptance; completion is only reachable from in_progress;
// cancellation is reachable from open and in_progress.
func (t *Task) CanTransitionTo(next TaskStatus) bool {
	switch t.Status {
	case TaskStatusOpen:
		return next == TaskStatusInProgress || next == TaskStatusCancelled
	case TaskStatusInProgress:
		return next == TaskStatusCompleted || next == TaskStatusCancelled
	default:
		return false
	}
}

// OwnedBy reports whether the given user is the task's owning client.
func (t *Task) OwnedBy(userID uuid.UUID) bool {
	return t.ClientID == userID
}
