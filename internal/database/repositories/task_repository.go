package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bidtask/bidtask/internal/models"
)

type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, client_id, title, description, location, budget, image_refs, status, version, created_at, updated_at, completed_at`

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			id, client_id, title, description, location,
			budget, image_refs, status, version, created_at, updated_at
		) VALUES (
			:id, :client_id, :title, :description, :location,
			:budget, :image_refs, :status, :version, :created_at, :updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, task)
	return err
}

func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	err := r.db.GetContext(ctx, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}

type TaskFilter struct {
	ClientID uuid.UUID
	Status   models.TaskStatus
	Limit    int
	Offset   int
}

func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM tasks
		WHERE ($1::uuid IS NULL OR client_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	var clientID interface{}
	if filter.ClientID != uuid.Nil {
		clientID = filter.ClientID
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var tasks []models.Task
	err := r.db.SelectContext(ctx, &tasks, query, clientID, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// transition applies a version-guarded status update inside tx. A zero
// rows-affected result is disambiguated by re-reading the row: missing task,
// version conflict, or a state that disallows the move. The version check
// comes first: a caller holding a stale version gets ErrStaleVersion even
// when the status also moved on, so losers of an accept race see the
// conflict rather than a transition complaint.
func (r *TaskRepository) transition(ctx context.Context, tx *sqlx.Tx, taskID uuid.UUID, from, to models.TaskStatus, expectedVersion int64, completedAt *time.Time) (*models.Task, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, version = version + 1, updated_at = NOW(), completed_at = COALESCE($2, completed_at)
		WHERE id = $3 AND status = $4 AND version = $5
	`, to, completedAt, taskID, from, expectedVersion)
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		var current models.Task
		err := tx.GetContext(ctx, &current, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, models.ErrTaskNotFound
			}
			return nil, err
		}
		if current.Version != expectedVersion {
			return nil, models.ErrStaleVersion
		}
		if current.Status != from {
			return nil, models.NewStateTransitionError("task", string(current.Status), string(to))
		}
		return nil, models.ErrStaleVersion
	}

	var task models.Task
	if err := tx.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID); err != nil {
		return nil, err
	}
	return &task, nil
}

// Complete moves an in-progress task to completed and records the pending
// payment as one atomic unit.
func (r *TaskRepository) Complete(ctx context.Context, taskID uuid.UUID, expectedVersion int64, payment *models.Payment) (*models.Task, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	task, err := r.transition(ctx, tx, taskID, models.TaskStatusInProgress, models.TaskStatusCompleted, expectedVersion, &now)
	if err != nil {
		return nil, err
	}

	payment.CreatedAt = now
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO payments (id, task_id, bid_id, client_id, tasker_id, amount, status, attempts, created_at)
		VALUES (:id, :task_id, :bid_id, :client_id, :tasker_id, :amount, :status, :attempts, :created_at)
	`, payment)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

// Cancel moves an open or in-progress task to cancelled. When the task was
// in progress its accepted bid is reversed to rejected in the same
// transaction; the reversed bid is returned so the caller can notify the
// tasker.
func (r *TaskRepository) Cancel(ctx context.Context, taskID uuid.UUID, from models.TaskStatus, expectedVersion int64) (*models.Task, *models.Bid, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	task, err := r.transition(ctx, tx, taskID, from, models.TaskStatusCancelled, expectedVersion, nil)
	if err != nil {
		return nil, nil, err
	}

	var reversed *models.Bid
	if from == models.TaskStatusInProgress {
		var bid models.Bid
		err := tx.GetContext(ctx, &bid, `
			UPDATE bids SET status = $1, updated_at = NOW()
			WHERE task_id = $2 AND status = $3
			RETURNING id, task_id, tasker_id, amount, message, status, submitted_at, updated_at
		`, models.BidStatusRejected, taskID, models.BidStatusAccepted)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("reverse accepted bid: %w", err)
		}
		if err == nil {
			reversed = &bid
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return task, reversed, nil
}

// AcceptBid resolves the accept race: the task moves open -> in_progress
// under the version guard, the chosen bid becomes accepted, and every other
// submitted bid on the task is rejected. All of it commits or none of it
// does. Rejected bids are returned for notification.
func (r *TaskRepository) AcceptBid(ctx context.Context, taskID, bidID uuid.UUID, expectedVersion int64) (*models.Task, *models.Bid, []models.Bid, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("begin accept tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	task, err := r.transition(ctx, tx, taskID, models.TaskStatusOpen, models.TaskStatusInProgress, expectedVersion, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	var accepted models.Bid
	err = tx.GetContext(ctx, &accepted, `
		UPDATE bids SET status = $1, updated_at = NOW()
		WHERE id = $2 AND task_id = $3 AND status = $4
		RETURNING id, task_id, tasker_id, amount, message, status, submitted_at, updated_at
	`, models.BidStatusAccepted, bidID, taskID, models.BidStatusSubmitted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The bid moved out of submitted between the caller's read and
			// this transaction.
			var current models.Bid
			getErr := tx.GetContext(ctx, &current, `SELECT `+bidColumns+` FROM bids WHERE id = $1 AND task_id = $2`, bidID, taskID)
			if getErr != nil {
				if errors.Is(getErr, sql.ErrNoRows) {
					return nil, nil, nil, models.ErrBidNotFound
				}
				return nil, nil, nil, getErr
			}
			return nil, nil, nil, models.NewStateTransitionError("bid", string(current.Status), string(models.BidStatusAccepted))
		}
		return nil, nil, nil, fmt.Errorf("accept bid: %w", err)
	}

	var rejected []models.Bid
	err = tx.SelectContext(ctx, &rejected, `
		UPDATE bids SET status = $1, updated_at = NOW()
		WHERE task_id = $2 AND status = $3 AND id <> $4
		RETURNING id, task_id, tasker_id, amount, message, status, submitted_at, updated_at
	`, models.BidStatusRejected, taskID, models.BidStatusSubmitted, bidID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reject competing bids: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, err
	}
	return task, &accepted, rejected, nil
}
