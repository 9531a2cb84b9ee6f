package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bidtask/bidtask/internal/models"
)

type BidRepository struct {
	db *sqlx.DB
}

func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

const bidColumns = `id, task_id, tasker_id, amount, message, status, submitted_at, updated_at`

// pqUniqueViolation is the Postgres error code for unique constraint hits.
const pqUniqueViolation = "23505"

func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (id, task_id, tasker_id, amount, message, status, submitted_at, updated_at)
		VALUES (:id, :task_id, :tasker_id, :amount, :message, :status, :submitted_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, bid)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return models.ErrDuplicateBid
		}
		return err
	}
	return nil
}

func (r *BidRepository) Get(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`

	err := r.db.GetContext(ctx, &bid, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBidNotFound
		}
		return nil, err
	}

	return &bid, nil
}

func (r *BidRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE task_id = $1 ORDER BY submitted_at ASC`

	if err := r.db.SelectContext(ctx, &bids, query, taskID); err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *BidRepository) ListByTasker(ctx context.Context, taskerID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE tasker_id = $1 ORDER BY submitted_at DESC`

	if err := r.db.SelectContext(ctx, &bids, query, taskerID); err != nil {
		return nil, err
	}
	return bids, nil
}

// GetAcceptedByTask returns the task's accepted bid, if any.
func (r *BidRepository) GetAcceptedByTask(ctx context.Context, taskID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE task_id = $1 AND status = $2`

	err := r.db.GetContext(ctx, &bid, query, taskID, models.BidStatusAccepted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBidNotFound
		}
		return nil, err
	}

	return &bid, nil
}

// Withdraw moves a submitted bid to withdrawn. The state guard in the WHERE
// clause keeps a withdraw that races an accept from clobbering the accepted
// row.
func (r *BidRepository) Withdraw(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.GetContext(ctx, &bid, `
		UPDATE bids SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING `+bidColumns+`
	`, models.BidStatusWithdrawn, bidID, models.BidStatusSubmitted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			current, getErr := r.Get(ctx, bidID)
			if getErr != nil {
				return nil, getErr
			}
			return nil, models.NewStateTransitionError("bid", string(current.Status), string(models.BidStatusWithdrawn))
		}
		return nil, err
	}

	return &bid, nil
}
