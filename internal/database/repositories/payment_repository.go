package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bidtask/bidtask/internal/models"
)

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, task_id, bid_id, client_id, tasker_id, amount, status, attempts, settled_at, created_at`

func (r *PaymentRepository) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	err := r.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPaymentNotFound
		}
		return nil, err
	}

	return &payment, nil
}

func (r *PaymentRepository) GetByTask(ctx context.Context, taskID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE task_id = $1`

	err := r.db.GetContext(ctx, &payment, query, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPaymentNotFound
		}
		return nil, err
	}

	return &payment, nil
}

// ListByUser returns payments the user participates in, on either side.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE client_id = $1 OR tasker_id = $1
		ORDER BY created_at DESC
	`

	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		return nil, err
	}
	return payments, nil
}

// MarkSettled records a successful settlement together with the attempt
// count that produced it.
func (r *PaymentRepository) MarkSettled(ctx context.Context, id uuid.UUID, attempts int, settledAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, attempts = $2, settled_at = $3
		WHERE id = $4 AND status <> $1
	`, models.PaymentStatusSettled, attempts, settledAt, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Already settled or missing; settled payments are immutable.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// MarkFailed records an exhausted settlement. The payment stays visible for
// manual or retried settlement.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, attempts = $2
		WHERE id = $3 AND status <> $4
	`, models.PaymentStatusFailed, attempts, id, models.PaymentStatusSettled)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}
