package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bidtask/bidtask/internal/models"
)

func TestBidRepositoryCreate(t *testing.T) {
	ctx := context.Background()

	newBid := func() *models.Bid {
		now := time.Now().UTC()
		return &models.Bid{
			ID:          uuid.New(),
			TaskID:      uuid.New(),
			TaskerID:    uuid.New(),
			Amount:      decimal.NewFromInt(45),
			Status:      models.BidStatusSubmitted,
			SubmittedAt: now,
			UpdatedAt:   now,
		}
	}

	t.Run("inserts the bid", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBidRepository(db)

		mock.ExpectExec(`INSERT INTO bids`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Create(ctx, newBid()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate bid", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBidRepository(db)

		mock.ExpectExec(`INSERT INTO bids`).
			WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "uniq_live_bid_per_tasker"})

		err := repo.Create(ctx, newBid())
		assert.ErrorIs(t, err, models.ErrDuplicateBid)
	})
}

func TestBidRepositoryWithdraw(t *testing.T) {
	ctx := context.Background()
	bidID := uuid.New()
	taskID := uuid.New()
	taskerID := uuid.New()

	t.Run("withdraws a submitted bid", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBidRepository(db)

		mock.ExpectQuery(`UPDATE bids SET status`).
			WithArgs(models.BidStatusWithdrawn, bidID, models.BidStatusSubmitted).
			WillReturnRows(bidRows(bidID, taskID, taskerID, models.BidStatusWithdrawn))

		bid, err := repo.Withdraw(ctx, bidID)
		assert.NoError(t, err)
		assert.Equal(t, models.BidStatusWithdrawn, bid.Status)
	})

	t.Run("accepted bid refuses withdrawal", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBidRepository(db)

		mock.ExpectQuery(`UPDATE bids SET status`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT (.+) FROM bids WHERE id = \$1`).
			WithArgs(bidID).
			WillReturnRows(bidRows(bidID, taskID, taskerID, models.BidStatusAccepted))

		_, err := repo.Withdraw(ctx, bidID)
		assert.True(t, models.IsInvalidTransition(err))
	})

	t.Run("missing bid maps to not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBidRepository(db)

		mock.ExpectQuery(`UPDATE bids SET status`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT (.+) FROM bids WHERE id = \$1`).
			WithArgs(bidID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Withdraw(ctx, bidID)
		assert.ErrorIs(t, err, models.ErrBidNotFound)
	})
}

func TestBidRepositoryGetAcceptedByTask(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	t.Run("returns the accepted bid", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBidRepository(db)

		bidID := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM bids WHERE task_id = \$1 AND status = \$2`).
			WithArgs(taskID, models.BidStatusAccepted).
			WillReturnRows(bidRows(bidID, taskID, uuid.New(), models.BidStatusAccepted))

		bid, err := repo.GetAcceptedByTask(ctx, taskID)
		assert.NoError(t, err)
		assert.Equal(t, bidID, bid.ID)
	})

	t.Run("no accepted bid maps to not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBidRepository(db)

		mock.ExpectQuery(`SELECT (.+) FROM bids WHERE task_id = \$1 AND status = \$2`).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetAcceptedByTask(ctx, taskID)
		assert.ErrorIs(t, err, models.ErrBidNotFound)
	})
}
