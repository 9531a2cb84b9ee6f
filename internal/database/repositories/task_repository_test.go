package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidtask/bidtask/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func taskRows(id, clientID uuid.UUID, status models.TaskStatus, version int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "client_id", "title", "description", "location",
		"budget", "image_refs", "status", "version", "created_at", "updated_at", "completed_at",
	}).AddRow(id, clientID, "Paint fence", "", "Braga", "50", nil, status, version, now, now, nil)
}

func bidRows(id, taskID, taskerID uuid.UUID, status models.BidStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "task_id", "tasker_id", "amount", "message", "status", "submitted_at", "updated_at",
	}).AddRow(id, taskID, taskerID, "45", "", status, now, now)
}

func TestTaskRepositoryGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	taskID := uuid.New()
	clientID := uuid.New()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnRows(taskRows(taskID, clientID, models.TaskStatusOpen, 0))

		task, err := repo.Get(ctx, taskID)
		assert.NoError(t, err)
		assert.Equal(t, taskID, task.ID)
		assert.Equal(t, models.TaskStatusOpen, task.Status)
	})

	t.Run("missing task maps to not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(ctx, taskID)
		assert.ErrorIs(t, err, models.ErrTaskNotFound)
	})
}

func TestTaskRepositoryAcceptBid(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()
	clientID := uuid.New()
	bidID := uuid.New()
	taskerID := uuid.New()

	t.Run("winner moves the task and the bid together", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(models.TaskStatusInProgress, nil, taskID, models.TaskStatusOpen, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnRows(taskRows(taskID, clientID, models.TaskStatusInProgress, 3))
		mock.ExpectQuery(`UPDATE bids SET status`).
			WithArgs(models.BidStatusAccepted, bidID, taskID, models.BidStatusSubmitted).
			WillReturnRows(bidRows(bidID, taskID, taskerID, models.BidStatusAccepted))
		mock.ExpectQuery(`UPDATE bids SET status`).
			WithArgs(models.BidStatusRejected, taskID, models.BidStatusSubmitted, bidID).
			WillReturnRows(bidRows(uuid.New(), taskID, uuid.New(), models.BidStatusRejected))
		mock.ExpectCommit()

		task, accepted, rejected, err := repo.AcceptBid(ctx, taskID, bidID, 2)
		assert.NoError(t, err)
		assert.Equal(t, models.TaskStatusInProgress, task.Status)
		assert.EqualValues(t, 3, task.Version)
		assert.Equal(t, models.BidStatusAccepted, accepted.Status)
		assert.Len(t, rejected, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version conflict surfaces as stale", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(models.TaskStatusInProgress, nil, taskID, models.TaskStatusOpen, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		// Task is still open, only the version moved on.
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnRows(taskRows(taskID, clientID, models.TaskStatusOpen, 2))
		mock.ExpectRollback()

		_, _, _, err := repo.AcceptBid(ctx, taskID, bidID, 1)
		assert.ErrorIs(t, err, models.ErrStaleVersion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("task already in progress is an invalid transition", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tasks`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnRows(taskRows(taskID, clientID, models.TaskStatusInProgress, 2))
		mock.ExpectRollback()

		_, _, _, err := repo.AcceptBid(ctx, taskID, bidID, 2)
		assert.True(t, models.IsInvalidTransition(err))
	})

	t.Run("losing an accept race reads as a stale version", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tasks`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		// The winning accept moved both the status and the version.
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnRows(taskRows(taskID, clientID, models.TaskStatusInProgress, 1))
		mock.ExpectRollback()

		_, _, _, err := repo.AcceptBid(ctx, taskID, bidID, 0)
		assert.ErrorIs(t, err, models.ErrStaleVersion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bid gone stale inside the transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tasks`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnRows(taskRows(taskID, clientID, models.TaskStatusInProgress, 3))
		mock.ExpectQuery(`UPDATE bids SET status`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT (.+) FROM bids WHERE id = \$1 AND task_id = \$2`).
			WithArgs(bidID, taskID).
			WillReturnRows(bidRows(bidID, taskID, taskerID, models.BidStatusWithdrawn))
		mock.ExpectRollback()

		_, _, _, err := repo.AcceptBid(ctx, taskID, bidID, 2)
		assert.True(t, models.IsInvalidTransition(err))
	})
}

func TestTaskRepositoryCancel(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()
	clientID := uuid.New()

	t.Run("cancelling an in-progress task reverses the accepted bid", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(models.TaskStatusCancelled, nil, taskID, models.TaskStatusInProgress, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnRows(taskRows(taskID, clientID, models.TaskStatusCancelled, 2))
		mock.ExpectQuery(`UPDATE bids SET status`).
			WithArgs(models.BidStatusRejected, taskID, models.BidStatusAccepted).
			WillReturnRows(bidRows(uuid.New(), taskID, uuid.New(), models.BidStatusRejected))
		mock.ExpectCommit()

		task, reversed, err := repo.Cancel(ctx, taskID, models.TaskStatusInProgress, 1)
		assert.NoError(t, err)
		assert.Equal(t, models.TaskStatusCancelled, task.Status)
		assert.NotNil(t, reversed)
		assert.Equal(t, models.BidStatusRejected, reversed.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelling an open task touches no bids", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(models.TaskStatusCancelled, nil, taskID, models.TaskStatusOpen, int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
			WithArgs(taskID).
			WillReturnRows(taskRows(taskID, clientID, models.TaskStatusCancelled, 1))
		mock.ExpectCommit()

		task, reversed, err := repo.Cancel(ctx, taskID, models.TaskStatusOpen, 0)
		assert.NoError(t, err)
		assert.Equal(t, models.TaskStatusCancelled, task.Status)
		assert.Nil(t, reversed)
	})
}

func TestTaskRepositoryComplete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	taskID := uuid.New()
	clientID := uuid.New()
	payment := &models.Payment{
		ID:       uuid.New(),
		TaskID:   taskID,
		BidID:    uuid.New(),
		ClientID: clientID,
		TaskerID: uuid.New(),
		Status:   models.PaymentStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tasks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
		WithArgs(taskID).
		WillReturnRows(taskRows(taskID, clientID, models.TaskStatusCompleted, 2))
	mock.ExpectExec(`INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := repo.Complete(ctx, taskID, 1, payment)
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
