package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bidtask/bidtask/internal/models"
)

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, task_id, reviewer_id, tasker_id, rating, comment, created_at`

// Create inserts the review and folds it into the tasker's rating aggregate
// in one transaction, so the aggregate never drifts from the review rows.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) (*models.TaskerRating, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO reviews (id, task_id, reviewer_id, tasker_id, rating, comment, created_at)
		VALUES (:id, :task_id, :reviewer_id, :tasker_id, :rating, :comment, :created_at)
	`, review)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, models.ErrDuplicateReview
		}
		return nil, err
	}

	var rating models.TaskerRating
	err = tx.GetContext(ctx, &rating, `
		INSERT INTO tasker_ratings (tasker_id, review_count, rating_sum)
		VALUES ($1, 1, $2)
		ON CONFLICT (tasker_id) DO UPDATE
		SET review_count = tasker_ratings.review_count + 1,
		    rating_sum = tasker_ratings.rating_sum + EXCLUDED.rating_sum
		RETURNING tasker_id, review_count, rating_sum
	`, review.TaskerID, review.Rating)
	if err != nil {
		return nil, fmt.Errorf("update rating aggregate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *ReviewRepository) ListByTasker(ctx context.Context, taskerID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE tasker_id = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &reviews, query, taskerID); err != nil {
		return nil, err
	}
	return reviews, nil
}

// GetRating returns the tasker's aggregate. A tasker without reviews gets a
// zero-valued aggregate rather than an error.
func (r *ReviewRepository) GetRating(ctx context.Context, taskerID uuid.UUID) (*models.TaskerRating, error) {
	var rating models.TaskerRating
	query := `SELECT tasker_id, review_count, rating_sum FROM tasker_ratings WHERE tasker_id = $1`

	err := r.db.GetContext(ctx, &rating, query, taskerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.TaskerRating{TaskerID: taskerID}, nil
		}
		return nil, err
	}

	return &rating, nil
}

// RebuildRating recomputes the aggregate from the review rows. It is the
// reconciliation path, not the hot path.
func (r *ReviewRepository) RebuildRating(ctx context.Context, taskerID uuid.UUID) (*models.TaskerRating, error) {
	var rating models.TaskerRating
	err := r.db.GetContext(ctx, &rating, `
		INSERT INTO tasker_ratings (tasker_id, review_count, rating_sum)
		SELECT $1, COUNT(*), COALESCE(SUM(rating), 0) FROM reviews WHERE tasker_id = $1
		ON CONFLICT (tasker_id) DO UPDATE
		SET review_count = EXCLUDED.review_count,
		    rating_sum = EXCLUDED.rating_sum
		RETURNING tasker_id, review_count, rating_sum
	`, taskerID)
	if err != nil {
		return nil, err
	}
	return &rating, nil
}
