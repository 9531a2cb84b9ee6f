package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/telemetry"
	"github.com/bidtask/bidtask/pkg/logger"
)

// ReviewService records reviews for completed tasks and keeps the tasker
// rating aggregate current.
type ReviewService struct {
	tasks    TaskRepository
	bids     BidRepository
	reviews  ReviewRepository
	notifier Notifier
}

func NewReviewService(tasks TaskRepository, bids BidRepository, reviews ReviewRepository, notifier Notifier) *ReviewService {
	return &ReviewService{
		tasks:    tasks,
		bids:     bids,
		reviews:  reviews,
		notifier: notifier,
	}
}

func (s *ReviewService) SubmitReview(ctx context.Context, taskID, reviewerID uuid.UUID, rating int, comment string) (*models.Review, *models.TaskerRating, error) {
	log := logger.WithComponent("review_service")

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if !task.OwnedBy(reviewerID) {
		return nil, nil, models.ErrForbidden
	}
	if task.Status != models.TaskStatusCompleted {
		return nil, nil, models.NewStateTransitionError("task", string(task.Status), string(models.TaskStatusCompleted))
	}

	accepted, err := s.bids.GetAcceptedByTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	review := &models.Review{
		ID:         uuid.New(),
		TaskID:     taskID,
		ReviewerID: reviewerID,
		TaskerID:   accepted.TaskerID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	}

	if err := review.Validate(); err != nil {
		log.Debug().Err(err).Str("task_id", taskID.String()).Msg("Invalid review data")
		return nil, nil, err
	}

	aggregate, err := s.reviews.Create(ctx, review)
	if err != nil {
		return nil, nil, err
	}

	telemetry.RecordReview(rating)
	s.notify(ctx, review.TaskerID, EventReviewReceived, map[string]interface{}{
		"task_id":   taskID.String(),
		"review_id": review.ID.String(),
		"rating":    rating,
	})

	log.Info().
		Str("review_id", review.ID.String()).
		Str("tasker_id", review.TaskerID.String()).
		Int("rating", rating).
		Msg("Review recorded")
	return review, aggregate, nil
}

func (s *ReviewService) ListReviewsByTasker(ctx context.Context, taskerID uuid.UUID) ([]models.Review, error) {
	return s.reviews.ListByTasker(ctx, taskerID)
}

func (s *ReviewService) GetTaskerRating(ctx context.Context, taskerID uuid.UUID) (*models.TaskerRating, error) {
	return s.reviews.GetRating(ctx, taskerID)
}

func (s *ReviewService) notify(ctx context.Context, userID uuid.UUID, eventKind string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, eventKind, payload); err != nil {
		log := logger.WithComponent("review_service")
		log.Warn().
			Err(err).
			Str("event", eventKind).
			Str("user_id", userID.String()).
			Msg("Notification delivery failed")
	}
}
