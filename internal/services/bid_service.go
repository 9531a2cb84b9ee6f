package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/telemetry"
	"github.com/bidtask/bidtask/pkg/logger"
)

// BidService admits bid submissions, handles withdrawal, and coordinates
// acceptance: the one operation that races and the reason tasks carry a
// version.
type BidService struct {
	tasks    TaskRepository
	bids     BidRepository
	notifier Notifier
}

func NewBidService(tasks TaskRepository, bids BidRepository, notifier Notifier) *BidService {
	return &BidService{
		tasks:    tasks,
		bids:     bids,
		notifier: notifier,
	}
}

func (s *BidService) SubmitBid(ctx context.Context, taskID, taskerID uuid.UUID, amount decimal.Decimal, message string) (*models.Bid, error) {
	log := logger.WithComponent("bid_service")

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnedBy(taskerID) {
		// A client may not bid on their own task.
		return nil, models.ErrForbidden
	}
	if task.Status != models.TaskStatusOpen {
		return nil, models.NewStateTransitionError("bid", string(task.Status), string(models.BidStatusSubmitted))
	}

	now := time.Now().UTC()
	bid := &models.Bid{
		ID:          uuid.New(),
		TaskID:      taskID,
		TaskerID:    taskerID,
		Amount:      amount,
		Message:     message,
		Status:      models.BidStatusSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	if err := bid.Validate(); err != nil {
		log.Debug().Err(err).Str("task_id", taskID.String()).Msg("Invalid bid data")
		return nil, err
	}

	if err := s.bids.Create(ctx, bid); err != nil {
		if err == models.ErrDuplicateBid {
			log.Debug().
				Str("task_id", taskID.String()).
				Str("tasker_id", taskerID.String()).
				Msg("Duplicate bid rejected")
		}
		return nil, err
	}

	telemetry.RecordBidTransition(string(models.BidStatusSubmitted))
	s.notify(ctx, task.ClientID, EventBidSubmitted, map[string]interface{}{
		"task_id": taskID.String(),
		"bid_id":  bid.ID.String(),
	})

	log.Info().Str("bid_id", bid.ID.String()).Str("task_id", taskID.String()).Msg("Bid submitted")
	return bid, nil
}

func (s *BidService) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return s.bids.Get(ctx, id)
}

func (s *BidService) ListBids(ctx context.Context, taskID uuid.UUID) ([]models.Bid, error) {
	if _, err := s.tasks.Get(ctx, taskID); err != nil {
		return nil, err
	}
	return s.bids.ListByTask(ctx, taskID)
}

func (s *BidService) ListBidsByTasker(ctx context.Context, taskerID uuid.UUID) ([]models.Bid, error) {
	return s.bids.ListByTasker(ctx, taskerID)
}

// WithdrawBid lets the owning tasker withdraw a still-submitted bid.
func (s *BidService) WithdrawBid(ctx context.Context, bidID, taskerID uuid.UUID) (*models.Bid, error) {
	log := logger.WithComponent("bid_service")

	bid, err := s.bids.Get(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if !bid.OwnedBy(taskerID) {
		return nil, models.ErrForbidden
	}

	bid, err = s.bids.Withdraw(ctx, bidID)
	if err != nil {
		return nil, err
	}

	telemetry.RecordBidTransition(string(models.BidStatusWithdrawn))
	if task, taskErr := s.tasks.Get(ctx, bid.TaskID); taskErr == nil {
		s.notify(ctx, task.ClientID, EventBidWithdrawn, map[string]interface{}{
			"task_id": bid.TaskID.String(),
			"bid_id":  bid.ID.String(),
		})
	}

	log.Info().Str("bid_id", bid.ID.String()).Msg("Bid withdrawn")
	return bid, nil
}

// AcceptBid resolves the accept race. Preconditions are checked against the
// caller's read; the repository transaction re-checks them under the version
// guard, so of two near-simultaneous accepts exactly one commits and the
// other observes ErrStaleVersion.
func (s *BidService) AcceptBid(ctx context.Context, taskID, bidID, clientID uuid.UUID, expectedVersion int64) (*models.Task, *models.Bid, error) {
	log := logger.WithComponent("bid_service")

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if !task.OwnedBy(clientID) {
		return nil, nil, models.ErrForbidden
	}
	// Version before status: a caller working from an outdated read gets the
	// concurrency conflict, not a transition complaint.
	if task.Version != expectedVersion {
		telemetry.RecordAcceptConflict()
		return nil, nil, models.ErrStaleVersion
	}
	if task.Status != models.TaskStatusOpen {
		return nil, nil, models.NewStateTransitionError("task", string(task.Status), string(models.TaskStatusInProgress))
	}

	bid, err := s.bids.Get(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}
	if bid.TaskID != taskID {
		return nil, nil, models.ErrBidNotFound
	}
	if bid.Status != models.BidStatusSubmitted {
		return nil, nil, models.NewStateTransitionError("bid", string(bid.Status), string(models.BidStatusAccepted))
	}

	task, accepted, rejected, err := s.tasks.AcceptBid(ctx, taskID, bidID, expectedVersion)
	if err != nil {
		if err == models.ErrStaleVersion {
			telemetry.RecordAcceptConflict()
			log.Debug().
				Str("task_id", taskID.String()).
				Str("bid_id", bidID.String()).
				Int64("expected_version", expectedVersion).
				Msg("Accept lost the race")
		}
		return nil, nil, err
	}

	telemetry.RecordTaskTransition(string(models.TaskStatusInProgress))
	telemetry.RecordBidTransition(string(models.BidStatusAccepted))

	s.notify(ctx, accepted.TaskerID, EventBidAccepted, map[string]interface{}{
		"task_id": taskID.String(),
		"bid_id":  accepted.ID.String(),
	})
	for i := range rejected {
		telemetry.RecordBidTransition(string(models.BidStatusRejected))
		s.notify(ctx, rejected[i].TaskerID, EventBidRejected, map[string]interface{}{
			"task_id": taskID.String(),
			"bid_id":  rejected[i].ID.String(),
		})
	}

	log.Info().
		Str("task_id", taskID.String()).
		Str("bid_id", accepted.ID.String()).
		Int("rejected", len(rejected)).
		Msg("Bid accepted")
	return task, accepted, nil
}

func (s *BidService) notify(ctx context.Context, userID uuid.UUID, eventKind string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, eventKind, payload); err != nil {
		log := logger.WithComponent("bid_service")
		log.Warn().
			Err(err).
			Str("event", eventKind).
			Str("user_id", userID.String()).
			Msg("Notification delivery failed")
	}
}
