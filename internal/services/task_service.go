package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidtask/bidtask/internal/database/repositories"
	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/telemetry"
	"github.com/bidtask/bidtask/pkg/logger"
)

// TaskService owns the task lifecycle: creation, completion and
// cancellation. Acceptance lives in BidService since it is driven by a bid.
type TaskService struct {
	tasks    TaskRepository
	bids     BidRepository
	payments *PaymentService
	notifier Notifier
}

func NewTaskService(tasks TaskRepository, bids BidRepository, payments *PaymentService, notifier Notifier) *TaskService {
	return &TaskService{
		tasks:    tasks,
		bids:     bids,
		payments: payments,
		notifier: notifier,
	}
}

type CreateTaskInput struct {
	ClientID    uuid.UUID
	Title       string
	Description string
	Location    string
	Budget      decimal.Decimal
	ImageRefs   []string
}

func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*models.Task, error) {
	log := logger.WithComponent("task_service")

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New(),
		ClientID:    in.ClientID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Budget:      in.Budget,
		ImageRefs:   in.ImageRefs,
		Status:      models.TaskStatusOpen,
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		log.Debug().Err(err).Str("title", in.Title).Msg("Invalid task data")
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		log.Error().Err(err).Str("task_id", task.ID.String()).Msg("Failed to create task")
		return nil, err
	}

	telemetry.RecordTaskTransition(string(models.TaskStatusOpen))
	s.notify(ctx, task.ClientID, EventTaskCreated, map[string]interface{}{"task_id": task.ID.String()})

	log.Info().Str("task_id", task.ID.String()).Msg("Task created")
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return s.tasks.Get(ctx, id)
}

func (s *TaskService) ListTasks(ctx context.Context, filter repositories.TaskFilter) ([]models.Task, error) {
	return s.tasks.List(ctx, filter)
}

// ListOpenTasks feeds the live task board.
func (s *TaskService) ListOpenTasks(ctx context.Context) ([]models.Task, error) {
	return s.tasks.List(ctx, repositories.TaskFilter{Status: models.TaskStatusOpen})
}

// CompleteTask moves an in-progress task to completed, creates the pending
// payment in the same transaction and then attempts settlement. A failed
// settlement never rolls the completion back.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, clientID uuid.UUID, expectedVersion int64) (*models.Task, *models.Payment, error) {
	log := logger.WithComponent("task_service")

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if !task.OwnedBy(clientID) {
		return nil, nil, models.ErrForbidden
	}
	if task.Version != expectedVersion {
		return nil, nil, models.ErrStaleVersion
	}
	if task.Status != models.TaskStatusInProgress {
		return nil, nil, models.NewStateTransitionError("task", string(task.Status), string(models.TaskStatusCompleted))
	}

	accepted, err := s.bids.GetAcceptedByTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	payment := &models.Payment{
		ID:       uuid.New(),
		TaskID:   task.ID,
		BidID:    accepted.ID,
		ClientID: task.ClientID,
		TaskerID: accepted.TaskerID,
		Amount:   accepted.Amount,
		Status:   models.PaymentStatusPending,
	}

	task, err = s.tasks.Complete(ctx, taskID, expectedVersion, payment)
	if err != nil {
		return nil, nil, err
	}

	telemetry.RecordTaskTransition(string(models.TaskStatusCompleted))
	s.notify(ctx, accepted.TaskerID, EventTaskCompleted, map[string]interface{}{
		"task_id":    task.ID.String(),
		"payment_id": payment.ID.String(),
	})

	log.Info().
		Str("task_id", task.ID.String()).
		Str("payment_id", payment.ID.String()).
		Msg("Task completed, settling payment")

	payment, err = s.payments.Settle(ctx, payment)
	if err != nil {
		// The task stays completed; the payment is observable as failed.
		log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("Settlement failed")
	}

	return task, payment, nil
}

// CancelTask moves an open or in-progress task to cancelled. Cancelling an
// in-progress task reverses its accepted bid to rejected and notifies the
// tasker.
func (s *TaskService) CancelTask(ctx context.Context, taskID, clientID uuid.UUID, expectedVersion int64) (*models.Task, error) {
	log := logger.WithComponent("task_service")

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.OwnedBy(clientID) {
		return nil, models.ErrForbidden
	}
	if task.Version != expectedVersion {
		return nil, models.ErrStaleVersion
	}
	if !task.CanTransitionTo(models.TaskStatusCancelled) {
		return nil, models.NewStateTransitionError("task", string(task.Status), string(models.TaskStatusCancelled))
	}

	task, reversed, err := s.tasks.Cancel(ctx, taskID, task.Status, expectedVersion)
	if err != nil {
		return nil, err
	}

	telemetry.RecordTaskTransition(string(models.TaskStatusCancelled))
	if reversed != nil {
		s.notify(ctx, reversed.TaskerID, EventBidRejected, map[string]interface{}{
			"task_id": task.ID.String(),
			"bid_id":  reversed.ID.String(),
			"reason":  "task_cancelled",
		})
	}
	s.notify(ctx, task.ClientID, EventTaskCancelled, map[string]interface{}{"task_id": task.ID.String()})

	log.Info().Str("task_id", task.ID.String()).Msg("Task cancelled")
	return task, nil
}

// notify is best-effort: delivery failure is logged, never propagated.
func (s *TaskService) notify(ctx context.Context, userID uuid.UUID, eventKind string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, eventKind, payload); err != nil {
		log := logger.WithComponent("task_service")
		log.Warn().
			Err(err).
			Str("event", eventKind).
			Str("user_id", userID.String()).
			Msg("Notification delivery failed")
	}
}
