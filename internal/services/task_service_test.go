package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bidtask/bidtask/internal/mocks"
	"github.com/bidtask/bidtask/internal/models"
	"github.com/bidtask/bidtask/internal/services"
)

func fastRetry() services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	}
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()

	tests := []struct {
		name    string
		input   services.CreateTaskInput
		wantErr bool
	}{
		{
			name: "valid task",
			input: services.CreateTaskInput{
				ClientID:    clientID,
				Title:       "Mount TV bracket",
				Description: "55 inch TV, drywall",
				Location:    "Lisbon",
				Budget:      decimal.NewFromInt(60),
			},
		},
		{
			name: "empty title",
			input: services.CreateTaskInput{
				ClientID: clientID,
				Location: "Lisbon",
				Budget:   decimal.NewFromInt(60),
			},
			wantErr: true,
		},
		{
			name: "non-positive budget",
			input: services.CreateTaskInput{
				ClientID: clientID,
				Title:    "Mount TV bracket",
				Location: "Lisbon",
				Budget:   decimal.Zero,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taskRepo := new(mocks.MockTaskRepository)
			notifier := new(mocks.MockNotifier)
			svc := services.NewTaskService(taskRepo, new(mocks.MockBidRepository), nil, notifier)

			if !tt.wantErr {
				taskRepo.On("Create", ctx, mock.AnythingOfType("*models.Task")).Return(nil)
				notifier.On("Notify", ctx, clientID, services.EventTaskCreated, mock.Anything).Return(nil)
			}

			task, err := svc.CreateTask(ctx, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, models.IsValidation(err))
				assert.Nil(t, task)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, models.TaskStatusOpen, task.Status)
			assert.EqualValues(t, 0, task.Version)
			taskRepo.AssertExpectations(t)
		})
	}
}

func TestCompleteTask(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	taskerID := uuid.New()
	taskID := uuid.New()
	bidID := uuid.New()
	amount := decimal.NewFromInt(55)

	inProgress := &models.Task{
		ID:       taskID,
		ClientID: clientID,
		Status:   models.TaskStatusInProgress,
		Version:  1,
	}
	accepted := &models.Bid{
		ID:       bidID,
		TaskID:   taskID,
		TaskerID: taskerID,
		Amount:   amount,
		Status:   models.BidStatusAccepted,
	}

	t.Run("completes and settles payment from the accepted bid amount", func(t *testing.T) {
		taskRepo := new(mocks.MockTaskRepository)
		bidRepo := new(mocks.MockBidRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		gateway := new(mocks.MockSettlementGateway)
		notifier := new(mocks.MockNotifier)

		paymentSvc := services.NewPaymentService(paymentRepo, gateway, notifier, fastRetry())
		svc := services.NewTaskService(taskRepo, bidRepo, paymentSvc, notifier)

		completed := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusCompleted, Version: 2}

		taskRepo.On("Get", ctx, taskID).Return(inProgress, nil)
		bidRepo.On("GetAcceptedByTask", ctx, taskID).Return(accepted, nil)
		taskRepo.On("Complete", ctx, taskID, int64(1), mock.MatchedBy(func(p *models.Payment) bool {
			return p.TaskID == taskID && p.BidID == bidID && p.TaskerID == taskerID &&
				p.Amount.Equal(amount) && p.Status == models.PaymentStatusPending
		})).Return(completed, nil)
		gateway.On("Settle", ctx, mock.Anything, amount, taskerID).Return(models.PaymentStatusSettled, nil)
		paymentRepo.On("MarkSettled", ctx, mock.Anything, 1, mock.Anything).Return(nil)
		notifier.On("Notify", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		task, payment, err := svc.CompleteTask(ctx, taskID, clientID, 1)
		assert.NoError(t, err)
		assert.Equal(t, models.TaskStatusCompleted, task.Status)
		assert.Equal(t, models.PaymentStatusSettled, payment.Status)
		assert.True(t, payment.Amount.Equal(amount))
		taskRepo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("completion survives settlement failure", func(t *testing.T) {
		taskRepo := new(mocks.MockTaskRepository)
		bidRepo := new(mocks.MockBidRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		gateway := new(mocks.MockSettlementGateway)
		notifier := new(mocks.MockNotifier)

		paymentSvc := services.NewPaymentService(paymentRepo, gateway, notifier, fastRetry())
		svc := services.NewTaskService(taskRepo, bidRepo, paymentSvc, notifier)

		completed := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusCompleted, Version: 2}

		taskRepo.On("Get", ctx, taskID).Return(inProgress, nil)
		bidRepo.On("GetAcceptedByTask", ctx, taskID).Return(accepted, nil)
		taskRepo.On("Complete", ctx, taskID, int64(1), mock.Anything).Return(completed, nil)
		gateway.On("Settle", ctx, mock.Anything, amount, taskerID).Return(models.PaymentStatusFailed, nil)
		paymentRepo.On("MarkFailed", ctx, mock.Anything, 1).Return(nil)
		notifier.On("Notify", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		task, payment, err := svc.CompleteTask(ctx, taskID, clientID, 1)
		assert.NoError(t, err)
		assert.Equal(t, models.TaskStatusCompleted, task.Status)
		assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	})

	t.Run("only the owner may complete", func(t *testing.T) {
		taskRepo := new(mocks.MockTaskRepository)
		svc := services.NewTaskService(taskRepo, new(mocks.MockBidRepository), nil, nil)

		taskRepo.On("Get", ctx, taskID).Return(inProgress, nil)

		_, _, err := svc.CompleteTask(ctx, taskID, uuid.New(), 1)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("open task cannot complete", func(t *testing.T) {
		taskRepo := new(mocks.MockTaskRepository)
		svc := services.NewTaskService(taskRepo, new(mocks.MockBidRepository), nil, nil)

		open := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusOpen}
		taskRepo.On("Get", ctx, taskID).Return(open, nil)

		_, _, err := svc.CompleteTask(ctx, taskID, clientID, 0)
		assert.True(t, models.IsInvalidTransition(err))
	})
}

func TestCancelTask(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	taskID := uuid.New()

	t.Run("cancels an open task", func(t *testing.T) {
		taskRepo := new(mocks.MockTaskRepository)
		notifier := new(mocks.MockNotifier)
		svc := services.NewTaskService(taskRepo, new(mocks.MockBidRepository), nil, notifier)

		open := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusOpen, Version: 0}
		cancelled := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusCancelled, Version: 1}

		taskRepo.On("Get", ctx, taskID).Return(open, nil)
		taskRepo.On("Cancel", ctx, taskID, models.TaskStatusOpen, int64(0)).Return(cancelled, nil, nil)
		notifier.On("Notify", ctx, clientID, services.EventTaskCancelled, mock.Anything).Return(nil)

		task, err := svc.CancelTask(ctx, taskID, clientID, 0)
		assert.NoError(t, err)
		assert.Equal(t, models.TaskStatusCancelled, task.Status)
		taskRepo.AssertExpectations(t)
	})

	t.Run("cancelling an in-progress task notifies the displaced tasker", func(t *testing.T) {
		taskRepo := new(mocks.MockTaskRepository)
		notifier := new(mocks.MockNotifier)
		svc := services.NewTaskService(taskRepo, new(mocks.MockBidRepository), nil, notifier)

		taskerID := uuid.New()
		inProgress := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusInProgress, Version: 1}
		cancelled := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusCancelled, Version: 2}
		reversed := &models.Bid{ID: uuid.New(), TaskID: taskID, TaskerID: taskerID, Status: models.BidStatusRejected}

		taskRepo.On("Get", ctx, taskID).Return(inProgress, nil)
		taskRepo.On("Cancel", ctx, taskID, models.TaskStatusInProgress, int64(1)).Return(cancelled, reversed, nil)
		notifier.On("Notify", ctx, taskerID, services.EventBidRejected, mock.Anything).Return(nil)
		notifier.On("Notify", ctx, clientID, services.EventTaskCancelled, mock.Anything).Return(nil)

		_, err := svc.CancelTask(ctx, taskID, clientID, 1)
		assert.NoError(t, err)
		notifier.AssertExpectations(t)
	})

	t.Run("completed task cannot be cancelled", func(t *testing.T) {
		taskRepo := new(mocks.MockTaskRepository)
		svc := services.NewTaskService(taskRepo, new(mocks.MockBidRepository), nil, nil)

		completed := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusCompleted, Version: 2}
		taskRepo.On("Get", ctx, taskID).Return(completed, nil)

		_, err := svc.CancelTask(ctx, taskID, clientID, 2)
		assert.True(t, models.IsInvalidTransition(err))
		taskRepo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stale version surfaces a conflict", func(t *testing.T) {
		taskRepo := new(mocks.MockTaskRepository)
		svc := services.NewTaskService(taskRepo, new(mocks.MockBidRepository), nil, nil)

		open := &models.Task{ID: taskID, ClientID: clientID, Status: models.TaskStatusOpen, Version: 3}
		taskRepo.On("Get", ctx, taskID).Return(open, nil)

		_, err := svc.CancelTask(ctx, taskID, clientID, 1)
		assert.ErrorIs(t, err, models.ErrStaleVersion)
		taskRepo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
