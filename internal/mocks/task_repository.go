package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bidtask/bidtask/internal/database/repositories"
	"github.com/bidtask/bidtask/internal/models"
)

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, filter repositories.TaskFilter) ([]models.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockTaskRepository) Complete(ctx context.Context, taskID uuid.UUID, expectedVersion int64, payment *models.Payment) (*models.Task, error) {
	args := m.Called(ctx, taskID, expectedVersion, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskRepository) Cancel(ctx context.Context, taskID uuid.UUID, from models.TaskStatus, expectedVersion int64) (*models.Task, *models.Bid, error) {
	args := m.Called(ctx, taskID, from, expectedVersion)
	var task *models.Task
	if args.Get(0) != nil {
		task = args.Get(0).(*models.Task)
	}
	var bid *models.Bid
	if args.Get(1) != nil {
		bid = args.Get(1).(*models.Bid)
	}
	return task, bid, args.Error(2)
}

func (m *MockTaskRepository) AcceptBid(ctx context.Context, taskID, bidID uuid.UUID, expectedVersion int64) (*models.Task, *models.Bid, []models.Bid, error) {
	args := m.Called(ctx, taskID, bidID, expectedVersion)
	var task *models.Task
	if args.Get(0) != nil {
		task = args.Get(0).(*models.Task)
	}
	var bid *models.Bid
	if args.Get(1) != nil {
		bid = args.Get(1).(*models.Bid)
	}
	var rejected []models.Bid
	if args.Get(2) != nil {
		rejected = args.Get(2).([]models.Bid)
	}
	return task, bid, rejected, args.Error(3)
}
