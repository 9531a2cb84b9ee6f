package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bidtask/bidtask/internal/models"
)

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *models.Review) (*models.TaskerRating, error) {
	args := m.Called(ctx, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskerRating), args.Error(1)
}

func (m *MockReviewRepository) ListByTasker(ctx context.Context, taskerID uuid.UUID) ([]models.Review, error) {
	args := m.Called(ctx, taskerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *MockReviewRepository) GetRating(ctx context.Context, taskerID uuid.UUID) (*models.TaskerRating, error) {
	args := m.Called(ctx, taskerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskerRating), args.Error(1)
}
