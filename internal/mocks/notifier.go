package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/bidtask/bidtask/internal/models"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID uuid.UUID, eventKind string, payload map[string]interface{}) error {
	args := m.Called(ctx, userID, eventKind, payload)
	return args.Error(0)
}

type MockSettlementGateway struct {
	mock.Mock
}

func (m *MockSettlementGateway) Settle(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, payeeID uuid.UUID) (models.PaymentStatus, error) {
	args := m.Called(ctx, paymentID, amount, payeeID)
	return args.Get(0).(models.PaymentStatus), args.Error(1)
}
