package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"porttariff/internal/domain"
)

// MockTariffRepository is a mock implementation of port.TariffRepository.
type MockTariffRepository struct {
	mock.Mock
}

func (m *MockTariffRepository) FindDocumentByHash(ctx context.Context, portID, hash string) (*domain.TariffDocument, error) {
	args := m.Called(ctx, portID, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TariffDocument), args.Error(1)
}

func (m *MockTariffRepository) CreateDocumentWithTariffs(ctx context.Context, doc *domain.TariffDocument, tariffs []domain.PortTariff, expireActive bool) (int64, error) {
	args := m.Called(ctx, doc, tariffs, expireActive)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTariffRepository) ApproveDocument(ctx context.Context, portID, documentID string) (int64, int64, error) {
	args := m.Called(ctx, portID, documentID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockTariffRepository) ListTariffsByPort(ctx context.Context, portID string, status domain.TariffStatus) ([]domain.PortTariff, error) {
	args := m.Called(ctx, portID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PortTariff), args.Error(1)
}
