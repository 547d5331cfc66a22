package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"porttariff/internal/domain"
	"porttariff/internal/service"
)

// MockIngestionService is a mock implementation of service.IngestionService.
type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Ingest(ctx context.Context, input service.IngestInput) (*domain.IngestionReport, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionReport), args.Error(1)
}

func (m *MockIngestionService) IngestFromStorage(ctx context.Context, portID, key string) (*domain.IngestionReport, error) {
	args := m.Called(ctx, portID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionReport), args.Error(1)
}

func (m *MockIngestionService) ListTariffs(ctx context.Context, portID string, status domain.TariffStatus) ([]domain.PortTariff, error) {
	args := m.Called(ctx, portID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PortTariff), args.Error(1)
}

func (m *MockIngestionService) ApproveReview(ctx context.Context, portID, documentID string) (*domain.ApprovalResult, error) {
	args := m.Called(ctx, portID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApprovalResult), args.Error(1)
}
