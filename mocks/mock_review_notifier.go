package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"porttariff/internal/domain"
)

// MockReviewNotifier is a mock implementation of port.ReviewNotifier.
type MockReviewNotifier struct {
	mock.Mock
}

func (m *MockReviewNotifier) NotifyReview(ctx context.Context, report *domain.IngestionReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
