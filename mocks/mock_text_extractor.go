package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"porttariff/internal/port"
)

// MockTextExtractor is a mock implementation of port.PrimaryExtractor and port.OCRExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, content []byte) (port.TextResult, error) {
	args := m.Called(ctx, content)
	return args.Get(0).(port.TextResult), args.Error(1)
}
