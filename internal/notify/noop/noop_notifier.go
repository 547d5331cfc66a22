package noop

import (
	"context"

	"go.uber.org/zap"

	"porttariff/internal/domain"
	"porttariff/internal/logger"
	"porttariff/internal/port"
)

type noopNotifier struct {
	logger *zap.Logger
}

// NewNoopNotifier creates a ReviewNotifier that only logs review requests.
func NewNoopNotifier(log *zap.Logger) port.ReviewNotifier {
	return &noopNotifier{logger: logger.OrNop(log).Named("notify")}
}

func (n *noopNotifier) NotifyReview(_ context.Context, report *domain.IngestionReport) error {
	n.logger.Info("review requested",
		zap.String("port_id", report.PortID),
		zap.String("file", report.FileName),
		zap.Float64("confidence", report.OverallConfidence),
		zap.Int("tariffs", report.TariffsForReview),
	)
	return nil
}
