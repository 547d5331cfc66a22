package port

import (
	"context"

	"porttariff/internal/domain"
)

// ReviewNotifier tells reviewers that an ingested document needs manual review.
type ReviewNotifier interface {
	NotifyReview(ctx context.Context, report *domain.IngestionReport) error
}
