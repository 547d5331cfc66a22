package port

import (
	"context"

	"porttariff/internal/domain"
)

// TariffRepository defines the contract for tariff persistence, keyed by port.
type TariffRepository interface {
	FindDocumentByHash(ctx context.Context, portID, hash string) (*domain.TariffDocument, error)
	// CreateDocumentWithTariffs stores doc and its tariffs in one transaction.
	// With expireActive set, the port's other active tariffs are expired in
	// the same transaction and their count is returned.
	CreateDocumentWithTariffs(ctx context.Context, doc *domain.TariffDocument, tariffs []domain.PortTariff, expireActive bool) (int64, error)
	// ApproveDocument activates a document's review tariffs and expires the
	// port's other active tariffs in one transaction.
	ApproveDocument(ctx context.Context, portID, documentID string) (approved, expired int64, err error)
	ListTariffsByPort(ctx context.Context, portID string, status domain.TariffStatus) ([]domain.PortTariff, error)
}
