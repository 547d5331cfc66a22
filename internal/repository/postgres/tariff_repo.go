package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"porttariff/internal/domain"
	"porttariff/internal/port"
)

type tariffRepo struct {
	db *sqlx.DB
}

// NewTariffRepo creates a new PostgreSQL-backed TariffRepository.
func NewTariffRepo(db *sqlx.DB) port.TariffRepository {
	return &tariffRepo{db: db}
}

func (r *tariffRepo) FindDocumentByHash(ctx context.Context, portID, hash string) (*domain.TariffDocument, error) {
	var doc domain.TariffDocument
	err := r.db.GetContext(ctx, &doc,
		"SELECT * FROM tariff_documents WHERE port_id = $1 AND document_hash = $2", portID, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("tariffRepo.FindDocumentByHash: %w", err)
	}
	return &doc, nil
}

const insertDocument = `INSERT INTO tariff_documents
	(id, port_id, file_name, document_hash, extraction_method, quality_tier, page_count,
	 title, overall_confidence, tariff_count, storage_key, created_at)
	VALUES (:id, :port_id, :file_name, :document_hash, :extraction_method, :quality_tier, :page_count,
	 :title, :overall_confidence, :tariff_count, :storage_key, :created_at)`

const insertTariff = `INSERT INTO port_tariffs
	(id, document_id, port_id, charge_type, charge_name, amount, currency, unit,
	 size_range_min, size_range_max, conditions, source_text, confidence, issues,
	 status, effective_to, created_at)
	VALUES (:id, :document_id, :port_id, :charge_type, :charge_name, :amount, :currency, :unit,
	 :size_range_min, :size_range_max, :conditions, :source_text, :confidence, :issues,
	 :status, :effective_to, :created_at)`

func (r *tariffRepo) CreateDocumentWithTariffs(ctx context.Context, doc *domain.TariffDocument, tariffs []domain.PortTariff, expireActive bool) (expired int64, err error) {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("tariffRepo.CreateDocumentWithTariffs begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, insertDocument, doc); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return 0, domain.ErrDocumentExists
		}
		return 0, fmt.Errorf("tariffRepo.CreateDocumentWithTariffs document: %w", err)
	}

	for i := range tariffs {
		t := &tariffs[i]
		t.DocumentID = doc.ID
		if t.CreatedAt.IsZero() {
			t.CreatedAt = doc.CreatedAt
		}
		if _, err = tx.NamedExecContext(ctx, insertTariff, t); err != nil {
			return 0, fmt.Errorf("tariffRepo.CreateDocumentWithTariffs tariff %d: %w", i, err)
		}
	}

	if expireActive {
		if expired, err = expireOthers(ctx, tx, doc.PortID, doc.ID.String()); err != nil {
			return 0, fmt.Errorf("tariffRepo.CreateDocumentWithTariffs: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("tariffRepo.CreateDocumentWithTariffs commit: %w", err)
	}
	return expired, nil
}

func (r *tariffRepo) ApproveDocument(ctx context.Context, portID, documentID string) (approved, expired int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("tariffRepo.ApproveDocument begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE port_tariffs SET status = $1
		 WHERE port_id = $2 AND document_id::text = $3 AND status = $4`,
		domain.TariffStatusActive, portID, documentID, domain.TariffStatusReview)
	if err != nil {
		return 0, 0, fmt.Errorf("tariffRepo.ApproveDocument: %w", err)
	}
	if approved, err = result.RowsAffected(); err != nil {
		return 0, 0, fmt.Errorf("tariffRepo.ApproveDocument: %w", err)
	}
	if approved == 0 {
		err = domain.ErrNothingToApprove
		return 0, 0, err
	}

	if expired, err = expireOthers(ctx, tx, portID, documentID); err != nil {
		return 0, 0, fmt.Errorf("tariffRepo.ApproveDocument: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("tariffRepo.ApproveDocument commit: %w", err)
	}
	return approved, expired, nil
}

// expireOthers expires the port's active tariffs that belong to any document
// other than keepDocumentID.
func expireOthers(ctx context.Context, tx *sqlx.Tx, portID, keepDocumentID string) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE port_tariffs SET status = $1, effective_to = $2
		 WHERE port_id = $3 AND status = $4 AND document_id::text != $5`,
		domain.TariffStatusExpired, time.Now().UTC(), portID, domain.TariffStatusActive, keepDocumentID)
	if err != nil {
		return 0, fmt.Errorf("expiring active tariffs: %w", err)
	}
	return result.RowsAffected()
}

func (r *tariffRepo) ListTariffsByPort(ctx context.Context, portID string, status domain.TariffStatus) ([]domain.PortTariff, error) {
	query := "SELECT * FROM port_tariffs WHERE port_id = $1"
	args := []interface{}{portID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY charge_type, size_range_min NULLS FIRST, created_at"

	tariffs := []domain.PortTariff{}
	if err := r.db.SelectContext(ctx, &tariffs, query, args...); err != nil {
		return nil, fmt.Errorf("tariffRepo.ListTariffsByPort: %w", err)
	}
	return tariffs, nil
}
