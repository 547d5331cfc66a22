package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"porttariff/internal/domain"
	"porttariff/internal/logger"
	"porttariff/internal/port"
	"porttariff/internal/textextract"
	"porttariff/internal/validator"
)

var portIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,31}$`)

// IngestInput is the DTO for a single document ingestion.
type IngestInput struct {
	PortID   string
	FileName string
	Content  []byte
	// StorageKey is set when the document already lives in object storage.
	StorageKey string
}

// IngestionConfig holds ingestion routing and archival settings.
type IngestionConfig struct {
	MaxFileSizeBytes    int64
	AutoImportThreshold float64
	Bucket              string
	Archive             bool
}

// DocumentExtractor produces text from a validated document.
type DocumentExtractor interface {
	Extract(ctx context.Context, doc domain.RawDocument) domain.ExtractionResult
}

// Structurer turns extracted text into structured tariffs.
type Structurer interface {
	StructureWithFallback(ctx context.Context, text string) domain.StructuringResult
}

// IngestionService defines the tariff ingestion contract.
type IngestionService interface {
	Ingest(ctx context.Context, input IngestInput) (*domain.IngestionReport, error)
	IngestFromStorage(ctx context.Context, portID, key string) (*domain.IngestionReport, error)
	ListTariffs(ctx context.Context, portID string, status domain.TariffStatus) ([]domain.PortTariff, error)
	ApproveReview(ctx context.Context, portID, documentID string) (*domain.ApprovalResult, error)
}

type ingestionService struct {
	extractor  DocumentExtractor
	metadata   port.MetadataReader
	structurer Structurer
	validator  *validator.Validator
	repo       port.TariffRepository
	storage    port.ObjectStorage
	notifier   port.ReviewNotifier
	cfg        IngestionConfig
	logger     *zap.Logger
}

// NewIngestionService creates a new IngestionService implementation.
// metadata, storage and notifier are optional.
func NewIngestionService(
	extractor DocumentExtractor,
	metadata port.MetadataReader,
	structurer Structurer,
	v *validator.Validator,
	repo port.TariffRepository,
	storage port.ObjectStorage,
	notifier port.ReviewNotifier,
	cfg IngestionConfig,
	log *zap.Logger,
) IngestionService {
	if v == nil {
		v = validator.New(cfg.AutoImportThreshold)
	}
	if cfg.AutoImportThreshold <= 0 {
		cfg.AutoImportThreshold = v.AutoImportThreshold()
	}
	return &ingestionService{
		extractor:  extractor,
		metadata:   metadata,
		structurer: structurer,
		validator:  v,
		repo:       repo,
		storage:    storage,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger.OrNop(log).Named("ingestion"),
	}
}

func validatePortID(portID string) error {
	if !portIDPattern.MatchString(portID) {
		return domain.NewValidationError("port_id", fmt.Sprintf("%q is not a valid port id", portID), domain.ErrInvalidPortID)
	}
	return nil
}

// DocumentHash returns the hex SHA-256 of content.
func DocumentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (s *ingestionService) Ingest(ctx context.Context, input IngestInput) (*domain.IngestionReport, error) {
	if err := validatePortID(input.PortID); err != nil {
		return nil, err
	}
	doc, err := textextract.NewRawDocument(input.FileName, input.Content, s.cfg.MaxFileSizeBytes)
	if err != nil {
		return nil, err
	}

	hash := DocumentHash(doc.Content)
	log := s.logger.With(zap.String("port_id", input.PortID), zap.String("file", doc.Name), zap.String("hash", hash))

	existing, err := s.repo.FindDocumentByHash(ctx, input.PortID, hash)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("ingestionService.Ingest: finding document: %w", err)
	}
	if existing != nil {
		log.Info("document already processed", zap.String("document_id", existing.ID.String()))
		return &domain.IngestionReport{
			DocumentID:        existing.ID,
			PortID:            input.PortID,
			FileName:          doc.Name,
			DocumentHash:      hash,
			Skipped:           true,
			OverallConfidence: existing.OverallConfidence,
			TariffsImported:   existing.TariffCount,
			Warnings:          []string{},
		}, nil
	}

	report := &domain.IngestionReport{
		DocumentID:   uuid.New(),
		PortID:       input.PortID,
		FileName:     doc.Name,
		DocumentHash: hash,
		Warnings:     []string{},
	}

	report.Extraction = s.extractor.Extract(ctx, doc)
	if s.metadata != nil {
		report.Metadata = s.metadata.ReadMetadata(doc.Content)
	}
	if report.Extraction.QualityTier == domain.TierPoor {
		report.Warnings = append(report.Warnings, "extracted text quality is poor")
	}

	structured := s.structurer.StructureWithFallback(ctx, report.Extraction.Text)
	report.StructuringSource = structured.Source
	report.OverallConfidence = structured.OverallConfidence
	report.TariffsExtracted = len(structured.Tariffs)
	if structured.Source == domain.SourcePatternFallback {
		report.Warnings = append(report.Warnings, "tariffs structured by pattern fallback")
	}

	storageKey := input.StorageKey
	if storageKey == "" {
		storageKey = s.archive(ctx, report, doc)
	}

	report.Changes = s.diffActive(ctx, report, structured.Tariffs)

	autoImport := structured.OverallConfidence >= s.cfg.AutoImportThreshold
	rows := s.buildRows(report, structured.Tariffs, autoImport)

	record := &domain.TariffDocument{
		ID:                report.DocumentID,
		PortID:            input.PortID,
		FileName:          doc.Name,
		DocumentHash:      hash,
		ExtractionMethod:  report.Extraction.Method,
		QualityTier:       report.Extraction.QualityTier,
		PageCount:         report.Extraction.PageCount,
		Title:             report.Metadata.Title,
		OverallConfidence: structured.OverallConfidence,
		TariffCount:       len(rows),
		StorageKey:        storageKey,
		CreatedAt:         time.Now().UTC(),
	}
	expireActive := autoImport && report.TariffsImported > 0
	expired, err := s.repo.CreateDocumentWithTariffs(ctx, record, rows, expireActive)
	if err != nil {
		if input.StorageKey == "" && storageKey != "" {
			if delErr := s.storage.Delete(ctx, s.cfg.Bucket, storageKey); delErr != nil {
				log.Warn("removing archived document failed", zap.String("key", storageKey), zap.Error(delErr))
			}
		}
		return nil, fmt.Errorf("ingestionService.Ingest: persisting document: %w", err)
	}
	report.TariffsExpired = expired

	if report.TariffsForReview > 0 {
		s.notify(ctx, report)
	}

	log.Info("document ingested",
		zap.String("document_id", report.DocumentID.String()),
		zap.String("method", string(report.Extraction.Method)),
		zap.String("source", string(report.StructuringSource)),
		zap.Float64("confidence", report.OverallConfidence),
		zap.Int("imported", report.TariffsImported),
		zap.Int("review", report.TariffsForReview),
		zap.Int("rejected", report.TariffsRejected),
		zap.Int64("expired", report.TariffsExpired),
	)
	return report, nil
}

// buildRows validates every tariff and routes it on the validator's action.
// Tariffs with issues are dropped. Auto-import tariffs become active only
// when the document itself cleared the auto-import threshold; everything
// else is held for review.
func (s *ingestionService) buildRows(report *domain.IngestionReport, tariffs []domain.StructuredTariff, autoImport bool) []domain.PortTariff {
	rows := make([]domain.PortTariff, 0, len(tariffs))
	results := make([]domain.ValidationResult, 0, len(tariffs))
	seen := make(map[string]bool, len(tariffs))

	for i := range tariffs {
		t := &tariffs[i]
		key := tariffKey(t)
		if seen[key] {
			report.Warnings = append(report.Warnings, fmt.Sprintf("duplicate %s tariff skipped", t.ChargeType))
			continue
		}
		seen[key] = true

		res := s.validator.Validate(t)
		results = append(results, res)

		var status domain.TariffStatus
		switch {
		case res.Action == domain.ActionReject && len(res.Issues) > 0:
			report.TariffsRejected++
			continue
		case res.Action == domain.ActionAutoImport && autoImport:
			status = domain.TariffStatusActive
			report.TariffsImported++
		default:
			status = domain.TariffStatusReview
			report.TariffsForReview++
		}
		rows = append(rows, toRow(report, t, res, status))
	}

	report.Statistics = domain.NewIngestionStats(results)
	return rows
}

func tariffKey(t *domain.StructuredTariff) string {
	bound := func(v *int64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(*v)
	}
	return strings.Join([]string{
		string(t.ChargeType), strings.ToLower(t.ChargeName), t.Amount.String(), t.Currency,
		string(t.Unit), bound(t.SizeRangeMin), bound(t.SizeRangeMax),
	}, "|")
}

func toRow(report *domain.IngestionReport, t *domain.StructuredTariff, res domain.ValidationResult, status domain.TariffStatus) domain.PortTariff {
	issues := make([]string, 0, len(t.Issues)+len(res.Issues)+len(res.Warnings))
	issues = append(issues, t.Issues...)
	issues = append(issues, res.Issues...)
	issues = append(issues, res.Warnings...)

	return domain.PortTariff{
		ID:           uuid.New(),
		DocumentID:   report.DocumentID,
		PortID:       report.PortID,
		ChargeType:   t.ChargeType,
		ChargeName:   t.ChargeName,
		Amount:       t.Amount,
		Currency:     t.Currency,
		Unit:         t.Unit,
		SizeRangeMin: t.SizeRangeMin,
		SizeRangeMax: t.SizeRangeMax,
		Conditions:   strings.Join(t.Conditions, "; "),
		SourceText:   t.SourceText,
		Confidence:   res.Confidence,
		Issues:       strings.Join(issues, "; "),
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
}

func (s *ingestionService) archive(ctx context.Context, report *domain.IngestionReport, doc domain.RawDocument) string {
	if !s.cfg.Archive || s.storage == nil {
		return ""
	}
	key := fmt.Sprintf("ports/%s/documents/%s/%s", report.PortID, report.DocumentID, doc.Name)
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(doc.Content),
		ContentType: "application/pdf",
		Size:        doc.Size,
	})
	if err != nil {
		s.logger.Warn("archiving source document failed", zap.String("key", key), zap.Error(err))
		report.Warnings = append(report.Warnings, "source document was not archived")
		return ""
	}
	return key
}

func (s *ingestionService) notify(ctx context.Context, report *domain.IngestionReport) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyReview(ctx, report); err != nil {
		s.logger.Warn("review notification failed", zap.String("document_id", report.DocumentID.String()), zap.Error(err))
		report.Warnings = append(report.Warnings, "reviewers were not notified")
	}
}

func (s *ingestionService) IngestFromStorage(ctx context.Context, portID, key string) (*domain.IngestionReport, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("ingestionService.IngestFromStorage: %w", domain.ErrStorageDisabled)
	}
	if err := validatePortID(portID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, domain.NewValidationError("key", "object key is required", domain.ErrFileNotFound)
	}

	content, err := s.storage.Download(ctx, s.cfg.Bucket, key)
	if err != nil {
		return nil, fmt.Errorf("ingestionService.IngestFromStorage: %w", err)
	}
	return s.Ingest(ctx, IngestInput{
		PortID:     portID,
		FileName:   path.Base(key),
		Content:    content,
		StorageKey: key,
	})
}

func (s *ingestionService) ListTariffs(ctx context.Context, portID string, status domain.TariffStatus) ([]domain.PortTariff, error) {
	if err := validatePortID(portID); err != nil {
		return nil, err
	}
	tariffs, err := s.repo.ListTariffsByPort(ctx, portID, status)
	if err != nil {
		return nil, fmt.Errorf("ingestionService.ListTariffs: %w", err)
	}
	return tariffs, nil
}

// diffActive compares the structured tariffs with the port's active ones.
// A lookup failure only costs the change report.
func (s *ingestionService) diffActive(ctx context.Context, report *domain.IngestionReport, tariffs []domain.StructuredTariff) *domain.TariffChanges {
	active, err := s.repo.ListTariffsByPort(ctx, report.PortID, domain.TariffStatusActive)
	if err != nil {
		s.logger.Warn("loading active tariffs failed", zap.String("port_id", report.PortID), zap.Error(err))
		report.Warnings = append(report.Warnings, "price changes were not computed")
		return nil
	}
	return DiffTariffs(active, tariffs)
}

func (s *ingestionService) ApproveReview(ctx context.Context, portID, documentID string) (*domain.ApprovalResult, error) {
	if err := validatePortID(portID); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(documentID)
	if err != nil {
		return nil, domain.NewValidationError("document_id", fmt.Sprintf("%q is not a valid document id", documentID), domain.ErrNotFound)
	}

	approved, expired, err := s.repo.ApproveDocument(ctx, portID, id.String())
	if err != nil {
		return nil, fmt.Errorf("ingestionService.ApproveReview: %w", err)
	}
	s.logger.Info("review approved",
		zap.String("port_id", portID),
		zap.String("document_id", id.String()),
		zap.Int64("approved", approved),
		zap.Int64("expired", expired),
	)
	return &domain.ApprovalResult{DocumentID: id, PortID: portID, Approved: approved, Expired: expired}, nil
}
