package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"porttariff/internal/domain"
	"porttariff/internal/port"
	"porttariff/internal/service"
	"porttariff/mocks"
)

// pdfContent returns minimal valid PDF bytes.
func pdfContent() []byte {
	return []byte("%PDF-1.4 test content that is at least a few bytes long for detection purposes")
}

type stubExtractor struct {
	result domain.ExtractionResult
	calls  int
}

func (s *stubExtractor) Extract(_ context.Context, _ domain.RawDocument) domain.ExtractionResult {
	s.calls++
	return s.result
}

type stubStructurer struct {
	result domain.StructuringResult
}

func (s *stubStructurer) StructureWithFallback(_ context.Context, _ string) domain.StructuringResult {
	return s.result
}

func structured(confidence float64, amounts ...int64) domain.StructuringResult {
	tariffs := make([]domain.StructuredTariff, 0, len(amounts))
	for _, a := range amounts {
		tariffs = append(tariffs, domain.StructuredTariff{TariffCandidate: domain.TariffCandidate{
			ChargeType: domain.ChargePortDues,
			ChargeName: "Port Dues",
			Amount:     decimal.NewFromInt(a),
			Currency:   "USD",
			Unit:       domain.UnitPerGRT,
			Conditions: []string{"weekdays"},
			Confidence: confidence,
		}})
	}
	return domain.NewStructuringResult(tariffs, domain.SourceLLM, 0)
}

type ingestionFixture struct {
	extractor  *stubExtractor
	structurer *stubStructurer
	repo       *mocks.MockTariffRepository
	storage    *mocks.MockObjectStorage
	notifier   *mocks.MockReviewNotifier
	svc        service.IngestionService
}

func newIngestionFixture(result domain.StructuringResult, archive bool) *ingestionFixture {
	return newIngestionFixtureWithActive(result, archive, []domain.PortTariff{})
}

// newIngestionFixtureWithActive seeds the port's currently active tariffs.
func newIngestionFixtureWithActive(result domain.StructuringResult, archive bool, active []domain.PortTariff) *ingestionFixture {
	f := &ingestionFixture{
		extractor: &stubExtractor{result: domain.ExtractionResult{
			Text:        "Port Dues: $1 per GRT",
			Method:      domain.MethodPrimary,
			Confidence:  0.98,
			PageCount:   1,
			QualityTier: domain.TierExcellent,
		}},
		structurer: &stubStructurer{result: result},
		repo:       new(mocks.MockTariffRepository),
		storage:    new(mocks.MockObjectStorage),
		notifier:   new(mocks.MockReviewNotifier),
	}
	f.repo.On("ListTariffsByPort", mock.Anything, mock.Anything, domain.TariffStatusActive).Return(active, nil).Maybe()
	f.svc = service.NewIngestionService(
		f.extractor, nil, f.structurer, nil, f.repo, f.storage, f.notifier,
		service.IngestionConfig{AutoImportThreshold: 0.8, Bucket: "tariffs", Archive: archive},
		nil,
	)
	return f
}

func TestIngest_HighConfidenceAutoImports(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 1, 2), false)

	f.repo.On("FindDocumentByHash", mock.Anything, "SGSIN", mock.AnythingOfType("string")).Return(nil, domain.ErrNotFound)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.AnythingOfType("*domain.TariffDocument"),
		mock.MatchedBy(func(rows []domain.PortTariff) bool {
			return len(rows) == 2 && rows[0].Status == domain.TariffStatusActive && rows[0].Conditions == "weekdays"
		}), true).Return(int64(3), nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 2, report.TariffsExtracted)
	assert.Equal(t, 2, report.TariffsImported)
	assert.Zero(t, report.TariffsForReview)
	assert.Equal(t, int64(3), report.TariffsExpired)
	assert.Equal(t, service.DocumentHash(pdfContent()), report.DocumentHash)
	f.repo.AssertExpectations(t)
	f.notifier.AssertNotCalled(t, "NotifyReview", mock.Anything, mock.Anything)
}

func TestIngest_LowConfidenceGoesToReview(t *testing.T) {
	f := newIngestionFixture(structured(0.6, 1), false)

	f.repo.On("FindDocumentByHash", mock.Anything, "SGSIN", mock.Anything).Return(nil, nil)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything,
		mock.MatchedBy(func(rows []domain.PortTariff) bool {
			return len(rows) == 1 && rows[0].Status == domain.TariffStatusReview
		}), false).Return(int64(0), nil)
	f.notifier.On("NotifyReview", mock.Anything, mock.AnythingOfType("*domain.IngestionReport")).Return(nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)

	assert.Equal(t, 1, report.TariffsForReview)
	assert.Zero(t, report.TariffsImported)
	f.notifier.AssertExpectations(t)
}

func TestIngest_InvalidTariffsRejectedOnAutoImport(t *testing.T) {
	res := structured(0.95, 1, 2)
	res.Tariffs[1].Currency = "XYZ"
	f := newIngestionFixture(res, false)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything,
		mock.MatchedBy(func(rows []domain.PortTariff) bool { return len(rows) == 1 }), true).Return(int64(0), nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TariffsImported)
	assert.Equal(t, 1, report.TariffsRejected)
}

func TestIngest_DuplicateTariffsSkipped(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 5, 5), false)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything,
		mock.MatchedBy(func(rows []domain.PortTariff) bool { return len(rows) == 1 }), true).Return(int64(0), nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TariffsImported)
	assert.Contains(t, report.Warnings, "duplicate port_dues tariff skipped")
}

func TestIngest_AlreadyProcessedIsSkipped(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 1), false)
	existing := &domain.TariffDocument{ID: uuid.New(), TariffCount: 7, OverallConfidence: 0.9}
	f.repo.On("FindDocumentByHash", mock.Anything, "SGSIN", service.DocumentHash(pdfContent())).Return(existing, nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)

	assert.True(t, report.Skipped)
	assert.Equal(t, existing.ID, report.DocumentID)
	assert.Equal(t, 7, report.TariffsImported)
	assert.Zero(t, f.extractor.calls)
	f.repo.AssertNotCalled(t, "CreateDocumentWithTariffs", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_ValidationErrors(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 1), false)

	tests := []struct {
		name  string
		input service.IngestInput
		want  error
	}{
		{"bad port id", service.IngestInput{PortID: "sg sin!", FileName: "t.pdf", Content: pdfContent()}, domain.ErrInvalidPortID},
		{"wrong extension", service.IngestInput{PortID: "SGSIN", FileName: "t.docx", Content: pdfContent()}, domain.ErrUnsupportedFileType},
		{"empty file", service.IngestInput{PortID: "SGSIN", FileName: "t.pdf"}, domain.ErrEmptyFile},
		{"not a pdf", service.IngestInput{PortID: "SGSIN", FileName: "t.pdf", Content: []byte("plain text pretending")}, domain.ErrUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Ingest(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var vErr *domain.ValidationError
			assert.True(t, errors.As(err, &vErr))
		})
	}
	f.repo.AssertNotCalled(t, "FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_RepositoryFailure(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 1), false)
	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIngest_ArchivesSourceDocument(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 1), true)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "tariffs" && in.ContentType == "application/pdf"
	})).Return(&port.UploadOutput{Location: "s3://tariffs/x"}, nil)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.MatchedBy(func(doc *domain.TariffDocument) bool {
		return doc.StorageKey != ""
	}), mock.Anything, true).Return(int64(0), nil)

	_, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)
	f.storage.AssertExpectations(t)
}

func TestIngest_NotifierFailureIsAWarning(t *testing.T) {
	f := newIngestionFixture(structured(0.5, 1), false)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything, mock.Anything, false).Return(int64(0), nil)
	f.notifier.On("NotifyReview", mock.Anything, mock.Anything).Return(errors.New("ses throttled"))

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)
	assert.Contains(t, report.Warnings, "reviewers were not notified")
}

func TestIngestFromStorage(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 1), true)

	f.storage.On("Download", mock.Anything, "tariffs", "inbox/sgsin-2026.pdf").Return(pdfContent(), nil)
	f.repo.On("FindDocumentByHash", mock.Anything, "SGSIN", mock.Anything).Return(nil, domain.ErrNotFound)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.MatchedBy(func(doc *domain.TariffDocument) bool {
		return doc.StorageKey == "inbox/sgsin-2026.pdf" && doc.FileName == "sgsin-2026.pdf"
	}), mock.Anything, true).Return(int64(0), nil)

	report, err := f.svc.IngestFromStorage(context.Background(), "SGSIN", "inbox/sgsin-2026.pdf")
	require.NoError(t, err)
	assert.Equal(t, "sgsin-2026.pdf", report.FileName)
	f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestIngestFromStorage_DownloadFails(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 1), false)
	f.storage.On("Download", mock.Anything, "tariffs", "missing.pdf").Return(nil, domain.ErrNotFound)

	_, err := f.svc.IngestFromStorage(context.Background(), "SGSIN", "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTariffs(t *testing.T) {
	f := newIngestionFixture(structured(0.95), false)
	rows := []domain.PortTariff{{PortID: "SGSIN", ChargeType: domain.ChargePilotage}}
	f.repo.On("ListTariffsByPort", mock.Anything, "SGSIN", domain.TariffStatusReview).Return(rows, nil)

	got, err := f.svc.ListTariffs(context.Background(), "SGSIN", domain.TariffStatusReview)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	_, err = f.svc.ListTariffs(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPortID)
}

func TestIngest_PersistFailureRemovesArchivedDocument(t *testing.T) {
	f := newIngestionFixture(structured(0.95, 1), true)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything, mock.Anything, true).Return(int64(0), domain.ErrDocumentExists)
	f.storage.On("Delete", mock.Anything, "tariffs", mock.AnythingOfType("string")).Return(nil)

	_, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	assert.ErrorIs(t, err, domain.ErrDocumentExists)
	f.storage.AssertExpectations(t)
}

func TestIngest_WarningsHoldTariffForReviewOnAutoImport(t *testing.T) {
	res := structured(0.95, 1, 2)
	res.Tariffs[1].Amount = decimal.NewFromInt(2_000_000)
	f := newIngestionFixture(res, false)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything,
		mock.MatchedBy(func(rows []domain.PortTariff) bool {
			return len(rows) == 2 && rows[0].Status == domain.TariffStatusActive && rows[1].Status == domain.TariffStatusReview
		}), true).Return(int64(0), nil)
	f.notifier.On("NotifyReview", mock.Anything, mock.Anything).Return(nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TariffsImported)
	assert.Equal(t, 1, report.TariffsForReview)
	assert.InDelta(t, 0.5, report.Statistics.AutoImportRate, 1e-9)
	assert.InDelta(t, 1.0, report.Statistics.ValidationRate, 1e-9)
	f.repo.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestIngest_UnstorableAmountsNeverReachTheDatabase(t *testing.T) {
	res := structured(0.95, 1, 2, 3)
	res.Tariffs[1].Amount = decimal.RequireFromString("100000000000000")
	res.Tariffs[2].Amount = decimal.RequireFromString("0.00001")
	f := newIngestionFixture(res, false)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything,
		mock.MatchedBy(func(rows []domain.PortTariff) bool {
			return len(rows) == 1 && rows[0].Amount.Equal(decimal.NewFromInt(1))
		}), true).Return(int64(0), nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TariffsImported)
	assert.Equal(t, 2, report.TariffsRejected)
	f.repo.AssertExpectations(t)
}

func TestIngest_ReportsPriceChangesAgainstActiveTariffs(t *testing.T) {
	active := []domain.PortTariff{
		{PortID: "SGSIN", ChargeType: domain.ChargePortDues, Amount: decimal.NewFromInt(4), Currency: "USD", Unit: domain.UnitPerGRT, Status: domain.TariffStatusActive},
		{PortID: "SGSIN", ChargeType: domain.ChargePilotage, Amount: decimal.NewFromInt(900), Currency: "USD", Unit: domain.UnitLumpsum, Status: domain.TariffStatusActive},
	}
	f := newIngestionFixtureWithActive(structured(0.95, 5), false, active)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything, mock.Anything, true).Return(int64(2), nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)
	require.NotNil(t, report.Changes)
	assert.Empty(t, report.Changes.Added)
	require.Len(t, report.Changes.Modified, 1)
	assert.True(t, decimal.NewFromInt(4).Equal(report.Changes.Modified[0].OldAmount))
	assert.InDelta(t, 25.0, report.Changes.Modified[0].PercentChange, 1e-9)
	require.Len(t, report.Changes.Removed, 1)
	assert.Equal(t, domain.ChargePilotage, report.Changes.Removed[0].ChargeType)
	assert.Equal(t, int64(2), report.TariffsExpired)
}

func TestIngest_ActiveLookupFailureIsAWarning(t *testing.T) {
	f := &ingestionFixture{
		extractor:  &stubExtractor{result: domain.ExtractionResult{Text: "x", QualityTier: domain.TierGood}},
		structurer: &stubStructurer{result: structured(0.95, 1)},
		repo:       new(mocks.MockTariffRepository),
	}
	f.svc = service.NewIngestionService(f.extractor, nil, f.structurer, nil, f.repo, nil, nil,
		service.IngestionConfig{AutoImportThreshold: 0.8}, nil)

	f.repo.On("FindDocumentByHash", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.repo.On("ListTariffsByPort", mock.Anything, "SGSIN", domain.TariffStatusActive).Return(nil, errors.New("timeout"))
	f.repo.On("CreateDocumentWithTariffs", mock.Anything, mock.Anything, mock.Anything, true).Return(int64(0), nil)

	report, err := f.svc.Ingest(context.Background(), service.IngestInput{PortID: "SGSIN", FileName: "tariff.pdf", Content: pdfContent()})
	require.NoError(t, err)
	assert.Nil(t, report.Changes)
	assert.Contains(t, report.Warnings, "price changes were not computed")
}

func TestApproveReview(t *testing.T) {
	f := newIngestionFixture(structured(0.95), false)
	docID := uuid.New()
	f.repo.On("ApproveDocument", mock.Anything, "SGSIN", docID.String()).Return(int64(4), int64(6), nil)

	res, err := f.svc.ApproveReview(context.Background(), "SGSIN", docID.String())
	require.NoError(t, err)
	assert.Equal(t, &domain.ApprovalResult{DocumentID: docID, PortID: "SGSIN", Approved: 4, Expired: 6}, res)
}

func TestApproveReview_Errors(t *testing.T) {
	f := newIngestionFixture(structured(0.95), false)
	docID := uuid.New()
	f.repo.On("ApproveDocument", mock.Anything, "SGSIN", docID.String()).Return(int64(0), int64(0), domain.ErrNothingToApprove)

	_, err := f.svc.ApproveReview(context.Background(), "SGSIN", docID.String())
	assert.ErrorIs(t, err, domain.ErrNothingToApprove)

	_, err = f.svc.ApproveReview(context.Background(), "SGSIN", "not-a-uuid")
	var vErr *domain.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = f.svc.ApproveReview(context.Background(), "bad port!", docID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidPortID)
}
