package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"porttariff/internal/domain"
	"porttariff/internal/handler"
	"porttariff/internal/pattern"
	"porttariff/internal/router"
	"porttariff/internal/service"
	"porttariff/internal/structuring"
	"porttariff/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newTestRouter(svc *mocks.MockIngestionService, db handler.Pinger) *gin.Engine {
	engine := structuring.NewEngine(nil, pattern.NewExtractor(), structuring.DefaultConfig(), nil)
	return router.Setup(nil, nil,
		handler.NewHealthHandler(db),
		handler.NewTariffHandler(svc, 1024),
		handler.NewStructureHandler(engine, structuring.NewCoordinator(engine, 3, nil)),
	)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func multipartBody(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = part.Write(content)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r := newTestRouter(new(mocks.MockIngestionService), fakePinger{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness_DatabaseDown(t *testing.T) {
	r := newTestRouter(new(mocks.MockIngestionService), fakePinger{err: errors.New("down")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUpload_Success(t *testing.T) {
	svc := new(mocks.MockIngestionService)
	report := &domain.IngestionReport{DocumentID: uuid.New(), PortID: "SGSIN", TariffsImported: 3}
	svc.On("Ingest", mock.Anything, mock.MatchedBy(func(in service.IngestInput) bool {
		return in.PortID == "SGSIN" && in.FileName == "tariff.pdf" && bytes.HasPrefix(in.Content, []byte("%PDF"))
	})).Return(report, nil)

	body, contentType := multipartBody(t, "tariff.pdf", []byte("%PDF-1.4 test content"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/SGSIN/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	svc.AssertExpectations(t)
}

func TestUpload_SkippedReturnsOK(t *testing.T) {
	svc := new(mocks.MockIngestionService)
	svc.On("Ingest", mock.Anything, mock.Anything).Return(&domain.IngestionReport{Skipped: true}, nil)

	body, contentType := multipartBody(t, "tariff.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/SGSIN/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpload_MissingFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/SGSIN/documents", http.NoBody)
	w := httptest.NewRecorder()
	newTestRouter(new(mocks.MockIngestionService), nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", decode(t, w).Error.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	body, contentType := multipartBody(t, "tariff.pdf", bytes.Repeat([]byte("x"), 2048))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/SGSIN/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(new(mocks.MockIngestionService), nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUpload_ValidationErrorMapped(t *testing.T) {
	svc := new(mocks.MockIngestionService)
	svc.On("Ingest", mock.Anything, mock.Anything).
		Return(nil, domain.NewValidationError("extension", `"docx" is not a supported document type`, domain.ErrUnsupportedFileType))

	body, contentType := multipartBody(t, "tariff.docx", []byte("PK"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/SGSIN/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "docx")
}

func TestIngestFromS3(t *testing.T) {
	svc := new(mocks.MockIngestionService)
	svc.On("IngestFromStorage", mock.Anything, "NLRTM", "inbox/rtm.pdf").Return(&domain.IngestionReport{PortID: "NLRTM"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/NLRTM/documents/s3", strings.NewReader(`{"key":"inbox/rtm.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestIngestFromS3_MissingKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/NLRTM/documents/s3", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newTestRouter(new(mocks.MockIngestionService), nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprove(t *testing.T) {
	docID := uuid.New()
	svc := new(mocks.MockIngestionService)
	svc.On("ApproveReview", mock.Anything, "NLRTM", docID.String()).
		Return(&domain.ApprovalResult{DocumentID: docID, PortID: "NLRTM", Approved: 3, Expired: 5}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/NLRTM/documents/"+docID.String()+"/approve", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["approved"])
	assert.Equal(t, float64(5), data["expired"])
	svc.AssertExpectations(t)
}

func TestApprove_NothingInReview(t *testing.T) {
	svc := new(mocks.MockIngestionService)
	svc.On("ApproveReview", mock.Anything, "NLRTM", "doc-1").Return(nil, domain.ErrNothingToApprove)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ports/NLRTM/documents/doc-1/approve", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOTHING_TO_APPROVE", decode(t, w).Error.Code)
}

func TestListTariffs_Formats(t *testing.T) {
	rows := []domain.PortTariff{{PortID: "SGSIN", ChargeType: domain.ChargePilotage, Amount: decimal.NewFromInt(2500), Currency: "USD", Unit: domain.UnitLumpsum}}

	tests := []struct {
		format      string
		contentType string
	}{
		{"", "application/json"},
		{"csv", "text/csv"},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	}
	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			svc := new(mocks.MockIngestionService)
			svc.On("ListTariffs", mock.Anything, "SGSIN", domain.TariffStatusActive).Return(rows, nil)

			url := "/api/v1/ports/SGSIN/tariffs?status=active"
			if tt.format != "" {
				url += "&format=" + tt.format
			}
			w := httptest.NewRecorder()
			newTestRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, http.NoBody))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			if tt.format != "" {
				assert.Contains(t, w.Header().Get("Content-Disposition"), "SGSIN_tariffs_")
			}
		})
	}
}

func TestListTariffs_CSVBody(t *testing.T) {
	svc := new(mocks.MockIngestionService)
	svc.On("ListTariffs", mock.Anything, "SGSIN", domain.TariffStatus("")).
		Return([]domain.PortTariff{{PortID: "SGSIN", ChargeType: domain.ChargeTowage, Amount: decimal.NewFromInt(1200)}}, nil)

	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ports/SGSIN/tariffs?format=csv", http.NoBody))

	body := strings.TrimPrefix(w.Body.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Port,Charge Type"))
	assert.True(t, strings.HasPrefix(lines[1], "SGSIN,towage,,1200"))
}

func TestListTariffs_BadQuery(t *testing.T) {
	for _, url := range []string{
		"/api/v1/ports/SGSIN/tariffs?status=deleted",
		"/api/v1/ports/SGSIN/tariffs?format=pdf",
	} {
		svc := new(mocks.MockIngestionService)
		svc.On("ListTariffs", mock.Anything, mock.Anything, mock.Anything).Return([]domain.PortTariff{}, nil)

		w := httptest.NewRecorder()
		newTestRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, http.NoBody))
		assert.Equal(t, http.StatusBadRequest, w.Code, url)
	}
}

func TestListTariffs_InternalError(t *testing.T) {
	svc := new(mocks.MockIngestionService)
	svc.On("ListTariffs", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db gone"))

	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ports/SGSIN/tariffs", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "db gone")
}

func TestStructure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/structure", strings.NewReader(`{"text":"Port Dues: $0.50 per GRT"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newTestRouter(new(mocks.MockIngestionService), nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                     `json:"success"`
		Data    domain.StructuringResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.SourcePatternFallback, resp.Data.Source)
	require.Len(t, resp.Data.Tariffs, 1)
	assert.Equal(t, domain.ChargePortDues, resp.Data.Tariffs[0].ChargeType)
}

func TestStructure_EmptyText(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/structure", strings.NewReader(`{"text":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newTestRouter(new(mocks.MockIngestionService), nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_TEXT", decode(t, w).Error.Code)
}

func TestStructureBatch(t *testing.T) {
	body := `{"documents":[{"id":"a","text":"Port Dues: $0.50 per GRT"},{"id":"b","text":"nothing here"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/structure/batch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newTestRouter(new(mocks.MockIngestionService), nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data domain.BatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Len(t, resp.Data["a"].Tariffs, 1)
	assert.Empty(t, resp.Data["b"].Tariffs)
}

func TestStructureBatch_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"duplicate ids": `{"documents":[{"id":"a","text":"x"},{"id":"a","text":"y"}]}`,
		"missing id":    `{"documents":[{"text":"x"}]}`,
		"not json":      `documents`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/structure/batch", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		newTestRouter(new(mocks.MockIngestionService), nil).ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrDocumentExists, http.StatusConflict, "DOCUMENT_EXISTS"},
		{domain.NewValidationError("size", "too big", domain.ErrFileTooLarge), http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{&domain.ValidationError{Field: "x", Reason: "y"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{domain.ErrStorageDisabled, http.StatusServiceUnavailable, "STORAGE_DISABLED"},
		{fmt.Errorf("wrapped: %w", domain.ErrNothingToApprove), http.StatusConflict, "NOTHING_TO_APPROVE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		status, code, _ := handler.MapDomainError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
