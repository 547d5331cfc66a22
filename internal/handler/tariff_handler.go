package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"porttariff/internal/domain"
	"porttariff/internal/export"
	"porttariff/internal/service"
)

// TariffHandler handles document ingestion and tariff export endpoints.
type TariffHandler struct {
	ingestion service.IngestionService
	maxBytes  int64
}

// NewTariffHandler creates a new TariffHandler. maxBytes <= 0 selects
// domain.MaxDocumentSizeBytes.
func NewTariffHandler(ingestion service.IngestionService, maxBytes int64) *TariffHandler {
	if maxBytes <= 0 {
		maxBytes = domain.MaxDocumentSizeBytes
	}
	return &TariffHandler{ingestion: ingestion, maxBytes: maxBytes}
}

// IngestFromS3Request is the body of POST /api/v1/ports/:port_id/documents/s3.
type IngestFromS3Request struct {
	Key string `json:"key" binding:"required"`
}

// Upload handles POST /api/v1/ports/:port_id/documents
func (h *TariffHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > h.maxBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "FILE_UNREADABLE", "file could not be read")
		return
	}

	report, err := h.ingestion.Ingest(c.Request.Context(), service.IngestInput{
		PortID:   c.Param("port_id"),
		FileName: header.Filename,
		Content:  content,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	respondReport(c, report)
}

// IngestFromS3 handles POST /api/v1/ports/:port_id/documents/s3
func (h *TariffHandler) IngestFromS3(c *gin.Context) {
	var req IngestFromS3Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	report, err := h.ingestion.IngestFromStorage(c.Request.Context(), c.Param("port_id"), req.Key)
	if err != nil {
		HandleError(c, err)
		return
	}
	respondReport(c, report)
}

// Approve handles POST /api/v1/ports/:port_id/documents/:id/approve
func (h *TariffHandler) Approve(c *gin.Context) {
	res, err := h.ingestion.ApproveReview(c.Request.Context(), c.Param("port_id"), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, res)
}

func respondReport(c *gin.Context, report *domain.IngestionReport) {
	if report.Skipped {
		RespondOK(c, report)
		return
	}
	RespondCreated(c, report)
}

// List handles GET /api/v1/ports/:port_id/tariffs[?status=&format=csv|xlsx]
func (h *TariffHandler) List(c *gin.Context) {
	portID := c.Param("port_id")
	status := domain.TariffStatus(c.Query("status"))
	switch status {
	case "", domain.TariffStatusActive, domain.TariffStatusReview, domain.TariffStatusExpired:
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "status must be one of: active, review, expired")
		return
	}

	tariffs, err := h.ingestion.ListTariffs(c.Request.Context(), portID, status)
	if err != nil {
		HandleError(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		RespondOK(c, tariffs)
	case "csv":
		writeCSV(c, portID, tariffs)
	case "xlsx":
		writeXLSX(c, portID, tariffs)
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be one of: json, csv, xlsx")
	}
}

func writeCSV(c *gin.Context, portID string, tariffs []domain.PortTariff) {
	var buf bytes.Buffer
	buf.Write(export.BOM)
	w := export.NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		HandleError(c, err)
		return
	}
	if err := w.WriteTariffs(tariffs); err != nil {
		HandleError(c, err)
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.BuildFilename(portID, "csv")))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func writeXLSX(c *gin.Context, portID string, tariffs []domain.PortTariff) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, tariffs); err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.BuildFilename(portID, "xlsx")))
	c.Data(http.StatusOK, export.XLSXContentType, buf.Bytes())
}
