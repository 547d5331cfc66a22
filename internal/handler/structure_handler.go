package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"porttariff/internal/domain"
)

// MaxBatchDocuments bounds the size of a single batch request.
const MaxBatchDocuments = 100

// Structurer structures a single text.
type Structurer interface {
	StructureWithFallback(ctx context.Context, text string) domain.StructuringResult
}

// BatchStructurer structures many texts.
type BatchStructurer interface {
	StructureBatch(ctx context.Context, docs []domain.BatchDocument) domain.BatchResult
}

// StructureHandler exposes text structuring without persistence.
type StructureHandler struct {
	engine Structurer
	batch  BatchStructurer
}

// NewStructureHandler creates a new StructureHandler.
func NewStructureHandler(engine Structurer, batch BatchStructurer) *StructureHandler {
	return &StructureHandler{engine: engine, batch: batch}
}

// StructureRequest is the body of POST /api/v1/structure.
type StructureRequest struct {
	Text string `json:"text"`
}

// BatchRequest is the body of POST /api/v1/structure/batch.
type BatchRequest struct {
	Documents []domain.BatchDocument `json:"documents" binding:"required,dive"`
}

// Structure handles POST /api/v1/structure
func (h *StructureHandler) Structure(c *gin.Context) {
	var req StructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		HandleError(c, domain.ErrEmptyText)
		return
	}

	RespondOK(c, h.engine.StructureWithFallback(c.Request.Context(), req.Text))
}

// Batch handles POST /api/v1/structure/batch
func (h *StructureHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Documents) > MaxBatchDocuments {
		RespondError(c, http.StatusBadRequest, "BATCH_TOO_LARGE", "a batch holds at most 100 documents")
		return
	}

	seen := make(map[string]bool, len(req.Documents))
	for _, d := range req.Documents {
		if seen[d.ID] {
			RespondError(c, http.StatusBadRequest, "DUPLICATE_ID", "document ids must be unique: "+d.ID)
			return
		}
		seen[d.ID] = true
	}

	RespondOK(c, h.batch.StructureBatch(c.Request.Context(), req.Documents))
}
