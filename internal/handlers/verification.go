package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrust/drugtrace/internal/ledger"
	"github.com/pharmatrust/drugtrace/internal/models"
	"github.com/pharmatrust/drugtrace/internal/services/verification"
)

// VerificationHandler handles batch authenticity checks.
type VerificationHandler struct {
	engine *verification.Engine
	ledger ledger.Client
}

// NewVerificationHandler creates a new verification handler.
func NewVerificationHandler(engine *verification.Engine, lc ledger.Client) *VerificationHandler {
	return &VerificationHandler{engine: engine, ledger: lc}
}

// Verify computes the verdict for one batch. An unknown batch is a valid
// FAKE verdict, not an error; only a collaborator failure maps to 500.
func (h *VerificationHandler) Verify(c *gin.Context) {
	verdict, err := h.engine.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, verdict)
}

// History returns the raw custody chain for a batch.
func (h *VerificationHandler) History(c *gin.Context) {
	batchID := c.Param("id")

	records, err := h.ledger.History(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch ID not found or history unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ownership history: " + err.Error()})
		return
	}
	if records == nil {
		records = []models.OwnershipRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"batchId": batchID,
		"history": records,
	})
}

type batchVerifyRequest struct {
	BatchIDs []string `json:"batchIds" binding:"required"`
}

// BatchVerify verifies multiple batches in one call. Each id is evaluated
// independently; a failure on one yields a per-item ERROR entry.
func (h *VerificationHandler) BatchVerify(c *gin.Context) {
	var req batchVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.BatchIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one batch id is required"})
		return
	}

	results := h.engine.VerifyMany(c.Request.Context(), req.BatchIDs)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"totalBatches": len(req.BatchIDs),
		"results":      results,
	})
}
