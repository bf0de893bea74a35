package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrust/drugtrace/internal/middleware"
	"github.com/pharmatrust/drugtrace/internal/repository"
	"github.com/pharmatrust/drugtrace/internal/services/documents"
)

// DocumentHandler handles certificate-of-analysis uploads and downloads for
// batches.
type DocumentHandler struct {
	docs    *documents.Service
	batches *repository.BatchRepository
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(docs *documents.Service, batches *repository.BatchRepository) *DocumentHandler {
	return &DocumentHandler{docs: docs, batches: batches}
}

// Upload attaches a certificate document to an existing batch.
func (h *DocumentHandler) Upload(c *gin.Context) {
	batchID := c.Param("id")
	ctx := c.Request.Context()

	batch, err := h.batches.GetComposition(ctx, batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up batch"})
		return
	}
	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch ID not found"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	defer file.Close()

	cert, err := h.docs.Upload(ctx, batchID, middleware.GetWalletAddress(c), file, header.Size, header.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store certificate"})
		return
	}

	if err := h.batches.CreateCertificate(ctx, cert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save certificate record"})
		return
	}

	c.JSON(http.StatusCreated, cert)
}

// Download streams the most recent certificate of a batch.
func (h *DocumentHandler) Download(c *gin.Context) {
	batchID := c.Param("id")
	ctx := c.Request.Context()

	cert, err := h.batches.LatestCertificate(ctx, batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up certificate"})
		return
	}
	if cert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no certificate for batch"})
		return
	}

	reader, err := h.docs.Download(ctx, cert.StorageKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download certificate"})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", "attachment; filename="+cert.FileName)
	c.Header("Content-Length", strconv.FormatInt(cert.Size, 10))

	io.Copy(c.Writer, reader)
}
