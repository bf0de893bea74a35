package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrust/drugtrace/internal/services/audit"
	"github.com/pharmatrust/drugtrace/pkg/utils"
)

// AuditHandler exposes the regulator surface: system-wide statistics,
// anomaly sweeps, expiry reports, and user activity.
type AuditHandler struct {
	aggregator *audit.Aggregator
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(aggregator *audit.Aggregator) *AuditHandler {
	return &AuditHandler{aggregator: aggregator}
}

// Statistics returns the system-wide summary.
func (h *AuditHandler) Statistics(c *gin.Context) {
	stats, err := h.aggregator.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit statistics: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Anomalies returns one entry per batch that failed verification.
func (h *AuditHandler) Anomalies(c *gin.Context) {
	results, err := h.aggregator.Anomalies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve anomalies: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

// ExpiredDrugs lists all batches past their expiry date.
func (h *AuditHandler) ExpiredDrugs(c *gin.Context) {
	drugs, err := h.aggregator.Expired(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve expired drugs: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"count":        len(drugs),
		"expiredDrugs": drugs,
	})
}

// UserActivity returns the audit view of one user's actions.
func (h *AuditHandler) UserActivity(c *gin.Context) {
	walletAddress := utils.NormalizeAddress(c.Param("wallet"))

	activity, err := h.aggregator.UserActivity(c.Request.Context(), walletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user activity: " + err.Error()})
		return
	}
	if activity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, activity)
}
