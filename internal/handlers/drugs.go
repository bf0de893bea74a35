package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrust/drugtrace/internal/custody"
	"github.com/pharmatrust/drugtrace/internal/ledger"
	"github.com/pharmatrust/drugtrace/internal/models"
	"github.com/pharmatrust/drugtrace/internal/repository"
	"github.com/pharmatrust/drugtrace/pkg/composition"
	"github.com/pharmatrust/drugtrace/pkg/utils"
)

// DrugHandler handles batch registration, composition validation, and
// ownership transfers.
type DrugHandler struct {
	users     *repository.UserRepository
	batches   *repository.BatchRepository
	refs      *repository.ReferenceRepository
	ledger    ledger.Client
	validator *composition.Validator
}

// NewDrugHandler creates a new drug handler.
func NewDrugHandler(users *repository.UserRepository, batches *repository.BatchRepository, refs *repository.ReferenceRepository, lc ledger.Client, validator *composition.Validator) *DrugHandler {
	return &DrugHandler{
		users:     users,
		batches:   batches,
		refs:      refs,
		ledger:    lc,
		validator: validator,
	}
}

type validateCompositionRequest struct {
	DrugName    string             `json:"drugName" binding:"required"`
	Composition models.Composition `json:"composition" binding:"required"`
}

// ValidateComposition scores a composition against the reference standard
// for the drug.
func (h *DrugHandler) ValidateComposition(c *gin.Context) {
	var req validateCompositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Composition.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	std, err := h.refs.GetByDrugName(c.Request.Context(), req.DrugName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reference standard"})
		return
	}
	if std == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No standard composition found for drug: " + req.DrugName})
		return
	}

	result := h.validator.Validate(req.DrugName, req.Composition, std.StandardComposition)
	c.JSON(http.StatusOK, result)
}

type registerDrugRequest struct {
	BatchID             string             `json:"batchId" binding:"required"`
	DrugName            string             `json:"drugName" binding:"required"`
	Composition         models.Composition `json:"composition" binding:"required"`
	ManufactureDate     int64              `json:"manufactureDate" binding:"required"`
	ExpiryDate          int64              `json:"expiryDate" binding:"required"`
	ManufacturerAddress string             `json:"manufacturerAddress" binding:"required"`
}

// Register anchors a new batch on the ledger and stores the full
// composition off-chain.
func (h *DrugHandler) Register(c *gin.Context) {
	var req registerDrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Composition.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ExpiryDate <= req.ManufactureDate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expiry date must be after manufacture date"})
		return
	}

	ctx := c.Request.Context()
	manufacturerAddress := utils.NormalizeAddress(req.ManufacturerAddress)

	existing, err := h.batches.GetComposition(ctx, req.BatchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check batch"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Batch ID already exists"})
		return
	}

	manufacturer, err := h.users.GetByWallet(ctx, manufacturerAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up manufacturer"})
		return
	}
	if manufacturer == nil || manufacturer.Role != models.RoleManufacturer {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only registered manufacturers can register drugs"})
		return
	}

	// A reference standard is optional at registration; when one is loaded
	// the submitted composition must pass validation against it.
	std, err := h.refs.GetByDrugName(ctx, req.DrugName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reference standard"})
		return
	}
	if std != nil {
		result := h.validator.Validate(req.DrugName, req.Composition, std.StandardComposition)
		if !result.IsValid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Composition validation failed: " + result.Message})
			return
		}
	}

	compositionHash, err := composition.Hash(req.Composition)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash composition"})
		return
	}

	tx, err := h.ledger.Register(ctx, ledger.RegisterRequest{
		BatchID:         req.BatchID,
		DrugName:        req.DrugName,
		CompositionHash: compositionHash,
		ManufactureDate: req.ManufactureDate,
		ExpiryDate:      req.ExpiryDate,
		Manufacturer:    manufacturerAddress,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Blockchain registration failed: " + err.Error()})
		return
	}

	now := time.Now()
	record := &models.CompositionRecord{
		BatchID:               req.BatchID,
		DrugName:              req.DrugName,
		FullComposition:       req.Composition,
		CompositionHash:       compositionHash,
		Manufacturer:          manufacturerAddress,
		ManufactureDate:       req.ManufactureDate,
		ExpiryDate:            req.ExpiryDate,
		RegistrationTimestamp: now,
	}
	if err := h.batches.CreateComposition(ctx, record); err != nil {
		if err == repository.ErrDuplicate {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Batch ID already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store composition"})
		return
	}
	batch := &models.Batch{
		BatchID:         req.BatchID,
		DrugName:        req.DrugName,
		CompositionHash: compositionHash,
		Manufacturer:    manufacturerAddress,
		CurrentOwner:    manufacturerAddress,
		ManufactureDate: req.ManufactureDate,
		ExpiryDate:      req.ExpiryDate,
		Status:          models.BatchActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.batches.CreateBatch(ctx, batch); err != nil && err != repository.ErrDuplicate {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store batch record"})
		return
	}

	log.Printf("drug registered: %s by %s", req.BatchID, manufacturerAddress)

	c.JSON(http.StatusCreated, gin.H{
		"success":         true,
		"message":         "Drug registered successfully",
		"batchId":         req.BatchID,
		"compositionHash": compositionHash,
		"transactionHash": tx.TransactionHash,
	})
}

type transferRequest struct {
	BatchID     string `json:"batchId" binding:"required"`
	FromAddress string `json:"fromAddress" binding:"required"`
	ToAddress   string `json:"toAddress" binding:"required"`
	Location    string `json:"location" binding:"required"`
}

// Transfer records a custody transfer after checking existence of the batch
// and both parties, then the role-transition table.
func (h *DrugHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	fromAddress := utils.NormalizeAddress(req.FromAddress)
	toAddress := utils.NormalizeAddress(req.ToAddress)

	batch, err := h.batches.GetBatch(ctx, req.BatchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up batch"})
		return
	}
	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch ID not found"})
		return
	}

	fromUser, err := h.users.GetByWallet(ctx, fromAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up sender"})
		return
	}
	toUser, err := h.users.GetByWallet(ctx, toAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up recipient"})
		return
	}
	if fromUser == nil || toUser == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "One or both users not found"})
		return
	}

	if err := custody.CheckTransfer(fromUser.Role, toUser.Role); err != nil {
		var illegal *custody.IllegalTransferError
		if errors.As(err, &illegal) {
			c.JSON(http.StatusForbidden, gin.H{"error": illegal.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transfer check failed"})
		return
	}

	tx, err := h.ledger.Transfer(ctx, ledger.TransferRequest{
		BatchID:      req.BatchID,
		NewOwner:     toAddress,
		Location:     req.Location,
		CurrentOwner: fromAddress,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Blockchain transfer failed: " + err.Error()})
		return
	}

	if err := h.batches.UpdateOwner(ctx, req.BatchID, toAddress); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update owner"})
		return
	}

	log.Printf("ownership transferred: %s from %s to %s", req.BatchID, fromAddress, toAddress)

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Ownership transferred successfully",
		"batchId":         req.BatchID,
		"transactionHash": tx.TransactionHash,
	})
}

// GetBatch returns the full off-chain record for a batch.
func (h *DrugHandler) GetBatch(c *gin.Context) {
	record, err := h.batches.GetComposition(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up batch"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch ID not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

type upsertReferenceRequest struct {
	DrugName            string             `json:"drugName" binding:"required"`
	StandardComposition models.Composition `json:"standardComposition" binding:"required"`
}

// UpsertReference loads or replaces the reference standard for a drug name.
// This is the data-loading surface; the verification core treats standards
// as read-only.
func (h *DrugHandler) UpsertReference(c *gin.Context) {
	var req upsertReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.StandardComposition.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	std := &models.ReferenceStandard{
		DrugName:            req.DrugName,
		StandardComposition: req.StandardComposition,
	}
	if err := h.refs.Upsert(c.Request.Context(), std); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store reference standard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "drugName": req.DrugName})
}
