package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrust/drugtrace/internal/ledger"
	"github.com/pharmatrust/drugtrace/internal/models"
	"github.com/pharmatrust/drugtrace/internal/services/verification"
)

type stubLedger struct {
	snapshots map[string]*ledger.VerifyResult
	histories map[string][]models.OwnershipRecord
}

func (s *stubLedger) Register(ctx context.Context, req ledger.RegisterRequest) (*ledger.TxResult, error) {
	return &ledger.TxResult{TransactionHash: "0xabc"}, nil
}

func (s *stubLedger) Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TxResult, error) {
	return &ledger.TxResult{TransactionHash: "0xdef"}, nil
}

func (s *stubLedger) Verify(ctx context.Context, batchID string) (*ledger.VerifyResult, error) {
	snapshot, ok := s.snapshots[batchID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return snapshot, nil
}

func (s *stubLedger) History(ctx context.Context, batchID string) ([]models.OwnershipRecord, error) {
	records, ok := s.histories[batchID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return records, nil
}

type emptyStore struct{}

func (emptyStore) GetComposition(ctx context.Context, batchID string) (*models.CompositionRecord, error) {
	return nil, nil
}

func verificationRouter(lc ledger.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := verification.NewEngine(lc, emptyStore{})
	handler := NewVerificationHandler(engine, lc)

	router := gin.New()
	router.GET("/verify/history/:id", handler.History)
	router.GET("/verify/:id", handler.Verify)
	router.POST("/verify/batch", handler.BatchVerify)
	return router
}

func TestVerifyEndpoint(t *testing.T) {
	now := time.Now()
	lc := &stubLedger{
		snapshots: map[string]*ledger.VerifyResult{
			"BATCH-001": {
				IsGenuine:     true,
				DrugName:      "Aspirin",
				ExpiryDate:    now.Add(365 * 24 * time.Hour).Unix(),
				TransferCount: 2,
			},
		},
		histories: map[string][]models.OwnershipRecord{
			"BATCH-001": {
				{FromRole: models.RoleManufacturer, ToRole: models.RoleDistributor, To: "0x2222222222222222222222222222222222222222"},
				{FromRole: models.RoleDistributor, ToRole: models.RolePharmacy, To: "0x3333333333333333333333333333333333333333"},
			},
		},
	}
	router := verificationRouter(lc)

	t.Run("genuine batch returns 200 with the verdict", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/verify/BATCH-001", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var verdict models.VerificationVerdict
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
		assert.Equal(t, models.StatusGenuine, verdict.Status)
		assert.True(t, verdict.IsGenuine)
	})

	t.Run("unknown batch returns 200 with a FAKE verdict", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/verify/unknown", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var verdict models.VerificationVerdict
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
		assert.Equal(t, models.StatusFake, verdict.Status)
		assert.Contains(t, verdict.Anomalies, "Batch ID not found on blockchain")
	})
}

func TestHistoryEndpoint(t *testing.T) {
	lc := &stubLedger{
		histories: map[string][]models.OwnershipRecord{
			"BATCH-001": {{From: "0x1111", To: "0x2222"}},
		},
	}
	router := verificationRouter(lc)

	t.Run("known batch returns its chain", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/verify/history/BATCH-001", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
		assert.Contains(t, w.Body.String(), "0x2222")
	})

	t.Run("unknown batch returns 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/verify/history/unknown", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBatchVerifyEndpoint(t *testing.T) {
	now := time.Now()
	lc := &stubLedger{
		snapshots: map[string]*ledger.VerifyResult{
			"good": {
				IsGenuine:     true,
				ExpiryDate:    now.Add(365 * 24 * time.Hour).Unix(),
				TransferCount: 2,
			},
		},
		histories: map[string][]models.OwnershipRecord{"good": {}},
	}
	router := verificationRouter(lc)

	t.Run("mixed ids yield per-item results", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/verify/batch",
			strings.NewReader(`{"batchIds":["good","unknown"]}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success      bool                     `json:"success"`
			TotalBatches int                      `json:"totalBatches"`
			Results      []models.BatchVerifyItem `json:"results"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 2, resp.TotalBatches)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, models.StatusGenuine, resp.Results[0].Status)
		assert.Equal(t, models.StatusFake, resp.Results[1].Status)
	})

	t.Run("empty id list returns 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/verify/batch",
			strings.NewReader(`{"batchIds":[]}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
