package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrust/drugtrace/internal/ledger"
	"github.com/pharmatrust/drugtrace/internal/models"
)

// fakeLedger is an in-memory ledger double.
type fakeLedger struct {
	snapshots map[string]*ledger.VerifyResult
	histories map[string][]models.OwnershipRecord
	failWith  map[string]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		snapshots: make(map[string]*ledger.VerifyResult),
		histories: make(map[string][]models.OwnershipRecord),
		failWith:  make(map[string]error),
	}
}

func (f *fakeLedger) Register(ctx context.Context, req ledger.RegisterRequest) (*ledger.TxResult, error) {
	return &ledger.TxResult{TransactionHash: "0xabc"}, nil
}

func (f *fakeLedger) Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TxResult, error) {
	return &ledger.TxResult{TransactionHash: "0xdef"}, nil
}

func (f *fakeLedger) Verify(ctx context.Context, batchID string) (*ledger.VerifyResult, error) {
	if err, ok := f.failWith[batchID]; ok {
		return nil, err
	}
	snapshot, ok := f.snapshots[batchID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return snapshot, nil
}

func (f *fakeLedger) History(ctx context.Context, batchID string) ([]models.OwnershipRecord, error) {
	return f.histories[batchID], nil
}

// fakeStore is an in-memory off-chain store double.
type fakeStore struct {
	records map[string]*models.CompositionRecord
	err     error
}

func (f *fakeStore) GetComposition(ctx context.Context, batchID string) (*models.CompositionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[batchID], nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(lc ledger.Client, store CompositionStore) *Engine {
	return NewEngine(lc, store, WithClock(func() time.Time { return testNow }))
}

func healthySnapshot() *ledger.VerifyResult {
	return &ledger.VerifyResult{
		IsGenuine:       true,
		DrugName:        "Aspirin",
		Manufacturer:    "0x1111111111111111111111111111111111111111",
		CompositionHash: "aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66",
		ManufactureDate: testNow.Add(-90 * 24 * time.Hour).Unix(),
		ExpiryDate:      testNow.Add(365 * 24 * time.Hour).Unix(),
		CurrentOwner:    "0x3333333333333333333333333333333333333333",
		TransferCount:   2,
	}
}

func completeHistory() []models.OwnershipRecord {
	return []models.OwnershipRecord{
		{
			From: "0x1111111111111111111111111111111111111111",
			To:   "0x2222222222222222222222222222222222222222",
			FromRole: models.RoleManufacturer, ToRole: models.RoleDistributor,
			Location: "Plant A", Timestamp: testNow.Add(-60 * 24 * time.Hour).Unix(),
		},
		{
			From: "0x2222222222222222222222222222222222222222",
			To:   "0x3333333333333333333333333333333333333333",
			FromRole: models.RoleDistributor, ToRole: models.RolePharmacy,
			Location: "Warehouse B", Timestamp: testNow.Add(-30 * 24 * time.Hour).Unix(),
		},
	}
}

func TestVerifyGenuine(t *testing.T) {
	lc := newFakeLedger()
	lc.snapshots["BATCH-001"] = healthySnapshot()
	lc.histories["BATCH-001"] = completeHistory()
	store := &fakeStore{records: map[string]*models.CompositionRecord{
		"BATCH-001": {
			BatchID:         "BATCH-001",
			CompositionHash: "aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66",
		},
	}}

	verdict, err := newTestEngine(lc, store).Verify(context.Background(), "BATCH-001")
	require.NoError(t, err)

	assert.Equal(t, models.StatusGenuine, verdict.Status)
	assert.True(t, verdict.IsGenuine)
	assert.Empty(t, verdict.Anomalies)
	assert.Equal(t, "Aspirin", verdict.DrugName)
	assert.Equal(t, 2, verdict.TransferCount)
	assert.Len(t, verdict.OwnershipHistory, 2)
}

func TestVerifyUnknownBatch(t *testing.T) {
	verdict, err := newTestEngine(newFakeLedger(), &fakeStore{}).Verify(context.Background(), "does-not-exist")
	require.NoError(t, err)

	assert.Equal(t, models.StatusFake, verdict.Status)
	assert.False(t, verdict.IsGenuine)
	assert.Equal(t, []string{"Batch ID not found on blockchain"}, verdict.Anomalies)
	assert.Equal(t, "Unknown", verdict.DrugName)
	assert.Zero(t, verdict.TransferCount)
}

func TestVerifyHashMismatchOutranksCompleteness(t *testing.T) {
	lc := newFakeLedger()
	lc.snapshots["BATCH-002"] = healthySnapshot()
	lc.histories["BATCH-002"] = completeHistory()
	store := &fakeStore{records: map[string]*models.CompositionRecord{
		"BATCH-002": {
			BatchID:         "BATCH-002",
			CompositionHash: "00000000000000000000000000000000000000000000000000000000000000ff",
		},
	}}

	verdict, err := newTestEngine(lc, store).Verify(context.Background(), "BATCH-002")
	require.NoError(t, err)

	// The chain is complete, yet the tampered hash still forces FAKE.
	assert.Equal(t, models.StatusFake, verdict.Status)
	assert.False(t, verdict.IsGenuine)
	assert.Contains(t, verdict.Anomalies, "Composition hash mismatch - possible tampering")
}

func TestVerifyHashComparisonIgnoresCase(t *testing.T) {
	lc := newFakeLedger()
	lc.snapshots["BATCH-003"] = healthySnapshot()
	lc.histories["BATCH-003"] = completeHistory()
	store := &fakeStore{records: map[string]*models.CompositionRecord{
		"BATCH-003": {
			BatchID:         "BATCH-003",
			CompositionHash: "AA11BB22CC33DD44EE55FF66AA77BB88CC99DD00EE11FF22AA33BB44CC55DD66",
		},
	}}

	verdict, err := newTestEngine(lc, store).Verify(context.Background(), "BATCH-003")
	require.NoError(t, err)
	assert.Equal(t, models.StatusGenuine, verdict.Status)
}

func TestVerifyIncompleteChain(t *testing.T) {
	lc := newFakeLedger()
	snapshot := healthySnapshot()
	snapshot.TransferCount = 1
	lc.snapshots["BATCH-004"] = snapshot
	lc.histories["BATCH-004"] = completeHistory()[:1]

	verdict, err := newTestEngine(lc, &fakeStore{}).Verify(context.Background(), "BATCH-004")
	require.NoError(t, err)

	// An incomplete chain alone downgrades GENUINE, it does not mean FAKE.
	assert.Equal(t, models.StatusIncompleteChain, verdict.Status)
	assert.False(t, verdict.IsGenuine)
	assert.Contains(t, verdict.Anomalies,
		"Incomplete ownership chain (expected: Manufacturer → Distributor → Pharmacy)")
}

func TestVerifyExpired(t *testing.T) {
	lc := newFakeLedger()
	snapshot := healthySnapshot()
	snapshot.ExpiryDate = testNow.Add(-24 * time.Hour).Unix()
	lc.snapshots["BATCH-005"] = snapshot
	lc.histories["BATCH-005"] = completeHistory()

	verdict, err := newTestEngine(lc, &fakeStore{}).Verify(context.Background(), "BATCH-005")
	require.NoError(t, err)

	assert.Equal(t, models.StatusExpired, verdict.Status)
	assert.Contains(t, verdict.Anomalies, "Drug has expired")
}

func TestVerifyExpiredStaysExpiredWithIncompleteChain(t *testing.T) {
	lc := newFakeLedger()
	snapshot := healthySnapshot()
	snapshot.ExpiryDate = testNow.Add(-24 * time.Hour).Unix()
	snapshot.TransferCount = 0
	lc.snapshots["BATCH-006"] = snapshot

	verdict, err := newTestEngine(lc, &fakeStore{}).Verify(context.Background(), "BATCH-006")
	require.NoError(t, err)

	assert.Equal(t, models.StatusExpired, verdict.Status)
	assert.Len(t, verdict.Anomalies, 2)
}

func TestVerifyHashMismatchOutranksExpiry(t *testing.T) {
	lc := newFakeLedger()
	snapshot := healthySnapshot()
	snapshot.ExpiryDate = testNow.Add(-24 * time.Hour).Unix()
	lc.snapshots["BATCH-007"] = snapshot
	lc.histories["BATCH-007"] = completeHistory()
	store := &fakeStore{records: map[string]*models.CompositionRecord{
		"BATCH-007": {BatchID: "BATCH-007", CompositionHash: "ff"},
	}}

	verdict, err := newTestEngine(lc, store).Verify(context.Background(), "BATCH-007")
	require.NoError(t, err)

	assert.Equal(t, models.StatusFake, verdict.Status)
	assert.Contains(t, verdict.Anomalies, "Drug has expired")
}

func TestVerifyZeroAddressTransfer(t *testing.T) {
	lc := newFakeLedger()
	lc.snapshots["BATCH-008"] = healthySnapshot()
	history := completeHistory()
	history[1].To = ledger.ZeroAddress
	lc.histories["BATCH-008"] = history

	verdict, err := newTestEngine(lc, &fakeStore{}).Verify(context.Background(), "BATCH-008")
	require.NoError(t, err)

	assert.Equal(t, models.StatusFake, verdict.Status)
	assert.Contains(t, verdict.Anomalies, "Suspicious transfer to zero address detected")
}

func TestVerifySameRoleTransfer(t *testing.T) {
	lc := newFakeLedger()
	lc.snapshots["BATCH-009"] = healthySnapshot()
	lc.histories["BATCH-009"] = []models.OwnershipRecord{
		{FromRole: models.RoleManufacturer, ToRole: models.RoleDistributor, To: "0x2222222222222222222222222222222222222222"},
		{FromRole: models.RoleDistributor, ToRole: models.RoleDistributor, To: "0x4444444444444444444444444444444444444444"},
		{FromRole: models.RoleDistributor, ToRole: models.RolePharmacy, To: "0x3333333333333333333333333333333333333333"},
	}

	verdict, err := newTestEngine(lc, &fakeStore{}).Verify(context.Background(), "BATCH-009")
	require.NoError(t, err)

	assert.Contains(t, verdict.Anomalies, "Suspicious transfer: same role transfer at index 1")
	// Same-role transfers alone are a chain-quality signal, not proof of
	// fakery.
	assert.Equal(t, models.StatusIncompleteChain, verdict.Status)
}

func TestVerifyCollaboratorFailure(t *testing.T) {
	lc := newFakeLedger()
	lc.failWith["BATCH-010"] = errors.New("gateway timeout")

	verdict, err := newTestEngine(lc, &fakeStore{}).Verify(context.Background(), "BATCH-010")
	assert.Error(t, err)
	assert.Nil(t, verdict)
}

func TestVerifyMany(t *testing.T) {
	lc := newFakeLedger()
	lc.snapshots["good"] = healthySnapshot()
	lc.histories["good"] = completeHistory()
	lc.failWith["broken"] = errors.New("gateway timeout")

	results := newTestEngine(lc, &fakeStore{}).VerifyMany(context.Background(),
		[]string{"good", "unknown", "broken"})

	require.Len(t, results, 3)

	assert.Equal(t, "good", results[0].BatchID)
	assert.Equal(t, models.StatusGenuine, results[0].Status)
	assert.True(t, results[0].IsGenuine)

	assert.Equal(t, "unknown", results[1].BatchID)
	assert.Equal(t, models.StatusFake, results[1].Status)
	assert.False(t, results[1].IsGenuine)

	// The failing id yields a per-item ERROR entry, it never aborts the
	// others.
	assert.Equal(t, "broken", results[2].BatchID)
	assert.Equal(t, models.StatusError, results[2].Status)
	assert.NotEmpty(t, results[2].Error)
}

func TestEvaluateEscalationIsMonotonic(t *testing.T) {
	in := ruleInput{
		now: testNow,
		onchain: &ledger.VerifyResult{
			ExpiryDate:      testNow.Add(-time.Hour).Unix(),
			TransferCount:   0,
			CompositionHash: "aa",
		},
		history: []models.OwnershipRecord{
			{To: ledger.ZeroAddress},
		},
		offchain: &models.CompositionRecord{CompositionHash: "bb"},
	}

	status, anomalies := evaluate(in)

	// Expiry, incomplete chain, hash mismatch, and zero address all fire,
	// and FAKE wins.
	assert.Equal(t, models.StatusFake, status)
	assert.Len(t, anomalies, 4)
}
