package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrust/drugtrace/internal/models"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type stubVerifier struct {
	verdicts map[string]*models.VerificationVerdict
	errs     map[string]error
}

func (s *stubVerifier) Verify(ctx context.Context, batchID string) (*models.VerificationVerdict, error) {
	if err, ok := s.errs[batchID]; ok {
		return nil, err
	}
	if v, ok := s.verdicts[batchID]; ok {
		return v, nil
	}
	return &models.VerificationVerdict{
		BatchID:   batchID,
		IsGenuine: true,
		Status:    models.StatusGenuine,
	}, nil
}

type stubBatchStore struct {
	records []models.CompositionRecord
	total   int
}

func (s *stubBatchStore) CountBatches(ctx context.Context) (int, error) {
	return s.total, nil
}

func (s *stubBatchStore) ListCompositions(ctx context.Context) ([]models.CompositionRecord, error) {
	return s.records, nil
}

func (s *stubBatchStore) ListExpired(ctx context.Context, now int64) ([]models.CompositionRecord, error) {
	expired := []models.CompositionRecord{}
	for _, rec := range s.records {
		if rec.ExpiryDate < now {
			expired = append(expired, rec)
		}
	}
	return expired, nil
}

func (s *stubBatchStore) ListByManufacturer(ctx context.Context, walletAddress string) ([]models.CompositionRecord, error) {
	matched := []models.CompositionRecord{}
	for _, rec := range s.records {
		if rec.Manufacturer == walletAddress {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

type stubUserStore struct {
	users map[string]*models.User
	total int
}

func (s *stubUserStore) Count(ctx context.Context) (int, error) { return s.total, nil }

func (s *stubUserStore) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	return s.users[walletAddress], nil
}

func futureRecord(batchID string) models.CompositionRecord {
	return models.CompositionRecord{
		BatchID:               batchID,
		DrugName:              "Aspirin",
		Manufacturer:          "0x1111111111111111111111111111111111111111",
		ExpiryDate:            testNow.Add(180 * 24 * time.Hour).Unix(),
		RegistrationTimestamp: testNow.Add(-90 * 24 * time.Hour),
	}
}

func expiredRecord(batchID string, daysAgo int) models.CompositionRecord {
	rec := futureRecord(batchID)
	rec.ExpiryDate = testNow.Add(-time.Duration(daysAgo) * 24 * time.Hour).Unix()
	return rec
}

func TestStatistics(t *testing.T) {
	batches := &stubBatchStore{
		total: 3,
		records: []models.CompositionRecord{
			futureRecord("B-1"),
			futureRecord("B-2"),
			expiredRecord("B-3", 10),
		},
	}
	verifier := &stubVerifier{
		verdicts: map[string]*models.VerificationVerdict{
			"B-1": {Status: models.StatusGenuine, TransferCount: 2},
			"B-2": {Status: models.StatusFake, TransferCount: 1},
			"B-3": {Status: models.StatusExpired, TransferCount: 2},
		},
	}
	agg := NewAggregator(verifier, batches, &stubUserStore{total: 5},
		WithClock(func() time.Time { return testNow }))

	stats, err := agg.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalDrugs)
	assert.Equal(t, 5, stats.TotalUsers)
	assert.Equal(t, 5, stats.TotalTransfers)
	assert.Equal(t, 2, stats.DrugsWithAnomalies)
	assert.Equal(t, 1, stats.ExpiredDrugs)
}

func TestStatisticsCountsLedgerFailureAsAnomalous(t *testing.T) {
	batches := &stubBatchStore{total: 1, records: []models.CompositionRecord{futureRecord("B-1")}}
	verifier := &stubVerifier{errs: map[string]error{"B-1": errors.New("gateway timeout")}}
	agg := NewAggregator(verifier, batches, &stubUserStore{},
		WithClock(func() time.Time { return testNow }))

	stats, err := agg.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DrugsWithAnomalies)
	assert.Equal(t, 0, stats.TotalTransfers)
}

func TestAnomalies(t *testing.T) {
	batches := &stubBatchStore{
		records: []models.CompositionRecord{
			futureRecord("B-1"),
			expiredRecord("B-2", 5),
			futureRecord("B-3"),
			futureRecord("B-4"),
		},
	}
	verifier := &stubVerifier{
		verdicts: map[string]*models.VerificationVerdict{
			"B-2": {Status: models.StatusExpired, TransferCount: 2, CurrentOwner: "0xaaaa", Anomalies: []string{"Drug has expired"}},
			"B-3": {Status: models.StatusIncompleteChain, TransferCount: 1, CurrentOwner: "0xbbbb"},
		},
		errs: map[string]error{"B-4": errors.New("gateway timeout")},
	}
	agg := NewAggregator(verifier, batches, &stubUserStore{},
		WithClock(func() time.Time { return testNow }))

	results, err := agg.Anomalies(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Results keep the enumeration order; the genuine B-1 is absent.
	assert.Equal(t, "B-2", results[0].BatchID)
	assert.Equal(t, "Expired", results[0].AnomalyType)
	assert.True(t, results[0].HasAnomalies)

	assert.Equal(t, "B-3", results[1].BatchID)
	assert.Equal(t, "Incomplete ownership chain", results[1].AnomalyType)
	assert.Equal(t, 1, results[1].OwnershipCount)

	assert.Equal(t, "B-4", results[2].BatchID)
	assert.Equal(t, "Blockchain verification failed", results[2].AnomalyType)
	assert.Equal(t, "Unknown", results[2].CurrentOwner)
}

func TestExpired(t *testing.T) {
	batches := &stubBatchStore{
		records: []models.CompositionRecord{
			futureRecord("B-1"),
			expiredRecord("B-2", 7),
		},
	}
	agg := NewAggregator(&stubVerifier{}, batches, &stubUserStore{},
		WithClock(func() time.Time { return testNow }))

	drugs, err := agg.Expired(context.Background())
	require.NoError(t, err)
	require.Len(t, drugs, 1)

	assert.Equal(t, "B-2", drugs[0].BatchID)
	assert.Equal(t, int64(7), drugs[0].DaysExpired)
}

func TestUserActivity(t *testing.T) {
	manufacturer := "0x1111111111111111111111111111111111111111"
	pharmacist := "0x2222222222222222222222222222222222222222"

	users := &stubUserStore{users: map[string]*models.User{
		manufacturer: {WalletAddress: manufacturer, Role: models.RoleManufacturer},
		pharmacist:   {WalletAddress: pharmacist, Role: models.RolePharmacy},
	}}
	batches := &stubBatchStore{
		records: []models.CompositionRecord{futureRecord("B-1"), futureRecord("B-2")},
	}
	agg := NewAggregator(&stubVerifier{}, batches, users,
		WithClock(func() time.Time { return testNow }))

	t.Run("manufacturer gets registered drugs", func(t *testing.T) {
		activity, err := agg.UserActivity(context.Background(), manufacturer)
		require.NoError(t, err)
		require.NotNil(t, activity)

		assert.Equal(t, models.RoleManufacturer, activity.Role)
		assert.Equal(t, 2, activity.TotalDrugsRegistered)
		assert.Len(t, activity.Drugs, 2)
		assert.Empty(t, activity.Message)
	})

	t.Run("other roles are told tracking is out of scope", func(t *testing.T) {
		activity, err := agg.UserActivity(context.Background(), pharmacist)
		require.NoError(t, err)
		require.NotNil(t, activity)

		assert.Equal(t, "Activity tracking for this role not yet implemented", activity.Message)
		assert.Zero(t, activity.TotalDrugsRegistered)
	})

	t.Run("unknown wallet yields no report", func(t *testing.T) {
		activity, err := agg.UserActivity(context.Background(), "0x9999999999999999999999999999999999999999")
		require.NoError(t, err)
		assert.Nil(t, activity)
	})
}
