// Package audit produces system-wide statistics and anomaly reports for the
// regulator surface by sweeping the verification engine over the full batch
// population.
package audit

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pharmatrust/drugtrace/internal/models"
)

const secondsPerDay = 86400

// Anomaly type labels reported per batch. "Blockchain verification failed"
// marks a ledger collaborator failure, distinct from chain-content findings.
const (
	anomalyTypeExpired         = "Expired"
	anomalyTypeIncompleteChain = "Incomplete ownership chain"
	anomalyTypeLedgerFailure   = "Blockchain verification failed"
)

// roleNotTrackedMessage is returned for roles whose activity is out of
// scope. This is a deliberate boundary, not a missing feature.
const roleNotTrackedMessage = "Activity tracking for this role not yet implemented"

// Verifier is the slice of the verification engine the aggregator drives.
type Verifier interface {
	Verify(ctx context.Context, batchID string) (*models.VerificationVerdict, error)
}

// BatchStore enumerates the off-chain batch population.
type BatchStore interface {
	CountBatches(ctx context.Context) (int, error)
	ListCompositions(ctx context.Context) ([]models.CompositionRecord, error)
	ListExpired(ctx context.Context, now int64) ([]models.CompositionRecord, error)
	ListByManufacturer(ctx context.Context, walletAddress string) ([]models.CompositionRecord, error)
}

// UserStore resolves users for activity reports and counts.
type UserStore interface {
	Count(ctx context.Context) (int, error)
	GetByWallet(ctx context.Context, walletAddress string) (*models.User, error)
}

// Aggregator fans the verification engine out over all known batches.
type Aggregator struct {
	verifier Verifier
	batches  BatchStore
	users    UserStore
	limit    int
	now      func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithConcurrency bounds the verification fan-out.
func WithConcurrency(limit int) Option {
	return func(a *Aggregator) {
		if limit > 0 {
			a.limit = limit
		}
	}
}

// NewAggregator creates an audit aggregator.
func NewAggregator(verifier Verifier, batches BatchStore, users UserStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		verifier: verifier,
		batches:  batches,
		users:    users,
		limit:    8,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Statistics computes the system-wide summary. Expiry is counted locally
// from the off-chain record, independent of the engine call; a batch counts
// as anomalous when its verdict is anything but GENUINE or its ledger
// verification failed outright.
func (a *Aggregator) Statistics(ctx context.Context) (*models.AuditStatistics, error) {
	totalDrugs, err := a.batches.CountBatches(ctx)
	if err != nil {
		return nil, err
	}
	totalUsers, err := a.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	records, err := a.batches.ListCompositions(ctx)
	if err != nil {
		return nil, err
	}

	now := a.now().Unix()

	var (
		mu             sync.Mutex
		anomalous      int
		totalTransfers int
	)
	expired := 0
	for _, rec := range records {
		if rec.ExpiryDate < now {
			expired++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for _, rec := range records {
		batchID := rec.BatchID
		g.Go(func() error {
			verdict, err := a.verifier.Verify(gctx, batchID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				anomalous++
				return nil
			}
			totalTransfers += verdict.TransferCount
			if verdict.Status != models.StatusGenuine {
				anomalous++
			}
			return nil
		})
	}
	_ = g.Wait()

	return &models.AuditStatistics{
		TotalDrugs:         totalDrugs,
		TotalUsers:         totalUsers,
		TotalTransfers:     totalTransfers,
		DrugsWithAnomalies: anomalous,
		ExpiredDrugs:       expired,
	}, nil
}

// Anomalies returns one entry per batch that failed verification. A ledger
// failure on one batch is reported as its own anomaly and never aborts the
// sweep.
func (a *Aggregator) Anomalies(ctx context.Context) ([]models.AuditResult, error) {
	records, err := a.batches.ListCompositions(ctx)
	if err != nil {
		return nil, err
	}

	now := a.now().Unix()
	slots := make([]*models.AuditResult, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			verdict, err := a.verifier.Verify(gctx, rec.BatchID)
			if err != nil {
				log.Printf("audit: verification failed for %s: %v", rec.BatchID, err)
				slots[i] = &models.AuditResult{
					BatchID:      rec.BatchID,
					HasAnomalies: true,
					AnomalyType:  anomalyTypeLedgerFailure,
					DrugName:     rec.DrugName,
					Manufacturer: rec.Manufacturer,
					CurrentOwner: "Unknown",
				}
				return nil
			}
			if verdict.Status == models.StatusGenuine {
				return nil
			}
			slots[i] = &models.AuditResult{
				BatchID:        rec.BatchID,
				HasAnomalies:   true,
				AnomalyType:    classify(verdict, rec, now),
				OwnershipCount: verdict.TransferCount,
				DrugName:       rec.DrugName,
				Manufacturer:   rec.Manufacturer,
				CurrentOwner:   verdict.CurrentOwner,
			}
			return nil
		})
	}
	_ = g.Wait()

	results := []models.AuditResult{}
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results, nil
}

// Expired lists every batch past its expiry date with the number of whole
// days elapsed since.
func (a *Aggregator) Expired(ctx context.Context) ([]models.ExpiredDrug, error) {
	now := a.now().Unix()
	records, err := a.batches.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	drugs := []models.ExpiredDrug{}
	for _, rec := range records {
		drugs = append(drugs, models.ExpiredDrug{
			BatchID:      rec.BatchID,
			DrugName:     rec.DrugName,
			Manufacturer: rec.Manufacturer,
			ExpiryDate:   rec.ExpiryDate,
			DaysExpired:  (now - rec.ExpiryDate) / secondsPerDay,
		})
	}
	return drugs, nil
}

// UserActivity reports the batches a manufacturer registered. Activity for
// other roles is not tracked; the report says so explicitly. Returns
// (nil, nil) when the wallet is unknown.
func (a *Aggregator) UserActivity(ctx context.Context, walletAddress string) (*models.UserActivity, error) {
	user, err := a.users.GetByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	activity := &models.UserActivity{
		WalletAddress: walletAddress,
		Role:          user.Role,
	}

	if user.Role != models.RoleManufacturer {
		activity.Message = roleNotTrackedMessage
		return activity, nil
	}

	records, err := a.batches.ListByManufacturer(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	activity.TotalDrugsRegistered = len(records)
	activity.Drugs = make([]models.RegisteredDrug, 0, len(records))
	for _, rec := range records {
		activity.Drugs = append(activity.Drugs, models.RegisteredDrug{
			BatchID:               rec.BatchID,
			DrugName:              rec.DrugName,
			RegistrationTimestamp: rec.RegistrationTimestamp.Unix(),
		})
	}
	return activity, nil
}

// classify picks the primary anomaly label for an audit entry: expiry first,
// then chain completeness, then whatever the engine reported first.
func classify(verdict *models.VerificationVerdict, rec models.CompositionRecord, now int64) string {
	switch {
	case rec.ExpiryDate < now:
		return anomalyTypeExpired
	case verdict.TransferCount < 2:
		return anomalyTypeIncompleteChain
	case len(verdict.Anomalies) > 0:
		return verdict.Anomalies[0]
	default:
		return string(verdict.Status)
	}
}
