// Package verification implements the batch verification engine: it
// reconciles the authoritative ledger state with the mutable off-chain store
// and classifies each batch as GENUINE, FAKE, EXPIRED, or INCOMPLETE_CHAIN.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pharmatrust/drugtrace/internal/ledger"
	"github.com/pharmatrust/drugtrace/internal/models"
)

// CompositionStore is the slice of the off-chain store the engine reads.
type CompositionStore interface {
	GetComposition(ctx context.Context, batchID string) (*models.CompositionRecord, error)
}

// Engine verifies batches. It is stateless between calls: every verification
// recomputes from current ledger and off-chain state, so verdicts are never
// cached.
type Engine struct {
	ledger ledger.Client
	store  CompositionStore
	limit  int
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithConcurrency bounds the fan-out of VerifyMany.
func WithConcurrency(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

// NewEngine creates a verification engine over the injected ledger client
// and off-chain store handle.
func NewEngine(lc ledger.Client, store CompositionStore, opts ...Option) *Engine {
	e := &Engine{
		ledger: lc,
		store:  store,
		limit:  8,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Verify computes the verdict for one batch. A batch unknown to the ledger
// yields a FAKE verdict, not an error; a ledger or store failure is returned
// as an error for the caller to classify.
func (e *Engine) Verify(ctx context.Context, batchID string) (*models.VerificationVerdict, error) {
	onchain, err := e.ledger.Verify(ctx, batchID)
	if errors.Is(err, ledger.ErrNotFound) {
		return unknownBatchVerdict(batchID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", batchID, err)
	}

	// The custody chain and the off-chain record are independent reads;
	// fetch them concurrently.
	var (
		history  []models.OwnershipRecord
		offchain *models.CompositionRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := e.ledger.History(gctx, batchID)
		if err != nil {
			// A missing history is tolerated: the verdict is computed
			// from the snapshot alone and chain rules see an empty chain.
			log.Printf("verification: history unavailable for %s: %v", batchID, err)
			return nil
		}
		history = records
		return nil
	})
	g.Go(func() error {
		record, err := e.store.GetComposition(gctx, batchID)
		if err != nil {
			return fmt.Errorf("off-chain lookup for %s: %w", batchID, err)
		}
		offchain = record
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	status, anomalies := evaluate(ruleInput{
		now:      e.now(),
		onchain:  onchain,
		history:  history,
		offchain: offchain,
	})

	verdict := &models.VerificationVerdict{
		IsGenuine:        status == models.StatusGenuine,
		Status:           status,
		BatchID:          batchID,
		DrugName:         onchain.DrugName,
		Manufacturer:     onchain.Manufacturer,
		CompositionHash:  onchain.CompositionHash,
		CurrentOwner:     onchain.CurrentOwner,
		ManufactureDate:  onchain.ManufactureDate,
		ExpiryDate:       onchain.ExpiryDate,
		TransferCount:    onchain.TransferCount,
		OwnershipHistory: history,
		Anomalies:        anomalies,
	}
	if offchain != nil {
		composition := offchain.FullComposition
		verdict.Composition = &composition
	}
	return verdict, nil
}

// VerifyMany verifies a set of batches with bounded concurrency. Each id is
// evaluated independently: a collaborator failure on one id becomes a
// per-item ERROR entry and never aborts the remaining items.
func (e *Engine) VerifyMany(ctx context.Context, batchIDs []string) []models.BatchVerifyItem {
	results := make([]models.BatchVerifyItem, len(batchIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, batchID := range batchIDs {
		i, batchID := i, batchID
		g.Go(func() error {
			verdict, err := e.Verify(gctx, batchID)
			if err != nil {
				results[i] = models.BatchVerifyItem{
					BatchID: batchID,
					Status:  models.StatusError,
					Error:   err.Error(),
				}
				return nil
			}
			results[i] = models.BatchVerifyItem{
				BatchID:   batchID,
				IsGenuine: verdict.IsGenuine,
				Status:    verdict.Status,
			}
			return nil
		})
	}
	// Workers report failures through their result slot, never as a group
	// error.
	_ = g.Wait()

	return results
}

// unknownBatchVerdict is the short-circuit verdict for a batch the ledger
// has never seen. All derived fields are zero.
func unknownBatchVerdict(batchID string) *models.VerificationVerdict {
	return &models.VerificationVerdict{
		IsGenuine:        false,
		Status:           models.StatusFake,
		BatchID:          batchID,
		DrugName:         "Unknown",
		Manufacturer:     "Unknown",
		OwnershipHistory: []models.OwnershipRecord{},
		Anomalies:        []string{anomalyNotFound},
	}
}
