package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pharmatrust/drugtrace/internal/models"
)

// BatchRepository handles batch master records, full composition documents,
// and certificate metadata.
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new batch repository.
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// CreateBatch inserts the batch master record. Returns ErrDuplicate when the
// batch id is taken.
func (r *BatchRepository) CreateBatch(ctx context.Context, batch *models.Batch) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO batches (batch_id, drug_name, composition_hash, manufacturer, current_owner, manufacture_date, expiry_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		batch.BatchID, batch.DrugName, batch.CompositionHash, batch.Manufacturer,
		batch.CurrentOwner, batch.ManufactureDate, batch.ExpiryDate, batch.Status,
		batch.CreatedAt, batch.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetBatch retrieves a batch master record. Returns (nil, nil) when the
// batch does not exist.
func (r *BatchRepository) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.QueryRowContext(ctx,
		`SELECT batch_id, drug_name, composition_hash, manufacturer, current_owner, manufacture_date, expiry_date, status, created_at, updated_at
		 FROM batches WHERE batch_id = $1`,
		batchID,
	).Scan(&batch.BatchID, &batch.DrugName, &batch.CompositionHash, &batch.Manufacturer,
		&batch.CurrentOwner, &batch.ManufactureDate, &batch.ExpiryDate, &batch.Status,
		&batch.CreatedAt, &batch.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &batch, nil
}

// UpdateOwner records the new current owner after a successful transfer.
func (r *BatchRepository) UpdateOwner(ctx context.Context, batchID, newOwner string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE batches SET current_owner = $2, updated_at = $3 WHERE batch_id = $1`,
		batchID, newOwner, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("batch %s not found", batchID)
	}
	return nil
}

// CreateComposition stores the full composition document for a batch.
func (r *BatchRepository) CreateComposition(ctx context.Context, rec *models.CompositionRecord) error {
	doc, err := json.Marshal(rec.FullComposition)
	if err != nil {
		return fmt.Errorf("failed to encode composition: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO compositions (batch_id, drug_name, full_composition, composition_hash, manufacturer, manufacture_date, expiry_date, registration_timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.BatchID, rec.DrugName, doc, rec.CompositionHash, rec.Manufacturer,
		rec.ManufactureDate, rec.ExpiryDate, rec.RegistrationTimestamp,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetComposition retrieves the stored composition document for a batch.
// Returns (nil, nil) when no off-chain record exists.
func (r *BatchRepository) GetComposition(ctx context.Context, batchID string) (*models.CompositionRecord, error) {
	var (
		rec models.CompositionRecord
		doc []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT batch_id, drug_name, full_composition, composition_hash, manufacturer, manufacture_date, expiry_date, registration_timestamp
		 FROM compositions WHERE batch_id = $1`,
		batchID,
	).Scan(&rec.BatchID, &rec.DrugName, &doc, &rec.CompositionHash, &rec.Manufacturer,
		&rec.ManufactureDate, &rec.ExpiryDate, &rec.RegistrationTimestamp)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get composition: %w", err)
	}
	if err := json.Unmarshal(doc, &rec.FullComposition); err != nil {
		return nil, fmt.Errorf("failed to decode composition: %w", err)
	}

	return &rec, nil
}

// ListCompositions retrieves every off-chain composition record. The audit
// aggregator uses this as the batch population to sweep.
func (r *BatchRepository) ListCompositions(ctx context.Context) ([]models.CompositionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT batch_id, drug_name, full_composition, composition_hash, manufacturer, manufacture_date, expiry_date, registration_timestamp
		 FROM compositions ORDER BY registration_timestamp`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query compositions: %w", err)
	}
	defer rows.Close()

	return scanCompositions(rows)
}

// ListExpired retrieves all composition records whose expiry date has
// passed.
func (r *BatchRepository) ListExpired(ctx context.Context, now int64) ([]models.CompositionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT batch_id, drug_name, full_composition, composition_hash, manufacturer, manufacture_date, expiry_date, registration_timestamp
		 FROM compositions WHERE expiry_date < $1 ORDER BY expiry_date`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired batches: %w", err)
	}
	defer rows.Close()

	return scanCompositions(rows)
}

// ListByManufacturer retrieves all composition records registered by one
// manufacturer wallet.
func (r *BatchRepository) ListByManufacturer(ctx context.Context, walletAddress string) ([]models.CompositionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT batch_id, drug_name, full_composition, composition_hash, manufacturer, manufacture_date, expiry_date, registration_timestamp
		 FROM compositions WHERE manufacturer = $1 ORDER BY registration_timestamp`,
		walletAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query manufacturer batches: %w", err)
	}
	defer rows.Close()

	return scanCompositions(rows)
}

// CountBatches returns the number of registered batches.
func (r *BatchRepository) CountBatches(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM compositions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

// CreateCertificate stores certificate-of-analysis metadata for a batch.
func (r *BatchRepository) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO certificates (id, batch_id, file_name, size, checksum, storage_key, uploaded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cert.ID, cert.BatchID, cert.FileName, cert.Size, cert.Checksum,
		cert.StorageKey, cert.UploadedBy, cert.CreatedAt,
	)
	return err
}

// LatestCertificate retrieves the most recent certificate for a batch.
// Returns (nil, nil) when none exists.
func (r *BatchRepository) LatestCertificate(ctx context.Context, batchID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := r.db.QueryRowContext(ctx,
		`SELECT id, batch_id, file_name, size, checksum, storage_key, uploaded_by, created_at
		 FROM certificates WHERE batch_id = $1 ORDER BY created_at DESC LIMIT 1`,
		batchID,
	).Scan(&cert.ID, &cert.BatchID, &cert.FileName, &cert.Size, &cert.Checksum,
		&cert.StorageKey, &cert.UploadedBy, &cert.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	return &cert, nil
}

func scanCompositions(rows *sql.Rows) ([]models.CompositionRecord, error) {
	var records []models.CompositionRecord
	for rows.Next() {
		var (
			rec models.CompositionRecord
			doc []byte
		)
		if err := rows.Scan(&rec.BatchID, &rec.DrugName, &doc, &rec.CompositionHash, &rec.Manufacturer,
			&rec.ManufactureDate, &rec.ExpiryDate, &rec.RegistrationTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan composition: %w", err)
		}
		if err := json.Unmarshal(doc, &rec.FullComposition); err != nil {
			return nil, fmt.Errorf("failed to decode composition: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
