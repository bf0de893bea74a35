package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pharmatrust/drugtrace/internal/models"
)

// ReferenceRepository handles reference-standard compositions. Standards are
// written by the data-import surface and read-only to the verification core.
type ReferenceRepository struct {
	db *sql.DB
}

// NewReferenceRepository creates a new reference-standard repository.
func NewReferenceRepository(db *sql.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Upsert creates or replaces the standard composition for a drug name.
func (r *ReferenceRepository) Upsert(ctx context.Context, std *models.ReferenceStandard) error {
	doc, err := json.Marshal(std.StandardComposition)
	if err != nil {
		return fmt.Errorf("failed to encode standard composition: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reference_standards (drug_name, standard_composition, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (drug_name) DO UPDATE SET standard_composition = $2, updated_at = $3`,
		std.DrugName, doc, time.Now(),
	)
	return err
}

// GetByDrugName retrieves the reference standard for a drug. Returns
// (nil, nil) when no standard is loaded for the name.
func (r *ReferenceRepository) GetByDrugName(ctx context.Context, drugName string) (*models.ReferenceStandard, error) {
	var (
		std models.ReferenceStandard
		doc []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT drug_name, standard_composition, updated_at
		 FROM reference_standards WHERE drug_name = $1`,
		drugName,
	).Scan(&std.DrugName, &doc, &std.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reference standard: %w", err)
	}
	if err := json.Unmarshal(doc, &std.StandardComposition); err != nil {
		return nil, fmt.Errorf("failed to decode standard composition: %w", err)
	}

	return &std, nil
}
