package models

import (
	"errors"
	"time"
)

// Ingredient is a single component of a drug composition.
type Ingredient struct {
	Name       string   `json:"name"`
	Quantity   string   `json:"quantity"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// Composition is the full ingredient list of a drug.
type Composition struct {
	Ingredients []Ingredient `json:"ingredients"`
}

// Validate rejects compositions that cannot be hashed or compared.
func (c Composition) Validate() error {
	if len(c.Ingredients) == 0 {
		return errors.New("at least one ingredient is required")
	}
	for _, ing := range c.Ingredients {
		if ing.Name == "" {
			return errors.New("ingredient name must not be empty")
		}
	}
	return nil
}

// ReferenceStandard is the approved composition for a drug name. Loaded by a
// data-import collaborator; read-only to the verification core.
type ReferenceStandard struct {
	DrugName            string      `json:"drugName" db:"drug_name"`
	StandardComposition Composition `json:"standardComposition" db:"standard_composition"`
	UpdatedAt           time.Time   `json:"updatedAt" db:"updated_at"`
}

// CompositionRecord is the off-chain document holding the full composition
// a manufacturer submitted at registration, alongside the hash that was
// anchored on the ledger.
type CompositionRecord struct {
	BatchID               string      `json:"batchId" db:"batch_id"`
	DrugName              string      `json:"drugName" db:"drug_name"`
	FullComposition       Composition `json:"fullComposition" db:"full_composition"`
	CompositionHash       string      `json:"compositionHash" db:"composition_hash"`
	Manufacturer          string      `json:"manufacturer" db:"manufacturer"`
	ManufactureDate       int64       `json:"manufactureDate" db:"manufacture_date"`
	ExpiryDate            int64       `json:"expiryDate" db:"expiry_date"`
	RegistrationTimestamp time.Time   `json:"registrationTimestamp" db:"registration_timestamp"`
}
