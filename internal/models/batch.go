package models

import "time"

// BatchStatus is the lifecycle state of a batch in the off-chain store.
type BatchStatus string

const (
	BatchActive BatchStatus = "ACTIVE"
)

// Batch is the off-chain master record for one drug batch. Created once at
// registration; currentOwner is updated on every successful transfer; rows
// are never deleted.
type Batch struct {
	BatchID         string      `json:"batchId" db:"batch_id"`
	DrugName        string      `json:"drugName" db:"drug_name"`
	CompositionHash string      `json:"compositionHash" db:"composition_hash"`
	Manufacturer    string      `json:"manufacturer" db:"manufacturer"`
	CurrentOwner    string      `json:"currentOwner" db:"current_owner"`
	ManufactureDate int64       `json:"manufactureDate" db:"manufacture_date"`
	ExpiryDate      int64       `json:"expiryDate" db:"expiry_date"`
	Status          BatchStatus `json:"status" db:"status"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

// Certificate is the metadata of a certificate-of-analysis document stored
// in object storage for a batch.
type Certificate struct {
	ID         string    `json:"id" db:"id"`
	BatchID    string    `json:"batchId" db:"batch_id"`
	FileName   string    `json:"fileName" db:"file_name"`
	Size       int64     `json:"size" db:"size"`
	Checksum   string    `json:"checksum" db:"checksum"`
	StorageKey string    `json:"storageKey" db:"storage_key"`
	UploadedBy string    `json:"uploadedBy" db:"uploaded_by"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
