package models

// VerificationStatus is the computed authenticity classification of a batch.
type VerificationStatus string

const (
	StatusGenuine         VerificationStatus = "GENUINE"
	StatusIncompleteChain VerificationStatus = "INCOMPLETE_CHAIN"
	StatusExpired         VerificationStatus = "EXPIRED"
	StatusFake            VerificationStatus = "FAKE"
	// StatusError marks a per-item collaborator failure inside a bulk
	// verification; it is never produced by the rule engine itself.
	StatusError VerificationStatus = "ERROR"
)

// OwnershipRecord is one custody-transfer event as returned by the ledger.
// The ledger's history for a batch is append-only; the engine never edits
// past records.
type OwnershipRecord struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
	Location  string `json:"location"`
	FromRole  Role   `json:"fromRole"`
	ToRole    Role   `json:"toRole"`
}

// VerificationVerdict is the result of verifying one batch. It is a pure
// function of current ledger and off-chain state and is recomputed on every
// call, never persisted.
type VerificationVerdict struct {
	IsGenuine        bool               `json:"isGenuine"`
	Status           VerificationStatus `json:"status"`
	BatchID          string             `json:"batchId"`
	DrugName         string             `json:"drugName"`
	Manufacturer     string             `json:"manufacturer"`
	CompositionHash  string             `json:"compositionHash"`
	CurrentOwner     string             `json:"currentOwner"`
	ManufactureDate  int64              `json:"manufactureDate"`
	ExpiryDate       int64              `json:"expiryDate"`
	TransferCount    int                `json:"transferCount"`
	OwnershipHistory []OwnershipRecord  `json:"ownershipHistory"`
	Composition      *Composition       `json:"composition,omitempty"`
	Anomalies        []string           `json:"anomalies"`
}

// BatchVerifyItem is one entry of a bulk verification response.
type BatchVerifyItem struct {
	BatchID   string             `json:"batchId"`
	IsGenuine bool               `json:"isGenuine"`
	Status    VerificationStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
}
