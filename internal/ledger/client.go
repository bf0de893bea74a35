// Package ledger is the client for the append-only batch ledger. The ledger
// itself is an external collaborator with its own consensus and persistence;
// this package only speaks its gateway API and never assumes it can reorder
// or rewrite returned history.
package ledger

import (
	"context"
	"errors"

	"github.com/pharmatrust/drugtrace/internal/models"
)

// ZeroAddress is the sentinel recipient address that must never appear in a
// legitimate custody chain.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ErrNotFound is returned when the ledger has no record for a batch.
var ErrNotFound = errors.New("ledger: batch not found")

// RegisterRequest anchors a new batch on the ledger.
type RegisterRequest struct {
	BatchID         string `json:"batchId"`
	DrugName        string `json:"drugName"`
	CompositionHash string `json:"compositionHash"`
	ManufactureDate int64  `json:"manufactureDate"`
	ExpiryDate      int64  `json:"expiryDate"`
	Manufacturer    string `json:"manufacturer"`
}

// TransferRequest records a custody transfer on the ledger.
type TransferRequest struct {
	BatchID      string `json:"batchId"`
	NewOwner     string `json:"newOwner"`
	Location     string `json:"location"`
	CurrentOwner string `json:"currentOwner"`
}

// TxResult is the ledger's acknowledgement of a submitted transaction.
type TxResult struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     int64  `json:"blockNumber"`
}

// VerifyResult is the authoritative on-chain snapshot of one batch.
type VerifyResult struct {
	IsGenuine       bool   `json:"isGenuine"`
	DrugName        string `json:"drugName"`
	Manufacturer    string `json:"manufacturer"`
	CompositionHash string `json:"compositionHash"`
	ManufactureDate int64  `json:"manufactureDate"`
	ExpiryDate      int64  `json:"expiryDate"`
	CurrentOwner    string `json:"currentOwner"`
	TransferCount   int    `json:"transferCount"`
}

// Client is the ledger collaborator contract consumed by the core. Injected
// at construction time so tests can substitute doubles.
type Client interface {
	Register(ctx context.Context, req RegisterRequest) (*TxResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TxResult, error)
	Verify(ctx context.Context, batchID string) (*VerifyResult, error)
	History(ctx context.Context, batchID string) ([]models.OwnershipRecord, error)
}
