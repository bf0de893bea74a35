// Package custody holds the role-transition rules governing ownership
// transfers through the supply chain.
package custody

import (
	"fmt"

	"github.com/pharmatrust/drugtrace/internal/models"
)

// transition is one (from, to) role pair.
type transition struct {
	from models.Role
	to   models.Role
}

// legalTransitions is the fixed table of permitted custody transfers.
// Pharmacy is a terminal custody node: nothing may leave it.
var legalTransitions = map[transition]bool{
	{models.RoleManufacturer, models.RoleDistributor}: true,
	{models.RoleDistributor, models.RolePharmacy}:     true,
	{models.RoleDistributor, models.RoleDistributor}:  true,
}

// IsLegalTransfer reports whether a transfer between the two roles is
// permitted. Existence of both parties and of the batch must be checked by
// the caller before consulting the rule table.
func IsLegalTransfer(from, to models.Role) bool {
	return legalTransitions[transition{from, to}]
}

// IllegalTransferError describes a rejected role transition.
type IllegalTransferError struct {
	From models.Role
	To   models.Role
}

func (e *IllegalTransferError) Error() string {
	return fmt.Sprintf("Invalid transfer: %s cannot transfer to %s", e.From, e.To)
}

// CheckTransfer returns an IllegalTransferError when the role pair is not in
// the legal-transition table.
func CheckTransfer(from, to models.Role) error {
	if !IsLegalTransfer(from, to) {
		return &IllegalTransferError{From: from, To: to}
	}
	return nil
}
