package verification

import (
	"fmt"
	"strings"
	"time"

	"github.com/pharmatrust/drugtrace/internal/ledger"
	"github.com/pharmatrust/drugtrace/internal/models"
)

// Anomaly messages. These are part of the API surface; clients match on
// them.
const (
	anomalyNotFound        = "Batch ID not found on blockchain"
	anomalyExpired         = "Drug has expired"
	anomalyIncompleteChain = "Incomplete ownership chain (expected: Manufacturer → Distributor → Pharmacy)"
	anomalyHashMismatch    = "Composition hash mismatch - possible tampering"
	anomalyZeroAddress     = "Suspicious transfer to zero address detected"
)

// minTransferCount is the number of custody transfers a complete
// Manufacturer → Distributor → Pharmacy chain produces.
const minTransferCount = 2

// severity orders verdict statuses. Escalation is monotonic: folding the
// rule results can only ever move the status to a higher severity, so a FAKE
// verdict is never downgraded by a later rule.
var severity = map[models.VerificationStatus]int{
	models.StatusGenuine:         0,
	models.StatusIncompleteChain: 1,
	models.StatusExpired:         2,
	models.StatusFake:            3,
}

// ruleInput is the evidence one verification run gathers before the rules
// fire: the on-chain snapshot, the ordered custody chain, and the off-chain
// composition record (nil when none is stored).
type ruleInput struct {
	now      time.Time
	onchain  *ledger.VerifyResult
	history  []models.OwnershipRecord
	offchain *models.CompositionRecord
}

// ruleResult is one rule's contribution: zero or more anomaly descriptions
// and an optional status escalation. An empty status means "no change".
type ruleResult struct {
	anomalies []string
	escalate  models.VerificationStatus
}

// verdictRule is a single named check. Rules are pure so each precedence
// case can be tested in isolation.
type verdictRule struct {
	name  string
	apply func(ruleInput) ruleResult
}

// verdictRules fire in this fixed order. The order matters only for the
// ordering of anomaly messages; the final status is order-independent
// because escalation is a monotonic fold.
var verdictRules = []verdictRule{
	{name: "expiry", apply: expiryRule},
	{name: "chain-completeness", apply: chainCompletenessRule},
	{name: "hash-match", apply: hashMatchRule},
	{name: "same-role-transfer", apply: sameRoleRule},
	{name: "zero-address", apply: zeroAddressRule},
}

// evaluate folds the rule list left to right and applies the final
// classification: anomalies on an otherwise-clean batch downgrade GENUINE to
// INCOMPLETE_CHAIN.
func evaluate(in ruleInput) (models.VerificationStatus, []string) {
	status := models.StatusGenuine
	anomalies := []string{}

	for _, rule := range verdictRules {
		res := rule.apply(in)
		anomalies = append(anomalies, res.anomalies...)
		if res.escalate != "" && severity[res.escalate] > severity[status] {
			status = res.escalate
		}
	}

	if len(anomalies) > 0 && status == models.StatusGenuine {
		status = models.StatusIncompleteChain
	}

	return status, anomalies
}

func expiryRule(in ruleInput) ruleResult {
	if in.onchain.ExpiryDate < in.now.Unix() {
		return ruleResult{
			anomalies: []string{anomalyExpired},
			escalate:  models.StatusExpired,
		}
	}
	return ruleResult{}
}

func chainCompletenessRule(in ruleInput) ruleResult {
	if in.onchain.TransferCount < minTransferCount {
		return ruleResult{anomalies: []string{anomalyIncompleteChain}}
	}
	return ruleResult{}
}

// hashMatchRule compares the off-chain stored hash against the ledger's
// anchored hash. A mismatch means one of the two stores was tampered with,
// so it outranks every other finding except a missing ledger record.
func hashMatchRule(in ruleInput) ruleResult {
	if in.offchain == nil {
		return ruleResult{}
	}
	if !strings.EqualFold(in.offchain.CompositionHash, in.onchain.CompositionHash) {
		return ruleResult{
			anomalies: []string{anomalyHashMismatch},
			escalate:  models.StatusFake,
		}
	}
	return ruleResult{}
}

// sameRoleRule flags history records past the first whose from and to roles
// are identical. The business meaning (fraud vs. data entry error) is
// undocumented upstream; the mechanical rule is preserved as-is.
func sameRoleRule(in ruleInput) ruleResult {
	var res ruleResult
	for i := 1; i < len(in.history); i++ {
		if in.history[i].FromRole == in.history[i].ToRole {
			res.anomalies = append(res.anomalies,
				fmt.Sprintf("Suspicious transfer: same role transfer at index %d", i))
		}
	}
	return res
}

func zeroAddressRule(in ruleInput) ruleResult {
	var res ruleResult
	for _, record := range in.history {
		if record.To == ledger.ZeroAddress {
			res.anomalies = append(res.anomalies, anomalyZeroAddress)
			res.escalate = models.StatusFake
		}
	}
	return res
}
