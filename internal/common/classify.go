package common

import (
	"math/big"
	"strings"
)

// DepositContractAddress is the beacon chain deposit contract. Deposits to it
// of at least 32 ETH activate a validator.
const DepositContractAddress = "0x00000000219ab540356cBB839Cbe05303d7705Fa"

var (
	// WhaleThreshold is one whole ETH in wei. Intentionally low so that test
	// and demo runs produce matches; production deployments raise it.
	WhaleThreshold = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// ValidatorDepositThreshold is the 32 ETH minimum stake in wei.
	ValidatorDepositThreshold = new(big.Int).Mul(big.NewInt(32), WhaleThreshold)
)

// ClassifiedTransaction tags a transaction with the verdicts the aggregator
// consumes. The embedded transaction is never mutated; the two verdicts are
// independent, so a transaction may carry both, either, or neither.
type ClassifiedTransaction struct {
	Transaction
	IsWhale            bool
	IsValidatorDeposit bool
}

func Classify(tx Transaction) ClassifiedTransaction {
	classified := ClassifiedTransaction{Transaction: tx}
	if tx.Value == nil {
		return classified
	}
	classified.IsWhale = tx.Value.Cmp(WhaleThreshold) >= 0
	classified.IsValidatorDeposit = strings.EqualFold(tx.ToAddress, DepositContractAddress) &&
		tx.Value.Cmp(ValidatorDepositThreshold) >= 0
	return classified
}
