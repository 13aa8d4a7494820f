package common

import (
	"math/big"
)

type Transaction struct {
	Hash             string
	BlockNumber      *big.Int
	TransactionIndex uint64
	FromAddress      string
	ToAddress        string
	Value            *big.Int
	Gas              uint64
	GasPrice         *big.Int
	Nonce            uint64
	InputDataSize    int
	// A transaction without a `to` field creates a contract.
	IsContractCreation bool
}
