package common

import (
	"math/big"
	"time"
)

// Block is the decoded form of an eth_getBlockByNumber response. All hex
// fields are decoded at the RPC boundary; a Block is immutable once built.
type Block struct {
	Number           *big.Int
	Timestamp        uint64
	GasLimit         *big.Int
	GasUsed          *big.Int
	Difficulty       *big.Int
	Size             uint64
	Miner            string
	ExtraDataSize    int
	TransactionCount uint64
	Transactions     []Transaction
}

func (b *Block) Time() time.Time {
	return time.Unix(int64(b.Timestamp), 0).UTC()
}
