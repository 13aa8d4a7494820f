package rpc

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeBlock(t *testing.T) {
	raw := RawBlock{
		"number":    "0x112a880",
		"timestamp": "0x65e8f400",
		"gasLimit":  "0x1c9c380",
		"gasUsed":   "0xe4e1c0",
		"size":      "0x2fa",
		"miner":     "0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5",
		"extraData": "0x6265617665726275696c642e6f7267",
		"transactions": []interface{}{
			map[string]interface{}{
				"hash":             "0xabc",
				"transactionIndex": "0x0",
				"from":             "0x1111111111111111111111111111111111111111",
				"to":               "0x2222222222222222222222222222222222222222",
				"value":            "0xde0b6b3a7640000",
				"gas":              "0x5208",
				"gasPrice":         "0x4a817c800",
				"nonce":            "0x10",
				"input":            "0x",
			},
		},
	}

	block := serializeBlock(raw)

	assert.Equal(t, big.NewInt(18_000_000), block.Number)
	assert.Equal(t, uint64(0x65e8f400), block.Timestamp)
	assert.Equal(t, uint64(0x2fa), block.Size)
	assert.Equal(t, "0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5", block.Miner)
	assert.Equal(t, 15, block.ExtraDataSize)
	assert.Equal(t, uint64(1), block.TransactionCount)

	require.Len(t, block.Transactions, 1)
	tx := block.Transactions[0]
	assert.Equal(t, "0xabc", tx.Hash)
	assert.Equal(t, big.NewInt(18_000_000), tx.BlockNumber)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", tx.ToAddress)
	// 0xde0b6b3a7640000 is one ETH in wei
	assert.Equal(t, "1000000000000000000", tx.Value.String())
	assert.Equal(t, uint64(21000), tx.Gas)
	assert.Equal(t, "20000000000", tx.GasPrice.String())
	assert.Equal(t, uint64(16), tx.Nonce)
	assert.Equal(t, 0, tx.InputDataSize)
	assert.False(t, tx.IsContractCreation)
}

func TestSerializeContractCreation(t *testing.T) {
	raw := RawBlock{
		"number": "0x1",
		"transactions": []interface{}{
			map[string]interface{}{
				"hash":  "0xdef",
				"from":  "0x1111111111111111111111111111111111111111",
				"to":    nil,
				"value": "0x0",
				"input": "0x60806040",
			},
		},
	}

	block := serializeBlock(raw)

	require.Len(t, block.Transactions, 1)
	tx := block.Transactions[0]
	assert.True(t, tx.IsContractCreation)
	assert.Empty(t, tx.ToAddress)
	assert.Equal(t, 4, tx.InputDataSize)
}

func TestSerializeHeaderOnlyBlock(t *testing.T) {
	// without full transaction objects the payload carries hashes only
	raw := RawBlock{
		"number":       "0x64",
		"timestamp":    "0x65e8f400",
		"transactions": []interface{}{"0xaaa", "0xbbb"},
	}

	block := serializeBlock(raw)

	assert.Equal(t, uint64(2), block.TransactionCount)
	assert.Empty(t, block.Transactions)
}

func TestHexHelpers(t *testing.T) {
	assert.Equal(t, big.NewInt(255), hexToBigInt("0xff"))
	assert.Equal(t, big.NewInt(0), hexToBigInt(""))
	assert.Equal(t, big.NewInt(0), hexToBigInt(nil))
	assert.Equal(t, big.NewInt(0), hexToBigInt("0xzz"))

	assert.Equal(t, uint64(255), hexToUint64("0xff"))
	assert.Equal(t, uint64(0), hexToUint64(nil))

	assert.Equal(t, 0, hexDataSize("0x"))
	assert.Equal(t, 3, hexDataSize("0xaabbcc"))
}
