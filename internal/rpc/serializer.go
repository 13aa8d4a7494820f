package rpc

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ethsweep/ethsweep/internal/common"
)

// RawBlock is the undecoded JSON-RPC block payload. All numeric fields arrive
// as base-16 text; nothing hex-typed escapes this package.
type RawBlock = map[string]interface{}

func serializeBlock(block RawBlock) *common.Block {
	number := hexToBigInt(block["number"])
	serialized := &common.Block{
		Number:        number,
		Timestamp:     hexToUint64(block["timestamp"]),
		GasLimit:      hexToBigInt(block["gasLimit"]),
		GasUsed:       hexToBigInt(block["gasUsed"]),
		Difficulty:    hexToBigInt(block["difficulty"]),
		Size:          hexToUint64(block["size"]),
		Miner:         interfaceToString(block["miner"]),
		ExtraDataSize: hexDataSize(interfaceToString(block["extraData"])),
	}
	transactions, ok := block["transactions"].([]interface{})
	if !ok {
		return serialized
	}
	serialized.TransactionCount = uint64(len(transactions))
	serialized.Transactions = serializeTransactions(transactions, number)
	return serialized
}

func serializeTransactions(transactions []interface{}, blockNumber *big.Int) []common.Transaction {
	if len(transactions) == 0 {
		return []common.Transaction{}
	}
	serialized := make([]common.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		rawTx, ok := tx.(map[string]interface{})
		if !ok {
			// header-only responses carry transaction hashes, not objects
			continue
		}
		serialized = append(serialized, serializeTransaction(rawTx, blockNumber))
	}
	return serialized
}

func serializeTransaction(tx map[string]interface{}, blockNumber *big.Int) common.Transaction {
	serialized := common.Transaction{
		Hash:             interfaceToString(tx["hash"]),
		BlockNumber:      blockNumber,
		TransactionIndex: hexToUint64(tx["transactionIndex"]),
		FromAddress:      interfaceToString(tx["from"]),
		Value:            hexToBigInt(tx["value"]),
		Gas:              hexToUint64(tx["gas"]),
		GasPrice:         hexToBigInt(tx["gasPrice"]),
		Nonce:            hexToUint64(tx["nonce"]),
		InputDataSize:    hexDataSize(interfaceToString(tx["input"])),
	}
	if tx["to"] == nil {
		serialized.IsContractCreation = true
	} else {
		serialized.ToAddress = interfaceToString(tx["to"])
	}
	return serialized
}

func hexToBigInt(hex interface{}) *big.Int {
	hexString := interfaceToString(hex)
	if hexString == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(hexString, "0x"), 16)
	if !ok {
		log.Debug().Msgf("Failed to decode hex value: %v", hex)
		return new(big.Int)
	}
	return v
}

func hexToUint64(hex interface{}) uint64 {
	hexString := interfaceToString(hex)
	if hexString == "" {
		return 0
	}
	v, _ := strconv.ParseUint(strings.TrimPrefix(hexString, "0x"), 16, 64)
	return v
}

func interfaceToString(value interface{}) string {
	if value == nil {
		return ""
	}
	res, ok := value.(string)
	if !ok {
		return ""
	}
	return res
}

// hexDataSize returns the byte length of a 0x-prefixed data payload.
func hexDataSize(data string) int {
	if len(data) < 2 {
		return 0
	}
	return (len(data) - 2) / 2
}
