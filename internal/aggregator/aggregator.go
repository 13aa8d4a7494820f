package aggregator

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	config "github.com/ethsweep/ethsweep/configs"
	"github.com/ethsweep/ethsweep/internal/common"
)

var weiPerToken = new(big.Float).SetInt(common.WhaleThreshold)

// Summarize reduces one interval's classified transactions into a summary
// row. All fields stay zero when no transaction qualifies; that is a valid
// empty summary.
func Summarize(transactions []common.ClassifiedTransaction, interval common.TimeInterval) common.IntervalSummary {
	summary := common.IntervalSummary{
		IntervalStart: interval.Start,
		IntervalEnd:   interval.End,
	}

	whaleTotal := new(big.Int)
	validatorTotal := new(big.Int)
	validatorGasPriceTotal := new(big.Int)

	for _, tx := range transactions {
		if tx.IsWhale {
			summary.WhaleCount++
			whaleTotal.Add(whaleTotal, tx.Value)
		}
		if tx.IsValidatorDeposit {
			summary.ValidatorCount++
			validatorTotal.Add(validatorTotal, tx.Value)
			if tx.GasPrice != nil {
				validatorGasPriceTotal.Add(validatorGasPriceTotal, tx.GasPrice)
			}
		}
	}

	if summary.WhaleCount > 0 {
		summary.WhaleTotalValue = weiToTokens(whaleTotal)
		summary.WhaleAvgValue = summary.WhaleTotalValue / float64(summary.WhaleCount)
	}
	if summary.ValidatorCount > 0 {
		summary.ValidatorTotalValue = weiToTokens(validatorTotal)
		summary.ValidatorAvgValue = summary.ValidatorTotalValue / float64(summary.ValidatorCount)
		gasTotal, _ := new(big.Float).SetInt(validatorGasPriceTotal).Float64()
		summary.ValidatorAvgGasPrice = gasTotal / float64(summary.ValidatorCount)
	}
	return summary
}

// Merge performs a key-aligned inner join between the whale summary stream
// and the validator summary stream: only intervals present in both survive.
// Duplicate keys are dropped (first occurrence wins) and the output is sorted
// by interval start, so merging the same inputs twice yields identical output.
func Merge(whaleRows, validatorRows []common.IntervalSummary) []common.IntervalSummary {
	validatorsByKey := make(map[string]common.IntervalSummary, len(validatorRows))
	for _, row := range validatorRows {
		if _, exists := validatorsByKey[row.Key()]; exists {
			continue
		}
		validatorsByKey[row.Key()] = row
	}

	merged := make([]common.IntervalSummary, 0, len(whaleRows))
	seen := make(map[string]struct{}, len(whaleRows))
	for _, whale := range whaleRows {
		key := whale.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		validator, exists := validatorsByKey[key]
		if !exists {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, common.IntervalSummary{
			IntervalStart:        whale.IntervalStart,
			IntervalEnd:          whale.IntervalEnd,
			WhaleCount:           whale.WhaleCount,
			WhaleTotalValue:      whale.WhaleTotalValue,
			WhaleAvgValue:        whale.WhaleAvgValue,
			ValidatorCount:       validator.ValidatorCount,
			ValidatorTotalValue:  validator.ValidatorTotalValue,
			ValidatorAvgValue:    validator.ValidatorAvgValue,
			ValidatorAvgGasPrice: validator.ValidatorAvgGasPrice,
		})
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].IntervalStart.Before(merged[j].IntervalStart)
	})
	return merged
}

// CheckCompletion verifies that a run reached the requested global end: the
// last recorded summary must close exactly at it. Anything else signals a
// truncated run; already-written data stays valid either way.
func CheckCompletion(summaries []common.IntervalSummary, globalEnd time.Time) error {
	if len(summaries) == 0 {
		return fmt.Errorf("run truncated: no summaries were recorded")
	}
	last := summaries[len(summaries)-1].IntervalEnd
	if !last.Equal(globalEnd) {
		return fmt.Errorf("run truncated: last summarized interval ends at %s, expected %s",
			last.Format(config.TimeLayout), globalEnd.Format(config.TimeLayout))
	}
	return nil
}

func weiToTokens(wei *big.Int) float64 {
	tokens, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerToken).Float64()
	return tokens
}
