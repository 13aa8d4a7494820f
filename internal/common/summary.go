package common

import (
	"fmt"
	"time"
)

// IntervalSummary is one aggregated row per time interval. Monetary values are
// in whole tokens (wei / 1e18), gas price stays in wei. Zero-valued fields are
// a valid empty summary, not a missing one. Never mutated after creation.
type IntervalSummary struct {
	IntervalStart time.Time
	IntervalEnd   time.Time

	WhaleCount      uint64
	WhaleTotalValue float64
	WhaleAvgValue   float64

	ValidatorCount       uint64
	ValidatorTotalValue  float64
	ValidatorAvgValue    float64
	ValidatorAvgGasPrice float64
}

func (s IntervalSummary) Key() string {
	return fmt.Sprintf("%d-%d", s.IntervalStart.Unix(), s.IntervalEnd.Unix())
}

func (s IntervalSummary) Interval() TimeInterval {
	return TimeInterval{Start: s.IntervalStart, End: s.IntervalEnd}
}
