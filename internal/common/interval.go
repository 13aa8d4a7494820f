package common

import (
	"fmt"
	"time"

	config "github.com/ethsweep/ethsweep/configs"
)

// TimeInterval is a half-open time span [Start, End). Invariant: Start < End.
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

func (i TimeInterval) String() string {
	return fmt.Sprintf("%s to %s", i.Start.Format(config.TimeLayout), i.End.Format(config.TimeLayout))
}

// Key identifies an interval's summary row for the cross-stream join.
func (i TimeInterval) Key() string {
	return fmt.Sprintf("%d-%d", i.Start.Unix(), i.End.Unix())
}
