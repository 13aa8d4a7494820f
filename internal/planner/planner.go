package planner

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	config "github.com/ethsweep/ethsweep/configs"
	"github.com/ethsweep/ethsweep/internal/common"
)

type SpanKind string

const (
	SpanDay    SpanKind = "day"
	SpanHour   SpanKind = "hour"
	SpanMinute SpanKind = "minute"
)

// ParseSpanKind validates the configured span kind. An unknown kind is a
// configuration error, fatal before any work begins.
func ParseSpanKind(value string) (SpanKind, error) {
	switch SpanKind(value) {
	case SpanDay, SpanHour, SpanMinute:
		return SpanKind(value), nil
	default:
		return "", fmt.Errorf("unsupported interval span kind: %q (want day, hour or minute)", value)
	}
}

func (k SpanKind) Duration() time.Duration {
	switch k {
	case SpanDay:
		return 24 * time.Hour
	case SpanHour:
		return time.Hour
	case SpanMinute:
		return time.Minute
	}
	return 0
}

// truncate floors t to the start of its enclosing unit.
func (k SpanKind) truncate(t time.Time) time.Time {
	switch k {
	case SpanDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case SpanHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case SpanMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	}
	return t
}

// Plan partitions [start, end) into contiguous, non-overlapping intervals of
// length × kind, the final interval truncated to end. With aligned set, both
// bounds are first floored to the start of their enclosing unit; a changed
// bound is informational, not an error. An empty plan is a valid outcome.
func Plan(start, end time.Time, kind SpanKind, length float64, aligned bool) ([]common.TimeInterval, error) {
	if _, err := ParseSpanKind(string(kind)); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, fmt.Errorf("interval span length must be positive, got %v", length)
	}
	span := time.Duration(float64(kind.Duration()) * length)
	if span <= 0 {
		return nil, fmt.Errorf("interval span %v %s is too small", length, kind)
	}

	if aligned {
		alignedStart, alignedEnd := kind.truncate(start), kind.truncate(end)
		if !alignedStart.Equal(start) || !alignedEnd.Equal(end) {
			log.Info().
				Str("start", alignedStart.Format(config.TimeLayout)).
				Str("end", alignedEnd.Format(config.TimeLayout)).
				Msgf("Adjusted range bounds to %s boundaries", kind)
		}
		start, end = alignedStart, alignedEnd
	}

	var intervals []common.TimeInterval
	for current := start; current.Before(end); {
		intervalEnd := current.Add(span)
		if intervalEnd.After(end) {
			intervalEnd = end
		}
		intervals = append(intervals, common.TimeInterval{Start: current, End: intervalEnd})
		current = intervalEnd
	}
	return intervals, nil
}
