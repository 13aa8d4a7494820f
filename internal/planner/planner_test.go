package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpanKind(t *testing.T) {
	for _, valid := range []string{"day", "hour", "minute"} {
		kind, err := ParseSpanKind(valid)
		assert.NoError(t, err)
		assert.Equal(t, SpanKind(valid), kind)
	}

	_, err := ParseSpanKind("week")
	assert.Error(t, err)
	_, err = ParseSpanKind("")
	assert.Error(t, err)
}

func TestPlanTwoHourRangeWithHourSpans(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	intervals, err := Plan(start, end, SpanHour, 1, false)
	require.NoError(t, err)
	require.Len(t, intervals, 2)

	assert.Equal(t, start, intervals[0].Start)
	assert.Equal(t, start.Add(time.Hour), intervals[0].End)
	assert.Equal(t, start.Add(time.Hour), intervals[1].Start)
	assert.Equal(t, end, intervals[1].End)
}

func TestPlanTruncatesFinalInterval(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(150 * time.Minute)

	intervals, err := Plan(start, end, SpanHour, 1, false)
	require.NoError(t, err)
	require.Len(t, intervals, 3)
	assert.Equal(t, 30*time.Minute, intervals[2].End.Sub(intervals[2].Start))
	assert.Equal(t, end, intervals[2].End)
}

func TestPlanIsContiguousAndNonOverlapping(t *testing.T) {
	start := time.Date(2024, 3, 1, 7, 13, 0, 0, time.UTC)
	end := start.Add(26 * time.Hour)

	intervals, err := Plan(start, end, SpanHour, 1.5, false)
	require.NoError(t, err)
	require.NotEmpty(t, intervals)

	assert.Equal(t, start, intervals[0].Start)
	assert.Equal(t, end, intervals[len(intervals)-1].End)
	for i := 1; i < len(intervals); i++ {
		assert.Equal(t, intervals[i-1].End, intervals[i].Start)
	}
}

func TestPlanFractionalSpanLength(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	intervals, err := Plan(start, end, SpanHour, 0.5, false)
	require.NoError(t, err)
	require.Len(t, intervals, 2)
	assert.Equal(t, 30*time.Minute, intervals[0].End.Sub(intervals[0].Start))
}

func TestPlanAlignedFloorsBounds(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 25, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 13, 40, 0, 0, time.UTC)

	intervals, err := Plan(start, end, SpanHour, 1, true)
	require.NoError(t, err)
	require.Len(t, intervals, 3)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), intervals[0].Start)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), intervals[2].End)
}

func TestPlanEmptyRange(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	intervals, err := Plan(start, start, SpanHour, 1, false)
	require.NoError(t, err)
	assert.Empty(t, intervals)
}

func TestPlanRejectsNonPositiveLength(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := Plan(start, start.Add(time.Hour), SpanHour, 0, false)
	assert.Error(t, err)
	_, err = Plan(start, start.Add(time.Hour), SpanHour, -1, false)
	assert.Error(t, err)
}
