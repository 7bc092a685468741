package youtube

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportDays_ByColumnName(t *testing.T) {
	r := &Report{
		Columns: []string{"day", "estimatedRevenue", "views", "estimatedMinutesWatched", "subscribersGained", "subscribersLost"},
		Rows: [][]any{
			{"2025-01-01", 5.0, 1000.0, 3200.0, 4.0, 1.0},
			{"2025-01-02", 1.25, 499.6, 1400.2, 0.0, 2.0},
		},
	}

	days, err := r.Days()
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.Equal(t, int64(1000), days[0].Views)
	assert.Equal(t, int64(3200), days[0].WatchTimeMinutes)
	assert.True(t, decimal.RequireFromString("5").Equal(days[0].Revenue))
	assert.Equal(t, int64(4), days[0].SubsGained)

	assert.Equal(t, int64(500), days[1].Views)
	assert.Equal(t, int64(1400), days[1].WatchTimeMinutes)
	assert.True(t, decimal.RequireFromString("1.25").Equal(days[1].Revenue))
	assert.Equal(t, int64(2), days[1].SubsLost)
}

func TestReportDays_BasicMetricsLeaveRevenueZero(t *testing.T) {
	r := &Report{
		Columns: []string{"day", "views", "estimatedMinutesWatched"},
		Rows:    [][]any{{"2025-01-01", 10.0, 20.0}},
	}

	days, err := r.Days()
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.True(t, days[0].Revenue.IsZero())
	assert.Zero(t, days[0].SubsGained)
}

func TestReportDays_Errors(t *testing.T) {
	_, err := (&Report{Columns: []string{"views"}}).Days()
	assert.Error(t, err)

	_, err = (&Report{Columns: []string{"day"}, Rows: [][]any{{"01/02/2025"}}}).Days()
	assert.Error(t, err)
}

func TestReportDays_Empty(t *testing.T) {
	days, err := (&Report{Columns: []string{"day", "views"}}).Days()
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestIsPermissionError(t *testing.T) {
	assert.True(t, IsPermissionError(errors.New("googleapi: Error 403: Forbidden")))
	assert.True(t, IsPermissionError(errors.New("Insufficient permission for monetary metrics")))
	assert.False(t, IsPermissionError(errors.New("googleapi: Error 429: quota exceeded")))
	assert.False(t, IsPermissionError(nil))
}
