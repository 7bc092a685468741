package youtube

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Metric sets requested from YouTube Analytics. Channels whose owner cannot
// read monetary data only get the basic set.
var (
	FullMetrics  = []string{"views", "estimatedMinutesWatched", "estimatedRevenue", "subscribersGained", "subscribersLost"}
	BasicMetrics = []string{"views", "estimatedMinutesWatched"}
)

var permissionPattern = regexp.MustCompile(`monetary|insufficient|forbidden|permission`)

// IsPermissionError reports whether err means the caller may not read the
// requested metrics, as opposed to quota or transport failures.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	return permissionPattern.MatchString(strings.ToLower(err.Error()))
}

type ReportQuery struct {
	ChannelID string
	From      time.Time
	To        time.Time
	Metrics   []string
}

// Report is a daily analytics table: one row per day, cells ordered as Columns.
type Report struct {
	Columns []string
	Rows    [][]any
}

// DayMetrics is one channel-day of figures ready to be stored.
type DayMetrics struct {
	Date             time.Time
	Views            int64
	WatchTimeMinutes int64
	Revenue          decimal.Decimal
	SubsGained       int64
	SubsLost         int64
}

// Days converts the report into per-day figures. Columns are located by name;
// missing metric columns read as zero.
func (r *Report) Days() ([]DayMetrics, error) {
	idx := make(map[string]int, len(r.Columns))
	for i, name := range r.Columns {
		idx[name] = i
	}
	dayCol, ok := idx["day"]
	if !ok {
		return nil, fmt.Errorf("report has no day column")
	}

	days := make([]DayMetrics, 0, len(r.Rows))
	for _, row := range r.Rows {
		raw, _ := cell(row, dayCol).(string)
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("report day %q: %w", raw, err)
		}

		days = append(days, DayMetrics{
			Date:             date,
			Views:            integer(cellByName(row, idx, "views")),
			WatchTimeMinutes: integer(cellByName(row, idx, "estimatedMinutesWatched")),
			Revenue:          money(cellByName(row, idx, "estimatedRevenue")),
			SubsGained:       integer(cellByName(row, idx, "subscribersGained")),
			SubsLost:         integer(cellByName(row, idx, "subscribersLost")),
		})
	}
	return days, nil
}

func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func cellByName(row []any, idx map[string]int, name string) any {
	i, ok := idx[name]
	if !ok {
		return nil
	}
	return cell(row, i)
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func integer(v any) int64 {
	return int64(math.Round(number(v)))
}

func money(v any) decimal.Decimal {
	if s, ok := v.(string); ok {
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.NewFromFloat(number(v)).Round(4)
}
