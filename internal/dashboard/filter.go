package dashboard

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Filter is the optional narrowing a caller applies to a dashboard view. A
// nil field means the constraint is absent.
type Filter struct {
	From      *time.Time
	To        *time.Time
	TeamID    *uint64
	NetworkID *uint64
	ManagerID *uint64
}

// ParseFilter reads from, to, teamId, networkId and managerId from the query
// string. Values that do not parse are treated as absent rather than
// rejected, and id 0 is treated as absent.
func ParseFilter(q url.Values) Filter {
	return Filter{
		From:      parseDate(q.Get("from")),
		To:        parseDate(q.Get("to")),
		TeamID:    parseID(q.Get("teamId")),
		NetworkID: parseID(q.Get("networkId")),
		ManagerID: parseID(q.Get("managerId")),
	}
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t
	}
	// Full timestamps are accepted and truncated to their UTC calendar day.
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		y, m, d := t.UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &day
	}
	return nil
}

func parseID(raw string) *uint64 {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

// Key is a canonical encoding of the filter used in cache keys.
func (f Filter) Key() string {
	var b strings.Builder
	b.WriteString("from=")
	if f.From != nil {
		b.WriteString(f.From.Format(dateLayout))
	}
	b.WriteString("&to=")
	if f.To != nil {
		b.WriteString(f.To.Format(dateLayout))
	}
	for _, p := range []struct {
		name string
		id   *uint64
	}{{"team", f.TeamID}, {"network", f.NetworkID}, {"manager", f.ManagerID}} {
		b.WriteString("&" + p.name + "=")
		if p.id != nil {
			b.WriteString(strconv.FormatUint(*p.id, 10))
		}
	}
	return b.String()
}
