package service

import (
	"strings"
	"time"

	"github.com/ukydev/fleet-tracking/internal/gpswox"
)

const dateOnly = "2006-01-02"

// DateRange is a normalized report window.
type DateRange struct {
	From     time.Time
	To       time.Time
	FromText string
	ToText   string
}

// NormalizeDateRange accepts bare dates or full timestamps. A bare start
// date becomes 00:00:00 and a bare end date 23:59:59.
func NormalizeDateRange(from, to string) (DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return DateRange{}, ErrDateRangeRequired
	}
	start, err := parseBound(from, false)
	if err != nil {
		return DateRange{}, err
	}
	end, err := parseBound(to, true)
	if err != nil {
		return DateRange{}, err
	}
	if start.After(end) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{
		From:     start,
		To:       end,
		FromText: start.Format(gpswox.ProviderTimeLayout),
		ToText:   end.Format(gpswox.ProviderTimeLayout),
	}, nil
}

func parseBound(s string, endOfDay bool) (time.Time, error) {
	if len(s) == len(dateOnly) {
		d, err := time.Parse(dateOnly, s)
		if err != nil {
			return time.Time{}, ErrInvalidDate
		}
		if endOfDay {
			return d.Add(24*time.Hour - time.Second), nil
		}
		return d, nil
	}
	for _, layout := range []string{gpswox.ProviderTimeLayout, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
