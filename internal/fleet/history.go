package fleet

import (
	"sort"
	"strings"
	"time"

	"github.com/ukydev/fleet-tracking/internal/gpswox"
	"github.com/ukydev/fleet-tracking/internal/models"
)

const dateLayout = "2006-01-02"

// NormalizeHistory converts provider samples to points sorted by time,
// oldest first. Samples without a usable time keep their relative order
// and sort before the dated ones.
func NormalizeHistory(samples []gpswox.HistorySample) []models.HistoryPoint {
	points := make([]models.HistoryPoint, 0, len(samples))
	for i := range samples {
		points = append(points, historyPoint(&samples[i]))
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
	return points
}

func historyPoint(s *gpswox.HistorySample) models.HistoryPoint {
	p := models.HistoryPoint{
		Time:     s.Time.String(),
		Lat:      s.Lat.Value,
		Lng:      s.Lng.Value,
		Speed:    s.Speed.Value,
		Distance: s.Distance.Ptr(),
		Fuel:     s.Fuel.Ptr(),
	}
	if p.Time == "" {
		p.Time = s.RawTime.String()
	}
	if p.Fuel == nil {
		p.Fuel = ScanSensors(s.Sensors).Fuel
	}

	p.Timestamp = unixSeconds(s.Timestamp)
	if p.Timestamp == 0 {
		if t, ok := parseTime(s.Time.String()); ok {
			p.Timestamp = t.Unix()
		} else if t, ok := parseTime(s.RawTime.String()); ok {
			p.Timestamp = t.Unix()
		}
	}

	p.Date = datePrefix(s.Time.String())
	if p.Date == "" {
		p.Date = datePrefix(s.RawTime.String())
	}
	if p.Date == "" && p.Timestamp > 0 {
		p.Date = time.Unix(p.Timestamp, 0).UTC().Format(dateLayout)
	}
	return p
}

func datePrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < len(dateLayout) {
		return ""
	}
	prefix := s[:len(dateLayout)]
	if _, err := time.Parse(dateLayout, prefix); err != nil {
		return ""
	}
	return prefix
}

func hasCoords(p *models.HistoryPoint) bool {
	return p.Lat != 0 || p.Lng != 0
}

// ReduceHistory buckets sorted points into per-day distance and fuel
// consumption for one device. Each pair's distance goes to the later
// sample's day; it is the provider's distance when present, haversine
// otherwise. Fuel only accumulates decreases; a refill just moves the
// baseline. Undated samples are not bucketed but still move the baselines.
func ReduceHistory(deviceID string, points []models.HistoryPoint) models.DailyStats {
	stats := models.DailyStats{}
	var prev *models.HistoryPoint
	var prevFuel *float64

	for i := range points {
		p := &points[i]

		var distance, fuel float64
		if prev != nil {
			switch {
			case p.Distance != nil:
				distance = *p.Distance
			case hasCoords(prev) && hasCoords(p):
				distance = HaversineKm(prev.Lat, prev.Lng, p.Lat, p.Lng)
			}
		}
		if prevFuel != nil && p.Fuel != nil && *prevFuel > *p.Fuel {
			fuel = *prevFuel - *p.Fuel
		}

		if p.Date != "" {
			bucket, ok := stats[p.Date]
			if !ok {
				bucket = make(map[string]models.DailyStat)
				stats[p.Date] = bucket
			}
			cur := bucket[deviceID]
			cur.Distance += distance
			cur.Fuel += fuel
			bucket[deviceID] = cur
		}

		if p.Fuel != nil {
			prevFuel = p.Fuel
		}
		prev = p
	}
	return stats
}
