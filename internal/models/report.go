package models

// Severity grades an overspeed event.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FleetSummary holds the fleet-wide counters of a report.
type FleetSummary struct {
	Total           int     `json:"total" bson:"total"`
	Online          int     `json:"online" bson:"online"`
	Offline         int     `json:"offline" bson:"offline"`
	Idle            int     `json:"idle" bson:"idle"`
	Moving          int     `json:"moving" bson:"moving"`
	MaxSpeed        float64 `json:"maxSpeed" bson:"max_speed"`
	MaxSpeedVehicle string  `json:"maxSpeedVehicle" bson:"max_speed_vehicle"`
	Overspeeds      int     `json:"overspeeds" bson:"overspeeds"`
	Stopped         int     `json:"stopped" bson:"stopped"`
}

// OverspeedEntry is a vehicle currently above the speed limit.
type OverspeedEntry struct {
	ID        string   `json:"id" bson:"id"`
	Name      string   `json:"name" bson:"name"`
	Speed     float64  `json:"speed" bson:"speed"`
	Severity  Severity `json:"severity" bson:"severity"`
	Driver    *string  `json:"driver" bson:"driver"`
	Lat       float64  `json:"lat" bson:"lat"`
	Lng       float64  `json:"lng" bson:"lng"`
	Timestamp string   `json:"timestamp" bson:"timestamp"`
}

// StoppedEntry is a vehicle that has not reported movement for a while.
type StoppedEntry struct {
	ID          string  `json:"id" bson:"id"`
	Name        string  `json:"name" bson:"name"`
	StopMinutes float64 `json:"stopMinutes" bson:"stop_minutes"`
	Driver      *string `json:"driver" bson:"driver"`
	Lat         float64 `json:"lat" bson:"lat"`
	Lng         float64 `json:"lng" bson:"lng"`
}

// VehicleEntry is a compact vehicle reference used by offline and moving lists.
type VehicleEntry struct {
	ID        string  `json:"id" bson:"id"`
	Name      string  `json:"name" bson:"name"`
	Speed     float64 `json:"speed" bson:"speed"`
	Driver    *string `json:"driver" bson:"driver"`
	Timestamp string  `json:"timestamp" bson:"timestamp"`
}

// FuelEntry is one vehicle's fuel snapshot.
type FuelEntry struct {
	ID   string  `json:"id" bson:"id"`
	Name string  `json:"name" bson:"name"`
	Fuel float64 `json:"fuel" bson:"fuel"`
}

// FleetReport is computed per request and never stored as state.
type FleetReport struct {
	Summary    FleetSummary     `json:"summary" bson:"summary"`
	Overspeeds []OverspeedEntry `json:"overspeeds" bson:"overspeeds"`
	Stopped    []StoppedEntry   `json:"stopped" bson:"stopped"`
	Offline    []VehicleEntry   `json:"offline" bson:"offline"`
	Moving     []VehicleEntry   `json:"moving" bson:"moving"`
	Fuel       []FuelEntry      `json:"fuel" bson:"fuel"`
}

// DailyStat is a per-device per-day aggregate.
type DailyStat struct {
	Distance float64 `json:"distance" bson:"distance"` // km
	Fuel     float64 `json:"fuel" bson:"fuel"`         // consumed units, refills excluded
}

// DailyStats is keyed by date (YYYY-MM-DD) then device id.
type DailyStats map[string]map[string]DailyStat

// Merge folds other into s, summing overlapping buckets.
func (s DailyStats) Merge(other DailyStats) {
	for date, devices := range other {
		bucket, ok := s[date]
		if !ok {
			bucket = make(map[string]DailyStat, len(devices))
			s[date] = bucket
		}
		for id, stat := range devices {
			cur := bucket[id]
			cur.Distance += stat.Distance
			cur.Fuel += stat.Fuel
			bucket[id] = cur
		}
	}
}

// HistoryPoint is a normalized historical position.
type HistoryPoint struct {
	Date      string   `json:"date"` // YYYY-MM-DD bucket, empty when unknown
	Time      string   `json:"time"`
	Timestamp int64    `json:"timestamp"`
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Speed     float64  `json:"speed"`
	Distance  *float64 `json:"distance"`
	Fuel      *float64 `json:"fuel"`
}

// DeviceHistory is the payload of a history report.
type DeviceHistory struct {
	DeviceID string         `json:"device_id"`
	DateFrom string         `json:"date_from"`
	DateTo   string         `json:"date_to"`
	Source   string         `json:"source,omitempty"`
	Points   []HistoryPoint `json:"points"`
	Stats    DailyStats     `json:"stats"`
}
