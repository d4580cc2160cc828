package fleet

import (
	"strings"
	"time"

	"github.com/ukydev/fleet-tracking/internal/gpswox"
	"github.com/ukydev/fleet-tracking/internal/models"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02-01-2006 15:04:05",
}

// StatusFromOnline maps the provider online flag to a vehicle status.
func StatusFromOnline(online string) models.VehicleStatus {
	switch normalizeOnline(online) {
	case models.OnlineOnline:
		return models.StatusActive
	case models.OnlineOffline:
		return models.StatusInactive
	default:
		return models.StatusMaintenance
	}
}

func normalizeOnline(online string) string {
	return strings.ToLower(strings.TrimSpace(online))
}

// Normalize maps a raw provider device to a Vehicle. Driver resolution is
// left to the Correlator.
func Normalize(raw *gpswox.RawDevice) models.Vehicle {
	name := strings.TrimSpace(raw.Name.String())
	v := models.Vehicle{
		ID:            raw.ID.String(),
		Name:          name,
		Plate:         name,
		Model:         name,
		Online:        normalizeOnline(raw.Online.String()),
		DistanceToday: raw.DistanceToday.Ptr(),
		DistanceWeek:  raw.DistanceWeek.Ptr(),
		DistanceMonth: raw.DistanceMonth.Ptr(),
		Sensors:       passThroughSensors(raw.Sensors),
	}
	v.Status = StatusFromOnline(v.Online)

	legacy := raw.DeviceData
	if legacy != nil {
		if plate := strings.TrimSpace(legacy.PlateNumber.String()); plate != "" {
			v.Plate = plate
		}
		if model := strings.TrimSpace(legacy.DeviceModel.String()); model != "" {
			v.Model = model
		}
	}

	v.LastPosition = position(raw)
	v.SpeedKmh = speed(raw)
	v.LastUpdate = lastUpdate(raw)

	readings := ScanSensors(raw.Sensors)
	v.Battery = readings.Battery
	v.Network = readings.Network

	v.Mileage = raw.TotalDistance.Ptr()
	if v.Mileage == nil {
		v.Mileage = readings.Odometer
	}

	v.FuelQuantity = raw.FuelQuantity.Ptr()
	if v.FuelQuantity == nil && legacy != nil {
		v.FuelQuantity = legacy.FuelQuantity.Ptr()
	}
	if v.FuelQuantity == nil {
		v.FuelQuantity = readings.Fuel
	}

	return v
}

func position(raw *gpswox.RawDevice) *models.Position {
	if raw.Lat.Valid && raw.Lng.Valid {
		return &models.Position{
			Lat:       raw.Lat.Value,
			Lng:       raw.Lng.Value,
			Speed:     raw.Speed.Value,
			Course:    raw.Course.Value,
			Altitude:  raw.Altitude.Value,
			Timestamp: raw.Time.String(),
		}
	}
	if l := raw.DeviceData; l != nil && l.Lat.Valid && l.Lng.Valid {
		return &models.Position{
			Lat:       l.Lat.Value,
			Lng:       l.Lng.Value,
			Speed:     l.Speed.Value,
			Course:    l.Course.Value,
			Altitude:  l.Altitude.Value,
			Timestamp: l.Time.String(),
		}
	}
	return nil
}

// speed prefers the flat field and does not depend on a position fix.
func speed(raw *gpswox.RawDevice) float64 {
	if raw.Speed.Valid {
		return raw.Speed.Value
	}
	if l := raw.DeviceData; l != nil && l.Speed.Valid {
		return l.Speed.Value
	}
	return 0
}

func lastUpdate(raw *gpswox.RawDevice) int64 {
	if ts := unixSeconds(raw.Timestamp); ts > 0 {
		return ts
	}
	if l := raw.DeviceData; l != nil {
		if ts := unixSeconds(l.Timestamp); ts > 0 {
			return ts
		}
		if t, ok := parseTime(l.Time.String()); ok {
			return t.Unix()
		}
	}
	if t, ok := parseTime(raw.Time.String()); ok {
		return t.Unix()
	}
	return 0
}

// unixSeconds accepts seconds or milliseconds.
func unixSeconds(f gpswox.FlexFloat) int64 {
	if !f.Valid || f.Value <= 0 {
		return 0
	}
	if f.Value > 1e12 {
		return int64(f.Value / 1000)
	}
	return int64(f.Value)
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func passThroughSensors(raws []gpswox.RawSensor) []models.Sensor {
	out := make([]models.Sensor, 0, len(raws))
	for _, s := range raws {
		out = append(out, models.Sensor{
			Type:  s.Type.String(),
			Name:  s.Name.String(),
			Val:   s.DecodedVal(),
			Value: s.DecodedValue(),
		})
	}
	return out
}
