package fleet

import (
	"sort"
	"time"

	"github.com/ukydev/fleet-tracking/internal/models"
)

// Thresholds drive report classification. Speeds are km/h.
type Thresholds struct {
	OverspeedKmh float64
	HighKmh      float64
	CriticalKmh  float64
	MovingKmh    float64
	StopMinutes  float64
}

// DefaultThresholds: overspeed above 80, high above 90, critical above 120,
// moving above 2, stopped after 30 minutes. HighKmh stays at 90 so a 95 km/h
// vehicle is graded high; raising it to 100 would grade that case medium.
var DefaultThresholds = Thresholds{
	OverspeedKmh: 80,
	HighKmh:      90,
	CriticalKmh:  120,
	MovingKmh:    2,
	StopMinutes:  30,
}

// Severity grades a speed above the overspeed threshold.
func (t Thresholds) Severity(speed float64) models.Severity {
	switch {
	case speed > t.CriticalKmh:
		return models.SeverityCritical
	case speed > t.HighKmh:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

// StopMinutes returns the minutes elapsed since the vehicle's last update,
// or -1 when the update time is unknown.
func StopMinutes(v *models.Vehicle, now time.Time) float64 {
	if v.LastUpdate <= 0 {
		return -1
	}
	return now.Sub(time.Unix(v.LastUpdate, 0)).Minutes()
}

// BuildReport reduces the vehicle list into fleet counters and category
// lists in a single pass.
func BuildReport(vehicles []models.Vehicle, now time.Time, th Thresholds) models.FleetReport {
	report := models.FleetReport{
		Overspeeds: []models.OverspeedEntry{},
		Stopped:    []models.StoppedEntry{},
		Offline:    []models.VehicleEntry{},
		Moving:     []models.VehicleEntry{},
		Fuel:       []models.FuelEntry{},
	}
	s := &report.Summary

	for i := range vehicles {
		v := &vehicles[i]
		s.Total++

		online := normalizeOnline(v.Online)
		isOffline := online == models.OnlineOffline
		isAck := online == models.OnlineAck
		speed := v.Speed()
		name := v.DisplayName()
		moving := speed > th.MovingKmh && !isAck

		switch online {
		case models.OnlineOnline:
			s.Online++
		case models.OnlineOffline:
			s.Offline++
		}
		if isAck || (!moving && !isOffline) {
			s.Idle++
		}
		if moving {
			s.Moving++
		}
		if speed > s.MaxSpeed {
			s.MaxSpeed = speed
			s.MaxSpeedVehicle = name
		}

		var lat, lng float64
		var ts string
		if v.LastPosition != nil {
			lat, lng, ts = v.LastPosition.Lat, v.LastPosition.Lng, v.LastPosition.Timestamp
		}

		if speed > th.OverspeedKmh {
			report.Overspeeds = append(report.Overspeeds, models.OverspeedEntry{
				ID:        v.ID,
				Name:      name,
				Speed:     speed,
				Severity:  th.Severity(speed),
				Driver:    v.Driver,
				Lat:       lat,
				Lng:       lng,
				Timestamp: ts,
			})
		}

		if !moving && !isOffline {
			if mins := StopMinutes(v, now); mins > th.StopMinutes {
				report.Stopped = append(report.Stopped, models.StoppedEntry{
					ID:          v.ID,
					Name:        name,
					StopMinutes: mins,
					Driver:      v.Driver,
					Lat:         lat,
					Lng:         lng,
				})
			}
		}

		entry := models.VehicleEntry{ID: v.ID, Name: name, Speed: speed, Driver: v.Driver, Timestamp: ts}
		if isOffline {
			report.Offline = append(report.Offline, entry)
		}
		if moving {
			report.Moving = append(report.Moving, entry)
		}

		if v.FuelQuantity != nil {
			report.Fuel = append(report.Fuel, models.FuelEntry{ID: v.ID, Name: name, Fuel: *v.FuelQuantity})
		}
	}

	sort.SliceStable(report.Overspeeds, func(i, j int) bool {
		return report.Overspeeds[i].Speed > report.Overspeeds[j].Speed
	})
	sort.SliceStable(report.Stopped, func(i, j int) bool {
		return report.Stopped[i].StopMinutes > report.Stopped[j].StopMinutes
	})

	s.Overspeeds = len(report.Overspeeds)
	s.Stopped = len(report.Stopped)
	return report
}
