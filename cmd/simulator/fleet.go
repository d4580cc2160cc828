package main

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ukydev/fleet-tracking/internal/fleet"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Cities for realistic starting points
var cities = []Location{
	{Lat: 48.8566, Lon: 2.3522},   // Paris
	{Lat: 45.7640, Lon: 4.8357},   // Lyon
	{Lat: 43.2965, Lon: 5.3698},   // Marseille
	{Lat: 50.8503, Lon: 4.3517},   // Brussels
	{Lat: 14.6928, Lon: -17.4467}, // Dakar
	{Lat: 5.3600, Lon: -4.0083},   // Abidjan
	{Lat: 33.5731, Lon: -7.5898},  // Casablanca
	{Lat: 36.8065, Lon: 10.1815},  // Tunis
	{Lat: 51.5074, Lon: -0.1278},  // London
	{Lat: 40.4168, Lon: -3.7038},  // Madrid
}

var (
	plates = []string{"AB-123-CD", "EF-456-GH", "IJ-789-KL", "MN-012-OP", "QR-345-ST", "UV-678-WX"}
	makes  = []string{"Renault Master", "Peugeot Boxer", "Iveco Daily", "Mercedes Sprinter", "Ford Transit", "Toyota Hilux"}
	names  = []string{"Awa Diop", "Jean Martin", "Fatou Sow", "Pierre Durand", "Moussa Ba", "Claire Petit"}
)

// VehicleRoute is a polyline a vehicle follows.
type VehicleRoute struct {
	Points    []Location
	SegIndex  int
	SegOffset float64 // km along current segment
}

// VehicleState is one simulated tracker.
type VehicleState struct {
	ID           int
	Plate        string
	Model        string
	Position     Location
	Course       float64
	SpeedKmh     float64
	FuelLitres   float64
	TankLitres   float64
	BatteryPct   float64
	OdometerKm   float64
	Online       bool
	Parked       bool
	Legacy       bool // served in the older device_data shape
	DriverID     int
	Route        *VehicleRoute
	LastUpdate   time.Time
	History      []HistoryPoint
	maxHistory   int
	distanceDay  float64
	distanceDate string
}

// Driver is a simulated driver assigned to a vehicle.
type Driver struct {
	ID       int
	Name     string
	Phone    string
	Email    string
	DeviceID int
}

// HistoryPoint is one recorded position.
type HistoryPoint struct {
	Time     time.Time
	Position Location
	Speed    float64
	Distance float64
	Fuel     float64
}

// Fleet holds the simulated vehicles. All methods are safe for concurrent use.
type Fleet struct {
	mu       sync.RWMutex
	rnd      *rand.Rand
	vehicles []*VehicleState
	drivers  []Driver
	now      func() time.Time
}

// NewFleet creates size vehicles around the known cities. One in five is
// offline, one in four parked, and every third vehicle uses the legacy shape.
func NewFleet(size int, seed int64, maxHistory int, now func() time.Time) *Fleet {
	if now == nil {
		now = time.Now
	}
	f := &Fleet{rnd: rand.New(rand.NewSource(seed)), now: now}
	start := now()
	for i := 0; i < size; i++ {
		id := i + 1
		s := &VehicleState{
			ID:         id,
			Plate:      fmt.Sprintf("%s-%d", plates[i%len(plates)], id),
			Model:      makes[f.rnd.Intn(len(makes))],
			Position:   jitterLocation(f.rnd, cities[i%len(cities)], 500),
			SpeedKmh:   30 + f.rnd.Float64()*50,
			TankLitres: 80,
			FuelLitres: 40 + f.rnd.Float64()*40,
			BatteryPct: 60 + f.rnd.Float64()*40,
			OdometerKm: 10000 + f.rnd.Float64()*90000,
			Online:     i%5 != 4,
			Parked:     i%4 == 3,
			Legacy:     i%3 == 2,
			LastUpdate: start,
			maxHistory: maxHistory,
		}
		if s.Parked || !s.Online {
			s.SpeedKmh = 0
		}
		if i%6 != 5 {
			d := Driver{
				ID:       100 + id,
				Name:     names[i%len(names)],
				Phone:    fmt.Sprintf("+33 6 00 00 %02d %02d", id/100, id%100),
				Email:    fmt.Sprintf("driver%d@fleet.example", id),
				DeviceID: id,
			}
			s.DriverID = d.ID
			f.drivers = append(f.drivers, d)
		}
		f.vehicles = append(f.vehicles, s)
	}
	return f
}

func jitterLocation(rnd *rand.Rand, base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rnd.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rnd.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

func distanceKm(a, b Location) float64 {
	return fleet.HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

func bearing(a, b Location) float64 {
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
}

// planNewRoute builds a wandering polyline of a few kilometres from the
// current position.
func (f *Fleet) planNewRoute(s *VehicleState) {
	pts := []Location{s.Position}
	cur := s.Position
	for i := 0; i < 8; i++ {
		cur = jitterLocation(f.rnd, cur, 1500)
		pts = append(pts, cur)
	}
	s.Route = &VehicleRoute{Points: pts}
}

// stepAlongRoute moves the vehicle and returns the distance covered in km.
func (f *Fleet) stepAlongRoute(s *VehicleState, tickSec float64) float64 {
	if s.Route == nil || len(s.Route.Points) < 2 {
		f.planNewRoute(s)
	}
	remKm := s.SpeedKmh * (tickSec / 3600.0)
	covered := 0.0
	for remKm > 0 && s.Route.SegIndex < len(s.Route.Points)-1 {
		a := s.Route.Points[s.Route.SegIndex]
		b := s.Route.Points[s.Route.SegIndex+1]
		s.Course = bearing(a, b)
		segLen := distanceKm(a, b)
		leftOnSeg := segLen - s.Route.SegOffset
		if remKm >= leftOnSeg {
			s.Position = b
			s.Route.SegIndex++
			s.Route.SegOffset = 0
			remKm -= leftOnSeg
			covered += leftOnSeg
			continue
		}
		t := (s.Route.SegOffset + remKm) / segLen
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		s.Position = lerp(a, b, t)
		s.Route.SegOffset += remKm
		covered += remKm
		remKm = 0
	}
	if s.Route.SegIndex >= len(s.Route.Points)-1 {
		f.planNewRoute(s)
	}
	return covered
}

// Tick advances every online, non-parked vehicle by dt.
func (f *Fleet) Tick(dt time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	for _, s := range f.vehicles {
		if !s.Online {
			continue
		}
		if s.Parked {
			s.recordHistory(now, 0)
			continue
		}

		// speed noise, occasionally above the limit
		s.SpeedKmh += (f.rnd.Float64()*2 - 1) * 8
		if s.SpeedKmh < 15 {
			s.SpeedKmh = 15
		}
		if s.SpeedKmh > 135 {
			s.SpeedKmh = 135
		}

		km := f.stepAlongRoute(s, dt.Seconds())
		s.OdometerKm += km
		s.FuelLitres -= km * 0.12
		if s.FuelLitres < 5 {
			s.FuelLitres = s.TankLitres
		}
		s.BatteryPct -= 0.05
		if s.BatteryPct < 20 {
			s.BatteryPct = 100
		}
		s.LastUpdate = now
		s.recordHistory(now, km)
	}
}

func (s *VehicleState) recordHistory(now time.Time, km float64) {
	day := now.Format("2006-01-02")
	if day != s.distanceDate {
		s.distanceDate = day
		s.distanceDay = 0
	}
	s.distanceDay += km

	s.History = append(s.History, HistoryPoint{
		Time:     now,
		Position: s.Position,
		Speed:    s.SpeedKmh,
		Distance: km,
		Fuel:     s.FuelLitres,
	})
	if s.maxHistory > 0 && len(s.History) > s.maxHistory {
		s.History = s.History[len(s.History)-s.maxHistory:]
	}
}

// Vehicles returns copies of the current vehicle states.
func (f *Fleet) Vehicles() []VehicleState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]VehicleState, 0, len(f.vehicles))
	for _, s := range f.vehicles {
		c := *s
		c.History = nil
		c.Route = nil
		out = append(out, c)
	}
	return out
}

// Drivers returns the driver list.
func (f *Fleet) Drivers() []Driver {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Driver(nil), f.drivers...)
}

// Driver looks a driver up by id.
func (f *Fleet) Driver(id int) (Driver, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, d := range f.drivers {
		if d.ID == id {
			return d, true
		}
	}
	return Driver{}, false
}

// History returns the recorded points of a vehicle within [from, to].
func (f *Fleet) History(id int, from, to time.Time) ([]HistoryPoint, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.vehicles {
		if s.ID != id {
			continue
		}
		out := []HistoryPoint{}
		for _, p := range s.History {
			if !p.Time.Before(from) && !p.Time.After(to) {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
