package main

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const providerTimeLayout = "2006-01-02 15:04:05"

// Provider serves the simulated fleet in the GPS provider's wire format.
type Provider struct {
	fleet    *Fleet
	email    string
	password string
	logger   log.FieldLogger

	mu     sync.Mutex
	hashes map[string]time.Time
}

// NewProvider creates a mock provider accepting one account.
func NewProvider(f *Fleet, email, password string, logger log.FieldLogger) *Provider {
	return &Provider{
		fleet:    f,
		email:    email,
		password: password,
		logger:   logger,
		hashes:   make(map[string]time.Time),
	}
}

// Router registers the provider endpoints under /api.
func (p *Provider) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", p.login).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/get_devices", p.requireHash(p.devices)).Methods(http.MethodGet)
	api.HandleFunc("/get_user_drivers", p.requireHash(p.drivers)).Methods(http.MethodGet)
	api.HandleFunc("/get_history", p.requireHash(p.history)).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (p *Provider) login(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")
	if email != p.email || password != p.password {
		p.logger.WithField("email", email).Warn("Rejected login")
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": 0, "message": "Wrong email or password"})
		return
	}

	hash := uuid.NewString()
	p.mu.Lock()
	p.hashes[hash] = time.Now()
	p.mu.Unlock()

	p.logger.WithField("email", email).Info("Issued api hash")
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": 1, "user_api_hash": hash})
}

// Revoke invalidates every issued hash, as the real provider does when a
// session expires.
func (p *Provider) Revoke() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hashes = make(map[string]time.Time)
}

func (p *Provider) requireHash(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := r.URL.Query().Get("user_api_hash")
		p.mu.Lock()
		_, ok := p.hashes[hash]
		p.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"status": 0, "message": "Unauthenticated."})
			return
		}
		next(w, r)
	}
}

func (p *Provider) devices(w http.ResponseWriter, r *http.Request) {
	vehicles := p.fleet.Vehicles()
	items := make([]map[string]interface{}, 0, len(vehicles))
	for i := range vehicles {
		items = append(items, p.deviceJSON(&vehicles[i]))
	}
	// the provider groups devices; split into two groups to mirror that
	half := len(items) / 2
	writeJSON(w, http.StatusOK, []map[string]interface{}{
		{"id": 0, "title": "Ungrouped", "items": items[:half]},
		{"id": 1, "title": "Fleet", "items": items[half:]},
	})
}

func onlineStatus(s *VehicleState) string {
	switch {
	case !s.Online:
		return "offline"
	case s.Parked:
		return "ack"
	default:
		return "online"
	}
}

func (p *Provider) deviceJSON(s *VehicleState) map[string]interface{} {
	sensors := []map[string]interface{}{
		{"id": s.ID*10 + 1, "type": "battery", "name": "Battery", "val": round(s.BatteryPct, 1), "value": strconv.Itoa(int(s.BatteryPct)) + " %"},
		{"id": s.ID*10 + 2, "type": "gsm", "name": "GSM", "val": 4, "value": "80 %"},
		{"id": s.ID*10 + 3, "type": "ignition", "name": "Ignition", "val": !s.Parked && s.Online, "value": "On"},
		{"id": s.ID*10 + 4, "type": "numerical", "name": "Réservoir", "val": strconv.FormatFloat(round(s.FuelLitres, 1), 'f', 1, 64), "value": "L"},
	}

	d := map[string]interface{}{
		"id":             s.ID,
		"name":           s.Plate,
		"online":         onlineStatus(s),
		"time":           s.LastUpdate.Format(providerTimeLayout),
		"timestamp":      s.LastUpdate.Unix(),
		"distance_today": round(s.distanceDay, 2),
		"sensors":        sensors,
	}
	if s.Legacy {
		d["device_data"] = map[string]interface{}{
			"lat":           strconv.FormatFloat(s.Position.Lat, 'f', 6, 64),
			"lng":           strconv.FormatFloat(s.Position.Lon, 'f', 6, 64),
			"speed":         strconv.FormatFloat(round(s.SpeedKmh, 1), 'f', 1, 64),
			"course":        strconv.FormatFloat(round(s.Course, 0), 'f', 0, 64),
			"plate_number":  s.Plate,
			"device_model":  s.Model,
			"fuel_quantity": strconv.FormatFloat(round(s.FuelLitres, 1), 'f', 1, 64),
		}
		sensors = append(sensors, map[string]interface{}{"id": s.ID*10 + 5, "type": "odometer", "name": "Odometer", "val": round(s.OdometerKm, 1)})
		d["sensors"] = sensors
	} else {
		d["lat"] = s.Position.Lat
		d["lng"] = s.Position.Lon
		d["speed"] = round(s.SpeedKmh, 1)
		d["course"] = round(s.Course, 0)
		d["total_distance"] = round(s.OdometerKm, 1)
		d["fuel_quantity"] = round(s.FuelLitres, 1)
	}

	if s.DriverID != 0 {
		d["current_driver_id"] = s.DriverID
		// only some devices embed the driver object
		if s.ID%2 == 0 {
			if drv, ok := p.fleet.Driver(s.DriverID); ok {
				d["driver_data"] = map[string]interface{}{"id": drv.ID, "name": drv.Name, "phone": drv.Phone}
			}
		}
	}
	return d
}

func (p *Provider) drivers(w http.ResponseWriter, r *http.Request) {
	drivers := p.fleet.Drivers()
	items := make([]map[string]interface{}, 0, len(drivers))
	for _, d := range drivers {
		items = append(items, map[string]interface{}{
			"id":        d.ID,
			"name":      d.Name,
			"phone":     d.Phone,
			"email":     d.Email,
			"device_id": d.DeviceID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": 1, "items": items})
}

func (p *Provider) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.Atoi(q.Get("device_id"))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": 0, "message": "device_id is required"})
		return
	}
	from, to, ok := historyRange(q.Get("from_date"), q.Get("from_time"), q.Get("to_date"), q.Get("to_time"))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": 0, "message": "invalid date range"})
		return
	}

	points, found := p.fleet.History(id, from, to)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"status": 404, "message": "device not found"})
		return
	}

	positions := make([]map[string]interface{}, 0, len(points))
	for _, pt := range points {
		positions = append(positions, map[string]interface{}{
			"time":     pt.Time.Format(providerTimeLayout),
			"lat":      pt.Position.Lat,
			"lng":      pt.Position.Lon,
			"speed":    round(pt.Speed, 1),
			"distance": round(pt.Distance, 3),
			"sensors": []map[string]interface{}{
				{"type": "fuel_tank", "name": "Fuel", "val": round(pt.Fuel, 2)},
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": 1,
		"items": []map[string]interface{}{
			{"status": 1, "items": positions},
		},
	})
}

func historyRange(fromDate, fromTime, toDate, toTime string) (time.Time, time.Time, bool) {
	if fromTime == "" {
		fromTime = "00:00:00"
	}
	if toTime == "" {
		toTime = "23:59:59"
	}
	from, err := time.ParseInLocation(providerTimeLayout, fromDate+" "+fromTime, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	to, err := time.ParseInLocation(providerTimeLayout, toDate+" "+toTime, time.Local)
	if err != nil || to.Before(from) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func round(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}
