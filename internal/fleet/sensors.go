package fleet

import (
	"strings"

	"github.com/ukydev/fleet-tracking/internal/gpswox"
)

// SensorReadings holds the first usable value found per category.
type SensorReadings struct {
	Battery  *float64
	Network  *float64
	Odometer *float64
	Fuel     *float64
}

var fuelTypes = map[string]bool{
	"fuel":                  true,
	"fuel_tank":             true,
	"fuel_tank_calibration": true,
}

var fuelNameHints = []string{"fuel", "carburant", "tank", "réservoir"}

// ScanSensors walks the sensor array once. Entries whose value is null,
// boolean or not numeric are skipped. A sensor is classified by exact type
// first, and by a fuel-like name when its type is not one we know.
func ScanSensors(sensors []gpswox.RawSensor) SensorReadings {
	var r SensorReadings
	for _, s := range sensors {
		v, ok := s.Number()
		if !ok {
			continue
		}
		typ := strings.ToLower(strings.TrimSpace(s.Type.String()))
		switch {
		case typ == "battery":
			setOnce(&r.Battery, v)
		case typ == "gsm":
			setOnce(&r.Network, v)
		case typ == "odometer":
			setOnce(&r.Odometer, v)
		case fuelTypes[typ]:
			setOnce(&r.Fuel, v)
		case isFuelName(s.Name.String()):
			setOnce(&r.Fuel, v)
		}
	}
	return r
}

func isFuelName(name string) bool {
	n := strings.ToLower(name)
	for _, hint := range fuelNameHints {
		if strings.Contains(n, hint) {
			return true
		}
	}
	return false
}

func setOnce(dst **float64, v float64) {
	if *dst == nil {
		*dst = &v
	}
}
