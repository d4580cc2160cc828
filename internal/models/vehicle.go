package models

// VehicleStatus is the fleet-level status derived from the provider's online flag.
type VehicleStatus string

const (
	StatusActive      VehicleStatus = "active"
	StatusInactive    VehicleStatus = "inactive"
	StatusMaintenance VehicleStatus = "maintenance"
)

// Provider online states.
const (
	OnlineOnline  = "online"
	OnlineOffline = "offline"
	OnlineAck     = "ack"
)

// Position is the last known fix of a device.
type Position struct {
	Lat       float64 `json:"lat" bson:"lat"`
	Lng       float64 `json:"lng" bson:"lng"`
	Speed     float64 `json:"speed" bson:"speed"`
	Course    float64 `json:"course" bson:"course"`
	Altitude  float64 `json:"altitude" bson:"altitude"`
	Timestamp string  `json:"timestamp" bson:"timestamp"`
}

// Sensor is a sensor entry passed through from the provider untouched.
type Sensor struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Val   any    `json:"val"`
	Value any    `json:"value,omitempty"`
}

// Vehicle is the normalized view of a tracked device.
type Vehicle struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Plate         string        `json:"plate"`
	Model         string        `json:"model"`
	Status        VehicleStatus `json:"status"`
	LastPosition  *Position     `json:"lastPosition"`
	SpeedKmh      float64       `json:"speed"`
	Mileage       *float64      `json:"mileage"`
	FuelQuantity  *float64      `json:"fuelQuantity"`
	Driver        *string       `json:"driver"`
	DriverID      string        `json:"driverId,omitempty"`
	Battery       *float64      `json:"battery"`
	Network       *float64      `json:"network"`
	Online        string        `json:"online"`
	LastUpdate    int64         `json:"lastUpdate"` // unix seconds, 0 when unknown
	DistanceToday *float64      `json:"distanceToday"`
	DistanceWeek  *float64      `json:"distanceWeek"`
	DistanceMonth *float64      `json:"distanceMonth"`
	Sensors       []Sensor      `json:"sensors"`
}

// Speed returns the last reported speed. Devices without a fix still report
// one.
func (v *Vehicle) Speed() float64 {
	return v.SpeedKmh
}

// DisplayName is the provider device name, falling back to the plate.
func (v *Vehicle) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.Plate
}

// DriverSummary is a driver record as returned to API clients.
type DriverSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	DeviceID string `json:"deviceId,omitempty"`
}
