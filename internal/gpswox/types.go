package gpswox

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RawSensor is one entry of a device's sensor array. Val is kept raw because
// providers send numbers, numeric strings, booleans or null.
type RawSensor struct {
	ID    FlexString      `json:"id"`
	Type  FlexString      `json:"type"`
	Name  FlexString      `json:"name"`
	Val   json.RawMessage `json:"val"`
	Value json.RawMessage `json:"value"`
}

// Number coerces Val to a number. Null, missing, boolean and non-numeric
// values are not numbers.
func (s RawSensor) Number() (float64, bool) {
	return parseNumber(s.Val)
}

// DecodedVal returns Val as a generic JSON value for pass-through.
func (s RawSensor) DecodedVal() any {
	return decodeAny(s.Val)
}

// DecodedValue returns the formatted value for pass-through.
func (s RawSensor) DecodedValue() any {
	return decodeAny(s.Value)
}

func decodeAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// RawDriver is a driver record as served by any of the driver endpoints or
// embedded in a device.
type RawDriver struct {
	ID       FlexString `json:"id"`
	Name     FlexString `json:"name"`
	Email    FlexString `json:"email"`
	Phone    FlexString `json:"phone"`
	DeviceID FlexString `json:"device_id"`
}

type rawDriverAlias RawDriver

// UnmarshalJSON accepts an object, or a bare string taken as the name.
func (d *RawDriver) UnmarshalJSON(b []byte) error {
	*d = RawDriver{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '{':
		var alias rawDriverAlias
		if err := json.Unmarshal(b, &alias); err != nil {
			return nil
		}
		*d = RawDriver(alias)
	case '"':
		var name string
		if err := json.Unmarshal(b, &name); err == nil {
			d.Name = FlexString(name)
		}
	}
	return nil
}

// IsZero reports whether the record carries neither an id nor a name.
func (d *RawDriver) IsZero() bool {
	return d == nil || (strings.TrimSpace(string(d.ID)) == "" && strings.TrimSpace(string(d.Name)) == "")
}

// LegacyDeviceData is the older nested device shape where every numeric
// field arrives as a string.
type LegacyDeviceData struct {
	Lat          FlexFloat  `json:"lat"`
	Lng          FlexFloat  `json:"lng"`
	Speed        FlexFloat  `json:"speed"`
	Course       FlexFloat  `json:"course"`
	Altitude     FlexFloat  `json:"altitude"`
	Time         FlexString `json:"time"`
	Timestamp    FlexFloat  `json:"timestamp"`
	PlateNumber  FlexString `json:"plate_number"`
	DeviceModel  FlexString `json:"device_model"`
	FuelQuantity FlexFloat  `json:"fuel_quantity"`
}

type legacyAlias LegacyDeviceData

func (l *LegacyDeviceData) UnmarshalJSON(b []byte) error {
	*l = LegacyDeviceData{}
	var alias legacyAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return nil
	}
	*l = LegacyDeviceData(alias)
	return nil
}

// RawDevice is a device record in either the current (flat) or legacy
// (device_data) shape.
type RawDevice struct {
	ID              FlexString        `json:"id"`
	Name            FlexString        `json:"name"`
	Online          FlexString        `json:"online"`
	Lat             FlexFloat         `json:"lat"`
	Lng             FlexFloat         `json:"lng"`
	Speed           FlexFloat         `json:"speed"`
	Course          FlexFloat         `json:"course"`
	Altitude        FlexFloat         `json:"altitude"`
	Time            FlexString        `json:"time"`
	Timestamp       FlexFloat         `json:"timestamp"`
	TotalDistance   FlexFloat         `json:"total_distance"`
	FuelQuantity    FlexFloat         `json:"fuel_quantity"`
	DistanceToday   FlexFloat         `json:"distance_today"`
	DistanceWeek    FlexFloat         `json:"distance_week"`
	DistanceMonth   FlexFloat         `json:"distance_month"`
	Sensors         []RawSensor       `json:"sensors"`
	CurrentDriver   *RawDriver        `json:"current_driver"`
	DriverData      *RawDriver        `json:"driver_data"`
	CurrentDriverID FlexString        `json:"current_driver_id"`
	DeviceData      *LegacyDeviceData `json:"device_data"`
}

type rawDeviceAlias RawDevice

// UnmarshalJSON tolerates a non-array sensors field.
func (d *RawDevice) UnmarshalJSON(b []byte) error {
	var alias rawDeviceAlias
	if err := json.Unmarshal(b, &alias); err == nil {
		*d = RawDevice(alias)
		return nil
	}
	var loose struct {
		rawDeviceAlias
		Sensors json.RawMessage `json:"sensors"`
	}
	if err := json.Unmarshal(b, &loose); err != nil {
		return err
	}
	*d = RawDevice(loose.rawDeviceAlias)
	d.Sensors = nil
	return nil
}

// EmbeddedDriver returns the driver object carried by the device itself,
// current shape first, then legacy.
func (d *RawDevice) EmbeddedDriver() *RawDriver {
	if !d.CurrentDriver.IsZero() {
		return d.CurrentDriver
	}
	if !d.DriverData.IsZero() {
		return d.DriverData
	}
	return nil
}

// HistorySample is one historical position as returned by the history
// endpoints.
type HistorySample struct {
	ID        FlexString  `json:"id"`
	Time      FlexString  `json:"time"`
	RawTime   FlexString  `json:"raw_time"`
	Timestamp FlexFloat   `json:"timestamp"`
	Lat       FlexFloat   `json:"lat"`
	Lng       FlexFloat   `json:"lng"`
	Speed     FlexFloat   `json:"speed"`
	Distance  FlexFloat   `json:"distance"`
	Fuel      FlexFloat   `json:"fuel"`
	Sensors   []RawSensor `json:"sensors"`
}
