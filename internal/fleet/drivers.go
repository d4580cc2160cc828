package fleet

import (
	"strings"

	"github.com/ukydev/fleet-tracking/internal/gpswox"
	"github.com/ukydev/fleet-tracking/internal/models"
)

// DriverFromRaw converts a provider driver record.
func DriverFromRaw(d gpswox.RawDriver) models.DriverSummary {
	return models.DriverSummary{
		ID:       strings.TrimSpace(d.ID.String()),
		Name:     strings.TrimSpace(d.Name.String()),
		Email:    d.Email.String(),
		Phone:    d.Phone.String(),
		DeviceID: strings.TrimSpace(d.DeviceID.String()),
	}
}

// DriversFromRaw converts a provider driver list, dropping empty records.
func DriversFromRaw(raws []gpswox.RawDriver) []models.DriverSummary {
	out := make([]models.DriverSummary, 0, len(raws))
	for i := range raws {
		if raws[i].IsZero() {
			continue
		}
		out = append(out, DriverFromRaw(raws[i]))
	}
	return out
}

// SynthesizeDrivers derives a driver list from the drivers embedded in
// devices, deduplicated by id, or by lowercased name for records without
// one. The first device carrying a driver sets its device id.
func SynthesizeDrivers(devices []gpswox.RawDevice) []models.DriverSummary {
	seen := make(map[string]bool)
	out := make([]models.DriverSummary, 0)
	for i := range devices {
		embedded := devices[i].EmbeddedDriver()
		if embedded == nil {
			continue
		}
		d := DriverFromRaw(*embedded)
		if d.ID == "" {
			d.ID = strings.TrimSpace(devices[i].CurrentDriverID.String())
		}
		key := d.ID
		if key == "" {
			key = "name:" + strings.ToLower(d.Name)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		if d.DeviceID == "" {
			d.DeviceID = devices[i].ID.String()
		}
		out = append(out, d)
	}
	return out
}

// Correlator resolves the driver of a device from a driver list.
type Correlator struct {
	byDevice map[string]models.DriverSummary
	byID     map[string]models.DriverSummary
}

// NewCorrelator indexes drivers by device id and by driver id. The first
// driver claiming a key keeps it.
func NewCorrelator(drivers []models.DriverSummary) *Correlator {
	c := &Correlator{
		byDevice: make(map[string]models.DriverSummary, len(drivers)),
		byID:     make(map[string]models.DriverSummary, len(drivers)),
	}
	for _, d := range drivers {
		if d.DeviceID != "" {
			if _, ok := c.byDevice[d.DeviceID]; !ok {
				c.byDevice[d.DeviceID] = d
			}
		}
		if d.ID != "" {
			if _, ok := c.byID[d.ID]; !ok {
				c.byID[d.ID] = d
			}
		}
	}
	return c
}

// Resolve returns the driver display name and id for a device, trying the
// embedded driver, then the device id index, then current_driver_id.
// An embedded driver without a name falls through to the indexes.
func (c *Correlator) Resolve(raw *gpswox.RawDevice) (name *string, id string) {
	embedded := raw.EmbeddedDriver()
	if embedded != nil {
		if n := strings.TrimSpace(embedded.Name.String()); n != "" {
			return &n, strings.TrimSpace(embedded.ID.String())
		}
	}

	if d, ok := c.byDevice[raw.ID.String()]; ok && d.Name != "" {
		n := d.Name
		return &n, d.ID
	}

	driverID := strings.TrimSpace(raw.CurrentDriverID.String())
	if driverID == "" && embedded != nil {
		driverID = strings.TrimSpace(embedded.ID.String())
	}
	if d, ok := c.byID[driverID]; ok && driverID != "" && d.Name != "" {
		n := d.Name
		return &n, d.ID
	}
	return nil, driverID
}

// NormalizeAll normalizes every device and attaches its driver.
func NormalizeAll(devices []gpswox.RawDevice, c *Correlator) []models.Vehicle {
	out := make([]models.Vehicle, 0, len(devices))
	for i := range devices {
		v := Normalize(&devices[i])
		v.Driver, v.DriverID = c.Resolve(&devices[i])
		out = append(out, v)
	}
	return out
}
