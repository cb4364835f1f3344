package device

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Summary is the per-device record of the account's device listing.
type Summary struct {
	ID           string `json:"id"`
	Series       string `json:"series"`
	SerialNumber string `json:"serialNumber"`
	Name         string `json:"name"`
	Type         int    `json:"type"`
	HasError     bool   `json:"hasError"`
	Register     bool   `json:"register"`
}

// IsSoftliqSE reports whether the device belongs to the softliQ.SE
// series. SD and SE models share the wire schema but differ in which
// fields their firmware populates.
func (s Summary) IsSoftliqSE() bool {
	return strings.Contains(strings.ToLower(s.Series), "softliq.se")
}

// DeviceError is one entry of the device's error memory.
type DeviceError struct {
	IsResolved bool      `json:"isResolved"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	ErrorCode  int       `json:"errorCode"`
	Date       ErrorTime `json:"date"`
}

// DailyUsage is one day of the salt or water consumption series.
type DailyUsage struct {
	Value int  `json:"value"`
	Date  Date `json:"date"`
}

// Device is the aggregate state of one appliance: listing identity,
// slowly-changing detail fields, consumption history, the parameter
// record and live telemetry. Parameters and Realtime are filled from
// their own endpoints, never from the base document.
type Device struct {
	Summary

	// The next scheduled regeneration arrives naive; the device's UTC
	// offset arrives separately and both resolve in finalize.
	RawNextRegeneration *Timestamp `json:"nextRegeneration,omitempty"`
	TimeZone            *Zone      `json:"timeZone,omitempty"`

	Startup     *Date `json:"startup,omitempty"`
	LastService *Date `json:"lastService,omitempty"`

	Errors []DeviceError `json:"errors,omitempty"`
	Salt   []DailyUsage  `json:"salt,omitempty"`
	Water  []DailyUsage  `json:"water,omitempty"`

	HardwareVersion *string  `json:"hardwareVersion,omitempty"`
	SoftwareVersion *string  `json:"softwareVersion,omitempty"`
	Mode            *int     `json:"mode,omitempty"`
	NominalFlow     *float64 `json:"nominalFlow,omitempty"`
	RawWater        *float64 `json:"rawWater,omitempty"`
	SoftWater       *float64 `json:"softWater,omitempty"`
	Unit            *int     `json:"unit,omitempty"`

	Parameters *Parameters  `json:"-"`
	Realtime   RealtimeInfo `json:"-"`

	nextRegeneration time.Time
}

// ParseSummaries parses the device listing.
func ParseSummaries(data []byte) ([]Summary, error) {
	var summaries []Summary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("parse device listing: %w", err)
	}
	return summaries, nil
}

// ParseDevice parses a full device document.
func ParseDevice(data []byte) (*Device, error) {
	var d Device
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse device document: %w", err)
	}
	d.finalize()
	return &d, nil
}

// NewDevice builds a device aggregate from a listing record.
func NewDevice(summary Summary) *Device {
	return &Device{Summary: summary}
}

// UpdateFromInfo folds a base detail document into the device. Fields
// absent from the document keep their previous values. Pointer and slice
// fields are decoded into fresh allocations and swapped in, so copies of
// the device taken before the update keep the values they were copied
// with.
func (d *Device) UpdateFromInfo(data []byte) error {
	in := Device{Summary: d.Summary}
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parse device document: %w", err)
	}

	if in.RawNextRegeneration == nil {
		in.RawNextRegeneration = d.RawNextRegeneration
	}
	if in.TimeZone == nil {
		in.TimeZone = d.TimeZone
	}
	if in.Startup == nil {
		in.Startup = d.Startup
	}
	if in.LastService == nil {
		in.LastService = d.LastService
	}
	if in.Errors == nil {
		in.Errors = d.Errors
	}
	if in.Salt == nil {
		in.Salt = d.Salt
	}
	if in.Water == nil {
		in.Water = d.Water
	}
	if in.HardwareVersion == nil {
		in.HardwareVersion = d.HardwareVersion
	}
	if in.SoftwareVersion == nil {
		in.SoftwareVersion = d.SoftwareVersion
	}
	if in.Mode == nil {
		in.Mode = d.Mode
	}
	if in.NominalFlow == nil {
		in.NominalFlow = d.NominalFlow
	}
	if in.RawWater == nil {
		in.RawWater = d.RawWater
	}
	if in.SoftWater == nil {
		in.SoftWater = d.SoftWater
	}
	if in.Unit == nil {
		in.Unit = d.Unit
	}
	in.Parameters = d.Parameters
	in.Realtime = d.Realtime

	in.finalize()
	*d = in
	return nil
}

// finalize resolves cross-field state after a parse: the naive
// next-regeneration timestamp is attached to the device's zone. Runs
// after every document fold, never during field decode.
func (d *Device) finalize() {
	if d.RawNextRegeneration == nil || d.RawNextRegeneration.IsZero() {
		d.nextRegeneration = time.Time{}
		return
	}
	d.nextRegeneration = d.RawNextRegeneration.In(d.TimeZone.Location())
}

// NextRegeneration returns the next scheduled regeneration in the
// device's zone. The second return is false when the cloud has not
// announced one.
func (d *Device) NextRegeneration() (time.Time, bool) {
	if d.nextRegeneration.IsZero() {
		return time.Time{}, false
	}
	return d.nextRegeneration, true
}

// String identifies the device for logs and CLI output.
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s, serial %s)", d.Name, d.Series, d.SerialNumber)
}
