package device

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire layouts for the date and time shapes the cloud uses.
const (
	clockLayout     = "15:04"
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"
	errorTimeLayout = "2006-01-02T15:04:05.000000"
)

// clockUnset is the firmware's sentinel for an empty schedule slot.
const clockUnset = "--:--"

// Clock is a wall-clock time of day without a date. The zero value is
// unset, which the firmware writes as "--:--".
type Clock struct {
	hour   int
	minute int
	set    bool
}

// NewClock builds a set clock. Values are taken modulo a day.
func NewClock(hour, minute int) Clock {
	return Clock{hour: hour % 24, minute: minute % 60, set: true}
}

// ParseClock parses "HH:MM". The "--:--" sentinel parses to the unset
// zero value, not an error.
func ParseClock(s string) (Clock, error) {
	if s == clockUnset {
		return Clock{}, nil
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return Clock{hour: t.Hour(), minute: t.Minute(), set: true}, nil
}

// Hour returns the hour component.
func (c Clock) Hour() int { return c.hour }

// Minute returns the minute component.
func (c Clock) Minute() int { return c.minute }

// IsSet reports whether the clock holds a value.
func (c Clock) IsSet() bool { return c.set }

// String formats the clock the way the firmware does, including the
// "--:--" sentinel for the unset value.
func (c Clock) String() string {
	if !c.set {
		return clockUnset
	}
	return fmt.Sprintf("%02d:%02d", c.hour, c.minute)
}

// MarshalJSON writes "HH:MM", or null for the unset value. The cloud's
// PATCH endpoint clears a schedule slot with null.
func (c Clock) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON reads "HH:MM", "--:--" or null.
func (c *Clock) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Clock{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid clock value: %w", err)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Date is a calendar date without a time of day ("YYYY-MM-DD" on the wire).
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date value %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight of the date in loc. A nil loc means UTC.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON writes "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads "YYYY-MM-DD" or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid date value: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp is a naive wall-clock timestamp ("YYYY-MM-DDTHH:MM:SS" with
// no zone on the wire). The device's zone arrives in a separate field and
// is attached later with In.
type Timestamp struct {
	wall time.Time
}

// ParseTimestamp parses the naive wire layout.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp value %q: %w", s, err)
	}
	return Timestamp{wall: t}, nil
}

// In resolves the naive timestamp against loc, keeping the wall-clock
// reading. A nil loc means UTC.
func (t Timestamp) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	w := t.wall
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, loc)
}

// IsZero reports whether the timestamp is the zero value.
func (t Timestamp) IsZero() bool {
	return t.wall.IsZero()
}

// String formats the timestamp in its naive wire layout.
func (t Timestamp) String() string {
	return t.wall.Format(timestampLayout)
}

// MarshalJSON writes the naive wire layout.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads the naive wire layout or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid timestamp value: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ErrorTime is the timestamp layout of device error records, microsecond
// precision with no zone marker. The cloud reports these in UTC.
type ErrorTime struct {
	time.Time
}

// MarshalJSON writes the microsecond wire layout.
func (t ErrorTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(errorTimeLayout))
}

// UnmarshalJSON reads the microsecond wire layout as UTC.
func (t *ErrorTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ErrorTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid error timestamp: %w", err)
	}
	parsed, err := time.ParseInLocation(errorTimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid error timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Zone is the device's UTC offset as the cloud reports it ("+02:00",
// "+0200" and "Z" have all been observed).
type Zone struct {
	name   string
	offset int
}

var zoneLayouts = []string{"-07:00", "-0700", "Z07:00", "Z0700"}

// ParseZone parses a UTC offset string.
func ParseZone(s string) (Zone, error) {
	for _, layout := range zoneLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		_, offset := t.Zone()
		return Zone{name: s, offset: offset}, nil
	}
	return Zone{}, fmt.Errorf("invalid UTC offset %q", s)
}

// Location returns a fixed-offset location. A nil Zone means UTC, so the
// resolved next-regeneration time is always usable.
func (z *Zone) Location() *time.Location {
	if z == nil {
		return time.UTC
	}
	return time.FixedZone(z.name, z.offset)
}

// Offset returns the offset east of UTC in seconds.
func (z Zone) Offset() int { return z.offset }

// String returns the offset as it arrived on the wire.
func (z Zone) String() string { return z.name }

// MarshalJSON writes the offset as it arrived on the wire.
func (z Zone) MarshalJSON() ([]byte, error) {
	return json.Marshal(z.name)
}

// UnmarshalJSON reads a UTC offset string or null.
func (z *Zone) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*z = Zone{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid time zone value: %w", err)
	}
	parsed, err := ParseZone(s)
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}
