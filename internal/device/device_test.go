package device

import (
	"testing"
	"time"
)

// Listing and detail fixtures mirror live cloud responses.
const deviceListing = `[
  {"type":18,"hasError":false,"id":"softliQ.D/6ZF9Z5KAA2","series":"softliQ.D","serialNumber":"6ZF9Z5KAA2","name":"softliQ:SD18","register":true},
  {"type":118,"hasError":true,"id":"softliQ.SE/BS11022077","series":"softliQ.SE","serialNumber":"BS11022077","name":"softliQ:SE","register":true}
]`

const deviceDocument = `{
  "type": 18,
  "hasError": false,
  "id": "softliQ.D/6ZF9Z5KAA2",
  "series": "softliQ.D",
  "serialNumber": "6ZF9Z5KAA2",
  "name": "softliQ:SD18",
  "register": true,
  "nextRegeneration": "2024-01-05T04:00:00",
  "timeZone": "+01:00",
  "startup": "2021-03-17",
  "lastService": "2023-07-01",
  "hardwareVersion": "00000004",
  "softwareVersion": "1.2112.0",
  "mode": 2,
  "nominalFlow": 2.0,
  "rawWater": 18.0,
  "softWater": 4.0,
  "unit": 1,
  "errors": [
    {"isResolved": true, "message": "Motorfault regeneration valve", "type": "warning", "errorCode": 410, "date": "2024-01-02T11:22:44.188126"}
  ],
  "salt": [
    {"value": 0, "date": "2024-01-01"},
    {"value": 1, "date": "2024-01-02"}
  ],
  "water": [
    {"value": 120, "date": "2024-01-01"},
    {"value": 154, "date": "2024-01-02"}
  ]
}`

func TestParseSummaries(t *testing.T) {
	summaries, err := ParseSummaries([]byte(deviceListing))
	if err != nil {
		t.Fatalf("ParseSummaries() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("ParseSummaries() returned %d devices, want 2", len(summaries))
	}

	sd := summaries[0]
	if sd.ID != "softliQ.D/6ZF9Z5KAA2" {
		t.Errorf("ID = %q, want softliQ.D/6ZF9Z5KAA2", sd.ID)
	}
	if sd.SerialNumber != "6ZF9Z5KAA2" {
		t.Errorf("SerialNumber = %q, want 6ZF9Z5KAA2", sd.SerialNumber)
	}
	if sd.Series != "softliQ.D" {
		t.Errorf("Series = %q, want softliQ.D", sd.Series)
	}
	if sd.Type != 18 {
		t.Errorf("Type = %d, want 18", sd.Type)
	}
	if sd.HasError {
		t.Error("HasError = true, want false")
	}
	if !sd.Register {
		t.Error("Register = false, want true")
	}

	se := summaries[1]
	if !se.HasError {
		t.Error("second device HasError = false, want true")
	}
	if se.Type != 118 {
		t.Errorf("second device Type = %d, want 118", se.Type)
	}
}

func TestIsSoftliqSE(t *testing.T) {
	tests := []struct {
		series string
		want   bool
	}{
		{"softliQ.D", false},
		{"softliQ.SE", true},
		{"softliq.se", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("series "+tt.series, func(t *testing.T) {
			s := Summary{Series: tt.series}
			if got := s.IsSoftliqSE(); got != tt.want {
				t.Errorf("IsSoftliqSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice([]byte(deviceDocument))
	if err != nil {
		t.Fatalf("ParseDevice() error = %v", err)
	}

	if d.SerialNumber != "6ZF9Z5KAA2" {
		t.Errorf("SerialNumber = %q, want 6ZF9Z5KAA2", d.SerialNumber)
	}
	if d.HardwareVersion == nil || *d.HardwareVersion != "00000004" {
		t.Errorf("HardwareVersion = %v, want 00000004", d.HardwareVersion)
	}
	if d.Startup == nil || d.Startup.String() != "2021-03-17" {
		t.Errorf("Startup = %v, want 2021-03-17", d.Startup)
	}

	next, ok := d.NextRegeneration()
	if !ok {
		t.Fatal("NextRegeneration() reported unset, want set")
	}
	if next.Hour() != 4 {
		t.Errorf("NextRegeneration() hour = %d, want 4 (device wall clock)", next.Hour())
	}
	_, offset := next.Zone()
	if offset != 3600 {
		t.Errorf("NextRegeneration() offset = %d, want 3600", offset)
	}

	if len(d.Errors) != 1 {
		t.Fatalf("Errors length = %d, want 1", len(d.Errors))
	}
	e := d.Errors[0]
	if !e.IsResolved || e.Type != "warning" || e.ErrorCode != 410 {
		t.Errorf("error entry = %+v, want resolved warning 410", e)
	}
	if e.Date.Location() != time.UTC {
		t.Errorf("error date zone = %v, want UTC", e.Date.Location())
	}

	if len(d.Salt) != 2 || len(d.Water) != 2 {
		t.Errorf("usage series lengths = %d/%d, want 2/2", len(d.Salt), len(d.Water))
	}
	if d.Water[1].Value != 154 || d.Water[1].Date.String() != "2024-01-02" {
		t.Errorf("water[1] = %+v, want 154 on 2024-01-02", d.Water[1])
	}
}

func TestNextRegenerationUnset(t *testing.T) {
	d := NewDevice(Summary{SerialNumber: "6ZF9Z5KAA2"})
	if _, ok := d.NextRegeneration(); ok {
		t.Error("NextRegeneration() on a fresh device should report unset")
	}
}

func TestUpdateFromInfo(t *testing.T) {
	d, err := ParseDevice([]byte(deviceDocument))
	if err != nil {
		t.Fatalf("ParseDevice() error = %v", err)
	}

	// A partial document: only the regeneration schedule moved.
	update := `{"id":"softliQ.D/6ZF9Z5KAA2","nextRegeneration":"2024-01-06T04:00:00"}`
	if err := d.UpdateFromInfo([]byte(update)); err != nil {
		t.Fatalf("UpdateFromInfo() error = %v", err)
	}

	next, ok := d.NextRegeneration()
	if !ok {
		t.Fatal("NextRegeneration() reported unset after update")
	}
	if next.Day() != 6 {
		t.Errorf("NextRegeneration() day = %d, want 6", next.Day())
	}
	_, offset := next.Zone()
	if offset != 3600 {
		t.Errorf("zone lost on partial update: offset = %d, want 3600", offset)
	}

	// Fields absent from the update keep their values.
	if d.HardwareVersion == nil || *d.HardwareVersion != "00000004" {
		t.Errorf("HardwareVersion = %v, want carried-over 00000004", d.HardwareVersion)
	}
	if len(d.Salt) != 2 {
		t.Errorf("Salt length = %d, want carried-over 2", len(d.Salt))
	}
}

func TestUpdateFromInfoKeepsSnapshots(t *testing.T) {
	d, err := ParseDevice([]byte(deviceDocument))
	if err != nil {
		t.Fatalf("ParseDevice() error = %v", err)
	}

	snapshot := *d

	update := `{"hardwareVersion":"00000005","mode":3,"errors":[]}`
	if err := d.UpdateFromInfo([]byte(update)); err != nil {
		t.Fatalf("UpdateFromInfo() error = %v", err)
	}

	if *d.HardwareVersion != "00000005" || *d.Mode != 3 {
		t.Errorf("device not updated: hw=%v mode=%v", *d.HardwareVersion, *d.Mode)
	}
	if len(d.Errors) != 0 {
		t.Errorf("Errors length = %d, want 0 after replacement", len(d.Errors))
	}

	// The copy taken before the update must be untouched.
	if *snapshot.HardwareVersion != "00000004" {
		t.Errorf("snapshot HardwareVersion mutated to %q", *snapshot.HardwareVersion)
	}
	if *snapshot.Mode != 2 {
		t.Errorf("snapshot Mode mutated to %d", *snapshot.Mode)
	}
	if len(snapshot.Errors) != 1 {
		t.Errorf("snapshot Errors length = %d, want 1", len(snapshot.Errors))
	}
}

func TestUpdateFromInfoMalformed(t *testing.T) {
	d := NewDevice(Summary{SerialNumber: "6ZF9Z5KAA2", Name: "softliQ:SD18"})
	if err := d.UpdateFromInfo([]byte(`{"mode": "eco"}`)); err == nil {
		t.Error("UpdateFromInfo should reject a document with wrong field types")
	}
	if d.Name != "softliQ:SD18" {
		t.Errorf("device mutated by rejected document: Name = %q", d.Name)
	}
}

func TestDeviceString(t *testing.T) {
	d := NewDevice(Summary{Name: "softliQ:SD18", Series: "softliQ.D", SerialNumber: "6ZF9Z5KAA2"})
	got := d.String()
	want := "softliQ:SD18 (softliQ.D, serial 6ZF9Z5KAA2)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func BenchmarkParseDevice(b *testing.B) {
	data := []byte(deviceDocument)
	for i := 0; i < b.N; i++ {
		if _, err := ParseDevice(data); err != nil {
			b.Fatal(err)
		}
	}
}
