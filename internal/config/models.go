package config

import (
	"time"

	"github.com/muurk/gruenbeck-cloud/internal/diagnostics"
)

// Registry represents the entire user configuration file. It stores the
// account defaults, user-defined metadata for devices and application
// preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Account     *Account           `yaml:"account,omitempty"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device serial number
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Account holds login defaults for the CLI.
// Note: the password is NEVER stored - it is always prompted.
type Account struct {
	Email           string `yaml:"email,omitempty"`             // Login email
	DefaultDeviceID string `yaml:"default_device_id,omitempty"` // Preselected device (listing id or serial)
}

// Device represents user-defined metadata for a single softener.
// This is keyed by the device's serial number in the Registry.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last successful selection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	LogLevel            string `yaml:"log_level,omitempty"`   // debug, info, warn, error; empty keeps logging silent
	DiagnosticsCapacity int    `yaml:"diagnostics_capacity"`  // Recorded cloud exchange ring size
	WatchRefreshMinutes int    `yaml:"watch_refresh_minutes"` // Streaming-mode refresh interval for watch
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			DiagnosticsCapacity: diagnostics.DefaultCapacity,
			WatchRefreshMinutes: 6,
		},
	}
}

// GetDevice retrieves device metadata by serial number.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(serial string) *Device {
	return r.Devices[serial]
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates a new entry with default values.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(serial string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[serial]; exists {
		return device
	}

	device := &Device{}
	r.Devices[serial] = device
	return device
}

// UpdateDeviceLastSeen updates the last seen timestamp for a device.
func (r *Registry) UpdateDeviceLastSeen(serial string) {
	device := r.EnsureDevice(serial)
	device.LastSeen = time.Now()
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(serial, nickname string) {
	device := r.EnsureDevice(serial)
	device.Nickname = nickname
}

// EnsureAccount returns the account section, creating it when absent.
func (r *Registry) EnsureAccount() *Account {
	if r.Account == nil {
		r.Account = &Account{}
	}
	return r.Account
}

// SetAccountEmail remembers the login email for future sessions.
func (r *Registry) SetAccountEmail(email string) {
	r.EnsureAccount().Email = email
}

// SetDefaultDevice remembers which device the CLI should preselect.
func (r *Registry) SetDefaultDevice(id string) {
	r.EnsureAccount().DefaultDeviceID = id
}
