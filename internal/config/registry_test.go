package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "gruenbeck") {
		t.Errorf("GetConfigDir() = %v, should contain 'gruenbeck'", configDir)
	}

	// Platform-specific checks
	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}

	t.Logf("Config directory: %s", configDir)
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}

	t.Logf("Config path: %s", configPath)
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}

	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}

	if reg.Preferences.DiagnosticsCapacity != 50 {
		t.Errorf("NewRegistry().Preferences.DiagnosticsCapacity = %v, want 50", reg.Preferences.DiagnosticsCapacity)
	}

	if reg.Preferences.WatchRefreshMinutes != 6 {
		t.Errorf("NewRegistry().Preferences.WatchRefreshMinutes = %v, want 6", reg.Preferences.WatchRefreshMinutes)
	}

	if reg.Account != nil {
		t.Error("NewRegistry().Account should be empty until the user stores one")
	}
}

func TestRegistryEnsureDevice(t *testing.T) {
	reg := NewRegistry()

	// First call should create device
	device1 := reg.EnsureDevice("BS11022077")
	if device1 == nil {
		t.Fatal("EnsureDevice() returned nil")
	}

	// Second call should return same device
	device2 := reg.EnsureDevice("BS11022077")
	if device1 != device2 {
		t.Error("EnsureDevice() should return same instance for same serial")
	}

	// Different serial should create new device
	device3 := reg.EnsureDevice("6ZF9Z5KAA2")
	if device1 == device3 {
		t.Error("EnsureDevice() should create new instance for different serial")
	}
}

func TestRegistryUpdateDeviceLastSeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.UpdateDeviceLastSeen("BS11022077")
	after := time.Now()

	device := reg.GetDevice("BS11022077")
	if device == nil {
		t.Fatal("Device should exist after UpdateDeviceLastSeen()")
	}

	if device.LastSeen.Before(before) || device.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", device.LastSeen, before, after)
	}
}

func TestRegistrySetDeviceNickname(t *testing.T) {
	reg := NewRegistry()

	reg.SetDeviceNickname("BS11022077", "Basement softener")

	device := reg.GetDevice("BS11022077")
	if device == nil {
		t.Fatal("Device should exist after SetDeviceNickname()")
	}

	if device.Nickname != "Basement softener" {
		t.Errorf("Nickname = %v, want 'Basement softener'", device.Nickname)
	}
}

func TestRegistryAccount(t *testing.T) {
	reg := NewRegistry()

	reg.SetAccountEmail("user@example.com")
	reg.SetDefaultDevice("softliq.se/BS11022077")

	if reg.Account == nil {
		t.Fatal("Account should exist after SetAccountEmail()")
	}
	if reg.Account.Email != "user@example.com" {
		t.Errorf("Email = %v, want 'user@example.com'", reg.Account.Email)
	}
	if reg.Account.DefaultDeviceID != "softliq.se/BS11022077" {
		t.Errorf("DefaultDeviceID = %v, want the listing id", reg.Account.DefaultDeviceID)
	}
}

func TestParseRegistry(t *testing.T) {
	data := []byte(`version: 1
account:
  email: "user@example.com"
  default_device_id: "softliq.se/BS11022077"
devices:
  "BS11022077":
    nickname: "Basement softener"
preferences:
  log_level: "debug"
  diagnostics_capacity: 100
  watch_refresh_minutes: 5
`)

	reg, err := parseRegistry(data)
	if err != nil {
		t.Fatalf("parseRegistry() error = %v", err)
	}

	if reg.Account == nil || reg.Account.Email != "user@example.com" {
		t.Errorf("Account = %+v, want the stored email", reg.Account)
	}
	device := reg.GetDevice("BS11022077")
	if device == nil || device.Nickname != "Basement softener" {
		t.Errorf("Device = %+v, want the stored nickname", device)
	}
	if reg.Preferences.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", reg.Preferences.LogLevel)
	}
	if reg.Preferences.DiagnosticsCapacity != 100 {
		t.Errorf("DiagnosticsCapacity = %v, want 100", reg.Preferences.DiagnosticsCapacity)
	}
	if reg.Preferences.WatchRefreshMinutes != 5 {
		t.Errorf("WatchRefreshMinutes = %v, want 5", reg.Preferences.WatchRefreshMinutes)
	}
}

func TestParseRegistryDefaults(t *testing.T) {
	// A minimal file from an older release carries no preferences.
	reg, err := parseRegistry([]byte("version: 1\n"))
	if err != nil {
		t.Fatalf("parseRegistry() error = %v", err)
	}

	if reg.Devices == nil {
		t.Error("Devices should be initialized on load")
	}
	if reg.Preferences == nil {
		t.Fatal("Preferences should be initialized on load")
	}
	if reg.Preferences.DiagnosticsCapacity != 50 {
		t.Errorf("DiagnosticsCapacity = %v, want the default 50", reg.Preferences.DiagnosticsCapacity)
	}
	if reg.Preferences.WatchRefreshMinutes != 6 {
		t.Errorf("WatchRefreshMinutes = %v, want the default 6", reg.Preferences.WatchRefreshMinutes)
	}
}

func TestParseRegistryBadVersion(t *testing.T) {
	if _, err := parseRegistry([]byte("version: 2\n")); err == nil {
		t.Error("parseRegistry() should reject unsupported versions")
	}
}

func TestParseRegistryRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.SetAccountEmail("user@example.com")
	reg.SetDeviceNickname("BS11022077", "Basement softener")
	reg.Preferences.LogLevel = "warn"

	data, err := yaml.Marshal(reg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	loaded, err := parseRegistry(data)
	if err != nil {
		t.Fatalf("parseRegistry() error = %v", err)
	}

	if loaded.Account == nil || loaded.Account.Email != "user@example.com" {
		t.Errorf("loaded Account = %+v, want the stored email", loaded.Account)
	}
	device := loaded.GetDevice("BS11022077")
	if device == nil || device.Nickname != "Basement softener" {
		t.Errorf("loaded Device = %+v, want the stored nickname", device)
	}
	if loaded.Preferences.LogLevel != "warn" {
		t.Errorf("loaded LogLevel = %v, want warn", loaded.Preferences.LogLevel)
	}
}

// Benchmark tests

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}

func BenchmarkEnsureDevice(b *testing.B) {
	reg := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.EnsureDevice("BS11022077")
	}
}
