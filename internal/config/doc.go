// Package config provides user configuration management for the
// gruenbeck CLI.
//
// This package manages a YAML-based configuration file that stores the
// account email, a default device selection, per-device nicknames and
// application preferences. The configuration follows OS-specific
// conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/gruenbeck/config.yaml or $HOME/.config/gruenbeck/config.yaml
//   - macOS: $HOME/.config/gruenbeck/config.yaml
//   - Windows: %LOCALAPPDATA%\gruenbeck\config.yaml
//
// # Security
//
// IMPORTANT: This package NEVER stores the account password or any
// cloud token. Only the login email may be remembered; the password is
// always prompted when needed.
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Remember the account and a default device
//	registry.SetAccountEmail("user@example.com")
//	registry.SetDefaultDevice("softliq.se/BS11022077")
//	registry.SetDeviceNickname("BS11022077", "Basement softener")
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across
// goroutines. File operations are protected by a mutex to ensure atomic
// writes.
package config
