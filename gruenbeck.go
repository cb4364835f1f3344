// Package gruenbeck provides a public facade re-exporting the client
// and device types for external consumers of this module.
package gruenbeck

import (
	"github.com/muurk/gruenbeck-cloud/internal/cloud"
	"github.com/muurk/gruenbeck-cloud/internal/device"
	"github.com/muurk/gruenbeck-cloud/internal/diagnostics"
	"github.com/muurk/gruenbeck-cloud/internal/rest"
	"github.com/muurk/gruenbeck-cloud/internal/stream"
)

// Re-export the client and device types for external use.
type (
	// Client is the high-level cloud client: session, device selection,
	// REST operations and the realtime stream.
	Client = cloud.Client
	// Config configures a Client.
	Config = cloud.Config
	// Device is one water softener with its loaded documents.
	Device = device.Device
	// Summary is one entry of the account's device listing.
	Summary = device.Summary
	// Parameters is the user-settable configuration document.
	Parameters = device.Parameters
	// ParameterPatch declares intended parameter changes.
	ParameterPatch = device.ParameterPatch
	// RealtimeInfo is the telemetry record pushed over the stream.
	RealtimeInfo = device.RealtimeInfo
	// DailyUsage is one day of salt or water consumption.
	DailyUsage = device.DailyUsage
	// DeviceError is one entry of the device error log.
	DeviceError = device.DeviceError
	// Clock is a wall-clock time of day without a date.
	Clock = device.Clock
	// OperationMode is the working mode of the softener.
	OperationMode = device.OperationMode
	// RegenerationMode distinguishes automatic and fixed schedules.
	RegenerationMode = device.RegenerationMode
	// WaterUnit is the configured hardness unit.
	WaterUnit = device.WaterUnit
	// LEDMode is the illuminated ring behavior.
	LEDMode = device.LEDMode
	// Language is the control panel language.
	Language = device.Language
	// CloudError is the error type returned by all cloud operations.
	CloudError = rest.CloudError
	// DiagnosticsEntry is one recorded cloud exchange.
	DiagnosticsEntry = diagnostics.Entry
	// StreamState is the realtime connection lifecycle position.
	StreamState = stream.State
	// EndpointConfig overrides the production API bases.
	EndpointConfig = rest.TableConfig
)

// Operation mode constants.
const (
	OperationModeEco        = device.OperationModeEco
	OperationModeComfort    = device.OperationModeComfort
	OperationModePower      = device.OperationModePower
	OperationModeIndividual = device.OperationModeIndividual
)

// Regeneration mode constants.
const (
	RegenerationAutomatic = device.RegenerationAutomatic
	RegenerationFixed     = device.RegenerationFixed
)

// Stream state constants.
const (
	StreamDisconnected = stream.StateDisconnected
	StreamNegotiating  = stream.StateNegotiating
	StreamUpgrading    = stream.StateUpgrading
	StreamConnected    = stream.StateConnected
	StreamClosing      = stream.StateClosing
)

// NewClient validates cfg and builds a client. No network traffic
// happens here; the first operation that needs a session logs in
// lazily.
func NewClient(cfg Config) (*Client, error) {
	return cloud.NewClient(cfg)
}

// NewClock builds a wall-clock value for parameter patches.
func NewClock(hour, minute int) Clock {
	return device.NewClock(hour, minute)
}

// ParseClock parses "HH:MM"; the firmware's "--:--" sentinel parses to
// the unset zero value.
func ParseClock(s string) (Clock, error) {
	return device.ParseClock(s)
}

// Error classification helpers. GetShortErrorMessage turns any cloud
// error into a one-line human explanation for CLI surfaces.
var (
	GetShortErrorMessage       = rest.GetShortErrorMessage
	IsConnectionError          = rest.IsConnectionError
	IsResponseShapeError       = rest.IsResponseShapeError
	IsResponseStatusError      = rest.IsResponseStatusError
	IsCredentialsRejectedError = rest.IsCredentialsRejectedError
	IsMissingSessionError      = rest.IsMissingSessionError
	IsStreamClosedError        = rest.IsStreamClosedError
	IsProtocolMismatchError    = rest.IsProtocolMismatchError
	IsConfigurationError       = rest.IsConfigurationError
	IsRetryable                = rest.IsRetryable
)
