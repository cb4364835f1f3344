package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// Error types for cloud API operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConnection indicates a network-level error (DNS failure, timeout,
	// refused connection) while reaching the cloud
	ErrTypeConnection ErrorType = iota
	// ErrTypeResponseShape indicates a response that arrived but did not have
	// the expected structure (missing marker, missing JSON field, wrong type)
	ErrTypeResponseShape
	// ErrTypeResponseStatus indicates an HTTP status outside the expected set
	ErrTypeResponseStatus
	// ErrTypeCredentialsRejected indicates the identity provider rejected the
	// supplied username/password
	ErrTypeCredentialsRejected
	// ErrTypeMissingSession indicates an operation that needs login state or a
	// selected device was called without one
	ErrTypeMissingSession
	// ErrTypeStreamClosed indicates the push stream ended without the caller
	// asking for it
	ErrTypeStreamClosed
	// ErrTypeProtocolMismatch indicates a stream message addressed to a device
	// other than the selected one
	ErrTypeProtocolMismatch
	// ErrTypeConfiguration indicates an internal setup failure (unresolved
	// endpoint placeholder, challenge generation giving up)
	ErrTypeConfiguration
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnection:
		return "Connection Error"
	case ErrTypeResponseShape:
		return "Response Shape Error"
	case ErrTypeResponseStatus:
		return "Response Status Error"
	case ErrTypeCredentialsRejected:
		return "Credentials Rejected"
	case ErrTypeMissingSession:
		return "Missing Session"
	case ErrTypeStreamClosed:
		return "Stream Closed"
	case ErrTypeProtocolMismatch:
		return "Protocol Mismatch"
	case ErrTypeConfiguration:
		return "Configuration Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// CloudError represents an error that occurred while talking to the
// Grünbeck cloud. Message text never carries credentials or tokens.
type CloudError struct {
	Type       ErrorType // Category of error
	Op         string    // Symbolic endpoint name, if the error is tied to one
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *CloudError) Error() string {
	prefix := e.Type.String()
	if e.Op != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, e.Op)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *CloudError) Unwrap() error {
	return e.Err
}

// ClassifyConnectionError analyzes a transport error and returns a
// CloudError with a more specific message. Timeouts and refused
// connections are retryable; DNS failures are not.
func ClassifyConnectionError(op string, err error) *CloudError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &CloudError{
			Type:      ErrTypeConnection,
			Op:        op,
			Message:   "request timed out",
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &CloudError{
			Type:      ErrTypeConnection,
			Op:        op,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Retryable: false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &CloudError{
			Type:      ErrTypeConnection,
			Op:        op,
			Message:   "connection refused",
			Err:       err,
			Retryable: true,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
		classified := ClassifyConnectionError(op, urlErr.Err)
		classified.Err = err
		return classified
	}

	return &CloudError{
		Type:      ErrTypeConnection,
		Op:        op,
		Message:   "network error occurred",
		Err:       err,
		Retryable: true,
	}
}

// NewConnectionError creates a connection-level error with automatic classification
func NewConnectionError(op string, message string, err error) *CloudError {
	classified := ClassifyConnectionError(op, err)
	if classified != nil {
		classified.Message = message + ": " + classified.Message
		return classified
	}
	return &CloudError{
		Type:      ErrTypeConnection,
		Op:        op,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewResponseShapeError creates an error for a structurally unusable response
func NewResponseShapeError(op string, message string, err error) *CloudError {
	return &CloudError{
		Type:      ErrTypeResponseShape,
		Op:        op,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewResponseStatusError creates an error for an unexpected HTTP status
func NewResponseStatusError(op string, statusCode int, message string) *CloudError {
	retryable := statusCode >= 500 // Server errors are retryable
	return &CloudError{
		Type:       ErrTypeResponseStatus,
		Op:         op,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// NewCredentialsRejectedError creates an error for rejected login credentials
func NewCredentialsRejectedError(message string) *CloudError {
	return &CloudError{
		Type:      ErrTypeCredentialsRejected,
		Op:        LoginStep2,
		Message:   message,
		Retryable: false,
	}
}

// NewMissingSessionError creates an error for operations that need state
// which has not been established yet
func NewMissingSessionError(message string) *CloudError {
	return &CloudError{
		Type:      ErrTypeMissingSession,
		Message:   message,
		Retryable: false,
	}
}

// NewStreamClosedError creates an error for an unexpectedly ended push stream
func NewStreamClosedError(message string, err error) *CloudError {
	return &CloudError{
		Type:      ErrTypeStreamClosed,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewProtocolMismatchError creates an error for stream traffic that does not
// belong to the selected device
func NewProtocolMismatchError(message string) *CloudError {
	return &CloudError{
		Type:      ErrTypeProtocolMismatch,
		Message:   message,
		Retryable: false,
	}
}

// NewConfigurationError creates an error for internal setup failures
func NewConfigurationError(message string) *CloudError {
	return &CloudError{
		Type:      ErrTypeConfiguration,
		Message:   message,
		Retryable: false,
	}
}

func isType(err error, et ErrorType) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Type == et
	}
	return false
}

// IsConnectionError checks if an error is a connection error
func IsConnectionError(err error) bool {
	return isType(err, ErrTypeConnection)
}

// IsResponseShapeError checks if an error is a response shape error
func IsResponseShapeError(err error) bool {
	return isType(err, ErrTypeResponseShape)
}

// IsResponseStatusError checks if an error is a response status error
func IsResponseStatusError(err error) bool {
	return isType(err, ErrTypeResponseStatus)
}

// IsCredentialsRejectedError checks if an error is a rejected-credentials error
func IsCredentialsRejectedError(err error) bool {
	return isType(err, ErrTypeCredentialsRejected)
}

// IsMissingSessionError checks if an error is a missing-session error
func IsMissingSessionError(err error) bool {
	return isType(err, ErrTypeMissingSession)
}

// IsStreamClosedError checks if an error is a stream-closed error
func IsStreamClosedError(err error) bool {
	return isType(err, ErrTypeStreamClosed)
}

// IsProtocolMismatchError checks if an error is a protocol mismatch error
func IsProtocolMismatchError(err error) bool {
	return isType(err, ErrTypeProtocolMismatch)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return isType(err, ErrTypeConfiguration)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var cloudErr *CloudError
	if !errors.As(err, &cloudErr) {
		return err.Error()
	}

	switch cloudErr.Type {
	case ErrTypeConnection:
		return "Cannot reach the Grünbeck cloud - check your internet connection"
	case ErrTypeResponseShape:
		return "Unexpected response from the Grünbeck cloud"
	case ErrTypeResponseStatus:
		return fmt.Sprintf("Grünbeck cloud error (HTTP %d)", cloudErr.StatusCode)
	case ErrTypeCredentialsRejected:
		return "Login rejected - check your email address and password"
	case ErrTypeMissingSession:
		return cloudErr.Message
	case ErrTypeStreamClosed:
		return "Live connection to the Grünbeck cloud was lost"
	case ErrTypeProtocolMismatch:
		return "Received data for a different device"
	case ErrTypeConfiguration:
		return cloudErr.Message
	default:
		return cloudErr.Message
	}
}
