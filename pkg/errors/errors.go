package errors

import (
	"errors"
	"fmt"
	"time"
)

// NotConfiguredError is returned when the VPN account credential is missing
// from the configuration. It marks a configuration problem, not a runtime
// failure, and is never retried.
type NotConfiguredError struct {
	Reason string
}

func NewNotConfiguredError(reason string) *NotConfiguredError {
	return &NotConfiguredError{Reason: reason}
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("vpn is not configured: %s", e.Reason)
}

func IsNotConfiguredError(err error) bool {
	var t *NotConfiguredError
	return errors.As(err, &t)
}

// DeviceLimitError is returned when the VPN provider rejects a login because
// the account already has the maximum number of registered devices. Requires
// out-of-band account cleanup; must not be retried automatically.
type DeviceLimitError struct {
	Output string
}

func NewDeviceLimitError(output string) *DeviceLimitError {
	return &DeviceLimitError{Output: output}
}

func (e *DeviceLimitError) Error() string {
	return fmt.Sprintf("vpn login failed, too many devices registered on the account: %s", e.Output)
}

func IsDeviceLimitError(err error) bool {
	var t *DeviceLimitError
	return errors.As(err, &t)
}

// ConnectTimeoutError is returned when the tunnel did not report connected
// within the configured window. The manager has already cleaned up by the
// time this error is returned.
type ConnectTimeoutError struct {
	Country string
	Elapsed time.Duration
}

func NewConnectTimeoutError(country string, elapsed time.Duration) *ConnectTimeoutError {
	return &ConnectTimeoutError{Country: country, Elapsed: elapsed}
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("timed out connecting vpn to %q after %s", e.Country, e.Elapsed.Round(time.Millisecond))
}

func IsConnectTimeoutError(err error) bool {
	var t *ConnectTimeoutError
	return errors.As(err, &t)
}

// LocationNotSupportedError is returned when a requested country code is not
// present in the location registry.
type LocationNotSupportedError struct {
	Code string
}

func NewLocationNotSupportedError(code string) *LocationNotSupportedError {
	return &LocationNotSupportedError{Code: code}
}

func (e *LocationNotSupportedError) Error() string {
	return fmt.Sprintf("location %q is not supported", e.Code)
}

func IsLocationNotSupportedError(err error) bool {
	var t *LocationNotSupportedError
	return errors.As(err, &t)
}

// RunNotFoundError is returned by the store when no run exists for the
// requested id.
type RunNotFoundError struct {
	ID string
}

func NewRunNotFoundError(id string) *RunNotFoundError {
	return &RunNotFoundError{ID: id}
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run %q not found", e.ID)
}

func IsRunNotFoundError(err error) bool {
	var t *RunNotFoundError
	return errors.As(err, &t)
}

// BrowserError wraps failures from the browser automation layer with the
// operation that failed.
type BrowserError struct {
	Op  string
	Err error
}

func NewBrowserError(op string, err error) *BrowserError {
	return &BrowserError{Op: op, Err: err}
}

func (e *BrowserError) Error() string {
	return fmt.Sprintf("browser %s: %v", e.Op, e.Err)
}

func (e *BrowserError) Unwrap() error {
	return e.Err
}

func IsBrowserError(err error) bool {
	var t *BrowserError
	return errors.As(err, &t)
}
