// Package engineerr defines the sentinel error kinds shared across the
// transport, backend, and engine packages (spec.md §7). Callers use
// errors.Is against these values; adapters wrap native failures with
// fmt.Errorf("...: %w", ...) against the appropriate sentinel.
package engineerr

import "errors"

var (
	// ErrConfigRejected indicates the requested configuration is invalid
	// or unsupported by the chosen backend.
	ErrConfigRejected = errors.New("engine: configuration rejected")

	// ErrBackendUnavailable indicates no backend could be loaded at all.
	ErrBackendUnavailable = errors.New("engine: no backend available")

	// ErrDeviceOpenFailed indicates a configuration was accepted but the
	// hardware refused to open a stream for it.
	ErrDeviceOpenFailed = errors.New("engine: device open failed")

	// ErrNotInitialized indicates an operation was attempted before
	// initialize.
	ErrNotInitialized = errors.New("engine: not initialized")

	// ErrNotRunning indicates an operation that requires the Running
	// state was attempted while not running.
	ErrNotRunning = errors.New("engine: not running")

	// ErrInvalidState indicates an operation, such as a device change
	// while running, was attempted from a state that forbids it.
	ErrInvalidState = errors.New("engine: invalid state")

	// ErrDisposed indicates an operation was attempted on a disposed
	// engine.
	ErrDisposed = errors.New("engine: disposed")

	// ErrTooShort indicates spectral analysis was attempted on audio
	// shorter than the minimum analysis window.
	ErrTooShort = errors.New("engine: audio too short for analysis")
)
