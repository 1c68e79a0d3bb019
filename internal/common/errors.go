// Package common defines shared constants and sentinel errors used across
// NymDrive components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Transport-level errors.
	ErrNotConnected = errors.New("relay not connected")
	ErrParse        = errors.New("malformed frame")

	// Remote blob-service errors.
	ErrStorage = errors.New("storage operation failed")

	// Join-protocol errors.
	ErrDeviceDenied = errors.New("device request denied")
)
