// Package capture provides the image sources a recognition attempt starts from.
package capture

import "errors"

var (
	// ErrPermissionDenied is returned when the platform refuses access to the image source
	ErrPermissionDenied = errors.New("screen capture permission denied")

	// ErrCaptureFailed is returned when no image could be acquired
	ErrCaptureFailed = errors.New("screen capture failed")
)
