package receipt

import (
	"context"
	"errors"
	"fmt"

	"github.com/zombor/expense-snap/internal/capture"
	"github.com/zombor/expense-snap/internal/extraction"
	"github.com/zombor/expense-snap/internal/retry"
	"github.com/zombor/expense-snap/internal/scanning"
)

var (
	// ErrCancelled marks an attempt stopped by the user
	ErrCancelled = errors.New("cancelled by user")
	// ErrNoPendingResult is returned when there is nothing to confirm or abandon
	ErrNoPendingResult = errors.New("no result awaiting confirmation")
	// ErrConfirmInProgress is returned when a confirmation is already being saved
	ErrConfirmInProgress = errors.New("confirmation already in progress")
)

// ErrorKind is the user-facing failure category of an attempt
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPermissionDenied
	KindCaptureFailed
	KindNoTextFound
	KindLowConfidence
	KindNoValidAmountFound
	KindEngineOffline
	KindTransientNetwork
	KindMalformedData
	KindMaxRetriesExceeded
	KindCancelled
	KindRecognitionFailed
)

var kindNames = map[ErrorKind]string{
	KindUnknown:            "unknown",
	KindPermissionDenied:   "permission_denied",
	KindCaptureFailed:      "capture_failed",
	KindNoTextFound:        "no_text_found",
	KindLowConfidence:      "low_confidence",
	KindNoValidAmountFound: "no_valid_amount_found",
	KindEngineOffline:      "engine_offline",
	KindTransientNetwork:   "transient_network_error",
	KindMalformedData:      "malformed_data",
	KindMaxRetriesExceeded: "max_retries_exceeded",
	KindCancelled:          "cancelled",
	KindRecognitionFailed:  "recognition_failed",
}

var kindMessages = map[ErrorKind]string{
	KindUnknown:            "Something went wrong. Please try again.",
	KindPermissionDenied:   "Screen capture permission is required. Grant access in your system settings and try again.",
	KindCaptureFailed:      "The screen could not be captured. Make sure the display is on and try again.",
	KindNoTextFound:        "No text was found on screen. Open the receipt or payment page and try again.",
	KindLowConfidence:      "The text on screen could not be read clearly. Enlarge the receipt or improve contrast and try again.",
	KindNoValidAmountFound: "No amount was found. Make sure the total is visible on screen and try again.",
	KindEngineOffline:      "The text recognition service is unreachable. Check your network connection and try again.",
	KindTransientNetwork:   "A network error occurred. Check your connection and try again.",
	KindMalformedData:      "The recognition service returned data that could not be read. Please try again.",
	KindMaxRetriesExceeded: "The operation kept failing after several retries. Please try again later.",
	KindCancelled:          "Cancelled.",
	KindRecognitionFailed:  "The text recognition service rejected the request. Check the engine configuration, API key and model name, then try again.",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Message is the actionable text shown to the user
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// Classify maps an error from any pipeline stage to its kind.
// Exhausted retries win over the cause they wrap.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, retry.ErrMaxRetriesExceeded):
		return KindMaxRetriesExceeded
	case errors.Is(err, capture.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, capture.ErrCaptureFailed):
		return KindCaptureFailed
	case errors.Is(err, scanning.ErrNoTextFound):
		return KindNoTextFound
	case errors.Is(err, scanning.ErrLowConfidence):
		return KindLowConfidence
	case errors.Is(err, extraction.ErrNoValidAmountFound):
		return KindNoValidAmountFound
	case errors.Is(err, scanning.ErrEngineOffline):
		return KindEngineOffline
	case errors.Is(err, scanning.ErrRecognitionFailed):
		return KindRecognitionFailed
	case errors.Is(err, retry.ErrMalformedData):
		return KindMalformedData
	case retry.IsTransient(err):
		return KindTransientNetwork
	}
	return KindUnknown
}

// captureError keeps every capture failure inside the capture kinds,
// whatever the Capturer implementation returned.
func captureError(err error) error {
	if errors.Is(err, capture.ErrPermissionDenied) || errors.Is(err, capture.ErrCaptureFailed) {
		return fmt.Errorf("capturing screen: %w", err)
	}
	return fmt.Errorf("capturing screen: %w: %w", capture.ErrCaptureFailed, err)
}

// recognitionError marks engine failures that no other kind explains.
func recognitionError(err error) error {
	if Classify(err) == KindUnknown {
		return fmt.Errorf("recognizing text: %w: %w", scanning.ErrRecognitionFailed, err)
	}
	return fmt.Errorf("recognizing text: %w", err)
}
