package capture

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/kbinani/screenshot"
)

// Screen captures a whole display
type Screen struct {
	display int
}

// NewScreen creates a Screen capturer for the given display index
func NewScreen(display int) *Screen {
	return &Screen{display: display}
}

// Capture grabs the display contents
func (s *Screen) Capture(ctx context.Context) (image.Image, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("%w: no active display", ErrCaptureFailed)
	}
	if s.display < 0 || s.display >= n {
		return nil, fmt.Errorf("%w: display %d not found (%d active)", ErrCaptureFailed, s.display, n)
	}

	img, err := screenshot.CaptureDisplay(s.display)
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	return img, nil
}

// The screenshot package reports refusals as plain errors
func isPermissionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") ||
		strings.Contains(msg, "not permitted") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "cannot open display")
}
