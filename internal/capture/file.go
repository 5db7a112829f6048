package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
)

// File captures by reading an image from disk. It stands in for the screen
// on headless machines.
type File struct {
	path string
}

// NewFile creates a File capturer for path
func NewFile(path string) *File {
	return &File{path: path}
}

// Capture reads and decodes the file
func (f *File) Capture(ctx context.Context) (image.Image, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: reading %s: %w", ErrCaptureFailed, f.path, err)
	}

	img, err := DecodeImage(data, ContentType(f.path, data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	return img, nil
}
