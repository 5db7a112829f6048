package scanning

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"
)

var (
	// ErrNoTextFound is returned when no text survives confidence filtering
	ErrNoTextFound = errors.New("no text found")

	// ErrLowConfidence is returned when the surviving text is too unreliable to use
	ErrLowConfidence = errors.New("recognition confidence too low")

	// ErrEngineOffline is returned when the recognition engine cannot be reached at all
	ErrEngineOffline = errors.New("recognition engine offline")

	// ErrRecognitionFailed is returned when the engine rejects a request for a reason retrying will not fix
	ErrRecognitionFailed = errors.New("recognition engine rejected the request")
)

// BlockType is the classification assigned to a recognized text unit
type BlockType int

const (
	BlockGeneral BlockType = iota
	BlockAmount
	BlockCurrency
	BlockDate
	BlockTime
	BlockMerchant
	BlockHeader
)

func (t BlockType) String() string {
	switch t {
	case BlockAmount:
		return "amount"
	case BlockCurrency:
		return "currency"
	case BlockDate:
		return "date"
	case BlockTime:
		return "time"
	case BlockMerchant:
		return "merchant"
	case BlockHeader:
		return "header"
	default:
		return "general"
	}
}

// TextBlock is one classified unit of recognized text
type TextBlock struct {
	Text                string          `json:"text"`
	Confidence          float64         `json:"confidence"`
	BoundingBox         image.Rectangle `json:"bounding_box"`
	Type                BlockType       `json:"type"`
	IsPotentialAmount   bool            `json:"is_potential_amount"`
	IsPotentialMerchant bool            `json:"is_potential_merchant"`
}

// OCRResult holds the blocks recognized from one image
type OCRResult struct {
	Blocks            []TextBlock   `json:"blocks"`
	OverallConfidence float64       `json:"overall_confidence"` // mean of block confidences
	ProcessingTime    time.Duration `json:"processing_time"`
	ImageSize         image.Point   `json:"image_size"`
}

// RawText returns every block's text, one per line
func (r *OCRResult) RawText() string {
	lines := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		lines = append(lines, b.Text)
	}
	return strings.Join(lines, "\n")
}

// RawText is an unclassified text unit as reported by an Engine
type RawText struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// Engine is an external text recognition backend
type Engine interface {
	// RecognizeText returns every text unit found in img
	RecognizeText(ctx context.Context, img image.Image) ([]RawText, error)
	// Close releases the engine's resources
	Close() error
}
