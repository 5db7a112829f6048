package scanning

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// Options tunes a Recognizer
type Options struct {
	// MinBlockConfidence drops individual units below this confidence
	MinBlockConfidence float64
	// MinOverallConfidence fails recognition when the mean of the kept units is below it
	MinOverallConfidence float64
	// MaxDimension caps the longest image side before recognition
	MaxDimension int
	// MinDimension floors the shortest image side before recognition
	MinDimension int
	// MerchantNames are brand names always classified as merchants
	MerchantNames []string
}

// DefaultOptions returns the thresholds used in production
func DefaultOptions() Options {
	return Options{
		MinBlockConfidence:   0.3,
		MinOverallConfidence: 0.5,
		MaxDimension:         defaultMaxDimension,
		MinDimension:         defaultMinDimension,
		MerchantNames:        DefaultMerchantNames,
	}
}

// Recognizer adapts an Engine into classified, filtered OCR results
type Recognizer struct {
	engine     Engine
	opts       Options
	classifier *classifier
}

// NewRecognizer creates a Recognizer backed by engine
func NewRecognizer(engine Engine, opts Options) *Recognizer {
	return &Recognizer{
		engine:     engine,
		opts:       opts,
		classifier: newClassifier(opts.MerchantNames),
	}
}

// Recognize extracts classified text blocks from img
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (*OCRResult, error) {
	start := time.Now()

	prepared, err := preprocess(img, r.opts.MinDimension, r.opts.MaxDimension)
	if err != nil {
		slog.Warn("Preprocessing failed, using original image", "error", err)
		prepared = img
	}

	units, err := r.engine.RecognizeText(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	blocks := make([]TextBlock, 0, len(units))
	var sum float64
	for _, u := range units {
		if u.Confidence < r.opts.MinBlockConfidence {
			continue
		}
		block := r.classifier.classify(u)
		if block.Text == "" {
			continue
		}
		blocks = append(blocks, block)
		sum += block.Confidence
	}

	if len(blocks) == 0 {
		return nil, ErrNoTextFound
	}

	overall := sum / float64(len(blocks))
	if overall < r.opts.MinOverallConfidence {
		return nil, fmt.Errorf("%w: %.2f below %.2f", ErrLowConfidence, overall, r.opts.MinOverallConfidence)
	}

	var size image.Point
	if prepared != nil {
		size = prepared.Bounds().Size()
	}

	result := &OCRResult{
		Blocks:            blocks,
		OverallConfidence: overall,
		ProcessingTime:    time.Since(start),
		ImageSize:         size,
	}
	slog.Debug("Recognized text",
		"blocks", len(blocks),
		"dropped", len(units)-len(blocks),
		"confidence", overall,
		"duration", result.ProcessingTime,
	)
	return result, nil
}
