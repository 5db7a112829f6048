package scanning

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	defaultMaxDimension = 2048
	defaultMinDimension = 640

	contrastBoost = 20
	sharpenSigma  = 0.6
)

var errEmptyImage = errors.New("empty image")

// preprocess scales img so its longest side is at most maxDim and, where that
// allows, its shortest side is at least minDim, then boosts contrast and
// sharpens it.
func preprocess(img image.Image, minDim, maxDim int) (out image.Image, err error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errEmptyImage
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("preprocessing image: %v", r)
		}
	}()

	w, h := targetSize(img.Bounds().Dx(), img.Bounds().Dy(), minDim, maxDim)
	if w != img.Bounds().Dx() || h != img.Bounds().Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	enhanced := imaging.AdjustContrast(img, contrastBoost)
	return imaging.Sharpen(enhanced, sharpenSigma), nil
}

// targetSize keeps the aspect ratio; the upper bound wins when both bounds
// cannot be satisfied.
func targetSize(w, h, minDim, maxDim int) (int, int) {
	long, short := max(w, h), min(w, h)

	scale := 1.0
	switch {
	case maxDim > 0 && long > maxDim:
		scale = float64(maxDim) / float64(long)
	case minDim > 0 && short < minDim:
		scale = float64(minDim) / float64(short)
		if maxDim > 0 && float64(long)*scale > float64(maxDim) {
			scale = float64(maxDim) / float64(long)
		}
	}
	if scale == 1.0 {
		return w, h
	}
	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}
