// Package extraction turns classified OCR blocks into an expense candidate.
package extraction

import (
	"errors"
	"time"

	"github.com/zombor/expense-snap/internal/scanning"
)

// ErrNoValidAmountFound is returned when no positive amount can be read
var ErrNoValidAmountFound = errors.New("no valid amount found")

// Result holds the fields extracted from one OCR result. Empty strings and a
// nil Date mean the field could not be extracted.
type Result struct {
	Amounts       []float64  `json:"amounts"` // deduplicated, ascending
	TotalAmount   float64    `json:"total_amount"`
	Description   string     `json:"description,omitempty"`
	MerchantName  string     `json:"merchant_name,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	RawText       string     `json:"raw_text"`
}

// Extractor runs the individual field extractors over an OCR result
type Extractor struct {
	location *time.Location
}

// NewExtractor creates an Extractor that interprets dates in loc
func NewExtractor(loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{location: loc}
}

// Extract builds a Result from ocr. Only a missing amount fails the call;
// every other field is best-effort.
func (e *Extractor) Extract(ocr *scanning.OCRResult) (*Result, error) {
	amounts, total, err := extractAmounts(ocr.Blocks)
	if err != nil {
		return nil, err
	}

	merchant := extractMerchant(ocr.Blocks)

	return &Result{
		Amounts:       amounts,
		TotalAmount:   total,
		MerchantName:  merchant,
		Description:   extractDescription(ocr.Blocks, merchant),
		Date:          extractDate(ocr.Blocks, e.location),
		PaymentMethod: extractPaymentMethod(ocr.Blocks),
		RawText:       ocr.RawText(),
	}, nil
}
