package receipt

import (
	"errors"
	"fmt"
	"time"

	"github.com/zombor/expense-snap/internal/category"
)

// Receipt is a confirmed expense as stored in the history
type Receipt struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title"`
	Merchant           string      `json:"merchant,omitempty"`
	Date               time.Time   `json:"date"`
	Amount             int         `json:"amount"` // Amount in cents
	Category           category.ID `json:"category"`
	CategoryConfidence float64     `json:"category_confidence"`
	PaymentMethod      string      `json:"payment_method,omitempty"`
	OCRConfidence      float64     `json:"ocr_confidence"`
	RawText            string      `json:"raw_text"`
	Filename           string      `json:"filename,omitempty"`
	ContentType        string      `json:"content_type,omitempty"`
	AttemptID          string      `json:"attempt_id"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Result is the expense candidate produced by one successful recognition
// attempt. Only the confirmation step modifies it.
type Result struct {
	Amounts            []float64   `json:"amounts"` // deduplicated, ascending
	TotalAmount        float64     `json:"total_amount"`
	Description        string      `json:"description,omitempty"`
	MerchantName       string      `json:"merchant_name,omitempty"`
	DetectedDate       *time.Time  `json:"detected_date,omitempty"`
	PaymentMethod      string      `json:"payment_method,omitempty"`
	RawText            string      `json:"raw_text"`
	SuggestedCategory  category.ID `json:"suggested_category"`
	CategoryConfidence float64     `json:"category_confidence"`
	MatchedKeywords    []string    `json:"matched_keywords"`
	CategoryReason     string      `json:"category_reason"`
	OCRConfidence      float64     `json:"ocr_confidence"`
	Timestamp          time.Time   `json:"timestamp"`
	UserSelectedAmount *float64    `json:"user_selected_amount,omitempty"`
}

// IsValid reports whether the result carries a usable amount
func (r *Result) IsValid() bool {
	return r.TotalAmount > 0 && len(r.Amounts) > 0
}

// EffectiveAmount is the amount the user picked, or the total
func (r *Result) EffectiveAmount() float64 {
	if r.UserSelectedAmount != nil {
		return *r.UserSelectedAmount
	}
	return r.TotalAmount
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.Amounts = append([]float64(nil), r.Amounts...)
	c.MatchedKeywords = append([]string(nil), r.MatchedKeywords...)
	if r.DetectedDate != nil {
		d := *r.DetectedDate
		c.DetectedDate = &d
	}
	if r.UserSelectedAmount != nil {
		a := *r.UserSelectedAmount
		c.UserSelectedAmount = &a
	}
	return &c
}

// Edit holds the user's changes made while reviewing a Result. Nil fields
// are left untouched.
type Edit struct {
	SelectedAmount *float64     `json:"selected_amount,omitempty"`
	Description    *string      `json:"description,omitempty"`
	Date           *time.Time   `json:"date,omitempty"`
	Category       *category.ID `json:"category,omitempty"`
}

// ErrInvalidEdit is returned when an Edit cannot be applied
var ErrInvalidEdit = errors.New("invalid edit")

func (r *Result) apply(e Edit) error {
	if e.SelectedAmount != nil {
		if *e.SelectedAmount <= 0 {
			return fmt.Errorf("%w: selected amount must be positive", ErrInvalidEdit)
		}
		a := *e.SelectedAmount
		r.UserSelectedAmount = &a
	}
	if e.Description != nil {
		r.Description = *e.Description
	}
	if e.Date != nil {
		d := *e.Date
		r.DetectedDate = &d
	}
	if e.Category != nil {
		if *e.Category == "" {
			return fmt.Errorf("%w: category must not be empty", ErrInvalidEdit)
		}
		r.SuggestedCategory = *e.Category
		r.CategoryConfidence = 1
		r.CategoryReason = "chosen by user"
	}
	return nil
}
