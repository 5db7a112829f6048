package receipt

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/expense-snap/internal/category"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service stores confirmed results and serves the expense history
type Service struct {
	db          DB
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with uuid IDs and the wall clock
func NewService(db DB, storage Storage) *Service {
	return NewServiceWithDeps(db, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
)

// sanitizeFilename turns a title into a short file-name-safe stem
func sanitizeFilename(title string) string {
	base := unsafeNameChars.ReplaceAllString(title, "")
	base = strings.TrimSpace(spaceRuns.ReplaceAllString(base, " "))
	base = strings.ReplaceAll(base, " ", "_")

	const maxRunes = 40
	if r := []rune(base); len(r) > maxRunes {
		base = string(r[:maxRunes])
	}
	if base == "" {
		base = "receipt"
	}
	return base
}

func toCents(amount float64) int {
	return int(decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart())
}

func titleFor(r *Result) string {
	switch {
	case r.Description != "":
		return r.Description
	case r.MerchantName != "":
		return r.MerchantName
	}
	return "Expense"
}

// Save persists a confirmed result with its screen image
func (s *Service) Save(ctx context.Context, c Confirmation) (*Receipt, error) {
	if c.Result == nil || (!c.Result.IsValid() && c.Result.UserSelectedAmount == nil) {
		return nil, fmt.Errorf("%w: result has no amount", ErrInvalidEdit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	title := titleFor(c.Result)

	date := now
	if c.Result.DetectedDate != nil {
		date = *c.Result.DetectedDate
	}

	receipt := &Receipt{
		ID:                 id,
		Title:              title,
		Merchant:           c.Result.MerchantName,
		Date:               date,
		Amount:             toCents(c.Result.EffectiveAmount()),
		Category:           c.Result.SuggestedCategory,
		CategoryConfidence: c.Result.CategoryConfidence,
		PaymentMethod:      c.Result.PaymentMethod,
		OCRConfidence:      c.Result.OCRConfidence,
		RawText:            c.Result.RawText,
		AttemptID:          c.AttemptID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if c.Image != nil && s.storage != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, c.Image); err != nil {
			return nil, fmt.Errorf("encoding image: %w", err)
		}
		savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s.png", id, sanitizeFilename(title)), buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("saving image: %w", err)
		}
		receipt.Filename = savedPath
		receipt.ContentType = "image/png"
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		if receipt.Filename != "" {
			if delErr := s.storage.Delete(receipt.Filename); delErr != nil {
				slog.Warn("Failed to clean up image", "filename", receipt.Filename, "error", delErr)
			}
		}
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Receipt saved", "id", id, "amount_cents", receipt.Amount, "category", receipt.Category)
	return receipt, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns receipts newest first, optionally limited to one category
func (s *Service) ListReceipts(filter category.ID) ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	if filter == "" {
		return receipts, nil
	}
	filtered := make([]*Receipt, 0, len(receipts))
	for _, r := range receipts {
		if r.Category == filter {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Totals sums receipt amounts in cents per category
func (s *Service) Totals() (map[category.ID]int, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	totals := make(map[category.ID]int)
	for _, r := range receipts {
		totals[r.Category] += r.Amount
	}
	return totals, nil
}

// DeleteReceipt removes a receipt and its image
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.Filename != "" {
		if err := s.storage.Delete(receipt.Filename); err != nil {
			slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
		}
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile returns the stored screen image of a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.Filename == "" {
		return nil, "", fmt.Errorf("%w: no image for %s", ErrReceiptNotFound, id)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}
