package extraction

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zombor/expense-snap/internal/scanning"
)

const (
	minDescriptionRunes = 3
	maxDescriptionRunes = 50
)

var descriptionKeywords = []string{"item", "service", "order", "商品", "服务", "订单", "项目", "品名"}

type dateFormat struct {
	pattern *regexp.Regexp
	layout  string
}

// dateFormats are tried in order; the first that parses wins
var dateFormats = []dateFormat{
	{regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`), "2006-1-2"},
	{regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}`), "2006/1/2"},
	{regexp.MustCompile(`\d{4}\.\d{1,2}\.\d{1,2}`), "2006.1.2"},
	{regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`), "2006年1月2日"},
	{regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`), "1/2/2006"},
	{regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{4}`), "1-2-2006"},
}

type paymentKeyword struct {
	keyword string
	method  string
}

// paymentMethods is checked in order; the first keyword found wins
var paymentMethods = []paymentKeyword{
	{"微信", "wechat"},
	{"wechat", "wechat"},
	{"支付宝", "alipay"},
	{"alipay", "alipay"},
	{"云闪付", "unionpay"},
	{"银联", "unionpay"},
	{"unionpay", "unionpay"},
	{"apple pay", "apple_pay"},
	{"google pay", "google_pay"},
	{"paypal", "paypal"},
	{"现金", "cash"},
	{"cash", "cash"},
	{"信用卡", "card"},
	{"银行卡", "card"},
	{"储蓄卡", "card"},
	{"visa", "card"},
	{"mastercard", "card"},
	{"credit", "card"},
	{"debit", "card"},
	{"card", "card"},
}

// extractMerchant picks the longest potential merchant, first one on ties
func extractMerchant(blocks []scanning.TextBlock) string {
	best, bestLen := "", 0
	for _, b := range blocks {
		if !b.IsPotentialMerchant {
			continue
		}
		if n := utf8.RuneCountInString(b.Text); n > bestLen {
			best, bestLen = b.Text, n
		}
	}
	return best
}

func extractDescription(blocks []scanning.TextBlock, merchant string) string {
	if merchant != "" {
		return merchant
	}

	for _, b := range blocks {
		lower := strings.ToLower(b.Text)
		for _, kw := range descriptionKeywords {
			if strings.Contains(lower, kw) && utf8.RuneCountInString(b.Text) > utf8.RuneCountInString(kw) {
				return b.Text
			}
		}
	}

	best, bestLen := "", 0
	for _, b := range blocks {
		if b.IsPotentialAmount || b.Type == scanning.BlockAmount || b.Type == scanning.BlockCurrency {
			continue
		}
		n := utf8.RuneCountInString(b.Text)
		if n < minDescriptionRunes || n > maxDescriptionRunes {
			continue
		}
		if n > bestLen {
			best, bestLen = b.Text, n
		}
	}
	return best
}

func extractDate(blocks []scanning.TextBlock, loc *time.Location) *time.Time {
	for _, b := range blocks {
		for _, f := range dateFormats {
			m := f.pattern.FindString(b.Text)
			if m == "" {
				continue
			}
			if t, err := time.ParseInLocation(f.layout, m, loc); err == nil {
				return &t
			}
		}
	}
	return nil
}

func extractPaymentMethod(blocks []scanning.TextBlock) string {
	for _, b := range blocks {
		lower := strings.ToLower(b.Text)
		for _, p := range paymentMethods {
			if strings.Contains(lower, p.keyword) {
				return p.method
			}
		}
	}
	return ""
}
