package scanning

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[¥￥$€£]\s*\d[\d,]*(?:\.\d{1,2})?`),
		regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d{1,2})?\s*(?:元|块|rmb|cny|usd|eur|dollars?)`),
	}
	currencyPattern = regexp.MustCompile(`(?i)^\s*(?:[¥￥$€£]|元|rmb|cny|usd|eur)\s*$`)
	datePattern     = regexp.MustCompile(`\d{4}\s*[-/.年]\s*\d{1,2}\s*[-/.月]\s*\d{1,2}|\d{1,2}/\d{1,2}/\d{4}`)
	timePattern     = regexp.MustCompile(`(?:^|\D)\d{1,2}:\d{2}(?::\d{2})?(?:\D|$)`)
	digitPattern    = regexp.MustCompile(`\d`)
)

// amountKeywords anchor totals that carry no currency marker
var amountKeywords = []string{
	"total", "subtotal", "amount", "due", "合计", "总计", "实付", "应付", "金额", "小计", "付款",
}

var merchantSuffixes = []string{
	"店", "超市", "餐厅", "饭店", "公司", "商场", "商店", "药房", "酒店", "咖啡", "集团", "便利",
	"store", "shop", "market", "mart", "restaurant", "cafe", "coffee", "pharmacy",
	"inc", "llc", "ltd", "co.", "hotel", "bakery",
}

// DefaultMerchantNames are brand names recognized as merchants regardless of length
var DefaultMerchantNames = []string{
	"星巴克", "麦当劳", "肯德基", "瑞幸", "喜茶", "必胜客", "汉堡王", "沃尔玛", "家乐福", "盒马", "全家", "罗森",
	"starbucks", "mcdonald", "kfc", "walmart", "costco", "target", "cvs", "walgreens",
}

const maxHeaderRunes = 10

type classifier struct {
	merchantNames []string
}

func newClassifier(merchantNames []string) *classifier {
	names := make([]string, 0, len(merchantNames))
	for _, n := range merchantNames {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			names = append(names, n)
		}
	}
	return &classifier{merchantNames: names}
}

// classify turns a raw unit into a TextBlock. Rules are applied in order and
// the first match wins.
func (c *classifier) classify(raw RawText) TextBlock {
	text := strings.TrimSpace(raw.Text)
	block := TextBlock{
		Text:        text,
		Confidence:  raw.Confidence,
		BoundingBox: raw.Box,
	}

	switch {
	case matchesAny(amountPatterns, text):
		block.Type = BlockAmount
	case currencyPattern.MatchString(text):
		block.Type = BlockCurrency
	case datePattern.MatchString(text):
		block.Type = BlockDate
	case timePattern.MatchString(text):
		block.Type = BlockTime
	case c.isMerchant(text):
		block.Type = BlockMerchant
	case isHeader(text):
		block.Type = BlockHeader
	default:
		block.Type = BlockGeneral
	}

	block.IsPotentialAmount = block.Type == BlockAmount ||
		(containsAny(strings.ToLower(text), amountKeywords) && digitPattern.MatchString(text))
	block.IsPotentialMerchant = block.Type == BlockMerchant

	return block
}

func (c *classifier) isMerchant(text string) bool {
	lower := strings.ToLower(text)
	if containsAny(lower, c.merchantNames) {
		return true
	}
	return utf8.RuneCountInString(text) > 3 && containsAny(lower, merchantSuffixes)
}

func isHeader(text string) bool {
	n := utf8.RuneCountInString(text)
	if n == 0 || n > maxHeaderRunes {
		return false
	}
	return strings.IndexFunc(text, unicode.IsSpace) == -1
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
