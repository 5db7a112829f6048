package extraction

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/zombor/expense-snap/internal/scanning"
)

const currencySymbols = "¥￥$€£"

const number = `(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`

// amountPatterns are applied in order; each captures the number in group 1
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[¥￥$€£]\s*` + number),
	regexp.MustCompile(`(?i)` + number + `\s*(?:元|块|rmb|cny|usd|eur|dollars?)`),
	regexp.MustCompile(`(?:^|[^\d.,])(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})(?:$|[^\d.])`),
	regexp.MustCompile(`(?i)(?:subtotal|total|amount due|due|合计|总计|实付|应付|金额|小计)\s*[:：]?\s*[¥￥$€£]?\s*` + number),
}

// extractAmounts reads amounts from blocks flagged as potential amounts and
// falls back to every other non-date block when those yield nothing.
func extractAmounts(blocks []scanning.TextBlock) ([]float64, float64, error) {
	var flagged, rest []scanning.TextBlock
	for _, b := range blocks {
		switch {
		case b.IsPotentialAmount:
			flagged = append(flagged, b)
		case b.Type != scanning.BlockDate && b.Type != scanning.BlockTime:
			rest = append(rest, b)
		}
	}

	found := matchAmounts(flagged)
	if len(found) == 0 {
		found = matchAmounts(rest)
	}
	if len(found) == 0 {
		return nil, 0, ErrNoValidAmountFound
	}

	sort.Slice(found, func(i, j int) bool { return found[i].LessThan(found[j]) })

	amounts := make([]float64, 0, len(found))
	total := decimal.Zero
	for _, d := range found {
		amounts = append(amounts, d.InexactFloat64())
		total = total.Add(d)
	}
	return amounts, total.InexactFloat64(), nil
}

// matchAmounts returns the distinct positive amounts found in blocks.
// Signed values such as discounts and refunds are skipped.
func matchAmounts(blocks []scanning.TextBlock) []decimal.Decimal {
	seen := make(map[string]bool)
	var out []decimal.Decimal
	for _, b := range blocks {
		for _, p := range amountPatterns {
			for _, m := range p.FindAllStringSubmatchIndex(b.Text, -1) {
				d, ok := normalizeAmount(b.Text[m[2]:m[3]], negated(b.Text[:m[2]]))
				if !ok {
					continue
				}
				key := d.StringFixed(2)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, d.Round(2))
			}
		}
	}
	return out
}

// negated reports whether the text leading up to a number ends in a minus
// sign, allowing a currency symbol on either side of it.
func negated(prefix string) bool {
	t := strings.TrimRight(prefix, " \t")
	t = strings.TrimRight(t, currencySymbols)
	t = strings.TrimRight(t, " \t")
	for _, minus := range []string{"-", "−"} {
		if rest, ok := strings.CutSuffix(t, minus); ok {
			r, _ := utf8.DecodeLastRuneInString(rest)
			return !unicode.IsDigit(r)
		}
	}
	return false
}

func normalizeAmount(s string, negative bool) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	if !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
