// Package category suggests an expense category for extracted receipt text.
package category

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	merchantBoost    = 1.5
	descriptionBoost = 1.2
	wholeWordBoost   = 1.3
)

// Input is the text a suggestion is based on
type Input struct {
	Text        string
	Merchant    string
	Description string
	// Amount is used by the fallback when no keyword scores well enough
	Amount float64
}

// Suggestion is a ranked category with its supporting evidence
type Suggestion struct {
	Category        ID       `json:"category"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
	Reason          string   `json:"reason"`
}

// Scorer ranks categories by weighted keyword matches
type Scorer struct {
	table *Table
}

// NewScorer creates a Scorer over table, or the default table when nil
func NewScorer(table *Table) *Scorer {
	if table == nil {
		table = DefaultTable()
	}
	return &Scorer{table: table}
}

// Suggest returns the best category for in
func (s *Scorer) Suggest(in Input) Suggestion {
	text := strings.ToLower(strings.Join([]string{in.Text, in.Merchant, in.Description}, "\n"))
	merchant := strings.ToLower(in.Merchant)
	description := strings.ToLower(in.Description)

	var (
		best      Rule
		bestScore float64
		bestMatch []string
	)
	for _, rule := range s.table.Rules {
		if len(rule.Keywords) == 0 {
			continue
		}

		var sum float64
		var matched []string
		for _, kw := range rule.Keywords {
			word := strings.ToLower(kw.Word)
			if !strings.Contains(text, word) {
				continue
			}
			weight := kw.Weight
			if merchant != "" && strings.Contains(merchant, word) {
				weight *= merchantBoost
			}
			if description != "" && strings.Contains(description, word) {
				weight *= descriptionBoost
			}
			if containsWholeWord(text, word) {
				weight *= wholeWordBoost
			}
			sum += weight
			matched = append(matched, kw.Word)
		}

		size := float64(len(rule.Keywords))
		ratio := float64(len(matched)) / size
		score := (sum / size) * (0.7 + 0.3*ratio)
		if score > bestScore {
			best, bestScore, bestMatch = rule, score, matched
		}
	}

	if bestScore < s.table.LowConfidenceFloor || len(bestMatch) == 0 {
		return s.fallback(in.Amount)
	}

	return Suggestion{
		Category:        best.Category,
		Confidence:      clamp01(bestScore),
		MatchedKeywords: bestMatch,
		Reason:          fmt.Sprintf("matched %s", strings.Join(bestMatch, ", ")),
	}
}

// fallback picks a category from the amount bands
func (s *Scorer) fallback(amount float64) Suggestion {
	if amount <= 0 || len(s.table.Bands) == 0 {
		return Suggestion{
			Category:        s.table.Default,
			Confidence:      clamp01(s.table.DefaultConfidence),
			MatchedKeywords: []string{},
			Reason:          "no keywords matched and no amount band applies",
		}
	}

	band := s.table.Bands[len(s.table.Bands)-1]
	for _, b := range s.table.Bands {
		if b.Max > 0 && amount <= b.Max {
			band = b
			break
		}
	}
	return Suggestion{
		Category:        band.Category,
		Confidence:      clamp01(s.table.BandConfidence),
		MatchedKeywords: []string{},
		Reason:          fmt.Sprintf("no keywords matched, guessed from amount %.2f", amount),
	}
}

// containsWholeWord reports whether word occurs in text delimited by
// non-alphanumeric runes or the ends of text
func containsWholeWord(text, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
