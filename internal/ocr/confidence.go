package ocr

import (
	"regexp"
	"strings"
)

var (
	reDateish   = regexp.MustCompile(`\b\d{4}[-/.]\d{1,2}[-/.]\d{1,2}\b|\b\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}\b`)
	reCurrency  = regexp.MustCompile(`\b(inr|usd|eur|gbp)\b|[₹$£€]`)
	reAmountish = regexp.MustCompile(`\b\d{1,3}(,\d{2,3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
)

// heuristicConfidence scores recognized text 0-100 from invoice-shaped
// artifacts: date-ish, currency-ish and amount-ish tokens each add weight,
// plus a bonus when there is enough content at all. The printed-text endpoint
// does not report a confidence of its own.
func heuristicConfidence(txt string) float64 {
	lower := strings.ToLower(txt)
	score := 30.0
	if reDateish.MatchString(lower) {
		score += 20
	}
	if reCurrency.MatchString(lower) {
		score += 20
	}
	if reAmountish.MatchString(lower) {
		score += 20
	}
	if len(txt) > 120 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
