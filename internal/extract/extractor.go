package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Fields holds best-effort structured values pulled out of recognized invoice
// text. Every field is optional; an empty Fields is a valid result meaning
// nothing was detected, not a failure.
type Fields struct {
	Amount        *float64 `json:"amount,omitempty"`
	Date          *string  `json:"date,omitempty"` // free-form as found in the text, not normalized
	InvoiceNumber *string  `json:"invoice_number,omitempty"`
	BuyerName     *string  `json:"buyer_name,omitempty"`
}

var (
	reLabeledAmount = regexp.MustCompile(`(?i)(?:Total|Grand Total|Amount Due|₹|INR)[\s:₹]*([0-9,]+(?:\.[0-9]{2})?)`)
	reDecimalAmount = regexp.MustCompile(`[0-9,]+\.[0-9]{2}`)
	reDueDate       = regexp.MustCompile(`(?i)(?:Due Date|Payment Due|Date)[\s:]*(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4})`)
	reInvoiceNumber = regexp.MustCompile(`(?i)(?:Invoice|Bill)\s*(?:No|Number|#)[\s:.]*([A-Z0-9\-/]+)`)
	reBuyerName     = regexp.MustCompile(`(?i)(?:To|Bill To|Customer|Buyer)[\s:]*([A-Za-z0-9\s,.]+)`)
)

// minBuyerNameLen rejects short buyer candidates as OCR noise.
const minBuyerNameLen = 4

// ExtractFields parses recognized text into candidate invoice fields using
// ordered heuristic patterns. It is a pure function: deterministic for a given
// input and free of side effects. The four extractions are independent and may
// partially succeed.
func ExtractFields(text string) Fields {
	var f Fields
	if amt, ok := matchLabeledAmount(text); ok {
		f.Amount = &amt
	} else if amt, ok := maxDecimalAmount(text); ok {
		f.Amount = &amt
	}
	if d, ok := matchDueDate(text); ok {
		f.Date = &d
	}
	if n, ok := matchInvoiceNumber(text); ok {
		f.InvoiceNumber = &n
	}
	if b, ok := matchBuyerName(text); ok {
		f.BuyerName = &b
	}
	return f
}

// matchLabeledAmount looks for a total-like keyword or currency marker
// followed by a decimal number with optional thousands separators.
func matchLabeledAmount(text string) (float64, bool) {
	m := reLabeledAmount.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseAmount(m[1])
}

// maxDecimalAmount is the fallback when no labeled amount exists: scan every
// decimal-formatted number and pick the largest, on the heuristic that the
// biggest currency-shaped number is the grand total.
func maxDecimalAmount(text string) (float64, bool) {
	var max float64
	for _, raw := range reDecimalAmount.FindAllString(text, -1) {
		if v, ok := parseAmount(raw); ok && v > max {
			max = v
		}
	}
	return max, max > 0
}

// matchDueDate finds a labeled due date in one of three shapes: D/M/Y with
// -, / or . separators, ISO-like Y-M-D, or a month-name date. The first match
// wins and the raw string is returned untouched; normalization happens
// downstream.
func matchDueDate(text string) (string, bool) {
	m := reDueDate.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func matchInvoiceNumber(text string) (string, bool) {
	m := reInvoiceNumber.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// matchBuyerName captures the remainder of a "To:"-like line. Candidates
// shorter than minBuyerNameLen characters are rejected as noise.
func matchBuyerName(text string) (string, bool) {
	m := reBuyerName.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	line := m[1]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) < minBuyerNameLen {
		return "", false
	}
	return line, true
}

func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
