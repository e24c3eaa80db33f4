package verify

import (
	"math"
	"strconv"
	"strings"
	"time"

	"invofi/internal/extract"
	"invofi/internal/model"
)

// amountTolerance is the relative difference below which an entered and an
// extracted amount count as the same value. The comparison is strict: exactly
// 4% apart is a mismatch.
const amountTolerance = 0.04

// dateToleranceDays allows entered and extracted dates to disagree by a few
// calendar days before flagging them.
const dateToleranceDays = 3

// Verdict is the per-field outcome of comparing user-entered values against
// OCR-extracted ones. Only Amount gates the review -> verified transition;
// Date and Buyer are advisory and are surfaced to the user without blocking.
type Verdict struct {
	Amount bool `json:"amount"`
	Date   bool `json:"date"`
	Buyer  bool `json:"buyer"`
}

// Reconcile compares an invoice draft against extracted fields under
// field-specific tolerance rules. An absent extracted field never matches.
func Reconcile(draft model.InvoiceDraft, fields extract.Fields) Verdict {
	var v Verdict
	if fields.Amount != nil {
		v.Amount = MatchAmount(draft.AmountINR, *fields.Amount)
	}
	if fields.Date != nil {
		v.Date = MatchDate(draft.DueDate, *fields.Date)
	}
	if fields.BuyerName != nil {
		v.Buyer = MatchText(draft.BuyerName, *fields.BuyerName)
	}
	return v
}

// MatchAmount reports whether two amounts represent the same value within the
// relative tolerance, measured against the user-entered amount.
func MatchAmount(user, ocr float64) bool {
	if user <= 0 || ocr <= 0 {
		return false
	}
	return math.Abs(user-ocr)/user < amountTolerance
}

// MatchAmountStrings parses both values (stripping thousands separators)
// before comparing. Unparseable input never matches.
func MatchAmountStrings(user, ocr string) bool {
	u, err1 := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(user), ",", ""), 64)
	o, err2 := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(ocr), ",", ""), 64)
	if err1 != nil || err2 != nil {
		return false
	}
	return MatchAmount(u, o)
}

// MatchDate parses both values as calendar dates and accepts a difference of
// up to dateToleranceDays. If either side does not parse, it falls back to an
// exact case-insensitive string comparison.
func MatchDate(user, ocr string) bool {
	u, err1 := parseDate(user)
	o, err2 := parseDate(ocr)
	if err1 != nil || err2 != nil {
		return strings.EqualFold(strings.TrimSpace(user), strings.TrimSpace(ocr))
	}
	days := math.Abs(u.Sub(o).Hours() / 24)
	return days <= dateToleranceDays
}

// MatchText checks case-insensitive, whitespace-trimmed containment in either
// direction, so that truncations and suffixes like "Pvt Ltd" still match.
func MatchText(a, b string) bool {
	x := strings.ToLower(strings.TrimSpace(a))
	y := strings.ToLower(strings.TrimSpace(b))
	if x == "" || y == "" {
		return false
	}
	return strings.Contains(x, y) || strings.Contains(y, x)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
