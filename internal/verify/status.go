package verify

import "strings"

// Status is the OCR verification state for a single upload. It advances only
// forward; a new upload restarts at StatusPending.
type Status string

const (
	StatusPending        Status = "pending"
	StatusScanning       Status = "scanning"
	StatusReview         Status = "review"
	StatusVerified       Status = "verified"
	StatusManualOverride Status = "manual_override"
	StatusFailed         Status = "failed"
)

// MinOverrideReasonLen is the minimum length of a manual-override
// justification after trimming surrounding whitespace.
const MinOverrideReasonLen = 5

// CanTransition reports whether the state machine allows moving from s to
// next. Failed is reachable only from scanning; review never fails, it either
// verifies or is manually overridden.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusScanning
	case StatusScanning:
		return next == StatusReview || next == StatusFailed
	case StatusReview:
		return next == StatusVerified || next == StatusManualOverride
	default:
		return false
	}
}

// Terminal reports whether s ends the verification flow for this upload.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusManualOverride || s == StatusFailed
}

// CanTokenize is the guard between OCR verification and the invoice
// lifecycle: an invoice may be tokenized only once its upload was verified or
// manually overridden.
func CanTokenize(s Status) bool {
	return s == StatusVerified || s == StatusManualOverride
}

// ValidOverrideReason reports whether a free-text justification is acceptable
// for the review -> manual_override transition.
func ValidOverrideReason(reason string) bool {
	return len(strings.TrimSpace(reason)) >= MinOverrideReasonLen
}
