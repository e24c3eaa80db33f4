package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"invofi/internal/chain"
	"invofi/internal/model"
	"invofi/internal/verify"
)

// Pricing bounds and baseline constants. Rates are annual percentages.
const (
	MinRate = 8.0
	MaxRate = 18.0

	baselineRate     = 10.0
	lowRiskRate      = 8.5
	highRiskRate     = 14.5
	lowAmountCutoff  = 500000.0
	highAmountCutoff = 1000000.0
	shortTenorDays   = 60
	longTenorDays    = 120

	activeTxThreshold  = 20
	dormantTxThreshold = 5
	activityDiscount   = 1.5
	dormancyPenalty    = 1.0
	ocrBonus           = 1.0
	ocrConfidenceFloor = 85.0
)

const baselineReason = "Standard risk profile based on invoice amount and duration."

// Input carries the facts the engine prices on. AccountID, OCRStatus and
// OCRConfidence are optional signals; leaving them zero skips the
// corresponding adjustment stage.
type Input struct {
	AmountINR     float64
	DueDate       time.Time
	AccountID     string
	OCRStatus     verify.Status
	OCRConfidence float64
}

// Engine computes a RiskProfile from invoice facts, optional on-chain
// activity, and the OCR verification outcome. Apart from the activity fetch
// it is deterministic for identical inputs.
type Engine struct {
	activity chain.ActivityFetcher
	now      func() time.Time
}

// NewEngine builds a pricing engine. activity may be nil, in which case the
// chain-adjustment stage is always skipped.
func NewEngine(activity chain.ActivityFetcher) *Engine {
	return &Engine{activity: activity, now: time.Now}
}

// Price applies the baseline rule, then the chain-activity adjustment, then
// the OCR adjustment, in that order; the OCR stage sees the already-adjusted
// score and rate. Missing or failed signals skip their stage silently. The
// final rate is clamped to [MinRate, MaxRate] and rounded to two decimals.
func (e *Engine) Price(ctx context.Context, in Input) model.RiskProfile {
	days := e.daysUntilDue(in.DueDate)

	score := model.RiskMedium
	rate := baselineRate
	reason := baselineReason

	if in.AmountINR < lowAmountCutoff && days < shortTenorDays {
		score = model.RiskLow
		rate = lowRiskRate
	} else if in.AmountINR > highAmountCutoff || days > longTenorDays {
		score = model.RiskHigh
		rate = highRiskRate
	}

	score, rate, reason = e.applyChainActivity(ctx, in.AccountID, score, rate, reason)
	score, rate, reason = applyOCROutcome(in, score, rate, reason)

	rate = math.Round(clamp(rate, MinRate, MaxRate)*100) / 100

	return model.RiskProfile{Score: score, Reason: reason, RecommendedRate: rate}
}

// daysUntilDue is the floor-rounded number of calendar days from now until
// the due date. It may be negative for overdue invoices, which simply feeds
// the high-risk branch.
func (e *Engine) daysUntilDue(due time.Time) int {
	return int(math.Floor(due.Sub(e.now()).Hours() / 24))
}

// applyChainActivity nudges the profile by at most one tier based on recent
// transaction volume. High activity signals a healthy operating business;
// very low activity a new or dormant account. A failed or absent fetch leaves
// the profile untouched.
func (e *Engine) applyChainActivity(ctx context.Context, accountID string, score model.RiskTier, rate float64, reason string) (model.RiskTier, float64, string) {
	if accountID == "" || e.activity == nil {
		return score, rate, reason
	}
	act, err := e.activity.FetchActivity(ctx, accountID)
	if err != nil || act == nil {
		return score, rate, reason
	}

	switch {
	case act.RecentTransactionCount > activeTxThreshold:
		score = improveTier(score)
		rate -= activityDiscount
		reason = fmt.Sprintf("High on-chain activity (%d+ recent txs) indicates healthy business flow.", act.RecentTransactionCount)
	case act.RecentTransactionCount < dormantTxThreshold:
		if score == model.RiskLow {
			score = model.RiskMedium
		}
		rate += dormancyPenalty
		reason = "Low on-chain activity detected. Standard rates apply."
	}
	return score, rate, reason
}

// applyOCROutcome runs after the chain adjustment. A verified upload with
// high recognizer confidence earns a one-tier improvement and a rate bonus; a
// manual override only annotates the reason for audit visibility.
func applyOCROutcome(in Input, score model.RiskTier, rate float64, reason string) (model.RiskTier, float64, string) {
	switch {
	case in.OCRStatus == verify.StatusVerified && in.OCRConfidence > ocrConfidenceFloor:
		score = improveTier(score)
		rate -= ocrBonus
		reason += " + OCR Verified with high confidence."
	case in.OCRStatus == verify.StatusManualOverride:
		reason += " (Manual verification)."
	}
	return score, rate, reason
}

// improveTier moves one step toward low; low stays low.
func improveTier(s model.RiskTier) model.RiskTier {
	switch s {
	case model.RiskHigh:
		return model.RiskMedium
	case model.RiskMedium:
		return model.RiskLow
	default:
		return s
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
