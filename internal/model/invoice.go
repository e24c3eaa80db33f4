package model

import (
	"time"
)

// RiskTier is one of the three ordered risk levels (low < medium < high).
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// InvoiceStatus is the invoice lifecycle state. It is advanced by external
// tokenization/funding actions, independently of the OCR verification state.
type InvoiceStatus string

const (
	StatusUploaded  InvoiceStatus = "uploaded"
	StatusTokenized InvoiceStatus = "tokenized"
	StatusFunded    InvoiceStatus = "funded"
	StatusRepaid    InvoiceStatus = "repaid"
)

// CanAdvance reports whether the lifecycle may move from s to next.
// Transitions are forward-only: uploaded -> tokenized -> funded -> repaid.
func (s InvoiceStatus) CanAdvance(next InvoiceStatus) bool {
	switch s {
	case StatusUploaded:
		return next == StatusTokenized
	case StatusTokenized:
		return next == StatusFunded
	case StatusFunded:
		return next == StatusRepaid
	default:
		return false
	}
}

// InvoiceDraft holds user-entered invoice data as captured by the form.
// AmountINR and DueDate are validated at submission, not here.
type InvoiceDraft struct {
	BuyerName     string  `json:"buyer_name"`
	Description   string  `json:"description"`
	AmountINR     float64 `json:"amount_inr"`
	DueDate       string  `json:"due_date"` // calendar date, YYYY-MM-DD
	InvoiceNumber string  `json:"invoice_number"`
}

// RiskProfile is the priced risk assessment for an invoice. It is derived,
// never stored independently, and recomputed when its inputs change.
type RiskProfile struct {
	Score           RiskTier `json:"score"`
	Reason          string   `json:"reason"`
	RecommendedRate float64  `json:"recommended_rate"` // percent, clamped to [8,18]
}

// OverdueInvoice is the early-warning view of an invoice past its due date
// that has not been repaid.
type OverdueInvoice struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	DueDate       time.Time `json:"due_date"`
	DaysOverdue   int       `json:"days_overdue"`
}

// Invoice is the persisted invoice record.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	BuyerName     string        `json:"buyer_name"`
	Description   string        `json:"description"`
	AmountINR     float64       `json:"amount_inr"`
	DueDate       time.Time     `json:"due_date"`
	Status        InvoiceStatus `json:"status"`
	OCRStatus     string        `json:"ocr_status"`
	RiskScore     RiskTier      `json:"risk_score"`
	InterestRate  float64       `json:"interest_rate"`
	TokenValue    int64         `json:"token_value"`
	TokenID       string        `json:"token_id,omitempty"`
	FileHash      string        `json:"file_hash"`
	StoragePath   string        `json:"storage_path"`
	CreatedAt     time.Time     `json:"created_at"`
}
