package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFields_FullInvoice(t *testing.T) {
	text := "Invoice No: INV-2024-007\nBill To: Acme Corp\nGrand Total: ₹1,23,456.00\nDue Date: 2026-05-01"

	f := ExtractFields(text)

	require.NotNil(t, f.Amount)
	assert.Equal(t, 123456.0, *f.Amount)
	require.NotNil(t, f.Date)
	assert.Equal(t, "2026-05-01", *f.Date)
	require.NotNil(t, f.InvoiceNumber)
	assert.Equal(t, "INV-2024-007", *f.InvoiceNumber)
	require.NotNil(t, f.BuyerName)
	assert.Equal(t, "Acme Corp", *f.BuyerName)
}

func TestExtractFields_Empty(t *testing.T) {
	f := ExtractFields("lorem ipsum dolor sit amet")

	assert.Nil(t, f.Amount)
	assert.Nil(t, f.Date)
	assert.Nil(t, f.InvoiceNumber)
	assert.Nil(t, f.BuyerName)
}

func TestMatchLabeledAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"total keyword", "Total: 45000.00", 45000, true},
		{"amount due keyword", "Amount Due 1,200.50", 1200.50, true},
		{"currency symbol", "₹ 99,999", 99999, true},
		{"currency code", "INR 5000", 5000, true},
		{"no label", "some numbers 123.45 here", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchLabeledAmount(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMaxDecimalAmount_PicksLargest(t *testing.T) {
	got, ok := maxDecimalAmount("items 120.00 and 4,500.00 plus 75.25")
	require.True(t, ok)
	assert.Equal(t, 4500.0, got)
}

func TestExtractFields_AmountFallback(t *testing.T) {
	// No labeled total anywhere; the largest decimal-shaped number wins.
	f := ExtractFields("Qty 2 @ 150.00\nShipping 49.50\n1,999.00")

	require.NotNil(t, f.Amount)
	assert.Equal(t, 1999.0, *f.Amount)
}

func TestMatchDueDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"iso shape", "Due Date: 2026-05-01", "2026-05-01", true},
		{"slash shape", "Payment Due 15/03/2026", "15/03/2026", true},
		{"dot shape", "Date: 1.2.26", "1.2.26", true},
		{"month name", "Due Date: Jan 5, 2026", "Jan 5, 2026", true},
		{"unlabeled date ignored", "2026-05-01 somewhere", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchDueDate(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchInvoiceNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"invoice no", "Invoice No: INV-2024-007", "INV-2024-007", true},
		{"bill number", "Bill Number 2024/0099", "2024/0099", true},
		{"hash form", "Invoice # A17", "A17", true},
		{"missing", "no identifiers here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchInvoiceNumber(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchBuyerName(t *testing.T) {
	t.Run("captures rest of line only", func(t *testing.T) {
		got, ok := matchBuyerName("Bill To: Acme Corp\nGrand Total: 100.00")
		require.True(t, ok)
		assert.Equal(t, "Acme Corp", got)
	})

	t.Run("short candidate rejected as noise", func(t *testing.T) {
		_, ok := matchBuyerName("To: AB")
		assert.False(t, ok)
	})
}

func TestExtractFields_Deterministic(t *testing.T) {
	text := "Invoice No: X-1\nTotal: 500.00"
	assert.Equal(t, ExtractFields(text), ExtractFields(text))
}
