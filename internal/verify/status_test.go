package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to scanning", StatusPending, StatusScanning, true},
		{"pending cannot skip to review", StatusPending, StatusReview, false},
		{"scanning to review", StatusScanning, StatusReview, true},
		{"scanning to failed", StatusScanning, StatusFailed, true},
		{"review to verified", StatusReview, StatusVerified, true},
		{"review to manual override", StatusReview, StatusManualOverride, true},
		{"review cannot fail", StatusReview, StatusFailed, false},
		{"no backwards transition", StatusReview, StatusScanning, false},
		{"verified is terminal", StatusVerified, StatusManualOverride, false},
		{"failed is terminal", StatusFailed, StatusReview, false},
		{"manual override is terminal", StatusManualOverride, StatusVerified, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusScanning.Terminal())
	assert.False(t, StatusReview.Terminal())
	assert.True(t, StatusVerified.Terminal())
	assert.True(t, StatusManualOverride.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestCanTokenize(t *testing.T) {
	assert.True(t, CanTokenize(StatusVerified))
	assert.True(t, CanTokenize(StatusManualOverride))
	assert.False(t, CanTokenize(StatusPending))
	assert.False(t, CanTokenize(StatusScanning))
	assert.False(t, CanTokenize(StatusReview))
	assert.False(t, CanTokenize(StatusFailed))
}

func TestValidOverrideReason(t *testing.T) {
	assert.False(t, ValidOverrideReason(""))
	assert.False(t, ValidOverrideReason("abcd"))
	assert.False(t, ValidOverrideReason("  ab  "))
	assert.True(t, ValidOverrideReason("abcde"))
	assert.True(t, ValidOverrideReason("amount differs due to discount"))
}
