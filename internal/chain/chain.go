package chain

import (
	"context"

	"invofi/internal/model"
)

// Package chain wraps the external ledger collaborators. The core treats both
// as narrow, optional signals: a failed activity fetch degrades to "no
// adjustment" upstream, and tokenization is a thin pass-through.

// Activity summarizes recent on-chain account activity used by the risk
// engine.
type Activity struct {
	RecentTransactionCount int `json:"recent_transaction_count"`
}

// ActivityFetcher fetches recent activity for an account. Implementations
// must return a zero-valued Activity (not an error) for a valid but
// inactive or unfunded account.
type ActivityFetcher interface {
	FetchActivity(ctx context.Context, accountID string) (*Activity, error)
}

// Tokenizer records a verified invoice as a contract-backed asset on the
// ledger and returns its contract identifier.
type Tokenizer interface {
	Tokenize(ctx context.Context, inv *model.Invoice) (string, error)
}
