package chain

import (
	"context"
	"crypto/rand"
	"fmt"

	"invofi/internal/model"
)

// simTokenizer simulates contract deployment and returns a Soroban-shaped
// contract identifier. Real issuance runs through an external signer that the
// API never holds keys for, so the server side stays a pass-through.
type simTokenizer struct{}

// NewSimTokenizer returns a Tokenizer that fabricates contract identifiers
// without touching the network.
func NewSimTokenizer() Tokenizer {
	return simTokenizer{}
}

const contractIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Tokenize generates a contract ID in Soroban's format: 'C' followed by 55
// base-36 characters.
func (simTokenizer) Tokenize(_ context.Context, inv *model.Invoice) (string, error) {
	if inv == nil {
		return "", fmt.Errorf("invoice is required")
	}
	buf := make([]byte, 55)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate contract id: %w", err)
	}
	out := make([]byte, 56)
	out[0] = 'C'
	for i, b := range buf {
		out[i+1] = contractIDAlphabet[int(b)%len(contractIDAlphabet)]
	}
	return string(out), nil
}
