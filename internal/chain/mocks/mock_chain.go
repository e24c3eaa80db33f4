package mocks

import (
	"context"

	"invofi/internal/chain"
	"invofi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockActivityFetcher struct {
	mock.Mock
}

func (m *MockActivityFetcher) FetchActivity(ctx context.Context, accountID string) (*chain.Activity, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.Activity), args.Error(1)
}

type MockTokenizer struct {
	mock.Mock
}

func (m *MockTokenizer) Tokenize(ctx context.Context, inv *model.Invoice) (string, error) {
	args := m.Called(ctx, inv)
	return args.String(0), args.Error(1)
}
