package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"invofi/internal/model"
	"invofi/internal/service"
	"invofi/internal/session"
	"invofi/internal/verify"
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*session.Session, error) {
	args := m.Called(ctx, r, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockInvoiceService) GetSession(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockInvoiceService) Review(ctx context.Context, sessionID string, draft model.InvoiceDraft) (*verify.Verdict, error) {
	args := m.Called(ctx, sessionID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verify.Verdict), args.Error(1)
}

func (m *MockInvoiceService) Confirm(ctx context.Context, sessionID string, draft model.InvoiceDraft) (*session.Session, error) {
	args := m.Called(ctx, sessionID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockInvoiceService) Override(ctx context.Context, sessionID string, reason string) (*session.Session, error) {
	args := m.Called(ctx, sessionID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockInvoiceService) Abandon(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockInvoiceService) Submit(ctx context.Context, sessionID string, draft model.InvoiceDraft, accountID string) (*model.Invoice, error) {
	args := m.Called(ctx, sessionID, draft, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Tokenize(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Fund(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Repay(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, limit, offset int) (*service.InvoiceListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InvoiceListResult), args.Error(1)
}

func (m *MockInvoiceService) ListOverdue(ctx context.Context) ([]model.OverdueInvoice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OverdueInvoice), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, id string) (*model.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}
