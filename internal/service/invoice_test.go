package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invofi/internal/chain"
	chainmocks "invofi/internal/chain/mocks"
	"invofi/internal/model"
	"invofi/internal/ocr"
	ocrmocks "invofi/internal/ocr/mocks"
	"invofi/internal/repository"
	repomocks "invofi/internal/repository/mocks"
	"invofi/internal/risk"
	"invofi/internal/session"
	sessionmocks "invofi/internal/session/mocks"
	"invofi/internal/storage"
	storagemocks "invofi/internal/storage/mocks"
	"invofi/internal/verify"
)

const scannedInvoiceText = `Invoice No: INV-2024-007
Bill To: Acme Corp
Total: 1,23,456.00
Due Date: 2026-05-01`

type serviceFixture struct {
	storage    *storagemocks.MockStorage
	repo       *repomocks.MockInvoiceRepository
	recognizer *ocrmocks.MockRecognizer
	tokenizer  *chainmocks.MockTokenizer
	activity   *chainmocks.MockActivityFetcher
	sessions   session.Store
	svc        *invoiceService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := &serviceFixture{
		storage:    new(storagemocks.MockStorage),
		repo:       new(repomocks.MockInvoiceRepository),
		recognizer: new(ocrmocks.MockRecognizer),
		tokenizer:  new(chainmocks.MockTokenizer),
		activity:   new(chainmocks.MockActivityFetcher),
		sessions:   session.NewRedisWithClient(client, 30*time.Minute),
	}
	svc := NewInvoiceService(f.storage, f.repo, f.sessions, f.recognizer, risk.NewEngine(f.activity), f.tokenizer)
	f.svc = svc.(*invoiceService)
	return f
}

func (f *serviceFixture) seedSession(t *testing.T, sess *session.Session) {
	t.Helper()
	require.NoError(t, f.sessions.Save(context.Background(), sess))
}

func reviewSession(id string) *session.Session {
	amount := 123456.0
	date := "2026-05-01"
	buyer := "Acme Corp"
	number := "INV-2024-007"
	s := &session.Session{
		ID:            id,
		Status:        verify.StatusReview,
		OCRText:       scannedInvoiceText,
		OCRConfidence: 90,
		FileHash:      "deadbeef",
		StoragePath:   "invoices/" + id + ".pdf",
		CreatedAt:     time.Now().UTC(),
	}
	s.Extraction.Amount = &amount
	s.Extraction.Date = &date
	s.Extraction.BuyerName = &buyer
	s.Extraction.InvoiceNumber = &number
	return s
}

func matchingDraft() model.InvoiceDraft {
	return model.InvoiceDraft{
		BuyerName:     "Acme Corp",
		Description:   "Steel shipment",
		AmountINR:     123456,
		DueDate:       time.Now().UTC().AddDate(0, 0, 40).Format("2006-01-02"),
		InvoiceNumber: "INV-2024-007",
	}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("success lands in review with extraction", func(t *testing.T) {
		f := newServiceFixture(t)
		data := []byte("raw invoice bytes")

		f.storage.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return len(key) > len("invoices/") && key[:len("invoices/")] == "invoices/"
		}), mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
		f.recognizer.On("Recognize", ctx, data, "application/pdf").
			Return(ocr.Recognition{Text: scannedInvoiceText, Confidence: 91.5}, nil)

		sess, err := f.svc.Upload(ctx, bytes.NewReader(data), "invoice.pdf", "application/pdf", int64(len(data)))

		require.NoError(t, err)
		assert.Equal(t, verify.StatusReview, sess.Status)
		require.NotNil(t, sess.Extraction.Amount)
		assert.Equal(t, 123456.0, *sess.Extraction.Amount)
		require.NotNil(t, sess.Extraction.BuyerName)
		assert.Equal(t, "Acme Corp", *sess.Extraction.BuyerName)
		// SHA-256 of the uploaded bytes, hex encoded.
		assert.Len(t, sess.FileHash, 64)
		assert.Equal(t, 91.5, sess.OCRConfidence)

		stored, err := f.sessions.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, verify.StatusReview, stored.Status)
		f.storage.AssertExpectations(t)
	})

	t.Run("undecodable document fails the session", func(t *testing.T) {
		f := newServiceFixture(t)
		data := []byte("not an image")

		f.storage.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
		f.recognizer.On("Recognize", ctx, data, "image/png").
			Return(ocr.Recognition{}, &ocr.DecodeError{Reason: "decode image"})

		sess, err := f.svc.Upload(ctx, bytes.NewReader(data), "scan.png", "image/png", int64(len(data)))

		require.Error(t, err)
		assert.True(t, ocr.IsDecodeError(err))
		require.NotNil(t, sess)
		assert.Equal(t, verify.StatusFailed, sess.Status)

		stored, getErr := f.sessions.Get(ctx, sess.ID)
		require.NoError(t, getErr)
		assert.Equal(t, verify.StatusFailed, stored.Status)
	})

	t.Run("nil reader", func(t *testing.T) {
		f := newServiceFixture(t)
		sess, err := f.svc.Upload(ctx, nil, "x.pdf", "application/pdf", 0)
		assert.Nil(t, sess)
		assert.ErrorIs(t, err, ErrReaderNil)
	})

	t.Run("empty file", func(t *testing.T) {
		f := newServiceFixture(t)
		sess, err := f.svc.Upload(ctx, bytes.NewReader(nil), "x.pdf", "application/pdf", 0)
		assert.Nil(t, sess)
		assert.True(t, IsValidationError(err))
	})
}

func TestReview(t *testing.T) {
	ctx := context.Background()

	t.Run("verdict per field", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, reviewSession("sess-1"))

		draft := matchingDraft()
		draft.DueDate = "2026-05-03" // within the three-day window

		v, err := f.svc.Review(ctx, "sess-1", draft)

		require.NoError(t, err)
		assert.True(t, v.Amount)
		assert.True(t, v.Date)
		assert.True(t, v.Buyer)
	})

	t.Run("session without extraction", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, &session.Session{ID: "sess-2", Status: verify.StatusScanning})

		v, err := f.svc.Review(ctx, "sess-2", matchingDraft())

		assert.Nil(t, v)
		assert.True(t, IsVerificationIncomplete(err))
	})

	t.Run("missing session", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Review(ctx, "nope", matchingDraft())
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("amount match verifies", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, reviewSession("sess-1"))

		sess, err := f.svc.Confirm(ctx, "sess-1", matchingDraft())

		require.NoError(t, err)
		assert.Equal(t, verify.StatusVerified, sess.Status)
	})

	t.Run("amount mismatch blocks verification", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, reviewSession("sess-1"))

		draft := matchingDraft()
		draft.AmountINR = 200000 // far outside the relative tolerance

		sess, err := f.svc.Confirm(ctx, "sess-1", draft)

		assert.Nil(t, sess)
		assert.True(t, IsVerificationIncomplete(err))

		stored, getErr := f.sessions.Get(ctx, "sess-1")
		require.NoError(t, getErr)
		assert.Equal(t, verify.StatusReview, stored.Status)
	})

	t.Run("cannot confirm a failed session", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, &session.Session{ID: "sess-f", Status: verify.StatusFailed})

		_, err := f.svc.Confirm(ctx, "sess-f", matchingDraft())

		assert.True(t, IsVerificationIncomplete(err))
	})
}

func TestOverride(t *testing.T) {
	ctx := context.Background()

	t.Run("valid reason", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, reviewSession("sess-1"))

		sess, err := f.svc.Override(ctx, "sess-1", "OCR misread the stamp over the total")

		require.NoError(t, err)
		assert.Equal(t, verify.StatusManualOverride, sess.Status)
		assert.Equal(t, "OCR misread the stamp over the total", sess.OverrideReason)
	})

	t.Run("reason too short after trimming", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, reviewSession("sess-1"))

		sess, err := f.svc.Override(ctx, "sess-1", "  ok  ")

		assert.Nil(t, sess)
		assert.True(t, IsValidationError(err))

		stored, getErr := f.sessions.Get(ctx, "sess-1")
		require.NoError(t, getErr)
		assert.Equal(t, verify.StatusReview, stored.Status)
	})

	t.Run("not in review", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, &session.Session{ID: "sess-p", Status: verify.StatusPending})

		_, err := f.svc.Override(ctx, "sess-p", "a perfectly good reason")

		assert.True(t, IsVerificationIncomplete(err))
	})
}

func TestAbandon(t *testing.T) {
	ctx := context.Background()

	t.Run("in-flight session resets to pending", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, reviewSession("sess-1"))

		require.NoError(t, f.svc.Abandon(ctx, "sess-1"))

		stored, err := f.sessions.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, verify.StatusPending, stored.Status)
		assert.Nil(t, stored.Extraction.Amount)
		assert.Empty(t, stored.OCRText)
	})

	t.Run("concluded sessions cannot be abandoned", func(t *testing.T) {
		f := newServiceFixture(t)
		for _, status := range []verify.Status{verify.StatusVerified, verify.StatusManualOverride, verify.StatusFailed} {
			s := reviewSession("sess-" + string(status))
			s.Status = status
			f.seedSession(t, s)

			err := f.svc.Abandon(ctx, s.ID)

			assert.True(t, IsVerificationIncomplete(err), "status %s: got %v", status, err)
			stored, getErr := f.sessions.Get(ctx, s.ID)
			require.NoError(t, getErr)
			assert.Equal(t, status, stored.Status)
		}
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	verifiedSession := func(id string) *session.Session {
		s := reviewSession(id)
		s.Status = verify.StatusVerified
		return s
	}

	t.Run("verified session is priced and persisted", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, verifiedSession("sess-1"))

		draft := matchingDraft()
		draft.AmountINR = 450000
		draft.DueDate = time.Now().UTC().AddDate(0, 0, 70).Format("2006-01-02")

		// Mid-range activity leaves the chain stage a no-op; the OCR stage
		// then lifts medium/10 to low/9.
		f.activity.On("FetchActivity", mock.Anything, "GTESTACCOUNT").
			Return(&chain.Activity{RecentTransactionCount: 10}, nil)

		stored := &model.Invoice{
			ID:           "inv-1",
			Status:       model.StatusUploaded,
			RiskScore:    model.RiskLow,
			InterestRate: 9.0,
			TokenValue:   5389,
		}
		f.repo.On("Create", ctx, mock.MatchedBy(func(inv *model.Invoice) bool {
			return inv.Status == model.StatusUploaded &&
				inv.OCRStatus == string(verify.StatusVerified) &&
				inv.RiskScore == model.RiskLow &&
				inv.InterestRate == 9.0 &&
				inv.TokenValue == 5389 &&
				inv.FileHash == "deadbeef"
		})).Return(stored, nil)

		inv, err := f.svc.Submit(ctx, "sess-1", draft, "GTESTACCOUNT")

		require.NoError(t, err)
		assert.Equal(t, model.StatusUploaded, inv.Status)
		assert.Equal(t, model.RiskLow, inv.RiskScore)
		assert.Equal(t, 9.0, inv.InterestRate)

		// The session is consumed.
		_, getErr := f.sessions.Get(ctx, "sess-1")
		assert.ErrorIs(t, getErr, session.ErrNotFound)
		f.repo.AssertExpectations(t)
	})

	t.Run("unverified session is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, reviewSession("sess-1"))

		inv, err := f.svc.Submit(ctx, "sess-1", matchingDraft(), "")

		assert.Nil(t, inv)
		assert.True(t, IsVerificationIncomplete(err))
	})

	t.Run("draft validation", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, verifiedSession("sess-1"))

		tests := []struct {
			name   string
			mutate func(*model.InvoiceDraft)
		}{
			{"missing buyer", func(d *model.InvoiceDraft) { d.BuyerName = "" }},
			{"missing invoice number", func(d *model.InvoiceDraft) { d.InvoiceNumber = "" }},
			{"zero amount", func(d *model.InvoiceDraft) { d.AmountINR = 0 }},
			{"negative amount", func(d *model.InvoiceDraft) { d.AmountINR = -5 }},
			{"unparseable due date", func(d *model.InvoiceDraft) { d.DueDate = "May 1st" }},
			{"past due date", func(d *model.InvoiceDraft) {
				d.DueDate = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				draft := matchingDraft()
				tt.mutate(&draft)
				inv, err := f.svc.Submit(ctx, "sess-1", draft, "")
				assert.Nil(t, inv)
				assert.True(t, IsValidationError(err), "want validation error, got %v", err)
			})
		}
	})

	t.Run("due today is allowed", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedSession(t, verifiedSession("sess-1"))

		draft := matchingDraft()
		draft.DueDate = time.Now().UTC().Format("2006-01-02")

		f.repo.On("Create", ctx, mock.Anything).
			Return(&model.Invoice{ID: "inv-1", Status: model.StatusUploaded}, nil)

		inv, err := f.svc.Submit(ctx, "sess-1", draft, "")

		require.NoError(t, err)
		assert.NotNil(t, inv)
	})
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	uploaded := func() *model.Invoice {
		return &model.Invoice{
			ID:        "inv-1",
			Status:    model.StatusUploaded,
			OCRStatus: string(verify.StatusVerified),
			AmountINR: 123456,
		}
	}

	t.Run("tokenize verified uploaded invoice", func(t *testing.T) {
		f := newServiceFixture(t)
		inv := uploaded()
		tokenized := *inv
		tokenized.Status = model.StatusTokenized
		tokenized.TokenID = "CABC"

		f.repo.On("FindByID", ctx, "inv-1").Return(inv, nil)
		f.tokenizer.On("Tokenize", ctx, inv).Return("CABC", nil)
		f.repo.On("UpdateStatus", ctx, "inv-1", model.StatusTokenized, "CABC").Return(&tokenized, nil)

		got, err := f.svc.Tokenize(ctx, "inv-1")

		require.NoError(t, err)
		assert.Equal(t, model.StatusTokenized, got.Status)
		assert.Equal(t, "CABC", got.TokenID)
	})

	t.Run("tokenize requires completed verification", func(t *testing.T) {
		f := newServiceFixture(t)
		inv := uploaded()
		inv.OCRStatus = string(verify.StatusReview)
		f.repo.On("FindByID", ctx, "inv-1").Return(inv, nil)

		got, err := f.svc.Tokenize(ctx, "inv-1")

		assert.Nil(t, got)
		assert.True(t, IsVerificationIncomplete(err))
		f.tokenizer.AssertNotCalled(t, "Tokenize", mock.Anything, mock.Anything)
	})

	t.Run("tokenize twice is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		inv := uploaded()
		inv.Status = model.StatusTokenized
		f.repo.On("FindByID", ctx, "inv-1").Return(inv, nil)

		got, err := f.svc.Tokenize(ctx, "inv-1")

		assert.Nil(t, got)
		assert.True(t, IsLifecycleError(err))
	})

	t.Run("fund then repay", func(t *testing.T) {
		f := newServiceFixture(t)
		inv := uploaded()
		inv.Status = model.StatusTokenized
		funded := *inv
		funded.Status = model.StatusFunded

		f.repo.On("FindByID", ctx, "inv-1").Return(inv, nil).Once()
		f.repo.On("UpdateStatus", ctx, "inv-1", model.StatusFunded, "").Return(&funded, nil)

		got, err := f.svc.Fund(ctx, "inv-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusFunded, got.Status)

		repaid := funded
		repaid.Status = model.StatusRepaid
		f.repo.On("FindByID", ctx, "inv-1").Return(&funded, nil).Once()
		f.repo.On("UpdateStatus", ctx, "inv-1", model.StatusRepaid, "").Return(&repaid, nil)

		got, err = f.svc.Repay(ctx, "inv-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusRepaid, got.Status)
	})

	t.Run("cannot fund an uploaded invoice", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("FindByID", ctx, "inv-1").Return(uploaded(), nil)

		got, err := f.svc.Fund(ctx, "inv-1")

		assert.Nil(t, got)
		assert.True(t, IsLifecycleError(err))
	})

	t.Run("cannot move backwards", func(t *testing.T) {
		f := newServiceFixture(t)
		inv := uploaded()
		inv.Status = model.StatusRepaid
		f.repo.On("FindByID", ctx, "inv-1").Return(inv, nil)

		got, err := f.svc.Fund(ctx, "inv-1")

		assert.Nil(t, got)
		assert.True(t, IsLifecycleError(err))
	})
}

func TestListOverdue(t *testing.T) {
	ctx := context.Background()

	t.Run("days overdue round up from the due date", func(t *testing.T) {
		f := newServiceFixture(t)
		now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
		f.svc.now = func() time.Time { return now }

		f.repo.On("ListDueBefore", ctx, now).Return([]model.Invoice{
			{
				ID:            "inv-1",
				InvoiceNumber: "INV-2024-001",
				Status:        model.StatusFunded,
				DueDate:       time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC),
			},
			{
				ID:            "inv-2",
				InvoiceNumber: "INV-2024-002",
				Status:        model.StatusTokenized,
				DueDate:       time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
			},
		}, nil)

		overdue, err := f.svc.ListOverdue(ctx)

		require.NoError(t, err)
		require.Len(t, overdue, 2)
		// Ten days and twelve hours past due counts as eleven days.
		assert.Equal(t, "INV-2024-001", overdue[0].InvoiceNumber)
		assert.Equal(t, 11, overdue[0].DaysOverdue)
		// A fraction of a day counts as a full day.
		assert.Equal(t, 1, overdue[1].DaysOverdue)
		f.repo.AssertExpectations(t)
	})

	t.Run("nothing overdue", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("ListDueBefore", ctx, mock.Anything).Return([]model.Invoice{}, nil)

		overdue, err := f.svc.ListOverdue(ctx)

		require.NoError(t, err)
		assert.Empty(t, overdue)
	})

	t.Run("repository error propagates", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("ListDueBefore", ctx, mock.Anything).Return(nil, errors.New("db down"))

		overdue, err := f.svc.ListOverdue(ctx)

		assert.Nil(t, overdue)
		assert.Error(t, err)
	})
}

func TestSessionStoreFailures(t *testing.T) {
	ctx := context.Background()

	newServiceWithStore := func(objStore *storagemocks.MockStorage, sessions *sessionmocks.MockStore) InvoiceService {
		return NewInvoiceService(
			objStore,
			new(repomocks.MockInvoiceRepository),
			sessions,
			new(ocrmocks.MockRecognizer),
			risk.NewEngine(new(chainmocks.MockActivityFetcher)),
			new(chainmocks.MockTokenizer),
		)
	}

	t.Run("upload fails when the session cannot be opened", func(t *testing.T) {
		objStore := new(storagemocks.MockStorage)
		sessions := new(sessionmocks.MockStore)
		svc := newServiceWithStore(objStore, sessions)

		objStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
		sessions.On("Save", ctx, mock.Anything).Return(errors.New("connection refused"))

		sess, err := svc.Upload(ctx, bytes.NewReader([]byte("doc")), "x.pdf", "application/pdf", 3)

		assert.Nil(t, sess)
		require.Error(t, err)
		sessions.AssertExpectations(t)
	})

	t.Run("submit surfaces a store read error", func(t *testing.T) {
		sessions := new(sessionmocks.MockStore)
		svc := newServiceWithStore(new(storagemocks.MockStorage), sessions)

		sessions.On("Get", ctx, "sess-1").Return(nil, errors.New("connection refused"))

		inv, err := svc.Submit(ctx, "sess-1", matchingDraft(), "")

		assert.Nil(t, inv)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()

	t.Run("get missing invoice", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("FindByID", ctx, "nope").Return(nil, sql.ErrNoRows)

		inv, err := f.svc.Get(ctx, "nope")

		assert.Nil(t, inv)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get without id", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Get(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})

	t.Run("list applies pagination defaults", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
			Return(&repository.PageResult[model.Invoice]{
				Items: []model.Invoice{{ID: "inv-1"}},
				Total: 1,
			}, nil)

		res, err := f.svc.List(ctx, -1, -1)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
	})
}
