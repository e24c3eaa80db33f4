package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"invofi/internal/chain"
	"invofi/internal/extract"
	"invofi/internal/model"
	"invofi/internal/ocr"
	"invofi/internal/repository"
	"invofi/internal/risk"
	"invofi/internal/session"
	"invofi/internal/storage"
	"invofi/internal/verify"
)

// inrPerToken converts an invoice amount in INR to its token denomination.
const inrPerToken = 83.5

// InvoiceListResult is the service-level DTO for paginated invoices.
type InvoiceListResult struct {
	Items []model.Invoice `json:"data"`
	Total int             `json:"total"`
}

// InvoiceService defines the use cases for invoice financing: the upload and
// verification flow, submission with risk pricing, and the tokenization
// lifecycle.
type InvoiceService interface {
	// Upload stores the raw document, opens a verification session, runs
	// recognition and field extraction, and returns the session in review (or
	// failed, alongside the error, when the document cannot be decoded).
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*session.Session, error)

	// GetSession returns the current state of a verification session.
	GetSession(ctx context.Context, id string) (*session.Session, error)

	// Review compares a draft against the session's extracted fields and
	// returns the per-field verdict without changing state.
	Review(ctx context.Context, sessionID string, draft model.InvoiceDraft) (*verify.Verdict, error)

	// Confirm moves a session from review to verified when the draft amount
	// matches the extracted amount.
	Confirm(ctx context.Context, sessionID string, draft model.InvoiceDraft) (*session.Session, error)

	// Override moves a session from review to manual_override with a
	// justification of at least five characters.
	Override(ctx context.Context, sessionID string, reason string) (*session.Session, error)

	// Abandon resets an in-flight session to pending, discarding its
	// recognition results. Sessions that already concluded (verified,
	// manually overridden, or failed) cannot be abandoned.
	Abandon(ctx context.Context, sessionID string) error

	// Submit validates the draft, prices the invoice, and persists it with
	// status uploaded. The verification session must be verified or manually
	// overridden, and is consumed on success.
	Submit(ctx context.Context, sessionID string, draft model.InvoiceDraft, accountID string) (*model.Invoice, error)

	// Tokenize records the invoice on chain and advances it to tokenized.
	Tokenize(ctx context.Context, invoiceID string) (*model.Invoice, error)

	// Fund advances a tokenized invoice to funded.
	Fund(ctx context.Context, invoiceID string) (*model.Invoice, error)

	// Repay advances a funded invoice to repaid.
	Repay(ctx context.Context, invoiceID string) (*model.Invoice, error)

	// List returns invoices using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*InvoiceListResult, error)

	// ListOverdue returns the early-warning list: invoices past their due
	// date that have not been repaid, each with its days overdue.
	ListOverdue(ctx context.Context) ([]model.OverdueInvoice, error)

	// Get returns a single invoice by its ID.
	Get(ctx context.Context, id string) (*model.Invoice, error)
}

// invoiceService is a concrete implementation of InvoiceService.
type invoiceService struct {
	store      storage.Storage
	repo       repository.InvoiceRepository
	sessions   session.Store
	recognizer ocr.Recognizer
	pricing    *risk.Engine
	tokenizer  chain.Tokenizer
	now        func() time.Time
}

// NewInvoiceService constructs a new InvoiceService.
func NewInvoiceService(
	store storage.Storage,
	repo repository.InvoiceRepository,
	sessions session.Store,
	recognizer ocr.Recognizer,
	pricing *risk.Engine,
	tokenizer chain.Tokenizer,
) InvoiceService {
	return &invoiceService{
		store:      store,
		repo:       repo,
		sessions:   sessions,
		recognizer: recognizer,
		pricing:    pricing,
		tokenizer:  tokenizer,
		now:        time.Now,
	}
}

func (s *invoiceService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*session.Session, error) {
	if r == nil {
		return nil, ErrReaderNil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, NewValidationError("file", "file is empty")
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	id := uuid.New().String()
	ext := filepath.Ext(originalFilename)
	key := "invoices/" + id + ext

	if _, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	}); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	sess := &session.Session{
		ID:          id,
		Status:      verify.StatusScanning,
		FileHash:    hash,
		StoragePath: key,
		ContentType: contentType,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("open verification session: %w", err)
	}

	rec, err := s.recognizer.Recognize(ctx, data, contentType)
	if err != nil {
		// Undecodable or unanswering engine ends this upload; the session
		// records the failure and the caller must re-upload.
		sess.Status = verify.StatusFailed
		if saveErr := s.sessions.Save(ctx, sess); saveErr != nil {
			return nil, fmt.Errorf("recognition failed: %v; record failure: %w", err, saveErr)
		}
		return sess, err
	}

	sess.Status = verify.StatusReview
	sess.Extraction = extract.ExtractFields(rec.Text)
	sess.OCRText = rec.Text
	sess.OCRConfidence = rec.Confidence
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save verification session: %w", err)
	}
	return sess, nil
}

func (s *invoiceService) GetSession(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *invoiceService) Review(ctx context.Context, sessionID string, draft model.InvoiceDraft) (*verify.Verdict, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != verify.StatusReview {
		return nil, &VerificationIncompleteError{
			Status:  sess.Status,
			Message: "session has no extraction to review",
		}
	}
	v := verify.Reconcile(draft, sess.Extraction)
	return &v, nil
}

func (s *invoiceService) Confirm(ctx context.Context, sessionID string, draft model.InvoiceDraft) (*session.Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Status.CanTransition(verify.StatusVerified) {
		return nil, &VerificationIncompleteError{
			Status:  sess.Status,
			Message: "session is not in review",
		}
	}

	v := verify.Reconcile(draft, sess.Extraction)
	if !v.Amount {
		return nil, &VerificationIncompleteError{
			Status:  sess.Status,
			Message: "entered amount does not match the scanned amount; correct it or request a manual override",
		}
	}

	sess.Status = verify.StatusVerified
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save verification session: %w", err)
	}
	return sess, nil
}

func (s *invoiceService) Override(ctx context.Context, sessionID string, reason string) (*session.Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Status.CanTransition(verify.StatusManualOverride) {
		return nil, &VerificationIncompleteError{
			Status:  sess.Status,
			Message: "session is not in review",
		}
	}
	if !verify.ValidOverrideReason(reason) {
		return nil, NewValidationError("reason", fmt.Sprintf("override justification must be at least %d characters", verify.MinOverrideReasonLen))
	}

	sess.Status = verify.StatusManualOverride
	sess.OverrideReason = reason
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save verification session: %w", err)
	}
	return sess, nil
}

func (s *invoiceService) Abandon(ctx context.Context, sessionID string) error {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status.Terminal() {
		return &VerificationIncompleteError{
			Status:  sess.Status,
			Message: "verification already concluded for this session; upload again instead",
		}
	}
	sess.Status = verify.StatusPending
	sess.Extraction = extract.Fields{}
	sess.OCRText = ""
	sess.OCRConfidence = 0
	sess.OverrideReason = ""
	return s.sessions.Save(ctx, sess)
}

func (s *invoiceService) Submit(ctx context.Context, sessionID string, draft model.InvoiceDraft, accountID string) (*model.Invoice, error) {
	due, err := s.validateDraft(draft)
	if err != nil {
		return nil, err
	}

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !verify.CanTokenize(sess.Status) {
		return nil, &VerificationIncompleteError{
			Status:  sess.Status,
			Message: "invoice must be verified or manually overridden before submission",
		}
	}

	profile := s.pricing.Price(ctx, risk.Input{
		AmountINR:     draft.AmountINR,
		DueDate:       due,
		AccountID:     accountID,
		OCRStatus:     sess.Status,
		OCRConfidence: sess.OCRConfidence,
	})

	inv := &model.Invoice{
		ID:            uuid.New().String(),
		InvoiceNumber: draft.InvoiceNumber,
		BuyerName:     draft.BuyerName,
		Description:   draft.Description,
		AmountINR:     draft.AmountINR,
		DueDate:       due,
		Status:        model.StatusUploaded,
		OCRStatus:     string(sess.Status),
		RiskScore:     profile.Score,
		InterestRate:  profile.RecommendedRate,
		TokenValue:    int64(math.Round(draft.AmountINR / inrPerToken)),
		FileHash:      sess.FileHash,
		StoragePath:   sess.StoragePath,
		CreatedAt:     s.now().UTC(),
	}
	stored, err := s.repo.Create(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	// The session is consumed; a leftover session only wastes its TTL.
	_ = s.sessions.Delete(ctx, sessionID)

	return stored, nil
}

// validateDraft enforces the submission invariants: required fields, a
// positive amount, and a due date no earlier than today.
func (s *invoiceService) validateDraft(draft model.InvoiceDraft) (time.Time, error) {
	if draft.BuyerName == "" {
		return time.Time{}, NewValidationError("buyer_name", "buyer name is required")
	}
	if draft.InvoiceNumber == "" {
		return time.Time{}, NewValidationError("invoice_number", "invoice number is required")
	}
	if draft.AmountINR <= 0 {
		return time.Time{}, NewValidationError("amount_inr", "amount must be greater than zero")
	}
	due, err := time.Parse("2006-01-02", draft.DueDate)
	if err != nil {
		return time.Time{}, NewValidationError("due_date", "due date must be a calendar date in YYYY-MM-DD form")
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if due.Before(today) {
		return time.Time{}, NewValidationError("due_date", "due date must not be in the past")
	}
	return due, nil
}

func (s *invoiceService) Tokenize(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	inv, err := s.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !verify.CanTokenize(verify.Status(inv.OCRStatus)) {
		return nil, &VerificationIncompleteError{
			Status:  verify.Status(inv.OCRStatus),
			Message: "invoice upload was never verified",
		}
	}
	if !inv.Status.CanAdvance(model.StatusTokenized) {
		return nil, &LifecycleError{From: inv.Status, To: model.StatusTokenized}
	}

	tokenID, err := s.tokenizer.Tokenize(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("tokenize on chain: %w", err)
	}
	return s.repo.UpdateStatus(ctx, invoiceID, model.StatusTokenized, tokenID)
}

func (s *invoiceService) Fund(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	return s.advance(ctx, invoiceID, model.StatusFunded)
}

func (s *invoiceService) Repay(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	return s.advance(ctx, invoiceID, model.StatusRepaid)
}

// advance moves an invoice one step along the forward-only lifecycle.
func (s *invoiceService) advance(ctx context.Context, invoiceID string, next model.InvoiceStatus) (*model.Invoice, error) {
	inv, err := s.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.Status.CanAdvance(next) {
		return nil, &LifecycleError{From: inv.Status, To: next}
	}
	return s.repo.UpdateStatus(ctx, invoiceID, next, "")
}

// List returns paginated invoices without exposing repository types.
func (s *invoiceService) List(ctx context.Context, limit, offset int) (*InvoiceListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Items: res.Items, Total: res.Total}, nil
}

// ListOverdue flags invoices past their due date. Days overdue round up, so
// any time past the due date counts as a full day.
func (s *invoiceService) ListOverdue(ctx context.Context) ([]model.OverdueInvoice, error) {
	now := s.now().UTC()
	items, err := s.repo.ListDueBefore(ctx, now)
	if err != nil {
		return nil, err
	}

	overdue := make([]model.OverdueInvoice, 0, len(items))
	for _, inv := range items {
		overdue = append(overdue, model.OverdueInvoice{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			DueDate:       inv.DueDate,
			DaysOverdue:   int(math.Ceil(now.Sub(inv.DueDate).Hours() / 24)),
		})
	}
	return overdue, nil
}

// Get returns an invoice by ID.
func (s *invoiceService) Get(ctx context.Context, id string) (*model.Invoice, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}
