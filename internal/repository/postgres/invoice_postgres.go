package postgres

import (
	"context"
	"database/sql"
	"time"

	"invofi/internal/model"
	"invofi/internal/repository"
)

const invoiceColumns = `id, invoice_number, buyer_name, description, amount_inr, due_date,
		status, ocr_status, risk_score, interest_rate, token_value, token_id,
		file_hash, storage_path, created_at`

// InvoicePostgres is a PostgreSQL implementation of repository.InvoiceRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type InvoicePostgres struct {
	db *sql.DB
}

// NewInvoicePostgres creates a new InvoicePostgres repository.
func NewInvoicePostgres(db *sql.DB) *InvoicePostgres {
	return &InvoicePostgres{db: db}
}

var _ repository.InvoiceRepository = (*InvoicePostgres)(nil)

// Create inserts a new invoice row and returns the stored record.
func (r *InvoicePostgres) Create(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	const q = `
		INSERT INTO invoices (id, invoice_number, buyer_name, description, amount_inr, due_date,
			status, ocr_status, risk_score, interest_rate, token_value, token_id,
			file_hash, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + invoiceColumns
	row := r.db.QueryRowContext(ctx, q,
		inv.ID,
		inv.InvoiceNumber,
		inv.BuyerName,
		inv.Description,
		inv.AmountINR,
		inv.DueDate,
		inv.Status,
		inv.OCRStatus,
		inv.RiskScore,
		inv.InterestRate,
		inv.TokenValue,
		inv.TokenID,
		inv.FileHash,
		inv.StoragePath,
		inv.CreatedAt,
	)
	return scanInvoice(row)
}

// FindByID fetches a single invoice by its ID.
func (r *InvoicePostgres) FindByID(ctx context.Context, id string) (*model.Invoice, error) {
	const q = `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE id = $1
	`
	return scanInvoice(r.db.QueryRowContext(ctx, q, id))
}

// List returns invoices using LIMIT/OFFSET pagination and a total count.
func (r *InvoicePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Invoice], error) {
	// Count total rows
	const qCount = `SELECT COUNT(*) FROM invoices`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	const qList = `
		SELECT ` + invoiceColumns + `
		FROM invoices
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	items, err := collectInvoices(rows)
	if err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Invoice]{
		Items: items,
		Total: total,
	}, nil
}

// ListDueBefore returns invoices whose due date falls before the cutoff and
// that have not been repaid, earliest due first.
func (r *InvoicePostgres) ListDueBefore(ctx context.Context, cutoff time.Time) ([]model.Invoice, error) {
	const q = `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE due_date < $1 AND status <> $2
		ORDER BY due_date ASC
	`
	rows, err := r.db.QueryContext(ctx, q, cutoff, model.StatusRepaid)
	if err != nil {
		return nil, err
	}
	return collectInvoices(rows)
}

func collectInvoices(rows *sql.Rows) ([]model.Invoice, error) {
	defer rows.Close()

	items := make([]model.Invoice, 0)
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(
			&inv.ID,
			&inv.InvoiceNumber,
			&inv.BuyerName,
			&inv.Description,
			&inv.AmountINR,
			&inv.DueDate,
			&inv.Status,
			&inv.OCRStatus,
			&inv.RiskScore,
			&inv.InterestRate,
			&inv.TokenValue,
			&inv.TokenID,
			&inv.FileHash,
			&inv.StoragePath,
			&inv.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus sets the lifecycle status of an invoice, recording the token id
// when one is provided, and returns the updated row.
func (r *InvoicePostgres) UpdateStatus(ctx context.Context, id string, status model.InvoiceStatus, tokenID string) (*model.Invoice, error) {
	const q = `
		UPDATE invoices
		SET status = $2, token_id = COALESCE(NULLIF($3, ''), token_id)
		WHERE id = $1
		RETURNING ` + invoiceColumns
	return scanInvoice(r.db.QueryRowContext(ctx, q, id, status, tokenID))
}

func scanInvoice(row *sql.Row) (*model.Invoice, error) {
	var inv model.Invoice
	if err := row.Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.BuyerName,
		&inv.Description,
		&inv.AmountINR,
		&inv.DueDate,
		&inv.Status,
		&inv.OCRStatus,
		&inv.RiskScore,
		&inv.InterestRate,
		&inv.TokenValue,
		&inv.TokenID,
		&inv.FileHash,
		&inv.StoragePath,
		&inv.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &inv, nil
}
