// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"invofi/internal/model"
)

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// InvoiceRepository defines data access for invoices using SQL queries only.
// No business logic here — strictly persistence operations.
type InvoiceRepository interface {
	// Create inserts a new invoice record.
	// The caller provides required fields (e.g., ID, CreatedAt); the database applies schema defaults.
	// Returns the stored invoice (may include values set by the DB).
	Create(ctx context.Context, inv *model.Invoice) (*model.Invoice, error)

	// FindByID returns an invoice by its ID.
	FindByID(ctx context.Context, id string) (*model.Invoice, error)

	// List returns a paginated list of invoices and total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Invoice], error)

	// ListDueBefore returns invoices due strictly before the cutoff, excluding
	// repaid ones, earliest due first.
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]model.Invoice, error)

	// UpdateStatus advances the lifecycle status of an invoice. tokenID is stored
	// alongside the status when non-empty (set on tokenization, empty otherwise).
	UpdateStatus(ctx context.Context, id string, status model.InvoiceStatus, tokenID string) (*model.Invoice, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
