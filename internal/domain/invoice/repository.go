package invoice

import (
	"context"

	"github.com/flexprice/invoicing/internal/money"
	"github.com/flexprice/invoicing/internal/types"
)

// NumberReader is the slice of the store the number allocator reads from
type NumberReader interface {
	// FindMaxInvoiceNumberWithPrefix returns the lexicographically greatest invoice
	// number starting with prefix, or nil when the partition is empty
	FindMaxInvoiceNumberWithPrefix(ctx context.Context, prefix string) (*string, error)
}

// Repository defines the interface for invoice persistence operations
type Repository interface {
	NumberReader

	// Create inserts a new invoice. A taken invoice number fails with ErrDuplicateKey.
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update replaces the invoice if its stored version still equals invoice.Version,
	// and bumps the version on success
	Update(ctx context.Context, invoice *Invoice) error

	// Delete removes the invoice permanently
	Delete(ctx context.Context, id string) error

	// List retrieves one page of invoices matching the filter
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the number of invoices matching the filter, ignoring pagination
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// SumTotal adds up the total of every invoice in the given status
	SumTotal(ctx context.Context, status types.InvoiceStatus) (money.Money, error)
}
