package invoice

import (
	"strings"
	"time"

	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/money"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/shopspring/decimal"
)

// CreateParams is the validated input for a new invoice
type CreateParams struct {
	ClientName    string
	ClientEmail   string
	ClientAddress string
	InvoiceDate   time.Time
	DueDate       time.Time
	Items         []RawLineItem
	TaxRate       decimal.Decimal
	Notes         string
	// Status is the status the invoice is opened in, draft when empty
	Status types.InvoiceStatus
}

// UpdateParams holds a partial update. Nil fields are left unchanged.
type UpdateParams struct {
	ClientName    *string
	ClientEmail   *string
	ClientAddress *string
	InvoiceDate   *time.Time
	DueDate       *time.Time
	Items         []RawLineItem
	TaxRate       *decimal.Decimal
	Notes         *string
}

// New builds an unnumbered draft from params. Items, totals and dates are
// validated, as is the requested opening status.
func New(params CreateParams) (*Invoice, error) {
	inv := &Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ClientName:    strings.TrimSpace(params.ClientName),
		ClientEmail:   NormalizeEmail(params.ClientEmail),
		ClientAddress: strings.TrimSpace(params.ClientAddress),
		InvoiceDate:   params.InvoiceDate.UTC(),
		DueDate:       params.DueDate.UTC(),
		Notes:         params.Notes,
		Status:        types.InvoiceStatusDraft,
	}

	if err := validateFields(inv); err != nil {
		return nil, err
	}
	if err := applyTotals(inv, params.Items, params.TaxRate.Round(money.Precision)); err != nil {
		return nil, err
	}
	if _, err := Transition(*inv, openingStatus(params.Status), time.Time{}); err != nil {
		return nil, err
	}

	return inv, nil
}

// Open stamps a new invoice with its number and creation time and moves it to
// its opening status. It runs at the moment of insertion.
func Open(draft Invoice, number string, status types.InvoiceStatus, now time.Time) (Invoice, error) {
	draft.InvoiceNumber = number
	draft.Version = 1
	draft.CreatedAt = now
	draft.UpdatedAt = now
	return Transition(draft, openingStatus(status), now)
}

func openingStatus(status types.InvoiceStatus) types.InvoiceStatus {
	if status == "" {
		return types.InvoiceStatusDraft
	}
	return status
}

// ApplyUpdate returns inv with the update applied and totals recomputed.
// Paid invoices are rejected with ErrInvoiceLocked.
func ApplyUpdate(inv Invoice, params UpdateParams, now time.Time) (Invoice, error) {
	if err := CheckMutable(&inv); err != nil {
		return inv, err
	}

	next := *inv.Clone()
	if params.ClientName != nil {
		next.ClientName = strings.TrimSpace(*params.ClientName)
	}
	if params.ClientEmail != nil {
		next.ClientEmail = NormalizeEmail(*params.ClientEmail)
	}
	if params.ClientAddress != nil {
		next.ClientAddress = strings.TrimSpace(*params.ClientAddress)
	}
	if params.InvoiceDate != nil {
		next.InvoiceDate = params.InvoiceDate.UTC()
	}
	if params.DueDate != nil {
		next.DueDate = params.DueDate.UTC()
	}
	if params.Notes != nil {
		next.Notes = *params.Notes
	}

	if err := validateFields(&next); err != nil {
		return inv, err
	}

	raw := params.Items
	if raw == nil {
		raw = RawFromLineItems(inv.Items)
	}
	taxRate := inv.TaxRate
	if params.TaxRate != nil {
		taxRate = params.TaxRate.Round(money.Precision)
	}
	if err := applyTotals(&next, raw, taxRate); err != nil {
		return inv, err
	}

	next.UpdatedAt = now
	return next, nil
}

// NormalizeEmail trims and lowercases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateFields(inv *Invoice) error {
	details := make(map[string]any)

	if inv.ClientName == "" {
		details["clientName"] = "is required"
	}
	if inv.ClientEmail == "" {
		details["clientEmail"] = "is required"
	}
	if inv.InvoiceDate.IsZero() {
		details["invoiceDate"] = "is required"
	}
	if inv.DueDate.IsZero() {
		details["dueDate"] = "is required"
	}
	if !inv.InvoiceDate.IsZero() && !inv.DueDate.IsZero() && inv.DueDate.Before(inv.InvoiceDate) {
		details["dueDate"] = "must be on or after invoiceDate"
	}

	if len(details) > 0 {
		return ierr.NewError("invalid invoice fields").
			WithHint("Invoice validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
