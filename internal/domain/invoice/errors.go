package invoice

import (
	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/money"
)

// Domain failures. Every error returned by this package wraps one of these and
// is marked with the ierr sentinel that decides its HTTP status.
var (
	// ErrInvalidAmount is returned when a monetary value cannot be parsed
	ErrInvalidAmount = money.ErrInvalidAmount

	// ErrInvalidLineItem is returned when a line item has an empty description,
	// a non-positive quantity or a negative rate
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrNoLineItems is returned when an invoice has no line items
	ErrNoLineItems = errors.New("invoice has no line items")

	// ErrInvalidTransition is returned for a status change the lifecycle forbids
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvoiceLocked is returned for any change to a paid invoice
	ErrInvoiceLocked = errors.New("invoice is locked")

	// ErrAllocationExhausted is returned when no unique invoice number could be
	// allocated within the retry budget
	ErrAllocationExhausted = errors.New("invoice number allocation exhausted")

	// ErrDuplicateKey is returned by stores when an invoice number is already taken
	ErrDuplicateKey = errors.New("duplicate invoice number")

	// ErrInvoiceNotFound is returned by stores when no invoice has the given id
	ErrInvoiceNotFound = errors.New("invoice not found")
)

// NewNotFoundError is the error stores return for a missing id
func NewNotFoundError(id string) error {
	return ierr.WithError(errors.Wrapf(ErrInvoiceNotFound, "id %s", id)).
		WithHintf("Invoice %s not found", id).
		WithReportableDetails(map[string]any{
			"id": id,
		}).
		Mark(ierr.ErrNotFound)
}

// NewDuplicateKeyError is the error stores return when the unique index on the
// invoice number rejects an insert
func NewDuplicateKeyError(invoiceNumber string, cause error) error {
	err := errors.Wrapf(ErrDuplicateKey, "invoice number %s", invoiceNumber)
	if cause != nil {
		err = errors.WithSecondaryError(err, cause)
	}
	return ierr.WithError(err).
		WithHintf("Invoice number %s already exists", invoiceNumber).
		Mark(ierr.ErrAlreadyExists)
}

func newInvalidTransitionError(from, to string, hint string) error {
	return ierr.WithError(errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)).
		WithHint(hint).
		WithReportableDetails(map[string]any{
			"from": from,
			"to":   to,
		}).
		Mark(ierr.ErrInvalidOperation)
}

func newLockedError(id string) error {
	return ierr.WithError(errors.Wrapf(ErrInvoiceLocked, "invoice %s is paid", id)).
		WithHint("Paid invoices cannot be modified").
		Mark(ierr.ErrInvalidOperation)
}

// IsDuplicateKey reports whether err is a store uniqueness violation on the invoice number
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
