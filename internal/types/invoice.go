package types

import (
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus is the lifecycle stage of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// InvoiceStatuses lists every status in lifecycle order
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusPending,
	InvoiceStatusPaid,
}

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	if !lo.Contains(InvoiceStatuses, s) {
		return ierr.NewError("invalid invoice status").
			WithHintf("Status must be one of %v", InvoiceStatuses).
			WithReportableDetails(map[string]any{
				"status":  s,
				"allowed": InvoiceStatuses,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Rank orders statuses along the lifecycle, -1 for unknown values
func (s InvoiceStatus) Rank() int {
	return lo.IndexOf(InvoiceStatuses, s)
}
