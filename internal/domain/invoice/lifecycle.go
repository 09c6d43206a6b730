package invoice

import (
	"time"

	"github.com/flexprice/invoicing/internal/types"
	"github.com/samber/lo"
)

// Status machine:
//
//	draft --> pending --> paid
//
// Moving forward one step is the only change allowed. Re-applying the current
// status is a no-op, and paid is terminal.

// Transition returns inv moved to target at time now. The input is not modified.
// Entering pending stamps SentAt and entering paid stamps PaidAt, each only once.
func Transition(inv Invoice, target types.InvoiceStatus, now time.Time) (Invoice, error) {
	if err := target.Validate(); err != nil {
		return inv, err
	}

	from := inv.Status
	if from == "" {
		from = types.InvoiceStatusDraft
	}

	if from == types.InvoiceStatusPaid {
		if target == types.InvoiceStatusPaid {
			return inv, nil
		}
		return inv, newLockedError(inv.ID)
	}

	switch {
	case target == types.InvoiceStatusDraft && (from != types.InvoiceStatusDraft || inv.SentAt != nil):
		return inv, newInvalidTransitionError(from.String(), target.String(), "Sent invoices cannot return to draft")
	case from == types.InvoiceStatusDraft && target == types.InvoiceStatusPaid:
		return inv, newInvalidTransitionError(from.String(), target.String(), "Invoice must be sent before it can be marked paid")
	}

	next := inv
	next.Status = target

	switch target {
	case types.InvoiceStatusPending:
		if next.SentAt == nil {
			next.SentAt = lo.ToPtr(now)
		}
	case types.InvoiceStatusPaid:
		if next.PaidAt == nil {
			next.PaidAt = lo.ToPtr(now)
		}
	}

	return next, nil
}

// CheckMutable rejects field updates on paid invoices
func CheckMutable(inv *Invoice) error {
	if inv.IsPaid() {
		return newLockedError(inv.ID)
	}
	return nil
}
