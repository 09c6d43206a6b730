package invoice

import (
	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/money"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var maxTaxRate = decimal.NewFromInt(100)

// Totals are the derived monetary fields of an invoice
type Totals struct {
	Subtotal  money.Money
	TaxAmount money.Money
	Total     money.Money
}

// ValidateTaxRate checks 0 <= rate <= 100
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxTaxRate) {
		return ierr.WithError(errors.Wrapf(ErrInvalidAmount, "tax rate %s out of range", rate)).
			WithHint("Tax rate must be between 0 and 100").
			WithReportableDetails(map[string]any{
				"taxRate": rate.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ComputeTotals derives subtotal, tax and total. Tax is rounded once, on the subtotal.
// A total above money.MaxAmount is rejected.
func ComputeTotals(items []LineItem, taxRate decimal.Decimal) (Totals, error) {
	if err := ValidateTaxRate(taxRate); err != nil {
		return Totals{}, err
	}

	subtotal := money.Sum(lo.Map(items, func(item LineItem, _ int) money.Money {
		return item.Amount
	})...)
	tax := subtotal.PercentageOf(taxRate)
	total := subtotal.Add(tax)

	if total.ExceedsMax() {
		return Totals{}, ierr.WithError(errors.Wrapf(ErrInvalidAmount, "total %s exceeds %s", total, money.MaxAmount)).
			WithHintf("Invoice total must not exceed %s", money.MaxAmount).
			WithReportableDetails(map[string]any{
				"total": total.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     total,
	}, nil
}

// applyTotals recomputes items and totals on inv
func applyTotals(inv *Invoice, raw []RawLineItem, taxRate decimal.Decimal) error {
	items, err := ProcessLineItems(raw)
	if err != nil {
		return err
	}
	totals, err := ComputeTotals(items, taxRate)
	if err != nil {
		return err
	}

	inv.Items = items
	inv.TaxRate = taxRate
	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.Total = totals.Total
	return nil
}
