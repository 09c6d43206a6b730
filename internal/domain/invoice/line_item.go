package invoice

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/money"
)

// RawLineItem is line item input before parsing. Quantity and Rate accept
// anything money.FromInput does.
type RawLineItem struct {
	Description string
	Quantity    any
	Rate        any
}

// ProcessLineItems parses raw input into line items and computes each amount.
// Order is preserved. Every violation across all items is reported in one error.
func ProcessLineItems(raw []RawLineItem) ([]LineItem, error) {
	if len(raw) == 0 {
		return nil, ierr.WithError(ErrNoLineItems).
			WithHint("At least one line item is required").
			Mark(ierr.ErrValidation)
	}

	items := make([]LineItem, 0, len(raw))
	details := make(map[string]any)

	for i, r := range raw {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		description := strings.TrimSpace(r.Description)
		if description == "" {
			details[field("description")] = "is required"
		}

		quantity, err := money.FromInput(r.Quantity)
		if err != nil {
			details[field("quantity")] = "must be a number"
		} else if !quantity.IsPositive() {
			details[field("quantity")] = "must be greater than 0"
		}

		rate, err := money.FromInput(r.Rate)
		if err != nil {
			details[field("rate")] = "must be a number"
		} else if rate.IsNegative() {
			details[field("rate")] = "must not be negative"
		}

		amount := quantity.Times(rate)
		if err == nil && amount.ExceedsMax() {
			details[field("amount")] = "must not exceed " + money.MaxAmount.String()
		}

		items = append(items, LineItem{
			Description: description,
			Quantity:    quantity,
			Rate:        rate,
			Amount:      amount,
		})
	}

	if len(details) > 0 {
		return nil, ierr.WithError(errors.Wrapf(ErrInvalidLineItem, "%d invalid field(s)", len(details))).
			WithHint("One or more line items are invalid").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}

	return items, nil
}

// RawFromLineItems turns stored items back into input, used when only the tax
// rate changes and items must be reprocessed
func RawFromLineItems(items []LineItem) []RawLineItem {
	raw := make([]RawLineItem, len(items))
	for i, item := range items {
		raw[i] = RawLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		}
	}
	return raw
}
