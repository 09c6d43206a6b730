package invoice

import (
	"testing"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessLineItems(t *testing.T) {
	items, err := ProcessLineItems([]RawLineItem{
		{Description: "Consulting", Quantity: "3", Rate: "33.33"},
		{Description: " Hosting ", Quantity: 1.5, Rate: 0.33},
		{Description: "Free setup", Quantity: 1, Rate: "0"},
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Consulting", items[0].Description)
	assert.Equal(t, "99.99", items[0].Amount.String())
	assert.Equal(t, "Hosting", items[1].Description)
	assert.Equal(t, "1.50", items[1].Quantity.String())
	assert.Equal(t, "0.50", items[1].Amount.String())
	assert.Equal(t, "0.00", items[2].Amount.String())
}

func TestProcessLineItems_Empty(t *testing.T) {
	_, err := ProcessLineItems(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoLineItems))
	assert.True(t, ierr.IsValidation(err))
}

func TestProcessLineItems_Invalid(t *testing.T) {
	tests := []struct {
		name string
		item RawLineItem
	}{
		{name: "empty description", item: RawLineItem{Description: "  ", Quantity: 1, Rate: 1}},
		{name: "zero quantity", item: RawLineItem{Description: "x", Quantity: "0", Rate: 1}},
		{name: "negative quantity", item: RawLineItem{Description: "x", Quantity: -2, Rate: 1}},
		{name: "quantity rounds to zero", item: RawLineItem{Description: "x", Quantity: "0.004", Rate: 1}},
		{name: "negative rate", item: RawLineItem{Description: "x", Quantity: 1, Rate: "-0.01"}},
		{name: "unparseable rate", item: RawLineItem{Description: "x", Quantity: 1, Rate: "abc"}},
		{name: "missing quantity", item: RawLineItem{Description: "x", Rate: 1}},
		{name: "exponent quantity", item: RawLineItem{Description: "x", Quantity: "1e2000000", Rate: 1}},
		{name: "rate too wide to store", item: RawLineItem{Description: "x", Quantity: 1, Rate: "1e13"}},
		{name: "amount over the maximum", item: RawLineItem{Description: "x", Quantity: "1000000", Rate: "1000000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProcessLineItems([]RawLineItem{tt.item})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLineItem))
			assert.True(t, ierr.IsValidation(err))
		})
	}
}

func TestComputeTotals(t *testing.T) {
	items := []LineItem{{Description: "a", Amount: money.MustParse("100.00")}}

	totals, err := ComputeTotals(items, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "100.00", totals.Subtotal.String())
	assert.Equal(t, "10.00", totals.TaxAmount.String())
	assert.Equal(t, "110.00", totals.Total.String())
}

func TestComputeTotals_NoDrift(t *testing.T) {
	raw := make([]RawLineItem, 0, 10)
	for i := 0; i < 10; i++ {
		raw = append(raw, RawLineItem{Description: "tick", Quantity: "1", Rate: "0.10"})
	}
	items, err := ProcessLineItems(raw)
	require.NoError(t, err)

	totals, err := ComputeTotals(items, decimal.RequireFromString("8.25"))
	require.NoError(t, err)
	assert.Equal(t, "1.00", totals.Subtotal.String())
	assert.Equal(t, "0.08", totals.TaxAmount.String())
	assert.Equal(t, "1.08", totals.Total.String())
}

func TestComputeTotals_TaxRateRange(t *testing.T) {
	items := []LineItem{{Description: "a", Amount: money.MustParse("1")}}

	_, err := ComputeTotals(items, decimal.NewFromInt(-1))
	assert.True(t, ierr.IsValidation(err))

	_, err = ComputeTotals(items, decimal.RequireFromString("100.01"))
	assert.True(t, ierr.IsValidation(err))

	totals, err := ComputeTotals(items, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "2.00", totals.Total.String())
}

func TestComputeTotals_OverMaximum(t *testing.T) {
	items := []LineItem{
		{Description: "a", Amount: money.MaxAmount},
		{Description: "b", Amount: money.MustParse("0.01")},
	}

	_, err := ComputeTotals(items, decimal.Zero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAmount))
	assert.True(t, ierr.IsValidation(err))

	// tax alone can push the total over
	_, err = ComputeTotals([]LineItem{{Description: "a", Amount: money.MaxAmount}}, decimal.NewFromInt(1))
	assert.True(t, ierr.IsValidation(err))

	totals, err := ComputeTotals([]LineItem{{Description: "a", Amount: money.MaxAmount}}, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "999999999999.99", totals.Total.String())
}
