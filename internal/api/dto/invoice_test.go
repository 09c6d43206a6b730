package dto

import (
	"testing"
	"time"

	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateRequest() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		ClientName:  "Acme Corp",
		ClientEmail: "  billing@acme.test ",
		InvoiceDate: "2024-01-15",
		DueDate:     "2024-02-14T00:00:00Z",
		Items:       []LineItemRequest{{Description: "Consulting", Quantity: 2, Rate: "150"}},
		TaxRate:     "8.25",
	}
}

func TestCreateInvoiceRequest_ToParams(t *testing.T) {
	req := validCreateRequest()
	require.NoError(t, req.Validate())
	assert.Equal(t, "billing@acme.test", req.ClientEmail)

	params, err := req.ToParams()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), params.InvoiceDate)
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), params.DueDate)
	assert.True(t, decimal.RequireFromString("8.25").Equal(params.TaxRate))
	require.Len(t, params.Items, 1)
	assert.Equal(t, 2, params.Items[0].Quantity)
}

func TestCreateInvoiceRequest_OmittedTaxRateIsZero(t *testing.T) {
	req := validCreateRequest()
	req.TaxRate = nil

	params, err := req.ToParams()
	require.NoError(t, err)
	assert.True(t, params.TaxRate.IsZero())
}

func TestCreateInvoiceRequest_InvalidFields(t *testing.T) {
	req := validCreateRequest()
	req.InvoiceDate = "15/01/2024"
	req.TaxRate = "ten"

	_, err := req.ToParams()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestCreateInvoiceRequest_Validate(t *testing.T) {
	req := validCreateRequest()
	req.ClientEmail = "not-an-email"
	assert.True(t, ierr.IsValidation(req.Validate()))

	req = validCreateRequest()
	req.Status = "void"
	assert.True(t, ierr.IsValidation(req.Validate()))
}

func TestUpdateInvoiceRequest_ToParams(t *testing.T) {
	req := UpdateInvoiceRequest{
		ClientEmail: lo.ToPtr(" new@acme.test "),
		DueDate:     lo.ToPtr("2024-03-01"),
	}
	require.NoError(t, req.Validate())

	params, err := req.ToParams()
	require.NoError(t, err)

	assert.Equal(t, "new@acme.test", *params.ClientEmail)
	require.NotNil(t, params.DueDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *params.DueDate)
	assert.Nil(t, params.Items)
	assert.Nil(t, params.TaxRate)
	assert.Nil(t, params.ClientName)
}

func TestUpdateInvoiceRequest_EmptyItemsArePassedThrough(t *testing.T) {
	req := UpdateInvoiceRequest{Items: []LineItemRequest{}}

	params, err := req.ToParams()
	require.NoError(t, err)
	assert.NotNil(t, params.Items)
	assert.Empty(t, params.Items)
}

func TestUpdateInvoiceStatusRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UpdateInvoiceStatusRequest{Status: "paid"}).Validate())
	assert.True(t, ierr.IsValidation((&UpdateInvoiceStatusRequest{}).Validate()))
	assert.True(t, ierr.IsValidation((&UpdateInvoiceStatusRequest{Status: "void"}).Validate()))
}
