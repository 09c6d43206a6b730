package dto

import (
	"strings"
	"time"

	"github.com/flexprice/invoicing/internal/domain/invoice"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/money"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/flexprice/invoicing/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when parsing invoiceDate and dueDate
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// LineItemRequest is one item of a create or update request.
// quantity and rate accept a JSON number or a decimal string.
type LineItemRequest struct {
	Description string `json:"description" validate:"max=500"`
	Quantity    any    `json:"quantity" swaggertype:"string" example:"2"`
	Rate        any    `json:"rate" swaggertype:"string" example:"150.00"`
}

// CreateInvoiceRequest represents the request payload for creating a new invoice
type CreateInvoiceRequest struct {
	ClientName    string            `json:"clientName" validate:"required,max=200"`
	ClientEmail   string            `json:"clientEmail" validate:"required,email"`
	ClientAddress string            `json:"clientAddress" validate:"omitempty,max=500"`
	InvoiceDate   string            `json:"invoiceDate" validate:"required" example:"2024-01-15"`
	DueDate       string            `json:"dueDate" validate:"required" example:"2024-02-14"`
	Items         []LineItemRequest `json:"items" validate:"dive"`
	// taxRate is a percentage between 0 and 100, 0 when omitted
	TaxRate any    `json:"taxRate,omitempty" swaggertype:"string" example:"10"`
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	// status is the opening status, draft when omitted
	Status types.InvoiceStatus `json:"status,omitempty" validate:"omitempty,oneof=draft pending paid"`
}

func (r *CreateInvoiceRequest) Validate() error {
	r.ClientEmail = strings.TrimSpace(r.ClientEmail)
	return validator.ValidateRequest(r)
}

// ToParams parses dates and the tax rate. Every unparsable field is reported at once.
func (r *CreateInvoiceRequest) ToParams() (invoice.CreateParams, error) {
	details := make(map[string]any)

	invoiceDate, ok := parseDate(r.InvoiceDate)
	if !ok {
		details["invoiceDate"] = "must be a date (YYYY-MM-DD or RFC3339)"
	}
	dueDate, ok := parseDate(r.DueDate)
	if !ok {
		details["dueDate"] = "must be a date (YYYY-MM-DD or RFC3339)"
	}

	taxRate := decimal.Zero
	if r.TaxRate != nil {
		rate, err := parseTaxRate(r.TaxRate)
		if err != nil {
			details["taxRate"] = "must be a number between 0 and 100"
		}
		taxRate = rate
	}

	if len(details) > 0 {
		return invoice.CreateParams{}, invalidFields(details)
	}

	return invoice.CreateParams{
		ClientName:    r.ClientName,
		ClientEmail:   r.ClientEmail,
		ClientAddress: r.ClientAddress,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		Items:         toRawLineItems(r.Items),
		TaxRate:       taxRate,
		Notes:         r.Notes,
		Status:        r.Status,
	}, nil
}

// UpdateInvoiceRequest is a partial update. Omitted fields keep their value;
// a present but empty items array is rejected.
type UpdateInvoiceRequest struct {
	ClientName    *string           `json:"clientName,omitempty" validate:"omitempty,min=1,max=200"`
	ClientEmail   *string           `json:"clientEmail,omitempty" validate:"omitempty,email"`
	ClientAddress *string           `json:"clientAddress,omitempty" validate:"omitempty,max=500"`
	InvoiceDate   *string           `json:"invoiceDate,omitempty"`
	DueDate       *string           `json:"dueDate,omitempty"`
	Items         []LineItemRequest `json:"items,omitempty" validate:"dive"`
	TaxRate       any               `json:"taxRate,omitempty" swaggertype:"string"`
	Notes         *string           `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func (r *UpdateInvoiceRequest) Validate() error {
	if r.ClientEmail != nil {
		r.ClientEmail = lo.ToPtr(strings.TrimSpace(*r.ClientEmail))
	}
	return validator.ValidateRequest(r)
}

func (r *UpdateInvoiceRequest) ToParams() (invoice.UpdateParams, error) {
	details := make(map[string]any)
	params := invoice.UpdateParams{
		ClientName:    r.ClientName,
		ClientEmail:   r.ClientEmail,
		ClientAddress: r.ClientAddress,
		Notes:         r.Notes,
	}

	if r.InvoiceDate != nil {
		if t, ok := parseDate(*r.InvoiceDate); ok {
			params.InvoiceDate = &t
		} else {
			details["invoiceDate"] = "must be a date (YYYY-MM-DD or RFC3339)"
		}
	}
	if r.DueDate != nil {
		if t, ok := parseDate(*r.DueDate); ok {
			params.DueDate = &t
		} else {
			details["dueDate"] = "must be a date (YYYY-MM-DD or RFC3339)"
		}
	}
	if r.TaxRate != nil {
		if rate, err := parseTaxRate(r.TaxRate); err == nil {
			params.TaxRate = &rate
		} else {
			details["taxRate"] = "must be a number between 0 and 100"
		}
	}
	if r.Items != nil {
		params.Items = toRawLineItems(r.Items)
	}

	if len(details) > 0 {
		return invoice.UpdateParams{}, invalidFields(details)
	}
	return params, nil
}

// UpdateInvoiceStatusRequest moves an invoice through its lifecycle
type UpdateInvoiceStatusRequest struct {
	Status types.InvoiceStatus `json:"status" validate:"required,oneof=draft pending paid"`
}

func (r *UpdateInvoiceStatusRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// InvoiceResponse is the wire form of an invoice
type InvoiceResponse struct {
	*invoice.Invoice
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	if inv == nil {
		return nil
	}
	return &InvoiceResponse{Invoice: inv}
}

// ListInvoicesResponse is one page of invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

func NewListInvoicesResponse(invoices []*invoice.Invoice, total int, filter *types.InvoiceFilter) *ListInvoicesResponse {
	items := lo.Map(invoices, func(inv *invoice.Invoice, _ int) *InvoiceResponse {
		return NewInvoiceResponse(inv)
	})
	resp := types.NewListResponse(items, total, filter.GetPage(), filter.GetLimit())
	return &resp
}

type InvoiceStatisticsResponse struct {
	Statistics invoice.Statistics `json:"statistics"`
}

func toRawLineItems(items []LineItemRequest) []invoice.RawLineItem {
	raw := make([]invoice.RawLineItem, 0, len(items))
	for _, item := range items {
		raw = append(raw, invoice.RawLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		})
	}
	return raw
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseTaxRate accepts anything money.FromInput does. Range checks happen in the domain.
func parseTaxRate(v any) (decimal.Decimal, error) {
	m, err := money.FromInput(v)
	if err != nil {
		return decimal.Zero, err
	}
	return m.Decimal(), nil
}

func invalidFields(details map[string]any) error {
	return ierr.NewError("invalid request fields").
		WithHint("Request validation failed").
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}
