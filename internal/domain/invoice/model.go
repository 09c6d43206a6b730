package invoice

import (
	"time"

	"github.com/flexprice/invoicing/internal/money"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is the invoice aggregate. Subtotal, TaxAmount and Total are always
// derived from Items and TaxRate and are never taken from input.
type Invoice struct {
	ID            string              `json:"id"`
	InvoiceNumber string              `json:"invoiceNumber"`
	ClientName    string              `json:"clientName"`
	ClientEmail   string              `json:"clientEmail"`
	ClientAddress string              `json:"clientAddress"`
	InvoiceDate   time.Time           `json:"invoiceDate"`
	DueDate       time.Time           `json:"dueDate"`
	Items         []LineItem          `json:"items"`
	Subtotal      money.Money         `json:"subtotal"`
	TaxRate       decimal.Decimal     `json:"taxRate"`
	TaxAmount     money.Money         `json:"taxAmount"`
	Total         money.Money         `json:"total"`
	Notes         string              `json:"notes,omitempty"`
	Status        types.InvoiceStatus `json:"status"`
	SentAt        *time.Time          `json:"sentAt,omitempty"`
	PaidAt        *time.Time          `json:"paidAt,omitempty"`
	Version       int                 `json:"version"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// LineItem is one billable entry. Amount is quantity × rate.
type LineItem struct {
	Description string      `json:"description"`
	Quantity    money.Money `json:"quantity"`
	Rate        money.Money `json:"rate"`
	Amount      money.Money `json:"amount"`
}

// IsPaid reports whether the invoice reached its terminal status
func (i *Invoice) IsPaid() bool {
	return i.Status == types.InvoiceStatusPaid
}

// Clone returns a deep copy
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	c := *i
	c.Items = append([]LineItem(nil), i.Items...)
	if i.SentAt != nil {
		t := *i.SentAt
		c.SentAt = &t
	}
	if i.PaidAt != nil {
		t := *i.PaidAt
		c.PaidAt = &t
	}
	return &c
}

// Statistics summarises the invoice book
type Statistics struct {
	Total   int         `json:"total"`
	Draft   int         `json:"draft"`
	Pending int         `json:"pending"`
	Paid    int         `json:"paid"`
	Revenue money.Money `json:"revenue"`
}
