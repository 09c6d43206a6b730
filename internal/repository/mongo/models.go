package mongo

import (
	"time"

	"github.com/flexprice/invoicing/internal/domain/invoice"
	"github.com/flexprice/invoicing/internal/money"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Monetary fields are Decimal128 so $sum aggregates stay exact
type invoiceDocument struct {
	ID            string             `bson:"_id"`
	InvoiceNumber string             `bson:"invoiceNumber"`
	ClientName    string             `bson:"clientName"`
	ClientEmail   string             `bson:"clientEmail"`
	ClientAddress string             `bson:"clientAddress"`
	InvoiceDate   time.Time          `bson:"invoiceDate"`
	DueDate       time.Time          `bson:"dueDate"`
	Items         []lineItemDocument `bson:"items"`
	Subtotal      bson.Decimal128    `bson:"subtotal"`
	TaxRate       bson.Decimal128    `bson:"taxRate"`
	TaxAmount     bson.Decimal128    `bson:"taxAmount"`
	Total         bson.Decimal128    `bson:"total"`
	Notes         string             `bson:"notes,omitempty"`
	Status        string             `bson:"status"`
	SentAt        *time.Time         `bson:"sentAt,omitempty"`
	PaidAt        *time.Time         `bson:"paidAt,omitempty"`
	Version       int                `bson:"version"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

type lineItemDocument struct {
	Description string          `bson:"description"`
	Quantity    bson.Decimal128 `bson:"quantity"`
	Rate        bson.Decimal128 `bson:"rate"`
	Amount      bson.Decimal128 `bson:"amount"`
}

func toDecimal128(s string) (bson.Decimal128, error) {
	return bson.ParseDecimal128(s)
}

func toDocument(inv *invoice.Invoice) (*invoiceDocument, error) {
	var firstErr error
	dec := func(s string) bson.Decimal128 {
		d, err := toDecimal128(s)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return d
	}

	doc := &invoiceDocument{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		ClientEmail:   inv.ClientEmail,
		ClientAddress: inv.ClientAddress,
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		Items: lo.Map(inv.Items, func(item invoice.LineItem, _ int) lineItemDocument {
			return lineItemDocument{
				Description: item.Description,
				Quantity:    dec(item.Quantity.String()),
				Rate:        dec(item.Rate.String()),
				Amount:      dec(item.Amount.String()),
			}
		}),
		Subtotal:  dec(inv.Subtotal.String()),
		TaxRate:   dec(inv.TaxRate.StringFixed(money.Precision)),
		TaxAmount: dec(inv.TaxAmount.String()),
		Total:     dec(inv.Total.String()),
		Notes:     inv.Notes,
		Status:    string(inv.Status),
		SentAt:    inv.SentAt,
		PaidAt:    inv.PaidAt,
		Version:   inv.Version,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
	return doc, firstErr
}

func (d *invoiceDocument) toDomain() (*invoice.Invoice, error) {
	var firstErr error
	amount := func(v bson.Decimal128) money.Money {
		m, err := money.FromInput(v.String())
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return m
	}

	taxRate, err := decimal.NewFromString(d.TaxRate.String())
	if err != nil {
		return nil, err
	}

	inv := &invoice.Invoice{
		ID:            d.ID,
		InvoiceNumber: d.InvoiceNumber,
		ClientName:    d.ClientName,
		ClientEmail:   d.ClientEmail,
		ClientAddress: d.ClientAddress,
		InvoiceDate:   d.InvoiceDate.UTC(),
		DueDate:       d.DueDate.UTC(),
		Items: lo.Map(d.Items, func(item lineItemDocument, _ int) invoice.LineItem {
			return invoice.LineItem{
				Description: item.Description,
				Quantity:    amount(item.Quantity),
				Rate:        amount(item.Rate),
				Amount:      amount(item.Amount),
			}
		}),
		Subtotal:  amount(d.Subtotal),
		TaxRate:   taxRate,
		TaxAmount: amount(d.TaxAmount),
		Total:     amount(d.Total),
		Notes:     d.Notes,
		Status:    types.InvoiceStatus(d.Status),
		SentAt:    utcPtr(d.SentAt),
		PaidAt:    utcPtr(d.PaidAt),
		Version:   d.Version,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return inv, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return lo.ToPtr(t.UTC())
}
