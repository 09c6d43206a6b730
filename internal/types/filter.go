package types

import (
	"fmt"

	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/samber/lo"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	OrderAsc  = "asc"
	OrderDesc = "desc"

	// InvoiceStatusAll disables status filtering on list queries
	InvoiceStatusAll = "all"
)

// Sortable invoice fields, named as they appear on the wire
const (
	SortByCreatedAt     = "createdAt"
	SortByUpdatedAt     = "updatedAt"
	SortByInvoiceDate   = "invoiceDate"
	SortByDueDate       = "dueDate"
	SortByInvoiceNumber = "invoiceNumber"
	SortByClientName    = "clientName"
	SortByTotal         = "total"
	SortByStatus        = "status"
)

var InvoiceSortFields = []string{
	SortByCreatedAt,
	SortByUpdatedAt,
	SortByInvoiceDate,
	SortByDueDate,
	SortByInvoiceNumber,
	SortByClientName,
	SortByTotal,
	SortByStatus,
}

// Paginator is implemented by filters that page their results
type Paginator interface {
	GetLimit() int
	GetOffset() int
}

// InvoiceFilter holds list query parameters. Zero values fall back to defaults.
type InvoiceFilter struct {
	Status string `json:"status,omitempty" form:"status" validate:"omitempty,oneof=draft pending paid all"`
	Search string `json:"search,omitempty" form:"search" validate:"omitempty,max=200"`
	Page   int    `json:"page,omitempty" form:"page" validate:"omitempty,min=1"`
	Limit  int    `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=100"`
	SortBy string `json:"sortBy,omitempty" form:"sortBy"`
	Order  string `json:"order,omitempty" form:"order" validate:"omitempty,oneof=asc desc"`
}

// NewDefaultInvoiceFilter returns the first page of all invoices, newest first
func NewDefaultInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		Page:   DefaultPage,
		Limit:  DefaultLimit,
		SortBy: SortByCreatedAt,
		Order:  OrderDesc,
	}
}

func (f InvoiceFilter) GetPage() int {
	if f.Page < 1 {
		return DefaultPage
	}
	return f.Page
}

func (f InvoiceFilter) GetLimit() int {
	if f.Limit < 1 {
		return DefaultLimit
	}
	return lo.Min([]int{f.Limit, MaxLimit})
}

func (f InvoiceFilter) GetOffset() int {
	return (f.GetPage() - 1) * f.GetLimit()
}

func (f InvoiceFilter) GetSortBy() string {
	if f.SortBy == "" {
		return SortByCreatedAt
	}
	return f.SortBy
}

func (f InvoiceFilter) GetOrder() string {
	if f.Order == "" {
		return OrderDesc
	}
	return f.Order
}

// GetStatus returns the status to filter on, nil when every status matches
func (f InvoiceFilter) GetStatus() *InvoiceStatus {
	if f.Status == "" || f.Status == InvoiceStatusAll {
		return nil
	}
	return lo.ToPtr(InvoiceStatus(f.Status))
}

func (f InvoiceFilter) Validate() error {
	details := make(map[string]any)

	if f.Status != "" && f.Status != InvoiceStatusAll {
		if err := InvoiceStatus(f.Status).Validate(); err != nil {
			details["status"] = fmt.Sprintf("must be one of %v or %q", InvoiceStatuses, InvoiceStatusAll)
		}
	}
	if f.Page < 0 {
		details["page"] = "must be a positive integer"
	}
	if f.Limit < 0 || f.Limit > MaxLimit {
		details["limit"] = fmt.Sprintf("must be between 1 and %d", MaxLimit)
	}
	if f.SortBy != "" && !lo.Contains(InvoiceSortFields, f.SortBy) {
		details["sortBy"] = fmt.Sprintf("must be one of %v", InvoiceSortFields)
	}
	if f.Order != "" && f.Order != OrderAsc && f.Order != OrderDesc {
		details["order"] = "must be either 'asc' or 'desc'"
	}

	if len(details) > 0 {
		return ierr.NewError("invalid invoice filter").
			WithHint("Invalid list parameters").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
