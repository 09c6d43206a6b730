package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/flexprice/invoicing/internal/domain/invoice"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/money"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository with a unique index on the invoice number
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	// mu serialises writes so the number index and the items never disagree
	mu      sync.Mutex
	numbers map[string]string
}

var _ invoice.Repository = (*InMemoryInvoiceStore)(nil)

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		numbers:       make(map[string]string),
	}
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.numbers[inv.InvoiceNumber]; taken {
		return invoice.NewDuplicateKeyError(inv.InvoiceNumber, nil)
	}
	if err := s.InMemoryStore.Create(ctx, inv.ID, inv.Clone()); err != nil {
		return err
	}
	s.numbers[inv.InvoiceNumber] = inv.ID
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, invoice.NewNotFoundError(id)
	}
	return inv.Clone(), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.InMemoryStore.Get(ctx, inv.ID)
	if err != nil {
		return invoice.NewNotFoundError(inv.ID)
	}
	if existing.Version != inv.Version {
		return ierr.NewErrorf("invoice %s version %d is stale, stored version is %d", inv.ID, inv.Version, existing.Version).
			WithHint("The invoice was modified concurrently, please reload it").
			Mark(ierr.ErrVersionConflict)
	}

	inv.Version++
	return s.InMemoryStore.Update(ctx, inv.ID, inv.Clone())
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return invoice.NewNotFoundError(id)
	}
	delete(s.numbers, existing.InvoiceNumber)
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewDefaultInvoiceFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn(filter))
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return inv.Clone()
	}), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = &types.InvoiceFilter{}
	}
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (s *InMemoryInvoiceStore) FindMaxInvoiceNumberWithPrefix(ctx context.Context, prefix string) (*string, error) {
	var max *string
	s.Each(func(inv *invoice.Invoice) {
		if !strings.HasPrefix(inv.InvoiceNumber, prefix) {
			return
		}
		if max == nil || inv.InvoiceNumber > *max {
			max = lo.ToPtr(inv.InvoiceNumber)
		}
	})
	return max, nil
}

func (s *InMemoryInvoiceStore) SumTotal(ctx context.Context, status types.InvoiceStatus) (money.Money, error) {
	total := money.Zero
	s.Each(func(inv *invoice.Invoice) {
		if inv.Status == status {
			total = total.Add(inv.Total)
		}
	})
	return total, nil
}

// Clear removes every invoice and number reservation
func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InMemoryStore.Clear()
	s.numbers = make(map[string]string)
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok {
		return true
	}

	if status := f.GetStatus(); status != nil && inv.Status != *status {
		return false
	}

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := []string{inv.ClientName, inv.ClientEmail, inv.InvoiceNumber}
		if !lo.SomeBy(haystack, func(v string) bool {
			return strings.Contains(strings.ToLower(v), needle)
		}) {
			return false
		}
	}

	return true
}

func invoiceSortFn(filter *types.InvoiceFilter) SortFunc[*invoice.Invoice] {
	desc := filter.GetOrder() == types.OrderDesc
	return func(i, j *invoice.Invoice) bool {
		c := compareInvoices(i, j, filter.GetSortBy())
		if c == 0 {
			c = strings.Compare(i.ID, j.ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	}
}

func compareInvoices(a, b *invoice.Invoice, field string) int {
	switch field {
	case types.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case types.SortByInvoiceDate:
		return a.InvoiceDate.Compare(b.InvoiceDate)
	case types.SortByDueDate:
		return a.DueDate.Compare(b.DueDate)
	case types.SortByInvoiceNumber:
		return strings.Compare(a.InvoiceNumber, b.InvoiceNumber)
	case types.SortByClientName:
		return strings.Compare(a.ClientName, b.ClientName)
	case types.SortByTotal:
		return a.Total.Cmp(b.Total)
	case types.SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
