package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/invoicing/internal/domain/invoice"
	"github.com/flexprice/invoicing/internal/types"
)

// CollidingInvoiceStore simulates concurrent writers: for the next N inserts a
// rival invoice grabs the requested number first, so the insert fails with a
// duplicate key and the rival stays in the store.
type CollidingInvoiceStore struct {
	*InMemoryInvoiceStore

	mu         sync.Mutex
	collisions int
	Inserts    int
}

// NewCollidingInvoiceStore makes the next collisions inserts lose their race
func NewCollidingInvoiceStore(collisions int) *CollidingInvoiceStore {
	return &CollidingInvoiceStore{
		InMemoryInvoiceStore: NewInMemoryInvoiceStore(),
		collisions:           collisions,
	}
}

func (s *CollidingInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	s.Inserts++
	collide := s.collisions > 0
	if collide {
		s.collisions--
	}
	s.mu.Unlock()

	if collide {
		rival := inv.Clone()
		rival.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE)
		rival.ClientName = "rival writer"
		if err := s.InMemoryInvoiceStore.Create(ctx, rival); err != nil {
			return err
		}
	}

	return s.InMemoryInvoiceStore.Create(ctx, inv)
}

// Remaining returns how many collisions are still queued
func (s *CollidingInvoiceStore) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collisions
}
