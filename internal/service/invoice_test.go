package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flexprice/invoicing/internal/api/dto"
	"github.com/flexprice/invoicing/internal/domain/invoice"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/testutil"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
}

func (s *InvoiceServiceSuite) setupService() {
	s.service = NewInvoiceService(ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		Cache:       s.GetCache(),
		InvoiceRepo: s.GetStores().InvoiceRepo,
		Clock:       s.GetClock().Now,
	})
}

func (s *InvoiceServiceSuite) createRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		ClientName:    "Acme Corp",
		ClientEmail:   " Billing@Acme.test ",
		ClientAddress: "1 Main St",
		InvoiceDate:   "2024-01-15",
		DueDate:       "2024-02-14",
		Items: []dto.LineItemRequest{
			{Description: "Consulting", Quantity: 3, Rate: "33.33"},
			{Description: "Hosting", Quantity: "1", Rate: 0.01},
		},
		TaxRate: 10,
	}
}

func (s *InvoiceServiceSuite) mustCreate(req dto.CreateInvoiceRequest) *dto.InvoiceResponse {
	resp, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) setStatus(id string, status types.InvoiceStatus) (*dto.InvoiceResponse, error) {
	return s.service.UpdateInvoiceStatus(s.GetContext(), id, dto.UpdateInvoiceStatusRequest{Status: status})
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	resp := s.mustCreate(s.createRequest())

	s.Equal("INV-202401-0001", resp.InvoiceNumber)
	s.Equal(types.InvoiceStatusDraft, resp.Status)
	s.Equal("billing@acme.test", resp.ClientEmail)
	s.Equal(1, resp.Version)
	s.Nil(resp.SentAt)
	s.Nil(resp.PaidAt)
	s.True(resp.CreatedAt.Equal(s.GetClock().Now()))

	s.Require().Len(resp.Items, 2)
	s.Equal("99.99", resp.Items[0].Amount.String())
	s.Equal("0.01", resp.Items[1].Amount.String())
	s.Equal("100.00", resp.Subtotal.String())
	s.Equal("10.00", resp.TaxAmount.String())
	s.Equal("110.00", resp.Total.String())

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(resp.InvoiceNumber, stored.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceAsPending() {
	req := s.createRequest()
	req.Status = types.InvoiceStatusPending

	resp := s.mustCreate(req)
	s.Equal(types.InvoiceStatusPending, resp.Status)
	s.Require().NotNil(resp.SentAt)
	s.True(resp.SentAt.Equal(s.GetClock().Now()))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceValidation() {
	tests := []struct {
		name    string
		mutate  func(r *dto.CreateInvoiceRequest)
		checkFn func(err error) bool
	}{
		{
			name:    "missing client name",
			mutate:  func(r *dto.CreateInvoiceRequest) { r.ClientName = "" },
			checkFn: ierr.IsValidation,
		},
		{
			name:    "bad email",
			mutate:  func(r *dto.CreateInvoiceRequest) { r.ClientEmail = "not-an-email" },
			checkFn: ierr.IsValidation,
		},
		{
			name:    "bad date",
			mutate:  func(r *dto.CreateInvoiceRequest) { r.InvoiceDate = "15/01/2024" },
			checkFn: ierr.IsValidation,
		},
		{
			name: "due before invoice date",
			mutate: func(r *dto.CreateInvoiceRequest) {
				r.InvoiceDate = "2024-02-01"
				r.DueDate = "2024-01-01"
			},
			checkFn: ierr.IsValidation,
		},
		{
			name:    "no items",
			mutate:  func(r *dto.CreateInvoiceRequest) { r.Items = nil },
			checkFn: func(err error) bool { return ierr.Is(err, invoice.ErrNoLineItems) },
		},
		{
			name: "zero quantity",
			mutate: func(r *dto.CreateInvoiceRequest) {
				r.Items = []dto.LineItemRequest{{Description: "x", Quantity: 0, Rate: 1}}
			},
			checkFn: func(err error) bool { return ierr.Is(err, invoice.ErrInvalidLineItem) },
		},
		{
			name:    "tax rate above 100",
			mutate:  func(r *dto.CreateInvoiceRequest) { r.TaxRate = "100.5" },
			checkFn: func(err error) bool { return ierr.Is(err, invoice.ErrInvalidAmount) },
		},
		{
			name:    "opened as paid",
			mutate:  func(r *dto.CreateInvoiceRequest) { r.Status = types.InvoiceStatusPaid },
			checkFn: func(err error) bool { return ierr.Is(err, invoice.ErrInvalidTransition) },
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.createRequest()
			tt.mutate(&req)

			_, err := s.service.CreateInvoice(s.GetContext(), req)
			s.Require().Error(err)
			s.True(tt.checkFn(err), "unexpected error: %v", err)
		})
	}

	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), &types.InvoiceFilter{})
	s.NoError(err)
	s.Zero(count)
}

func (s *InvoiceServiceSuite) TestInvoiceNumbering() {
	s.Equal("INV-202401-0001", s.mustCreate(s.createRequest()).InvoiceNumber)
	s.Equal("INV-202401-0002", s.mustCreate(s.createRequest()).InvoiceNumber)

	s.GetClock().Set(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	s.Equal("INV-202402-0001", s.mustCreate(s.createRequest()).InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceRetriesOnCollision() {
	store := testutil.NewCollidingInvoiceStore(2)
	s.SetInvoiceRepo(store)
	s.setupService()

	resp := s.mustCreate(s.createRequest())

	s.Equal("INV-202401-0003", resp.InvoiceNumber)
	s.Equal(3, store.Inserts)
	s.Zero(store.Remaining())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceAllocationExhausted() {
	store := testutil.NewCollidingInvoiceStore(10)
	s.SetInvoiceRepo(store)
	s.setupService()

	_, err := s.service.CreateInvoice(s.GetContext(), s.createRequest())
	s.Require().Error(err)
	s.True(ierr.Is(err, invoice.ErrAllocationExhausted))
	s.True(ierr.IsUnavailable(err))
	s.Equal(s.GetConfig().Invoice.MaxAllocationAttempts, store.Inserts)
}

func (s *InvoiceServiceSuite) TestConcurrentCreatesGetDistinctNumbers() {
	const writers = 5

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.service.CreateInvoice(s.GetContext(), s.createRequest())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, resp.InvoiceNumber)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		s.True(ierr.IsUnavailable(err), "unexpected error: %v", err)
	}
	s.Len(lo.Uniq(numbers), len(numbers))
	s.NotEmpty(numbers)
}

func (s *InvoiceServiceSuite) TestGetInvoice() {
	created := s.mustCreate(s.createRequest())

	got, err := s.service.GetInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(created.InvoiceNumber, got.InvoiceNumber)
	s.Equal("110.00", got.Total.String())

	_, err = s.service.GetInvoice(s.GetContext(), "inv_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestListInvoices() {
	names := []string{"Acme Corp", "Globex", "Initech"}
	for _, name := range names {
		req := s.createRequest()
		req.ClientName = name
		s.mustCreate(req)
		s.GetClock().Advance(time.Minute)
	}
	pending := s.mustCreate(s.createRequest())
	_, err := s.setStatus(pending.ID, types.InvoiceStatusPending)
	s.Require().NoError(err)

	tests := []struct {
		name      string
		filter    *types.InvoiceFilter
		wantCount int
		wantTotal int
		wantPages int
		first     string
	}{
		{
			name:      "defaults",
			filter:    nil,
			wantCount: 4,
			wantTotal: 4,
			wantPages: 1,
			first:     pending.InvoiceNumber,
		},
		{
			name:      "status filter",
			filter:    &types.InvoiceFilter{Status: "pending"},
			wantCount: 1,
			wantTotal: 1,
			wantPages: 1,
			first:     pending.InvoiceNumber,
		},
		{
			name:      "status all",
			filter:    &types.InvoiceFilter{Status: "all", Limit: 2},
			wantCount: 2,
			wantTotal: 4,
			wantPages: 2,
		},
		{
			name:      "search is case insensitive",
			filter:    &types.InvoiceFilter{Search: "GLOBEX"},
			wantCount: 1,
			wantTotal: 1,
			wantPages: 1,
		},
		{
			name:      "search treats regex literally",
			filter:    &types.InvoiceFilter{Search: "Acme.*"},
			wantCount: 0,
			wantTotal: 0,
			wantPages: 0,
		},
		{
			name:      "sort by invoice number ascending",
			filter:    &types.InvoiceFilter{SortBy: types.SortByInvoiceNumber, Order: types.OrderAsc, Limit: 1},
			wantCount: 1,
			wantTotal: 4,
			wantPages: 4,
			first:     "INV-202401-0001",
		},
		{
			name:      "page past the end",
			filter:    &types.InvoiceFilter{Page: 3, Limit: 2},
			wantCount: 0,
			wantTotal: 4,
			wantPages: 2,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.service.ListInvoices(s.GetContext(), tt.filter)
			s.Require().NoError(err)
			s.Len(resp.Items, tt.wantCount)
			s.Equal(tt.wantTotal, resp.Pagination.Total)
			s.Equal(tt.wantPages, resp.Pagination.Pages)
			if tt.first != "" {
				s.Require().NotEmpty(resp.Items)
				s.Equal(tt.first, resp.Items[0].InvoiceNumber)
			}
		})
	}

	_, err = s.service.ListInvoices(s.GetContext(), &types.InvoiceFilter{SortBy: "password"})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice() {
	created := s.mustCreate(s.createRequest())
	s.GetClock().Advance(time.Hour)

	resp, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		ClientName: lo.ToPtr("Acme Holdings"),
		TaxRate:    "20",
	})
	s.Require().NoError(err)

	s.Equal("Acme Holdings", resp.ClientName)
	s.Equal("100.00", resp.Subtotal.String())
	s.Equal("20.00", resp.TaxAmount.String())
	s.Equal("120.00", resp.Total.String())
	s.Equal(2, resp.Version)
	s.Equal(created.InvoiceNumber, resp.InvoiceNumber)
	s.True(resp.UpdatedAt.Equal(s.GetClock().Now()))

	resp, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Items: []dto.LineItemRequest{{Description: "Audit", Quantity: "2", Rate: "50"}},
	})
	s.Require().NoError(err)
	s.Len(resp.Items, 1)
	s.Equal("120.00", resp.Total.String())
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceRejections() {
	created := s.mustCreate(s.createRequest())

	_, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		DueDate: lo.ToPtr("2024-01-01"),
	})
	s.True(ierr.IsValidation(err), "due date before invoice date: %v", err)

	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Items: []dto.LineItemRequest{},
	})
	s.True(ierr.Is(err, invoice.ErrNoLineItems))

	_, err = s.service.UpdateInvoice(s.GetContext(), "inv_missing", dto.UpdateInvoiceRequest{
		Notes: lo.ToPtr("hello"),
	})
	s.True(ierr.IsNotFound(err))

	_, err = s.setStatus(created.ID, types.InvoiceStatusPending)
	s.Require().NoError(err)
	_, err = s.setStatus(created.ID, types.InvoiceStatusPaid)
	s.Require().NoError(err)

	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Notes: lo.ToPtr("late edit"),
	})
	s.True(ierr.Is(err, invoice.ErrInvoiceLocked))
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceStatus() {
	created := s.mustCreate(s.createRequest())

	_, err := s.setStatus(created.ID, types.InvoiceStatusPaid)
	s.True(ierr.Is(err, invoice.ErrInvalidTransition))

	s.GetClock().Advance(time.Hour)
	sentAt := s.GetClock().Now()
	pending, err := s.setStatus(created.ID, types.InvoiceStatusPending)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPending, pending.Status)
	s.Require().NotNil(pending.SentAt)
	s.True(pending.SentAt.Equal(sentAt))

	s.GetClock().Advance(time.Hour)
	again, err := s.setStatus(created.ID, types.InvoiceStatusPending)
	s.Require().NoError(err)
	s.True(again.SentAt.Equal(sentAt))
	s.Equal(pending.Version, again.Version)

	_, err = s.setStatus(created.ID, types.InvoiceStatusDraft)
	s.True(ierr.Is(err, invoice.ErrInvalidTransition))

	paidAt := s.GetClock().Now()
	paid, err := s.setStatus(created.ID, types.InvoiceStatusPaid)
	s.Require().NoError(err)
	s.Require().NotNil(paid.PaidAt)
	s.True(paid.PaidAt.Equal(paidAt))

	s.GetClock().Advance(time.Hour)
	paidAgain, err := s.setStatus(created.ID, types.InvoiceStatusPaid)
	s.Require().NoError(err)
	s.True(paidAgain.PaidAt.Equal(paidAt))
	s.Equal(paid.Version, paidAgain.Version)

	_, err = s.setStatus(created.ID, types.InvoiceStatusPending)
	s.True(ierr.Is(err, invoice.ErrInvoiceLocked))

	_, err = s.setStatus(created.ID, "void")
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateRetriesOnVersionConflict() {
	store := &racingStore{InMemoryInvoiceStore: testutil.NewInMemoryInvoiceStore(), races: 1}
	s.SetInvoiceRepo(store)
	s.setupService()

	created := s.mustCreate(s.createRequest())

	resp, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Notes: lo.ToPtr("net 30"),
	})
	s.Require().NoError(err)
	s.Equal("net 30", resp.Notes)
	s.Equal(3, resp.Version)
	s.Equal("rival", resp.ClientAddress)
}

func (s *InvoiceServiceSuite) TestDeleteInvoice() {
	created := s.mustCreate(s.createRequest())

	s.NoError(s.service.DeleteInvoice(s.GetContext(), created.ID))

	_, err := s.service.GetInvoice(s.GetContext(), created.ID)
	s.True(ierr.IsNotFound(err))

	err = s.service.DeleteInvoice(s.GetContext(), created.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestGetStatistics() {
	empty, err := s.service.GetStatistics(s.GetContext())
	s.Require().NoError(err)
	s.Zero(empty.Statistics.Total)
	s.Equal("0.00", empty.Statistics.Revenue.String())

	first := s.mustCreate(s.createRequest())
	second := s.mustCreate(s.createRequest())
	s.mustCreate(s.createRequest())

	for _, id := range []string{first.ID, second.ID} {
		_, err := s.setStatus(id, types.InvoiceStatusPending)
		s.Require().NoError(err)
	}
	_, err = s.setStatus(first.ID, types.InvoiceStatusPaid)
	s.Require().NoError(err)

	stats, err := s.service.GetStatistics(s.GetContext())
	s.Require().NoError(err)
	s.Equal("110.00", stats.Statistics.Revenue.String())
	s.Equal(3, stats.Statistics.Total)
	s.Equal(1, stats.Statistics.Draft)
	s.Equal(1, stats.Statistics.Pending)
	s.Equal(1, stats.Statistics.Paid)

	// writes invalidate the cached figures
	s.NoError(s.service.DeleteInvoice(s.GetContext(), second.ID))
	stats, err = s.service.GetStatistics(s.GetContext())
	s.Require().NoError(err)
	s.Equal(2, stats.Statistics.Total)
	s.Zero(stats.Statistics.Pending)
}

func (s *InvoiceServiceSuite) TestGetStatisticsIgnoresSnapshotOlderThanWrite() {
	store := &pausingCountStore{
		InMemoryInvoiceStore: testutil.NewInMemoryInvoiceStore(),
		release:              make(chan struct{}),
	}
	// total, draft, pending and paid
	store.reads.Add(4)
	store.paused.Store(true)
	s.SetInvoiceRepo(store)
	s.setupService()

	done := make(chan *dto.InvoiceStatisticsResponse)
	go func() {
		stats, err := s.service.GetStatistics(s.GetContext())
		s.NoError(err)
		done <- stats
	}()

	// every count is read, the snapshot is not cached yet
	store.reads.Wait()
	store.paused.Store(false)
	s.mustCreate(s.createRequest())
	close(store.release)

	stale := <-done
	s.Zero(stale.Statistics.Total)

	stats, err := s.service.GetStatistics(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, stats.Statistics.Total)
	s.Equal(1, stats.Statistics.Draft)
}

// pausingCountStore holds Count calls after they read until release is closed
type pausingCountStore struct {
	*testutil.InMemoryInvoiceStore
	paused  atomic.Bool
	reads   sync.WaitGroup
	release chan struct{}
}

func (p *pausingCountStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	n, err := p.InMemoryInvoiceStore.Count(ctx, filter)
	if p.paused.Load() {
		p.reads.Done()
		<-p.release
	}
	return n, err
}

// racingStore lets a rival writer save right before the next Update
type racingStore struct {
	*testutil.InMemoryInvoiceStore
	races int
}

func (r *racingStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if r.races > 0 {
		r.races--
		rival, err := r.InMemoryInvoiceStore.Get(ctx, inv.ID)
		if err != nil {
			return err
		}
		rival.ClientAddress = "rival"
		if err := r.InMemoryInvoiceStore.Update(ctx, rival); err != nil {
			return err
		}
	}
	return r.InMemoryInvoiceStore.Update(ctx, inv)
}
