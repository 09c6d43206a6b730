package service

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/invoicing/internal/api/dto"
	"github.com/flexprice/invoicing/internal/cache"
	"github.com/flexprice/invoicing/internal/domain/invoice"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// maxUpdateAttempts bounds read-modify-write rounds lost to concurrent writers
const maxUpdateAttempts = 3

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	UpdateInvoiceStatus(ctx context.Context, id string, req dto.UpdateInvoiceStatusRequest) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
	GetStatistics(ctx context.Context) (*dto.InvoiceStatisticsResponse, error)
}

type invoiceService struct {
	ServiceParams
	allocator *invoice.NumberAllocator

	// statsGen is bumped by every write; a statistics snapshot is cached only
	// if no write happened while it was being computed
	statsMu  sync.Mutex
	statsGen uint64
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	s := &invoiceService{ServiceParams: params}

	cfg := invoice.AllocatorConfig{}
	if params.Config != nil {
		cfg = invoice.AllocatorConfig{
			Prefix:          params.Config.Invoice.NumberPrefix,
			MaxAttempts:     params.Config.Invoice.MaxAllocationAttempts,
			InitialInterval: params.Config.Invoice.RetryInitialInterval,
			MaxInterval:     params.Config.Invoice.RetryMaxInterval,
		}
	}

	s.allocator = invoice.NewNumberAllocator(params.InvoiceRepo, cfg, s.now)
	s.allocator.OnRetry = func(attempt int, number string, err error) {
		s.Logger.Warnw("invoice number taken, retrying allocation",
			"attempt", attempt,
			"invoice_number", number,
			"error", err,
		)
	}
	return s
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params, err := req.ToParams()
	if err != nil {
		return nil, err
	}

	draft, err := invoice.New(params)
	if err != nil {
		return nil, err
	}

	var created invoice.Invoice
	_, err = s.allocator.Allocate(ctx, func(ctx context.Context, number string) error {
		// the opening status and its timestamps are decided at insert time
		inv, err := invoice.Open(*draft, number, params.Status, s.now())
		if err != nil {
			return err
		}
		if err := s.InvoiceRepo.Create(ctx, &inv); err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		s.Logger.Errorw("failed to create invoice",
			"error", err,
			"client_email", draft.ClientEmail,
		)
		return nil, err
	}

	s.invalidateStatistics(ctx)
	s.Logger.Infow("created invoice",
		"invoice_id", created.ID,
		"invoice_number", created.InvoiceNumber,
		"status", created.Status,
		"total", created.Total.String(),
	)

	return dto.NewInvoiceResponse(&created), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewDefaultInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewListInvoicesResponse(invoices, count, filter), nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params, err := req.ToParams()
	if err != nil {
		return nil, err
	}

	updated, err := s.modify(ctx, id, func(inv invoice.Invoice, now time.Time) (invoice.Invoice, bool, error) {
		next, err := invoice.ApplyUpdate(inv, params, now)
		return next, true, err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("updated invoice",
		"invoice_id", updated.ID,
		"total", updated.Total.String(),
		"version", updated.Version,
	)
	return dto.NewInvoiceResponse(updated), nil
}

func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, id string, req dto.UpdateInvoiceStatusRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var from types.InvoiceStatus
	updated, err := s.modify(ctx, id, func(inv invoice.Invoice, now time.Time) (invoice.Invoice, bool, error) {
		from = inv.Status
		next, err := invoice.Transition(inv, req.Status, now)
		if err != nil {
			return inv, false, err
		}
		if !statusChanged(&inv, &next) {
			return inv, false, nil
		}
		next.UpdatedAt = now
		return next, true, nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("updated invoice status",
		"invoice_id", updated.ID,
		"from", from,
		"to", updated.Status,
	)
	return dto.NewInvoiceResponse(updated), nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.InvoiceRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateStatistics(ctx)
	s.Logger.Infow("deleted invoice", "invoice_id", id)
	return nil
}

func (s *invoiceService) GetStatistics(ctx context.Context) (*dto.InvoiceStatisticsResponse, error) {
	key := cache.GenerateKey(cache.PrefixInvoiceStatistics, "all")
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, key); ok {
			if stats, ok := cached.(invoice.Statistics); ok {
				return &dto.InvoiceStatisticsResponse{Statistics: stats}, nil
			}
		}
	}

	gen := s.statisticsGeneration()

	var (
		stats invoice.Statistics
		p     = pool.New().WithErrors().WithContext(ctx)
	)

	count := func(dst *int, status string) {
		p.Go(func(ctx context.Context) error {
			n, err := s.InvoiceRepo.Count(ctx, &types.InvoiceFilter{Status: status})
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&stats.Total, types.InvoiceStatusAll)
	count(&stats.Draft, string(types.InvoiceStatusDraft))
	count(&stats.Pending, string(types.InvoiceStatusPending))
	count(&stats.Paid, string(types.InvoiceStatusPaid))

	p.Go(func(ctx context.Context) error {
		revenue, err := s.InvoiceRepo.SumTotal(ctx, types.InvoiceStatusPaid)
		if err != nil {
			return err
		}
		stats.Revenue = revenue
		return nil
	})

	if err := p.Wait(); err != nil {
		return nil, err
	}
	s.cacheStatistics(ctx, key, gen, stats)
	return &dto.InvoiceStatisticsResponse{Statistics: stats}, nil
}

// modify runs a read-modify-write of one invoice. fn reports whether anything
// changed; unchanged invoices are not written. A version conflict means another
// request saved first, so the invoice is read again and fn reapplied.
func (s *invoiceService) modify(
	ctx context.Context,
	id string,
	fn func(inv invoice.Invoice, now time.Time) (invoice.Invoice, bool, error),
) (*invoice.Invoice, error) {
	var result *invoice.Invoice

	op := func() error {
		current, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}

		next, changed, err := fn(*current, s.now())
		if err != nil {
			return backoff.Permanent(err)
		}
		if !changed {
			result = current
			return nil
		}

		if err := s.InvoiceRepo.Update(ctx, &next); err != nil {
			if ierr.IsVersionConflict(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		result = &next
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxUpdateAttempts-1), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if ierr.IsVersionConflict(err) {
			s.Logger.Warnw("giving up on contended invoice", "invoice_id", id, "error", err)
		}
		return nil, err
	}

	s.invalidateStatistics(ctx)
	return result, nil
}

// statusChanged is false for lifecycle no-ops such as paid -> paid
func statusChanged(a, b *invoice.Invoice) bool {
	return a.Status != b.Status ||
		!timesEqual(a.SentAt, b.SentAt) ||
		!timesEqual(a.PaidAt, b.PaidAt)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (s *invoiceService) invalidateStatistics(ctx context.Context) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	s.statsGen++
	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, cache.PrefixInvoiceStatistics)
	}
}

func (s *invoiceService) statisticsGeneration() uint64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.statsGen
}

// cacheStatistics stores stats unless a write invalidated them after gen was read
func (s *invoiceService) cacheStatistics(ctx context.Context, key string, gen uint64, stats invoice.Statistics) {
	if s.Cache == nil {
		return
	}

	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	if s.statsGen != gen {
		s.Logger.Debugw("skipping stale invoice statistics", "generation", gen, "current", s.statsGen)
		return
	}
	s.Cache.Set(ctx, key, stats, s.statisticsTTL())
}

func (s *invoiceService) statisticsTTL() time.Duration {
	if s.Config == nil {
		return 0
	}
	return s.Config.Cache.StatisticsTTL
}
