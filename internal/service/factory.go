package service

import (
	"time"

	"github.com/flexprice/invoicing/internal/cache"
	"github.com/flexprice/invoicing/internal/config"
	"github.com/flexprice/invoicing/internal/domain/invoice"
	"github.com/flexprice/invoicing/internal/logger"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Cache  cache.Cache

	// Repositories
	InvoiceRepo invoice.Repository

	// Clock is read when a change is about to be persisted, time.Now when nil
	Clock func() time.Time
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	cache cache.Cache,
	invoiceRepo invoice.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:      logger,
		Config:      config,
		Cache:       cache,
		InvoiceRepo: invoiceRepo,
		Clock:       time.Now,
	}
}

func (p ServiceParams) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock().UTC()
}
