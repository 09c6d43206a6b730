package repository

import (
	"context"
	"fmt"

	"github.com/flexprice/invoicing/internal/config"
	"github.com/flexprice/invoicing/internal/domain/invoice"
	"github.com/flexprice/invoicing/internal/logger"
	"github.com/flexprice/invoicing/internal/mongo"
	"github.com/flexprice/invoicing/internal/postgres"
	mongoRepo "github.com/flexprice/invoicing/internal/repository/mongo"
	postgresRepo "github.com/flexprice/invoicing/internal/repository/postgres"
	"github.com/flexprice/invoicing/internal/types"
	"go.uber.org/fx"
)

// NewInvoiceRepository connects to the store selected by store.type and
// closes the connection when the app stops
func NewInvoiceRepository(lc fx.Lifecycle, cfg *config.Configuration, logger *logger.Logger) (invoice.Repository, error) {
	switch cfg.Store.Type {
	case types.StoreTypeMongo:
		client, err := mongo.NewClient(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				names, err := mongoRepo.EnsureIndexes(ctx, client.DB, cfg.Mongo.Collection)
				if err != nil {
					return fmt.Errorf("ensure invoice indexes: %w", err)
				}
				logger.Infow("invoice indexes ready", "indexes", names)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				client.Close(ctx)
				return nil
			},
		})
		return mongoRepo.NewInvoiceRepository(client.DB, cfg.Mongo.Collection, logger), nil

	case types.StoreTypePostgres:
		db, err := postgres.NewDB(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				db.Close()
				return nil
			},
		})
		return postgresRepo.NewInvoiceRepository(db, logger), nil

	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}
