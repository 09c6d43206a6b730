package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	_ "github.com/flexprice/invoicing/docs/swagger"
	"github.com/flexprice/invoicing/internal/api"
	v1 "github.com/flexprice/invoicing/internal/api/v1"
	"github.com/flexprice/invoicing/internal/cache"
	"github.com/flexprice/invoicing/internal/config"
	"github.com/flexprice/invoicing/internal/logger"
	"github.com/flexprice/invoicing/internal/repository"
	"github.com/flexprice/invoicing/internal/sentry"
	"github.com/flexprice/invoicing/internal/service"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/flexprice/invoicing/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// @title Invoicing API
// @version 1.0
// @description Invoice management service
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// .env is optional; real deployments pass INVOICING_* variables directly
	_ = godotenv.Load()

	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,
			cache.ProvideCache,

			// Store
			repository.NewInvoiceRepository,
		),
		sentry.Module(),
	)

	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewInvoiceService,
		),
	)

	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	invoiceService service.InvoiceService,
) api.Handlers {
	return api.Handlers{
		Invoice: v1.NewInvoiceHandler(invoiceService, logger),
		Health:  v1.NewHealthHandler(logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger, c cache.Cache) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger, c)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address, "store", cfg.Store.Type)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
