package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/flexprice/invoicing/internal/config"
	"github.com/flexprice/invoicing/internal/logger"
	"github.com/flexprice/invoicing/internal/mongo"
	"github.com/flexprice/invoicing/internal/postgres"
	mongoRepo "github.com/flexprice/invoicing/internal/repository/mongo"
	postgresRepo "github.com/flexprice/invoicing/internal/repository/postgres"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/joho/godotenv"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the schema or indexes without applying them")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Store.Type {
	case types.StoreTypeMongo:
		if *dryRun {
			logger.Info("Dry run mode - printing invoice indexes without creating them")
			for _, idx := range mongoRepo.InvoiceIndexes() {
				fmt.Printf("%s: %v\n", cfg.Mongo.Collection, idx.Keys)
			}
			break
		}

		logger.Infow("Connecting to mongo", "database", cfg.Mongo.Database)
		client, err := mongo.NewClient(cfg, logger)
		if err != nil {
			logger.Fatalw("Failed to connect to mongo", "error", err)
		}
		defer client.Close(ctx)

		names, err := mongoRepo.EnsureIndexes(ctx, client.DB, cfg.Mongo.Collection)
		if err != nil {
			logger.Fatalw("Failed to create invoice indexes", "error", err)
		}
		logger.Infow("Migration completed successfully", "indexes", names)

	case types.StoreTypePostgres:
		if *dryRun {
			logger.Info("Dry run mode - printing migration SQL without executing")
			fmt.Print(postgresRepo.Schema, "\n")
			break
		}

		logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
		db, err := postgres.NewDB(cfg, logger)
		if err != nil {
			logger.Fatalw("Failed to connect to postgres", "error", err)
		}
		defer db.Close()

		logger.Info("Running database migrations...")
		if err := postgresRepo.EnsureSchema(ctx, db); err != nil {
			logger.Fatalw("Failed to create schema resources", "error", err)
		}
		logger.Info("Migration completed successfully")

	default:
		logger.Fatalf("Unknown store type: %s", cfg.Store.Type)
	}

	fmt.Println("Migration process completed")
}
