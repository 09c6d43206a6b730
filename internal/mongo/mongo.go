package mongo

import (
	"context"
	"time"

	"github.com/flexprice/invoicing/internal/config"
	"github.com/flexprice/invoicing/internal/logger"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const defaultTimeout = 10 * time.Second

// Client holds the connected client and the configured database
type Client struct {
	*mongo.Client
	DB      *mongo.Database
	timeout time.Duration
	logger  *logger.Logger
}

// NewClient connects and pings the configured deployment
func NewClient(cfg *config.Configuration, logger *logger.Logger) (*Client, error) {
	timeout := cfg.Mongo.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetTimeout(timeout))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Infow("connected to mongo", "database", cfg.Mongo.Database)

	return &Client{
		Client:  client,
		DB:      client.Database(cfg.Mongo.Database),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Close disconnects the client
func (c *Client) Close(ctx context.Context) {
	if err := c.Disconnect(ctx); err != nil {
		c.logger.Errorw("error disconnecting from mongo", "error", err)
	}
}
