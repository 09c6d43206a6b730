package config

import (
	"testing"
	"time"

	"github.com/flexprice/invoicing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Invoice.MaxAllocationAttempts)
	assert.Equal(t, "INV", cfg.Invoice.NumberPrefix)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Configuration) {}},
		{name: "postgres store", mutate: func(c *Configuration) { c.Store.Type = types.StoreTypePostgres }},
		{name: "unknown store", mutate: func(c *Configuration) { c.Store.Type = "dynamo" }, wantErr: true},
		{name: "missing mongo uri", mutate: func(c *Configuration) { c.Mongo.URI = "" }, wantErr: true},
		{name: "missing postgres host", mutate: func(c *Configuration) {
			c.Store.Type = types.StoreTypePostgres
			c.Postgres.Host = ""
		}, wantErr: true},
		{name: "bad log level", mutate: func(c *Configuration) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "too many attempts", mutate: func(c *Configuration) { c.Invoice.MaxAllocationAttempts = 50 }, wantErr: true},
		{name: "sample rate above one", mutate: func(c *Configuration) { c.Sentry.SampleRate = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewConfig_EnvOverride(t *testing.T) {
	t.Setenv("INVOICING_STORE_TYPE", "postgres")
	t.Setenv("INVOICING_INVOICE_MAX_ALLOCATION_ATTEMPTS", "3")
	t.Setenv("INVOICING_CACHE_STATISTICS_TTL", "1m")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, types.StoreTypePostgres, cfg.Store.Type)
	assert.Equal(t, 3, cfg.Invoice.MaxAllocationAttempts)
	assert.Equal(t, time.Minute, cfg.Cache.StatisticsTTL)
	assert.Equal(t, "invoices", cfg.Mongo.Collection)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "d", SSLMode: "require"}.GetDSN()
	assert.Equal(t, "user=u password=p dbname=d host=db port=5433 sslmode=require", dsn)
}
