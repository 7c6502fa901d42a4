package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:             "0.0.0.0:8080",
		DatabaseURL:      "postgres://localhost/checkout",
		OrderStore:       StorePostgres,
		CouponFilterRate: 0.01,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid postgres", mutate: func(*Config) {}},
		{
			name: "valid mongo",
			mutate: func(c *Config) {
				c.OrderStore = StoreMongo
				c.Mongo.URI = "mongodb://localhost:27017"
			},
		},
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: "database URL is required",
		},
		{
			name:    "mongo without uri",
			mutate:  func(c *Config) { c.OrderStore = StoreMongo },
			wantErr: "CHECKOUT_MONGO_URI",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.OrderStore = "redis" },
			wantErr: `unknown order store "redis"`,
		},
		{
			name:    "filter rate out of range",
			mutate:  func(c *Config) { c.CouponFilterRate = 1 },
			wantErr: "coupon filter rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg := Config{Addr: "0.0.0.0:8080"}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestConfig_PlatformDefaultsKeepExplicit(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg := Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}
