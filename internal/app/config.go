package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Order store kinds.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	OrderStore  string `default:"postgres" usage:"Order store: postgres or mongo" flag:"order-store"`
	Mongo       MongoConfig
	JWTSecret   string `usage:"HS256 secret for customer bearer tokens; empty serves anonymous checkouts only" flag:"jwt-secret"`
	ReceiptDir  string `default:"receipts" usage:"Directory for gzip receipt archives; empty disables receipts" flag:"receipt-dir"`
	// TranslationsFile is a YAML product name catalogue. Empty disables localization.
	TranslationsFile string        `usage:"YAML translations of product names" flag:"translations"`
	StrictDelivery   bool          `default:"false" usage:"Fail checkout when the delivery store is unavailable" flag:"strict-delivery"`
	CouponFilterRate float64       `default:"0.01" usage:"False positive rate of the known coupon filter" flag:"coupon-filter-rate"`
	CouponRefresh    time.Duration `default:"5m" usage:"Interval between rebuilds of the known coupon filter; zero disables" flag:"coupon-refresh"`
	Kafka            KafkaConfig
	RateLimit        RateLimitConfig
	CORS             CORSConfig
	Graceful         GracefulConfig
}

// MongoConfig selects the document order store.
type MongoConfig struct {
	URI      string `usage:"MongoDB connection URI" flag:"mongo-uri"`
	Database string `default:"checkout" usage:"MongoDB database" flag:"mongo-database"`
}

// KafkaConfig enables order events when Brokers is set.
type KafkaConfig struct {
	Brokers string `usage:"Comma separated Kafka brokers" flag:"kafka-brokers"`
	Topic   string `default:"checkout.orders" usage:"Order events topic" flag:"kafka-topic"`
}

// RateLimitConfig controls the per-client token bucket limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that cannot start the server.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	switch c.OrderStore {
	case StorePostgres:
	case StoreMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo order store requires CHECKOUT_MONGO_URI")
		}
	default:
		return errors.Errorf("unknown order store %q", c.OrderStore)
	}
	if c.CouponFilterRate <= 0 || c.CouponFilterRate >= 1 {
		return errors.Errorf("coupon filter rate %v must be in (0, 1)", c.CouponFilterRate)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CHECKOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
