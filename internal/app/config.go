package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (MARKET_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (MARKET_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	TokenPepper string `usage:"HMAC pepper for session token hashing" flag:"token-pepper"`
	FeeRate     string `default:"0.10" usage:"Platform fee as a fraction of order total" flag:"fee-rate"`

	Redis     RedisConfig
	Payments  PaymentsConfig
	Kafka     KafkaConfig
	Email     EmailConfig
	Webhook   WebhookConfig
	Janitor   JanitorConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// RedisConfig locates the cart store.
type RedisConfig struct {
	Addr     string        `default:"localhost:6379" usage:"Redis address"`
	Password string        `default:"" usage:"Redis password"`
	DB       int           `default:"0" usage:"Redis database number"`
	CartTTL  time.Duration `default:"720h" usage:"Idle cart expiry" flag:"cart-ttl"`
}

// PaymentsConfig configures the payment provider client.
type PaymentsConfig struct {
	BaseURL       string        `default:"https://api.payments.example.com/v1" usage:"Payment provider API base URL" flag:"payments-base-url"`
	SecretKey     string        `usage:"Payment provider secret key" flag:"payments-secret-key"`
	WebhookSecret string        `usage:"Payment provider webhook signing secret" flag:"payments-webhook-secret"`
	Currency      string        `default:"nzd" usage:"Settlement currency"`
	Timeout       time.Duration `default:"30s" usage:"Provider request timeout"`
	MaxRetries    int           `default:"2" usage:"Provider request retries"`
}

// KafkaConfig configures domain event publishing. Leaving Brokers empty
// disables publishing.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka broker addresses; empty disables events"`
}

// EmailConfig configures order-confirmation mail. Leaving the API key empty
// disables sending.
type EmailConfig struct {
	SendGridKey string `usage:"SendGrid API key; empty disables email" flag:"sendgrid-key"`
	FromName    string `default:"Marketplace" usage:"Sender display name" flag:"email-from-name"`
	FromEmail   string `default:"orders@marketplace.example.com" usage:"Sender address" flag:"email-from"`
}

// WebhookConfig tunes webhook intake and processing.
type WebhookConfig struct {
	QueueSize int           `default:"256" usage:"Webhook dispatch queue depth" flag:"webhook-queue"`
	Workers   int           `default:"4" usage:"Webhook worker count" flag:"webhook-workers"`
	Tolerance time.Duration `default:"5m" usage:"Max accepted webhook signature age" flag:"webhook-tolerance"`
}

// JanitorConfig controls expiry of abandoned pending orders. A zero TTL
// disables the janitor.
type JanitorConfig struct {
	PendingOrderTTL time.Duration `default:"24h" usage:"Age after which pending orders expire; 0 disables" flag:"pending-order-ttl"`
	Interval        time.Duration `default:"10m" usage:"Janitor sweep interval" flag:"janitor-interval"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
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

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MARKET",
		Files:     []string{"config.yaml", "/etc/marketplace/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set MARKET_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.ParsedFeeRate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParsedFeeRate returns the platform fee rate as a decimal in [0,1].
func (c *Config) ParsedFeeRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse fee rate")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, errors.Errorf("fee rate %s outside [0,1]", c.FeeRate)
	}
	return rate, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's MARKET_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.Redis.Addr == "localhost:6379" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Redis.Addr = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
