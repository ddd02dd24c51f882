package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	pkgconfig "github.com/wekeepgrowing/marketplace-backend/pkg/config"
	"github.com/wekeepgrowing/marketplace-backend/pkg/logger"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"golang.org/x/text/currency"
)

const serviceName = "payment"

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      logger.Config  `mapstructure:"log"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Payment  PaymentConfig  `mapstructure:"payment"`
}

// defaults are applied before the config file and environment
var defaults = map[string]interface{}{
	"service.name":        "payment",
	"service.environment": "development",

	"server.http.host": "0.0.0.0",
	"server.http.port": 8080,
	"server.grpc.host": "0.0.0.0",
	"server.grpc.port": 9090,

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  "30m",
	"database.conn_max_idle_time": "5m",
	"database.slow_threshold":     "200ms",

	"log.level":  "info",
	"log.format": "json",
	"log.output": "stdout",

	"redis.addr":    "localhost:6379",
	"redis.db":      0,
	"redis.channel": "marketplace.ledger.events",

	"catalog.path": "configs/catalog.yaml",

	"payment.currency":             "INR",
	"payment.gst_rate":             "0.05",
	"payment.commission_rate":      "0.20",
	"payment.local_timeout":        "10m",
	"payment.reconcile_interval":   "5m",
	"payment.reconcile_batch_size": 100,
	"payment.free_payment_marker":  "FREE",
	"payment.min_withdrawal":       "0",
}

// LoadConfig reads configs/<APP_ENV>/payment.yaml with PAYMENT_* overrides
func LoadConfig() (*Config, error) {
	loaded, err := pkgconfig.Load(serviceName, defaults)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := loaded.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail at first use and
// normalizes the currency code
func (c *Config) Validate() error {
	if _, _, err := c.Payment.Rates(); err != nil {
		return err
	}
	if _, err := c.Payment.MinWithdrawalAmount(); err != nil {
		return err
	}
	unit, err := currency.ParseISO(c.Payment.Currency)
	if err != nil {
		return fmt.Errorf("invalid payment.currency %q: %w", c.Payment.Currency, err)
	}
	c.Payment.Currency = unit.String()
	if scale, _ := currency.Standard.Rounding(unit); scale > model.MaxCurrencyScale {
		return fmt.Errorf("payment.currency %s has %d decimal places, at most %d are supported",
			c.Payment.Currency, scale, model.MaxCurrencyScale)
	}
	if c.Payment.LocalTimeout <= 0 {
		return fmt.Errorf("payment.local_timeout must be positive")
	}
	if c.Payment.ReconcileBatchSize <= 0 {
		return fmt.Errorf("payment.reconcile_batch_size must be positive")
	}
	return nil
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	ClientURL   string `mapstructure:"client_url"`
}

type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	// Driver is postgres (default) or sqlite; for sqlite Name is the file path
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	PublishableKey string `mapstructure:"publishable_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// PaymentConfig holds the ledger's business settings. Money values are
// decimal strings so they never pass through float64.
type PaymentConfig struct {
	Currency           string        `mapstructure:"currency"`
	GSTRate            string        `mapstructure:"gst_rate"`
	CommissionRate     string        `mapstructure:"commission_rate"`
	LocalTimeout       time.Duration `mapstructure:"local_timeout"`
	ReconcileInterval  time.Duration `mapstructure:"reconcile_interval"`
	ReconcileBatchSize int           `mapstructure:"reconcile_batch_size"`
	FreePaymentMarker  string        `mapstructure:"free_payment_marker"`
	MinWithdrawal      string        `mapstructure:"min_withdrawal"`

	// PayoutEncryptionKey is 64 hex chars; bank account numbers are stored
	// in plain text when empty
	PayoutEncryptionKey string `mapstructure:"payout_encryption_key"`
}

// Rates parses the configured GST and commission rates
func (c PaymentConfig) Rates() (gst, commission decimal.Decimal, err error) {
	gst, err = decimal.NewFromString(c.GSTRate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid payment.gst_rate %q: %w", c.GSTRate, err)
	}
	commission, err = decimal.NewFromString(c.CommissionRate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid payment.commission_rate %q: %w", c.CommissionRate, err)
	}
	return gst, commission, nil
}

// MinWithdrawalAmount parses the minimum withdrawal amount
func (c PaymentConfig) MinWithdrawalAmount() (decimal.Decimal, error) {
	if c.MinWithdrawal == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(c.MinWithdrawal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid payment.min_withdrawal %q: %w", c.MinWithdrawal, err)
	}
	return amount, nil
}
