// Package internal holds process-level wiring: configuration, logging,
// and database migrations.
package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kiranalabs/kirana/internal/payment"
	"github.com/kiranalabs/kirana/internal/service"
)

// Config is the full process configuration, sourced from the environment
// with an optional .env file for local development.
type Config struct {
	Env         string
	LogLevel    string
	Port        uint16
	DatabaseURL string

	Razorpay payment.RazorpayConfig
	NATS     NATSConfig
	Poll     PollConfig
	Jobs     JobsConfig
}

// NATSConfig configures the stock retry message broker. An empty URL
// disables messaging; the sweep worker still recovers pending orders.
type NATSConfig struct {
	URL string
}

// PollConfig tunes the order confirmation poller.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// JobsConfig tunes background workers.
type JobsConfig struct {
	StockSweepInterval time.Duration
}

// NewConfig loads configuration from the environment. A .env file in the
// working directory is merged in when present, without overriding real
// environment variables.
func NewConfig() (*Config, error) {
	// Ignore a missing .env; containers set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 8080)
	v.SetDefault("POLL_INTERVAL", service.DefaultPollInterval)
	v.SetDefault("POLL_MAX_ATTEMPTS", service.DefaultPollAttempts)
	v.SetDefault("STOCK_SWEEP_INTERVAL", 5*time.Minute)

	cfg := &Config{
		Env:         v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Port:        uint16(v.GetUint("PORT")),
		DatabaseURL: v.GetString("DATABASE_URL"),
		Razorpay: payment.RazorpayConfig{
			KeyID:         v.GetString("RAZORPAY_KEY_ID"),
			KeySecret:     v.GetString("RAZORPAY_KEY_SECRET"),
			WebhookSecret: v.GetString("RAZORPAY_WEBHOOK_SECRET"),
		},
		NATS: NATSConfig{
			URL: v.GetString("NATS_URL"),
		},
		Poll: PollConfig{
			Interval:    v.GetDuration("POLL_INTERVAL"),
			MaxAttempts: v.GetInt("POLL_MAX_ATTEMPTS"),
		},
		Jobs: JobsConfig{
			StockSweepInterval: v.GetDuration("STOCK_SWEEP_INTERVAL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}
	if c.Razorpay.WebhookSecret == "" {
		return fmt.Errorf("RAZORPAY_WEBHOOK_SECRET is required")
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	return nil
}
