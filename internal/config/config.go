// Package config loads service settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/application/payment"
	"github.com/spf13/viper"
)

var ErrMissingStripeKey = errors.New("config: PAYMENT_MODE=stripe requires STRIPE_SECRET_KEY")

type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	Env         string `mapstructure:"ENV"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	KafkaBrokers      string        `mapstructure:"KAFKA_BROKERS"`
	NotificationTopic string        `mapstructure:"NOTIFICATION_TOPIC"`
	NotifyTimeout     time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	PaymentMode     string        `mapstructure:"PAYMENT_MODE"`
	StripeSecretKey string        `mapstructure:"STRIPE_SECRET_KEY"`
	PaymentCurrency string        `mapstructure:"PAYMENT_CURRENCY"`
	PaymentTimeout  time.Duration `mapstructure:"PAYMENT_TIMEOUT"`

	OTelEndpoint   string `mapstructure:"OTEL_ENDPOINT"`
	OTelAuthHeader string `mapstructure:"OTEL_AUTH_HEADER"`
	OTelInsecure   bool   `mapstructure:"OTEL_INSECURE"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVICE_NAME":       "colleshop",
	"ENV":                "dev",
	"HTTP_ADDR":          ":8080",
	"LOG_LEVEL":          "info",
	"DATABASE_URL":       "",
	"KAFKA_BROKERS":      "",
	"NOTIFICATION_TOPIC": "colleshop.notifications",
	"NOTIFY_TIMEOUT":     "10s",
	"PAYMENT_MODE":       string(payment.ModeMock),
	"STRIPE_SECRET_KEY":  "",
	"PAYMENT_CURRENCY":   "eur",
	"PAYMENT_TIMEOUT":    "5s",
	"OTEL_ENDPOINT":      "",
	"OTEL_AUTH_HEADER":   "",
	"OTEL_INSECURE":      false,
	"SHUTDOWN_TIMEOUT":   "10s",
}

// Load reads path when it is non-empty; environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	mode, err := payment.ParseMode(c.PaymentMode)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if mode == payment.ModeStripe && strings.TrimSpace(c.StripeSecretKey) == "" {
		return ErrMissingStripeKey
	}
	if c.PaymentTimeout <= 0 || c.NotifyTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	return nil
}

func (c *Config) Payment() payment.Config {
	mode, _ := payment.ParseMode(c.PaymentMode)
	return payment.Config{Mode: mode, Currency: c.PaymentCurrency, Timeout: c.PaymentTimeout}
}
