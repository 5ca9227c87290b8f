// Package config loads runtime settings from the environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting. Keys map onto upper-cased environment variables
// (products_table -> PRODUCTS_TABLE).
type Config struct {
	ProductsTable     string `mapstructure:"products_table"`
	OrdersTable       string `mapstructure:"orders_table"`
	UsersTable        string `mapstructure:"users_table"`
	TransactionsTable string `mapstructure:"transactions_table"`

	OrdersQueueURL   string `mapstructure:"orders_queue_url"`
	MetricsNamespace string `mapstructure:"metrics_namespace"`
	AWSRegion        string `mapstructure:"aws_region"`
	AWSEndpoint      string `mapstructure:"aws_endpoint_override"`

	RunLocal bool   `mapstructure:"run_local"`
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	StripeSecretKey    string `mapstructure:"stripe_secret_key"`
	FirebaseServiceKey string `mapstructure:"fb_service_key"`
	ClientDomain       string `mapstructure:"client_domain"`
	Currency           string `mapstructure:"currency"`

	RedisAddr       string        `mapstructure:"redis_addr"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`

	HomeProductsLimit int `mapstructure:"home_products_limit"`
}

var defaults = map[string]any{
	"products_table":        "Products",
	"orders_table":          "Orders",
	"users_table":           "Users",
	"transactions_table":    "Transactions",
	"orders_queue_url":      "",
	"metrics_namespace":     "",
	"aws_region":            "us-east-1",
	"aws_endpoint_override": "",
	"run_local":             false,
	"port":                  "8080",
	"log_level":             "info",
	"stripe_secret_key":     "",
	"fb_service_key":        "",
	"client_domain":         "http://localhost:5173",
	"currency":              "usd",
	"redis_addr":            "",
	"rate_limit":            10,
	"rate_limit_window":     time.Minute,
	"home_products_limit":   8,
}

// Load reads defaults, then the YAML file at path (if non-empty), then the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ClientDomain = strings.TrimRight(cfg.ClientDomain, "/")
	return &cfg, nil
}

// Validate checks the settings the API cannot start without.
func (c *Config) Validate() error {
	var errs []error
	required := []struct{ env, value string }{
		{"PRODUCTS_TABLE", c.ProductsTable},
		{"ORDERS_TABLE", c.OrdersTable},
		{"USERS_TABLE", c.UsersTable},
		{"TRANSACTIONS_TABLE", c.TransactionsTable},
		{"STRIPE_SECRET_KEY", c.StripeSecretKey},
		{"FB_SERVICE_KEY", c.FirebaseServiceKey},
		{"CLIENT_DOMAIN", c.ClientDomain},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.env))
		}
	}
	if c.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow))
	}
	return errors.Join(errs...)
}

// Addr is the local listen address.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
