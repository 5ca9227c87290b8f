package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Products", cfg.ProductsTable)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 8, cfg.HomeProductsLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ORDERS_TABLE", "orders-dev")
	t.Setenv("RUN_LOCAL", "true")
	t.Setenv("PORT", "9090")
	t.Setenv("CLIENT_DOMAIN", "https://shop.example/")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "http://localhost:4566")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "orders-dev", cfg.OrdersTable)
	assert.True(t, cfg.RunLocal)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "https://shop.example", cfg.ClientDomain)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "http://localhost:4566", cfg.AWSEndpoint)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users_table: users-file\nproducts_table: products-file\n"), 0o600))
	t.Setenv("PRODUCTS_TABLE", "products-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "users-file", cfg.UsersTable)
	assert.Equal(t, "products-env", cfg.ProductsTable, "environment wins over the file")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("FB_SERVICE_KEY", "")
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY is required")
	assert.Contains(t, err.Error(), "FB_SERVICE_KEY is required")

	cfg.StripeSecretKey = "sk_test"
	cfg.FirebaseServiceKey = "e30="
	require.NoError(t, cfg.Validate())

	cfg.RateLimit = 0
	require.Error(t, cfg.Validate())
}
