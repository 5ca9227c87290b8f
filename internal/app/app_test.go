package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-marketplace-api/internal/auth"
	"github.com/imrishuroy/go-marketplace-api/internal/config"
	"github.com/imrishuroy/go-marketplace-api/internal/dynamotest"
	"github.com/imrishuroy/go-marketplace-api/internal/logging"
	"github.com/imrishuroy/go-marketplace-api/internal/payments/paymentstest"
)

func testConfig() *config.Config {
	return &config.Config{
		ProductsTable:     "Products",
		OrdersTable:       "Orders",
		UsersTable:        "Users",
		TransactionsTable: "Transactions",
		ClientDomain:      "https://shop.example",
		Currency:          "usd",
		RateLimit:         2,
		RateLimitWindow:   time.Minute,
		HomeProductsLimit: 8,
	}
}

func testDynamo(cfg *config.Config) *dynamotest.Fake {
	fake := dynamotest.New()
	for _, t := range Tables(cfg) {
		fake.CreateTable(t.Name, t.PartitionKey)
	}
	return fake
}

func TestTables(t *testing.T) {
	specs := Tables(testConfig())
	require.Len(t, specs, 4)
	assert.Equal(t, "Transactions", specs[3].Name)
	assert.Equal(t, "transaction_id", specs[3].PartitionKey)
}

func TestNewServesRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	a, err := New(context.Background(), cfg, Options{
		Log:      logging.Discard(),
		DynamoDB: testDynamo(cfg),
		Verifier: auth.Static{},
		Gateway:  paymentstest.New(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRateLimitsCheckout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	a, err := New(context.Background(), cfg, Options{
		Log:      logging.Discard(),
		DynamoDB: testDynamo(cfg),
		Verifier: auth.Static{"t": "b@example.com"},
		Gateway:  paymentstest.New(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/payment-success", strings.NewReader(`{"sessionId":"cs_missing"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer t")
		w := httptest.NewRecorder()
		a.Router().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
