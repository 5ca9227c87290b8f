package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-marketplace-api/internal/auth"
	"github.com/imrishuroy/go-marketplace-api/internal/logging"
	"github.com/imrishuroy/go-marketplace-api/internal/users"
)

func init() { gin.SetMode(gin.TestMode) }

type userMap map[string]*users.User

func (m userMap) GetByEmail(_ context.Context, email string) (*users.User, error) {
	if email == "broken@example.com" {
		return nil, errors.New("dynamodb unavailable")
	}
	return m[email], nil
}

func newAuthRouter() *gin.Engine {
	verifier := auth.Static{
		"cust":      "c@example.com",
		"admin":     "a@example.com",
		"suspended": "s@example.com",
		"broken":    "broken@example.com",
	}
	lookup := userMap{
		"a@example.com": {Email: "a@example.com", Role: users.RoleAdmin, Status: users.StatusActive},
		"s@example.com": {Email: "s@example.com", Role: users.RoleManager, Status: users.StatusSuspended},
	}
	r := gin.New()
	r.Use(RequestLogger(logging.Discard()))
	authed := r.Group("/", RequireAuth(verifier, lookup))
	authed.GET("/me", func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"email": p.Email, "role": p.Role})
	})
	authed.GET("/admin", RequireRole(users.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter()

	w := do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication_missing", errorCode(t, w))

	w = do(r, http.MethodGet, "/me", "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication_invalid", errorCode(t, w))

	w = do(r, http.MethodGet, "/me", "suspended")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/me", "broken")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "dynamodb", "internal causes are not exposed")

	w = do(r, http.MethodGet, "/me", "cust")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"c@example.com","role":"customer"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter()

	w := do(r, http.MethodGet, "/admin", "cust")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "authorization_denied", errorCode(t, w))

	w = do(r, http.MethodGet, "/admin", "admin")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("abc"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logging.Discard()))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", w.Body.String())
}

func TestRequestLoggerRecordsCause(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(logging.New(&buf, "info")))
	r.GET("/x", func(c *gin.Context) {
		AbortWithError(c, fmt.Errorf("scan orders: %w", &types.ProvisionedThroughputExceededException{}))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "ProvisionedThroughputExceededException", line["aws_error_code"])
	assert.Contains(t, line["error"], "scan orders")

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["error"])
	assert.NotContains(t, body["message"], "scan orders")
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.POST("/checkout", RedisRateLimit(rdb, 2, time.Minute, logging.Discard()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := do(r, http.MethodPost, "/checkout", "")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
	w := do(r, http.MethodPost, "/checkout", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", errorCode(t, w))
}

func TestRedisRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	r := gin.New()
	r.POST("/checkout", RedisRateLimit(rdb, 1, time.Minute, logging.Discard()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/checkout", "").Code)
	}
}
