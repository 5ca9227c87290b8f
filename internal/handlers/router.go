// Package handlers wires the HTTP routes onto the services.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	rd "github.com/redis/go-redis/v9"

	"github.com/imrishuroy/go-marketplace-api/internal/auth"
	"github.com/imrishuroy/go-marketplace-api/internal/checkout"
	"github.com/imrishuroy/go-marketplace-api/internal/middleware"
	"github.com/imrishuroy/go-marketplace-api/internal/orders"
	"github.com/imrishuroy/go-marketplace-api/internal/products"
	"github.com/imrishuroy/go-marketplace-api/internal/users"
	"github.com/imrishuroy/go-marketplace-api/internal/validation"
)

// Deps groups dependencies for the HTTP layer.
type Deps struct {
	Products *products.Store
	Orders   *orders.Service
	Users    *users.Store
	Checkout *checkout.Service
	Verifier auth.Verifier
	Log      *slog.Logger

	// Redis enables rate limiting of the checkout routes when non-nil.
	Redis           rd.Scripter
	RateLimit       int
	RateLimitWindow time.Duration

	HomeProductsLimit int
}

type handler struct {
	Deps
	v *validatorv10.Validate
}

// NewRouter builds the engine with every route and its access rule.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{Deps: d, v: validation.New()}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	// health
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	r.GET("/", health)
	r.GET("/health", health)

	// public catalogue
	r.GET("/products", h.listProducts)
	r.GET("/products/:id", h.getProduct)
	r.GET("/home-products", h.homeProducts)
	r.GET("/product-pagination", h.paginateProducts)

	authed := r.Group("/", middleware.RequireAuth(d.Verifier, d.Users))
	staff := middleware.RequireRole(users.RoleManager, users.RoleAdmin)
	admin := middleware.RequireRole(users.RoleAdmin)

	// products (manager/admin)
	authed.POST("/products", staff, h.createProduct)
	authed.PUT("/product/:id", staff, h.replaceProduct)
	authed.PATCH("/products/update/:id", staff, h.patchProduct)
	authed.DELETE("/product/:id", staff, h.deleteProduct)
	authed.PATCH("/products/show-home/:id", admin, h.showOnHome)
	authed.GET("/my-product/:email", staff, h.productsByManager)

	// checkout
	pay := []gin.HandlerFunc{}
	if d.Redis != nil {
		pay = append(pay, middleware.RedisRateLimit(d.Redis, d.RateLimit, d.RateLimitWindow, d.Log))
	}
	authed.POST("/create-checkout-session", append(pay, h.createCheckoutSession)...)
	authed.POST("/payment-success", append(pay, h.paymentSuccess)...)

	// orders
	authed.GET("/orders", admin, h.listOrders)
	authed.GET("/orders/pending", staff, h.ordersByStatus(orders.StatusPending))
	authed.GET("/orders/approved", staff, h.ordersByStatus(orders.StatusApproved))
	authed.GET("/orders/:id", h.getOrder)
	authed.GET("/my-orders/:email", h.ordersByCustomer)
	authed.GET("/manage-orders/:email", staff, h.ordersByManager)
	authed.PATCH("/orders/approve/:id", staff, h.approveOrder)
	authed.PATCH("/orders/reject/:id", staff, h.rejectOrder)
	authed.PATCH("/orders/cancel/:id", h.cancelOrder)
	authed.PATCH("/orders/tracking/:id", staff, h.appendTracking)

	// users
	authed.POST("/user", h.upsertUser)
	authed.GET("/user/role/:email", h.userRole)
	authed.GET("/users", admin, h.listUsers)
	authed.PATCH("/users/role/:id", admin, h.setRole)
	authed.PATCH("/users/suspend/:id", admin, h.suspendUser)
	authed.PATCH("/users/activate/:id", admin, h.activateUser)

	return r
}

// mutation is the reply shape of every update and delete.
type mutation struct {
	MatchedCount  int `json:"matchedCount"`
	ModifiedCount int `json:"modifiedCount"`
}

var modifiedOne = mutation{MatchedCount: 1, ModifiedCount: 1}

func principal(c *gin.Context) middleware.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}
