// Package app assembles the stores, services and router from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"

	"github.com/imrishuroy/go-marketplace-api/internal/auth"
	"github.com/imrishuroy/go-marketplace-api/internal/aws"
	"github.com/imrishuroy/go-marketplace-api/internal/checkout"
	"github.com/imrishuroy/go-marketplace-api/internal/config"
	"github.com/imrishuroy/go-marketplace-api/internal/events"
	"github.com/imrishuroy/go-marketplace-api/internal/handlers"
	"github.com/imrishuroy/go-marketplace-api/internal/idempotency"
	"github.com/imrishuroy/go-marketplace-api/internal/metrics"
	"github.com/imrishuroy/go-marketplace-api/internal/orders"
	"github.com/imrishuroy/go-marketplace-api/internal/payments"
	"github.com/imrishuroy/go-marketplace-api/internal/products"
	"github.com/imrishuroy/go-marketplace-api/internal/users"
)

// Options replace the collaborators New would otherwise build from configuration.
type Options struct {
	Log      *slog.Logger
	DynamoDB aws.DynamoDBAPI
	Verifier auth.Verifier
	Gateway  payments.Gateway
}

// App is a fully wired API.
type App struct {
	router *gin.Engine
	redis  *rd.Client
	log    *slog.Logger
}

// Tables lists the tables the API reads and writes.
func Tables(cfg *config.Config) []aws.TableSpec {
	return []aws.TableSpec{
		{Name: cfg.ProductsTable, PartitionKey: "product_id"},
		{Name: cfg.OrdersTable, PartitionKey: "order_id"},
		{Name: cfg.UsersTable, PartitionKey: "user_id"},
		{Name: cfg.TransactionsTable, PartitionKey: "transaction_id"},
	}
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	var clients *aws.AWSClients
	if opts.DynamoDB == nil || cfg.OrdersQueueURL != "" || cfg.MetricsNamespace != "" {
		var err error
		clients, err = aws.NewAWSClients(ctx, aws.ClientOptions{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
		if err != nil {
			return nil, fmt.Errorf("init aws clients: %w", err)
		}
	}
	db := opts.DynamoDB
	if db == nil {
		db = clients.DynamoDB
	}

	var pub events.Publisher = events.Noop{}
	if cfg.OrdersQueueURL != "" {
		pub = events.NewSQSPublisher(aws.NewPublisher(clients.SQS, cfg.OrdersQueueURL))
	}
	var rec metrics.Recorder = metrics.Noop{}
	if cfg.MetricsNamespace != "" {
		rec = metrics.NewCloudWatch(clients.CloudWatch, cfg.MetricsNamespace)
	}

	gateway := opts.Gateway
	if gateway == nil {
		gateway = payments.NewStripe(cfg.StripeSecretKey)
	}
	verifier := opts.Verifier
	if verifier == nil {
		fb, err := auth.NewFirebase(ctx, cfg.FirebaseServiceKey)
		if err != nil {
			return nil, fmt.Errorf("init firebase: %w", err)
		}
		verifier = fb
	}

	a := &App{log: log}
	if cfg.RedisAddr != "" {
		a.redis = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			// the limiter fails open, so an unreachable redis only disables it
			log.WarnContext(ctx, "redis ping failed", "addr", cfg.RedisAddr, "error", err)
		}
	}

	productStore := products.NewStore(db, cfg.ProductsTable)
	orderStore := orders.NewStore(db, cfg.OrdersTable)
	userStore := users.NewStore(db, cfg.UsersTable)

	deps := handlers.Deps{
		Products: productStore,
		Orders:   orders.NewService(orderStore, pub, rec, log),
		Users:    userStore,
		Checkout: checkout.NewService(checkout.Deps{
			Gateway:      gateway,
			Products:     productStore,
			Orders:       orderStore,
			Guards:       idempotency.NewStore(db, cfg.TransactionsTable),
			Events:       pub,
			Metrics:      rec,
			Log:          log,
			ClientDomain: cfg.ClientDomain,
			Currency:     cfg.Currency,
		}),
		Verifier:          verifier,
		Log:               log,
		RateLimit:         cfg.RateLimit,
		RateLimitWindow:   cfg.RateLimitWindow,
		HomeProductsLimit: cfg.HomeProductsLimit,
	}
	if a.redis != nil {
		deps.Redis = a.redis
	}
	a.router = handlers.NewRouter(deps)
	return a, nil
}

func (a *App) Router() *gin.Engine { return a.router }

// Close releases the redis connection pool, if any.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	if err := a.redis.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
