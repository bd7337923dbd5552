package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/wichananm65/earthly-storefront/internal/admin"
	"github.com/wichananm65/earthly-storefront/internal/config"
	"github.com/wichananm65/earthly-storefront/internal/idempotency"
	"github.com/wichananm65/earthly-storefront/internal/logging"
	"github.com/wichananm65/earthly-storefront/internal/order"
	"github.com/wichananm65/earthly-storefront/internal/payment"
	"github.com/wichananm65/earthly-storefront/internal/product"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	// prices go out as JSON numbers, e.g. "price": 159
	decimal.MarshalJSONWithoutQuotes = true

	app := fiber.New(fiber.Config{
		AppName:      cfg.StoreName,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	})
	app.Use(recover.New())
	app.Use(logging.RequestLogger())
	setupCORS(app)

	var (
		productRepo product.Repository = product.NewInMemoryRepository(nil)
		orderRepo   order.Repository   = order.NewInMemoryRepository()
	)
	if cfg.DatabaseURL != "" {
		db := mustOpenDB(cfg.DatabaseURL)
		defer db.Close()

		pr := product.NewPostgresRepository(db)
		if err := pr.EnsureSchema(); err != nil {
			log.WithError(err).Fatal("create products table")
		}
		or := order.NewPostgresRepository(db)
		if err := or.EnsureSchema(); err != nil {
			log.WithError(err).Fatal("create orders table")
		}
		productRepo, orderRepo = pr, or
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL is not set, using in-memory storage")
	}

	var keys idempotency.Store = idempotency.NewMemoryStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("parse REDIS_URL")
		}
		cli := redis.NewClient(opts)
		defer cli.Close()
		if err := cli.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		keys = idempotency.NewRedisStore(cli)
	}

	productService := product.NewService(productRepo)
	if err := productService.SeedIfEmpty(product.SampleProducts()); err != nil {
		log.WithError(err).Fatal("seed products")
	}

	orderHandler := order.NewHandler(order.NewService(orderRepo, newProvider(cfg), keys, cfg.IdempotencyTTL))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": cfg.StoreName + " API is running"})
	})
	product.NewHandler(productService).RegisterPublicRoutes(app)
	orderHandler.RegisterPublicRoutes(app)

	if cfg.JWTSecret != "" && cfg.AdminPasswordHash != "" {
		adminHandler := admin.NewHandler(cfg.AdminPasswordHash, cfg.JWTSecret)
		adminHandler.RegisterPublicRoutes(app)
		app.Use("/api/orders", adminHandler.Middleware())
		orderHandler.RegisterProtectedRoutes(app)
	} else {
		log.Warn("JWT_SECRET or ADMIN_PASSWORD_HASH not set, admin endpoints disabled")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("addr", cfg.Addr).Info("starting server")
	if err := app.Listen(cfg.Addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// newProvider expects a validated config.
func newProvider(cfg config.Config) payment.Provider {
	if cfg.PaymentProvider == config.ProviderRazorpay {
		return payment.NewRazorpayClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.HTTPTimeout)
	}
	return payment.NewSandbox(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + order.IdempotencyHeader,
	}))
}

func mustOpenDB(dbURL string) *sql.DB {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("ping database")
	}
	return db
}
