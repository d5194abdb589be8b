package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vaultpay/vaultpay/internal/account"
	"github.com/vaultpay/vaultpay/internal/alerts"
	"github.com/vaultpay/vaultpay/internal/auth"
	"github.com/vaultpay/vaultpay/internal/config"
	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/metrics"
	"github.com/vaultpay/vaultpay/internal/middleware"
	"github.com/vaultpay/vaultpay/internal/notification"
	"github.com/vaultpay/vaultpay/internal/otp"
	"github.com/vaultpay/vaultpay/internal/risk"
	"github.com/vaultpay/vaultpay/internal/syncutil"
	"github.com/vaultpay/vaultpay/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. With DB or Cache
// nil in development, in-memory stand-ins are wired instead.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	collector := metrics.NewCollector()
	app.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))

	// Stores
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	var otpStore otp.Store
	if d.Cache != nil {
		otpStore = otp.NewRedisStore(d.Cache)
	} else {
		otpStore = otp.NewMemoryStore()
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	// Services. The lock pool is shared so freeze transitions and transfers
	// on one account never interleave.
	locks := &syncutil.KeyMutex{}
	feed := alerts.NewHub(d.Cfg.AlertCapacity)
	notifier := notification.NewLoggerNotifier(d.Logger)
	otpSvc := otp.NewService(otpStore, notifier, otp.Options{
		TTL:      d.Cfg.OTPTTL,
		Attempts: d.Cfg.OTPAttempts,
		Digits:   d.Cfg.OTPDigits,
	})
	scorer := risk.NewScorer(risk.Config{
		LowThreshold:    d.Cfg.Risk.LowThreshold,
		HighThreshold:   d.Cfg.Risk.HighThreshold,
		SlopeDivisor:    d.Cfg.Risk.SlopeDivisor,
		StepUpThreshold: d.Cfg.Risk.StepUpThreshold,
		Denylist:        d.Cfg.Risk.Denylist,
	})

	accountSvc := account.NewService(store, otpSvc, feed, locks)
	transferSvc := transfer.NewService(store, scorer, otpSvc, feed, collector, locks, d.Cfg.FeePercent)
	identitySvc := identity.NewService(identityRepo, accountSvc)
	authSvc := auth.NewService(d.Cfg)

	if d.DB == nil && d.Cfg.SeedDemo {
		seedDemoAccount(store, d.Cfg, d.Logger)
	}

	authHandler := auth.NewHandler(identitySvc, authSvc, d.Cfg.DailyLimit)
	accountHandler := account.NewHandler(accountSvc)
	transferHandler := transfer.NewHandler(transferSvc, feed)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", middleware.LoginRateLimit(d.Cache, 5), authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(authSvc))

	transfers := protected.Group("/transfers")
	if d.Cache != nil {
		transfers.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	transfers.Post("/", transferHandler.Send)

	protected.Get("/transactions", transferHandler.Transactions)
	protected.Get("/alerts", transferHandler.Alerts)
	protected.Get("/audit", transferHandler.AuditTrail)

	protected.Get("/account", accountHandler.Get)
	protected.Get("/account/balance", transferHandler.Balance)
	protected.Post("/account/freeze", accountHandler.Freeze)
	protected.Post("/account/unfreeze", accountHandler.RequestUnfreeze)
	protected.Post("/account/unfreeze/verify", accountHandler.ConfirmUnfreeze)

	return nil
}

// seedDemoAccount provisions a pre-funded account so the API is usable
// immediately against the in-memory store.
func seedDemoAccount(store ledger.Store, cfg config.Config, logger *slog.Logger) {
	const demoID = "acct_demo"
	const demoBalance = 456_357

	err := store.CreateAccount(context.Background(), account.Account{
		ID:         demoID,
		Balance:    demoBalance,
		DailyLimit: cfg.DailyLimit,
		SpentDay:   account.Day(time.Now()),
		Status:     account.StatusActive,
		MFAEnabled: true,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("demo account seed skipped", slog.Any("error", err))
		return
	}
	logger.Info("demo account seeded", slog.String("account_id", demoID), slog.Int("balance", demoBalance))
}
