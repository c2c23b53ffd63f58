package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/balance-api/balance_api/internal/account"
	"github.com/balance-api/balance_api/internal/config"
	"github.com/balance-api/balance_api/internal/middleware"
	"github.com/balance-api/balance_api/internal/transaction"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes, and returns the
// transaction service so process wiring can attach the expiry sweeper to the
// same store the handlers use.
func Setup(app *fiber.App, d Deps) (*transaction.Service, error) {
	// Dev mode may fall back to the in-memory store; everywhere else the
	// shared stores are mandatory, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores, services and handlers
	var txStore transaction.Store
	var accountRepo account.Repository
	if d.DB != nil {
		txStore = transaction.NewPostgresStore(d.DB)
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		mem := transaction.NewMemoryStore()
		txStore = mem
		accountRepo = mem.Accounts()
	}

	accountSvc := account.NewService(accountRepo, d.Logger)
	txSvc := transaction.NewService(txStore, d.Logger)

	accountHandler := account.NewHandler(accountSvc)
	txHandler := transaction.NewHandler(txSvc)

	// API routes, all behind API key auth. Rate limiting and idempotency
	// replay run after the key check so cached responses never serve an
	// unauthenticated caller.
	api := app.Group("/api/v1", middleware.APIKey(d.Cfg))
	if d.Cache != nil {
		api.Use(middleware.RateLimit(d.Cache, d.Cfg.RatePerMinute))
		api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterAccountRoutes(api, accountHandler, txHandler)
	RegisterTransactionRoutes(api, txHandler)

	return txSvc, nil
}
