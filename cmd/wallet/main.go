// The wallet binary serves the ledger core: wallets, ledger entries,
// holds, transfers, statements and reconciliation.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianpay/meridian/internal/adapters/http/middleware"
	"github.com/meridianpay/meridian/internal/adapters/http/walletapi"
	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/application/walletsvc"
	"github.com/meridianpay/meridian/internal/config"
	"github.com/meridianpay/meridian/internal/infrastructure/persistence/postgres"
	"github.com/meridianpay/meridian/internal/infrastructure/riskclient"
	"github.com/meridianpay/meridian/internal/pkg/jwks"
	"github.com/meridianpay/meridian/internal/pkg/logger"
	"github.com/meridianpay/meridian/internal/pkg/startup"
)

func main() {
	cfg, err := config.Load("wallet")
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(log)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	pool, err := startup.Connect(ctx, log, "database", func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:             cfg.Database.DSN(),
			MaxConns:        cfg.Database.MaxConnections,
			MinConns:        cfg.Database.MinConnections,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
	})
	if err != nil {
		log.Error("connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := startup.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsPath, log); err != nil {
		log.Error("run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !cfg.App.IsProduction() {
		startup.Seed(ctx, pool, devSeed, log)
	}

	var risk ports.RiskEvaluator
	if cfg.Risk.Enabled {
		risk = riskclient.New(cfg.Risk.BaseURL, cfg.Risk.Timeout)
	}

	svc := walletsvc.New(
		postgres.NewWalletRepository(pool),
		postgres.NewLedgerRepository(pool),
		postgres.NewHoldRepository(pool),
		postgres.NewTransferRepository(pool),
		postgres.NewOutboxRepository(pool),
		postgres.NewUnitOfWork(pool),
		risk,
		log,
	)

	keys := jwks.NewCache(cfg.Auth.JWKSURL, cfg.Auth.JWKSTTL, cfg.Auth.JWKSTimeout)
	validator := jwks.NewValidator(keys, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Scopes)

	rateLimit := middleware.RateLimitConfig{Window: time.Minute}
	if cfg.RateLimit.Enabled {
		rateLimit.Limit = cfg.RateLimit.RequestsPerMinute
	}

	router := walletapi.NewRouter(
		walletapi.NewHandler(svc),
		validator,
		log,
		func(ctx context.Context) error { return postgres.HealthCheck(ctx, pool) },
		rateLimit,
	)

	err = startup.Serve(startup.ServeConfig{
		Addr:            cfg.Server.Address(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, log)
	if err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// devSeed gives local environments a wallet to poke at.
var devSeed = []string{
	`INSERT INTO wallets (owner_user_id, currency, status, balance)
	 SELECT 1, 'USD', 'active', 0
	 WHERE NOT EXISTS (SELECT 1 FROM wallets WHERE owner_user_id = 1 AND currency = 'USD')`,
}
