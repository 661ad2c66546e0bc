package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burakozf/splitledger/internal/api"
	"github.com/burakozf/splitledger/internal/auth"
	"github.com/burakozf/splitledger/internal/config"
	"github.com/burakozf/splitledger/internal/db"
	"github.com/burakozf/splitledger/internal/directory"
	"github.com/burakozf/splitledger/internal/ledger"
	"github.com/burakozf/splitledger/internal/logger"
	"github.com/burakozf/splitledger/internal/metrics"
	"github.com/burakozf/splitledger/internal/repository"
	"github.com/burakozf/splitledger/internal/repository/postgres"
	"github.com/burakozf/splitledger/internal/repository/sqlite"
	"github.com/burakozf/splitledger/internal/services"
	"github.com/burakozf/splitledger/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repository.Store
	switch cfg.DBDriver {
	case "sqlite":
		s, err := sqlite.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("sqlite open", "err", err)
			os.Exit(1)
		}
		store = s
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("db connect", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		if os.Getenv("APP_MIGRATE") == "true" {
			if err := db.RunMigrations(ctx, pool); err != nil {
				log.Error("migrations", "err", err)
				os.Exit(1)
			}
		}
		store = postgres.NewStore(pool)
	}
	defer store.Close()

	wp := worker.NewPool(4)
	defer wp.Stop()

	ldg := ledger.New(store, cfg.AutoSettleThreshold)
	dir := directory.NewHTTPClient(cfg.DirectoryURL)
	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, 15*time.Minute)

	expenseSvc := services.NewExpenseService(store, ldg, dir, wp, cfg)
	settlementSvc := services.NewSettlementService(store, ldg, dir, wp, cfg.MinSettlementAmount)
	balanceSvc := services.NewBalanceService(store, ldg, dir)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:           cfg,
		TokenManager:  tm,
		ExpenseSvc:    expenseSvc,
		SettlementSvc: settlementSvc,
		BalanceSvc:    balanceSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
