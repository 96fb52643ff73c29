package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/coin-wallet/internal/api"
	"github.com/baharkarakas/coin-wallet/internal/auth"
	"github.com/baharkarakas/coin-wallet/internal/config"
	"github.com/baharkarakas/coin-wallet/internal/db"
	"github.com/baharkarakas/coin-wallet/internal/logger"
	"github.com/baharkarakas/coin-wallet/internal/metrics"
	"github.com/baharkarakas/coin-wallet/internal/repository"
	"github.com/baharkarakas/coin-wallet/internal/repository/memory"
	"github.com/baharkarakas/coin-wallet/internal/repository/postgres"
	"github.com/baharkarakas/coin-wallet/internal/services"
	"github.com/baharkarakas/coin-wallet/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepos()

	sessions, closeSessions, err := openSessions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	pages, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:      cfg,
		Log:      log,
		Accounts: services.NewAccountService(repos.Accounts, log, cfg.Ledger.StartingBalance),
		Ledger:   services.NewLedgerService(repos, log, cfg.Ledger.TopUpEnabled),
		TM:       auth.NewTokenManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL),
		Sessions: sessions,
		Pages:    pages,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTP.Port, "env", cfg.App.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Repositories, func(), error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.NewRepositories(), func() {}, nil
	}

	if cfg.Storage.Migrate {
		if err := db.RunMigrations(ctx, cfg.Storage.DatabaseURL); err != nil {
			return repository.Repositories{}, nil, fmt.Errorf("migrations: %w", err)
		}
	}
	pool, err := db.NewPool(ctx, cfg.Storage.DatabaseURL, cfg.Storage.MaxConns)
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	return postgres.NewRepositories(pool), pool.Close, nil
}

func openSessions(ctx context.Context, cfg config.Config, log *slog.Logger) (auth.SessionStore, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Warn("REDIS_ADDR not set; sessions are kept in process memory")
		return auth.NewMemorySessions(cfg.Session.TTL), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return auth.NewRedisSessions(rdb, cfg.Session.TTL), func() { _ = rdb.Close() }, nil
}
